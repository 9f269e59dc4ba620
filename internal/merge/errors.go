package merge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies merge failures.
type Kind int

const (
	// KindParseMalformed - unterminated or nested block, dropped by the parser
	KindParseMalformed Kind = iota

	// KindTargetMissing - non-empty search against a file that does not exist (strict create only)
	KindTargetMissing

	// KindAmbiguousMatch - several windows share the best score; the first one is used
	KindAmbiguousMatch

	// KindBelowThreshold - best window similarity under the configured threshold
	KindBelowThreshold

	// KindPatchApply - a diff block failed to apply
	KindPatchApply

	// KindIO - read or write failure on disk
	KindIO

	// KindConcurrentModification - a target changed on disk between plan and execute
	KindConcurrentModification

	// KindOutsideWorkspace - target path rejected by the workspace policy
	KindOutsideWorkspace
)

var kindNames = map[Kind]string{
	KindParseMalformed:         "parse_malformed",
	KindTargetMissing:          "target_missing",
	KindAmbiguousMatch:         "ambiguous_match",
	KindBelowThreshold:         "below_threshold",
	KindPatchApply:             "patch_apply_failure",
	KindIO:                     "io_error",
	KindConcurrentModification: "concurrent_modification",
	KindOutsideWorkspace:       "outside_workspace",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText makes Kind render by name in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

var (
	// ErrNotExist is returned by FileSystem.ReadFile for missing files.
	ErrNotExist = errors.New("file does not exist")

	// ErrUnresolvedPlan is returned when Execute is called with unmerged outcomes.
	ErrUnresolvedPlan = errors.New("plan has unmerged edits")

	// ErrConcurrentModification is returned when a target changed after it was read.
	ErrConcurrentModification = errors.New("file changed on disk since it was read")
)

// Error is a classified merge error.
type Error struct {
	Kind    Kind
	Path    string
	Err     error
	Details map[string]any // Optional structured data for reports
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ToJSON returns the error as a map for structured output.
func (e *Error) ToJSON() map[string]any {
	result := map[string]any{
		"kind":  e.Kind.String(),
		"error": fmt.Sprint(e.Err),
	}
	if e.Path != "" {
		result["path"] = e.Path
	}
	for k, v := range e.Details {
		result[k] = v
	}
	return result
}

// IOError wraps a disk failure for path.
func IOError(path string, err error) *Error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

// PatchError wraps a failed diff block application.
func PatchError(err error, details map[string]any) *Error {
	return &Error{Kind: KindPatchApply, Err: err, Details: details}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind, true
	}
	return 0, false
}

// FormatError returns JSON for classified errors, plain text otherwise.
func FormatError(err error) string {
	var me *Error
	if errors.As(err, &me) {
		if data, mErr := json.MarshalIndent(me.ToJSON(), "", "  "); mErr == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("Error: %v", err)
}
