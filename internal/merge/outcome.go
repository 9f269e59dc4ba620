package merge

import (
	"github.com/kvit-s/kvit-merge/internal/editblock"
)

// OutcomeKind is the terminal state of one edit in a run.
type OutcomeKind int

const (
	Applied OutcomeKind = iota
	Unmerged
	Skipped
)

func (k OutcomeKind) String() string {
	switch k {
	case Applied:
		return "applied"
	case Unmerged:
		return "unmerged"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Method records how an applied edit was placed.
type Method string

const (
	MethodCreate Method = "create"
	MethodExact  Method = "exact"
	MethodAppend Method = "append"
	MethodFuzzy  Method = "fuzzy"
)

// Reason explains an Unmerged or Skipped outcome.
type Reason string

const (
	ReasonBelowThreshold   Reason = "below_threshold"
	ReasonTargetMissing    Reason = "target_missing"
	ReasonOutsideWorkspace Reason = "outside_workspace"
	ReasonIOError          Reason = "io_error"
	ReasonDeclined         Reason = "declined"
	ReasonAborted          Reason = "aborted"
	ReasonNoChange         Reason = "no_change"
)

// Kind maps an unmerged reason onto the error taxonomy.
func (r Reason) Kind() Kind {
	switch r {
	case ReasonTargetMissing:
		return KindTargetMissing
	case ReasonOutsideWorkspace:
		return KindOutsideWorkspace
	case ReasonIOError:
		return KindIO
	default:
		return KindBelowThreshold
	}
}

// Outcome is produced once per edit and never mutated.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	Method      Method      `json:"method,omitempty"`
	OldContent  string      `json:"-"`
	NewContent  string      `json:"-"`
	Similarity  float64     `json:"similarity"`
	Window      string      `json:"window,omitempty"`
	StartLine   int         `json:"start_line"`
	EndLine     int         `json:"end_line"`
	Reason      Reason      `json:"reason,omitempty"`
	Detail      string      `json:"detail,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// Decision pairs an edit with its resolved path and outcome.
type Decision struct {
	Index   int             `json:"index"`
	Block   editblock.Block `json:"block"`
	Path    string          `json:"path"` // absolute
	Outcome Outcome         `json:"outcome"`
}

// fileState is the running content of one file during a run.
type fileState struct {
	path     string
	original string
	content  string
	existed  bool
	diskHash string // hash of the content read from disk, "" when it did not exist
	applied  int
}

// Plan is the result of planning a batch. It is consumed by Executor.
type Plan struct {
	Decisions []Decision
	Aborted   bool

	files map[string]*fileState
	order []string // paths in first-touch order
}

func newPlan(n int) *Plan {
	return &Plan{
		Decisions: make([]Decision, 0, n),
		files:     make(map[string]*fileState),
	}
}

func (p *Plan) track(path, content string, existed bool) *fileState {
	st := &fileState{path: path, original: content, content: content, existed: existed}
	if existed {
		st.diskHash = ContentHash(content)
	}
	p.files[path] = st
	p.order = append(p.order, path)
	return st
}

// Blocked reports whether any edit is unmerged, which forbids all writes.
func (p *Plan) Blocked() bool {
	for _, d := range p.Decisions {
		if d.Outcome.Kind == Unmerged {
			return true
		}
	}
	return false
}

// Count returns the number of decisions with the given outcome kind.
func (p *Plan) Count(kind OutcomeKind) int {
	n := 0
	for _, d := range p.Decisions {
		if d.Outcome.Kind == kind {
			n++
		}
	}
	return n
}

// FileChange is the final content of one file to be written.
type FileChange struct {
	Path     string
	Original string // content before the merge, "" for created files
	Content  string
	Created  bool
	Applied  int // edits applied to this file
}

// Changes lists files with at least one applied edit, in first-touch order.
func (p *Plan) Changes() []FileChange {
	var out []FileChange
	for _, path := range p.order {
		st := p.files[path]
		if st.applied == 0 {
			continue
		}
		out = append(out, FileChange{
			Path:     st.path,
			Original: st.original,
			Content:  st.content,
			Created:  !st.existed,
			Applied:  st.applied,
		})
	}
	return out
}
