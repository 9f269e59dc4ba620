package merge

import (
	"context"

	"github.com/kvit-s/kvit-merge/internal/lang"
)

// Choice is the caller's answer to a confirmation request.
type Choice int

const (
	Confirm    Choice = iota // apply this edit
	ConfirmAll               // apply this and every remaining edit without asking
	Skip                     // leave this edit out
	Abort                    // discard the whole run
)

func (c Choice) String() string {
	switch c {
	case Confirm:
		return "confirm"
	case ConfirmAll:
		return "confirm_all"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// Request is what the caller sees before an edit is committed to the running content.
type Request struct {
	Index      int // 0-based position in the batch
	Total      int
	Path       string // as written in the edit block
	AbsPath    string
	Language   lang.Tag
	Method     Method
	Search     string
	Window     string // matched text; equals Search for exact matches
	Replace    string
	Similarity float64
	OldContent string
	NewContent string
}

// Prompter asks the caller whether to apply an edit. It blocks until answered.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (Choice, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, req Request) (Choice, error)

func (f PrompterFunc) Prompt(ctx context.Context, req Request) (Choice, error) {
	return f(ctx, req)
}

var (
	// AlwaysConfirm applies every edit.
	AlwaysConfirm Prompter = PrompterFunc(func(context.Context, Request) (Choice, error) { return Confirm, nil })

	// AlwaysSkip declines every edit.
	AlwaysSkip Prompter = PrompterFunc(func(context.Context, Request) (Choice, error) { return Skip, nil })
)
