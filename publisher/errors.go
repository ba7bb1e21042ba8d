package publisher

import (
	"errors"
	"fmt"
)

var (
	ErrEngineUnavailable = errors.New("container engine is not available")
	ErrNotAuthenticated  = errors.New("not logged in to the registry")
	ErrNoUsername        = errors.New("no registry username")
	ErrWriteFailed       = errors.New("could not write artifact definition")
	ErrBuildFailed       = errors.New("image build failed")
	ErrTagFailed         = errors.New("image tag failed")
	ErrPushFailed        = errors.New("image push failed")

	// ErrPromptCancelled is returned by a CredentialResolver when input ends
	// or the context is cancelled before an answer is given.
	ErrPromptCancelled = errors.New("username prompt cancelled")
)

// State is a position in the publish pipeline.
type State int

const (
	StateInit State = iota
	StateEngineChecked
	StateAuthenticated
	StateArtifactReady
	StateBuilt
	StateTagged
	StatePushed
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:          "init",
	StateEngineChecked: "engine-checked",
	StateAuthenticated: "authenticated",
	StateArtifactReady: "artifact-ready",
	StateBuilt:         "built",
	StateTagged:        "tagged",
	StatePushed:        "pushed",
	StateDone:          "done",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Step is the last engine step of a run that succeeded.
type Step int

const (
	StepNone Step = iota
	StepBuild
	StepTag
	StepPush
)

func (s Step) String() string {
	switch s {
	case StepBuild:
		return "build"
	case StepTag:
		return "tag"
	case StepPush:
		return "push"
	default:
		return "none"
	}
}

// StepError reports the failure of a pipeline step. errors.Is matches it
// against its Kind as well as anything in the wrapped cause.
type StepError struct {
	Kind error
	// State is the last state reached before the failure.
	State State
	Err   error
	Hint  string
}

func (e *StepError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
