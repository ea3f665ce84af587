package core

// errors.go defines the failure taxonomy shared by every pipeline stage.
//
// Stages never swallow errors: each returns its result plus a *StageError whose
// Kind tells the orchestrator (and the process exit code) which stage failed.
// The wrapped cause stays reachable through errors.Is / errors.As.

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a stage failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindRetrieval
	KindConversion
	KindPublish
	KindMissingInput
	KindValidation
	KindPersist
	KindLock
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindRetrieval:
		return "retrieval"
	case KindConversion:
		return "conversion"
	case KindPublish:
		return "publish"
	case KindMissingInput:
		return "missing_input"
	case KindValidation:
		return "validation"
	case KindPersist:
		return "persist"
	case KindLock:
		return "lock"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinel causes. Adapters wrap these so callers can branch with errors.Is.
var (
	ErrRetrievalTimeout = errors.New("retrieval timed out waiting for download")
	ErrMissingInput     = errors.New("no partitions found")
	ErrLockHeld         = errors.New("run lock held by another process")
	ErrNotExist         = errors.New("remote path does not exist")
)

// StageError is the typed failure every stage returns.
type StageError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail wraps err as a StageError. Returns nil if err is nil.
// Context cancellation is reported as KindCancelled regardless of kind.
func Fail(kind Kind, stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) && se.Stage == stage {
		return err
	}
	if errors.Is(err, context.Canceled) {
		kind = KindCancelled
	}
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the Kind of the outermost StageError in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindUnknown
}

// Exit codes returned by the storefront binary.
const (
	ExitOK           = 0
	ExitConfig       = 1
	ExitRetrieval    = 2
	ExitConversion   = 3
	ExitPublish      = 4
	ExitMissingInput = 5
	ExitPersist      = 6
	ExitLock         = 7
	ExitCancelled    = 130
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindConfig:
		return ExitConfig
	case KindRetrieval:
		return ExitRetrieval
	case KindConversion:
		return ExitConversion
	case KindPublish:
		return ExitPublish
	case KindMissingInput:
		return ExitMissingInput
	case KindLock:
		return ExitLock
	case KindCancelled:
		return ExitCancelled
	default:
		return ExitPersist
	}
}
