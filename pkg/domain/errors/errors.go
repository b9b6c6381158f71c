// Error taxonomy of the granary domain.
//
// Four families, with different recovery contracts:
//
//   - ErrInconsistentState: an illegal state transition or unmet
//     acceptance/publication precondition. Recoverable by the caller; the
//     attempted operation has no partial effect.
//
//   - ErrConflict: the operation collides with the archive namespace
//     (duplicate version, duplicate filename, pool checksum mismatch).
//     Aborts the whole operation; carries enough detail for a human.
//
//   - ErrInitialization: one of the named pre-flight failures of series
//     initialization. Raised by the read-only check phase only.
//
//   - ErrMissing: the requested row does not exist.
//
// Internal-consistency violations (double domination, a DDEB passed as a
// dominant publication) are NOT errors of this taxonomy: they are caller
// bugs and panic instead.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/granary-project/granary/pkg/domain"
)

var (
	ErrMissing = errors.New("not found")

	ErrInconsistentState = errors.New("inconsistent queue state")

	ErrConflict = errors.New("archive conflict")

	ErrInitialization = errors.New("series initialization blocked")
)

func NewMissing(entity string, id int) error {
	return fmt.Errorf("%w: %s %d", ErrMissing, entity, id)
}

// NewIllegalTransition reports a forbidden upload status change.
func NewIllegalTransition(from, to domain.UploadStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInconsistentState, from, to)
}

func NewInconsistentState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(format, args...))
}

// Conflict is a collision with the shared archive namespace.
type Conflict struct {
	Reason string

	// The filenames in collision, when the conflict is file-level.
	Files []string
}

func (c *Conflict) Error() string {
	if len(c.Files) == 0 {
		return c.Reason
	}
	return c.Reason + ":\n\t" + strings.Join(c.Files, "\n\t")
}

func (c *Conflict) Unwrap() error {
	return ErrConflict
}

// InitFailure names one of the distinct pre-flight failures of series
// initialization. Each has a fixed user-facing message.
type InitFailure string

const (
	InitAlreadyInitialized InitFailure = "already-initialized"
	InitNoPublisherConfig  InitFailure = "no-publisher-config"
	InitNoPreviousSeries   InitFailure = "no-previous-series"
	InitNoParents          InitFailure = "no-parents"
	InitNoArchIndep        InitFailure = "no-archindep-arch"
	InitPendingBuilds      InitFailure = "pending-builds"
	InitQueueConflict      InitFailure = "queue-conflict"
	InitAmbiguousParents   InitFailure = "ambiguous-parents"
	InitCopyFailed         InitFailure = "copy-failed"
)

type Initialization struct {
	Failure InitFailure
	Message string
}

func (i *Initialization) Error() string {
	return fmt.Sprintf("%s: %s", i.Failure, i.Message)
}

func (i *Initialization) Unwrap() error {
	return ErrInitialization
}

func NewInitialization(failure InitFailure, format string, args ...any) error {
	return &Initialization{Failure: failure, Message: fmt.Sprintf(format, args...)}
}

// AsInitialization unwraps err to the Initialization it carries, if any.
func AsInitialization(err error) (*Initialization, bool) {
	ie := new(Initialization)
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
