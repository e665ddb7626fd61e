// Package operation binds a resolved file set, the archive codec and a
// progress channel into a single-run state machine: Created → Identified →
// Running → Complete. One Operation instance executes exactly once; there is
// no cancellation once started.
package operation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/idunn/cryptarch/internal/archive"
	"github.com/idunn/cryptarch/internal/keystream"
	"github.com/idunn/cryptarch/pkg/extmatch"
)

// Kind selects the direction of an operation.
type Kind int

const (
	// Encrypt packs a target path into an archive.
	Encrypt Kind = iota
	// Decrypt unpacks an archive into a destination directory.
	Decrypt
)

// State tracks the operation lifecycle. No state is re-enterable.
type State int

const (
	StateCreated State = iota
	StateIdentified
	StateRunning
	StateComplete
)

// String returns the lifecycle state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateIdentified:
		return "identified"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrState is returned when a lifecycle transition is attempted out of order.
	ErrState = errors.New("invalid operation state")
	// ErrSingleArchive is returned when the decrypt target is not a single file.
	ErrSingleArchive = errors.New("decrypting requires a single archive file")
)

// Operation executes one archive pack or unpack.
type Operation struct {
	kind        Kind
	key         *keystream.Key
	target      string
	destination string
	recurse     bool
	matcher     *extmatch.Matcher

	set      *archive.FileSet
	progress *Progress
	state    State
	group    errgroup.Group
}

// New creates an operation in the Created state.
func New(kind Kind, key *keystream.Key, target, destination string, recurse bool, matcher *extmatch.Matcher) *Operation {
	return &Operation{
		kind:        kind,
		key:         key,
		target:      target,
		destination: destination,
		recurse:     recurse,
		matcher:     matcher,
		progress:    &Progress{},
	}
}

// Progress returns the progress channel polled by the controlling side.
func (o *Operation) Progress() *Progress {
	return o.progress
}

// FileSet returns the resolved file set. Valid after Identify.
func (o *Operation) FileSet() *archive.FileSet {
	return o.set
}

// State returns the current lifecycle state.
func (o *Operation) State() State {
	return o.state
}

// Identify resolves the target into a file set and transitions to Identified.
//
// Encrypting requires at least one resolved file; an empty resolution returns
// archive.ErrNoFiles so the caller can decide whether to abort. Decrypting
// requires the target to be exactly one archive file, never a directory.
func (o *Operation) Identify() error {
	if o.state != StateCreated {
		return fmt.Errorf("%w: cannot identify from %s", ErrState, o.state)
	}

	switch o.kind {
	case Decrypt:
		info, err := os.Stat(o.target)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %q", archive.ErrPathNotFound, o.target)
			}

			return fmt.Errorf("stat %q: %w", o.target, err)
		}

		if info.IsDir() {
			return fmt.Errorf("%w: %q is a directory", ErrSingleArchive, o.target)
		}

		o.set = &archive.FileSet{
			Root: filepath.Dir(o.target),
			Files: []archive.FileDescriptor{{
				Path:    o.target,
				RelPath: filepath.Base(o.target),
				Size:    info.Size(),
			}},
		}

	case Encrypt:
		set, err := archive.Resolve(o.target, o.recurse, o.matcher)
		if err != nil {
			return err
		}

		if set.Empty() {
			return fmt.Errorf("%w: %q", archive.ErrNoFiles, o.target)
		}

		o.set = set
	}

	o.state = StateIdentified

	return nil
}

// Start launches the archive task in the background and transitions to
// Running. The task is the sole writer of the progress channel until it
// marks completion.
func (o *Operation) Start() error {
	if o.state != StateIdentified {
		return fmt.Errorf("%w: cannot start from %s", ErrState, o.state)
	}

	o.state = StateRunning
	o.group.Go(o.run)

	return nil
}

// Wait joins the background task and reports overall success. It transitions
// the operation to Complete.
func (o *Operation) Wait() bool {
	err := o.group.Wait()
	o.state = StateComplete

	return err == nil
}

// run executes the archive task. All transcript messages are queued before
// completion is flagged, so a poller observing complete can drain once more
// and miss nothing.
func (o *Operation) run() (err error) {
	defer func() {
		if err != nil {
			o.progress.Logf("operation failed: %v", err)
		}

		o.progress.Finish(err == nil)
	}()

	switch o.kind {
	case Encrypt:
		return archive.Pack(o.set, o.key, o.destination, o.progress)
	case Decrypt:
		return archive.Unpack(o.target, o.key, o.destination, o.progress)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrState, o.kind)
	}
}
