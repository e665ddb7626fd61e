// Package logic implements the core control flow of the archiver: it builds
// the operation from configuration, drives its state machine, and polls the
// progress channel while the archive task runs in the background.
package logic

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/idunn/cryptarch/internal/archive"
	"github.com/idunn/cryptarch/internal/config"
	"github.com/idunn/cryptarch/internal/filter"
	"github.com/idunn/cryptarch/internal/keystream"
	"github.com/idunn/cryptarch/internal/operation"
	"github.com/idunn/cryptarch/pkg/extmatch"
)

// pollInterval is how often the controlling side samples progress and drains
// the transcript queue. A design parameter, not a protocol requirement.
const pollInterval = 100 * time.Millisecond

// Run drives one archive operation to completion and reports its outcome.
//
// An empty resolution ("no files identified") is reported but is not an
// error; anything else that keeps the operation from succeeding is.
func Run(cfg *config.Config) error {
	start := time.Now()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "cryptarch",
	})
	if cfg.Quiet {
		logger.SetLevel(log.WarnLevel)
	}

	op, err := newOperation(cfg)
	if err != nil {
		return err
	}

	if err := op.Identify(); err != nil {
		if errors.Is(err, archive.ErrNoFiles) {
			logger.Warn("no files identified", "target", cfg.Target)

			return nil
		}

		return err
	}

	if err := op.Start(); err != nil {
		return err
	}

	success := poll(op, logger)

	if cfg.Stats {
		printStats(op.FileSet(), time.Since(start))
	}

	if !success {
		return errors.New("operation failed")
	}

	if cfg.Delete && !cfg.Decrypt {
		deleteOriginals(op.FileSet(), logger)
	}

	return nil
}

// Encrypt packs the target path into an encrypted archive at destination.
// It is the programmatic equivalent of the encrypt command.
func Encrypt(key, target, destination string, recurse bool, filters []string) error {
	return Run(&config.Config{
		Key:         key,
		Target:      target,
		Destination: destination,
		Recurse:     recurse,
		Filter:      filters,
	})
}

// Decrypt unpacks the archive at target into the destination directory.
// It is the programmatic equivalent of the decrypt command.
func Decrypt(key, target, destination string, recurse bool, filters []string) error {
	return Run(&config.Config{
		Key:         key,
		Target:      target,
		Destination: destination,
		Recurse:     recurse,
		Filter:      filters,
		Decrypt:     true,
	})
}

// newOperation assembles the key, filter matcher and operation from config.
func newOperation(cfg *config.Config) (*operation.Operation, error) {
	passphrase, err := cfg.Passphrase()
	if err != nil {
		return nil, err
	}

	patterns, err := filter.Merge(cfg.Filter, cfg.FilterFrom)
	if err != nil {
		return nil, err
	}

	matcher, err := extmatch.NewMatcher(patterns)
	if err != nil {
		return nil, fmt.Errorf("compiling filter patterns: %w", err)
	}

	kind := operation.Encrypt
	if cfg.Decrypt {
		kind = operation.Decrypt
	}

	return operation.New(kind, keystream.Derive(passphrase), cfg.Target, cfg.Destination, cfg.Recurse, matcher), nil
}

// poll drains queued transcript messages and samples progress until the
// background task flags completion, then joins it.
//
// The task queues all messages before flagging completion, so one final drain
// after observing the flag misses nothing.
func poll(op *operation.Operation, logger *log.Logger) bool {
	prog := op.Progress()
	lastPct := -1

	for {
		for _, msg := range prog.Drain() {
			logger.Info(msg)
		}

		snap := prog.Snapshot()

		if pct := int(snap.Fraction * 100); pct >= lastPct+10 {
			logger.Info("working", "progress", fmt.Sprintf("%d%%", pct))
			lastPct = pct
		}

		if snap.Complete {
			for _, msg := range prog.Drain() {
				logger.Info(msg)
			}

			return op.Wait()
		}

		time.Sleep(pollInterval)
	}
}

// deleteOriginals removes the source files of a successful pack.
func deleteOriginals(set *archive.FileSet, logger *log.Logger) {
	for _, fd := range set.Files {
		if err := os.Remove(fd.Path); err != nil {
			logger.Error("failed to delete original", "path", fd.Path, "err", err)
		} else {
			logger.Info("deleted original", "path", fd.Path)
		}
	}
}

// printStats writes the end-of-run summary to stderr.
func printStats(set *archive.FileSet, duration time.Duration) {
	fmt.Fprintf(os.Stderr, "\nStats\n")
	fmt.Fprintf(os.Stderr, "  Files:    %d\n", len(set.Files))
	//nolint:gosec // total size is always non-negative (sum of file sizes)
	fmt.Fprintf(os.Stderr, "  Size:     %s\n", humanize.IBytes(uint64(max(0, set.TotalSize()))))
	fmt.Fprintf(os.Stderr, "  Duration: %s\n", duration.Round(time.Millisecond))
}
