// Package scanner turns barcode input devices into a stream of decoded codes.
//
// A Source owns its capture resource only while Run is executing: it is
// acquired on entry and released on every return path. Scanner wraps a
// Source with Start/Stop so the station can toggle scanning on and off.
package scanner

import (
	"context"
	"errors"
	"sync"
)

// ErrRunning is returned by Start when the scanner is already running.
var ErrRunning = errors.New("scanner already running")

// Source produces decoded code strings.
type Source interface {
	// Run acquires the device, calls emit for every decoded code and
	// releases the device before returning. It returns nil when ctx is
	// cancelled or the input ends.
	Run(ctx context.Context, emit func(code string)) error
}

// Scanner runs a Source in the background.
type Scanner struct {
	source Source
	emit   func(string)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New creates a stopped scanner that forwards codes to emit.
func New(source Source, emit func(code string)) *Scanner {
	return &Scanner{source: source, emit: emit}
}

// Start runs the source until Stop is called or ctx is cancelled.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return ErrRunning
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.err = nil

	go func() {
		defer close(done)
		err := s.source.Run(runCtx, s.emit)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}()
	return nil
}

// Stop cancels the source and waits for it to release its device.
// It returns the error the source stopped with, if any.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
	s.done = nil
	return s.err
}

// Running reports whether the source is still running.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
