package station

import (
	"context"
	"fmt"
)

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the station has been stopped.
func (s *Station) Enqueue(ev Event) bool {
	return s.queue.Enqueue(ev)
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop is called.
//
// Must be called from exactly one goroutine; while it runs, all component
// state belongs to it. A failing event is reported as a notice and the loop
// moves on to the next one.
func (s *Station) Run(ctx context.Context) error {
	s.logger.Debug("station loop starting")

	for {
		if ev, ok := s.queue.TryDequeue(); ok {
			err := s.Dispatch(ctx, ev)
			if err != nil {
				s.logger.Debug("event failed", "event", ev.Type.String(), "error", err)
			}
			if ev.Reply != nil {
				select {
				case ev.Reply <- err:
				default:
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Debug("station loop stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel is closed with the queue; drain first.
			if s.queue.Len() == 0 && s.queue.Closed() {
				s.logger.Debug("station loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue. Run returns once queued events are handled.
func (s *Station) Stop() {
	s.queue.Close()
}

// Dispatch handles one event synchronously.
func (s *Station) Dispatch(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventQuery:
		s.Query(ev.Text)
		return nil
	case EventSubmit:
		return s.Submit(ev.Text)
	case EventScan:
		return s.Scan(ev.Text)
	case EventPick:
		return s.Pick(ev.Index)
	case EventEdit:
		return s.Edit(ev.Key)
	case EventConfirm:
		return s.Confirm(ctx, ev.Text)
	case EventCancelPrompt:
		s.CancelPrompt()
		return nil
	case EventDismissPrompt:
		s.DismissPrompt()
		return nil
	case EventCancelEntry:
		return s.CancelEntry(ctx, ev.Key)
	case EventDelete:
		return s.Delete(ctx, ev.Key)
	case EventClear:
		return s.Clear(ctx)
	case EventAuthorize:
		return s.Authorize(ctx, ev.Text)
	case EventRevoke:
		s.Revoke()
		return nil
	case EventFilter:
		s.SetSecondaryFilter(ev.Flag)
		return nil
	case EventLoadCatalog:
		if ev.Text == "" {
			return s.LoadConfiguredCatalog(ctx)
		}
		return s.LoadCatalogFile(ctx, ev.Text)
	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
}
