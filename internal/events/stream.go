package events

import (
	"context"
	"time"
)

// Poller repeatedly reads new events for a submission until it observes a
// terminal event or the caller's context ends. It is the source feeding the
// SSE handler in internal/api.
type Poller struct {
	log          *Log
	pollInterval time.Duration
	maxDuration  time.Duration
}

func NewPoller(log *Log, pollInterval, maxDuration time.Duration) *Poller {
	return &Poller{log: log, pollInterval: pollInterval, maxDuration: maxDuration}
}

// Poll calls emit for every new event since afterOrdinal, sleeping
// pollInterval between reads, until a terminal event is emitted, the
// maxDuration budget elapses, or ctx is canceled (the client disconnected).
func (p *Poller) Poll(ctx context.Context, submissionID string, afterOrdinal int, emit func(Event) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.maxDuration)
	defer cancel()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	last := afterOrdinal
	for {
		events, err := p.log.Since(ctx, submissionID, last)
		if err != nil {
			return err
		}

		for _, e := range events {
			if err := emit(e); err != nil {
				return err
			}
			last = e.Ordinal
			if e.Status.IsTerminal() {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
