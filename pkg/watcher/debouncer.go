package watcher

import (
	"context"
	"time"

	"github.com/ritzau/compdb/pkg/logging"
)

// Debouncer batches rapid file system events. A batch is flushed once no event
// arrived for the quiet period, or once maxWait has passed since the first
// event of the batch, whichever comes first.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
	done        chan struct{}
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	if maxWait < quietPeriod {
		maxWait = quietPeriod
	}
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
		done:        make(chan struct{}),
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.done)
	defer close(d.output)

	quiet := time.NewTimer(d.quietPeriod)
	quiet.Stop()
	deadline := time.NewTimer(d.maxWait)
	deadline.Stop()

	var (
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	// send gives up once ctx is cancelled; the final flush only delivers
	// what fits in the buffer so an absent reader cannot block shutdown.
	send := func(ev ChangeEvent, final bool) bool {
		if final {
			select {
			case d.output <- ev:
				return true
			default:
				return false
			}
		}
		select {
		case d.output <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	flush := func(final bool) {
		quiet.Stop()
		deadline.Stop()
		if eventCount == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", eventCount)

		// Structural changes first so readers reopen before reading.
		for _, t := range []ChangeType{ChangeTypeRemove, ChangeTypeCreate, ChangeTypeWrite} {
			if paths := accumulated[t]; len(paths) > 0 {
				if !send(ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}, final) {
					logging.Debug("dropping debounced events, reader gone", "type", t.String())
				}
			}
		}
		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush(true)
			return

		case event, ok := <-d.input:
			if !ok {
				flush(true)
				return
			}
			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			if eventCount == 0 {
				deadline.Reset(d.maxWait)
			}
			eventCount++
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			flush(false)

		case <-deadline.C:
			flush(false)
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
