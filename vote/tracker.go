package vote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vocdoni/davinci-sdk/api"
	"github.com/vocdoni/davinci-sdk/log"
	"github.com/vocdoni/davinci-sdk/types"
)

const (
	// DefaultPollInterval is how often the tracker asks the sequencer for a
	// vote status.
	DefaultPollInterval = 2500 * time.Millisecond
	// DefaultNotFoundLimit is how many consecutive not-found responses the
	// tracker tolerates before giving up on a vote locally.
	DefaultNotFoundLimit = 20
)

// statusAPI is the slice of the sequencer client the tracker needs.
type statusAPI interface {
	VoteStatus(ctx context.Context, pid, voteID types.HexBytes) (string, error)
}

// Tracker polls the sequencer for vote statuses. The sequencer is the
// source of truth; the tracker is a passive observer with no compensating
// action on poll failure.
type Tracker struct {
	api           statusAPI
	interval      time.Duration
	notFoundLimit int
}

// NewTracker creates a Tracker with the default poll interval.
func NewTracker(api statusAPI) *Tracker {
	return &Tracker{
		api:           api,
		interval:      DefaultPollInterval,
		notFoundLimit: DefaultNotFoundLimit,
	}
}

// SetInterval overrides the poll interval for trackings started afterwards.
func (t *Tracker) SetInterval(d time.Duration) *Tracker {
	t.interval = d
	return t
}

// SetNotFoundLimit overrides the consecutive not-found tolerance.
func (t *Tracker) SetNotFoundLimit(n int) *Tracker {
	t.notFoundLimit = n
	return t
}

// Tracking is a handle on one polling loop. Updates delivers each status
// change until a terminal status is observed, then the channel is closed.
// Stop cancels the loop at any time; no updates are emitted after it
// returns.
type Tracking struct {
	updates chan Status
	cancel  context.CancelFunc
	done    chan struct{}
}

// Updates returns the status change stream. The channel is closed when a
// terminal status is observed or the tracking is stopped.
func (t *Tracking) Updates() <-chan Status {
	return t.updates
}

// Stop cancels the polling loop and waits for it to finish. It is safe to
// call more than once.
func (t *Tracking) Stop() {
	t.cancel()
	<-t.done
}

// Track starts polling the status of voteID within process pid. The loop
// runs until a terminal status is observed, ctx is done or Stop is called.
func (t *Tracker) Track(ctx context.Context, pid, voteID types.HexBytes) *Tracking {
	ctx, cancel := context.WithCancel(ctx)
	tracking := &Tracking{
		updates: make(chan Status, 8),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go t.poll(ctx, pid, voteID, tracking)
	return tracking
}

func (t *Tracker) poll(ctx context.Context, pid, voteID types.HexBytes, tracking *Tracking) {
	defer close(tracking.done)
	defer close(tracking.updates)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var current Status
	notFound := 0
	for {
		status, err := t.api.VoteStatus(ctx, pid, voteID)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			// poll failures are transient noise, except a vote the
			// sequencer persistently does not know about
			var apiErr api.Error
			if errors.As(err, &apiErr) && apiErr.HTTPstatus == http.StatusNotFound {
				notFound++
				if notFound >= t.notFoundLimit {
					log.Warnw("vote not found after repeated polls, giving up",
						"processId", pid.String(), "voteId", voteID.String(), "polls", notFound)
					tracking.emit(StatusError)
					return
				}
			}
			log.Debugw("vote status poll failed", "voteId", voteID.String(), "error", err)
		default:
			notFound = 0
			next := Advance(current, Status(status))
			if !next.Valid() {
				log.Warnw("sequencer reported unknown vote status",
					"voteId", voteID.String(), "status", status)
			} else if next != current {
				current = next
				tracking.emit(current)
			}
			if current.Terminal() {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emit delivers a status without ever blocking the loop. The channel buffer
// covers every status the lifecycle can produce; a full buffer means the
// consumer is gone and the update is dropped.
func (t *Tracking) emit(status Status) {
	select {
	case t.updates <- status:
	default:
		log.Debugw("dropped vote status update", "status", string(status))
	}
}
