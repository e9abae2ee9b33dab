package vote

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-sdk/api"
	"github.com/vocdoni/davinci-sdk/types"
)

// scriptedStatusAPI answers VoteStatus calls from a fixed script, repeating
// the last entry once exhausted.
type scriptedStatusAPI struct {
	script []any // Status or error per call
	calls  atomic.Int64
}

func (s *scriptedStatusAPI) VoteStatus(_ context.Context, _, _ types.HexBytes) (string, error) {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.script) {
		n = len(s.script) - 1
	}
	switch v := s.script[n].(type) {
	case Status:
		return string(v), nil
	case error:
		return "", v
	default:
		panic("bad script entry")
	}
}

func collect(c *qt.C, tracking *Tracking, timeout time.Duration) []Status {
	var got []Status
	deadline := time.After(timeout)
	for {
		select {
		case status, ok := <-tracking.Updates():
			if !ok {
				return got
			}
			got = append(got, status)
		case <-deadline:
			c.Fatal("timed out waiting for tracker updates")
		}
	}
}

func TestTrackerLifecycle(t *testing.T) {
	c := qt.New(t)
	seq := &scriptedStatusAPI{script: []any{
		StatusPending, StatusPending, StatusVerified, StatusAggregated,
		StatusProcessed, StatusSettled,
	}}
	tracker := NewTracker(seq).SetInterval(2 * time.Millisecond)

	tracking := tracker.Track(context.Background(), types.HexBytes{0x01}, types.HexBytes{0x02})
	got := collect(c, tracking, 5*time.Second)
	c.Assert(got, qt.DeepEquals, []Status{
		StatusPending, StatusVerified, StatusAggregated, StatusProcessed, StatusSettled,
	})

	// terminal status stops the polling, no further calls
	calls := seq.calls.Load()
	time.Sleep(20 * time.Millisecond)
	c.Assert(seq.calls.Load(), qt.Equals, calls)
}

func TestTrackerSwallowsTransientErrors(t *testing.T) {
	c := qt.New(t)
	seq := &scriptedStatusAPI{script: []any{
		StatusPending,
		fmt.Errorf("connection refused"),
		fmt.Errorf("connection refused"),
		StatusSettled,
	}}
	tracker := NewTracker(seq).SetInterval(2 * time.Millisecond)

	tracking := tracker.Track(context.Background(), types.HexBytes{0x01}, types.HexBytes{0x02})
	got := collect(c, tracking, 5*time.Second)
	c.Assert(got, qt.DeepEquals, []Status{StatusPending, StatusSettled})
}

func TestTrackerNeverRegresses(t *testing.T) {
	c := qt.New(t)
	seq := &scriptedStatusAPI{script: []any{
		StatusVerified, StatusPending, StatusAggregated, StatusSettled,
	}}
	tracker := NewTracker(seq).SetInterval(2 * time.Millisecond)

	tracking := tracker.Track(context.Background(), types.HexBytes{0x01}, types.HexBytes{0x02})
	got := collect(c, tracking, 5*time.Second)
	// the stale "pending" observation is never displayed
	c.Assert(got, qt.DeepEquals, []Status{StatusVerified, StatusAggregated, StatusSettled})
}

func TestTrackerNotFoundLimit(t *testing.T) {
	c := qt.New(t)
	notFound := api.ErrResourceNotFound.WithErr(fmt.Errorf("vote not found"))
	c.Assert(notFound.HTTPstatus, qt.Equals, http.StatusNotFound)

	seq := &scriptedStatusAPI{script: []any{notFound}}
	tracker := NewTracker(seq).SetInterval(2 * time.Millisecond).SetNotFoundLimit(3)

	tracking := tracker.Track(context.Background(), types.HexBytes{0x01}, types.HexBytes{0x02})
	got := collect(c, tracking, 5*time.Second)
	c.Assert(got, qt.DeepEquals, []Status{StatusError})
	c.Assert(seq.calls.Load(), qt.Equals, int64(3))
}

func TestTrackerStop(t *testing.T) {
	c := qt.New(t)
	seq := &scriptedStatusAPI{script: []any{StatusPending}}
	tracker := NewTracker(seq).SetInterval(2 * time.Millisecond)

	tracking := tracker.Track(context.Background(), types.HexBytes{0x01}, types.HexBytes{0x02})
	// wait for the first update so the loop is running
	c.Assert(<-tracking.Updates(), qt.Equals, StatusPending)

	tracking.Stop()
	calls := seq.calls.Load()

	// stopping closes the stream and halts polling
	_, ok := <-tracking.Updates()
	c.Assert(ok, qt.IsFalse)
	time.Sleep(20 * time.Millisecond)
	c.Assert(seq.calls.Load(), qt.Equals, calls)

	// Stop is idempotent
	tracking.Stop()
}

func TestAdvance(t *testing.T) {
	c := qt.New(t)
	c.Assert(Advance(StatusPending, StatusVerified), qt.Equals, StatusVerified)
	c.Assert(Advance(StatusProcessed, StatusVerified), qt.Equals, StatusProcessed)
	c.Assert(Advance(StatusProcessed, StatusError), qt.Equals, StatusError)
	c.Assert(Advance(StatusPending, StatusTimeout), qt.Equals, StatusTimeout)
	c.Assert(Advance("", StatusPending), qt.Equals, StatusPending)
}
