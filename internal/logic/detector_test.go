package logic

import (
	"testing"
	"time"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/tick"
)

// fakeSource holds flags and applies the read-and-acknowledge contract.
type fakeSource struct {
	flags button.Flags
	reads int
}

func (f *fakeSource) Read(mask button.Flags) button.Flags {
	f.reads++
	got := f.flags & mask
	f.flags &^= mask & button.Events
	return got
}

func TestNewDetector(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(startTime)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if !d.startTime.Equal(startTime) {
		t.Errorf("expected startTime %v, got %v", startTime, d.startTime)
	}
	if !d.lastHeartbeat.Equal(startTime) {
		t.Errorf("expected lastHeartbeat %v, got %v", startTime, d.lastHeartbeat)
	}
	if len(d.Names()) != 0 {
		t.Errorf("expected no buttons, got %v", d.Names())
	}
}

func TestNoEventsWithoutFlags(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	src := &fakeSource{}
	d.Add("doorbell", src)

	for i := 0; i < 10; i++ {
		events := d.Poll(now.Add(time.Duration(i) * 5 * time.Millisecond))
		if len(events) != 0 {
			t.Errorf("iteration %d: expected no events, got %d", i, len(events))
		}
	}
	if src.reads != 10 {
		t.Errorf("expected one read per poll, got %d", src.reads)
	}
}

func TestPressEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	src := &fakeSource{flags: button.State | button.Changed}
	d.Add("doorbell", src)

	events := d.Poll(now)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventPress {
		t.Errorf("expected PRESS, got %s", e.Type)
	}
	if e.Button != "doorbell" {
		t.Errorf("expected button doorbell, got %q", e.Button)
	}
	if e.State != StatePressed {
		t.Errorf("expected state PRESSED, got %s", e.State)
	}
	if !e.Timestamp.Equal(now) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}

	if src.flags != button.State {
		t.Errorf("expected event flags acknowledged and State kept, got %04b", src.flags)
	}

	// Acknowledged: no repeat.
	if events := d.Poll(now.Add(time.Millisecond)); len(events) != 0 {
		t.Errorf("expected no repeat event, got %d", len(events))
	}
	if d.CurrentState()["doorbell"] != StatePressed {
		t.Errorf("expected doorbell PRESSED, got %s", d.CurrentState()["doorbell"])
	}
}

func TestReleaseEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	d.Add("doorbell", &fakeSource{flags: button.Changed})

	events := d.Poll(now)
	if len(events) != 1 || events[0].Type != EventRelease {
		t.Fatalf("expected one RELEASE, got %+v", events)
	}
	if events[0].State != StateReleased {
		t.Errorf("expected state RELEASED, got %s", events[0].State)
	}
}

func TestEventOrderForOneButton(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	d.Add("a", &fakeSource{flags: button.State | button.Events})

	events := d.Poll(now)
	want := []EventType{EventPress, EventDoubleClick, EventLongPress}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, w := range want {
		if events[i].Type != w {
			t.Errorf("event %d: expected %s, got %s", i, w, events[i].Type)
		}
	}
}

func TestLongRelease(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	d.Add("a", &fakeSource{flags: button.LongEvent})

	events := d.Poll(now)
	if len(events) != 1 || events[0].Type != EventLongRelease {
		t.Fatalf("expected one LONG_RELEASE, got %+v", events)
	}
}

func TestButtonsPolledInOrder(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	d.Add("first", &fakeSource{flags: button.State | button.Changed})
	d.Add("second", &fakeSource{flags: button.State | button.Changed})
	d.Add("third", &fakeSource{})

	events := d.Poll(now)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Button != "first" || events[1].Button != "second" {
		t.Errorf("expected first then second, got %s then %s", events[0].Button, events[1].Button)
	}

	names := d.Names()
	if len(names) != 3 || names[0] != "first" || names[2] != "third" {
		t.Errorf("unexpected names %v", names)
	}
	if d.CurrentState()["third"] != StateReleased {
		t.Errorf("expected third RELEASED, got %s", d.CurrentState()["third"])
	}
}

func TestEventCounts(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	src := &fakeSource{}
	d.Add("a", src)

	src.flags = button.State | button.Changed
	d.Poll(now)
	src.flags = button.Changed
	d.Poll(now)
	src.flags = button.State | button.Changed | button.DoubleClick
	d.Poll(now)
	src.flags = button.State | button.LongEvent
	d.Poll(now)
	src.flags = button.LongEvent
	d.Poll(now)

	counts := d.EventCountsSnapshot()["a"]
	want := EventCounts{Press: 2, Release: 1, LongPress: 1, LongRelease: 1, DoubleClick: 1}
	if counts != want {
		t.Errorf("expected %+v, got %+v", want, counts)
	}
	if counts.Total() != 6 {
		t.Errorf("expected total 6, got %d", counts.Total())
	}
}

func TestEventCountsSnapshotIsCopy(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(now)
	src := &fakeSource{flags: button.State | button.Changed}
	d.Add("a", src)
	d.Poll(now)

	snap := d.EventCountsSnapshot()
	snap["a"] = EventCounts{Press: 99}

	if d.EventCountsSnapshot()["a"].Press != 1 {
		t.Error("modifying snapshot changed detector counts")
	}
}

func TestHeartbeat(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(start)
	d.Add("a", &fakeSource{})

	if hb := d.CheckHeartbeat(start.Add(10*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected no heartbeat before interval")
	}

	hb := d.CheckHeartbeat(start.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
	if _, ok := hb.Counts["a"]; !ok {
		t.Error("expected counts for button a")
	}

	if hb := d.CheckHeartbeat(start.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected no heartbeat before next interval")
	}
	if hb := d.CheckHeartbeat(start.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected second heartbeat")
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(start)

	if hb := d.CheckHeartbeat(start.Add(24*time.Hour), 0); hb != nil {
		t.Error("expected nil when interval is 0")
	}
	if hb := d.CheckHeartbeat(start.Add(24*time.Hour), -time.Second); hb != nil {
		t.Error("expected nil when interval is negative")
	}
}

// stepClock is advanced by the test in lockstep with Update.
type stepClock struct{ now tick.Tick }

func (c *stepClock) Now() tick.Tick { return c.now }

// TestDoubleClickThroughEngine runs scripted pin levels through the real
// debounce engine: press, release, press within the window.
func TestDoubleClickThroughEngine(t *testing.T) {
	pins := gpio.NewFakePins()
	clock := &stepClock{}
	timing := button.Timing{Press: 10, Release: 50, LongPress: 1000, DoubleClick: 250}

	btn, err := button.New(pins, clock, 17, button.ActiveLow, timing)
	if err != nil {
		t.Fatalf("button.New: %v", err)
	}

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(start)
	d.Add("doorbell", btn)

	var got []EventType
	run := func(high bool, n int) {
		pins.Set(17, high)
		for i := 0; i < n; i++ {
			clock.now++
			btn.Update()
			for _, e := range d.Poll(start.Add(time.Duration(clock.now) * time.Millisecond)) {
				got = append(got, e.Type)
			}
		}
	}

	run(false, 19)  // pressed
	run(true, 130)  // released
	run(false, 20)  // pressed again
	run(true, 1200) // released long

	want := []EventType{EventPress, EventRelease, EventPress, EventDoubleClick, EventRelease, EventLongRelease}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
