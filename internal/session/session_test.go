package session

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/geolock/internal/actuator"
	"github.com/sweeney/geolock/internal/display"
	"github.com/sweeney/geolock/internal/gps"
	"github.com/sweeney/geolock/internal/store"
	"github.com/sweeney/geolock/internal/telemetry"
)

// metersPerDegreeLat converts a north offset into degrees for
// scripting fixes at known distances from the target.
const metersPerDegreeLat = 111195.0

// testConfig is the shipped policy with shortened durations.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FixTimeout = 1200 * time.Millisecond
	cfg.FixNearTimeout = 1150 * time.Millisecond
	cfg.UnlockHold = 300 * time.Millisecond
	cfg.MaintenanceAbortDwell = 100 * time.Millisecond
	cfg.FillerCharPeriod = 10 * time.Millisecond
	cfg.FillerDuration = 80 * time.Millisecond
	cfg.MaintenanceFinalDelay = 200 * time.Millisecond
	cfg.MaintenanceUnlockHold = 200 * time.Millisecond
	return cfg
}

// seqStore appends "persist" to a shared op log on every successful
// write so tests can assert persistence ordering against the
// actuator's op log.
type seqStore struct {
	*store.FakeStore
	ops *[]string
}

func (s seqStore) Write(count uint8) error {
	err := s.FakeStore.Write(count)
	if err == nil {
		*s.ops = append(*s.ops, "persist")
	}
	return err
}

func (s seqStore) Increment() (uint8, error) {
	n, err := s.FakeStore.Increment()
	if err == nil {
		*s.ops = append(*s.ops, "persist")
	}
	return n, err
}

type harness struct {
	store  *store.FakeStore
	driver *actuator.FakeDriver
	disp   *display.FakeDisplay
	tel    *telemetry.FakePublisher

	fix           gps.Fix
	progress      []gps.Progress
	acquireCalled bool

	// powerScript feeds successive ExternalPowerPresent calls;
	// exhausted reads return false (battery died / supply removed).
	powerScript []bool
	powerIdx    int

	waits []time.Duration
}

func newHarness(count uint8) *harness {
	return &harness{
		store:  store.NewFakeStore(count),
		driver: actuator.NewFakeDriver(),
		disp:   display.NewFakeDisplay(),
		tel:    telemetry.NewFakePublisher(),
	}
}

func (h *harness) run(t *testing.T, cfg Config) Outcome {
	t.Helper()

	deps := Deps{
		Store:    seqStore{h.store, &h.driver.Ops},
		Actuator: h.driver,
		Display:  h.disp,
		AcquireFix: func(timeout, nearTimeout time.Duration, minSats int, onProgress func(gps.Progress)) gps.Fix {
			h.acquireCalled = true
			for _, p := range h.progress {
				onProgress(p)
			}
			return h.fix
		},
		ExternalPowerPresent: func() bool {
			if h.powerIdx >= len(h.powerScript) {
				return false
			}
			v := h.powerScript[h.powerIdx]
			h.powerIdx++
			return v
		},
		Wait: func(d time.Duration) { h.waits = append(h.waits, d) },
		Now: func() time.Time {
			return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		},
		Rand:      rand.New(rand.NewSource(1)),
		Telemetry: h.tel,
	}

	return New(cfg, deps).Run()
}

// fixAt returns a valid fix the given number of meters due north of
// the target.
func fixAt(cfg Config, meters float64) gps.Fix {
	return gps.Fix{
		Valid:      true,
		Satellites: 6,
		Lat:        cfg.Target.Lat + meters/metersPerDegreeLat,
		Lon:        cfg.Target.Lon,
	}
}

func (h *harness) opIndex(op string) int {
	for i, o := range h.driver.Ops {
		if o == op {
			return i
		}
	}
	return -1
}

func TestExhaustedShortCircuits(t *testing.T) {
	cfg := testConfig()
	h := newHarness(26) // past the budget of 25

	outcome := h.run(t, cfg)

	if outcome != OutcomeAttemptsExhausted {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.acquireCalled {
		t.Error("exhausted session must not start fix acquisition")
	}
	if h.store.Count != 26 || h.store.Writes != 0 {
		t.Errorf("counter must not change: count=%d writes=%d", h.store.Count, h.store.Writes)
	}
	if h.driver.UnlockPulses != 0 {
		t.Error("actuator must not be energized")
	}
	if !h.driver.PowerOffAsserted {
		t.Error("session must end in power-off")
	}
	if !h.disp.Contains(msgExhaustedTop) {
		t.Error("exhausted message not presented")
	}
}

func TestBudgetBoundaryStillAttempts(t *testing.T) {
	// Count exactly at the maximum still gets a session; refusal
	// starts strictly above it.
	cfg := testConfig()
	h := newHarness(25)
	h.fix = fixAt(cfg, 5000)

	outcome := h.run(t, cfg)

	if outcome != OutcomeAttemptRecorded {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.store.Count != 26 {
		t.Errorf("count: got %d, want 26", h.store.Count)
	}
	if !h.disp.Contains("Tries left: 0") {
		t.Error("final attempt should show zero tries left")
	}
}

func TestWithinRangeUnlocks(t *testing.T) {
	cfg := testConfig()
	h := newHarness(20)
	h.fix = fixAt(cfg, 50)

	outcome := h.run(t, cfg)

	if outcome != OutcomeUnlocked {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.driver.UnlockPulses != 1 {
		t.Errorf("unlock pulses: got %d, want exactly 1", h.driver.UnlockPulses)
	}
	if h.store.Count != 20 || h.store.Writes != 0 {
		t.Errorf("success must not touch the counter: count=%d writes=%d", h.store.Count, h.store.Writes)
	}
	if !h.disp.Contains(msgUnlockedTop) {
		t.Error("success message not presented")
	}

	// Mechanism is released before power-off, after the full hold.
	on, off, poff := h.opIndex("unlock-on"), h.opIndex("unlock-off"), h.opIndex("power-off")
	if !(on < off && off < poff) {
		t.Errorf("op order: %v", h.driver.Ops)
	}
	foundHold := false
	for _, w := range h.waits {
		if w == cfg.UnlockHold {
			foundHold = true
		}
	}
	if !foundHold {
		t.Errorf("unlock hold %v not waited: %v", cfg.UnlockHold, h.waits)
	}
}

func TestOutOfRangeRecordsAttempt(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.fix = fixAt(cfg, 500)

	outcome := h.run(t, cfg)

	if outcome != OutcomeAttemptRecorded {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.store.Count != 11 {
		t.Errorf("count: got %d, want 11", h.store.Count)
	}
	if h.driver.UnlockPulses != 0 {
		t.Error("out-of-range must not energize the actuator")
	}
	if h.disp.Contains("brg") {
		t.Error("bearing must not be shown at 11 attempts")
	}
	if !h.disp.Contains("Tries left: 15") {
		t.Errorf("remaining tries not presented, writes: %v", h.disp.Writes)
	}

	// Durable persist strictly before power-off.
	persist, poff := h.opIndex("persist"), h.opIndex("power-off")
	if persist == -1 || poff == -1 || persist > poff {
		t.Errorf("persist must precede power-off: %v", h.driver.Ops)
	}
}

func TestFixTimeoutNoPenalty(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.fix = gps.Fix{Valid: false, Satellites: 2}

	outcome := h.run(t, cfg)

	if outcome != OutcomeFixTimedOut {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.store.Count != 10 || h.store.Writes != 0 {
		t.Errorf("a failed search must not consume an attempt: count=%d writes=%d", h.store.Count, h.store.Writes)
	}
	if h.driver.UnlockPulses != 0 {
		t.Error("actuator must not be energized")
	}
	if !h.driver.PowerOffAsserted {
		t.Error("session must end in power-off")
	}
	if !h.disp.Contains(msgNoFixBottom) {
		t.Error("no-fix guidance not presented")
	}
}

func TestBearingShownOnlyPastHintThreshold(t *testing.T) {
	tests := []struct {
		start       uint8
		wantBearing bool
	}{
		{13, false}, // becomes 14, not yet past threshold
		{14, true},  // becomes 15
		{20, true},  // becomes 21
		{5, false},  // becomes 6
	}

	for _, tt := range tests {
		cfg := testConfig()
		h := newHarness(tt.start)
		h.fix = fixAt(cfg, 500)

		h.run(t, cfg)

		if got := h.disp.Contains("brg"); got != tt.wantBearing {
			t.Errorf("start=%d: bearing shown=%v, want %v", tt.start, got, tt.wantBearing)
		}
	}
}

func TestNearTimeoutSwitchesFeedbackOnly(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.progress = []gps.Progress{
		{Satellites: 1, NearTimeout: false},
		{Satellites: 3, NearTimeout: true},
	}
	h.fix = gps.Fix{Valid: false, Satellites: 3}

	outcome := h.run(t, cfg)

	if !h.disp.Contains(msgSearchingTop) {
		t.Error("searching feedback not presented")
	}
	if !h.disp.Contains(msgWeakTop) {
		t.Error("near-timeout feedback not presented")
	}
	// Display-only: the flag changes nothing about the outcome.
	if outcome != OutcomeFixTimedOut || h.store.Writes != 0 {
		t.Errorf("near-timeout affected control flow: %s", outcome)
	}
}

func TestMaintenanceSequence(t *testing.T) {
	cfg := testConfig()
	h := newHarness(20)
	h.fix = fixAt(cfg, 500) // far away; maintenance ignores position
	h.powerScript = []bool{true, true}

	outcome := h.run(t, cfg)

	if outcome != OutcomeMaintenanceReset {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.store.Count != 0 {
		t.Errorf("counter: got %d, want 0", h.store.Count)
	}
	if h.driver.UnlockPulses != 1 {
		t.Errorf("unlock pulses: got %d, want 1", h.driver.UnlockPulses)
	}
	if h.disp.Backlight {
		t.Error("backlight should be off at the end of the sequence")
	}
	if !h.disp.Contains(msgMaintWarnTop) {
		t.Error("maintenance warning not presented")
	}

	// One filler character per period across the configured window.
	wantChars := int(cfg.FillerDuration / cfg.FillerCharPeriod)
	if h.disp.CharWrites != wantChars {
		t.Errorf("filler chars: got %d, want %d", h.disp.CharWrites, wantChars)
	}

	// The unlock happens only after power-off was asserted.
	poff, on := h.opIndex("power-off"), h.opIndex("unlock-on")
	if !(poff < on) {
		t.Errorf("maintenance unlock must follow power-off: %v", h.driver.Ops)
	}

	for _, want := range []time.Duration{cfg.MaintenanceAbortDwell, cfg.MaintenanceFinalDelay, cfg.MaintenanceUnlockHold} {
		found := false
		for _, w := range h.waits {
			if w == want {
				found = true
			}
		}
		if !found {
			t.Errorf("wait %v missing: %v", want, h.waits)
		}
	}
}

func TestMaintenanceAbortWindow(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.fix = fixAt(cfg, 500)
	h.powerScript = []bool{true, false} // supply pulled during dwell

	outcome := h.run(t, cfg)

	if outcome != OutcomeAttemptRecorded {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.store.Count != 11 {
		t.Errorf("aborted maintenance must not reset counter: %d", h.store.Count)
	}
	if h.driver.UnlockPulses != 0 {
		t.Error("aborted maintenance must not unlock")
	}
	if !h.disp.Backlight {
		t.Error("aborted maintenance must not kill the backlight")
	}
}

func TestMaintenanceAfterUnlockRequiresExternalPower(t *testing.T) {
	cfg := testConfig()
	h := newHarness(3)
	h.fix = fixAt(cfg, 10)

	outcome := h.run(t, cfg) // power script empty: battery dies

	if outcome != OutcomeUnlocked {
		t.Errorf("outcome: got %s", outcome)
	}
	if h.store.Writes != 0 {
		t.Error("no maintenance reset without persisting power")
	}
	if h.disp.Contains(msgMaintWarnTop) {
		t.Error("maintenance warning must not appear without external power")
	}
}

func TestPersistFailureStillPowersOff(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.fix = fixAt(cfg, 500)
	h.store.WriteError = errors.New("flash write failed")

	outcome := h.run(t, cfg)

	if outcome != OutcomeAttemptRecorded {
		t.Errorf("outcome: got %s", outcome)
	}
	if !h.driver.PowerOffAsserted {
		t.Error("persistence failure must not skip power-off")
	}
	if h.store.Failed != cfg.WriteRetries {
		t.Errorf("retries: got %d, want %d", h.store.Failed, cfg.WriteRetries)
	}
	// The presented count still advances even though it was lost.
	if !h.disp.Contains("Tries left: 15") {
		t.Errorf("remaining tries not presented, writes: %v", h.disp.Writes)
	}
}

func TestPersistTransientFailureRecovers(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.fix = fixAt(cfg, 500)
	h.store.WriteError = errors.New("flash busy")
	h.store.FailWrites = 1 // first try fails, retry succeeds

	h.run(t, cfg)

	if h.store.Count != 11 {
		t.Errorf("count after retry: got %d, want 11", h.store.Count)
	}
}

func TestTelemetryPublished(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.fix = fixAt(cfg, 500)

	h.run(t, cfg)

	if len(h.tel.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(h.tel.Events))
	}
	ev := h.tel.Events[0]
	if ev.Outcome != string(OutcomeAttemptRecorded) {
		t.Errorf("outcome: %q", ev.Outcome)
	}
	if ev.Attempts != 11 {
		t.Errorf("attempts: %d", ev.Attempts)
	}
	if !ev.FixValid || ev.Satellites != 6 {
		t.Errorf("fix fields: %+v", ev)
	}
	if ev.DistanceMeters < 499 || ev.DistanceMeters > 501 {
		t.Errorf("distance: %v", ev.DistanceMeters)
	}
}

func TestTelemetryMaintenanceReset(t *testing.T) {
	cfg := testConfig()
	h := newHarness(20)
	h.fix = fixAt(cfg, 500)
	h.powerScript = []bool{true, true}

	h.run(t, cfg)

	// Attempt event first, reset event after the sequence.
	if len(h.tel.Events) != 2 {
		t.Fatalf("events: got %d, want 2", len(h.tel.Events))
	}
	last := h.tel.Events[1]
	if last.Outcome != string(OutcomeMaintenanceReset) {
		t.Errorf("outcome: %q", last.Outcome)
	}
	if last.Attempts != 0 {
		t.Errorf("attempts after reset: %d", last.Attempts)
	}
}

func TestNilTelemetryTolerated(t *testing.T) {
	cfg := testConfig()
	h := newHarness(10)
	h.fix = fixAt(cfg, 500)

	deps := Deps{
		Store:    h.store,
		Actuator: h.driver,
		Display:  h.disp,
		AcquireFix: func(_, _ time.Duration, _ int, _ func(gps.Progress)) gps.Fix {
			return h.fix
		},
		Wait: func(time.Duration) {},
	}

	// Sealed units run with no telemetry, no power predicate, no
	// injected clock.
	outcome := New(cfg, deps).Run()
	if outcome != OutcomeAttemptRecorded {
		t.Errorf("outcome: got %s", outcome)
	}
}

func TestMessagesFitDisplay(t *testing.T) {
	cfg := testConfig()
	h := newHarness(20)
	h.fix = fixAt(cfg, 555555) // long distance formats as km
	h.run(t, cfg)

	for _, w := range h.disp.Writes {
		if n := len([]rune(w.Text)); n > display.Columns {
			t.Errorf("row %d text %q is %d runes, max %d", w.Row, w.Text, n, display.Columns)
		}
	}
	if !h.disp.Contains("km") {
		t.Error("long distances should be shown in km")
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{47.3, "47m"},
		{482.5, "482m"},
		{999.4, "999m"},
		{1000, "1.0km"},
		{12345, "12.3km"},
		{555555, "556km"},
	}
	for _, tt := range tests {
		if got := formatDistance(tt.meters); got != tt.want {
			t.Errorf("formatDistance(%v) = %q, want %q", tt.meters, got, tt.want)
		}
	}
}

func TestFillerUsesDisplayCharset(t *testing.T) {
	for _, ch := range fillerChars {
		if ch < 0x20 || ch >= 0x7F {
			t.Errorf("filler char %q outside printable ASCII", ch)
		}
		if strings.ContainsRune(" ", ch) {
			t.Errorf("filler char must not be blank")
		}
	}
}
