package gps

import (
	"time"
)

// Acquirer pumps receiver bytes through the parser until a usable fix
// appears or a deadline passes. It owns the only wait loop in the
// firmware: every timed delay elsewhere is routed through ServiceWait
// so the receiver buffer keeps being drained and no bytes are lost.
type Acquirer struct {
	recv   Receiver
	parser Parser

	// Poll is the pump cadence. It must stay sub-second or the
	// receiver's serial buffer can overflow between reads.
	Poll time.Duration

	// Now and Sleep are injectable for tests, as in the main loop.
	Now   func() time.Time
	Sleep func(time.Duration)

	// OnProgress, if set, is called once per poll during acquisition.
	OnProgress func(Progress)

	buf [256]byte
}

// DefaultPoll is the pump cadence used on hardware.
const DefaultPoll = 100 * time.Millisecond

// NewAcquirer creates an Acquirer over the given receiver with
// real-time defaults.
func NewAcquirer(recv Receiver) *Acquirer {
	return &Acquirer{
		recv:  recv,
		Poll:  DefaultPoll,
		Now:   time.Now,
		Sleep: time.Sleep,
	}
}

// AcquireFix drains the receiver until the parser reports a valid fix
// with at least minSats satellites, then returns it. Once timeout
// elapses it returns the current (invalid) fix state instead. The
// nearTimeout threshold only flips the Progress.NearTimeout flag for
// display purposes; it never shortens or extends the deadline.
func (a *Acquirer) AcquireFix(timeout, nearTimeout time.Duration, minSats int) Fix {
	start := a.Now()

	for {
		a.pump()

		fix := a.parser.Fix()
		if fix.Valid && fix.Satellites >= minSats {
			return fix
		}

		elapsed := a.Now().Sub(start)
		if elapsed >= timeout {
			fix.Valid = false
			return fix
		}

		if a.OnProgress != nil {
			a.OnProgress(Progress{
				Satellites:  fix.Satellites,
				NearTimeout: elapsed >= nearTimeout,
			})
		}

		a.Sleep(a.Poll)
	}
}

// ServiceWait sleeps for d while continuing to pump the receiver at
// the poll cadence. Display holds and actuator holds use this instead
// of a bare sleep.
func (a *Acquirer) ServiceWait(d time.Duration) {
	for d > 0 {
		a.pump()

		step := a.Poll
		if step > d {
			step = d
		}
		a.Sleep(step)
		d -= step
	}
	a.pump()
}

// pump moves whatever bytes the receiver has into the parser.
func (a *Acquirer) pump() {
	for {
		n, err := a.recv.Read(a.buf[:])
		if n > 0 {
			a.parser.Feed(a.buf[:n])
		}
		if err != nil || n < len(a.buf) {
			return
		}
	}
}
