// Command geolock runs the location-gated lock controller for one
// power-on session: check the attempt budget, acquire a position fix,
// unlock within range or record the attempt, then power off.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/geolock/internal/actuator"
	"github.com/sweeney/geolock/internal/display"
	"github.com/sweeney/geolock/internal/geo"
	"github.com/sweeney/geolock/internal/gps"
	"github.com/sweeney/geolock/internal/session"
	"github.com/sweeney/geolock/internal/store"
	"github.com/sweeney/geolock/internal/telemetry"
)

func main() {
	defaults := session.DefaultConfig()

	port := flag.String("port", "/dev/ttyAMA0", "Serial port of the positioning receiver")
	baud := flag.Int("baud", 9600, "Receiver baud rate")
	chip := flag.String("chip", "gpiochip0", "GPIO chip name")
	pinUnlock := flag.Int("pin-unlock", actuator.DefaultPinUnlock, "BCM pin number for the unlock driver")
	pinPowerOff := flag.Int("pin-poweroff", actuator.DefaultPinPowerOff, "BCM pin number for the power-off latch")
	statePath := flag.String("state", "/var/lib/geolock/attempts", "Attempt counter state file")
	broker := flag.String("broker", "", "MQTT broker for bench telemetry (empty to disable)")
	targetLat := flag.Float64("target-lat", defaults.Target.Lat, "Target latitude (bench override)")
	targetLon := flag.Float64("target-lon", defaults.Target.Lon, "Target longitude (bench override)")
	grace := flag.Duration("maintenance-grace", 2*time.Second, "Delay before treating persisting power as a maintenance supply")
	printCount := flag.Bool("print-count", false, "Print the attempt counter and exit")

	flag.Parse()

	if err := run(*port, *baud, *chip, *pinUnlock, *pinPowerOff, *statePath, *broker,
		geo.Coordinate{Lat: *targetLat, Lon: *targetLon}, *grace, *printCount); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(port string, baud int, chip string, pinUnlock, pinPowerOff int, statePath, broker string, target geo.Coordinate, grace time.Duration, printCount bool) error {
	st := store.NewFileStore(statePath)

	cfg := session.DefaultConfig()
	cfg.Target = target

	if printCount {
		count, err := st.Read()
		if err != nil {
			return fmt.Errorf("read attempt counter: %w", err)
		}
		fmt.Println(formatCount(count, cfg.MaxAttempts))
		return nil
	}

	driver, err := actuator.NewRealDriver(chip, pinUnlock, pinPowerOff)
	if err != nil {
		return fmt.Errorf("init actuator: %w", err)
	}
	defer driver.Close()

	disp, err := display.NewHD44780(chip, display.DefaultPins())
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	defer disp.Close()

	recv, err := gps.NewRealReceiver(port, baud)
	if err != nil {
		return fmt.Errorf("init receiver: %w", err)
	}
	defer recv.Close()

	acq := gps.NewAcquirer(recv)

	deps := session.Deps{
		Store:                st,
		Actuator:             driver,
		Display:              disp,
		AcquireFix:           acquireWith(acq),
		ExternalPowerPresent: externalPowerProbe(grace),
		Wait:                 acq.ServiceWait,
		Now:                  time.Now,
	}

	// Bench telemetry is opt-in; a sealed unit has no broker.
	if broker != "" {
		pub, err := telemetry.NewRealPublisher(broker)
		if err != nil {
			log.Printf("telemetry disabled: %v", err)
		} else {
			deps.Telemetry = pub
			defer pub.Close()
		}
	}

	log.Printf("started: port=%s state=%s broker=%q", port, statePath, broker)

	outcome := session.New(cfg, deps).Run()
	log.Printf("session complete: %s", outcome)
	return nil
}

// acquireWith bridges the session's acquisition hook onto the
// Acquirer, routing the progress callback through its field.
func acquireWith(acq *gps.Acquirer) func(timeout, nearTimeout time.Duration, minSats int, onProgress func(gps.Progress)) gps.Fix {
	return func(timeout, nearTimeout time.Duration, minSats int, onProgress func(gps.Progress)) gps.Fix {
		acq.OnProgress = onProgress
		defer func() { acq.OnProgress = nil }()
		return acq.AcquireFix(timeout, nearTimeout, minSats)
	}
}

// externalPowerProbe returns the maintenance-supply predicate. After
// the power-off latch is asserted, battery power collapses within the
// grace window and this function never returns; still executing after
// the full wait means an auxiliary supply is holding the board up.
func externalPowerProbe(grace time.Duration) func() bool {
	return func() bool {
		time.Sleep(grace)
		return true
	}
}

func formatCount(count, max uint8) string {
	return fmt.Sprintf("attempts used: %d of %d", count, max)
}
