package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Majsvaffla/spiracle/internal/config"
	"github.com/Majsvaffla/spiracle/internal/hardware"
	"github.com/Majsvaffla/spiracle/internal/journal"
	"github.com/Majsvaffla/spiracle/internal/logger"
	"github.com/Majsvaffla/spiracle/internal/service"
)

const usage = `usage: spiracle [-config FILE] COMMAND [ARGS]

commands:
  debug CHANNEL                    continuously print one ADC channel's voltage
  pump TIMEOUT [-water-level-sensor] [-moisture-sensor]
                                   run the pump for TIMEOUT seconds, optionally
                                   stopping early on sensor conditions
  run TIMEOUT                      water only if the soil is dry, for at most
                                   TIMEOUT seconds
  history [-type TYPE] [-from RFC3339] [-to RFC3339]
                                   print recorded watering events
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("spiracle", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := global.String("config", "", "path to config file")
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) < 1 {
		global.Usage()
		return 2
	}

	log := logger.Get(logger.InfoLevel)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorw("error reading config", "err", err)
		return 1
	}
	log.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "debug":
		return cmdDebug(ctx, cfg, log, cmdArgs)
	case "pump":
		return cmdPump(ctx, cfg, log, cmdArgs)
	case "run":
		return cmdRun(ctx, cfg, log, cmdArgs)
	case "history":
		return cmdHistory(ctx, cfg, log, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		global.Usage()
		return 2
	}
}

// cmdDebug samples one channel until interrupted. Display-only.
func cmdDebug(ctx context.Context, cfg config.Config, log *logger.Logger, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: spiracle debug CHANNEL")
		return 2
	}
	channel, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid channel %q\n", args[0])
		return 2
	}

	rig, err := openRig(cfg, log)
	if err != nil {
		log.Errorw("hardware init failed", "err", err)
		return 1
	}
	defer closeRig(rig, log)

	// Display-only; nothing worth journaling.
	svc := buildService(cfg, log, rig, journal.Nop{})
	if err := svc.Watch(ctx, channel); err != nil {
		log.Errorw("debug read failed", "err", err)
		return 1
	}
	return 0
}

// cmdHistory prints recorded watering events. It only touches the
// journal file, so the hardware rig stays closed.
func cmdHistory(ctx context.Context, cfg config.Config, log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: spiracle history [-type TYPE] [-from RFC3339] [-to RFC3339]")
	}
	typ := fs.String("type", "", "filter by event type")
	fromStr := fs.String("from", "", "inclusive lower bound (RFC3339)")
	toStr := fs.String("to", "", "inclusive upper bound (RFC3339)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return 2
	}

	var filter service.LogFilter
	filter.Type = *typ
	var err error
	if filter.From, err = parseTimeFlag(*fromStr); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from %q\n", *fromStr)
		return 2
	}
	if filter.To, err = parseTimeFlag(*toStr); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to %q\n", *toStr)
		return 2
	}

	if cfg.Journal.Path == "" {
		log.Errorw("no journal configured", "hint", "set journal.path to record watering sessions")
		return 1
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		log.Errorw("journal init failed", "err", err)
		return 1
	}
	defer func() {
		if cerr := j.Close(); cerr != nil {
			log.Warnw("journal close failed", "err", cerr)
		}
	}()

	events, err := service.NewEventLogService(j).History(ctx, filter)
	if err != nil {
		log.Errorw("history query failed", "err", err)
		return 1
	}
	for _, e := range events {
		fmt.Printf("%s  %-13s  %s\n", e.OccurredAt.Format(time.RFC3339), e.Type, e.Description)
	}
	return 0
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// cmdPump runs the unconditional watering flow. Both sensor checks
// default to off, i.e. a pure timed run.
func cmdPump(ctx context.Context, cfg config.Config, log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("pump", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: spiracle pump TIMEOUT [-water-level-sensor] [-moisture-sensor]")
	}
	waterLevelSensor := fs.Bool("water-level-sensor", false, "stop when the reservoir is critically low")
	moistureSensor := fs.Bool("moisture-sensor", false, "stop when the soil reads wet")

	timeout, rest, ok := parseTimeout(fs, args)
	if !ok {
		return 2
	}
	if len(rest) != 0 {
		fs.Usage()
		return 2
	}

	return withServices(cfg, log, func(svc *service.Service) (err error) {
		_, err = svc.Water(ctx, timeout, *waterLevelSensor, *moistureSensor)
		return err
	})
}

// cmdRun runs the conditional watering flow: check sensors first, water
// only if the soil is dry.
func cmdRun(ctx context.Context, cfg config.Config, log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(os.Stderr, "usage: spiracle run TIMEOUT") }

	timeout, rest, ok := parseTimeout(fs, args)
	if !ok {
		return 2
	}
	if len(rest) != 0 {
		fs.Usage()
		return 2
	}

	return withServices(cfg, log, func(svc *service.Service) (err error) {
		_, err = svc.WaterIfDry(ctx, timeout)
		return err
	})
}

// parseTimeout reads the positional TIMEOUT argument (seconds, float)
// followed by the flag set's options. Non-positive timeouts are valid;
// they yield an immediate timed-out session.
func parseTimeout(fs *flag.FlagSet, args []string) (time.Duration, []string, bool) {
	if len(args) < 1 {
		fs.Usage()
		return 0, nil, false
	}
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timeout %q\n", args[0])
		return 0, nil, false
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 0, nil, false
	}
	return time.Duration(seconds * float64(time.Second)), fs.Args(), true
}

// withServices opens the journal and the hardware rig, runs fn, and
// releases everything on every path. The relay pin is reset before the
// process exits no matter how fn ends.
func withServices(cfg config.Config, log *logger.Logger, fn func(*service.Service) error) int {
	jrnl, closeJournal, err := openJournal(cfg, log)
	if err != nil {
		log.Errorw("journal init failed", "err", err)
		return 1
	}
	defer closeJournal()

	rig, err := openRig(cfg, log)
	if err != nil {
		log.Errorw("hardware init failed", "err", err)
		return 1
	}
	defer closeRig(rig, log)

	if err := fn(buildService(cfg, log, rig, jrnl)); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Infow("interrupted")
			return 0
		}
		log.Errorw("watering failed", "err", err)
		return 1
	}
	return 0
}

// buildService assembles the service aggregate from an opened rig.
// Every command goes through here so the wiring stays in one place.
func buildService(cfg config.Config, log *logger.Logger, rig *hardware.Rig, jrnl journal.Journal) *service.Service {
	return service.New(service.Deps{
		Sensor: rig.Sensor,
		Pump:   rig.Pump,
		Thresholds: service.Thresholds{
			SoilDry:       cfg.Thresholds.SoilDry,
			WaterLow:      cfg.Thresholds.WaterLow,
			WaterCritical: cfg.Thresholds.WaterCritical,
		},
		Channels: service.Channels{
			Soil:  cfg.ADC.SoilChannel,
			Water: cfg.ADC.WaterChannel,
		},
		Journal:         jrnl,
		Log:             log,
		Out:             os.Stdout,
		RefreshInterval: cfg.Debug.RefreshInterval,
	})
}

func openJournal(cfg config.Config, log *logger.Logger) (journal.Journal, func(), error) {
	if cfg.Journal.Path == "" {
		return journal.Nop{}, func() {}, nil
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("journaling watering sessions", "path", cfg.Journal.Path)
	return j, func() {
		if err := j.Close(); err != nil {
			log.Warnw("journal close failed", "err", err)
		}
	}, nil
}

func openRig(cfg config.Config, log *logger.Logger) (*hardware.Rig, error) {
	log.Debugw("opening hardware rig",
		"relay_pin", cfg.Relay.Pin,
		"spi_bus", cfg.ADC.SPIBus,
		"spi_chip", cfg.ADC.SPIChip,
	)
	return hardware.Open(hardware.RigConfig{
		ReferenceVoltage: cfg.ADC.ReferenceVoltage,
		SPIBus:           cfg.ADC.SPIBus,
		SPIChip:          cfg.ADC.SPIChip,
		RelayPin:         cfg.Relay.Pin,
	})
}

// closeRig releases the pins even when a command failed; a relay left
// energized after exit would keep the pump running unattended.
func closeRig(rig *hardware.Rig, log *logger.Logger) {
	if err := rig.Close(); err != nil {
		log.Errorw("hardware teardown failed", "err", err)
	}
}
