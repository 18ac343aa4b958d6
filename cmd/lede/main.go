// Command lede drives a LEDE RGB bulb: it runs a demo of every feature, or a single action.
//
//	lede [flags] <mac-address>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mlsorensen/golede"
	"github.com/mlsorensen/golede/internal/config"
	"github.com/mlsorensen/golede/internal/logging"
	"github.com/mlsorensen/golede/internal/metrics"
	"github.com/mlsorensen/golede/pkg/bulbs/lede"
	"github.com/mlsorensen/golede/pkg/bulbs/lede/comms"
	"github.com/mlsorensen/golede/pkg/bulbs/mock"
	"github.com/mlsorensen/golede/pkg/transport/ble"
)

func main() {
	os.Exit(realMain(os.Args, os.Stdout, os.Stderr))
}

func newFlagSet(prog string, stderr io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet(prog, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.String("config", "", "path to config file (default ./lede.yaml)")
	flags.StringP("action", "a", "demo", "demo, info, on, off, white, night, brightness:N, cct:N, preset:N or rgb:R,G,B")
	flags.Bool("mock", false, "drive a simulated bulb instead of the Bluetooth adapter")
	flags.Duration("settle-delay", lede.DefaultSettleDelay, "pause after every frame")
	flags.Duration("scan-timeout", ble.DefaultScanTimeout, "how long to look for the device before connecting")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", "console", "console or json")
	flags.String("log-file", "", "also log to this file, rotated")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  %s [flags] <mac-address>\n\nFlags:\n", prog)
		flags.PrintDefaults()
	}
	return flags
}

func realMain(args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet(args[0], stderr)
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}
	address := flags.Arg(0)

	actionName, _ := flags.GetString("action")
	act, err := parseAction(actionName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		fmt.Fprintf(stderr, "error loading config: %v\n", err)
		return 1
	}

	log, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "error initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	var transport golede.Transport
	if cfg.Device.Mock {
		transport = mock.NewTransportWithLogger(log)
	} else {
		bt := ble.New(log)
		bt.ScanTimeout = cfg.Scan.Timeout
		transport = bt
	}

	if err := run(cfg, address, act, transport, stdout, log, time.Sleep); err != nil {
		log.Error("lede failed", zap.Error(err))
		return 1
	}
	return 0
}

// run connects, performs act and disconnects, logging a traffic summary at the end.
func run(cfg *config.Config, address string, act action, transport golede.Transport, out io.Writer, log *zap.Logger, sleep func(time.Duration)) error {
	reg := prometheus.NewRegistry()
	session := lede.NewSession(transport, address,
		lede.WithLogger(log),
		lede.WithSettleDelay(cfg.Session.SettleDelay),
		lede.WithSleep(sleep),
		lede.WithRecorder(metrics.New(reg)),
	)

	if err := session.Connect(); err != nil {
		return err
	}

	err := act(&runner{
		bulb:  session,
		out:   out,
		demo:  cfg.Demo,
		sleep: sleep,
		rng:   comms.DefaultRandom,
		log:   log,
	})

	if derr := session.Disconnect(); derr != nil {
		log.Warn("disconnect failed", zap.Error(derr))
	}

	if lines, serr := metrics.Summary(reg); serr == nil {
		for _, l := range lines {
			log.Info("traffic", zap.String("counter", l))
		}
	}
	return err
}
