// Command scanner lists nearby bulbs that a registered driver can handle.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mlsorensen/golede"
	"github.com/mlsorensen/golede/internal/config"
	"github.com/mlsorensen/golede/internal/logging"
	_ "github.com/mlsorensen/golede/pkg/bulbs/all"
)

func main() {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	flags.String("config", "", "path to config file (default ./lede.yaml)")
	flags.Duration("scan-timeout", 0, "how long to scan (default from config)")
	flags.StringSlice("prefix", nil, "device name prefixes to look for (default: every registered driver)")
	flags.String("log-level", "info", "debug, info, warn or error")
	_ = flags.Parse(os.Args[1:])

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	log.Info("starting BLE scan", zap.Duration("duration", cfg.Scan.Timeout), zap.Strings("drivers", golede.Drivers()))
	log.Info("turn on your bulb now")

	devices, err := golede.Scan(cfg.Scan.Timeout, cfg.Scan.Prefixes...)
	if err != nil {
		log.Fatal("scan failed", zap.Error(err))
	}

	if len(devices) == 0 {
		log.Info("scan complete, no supported devices found")
		log.Info("make sure the bulb is powered and not connected to another controller")
		return
	}

	fmt.Println("--- Found Supported Devices ---")
	for i, device := range devices {
		fmt.Printf("%d: Name: %s\n", i+1, device.Name)
		fmt.Printf("   ID:   %s\n", device.ID)
		fmt.Printf("   RSSI: %d\n\n", device.RSSI)
	}
	fmt.Println("-----------------------------")
}
