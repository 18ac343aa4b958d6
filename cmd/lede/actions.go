package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mlsorensen/golede"
	"github.com/mlsorensen/golede/internal/config"
	"github.com/mlsorensen/golede/pkg/bulbs/lede/comms"
)

// runner carries what every action needs.
type runner struct {
	bulb  golede.Bulb
	out   io.Writer
	demo  config.DemoConfig
	sleep func(time.Duration)
	rng   comms.RandomSource
	log   *zap.Logger
}

type action func(r *runner) error

// parseAction turns the --action value into an action.
// Accepted: demo, info, on, off, white, night, brightness:N, cct:N, preset:N, rgb:R,G,B.
func parseAction(s string) (action, error) {
	name, arg, hasArg := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")

	simple := map[string]action{
		"demo":  runDemo,
		"info":  printInfo,
		"on":    func(r *runner) error { return r.bulb.On() },
		"off":   func(r *runner) error { return r.bulb.Off() },
		"white": func(r *runner) error { return r.bulb.WhiteReset() },
		"night": func(r *runner) error { return r.bulb.NightMode() },
	}
	if a, ok := simple[name]; ok {
		if hasArg {
			return nil, fmt.Errorf("action %q takes no argument", name)
		}
		return a, nil
	}

	leveled := map[string]func(golede.Bulb, int) (golede.Result, error){
		"brightness": golede.Bulb.SetBrightness,
		"cct":        golede.Bulb.SetColourTemperature,
		"preset":     golede.Bulb.Preset,
	}
	if set, ok := leveled[name]; ok {
		if !hasArg {
			return nil, fmt.Errorf("action %q needs a value, e.g. %s:5", name, name)
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", name, err)
		}
		return func(r *runner) error {
			res, err := set(r.bulb, n)
			if err != nil {
				return err
			}
			if res == golede.Ignored {
				fmt.Fprintf(r.out, "%s %d is out of range, nothing sent\n", name, n)
			}
			return nil
		}, nil
	}

	if name == "rgb" {
		parts := strings.Split(arg, ",")
		if !hasArg || len(parts) != 3 {
			return nil, fmt.Errorf("action rgb needs three values, e.g. rgb:255,0,128")
		}
		var c [3]int
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("action rgb: %w", err)
			}
			c[i] = v
		}
		return func(r *runner) error { return r.bulb.SetRGB(c[0], c[1], c[2]) }, nil
	}

	return nil, fmt.Errorf("unknown action %q", s)
}

func printInfo(r *runner) error {
	info, err := r.bulb.Info()
	if err != nil {
		return err
	}
	for _, k := range info.Keys() {
		fmt.Fprintf(r.out, "%s = %s\n", k, info[k])
	}
	return nil
}

// runDemo walks through every feature of the bulb.
func runDemo(r *runner) error {
	if err := printInfo(r); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "------------")

	step := func(title string, cmds ...func() error) error {
		fmt.Fprintln(r.out, title)
		r.log.Debug("demo step", zap.String("step", title))
		for _, cmd := range cmds {
			if err := cmd(); err != nil {
				return fmt.Errorf("%s: %w", title, err)
			}
		}
		return nil
	}
	level := func(set func(int) (golede.Result, error), v int) func() error {
		return func() error {
			_, err := set(v)
			return err
		}
	}
	b := r.bulb

	if err := step("On", b.On); err != nil {
		return err
	}
	r.sleep(r.demo.StepPause)

	if err := step("White mode, minimum brightness, Cold",
		b.WhiteReset, level(b.SetBrightness, 0), level(b.SetColourTemperature, 0)); err != nil {
		return err
	}
	r.sleep(r.demo.StepPause)

	if err := step("Maximum brightness", level(b.SetBrightness, 9)); err != nil {
		return err
	}
	r.sleep(r.demo.StepPause)

	if err := step("Warm", level(b.SetColourTemperature, 9)); err != nil {
		return err
	}
	r.sleep(r.demo.StepPause)

	for i := comms.MinPreset; i <= comms.MaxPreset; i++ {
		if err := step(fmt.Sprintf("Preset %d", i), level(b.Preset, i)); err != nil {
			return err
		}
		r.sleep(r.demo.PresetPause)
	}

	for i := 0; i < r.demo.RandomColours; i++ {
		red, green, blue := comms.RandomColour(r.rng)
		title := fmt.Sprintf("Random colour : (%d, %d, %d)", red, green, blue)
		if err := step(title, func() error { return b.SetRGB(red, green, blue) }); err != nil {
			return err
		}
	}

	return step("Off", b.Off)
}
