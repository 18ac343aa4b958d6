package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/mlsorensen/golede"
	"github.com/mlsorensen/golede/pkg/bulbs/lede/comms"
	"github.com/mlsorensen/golede/pkg/transport/ble"
	// This tells the Go compiler to include the package, which runs its init()
	// function. The init() function, in turn, calls golede.Register(). You can
	// specify specific bulbs individually or just "all"
	_ "github.com/mlsorensen/golede/pkg/bulbs/all"
)

func main() {
	log, _ := zap.NewDevelopment()
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	a := app.New()
	w := a.NewWindow("Bulb Remote")

	dev, err := golede.ScanForOne(10*time.Second, "LEDE")
	if err != nil {
		log.Fatal("scan failed", zap.Error(err))
	}
	bulb, err := golede.NewBulbForDevice(dev, ble.New(log))
	if err != nil {
		log.Fatal("could not create bulb instance", zap.Error(err))
	}
	if err := bulb.Connect(); err != nil {
		log.Fatal("could not connect to bulb", zap.Error(err))
	}
	defer func() {
		if err := bulb.Disconnect(); err != nil {
			log.Warn("error disconnecting from bulb", zap.Error(err))
		}
	}()

	status := widget.NewLabel("")
	report := func(what string, err error) {
		if err != nil {
			log.Error(what, zap.Error(err))
			status.SetText(fmt.Sprintf("%s: %v", what, err))
			return
		}
		status.SetText(what)
	}

	infoLabel := widget.NewLabel("")
	if info, err := bulb.Info(); err != nil {
		report("read device info", err)
	} else {
		infoLabel.SetText(fmt.Sprintf("%s %s (fw %s)", info.Manufacturer(), info.Model(), info.FirmwareRevision()))
	}

	button := func(label string, cmd func() error) *widget.Button {
		return widget.NewButton(label, func() { report(label, cmd()) })
	}
	level := func(label string, set func(int) (golede.Result, error)) *widget.Slider {
		s := widget.NewSlider(comms.MinLevel, comms.MaxLevel)
		s.OnChangeEnded = func(v float64) {
			_, err := set(int(v))
			report(fmt.Sprintf("%s %d", label, int(v)), err)
		}
		return s
	}

	presets := make([]string, 0, comms.MaxPreset)
	for i := comms.MinPreset; i <= comms.MaxPreset; i++ {
		presets = append(presets, strconv.Itoa(i))
	}
	presetSelect := widget.NewSelect(presets, func(s string) {
		n, _ := strconv.Atoi(s)
		_, err := bulb.Preset(n)
		report("Preset "+s, err)
	})

	var red, green, blue *widget.Slider
	applyColour := func(float64) {
		r, g, b := int(red.Value), int(green.Value), int(blue.Value)
		report(fmt.Sprintf("Colour (%d, %d, %d)", r, g, b), bulb.SetRGB(r, g, b))
	}
	red, green, blue = widget.NewSlider(0, 255), widget.NewSlider(0, 255), widget.NewSlider(0, 255)
	for _, s := range []*widget.Slider{red, green, blue} {
		s.OnChangeEnded = applyColour
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Info("shutdown signal received", zap.Stringer("signal", sig))
		fyne.Do(a.Quit)
	}()

	w.SetContent(container.NewVBox(
		widget.NewLabel(bulb.DisplayName()),
		infoLabel,
		container.NewGridWithColumns(4,
			button("On", bulb.On),
			button("Off", bulb.Off),
			button("White", bulb.WhiteReset),
			button("Night", bulb.NightMode),
		),
		widget.NewLabel("Brightness"), level("Brightness", bulb.SetBrightness),
		widget.NewLabel("Cold / Warm"), level("Colour temperature", bulb.SetColourTemperature),
		widget.NewLabel("Preset"), presetSelect,
		widget.NewLabel("Red"), red,
		widget.NewLabel("Green"), green,
		widget.NewLabel("Blue"), blue,
		status,
	))
	w.ShowAndRun()
}
