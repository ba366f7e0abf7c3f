package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/helvik/tapowatt/internal/config"
	"codeberg.org/helvik/tapowatt/internal/logger"
	"codeberg.org/helvik/tapowatt/internal/monitor"
	"codeberg.org/helvik/tapowatt/internal/pid"
	"codeberg.org/helvik/tapowatt/internal/recorder"
	"codeberg.org/helvik/tapowatt/internal/sampler"
	"codeberg.org/helvik/tapowatt/internal/tapo"
	"github.com/cheggaaa/pb/v3"
	"github.com/choria-io/fisk"
	"github.com/dustin/go-humanize"
)

var (
	ip           net.IP
	username     string
	password     string
	debug        bool
	verbose      bool
	jsonFormat   bool
	samplesFlag  int
	intervalFlag int
	windowFlag   int
	recordFlag   bool
)

func main() {
	app := fisk.New("tapowatt", "Power consumption metering for Tapo smart plugs")

	app.Flag("address", "Device IP address").Short('A').Envar("TAPO_ADDRESS").Required().IPVar(&ip)
	app.Flag("username", "Tapo account email").Short('U').Envar("TAPO_USERNAME").Required().StringVar(&username)
	app.Flag("password", "Tapo account password").Short('P').Envar("TAPO_PASSWORD").Required().StringVar(&password)
	app.Flag("debug", "Enable debug logging").UnNegatableBoolVar(&debug)
	app.Flag("verbose", "Enable verbose logging").UnNegatableBoolVar(&verbose)

	measure := app.Command("measure", "Takes a measurement of current power consumption over multiple samples").Action(measureAction)
	measure.Flag("samples", "Number of samples to collect").IntVar(&samplesFlag)
	measure.Flag("interval", "Seconds to wait between polls").IntVar(&intervalFlag)
	measure.Flag("record", "Record readings to the local database").UnNegatableBoolVar(&recordFlag)

	mon := app.Command("monitor", "Continuously monitors momentary power consumption in the terminal").Action(monitorAction)
	mon.Flag("window", "Number of readings kept on the chart").IntVar(&windowFlag)
	mon.Flag("interval", "Seconds to wait between polls").IntVar(&intervalFlag)
	mon.Flag("record", "Record readings to the local database").UnNegatableBoolVar(&recordFlag)

	info := app.Command("info", "Shows device information").Action(infoAction)
	info.Flag("json", "Produce JSON output").UnNegatableBoolVar(&jsonFormat)

	energy := app.Command("energy", "Retrieves device energy usage statistics").Action(energyAction)
	energy.Flag("json", "Produce JSON output").UnNegatableBoolVar(&jsonFormat)

	app.Command("on", "Turns the plug on").Action(onAction)
	app.Command("off", "Turns the plug off").Action(offAction)

	app.MustParseWithUsage(os.Args[1:])
}

// setup loads file/env configuration and applies command line overrides
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger.Init(debug, verbose)
	if !debug && !verbose {
		applyConfiguredLogLevel(cfg.LogLevel)
	}

	if samplesFlag > 0 {
		cfg.Samples = samplesFlag
	}
	if intervalFlag > 0 {
		cfg.Interval = intervalFlag
	}
	if windowFlag > 0 {
		cfg.Window = windowFlag
	}
	if recordFlag {
		cfg.Record = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyConfiguredLogLevel(level string) {
	switch level {
	case "debug":
		logger.SetLogLevel(logger.DebugLevel)
	case "info":
		logger.SetLogLevel(logger.InfoLevel)
	case "warning":
		logger.SetLogLevel(logger.WarnLevel)
	case "error":
		logger.SetLogLevel(logger.ErrorLevel)
	}
}

func connect(ctx context.Context) (*tapo.Device, error) {
	return tapo.Connect(ctx, ip.String(), username, password)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		logger.Info().Msg("Received termination signal.")
		cancel()
	}()

	return ctx, cancel
}

func measureAction(_ *fisk.ParseContext) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	device, err := connect(ctx)
	if err != nil {
		return err
	}

	sink, err := recorder.NewService(recorder.Config{DBPath: cfg.Database, Enabled: cfg.Record})
	if err != nil {
		return err
	}
	defer sink.Close()

	bar := pb.ProgressBarTemplate(`obtaining samples... {{bar . "[" "=" ">" " " "]"}} {{counters .}}`).
		Start(cfg.Samples).
		SetWriter(os.Stderr)

	interval := time.Duration(cfg.Interval) * time.Second
	samples, err := sampler.Collect(ctx, device, cfg.Samples, interval, func(done, _ int, watts float64) {
		bar.SetCurrent(int64(done))
		if err := sink.Record(ctx, &recorder.Reading{Timestamp: time.Now(), Watts: watts, Mode: recorder.ModeMeasure}); err != nil {
			logger.Warn().Err(err).Msg("failed to record sample")
		}
	})
	bar.Finish()
	if err != nil {
		return err
	}

	stats := sampler.Summarize(samples)

	fmt.Printf("avg: %.1f W +-%.1f W\n", stats.Mean, stats.StdDev)
	fmt.Printf("min: %.0f W\n", stats.Min)
	fmt.Printf("max: %.0f W\n", stats.Max)
	fmt.Printf("samples: %v\n", samples)

	return nil
}

func monitorAction(_ *fisk.ParseContext) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	if err := pid.Write(); err != nil {
		return err
	}
	defer pid.Remove()

	ctx, cancel := signalContext()
	defer cancel()

	device, err := connect(ctx)
	if err != nil {
		return err
	}

	sink, err := recorder.NewService(recorder.Config{DBPath: cfg.Database, Enabled: cfg.Record})
	if err != nil {
		return err
	}
	defer sink.Close()

	interval := time.Duration(cfg.Interval) * time.Second
	renderer := monitor.NewChartRenderer(os.Stdout, cfg.ChartWidth, cfg.ChartHeight, cfg.Window, interval)

	return monitor.New(device, renderer, sink, cfg.Window, interval).Run(ctx)
}

func infoAction(_ *fisk.ParseContext) error {
	if _, err := setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	device, err := connect(ctx)
	if err != nil {
		return err
	}

	nfo, err := device.Info(ctx)
	if err != nil {
		return err
	}

	if jsonFormat {
		j, err := json.MarshalIndent(nfo, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(j))

		return nil
	}

	fmt.Printf("Tapo device information for %s\n", ip.String())
	fmt.Println()
	fmt.Println("Device Information")
	fmt.Println()
	fmt.Printf("            Model: %s\n", nfo.Model)
	fmt.Printf("         Firmware: %s\n", nfo.FWVersion)
	fmt.Printf("         Hardware: %s\n", nfo.HWVersion)
	fmt.Printf("      MAC Address: %s\n", nfo.MAC)
	fmt.Printf("         Nickname: %s\n", nfo.DecodedNickname())
	fmt.Println()
	fmt.Println("Network Information")
	fmt.Println()
	fmt.Printf("       IP Address: %s\n", nfo.IP)
	fmt.Printf("        WiFi SSID: %s\n", nfo.DecodedSSID())
	fmt.Printf("    WiFi Strength: %d (level %d)\n", nfo.RSSI, nfo.SignalLevel)
	fmt.Println()
	fmt.Println("Relay Information")
	fmt.Println()
	status := "On"
	if !nfo.DeviceOn {
		status = "Off"
	}
	fmt.Printf("     Power Status: %s\n", status)
	if nfo.DeviceOn {
		switchedOn := time.Now().Add(-time.Duration(nfo.OnTime) * time.Second)
		fmt.Printf("      Switched On: %s\n", humanize.Time(switchedOn))
	}
	fmt.Printf("       Overheated: %t\n", nfo.Overheated)

	return nil
}

func energyAction(_ *fisk.ParseContext) error {
	if _, err := setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	device, err := connect(ctx)
	if err != nil {
		return err
	}

	usage, err := device.EnergyUsage(ctx)
	if err != nil {
		return err
	}

	if jsonFormat {
		j, err := json.MarshalIndent(map[string]any{
			"current_power_watt": float64(usage.CurrentPower) / 1000,
			"today_energy_wh":    usage.TodayEnergy,
			"month_energy_wh":    usage.MonthEnergy,
			"today_runtime_min":  usage.TodayRuntime,
			"month_runtime_min":  usage.MonthRuntime,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(j))

		return nil
	}

	fmt.Println("Meter Information")
	fmt.Println()
	fmt.Printf("    Current Power: %.1f W\n", float64(usage.CurrentPower)/1000)
	fmt.Printf("     Today Energy: %s Wh\n", humanize.Comma(usage.TodayEnergy))
	fmt.Printf("     Month Energy: %s Wh\n", humanize.Comma(usage.MonthEnergy))
	fmt.Printf("    Today Runtime: %s\n", time.Duration(usage.TodayRuntime)*time.Minute)
	fmt.Printf("    Month Runtime: %s\n", time.Duration(usage.MonthRuntime)*time.Minute)

	return nil
}

func onAction(_ *fisk.ParseContext) error {
	return switchRelay(true)
}

func offAction(_ *fisk.ParseContext) error {
	return switchRelay(false)
}

func switchRelay(on bool) error {
	if _, err := setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	device, err := connect(ctx)
	if err != nil {
		return err
	}

	if err := device.SetOn(ctx, on); err != nil {
		return err
	}

	if on {
		fmt.Println("Device turned on")
	} else {
		fmt.Println("Device turned off")
	}

	return nil
}
