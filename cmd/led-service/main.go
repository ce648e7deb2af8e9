package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"led-service/internal/config"
	"led-service/internal/controller"
	"led-service/internal/core"
	"led-service/internal/hardware"
	"led-service/internal/logger"
	"led-service/internal/messaging"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "/etc/led-service.yml", "Path to configuration file")
	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	l := logger.NewLogger(stdLogger, level)

	l.Infof("Starting LED service...")

	// Power the chip up before touching the bus on boards with a
	// software-controlled enable pin.
	var enable *hardware.EnableLine
	if cfg.Bus.EnableChip != "" {
		enable, err = hardware.RequestEnableLine(cfg.Bus.EnableChip, cfg.Bus.EnableLine)
		if err != nil {
			l.Fatalf("Failed to enable LED controller: %v", err)
		}
		defer enable.Close()
	}

	bus, err := hardware.OpenI2CBus(cfg.Bus.Device, cfg.Bus.Address)
	if err != nil {
		l.Fatalf("Failed to open LED controller bus: %v", err)
	}
	defer bus.Close()

	tuning := controller.GlobalTuning{
		FadeEnabled:     cfg.Tuning.Fade,
		Intensity:       cfg.Tuning.Intensity,
		Speed:           cfg.Tuning.Speed,
		SlopeSteps:      cfg.Tuning.SlopeSteps,
		DefaultCurrent:  cfg.Calibration.DefaultCurrent,
		LowPowerCurrent: cfg.Calibration.LowPowerCurrent,
		Offsets:         cfg.Calibration.Offsets,
		PatternsEnabled: cfg.Tuning.Patterns,
	}

	driver, err := controller.NewDriver(hardware.NewCommitter(bus), tuning, l)
	if err != nil {
		l.Fatalf("Failed to create LED driver: %v", err)
	}

	redis := messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, l)
	system := core.NewLedSystem(driver, redis, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	cancel()
	driver.Wait()
	if err := system.Shutdown(); err != nil {
		l.Errorf("Shutdown error: %v", err)
	}
	l.Infof("Shutdown complete")
}
