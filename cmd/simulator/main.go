// Command simulator feeds synthetic crib readings to the monitor over MQTT or Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/kafka"
	"github.com/babysphere/backend/internal/mqtt"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
)

type publishFunc func(sensor.Reading) error

func main() {
	configPath := flag.String("config", "./config", "Path to the configuration directory")
	transport := flag.String("transport", "mqtt", "Transport to publish on: mqtt or kafka")
	deviceID := flag.String("device", "crib-1", "Device id to report as")
	count := flag.Int("count", 0, "Number of readings to send, 0 runs until interrupted")
	interval := flag.Duration("interval", 5*time.Second, "Interval between readings")
	spikeChance := flag.Float64("spike-chance", 0.05, "Probability of a fever spike per reading")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	publish, closeFn, err := openTransport(*transport, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open transport", zap.String("transport", *transport), zap.Error(err))
	}
	defer closeFn()

	gen := newGenerator(*deviceID, *spikeChance, time.Now().UnixNano())
	run(ctx, gen, publish, *count, *interval, logger)
}

func openTransport(name string, cfg *config.Config, logger *utils.Logger) (publishFunc, func(), error) {
	switch name {
	case "mqtt":
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			return nil, nil, err
		}
		return mqtt.NewPublisher(client).PublishReading, client.Close, nil
	case "kafka":
		manager, err := kafka.NewManager(&cfg.Kafka, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := manager.Start(); err != nil {
			return nil, nil, err
		}
		return manager.PublishReading, func() {
			if err := manager.Stop(); err != nil {
				logger.Error("Failed to stop Kafka manager", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", name)
	}
}

func run(ctx context.Context, gen *generator, publish publishFunc, count int, interval time.Duration, logger *utils.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for sent := 0; count == 0 || sent < count; sent++ {
		r := gen.next(time.Now())
		if err := publish(r); err != nil {
			logger.Error("Failed to publish reading", zap.String("id", r.ID), zap.Error(err))
		} else {
			logger.Info("Published reading",
				zap.String("id", r.ID),
				zap.Float64p("baby_temperature", r.BabyTemperature),
				zap.Float64p("heart_rate", r.HeartRate))
		}

		select {
		case <-ctx.Done():
			logger.Info("Simulator interrupted", zap.Int("sent", sent+1))
			return
		case <-ticker.C:
		}
	}
	logger.Info("Simulator finished", zap.Int("sent", count))
}
