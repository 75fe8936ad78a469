package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/itohio/adcstream/pkg/adc"
	"github.com/itohio/adcstream/pkg/bulk"
	"github.com/itohio/adcstream/pkg/config"
	"github.com/itohio/adcstream/pkg/host"
	"github.com/itohio/adcstream/pkg/stream"
)

var runTransport string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sampling device until interrupted",
	RunE:  runDevice,
}

func init() {
	runCmd.Flags().StringVarP(&runTransport, "transport", "t", "pipe",
		"transport to stream over: pipe (in-process loopback demo) or serial")
	rootCmd.AddCommand(runCmd)
}

func runDevice(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conv := adc.NewSim(&cfg.Sim)
	drv := adc.NewDriver(conv, adc.Channel(cfg.Sampling.Channel),
		cfg.Sampling.SampleRate, cfg.Sampling.RingSize)

	ref, err := adc.Calibrate(conv, cfg.Calibration.Warmup)
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	log.Printf("calibrated: reference code %d (%d mV nominal)", ref, adc.VRefIntMillivolts)

	var dev bulk.Device
	switch runTransport {
	case "serial":
		s := bulk.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Transport.MaxPacketSize)
		defer s.Close()
		dev = s
	case "pipe":
		pipe := bulk.NewPipe(cfg.Transport.MaxPacketSize)
		go runLoopbackHost(ctx, pipe.Host())
		dev = pipe
	default:
		return fmt.Errorf("unknown transport %q", runTransport)
	}

	coord, err := stream.New(drv, dev, ref)
	if err != nil {
		return err
	}

	log.Printf("device %04x:%04x ready, %s transport, %d samples per packet",
		cfg.Transport.VendorID, cfg.Transport.ProductID, runTransport, coord.SamplesPerPacket())

	err = coord.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Printf("interrupted, shutting down")
		return nil
	}
	return err
}

// runLoopbackHost plays the host against the in-process pipe: it attaches,
// decodes the stream and logs a downsampled view of it.
func runLoopbackHost(ctx context.Context, h *bulk.Host) {
	// Give the coordinator a beat to reach WaitConnection first.
	time.Sleep(10 * time.Millisecond)
	h.Connect()
	defer h.Disconnect()

	client := host.NewClient(h, 0)
	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("loopback host stopped: %v", err)
		}
	}()

	for s := range host.NewDownsampleStage(1000, 0)(client.Samples()) {
		log.Printf("loopback sample: %d mV", s.Millivolts)
	}
}
