package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/itohio/adcstream/pkg/bulk"
	"github.com/itohio/adcstream/pkg/config"
	"github.com/itohio/adcstream/pkg/host"
)

var captureAverage int

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Attach to a streaming device over serial and print samples",
	RunE:  capture,
}

func init() {
	captureCmd.Flags().IntVarP(&captureAverage, "average", "a", 0,
		"average this many consecutive samples before printing (0 disables)")
	rootCmd.AddCommand(captureCmd)
}

func capture(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := bulk.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Transport.MaxPacketSize)
	defer tr.Close()

	log.Printf("waiting for device on %s", cfg.Serial.Port)
	if err := tr.WaitConnection(ctx); err != nil {
		return err
	}

	client := host.NewClient(tr, 0)
	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("capture stopped: %v", err)
		}
	}()

	samples := client.Samples()
	if captureAverage > 1 {
		samples = host.NewAveragingStage(captureAverage, 0)(samples)
	}

	for s := range samples {
		fmt.Printf("%s %d mV\n", s.Timestamp.Format(time.RFC3339Nano), s.Millivolts)
	}
	return nil
}
