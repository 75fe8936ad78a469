// Command adcstream runs the sampling device and its host-side tools.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configFile string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "adcstream",
	Short: "adcstream streams calibrated analog samples over a bulk packet transport",
	Long: `adcstream continuously digitizes an analog input and streams the calibrated
samples to a host as fixed-size packets of little-endian millivolt values.

The device side couples a continuous-conversion driver to the transport's
connection state, so sampling starts on host attach, every failure drains the
session, and a reconnect always begins from a clean buffer.`,
	PersistentPreRunE: setupLogging,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	log.SetLevel(lvl)

	if logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
		})
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "adcstream.yaml",
		"config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to a rotating file instead of stderr")
}
