package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/adcstream/pkg/bulk"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports present on this system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := bulk.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
