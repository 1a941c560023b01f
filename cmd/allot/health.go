package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the daemon health",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := CheckHealth()
		if health != nil {
			status := "✓ ok"
			if !health.OK {
				status = "✗ degraded"
			}
			fmt.Printf("Status:  %s\n", status)
			fmt.Printf("DB:      %s\n", health.DB)
			fmt.Printf("Version: %s\n", health.Version)
			fmt.Printf("Time:    %s\n", health.Time)
		}
		return err
	},
}
