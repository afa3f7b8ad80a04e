package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dispatch-service",
	Short: "Hybrid live/push alert dispatch service",
	RunE:  runServe,
}
