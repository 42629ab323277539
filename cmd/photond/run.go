package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ribeiro-lab/photond/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the counting daemon",
	Long: `Run opens the camera, acquires the dark baseline, and serves camera
control and photon counting over HTTP until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.LoadConfig(configFile)
		if err != nil {
			return err
		}
		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}
		return d.Run(context.Background())
	},
}
