package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"

	"github.com/ribeiro-lab/photond/daemon"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Acquire a dark baseline and print it",
	Long: `Calibrate acquires the configured number of dark frames in the
foreground, with the lens cap on or the light source off, and prints the
resulting dark level and noise.  Nothing is served or archived; use it to
sanity check the camera before a counting run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg.Store.Enabled = false
		cfg.Record.Enabled = false

		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		spinner, err := yacspin.New(yacspin.Config{
			Frequency:       100 * time.Millisecond,
			CharSet:         yacspin.CharSets[14],
			Suffix:          " acquiring dark frames",
			SuffixAutoColon: true,
			StopCharacter:   "✓",
			StopColors:      []string{"fgGreen"},
		})
		if err != nil {
			return err
		}
		if err := spinner.Start(); err != nil {
			return err
		}

		c := d.Counter()
		for !c.Calibrated() {
			if _, _, err := c.ProcessFrame(); err != nil {
				spinner.StopFail()
				return err
			}
			spinner.Message(fmt.Sprintf("%.0f%%", c.Progress()*100))
		}
		spinner.Stop()

		cal := c.Calibration()
		color.Green("dark baseline complete (%d frames)", cfg.BaselineFrames)
		color.Cyan("  dark level:  %.2f ADU", c.Dark())
		color.Cyan("  dark noise:  %.2f ADU (%.2f e-)", c.DarkStd(), c.DarkStd()*cal.Gain)
		color.Cyan("  read noise:  %.2f e- (datasheet)", cal.ReadNoise)
		if c.DarkStd()*cal.Gain > 2*cal.ReadNoise {
			color.Yellow("  measured noise is well above the datasheet read noise;")
			color.Yellow("  check for light leaks or raise the baseline frame count")
		}
		return nil
	},
}
