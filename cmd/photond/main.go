// Command photond serves photon counting for a FLIR Blackfly S camera over
// HTTP.  See the readme for the route listing and configuration reference.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is the version number.  Typically injected via ldflags with git build
var Version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "photond",
	Short: "photon counting daemon for FLIR Blackfly S cameras",
	Long: `photond converts camera frames to photon counts using the EMVA 1288
calibration of the sensor and serves the results over HTTP.  This enables a
server-client architecture, and the clients can leverage the excellent HTTP
libraries for any programming language.`,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "photond.yml",
		"path to the YAML config file")
	rootCmd.AddCommand(runCmd, calibrateCmd, mkconfCmd, confCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("photond version %s\n", Version)
	},
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
