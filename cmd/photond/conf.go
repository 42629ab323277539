package main

import (
	"os"

	"github.com/spf13/cobra"
	yml "gopkg.in/yaml.v2"

	"github.com/ribeiro-lab/photond/daemon"
)

var mkconfCmd = &cobra.Command{
	Use:   "mkconf",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(configFile)
		if err != nil {
			return err
		}
		defer f.Close()
		return yml.NewEncoder(f).Encode(daemon.Defaults())
	},
}

var confCmd = &cobra.Command{
	Use:   "conf",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.LoadConfig(configFile)
		if err != nil {
			return err
		}
		return yml.NewEncoder(os.Stdout).Encode(cfg)
	},
}
