package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teranos/screencap/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "screencap",
		Short: "Screenshots, 3D pairs and 360 panoramas from a live scene",
		Long: `Screencap renders a small 3D scene and captures it: plain screenshots
with the HUD, rendered screenshots at any resolution, side-by-side stereo
pairs and equirectangular 360 panoramas.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/screencap/config.yaml)")

	root.AddCommand(newRunCmd(), newShootCmd(), newSettingsCmd())
	return root
}

func initConfig(cmd *cobra.Command) error {
	// Defaults first so they apply even without a config file
	config.SetDefaults()
	_ = viper.BindPFlag("config", cmd.Root().PersistentFlags().Lookup("config"))

	cfgFile := viper.GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SCREENCAP")
	// SCREENCAP_OUTPUT_DIR for output.dir
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}
