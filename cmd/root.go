package cmd

import (
	"fmt"
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	debug    bool
	logLevel slog.LevelVar
)

var rootCmd = &cobra.Command{
	Use:   "greenpass",
	Short: "EU Digital COVID Certificate decoder",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logLevel.Set(slog.LevelDebug)
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		exitWithError(err)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stderr, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print debug logging")
}

func readConfig() error {
	configPath := viper.GetString("config")
	if configPath == "" {
		return nil
	}

	dir, file := filepath.Dir(configPath), filepath.Base(configPath)
	viper.SetConfigName(strings.TrimSuffix(file, filepath.Ext(file)))
	viper.AddConfigPath(dir)

	err := viper.ReadInConfig()
	if err != nil {
		msg := fmt.Sprintf("Could not read or apply config file %s", configPath)
		return errors.WrapPrefix(err, msg, 0)
	}

	slog.Debug("Applied config file", "path", viper.ConfigFileUsed())
	return nil
}

func exitWithError(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
