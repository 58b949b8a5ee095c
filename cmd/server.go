package cmd

import (
	"github.com/minvws/greenpass-hcert/inflate"
	"github.com/minvws/greenpass-hcert/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the HTTP decode endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := configureServer(cmd)
		if err != nil {
			exitWithError(err)
		}

		err = server.Run(config)
		if err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	setServerFlags(serverCmd)
}

func setServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.SortFlags = false

	flags.String("config", "", "path to configuration file (JSON, TOML, YAML or INI)")
	flags.String("listen-address", "localhost", "address at which to listen")
	flags.String("listen-port", "4003", "port at which to listen")

	flags.Int64("inflate-limit", inflate.DefaultLimit, "maximum decompressed certificate size in bytes")
	flags.Int64("max-request-size", server.DEFAULT_MAX_REQUEST_SIZE, "maximum request body size in bytes")
}

func configureServer(cmd *cobra.Command) (*server.Configuration, error) {
	err := viper.BindPFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}

	err = readConfig()
	if err != nil {
		return nil, err
	}

	config := &server.Configuration{
		ListenAddress: viper.GetString("listen-address"),
		ListenPort:    viper.GetString("listen-port"),

		InflateLimit:   viper.GetInt64("inflate-limit"),
		MaxRequestSize: viper.GetInt64("max-request-size"),
	}

	return config, nil
}
