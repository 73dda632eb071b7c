package cmd

import (
	"github.com/rs/zerolog/log"

	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dashboard api",
	Long:  `Warm the metric caches and serve the dashboard endpoints until a termination signal is received`,
	Run: func(cmd *cobra.Command, args []string) {
		// load server configuration from server
		log.Debug().Msg("Loading server configuration")
		if viper.ConfigFileUsed() != "" {
			log.Debug().Str("section", "init").Str("path", viper.ConfigFileUsed()).Msg("Configuration file loaded")
		}
		cfg := config.LoadConfig(viper.GetViper())

		// start a new server
		log.Debug().Str("section", "init").Msg("Starting new server instance")
		srv := server.NewServer(cfg)
		log.Info().Str("section", "init").Int("port", cfg.Server.API.Port).Msg("Listening for incoming requests")
		srv.Listen()
	},
}
