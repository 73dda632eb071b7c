package cmd

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/featureflags"
)

// LogLevel Flag
var LogLevel = "info"

// LogFormat Flag
var LogFormat = "json"
var cfgFile string
var rootCmd = &cobra.Command{
	Use:   "dashboard_api",
	Short: "Backend of the token dashboard",
	Long: `Serves cached on-chain metrics of the token: locks, burned supply, holders, liquidity,
	market price and staking, and builds unsigned lock transactions for wallets.`,
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		LogLevel = v
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok && v != "" {
		LogFormat = v
	}
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.config.yaml)")
	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", LogLevel, "logging level (debug|info|warn|error|fatal|panic)")
	rootCmd.PersistentFlags().StringVar(&LogFormat, "log-format", LogFormat, "log format (json|pretty)")
}

func initConfig() {
	config.OpenConfig(cfgFile)
	customizeLogger()
	cfg := config.LoadConfig(viper.GetViper())
	if err := featureflags.Initialize(cfg.Unleash); err != nil {
		log.Fatal().Err(err).Str("lib", "unleash").Msg("Unable to init feature flags")
	}
}

// Execute the commands
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func customizeLogger() {
	if LogFormat == "pretty" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	level, err := zerolog.ParseLevel(LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("log_level", LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	gin.SetMode(gin.ReleaseMode)
	if level == zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	}
}
