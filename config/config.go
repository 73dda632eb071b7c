package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gitlab.com/bunkercoin/dashboard_api/apps/pricefeed"
	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/featureflags"
	"gitlab.com/bunkercoin/dashboard_api/monitor"
	"gitlab.com/bunkercoin/dashboard_api/rpc"
)

type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Redis     cache.RedisConfig   `mapstructure:"redis"`
	Solana    rpc.Config          `mapstructure:"solana"`
	Token     TokenConfig         `mapstructure:"token"`
	PriceFeed pricefeed.Config    `mapstructure:"price_feed"`
	Cache     CacheConfig         `mapstructure:"cache"`
	Staking   StakingConfig       `mapstructure:"staking"`
	Crons     Crons               `mapstructure:"crons"`
	Unleash   featureflags.Config `mapstructure:"unleash"`
}

type ServerConfig struct {
	Monitoring monitor.Config `mapstructure:"monitoring"`
	API        APIConfig      `mapstructure:"api"`
	Debug      DebugConfig    `mapstructure:"debug"`
}

type APIConfig struct {
	Port            int
	KeepAlive       bool            `mapstructure:"keep_alive"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is a token bucket per client ip
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

type DebugConfig struct {
	AllowedIPs string `mapstructure:"allowed_ips"`
}

// TokenConfig identifies the tracked mint and the programs that hold it
type TokenConfig struct {
	Mint                   string `mapstructure:"mint"`
	LockProgram            string `mapstructure:"lock_program"`
	TokenProgram           string `mapstructure:"token_program"`
	AssociatedTokenProgram string `mapstructure:"associated_token_program"`
	Decimals               uint8  `mapstructure:"decimals"`
	// TotalSupply in whole tokens
	TotalSupply    uint64                 `mapstructure:"total_supply"`
	LiquidityPools []*LiquidityPoolConfig `mapstructure:"liquidity_pools"`
}

type LiquidityPoolConfig struct {
	Platform string `mapstructure:"platform"`
	Address  string `mapstructure:"address"`
}

// CacheConfig holds the freshness options of every cached metric
type CacheConfig struct {
	Locks     cache.Options `mapstructure:"locks"`
	Burned    cache.Options `mapstructure:"burned"`
	Price     cache.Options `mapstructure:"price"`
	History   cache.Options `mapstructure:"history"`
	Holders   cache.Options `mapstructure:"holders"`
	Liquidity cache.Options `mapstructure:"liquidity"`
}

type StakingConfig struct {
	// MonthlyRewardPool in whole tokens
	MonthlyRewardPool float64 `mapstructure:"monthly_reward_pool"`
	// EstimateStake is the hypothetical stake used for per option APY estimates
	EstimateStake float64 `mapstructure:"estimate_stake"`
}

type Crons map[string]string

// LoadConfig returns the unmarshalled configuration
func LoadConfig(viperConf *viper.Viper) Config {
	var config Config
	if err := viperConf.Unmarshal(&config); err != nil {
		log.Fatal().Err(err).Msg("Unable to decode configuration")
	}
	return config
}

// OpenConfig reads the configuration file, the given file wins over the search paths
func OpenConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigType("yaml")
		viper.SetConfigName(".config")
		viper.AddConfigPath(".")                   // First try to load the config from the current directory
		viper.AddConfigPath("$HOME")               // Then try to load it from the HOME directory
		viper.AddConfigPath("/etc/dashboard_api/") // As a last resort try to load it from /etc/
	}
	viper.SetEnvPrefix("CFG")
	viper.AutomaticEnv()
	setDefaultVariables()

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		log.Fatal().Err(err).Msg("Unable to read configuration file")
	}
}

func setDefaultVariables() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.api.port", 8080)
	v.SetDefault("server.api.keep_alive", true)
	v.SetDefault("server.api.shutdown_timeout", "10s")
	v.SetDefault("server.api.rate_limit.enabled", true)
	v.SetDefault("server.api.rate_limit.requests_per_second", 10)
	v.SetDefault("server.api.rate_limit.burst", 30)
	v.SetDefault("server.api.rate_limit.idle_timeout", "10m")
	v.SetDefault("server.monitoring.host", "0.0.0.0")
	v.SetDefault("server.monitoring.port", 9090)
	v.SetDefault("server.debug.allowed_ips", "127.0.0.1/32")

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", "5s")
	v.SetDefault("redis.key_prefix", "dashboard:")

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.timeout", "15s")
	v.SetDefault("solana.commitment", "confirmed")

	v.SetDefault("token.mint", "8NCievmJCg2d9Vc2TWgz2HkE6ANeSX7kwvdq5AL7pump")
	v.SetDefault("token.lock_program", "LocpQgucEQHbqNABEYvBvwoxCPsSbG91A1QaQhQQqjn")
	v.SetDefault("token.token_program", "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	v.SetDefault("token.associated_token_program", "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	v.SetDefault("token.decimals", 6)
	v.SetDefault("token.total_supply", 1_000_000_000)
	v.SetDefault("token.liquidity_pools", []map[string]interface{}{
		{"platform": "Raydium", "address": "Gpb5ADcBXuu2komURWXrAf9UZjM1UfBuYSTfVSiDe4M6"},
		{"platform": "Meteora", "address": "DjY4XrZZWMLxo13MZ6fU6qcoHX5ZuiJXTgBnE6of1T7B"},
	})

	v.SetDefault("price_feed.url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price_feed.coin_id", "bunkercoin")
	v.SetDefault("price_feed.currency", "usd")
	v.SetDefault("price_feed.history_days", 30)
	v.SetDefault("price_feed.timeout", "10s")

	for metric, maxAge := range map[string]string{
		"locks":     "30m",
		"burned":    "30m",
		"price":     "1h",
		"history":   "30m",
		"holders":   "30m",
		"liquidity": "30m",
	} {
		v.SetDefault("cache."+metric+".max_age", maxAge)
		v.SetDefault("cache."+metric+".max_attempts", 1)
		v.SetDefault("cache."+metric+".retry_delay", "10s")
	}
	v.SetDefault("cache.price.timeout", "10s")

	v.SetDefault("staking.monthly_reward_pool", 120_000)
	v.SetDefault("staking.estimate_stake", 100_000)

	v.SetDefault("crons", map[string]string{
		"warm_locks":     "@every 25m",
		"warm_burned":    "@every 25m",
		"warm_price":     "@every 50m",
		"warm_history":   "@every 25m",
		"warm_holders":   "@every 25m",
		"warm_liquidity": "@every 25m",
	})
}
