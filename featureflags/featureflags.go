// Package featureflags gates features behind Unleash toggles.
package featureflags

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Unleash/unleash-client-go/v3"
	"github.com/rs/zerolog/log"
)

// Config of the unleash client
type Config struct {
	URL             string        `mapstructure:"url"`
	AppName         string        `mapstructure:"app_name"`
	InstanceID      string        `mapstructure:"instance_id"`
	Token           string        `mapstructure:"token"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

var initialized int32

type listener struct{}

func (listener) OnError(err error) {
	log.Warn().Err(err).Str("section", "featureflags").Msg("Unleash client error")
}

func (listener) OnWarning(err error) {
	log.Debug().Err(err).Str("section", "featureflags").Msg("Unleash client warning")
}

func (listener) OnReady() {
	log.Info().Str("section", "featureflags").Msg("Unleash client ready")
}

// Initialize connects to unleash. Without a url every flag reports its fallback.
func Initialize(cfg Config) error {
	if cfg.URL == "" {
		log.Info().Str("section", "featureflags").Msg("Unleash not configured, using fallback values")
		return nil
	}
	opts := []unleash.ConfigOption{
		unleash.WithUrl(cfg.URL),
		unleash.WithAppName(cfg.AppName),
		unleash.WithInstanceId(cfg.InstanceID),
		unleash.WithListener(listener{}),
	}
	if cfg.RefreshInterval > 0 {
		opts = append(opts, unleash.WithRefreshInterval(cfg.RefreshInterval))
	}
	if cfg.Token != "" {
		opts = append(opts, unleash.WithCustomHeaders(http.Header{"Authorization": {cfg.Token}}))
	}
	if err := unleash.Initialize(opts...); err != nil {
		return err
	}
	atomic.StoreInt32(&initialized, 1)
	return nil
}

// IsEnabled reports the toggle state, or fallback when unleash is not running
func IsEnabled(feature string, fallback bool) bool {
	if atomic.LoadInt32(&initialized) == 0 {
		return fallback
	}
	return unleash.IsEnabled(feature, unleash.WithFallback(fallback))
}

// Close the unleash client
func Close() {
	if atomic.CompareAndSwapInt32(&initialized, 1, 0) {
		_ = unleash.Close()
	}
}
