package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// import http profilling when the server profilling configuration is set
	_ "net/http/pprof"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"gitlab.com/bunkercoin/dashboard_api/actions"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/apps/pricefeed"
	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/crons"
	"gitlab.com/bunkercoin/dashboard_api/featureflags"
	"gitlab.com/bunkercoin/dashboard_api/lockbuilder"
	"gitlab.com/bunkercoin/dashboard_api/monitor"
	"gitlab.com/bunkercoin/dashboard_api/rpc"
	"gitlab.com/bunkercoin/dashboard_api/service"
)

// Server interface
type Server interface {
	Listen()
}

type server struct {
	config  config.Config
	actions *actions.Actions
	service *service.Service
	redis   *cache.RedisStore
	limiter *ipRateLimiter
	ctx     context.Context
	close   context.CancelFunc
	HTTP    *http.Server
}

// NewServer constructor
func NewServer(cfg config.Config) Server {
	ctx, close := context.WithCancel(context.Background())

	var store cache.Store
	var redisStore *cache.RedisStore
	if cfg.Redis.Enabled {
		var err error
		redisStore, err = cache.NewRedisStore(cfg.Redis)
		if err != nil {
			log.Fatal().Str("section", "server").Err(err).Msg("Unable to connect to redis")
		}
		store = redisStore
	} else {
		log.Warn().Str("section", "server").Msg("Redis disabled, cached metrics are kept in memory")
		store = cache.NewMemoryStore()
	}

	ledger := rpc.NewClient(cfg.Solana)
	dataServices, err := service.NewService(cfg, cache.New(store), ledger, pricefeed.NewApp(cfg.PriceFeed))
	if err != nil {
		log.Fatal().Str("section", "server").Err(err).Msg("Unable to init services")
	}

	builderConfig, err := lockBuilderConfig(cfg.Token)
	if err != nil {
		log.Fatal().Str("section", "server").Err(err).Msg("Invalid token configuration")
	}
	builder := lockbuilder.NewBuilder(builderConfig, ledger)

	crons.Start(cfg.Crons, dataServices)

	return &server{
		config:  cfg,
		service: dataServices,
		actions: actions.NewActions(ctx, cfg, dataServices, builder),
		redis:   redisStore,
		limiter: newIPRateLimiter(cfg.Server.API.RateLimit),
		ctx:     ctx,
		close:   close,
	}
}

func lockBuilderConfig(token config.TokenConfig) (lockbuilder.Config, error) {
	keys := map[string]string{
		"token.mint":                     token.Mint,
		"token.lock_program":             token.LockProgram,
		"token.token_program":            token.TokenProgram,
		"token.associated_token_program": token.AssociatedTokenProgram,
	}
	parsed := make(map[string]address.PublicKey, len(keys))
	for name, value := range keys {
		pk, err := address.FromBase58(value)
		if err != nil {
			return lockbuilder.Config{}, errors.Wrap(err, name)
		}
		parsed[name] = pk
	}
	return lockbuilder.Config{
		Mint:                   parsed["token.mint"],
		LockProgram:            parsed["token.lock_program"],
		TokenProgram:           parsed["token.token_program"],
		AssociatedTokenProgram: parsed["token.associated_token_program"],
		Decimals:               token.Decimals,
	}, nil
}

// Listen for incoming requests until a termination signal is received
func (srv *server) Listen() {
	// start the http server
	srv.HTTP = srv.newHTTPServer()
	go srv.ListenToRequests()
	go monitor.LoopProfilingServer(srv.config.Server.Monitoring)
	go srv.limiter.cleanupLoop(srv.ctx)

	srv.stopOnSignal()
}

func (srv *server) stopOnSignal() {
	// listen for termination signals
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc

	log.Info().Str("section", "server").Str("app_event", "terminate").Str("signal", sig.String()).Msg("Shutting down services")
	timeout := srv.config.Server.API.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	srv.closeApp(timeout)
}

func (srv *server) closeApp(timeout time.Duration) {
	// define a timeout in which the graceful shutdown procedure should happen before forcing the shutdown
	timeoutFunc := time.AfterFunc(timeout, func() {
		log.Printf("timeout %d ms has been elapsed, force exit", timeout.Milliseconds())
		os.Exit(0)
	})
	defer timeoutFunc.Stop()

	monitor.ShutdownServer()
	if err := srv.HTTP.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Str("section", "server").Str("action", "terminate").Msg("Unable to shutdown HTTP server")
	}

	crons.Close()
	srv.close()
	// waits for background refreshes started by stale reads
	srv.service.Close()
	if srv.redis != nil {
		if err := srv.redis.Close(); err != nil {
			log.Error().Err(err).Str("section", "server").Str("action", "terminate").Msg("Unable to close redis pool")
		}
	}

	featureflags.Close()

	log.Info().Str("section", "server").Str("app_event", "terminate").Str("state", "complete").Msg("All workers terminated")
}
