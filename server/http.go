package server

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	limit "github.com/bu/gin-access-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gitlab.com/bunkercoin/dashboard_api/actions"
	"gitlab.com/bunkercoin/dashboard_api/logger"
)

// Router registers every route of the api on a new engine
func (srv *server) Router() *gin.Engine {
	a := srv.actions

	r := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "X-Requested-With", "Content-Length", "Content-Type", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"X-Cache", "Retry-After", logger.RequestIDHeader}

	r.Use(cors.New(corsConfig)) // Allow requests from anywhere
	r.Use(gin.Recovery())       // Recovery middleware recovers from any panics and writes a 500 if there was one.

	r.Use(logger.SetLogger(logger.Config{SkipPath: []string{"/ping", "/probe/live"}}))

	r.GET("/ping", actions.Ping)
	r.GET("/probe/live", actions.Live)

	public := r.Group("/", srv.limiter.Middleware())
	{
		public.GET("/locks", a.GetLocks)
		public.POST("/locks/build", a.BuildLock)
		public.GET("/burned", a.GetBurned)
		public.GET("/price", a.GetPrice)
		public.GET("/history", a.GetHistory)
		public.GET("/holders", a.GetHolders)
		public.GET("/liquidity", a.GetLiquidity)
	}

	staking := r.Group("/staking", srv.limiter.Middleware())
	{
		staking.GET("/overview", a.GetStakingOverview)
		staking.GET("/stakes/:wallet", a.GetUserStakes)
	}

	limit.TrustedHeaderField = "X-Forwarded-For"

	internal := r.Group("/internal")
	{
		internal.Use(limit.CIDR(srv.config.Server.Debug.AllowedIPs))
		internal.DELETE("/cache/:key", a.EvictCache)
	}

	debug := r.Group("/debug")
	{
		debug.Use(limit.CIDR(srv.config.Server.Debug.AllowedIPs))

		debug.GET("/pprof/:name", func(context *gin.Context) {
			pprof.Handler(context.Param("name")).ServeHTTP(context.Writer, context.Request)
		})
	}

	return r
}

func (srv *server) newHTTPServer() *http.Server {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", srv.config.Server.API.Port),
		Handler: srv.Router(),
	}
	httpServer.SetKeepAlivesEnabled(srv.config.Server.API.KeepAlive)
	return httpServer
}

// ListenToRequests serves the api until the http server is shut down
func (srv *server) ListenToRequests() {
	log.Info().Str("worker", "http_listen_to_requests").Str("action", "start").Msg("HTTP Listen to requests - started")
	defer log.Info().Str("worker", "http_listen_to_requests").Str("action", "stop").Msg("HTTP Listen to requests - stopped")

	port := srv.config.Server.API.Port
	if err := srv.HTTP.ListenAndServe(); err != nil {
		if err != http.ErrServerClosed {
			log.Error().Err(err).Str("section", "server").Str("action", "ListenToRequests").Msgf("Unable to listen %d port", port)
		}
	}
}
