package logger

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/bunkercoin/dashboard_api/monitor"
)

// RequestIDHeader carries the id of every request
const RequestIDHeader = "X-Request-Id"

// Config for logger
type Config struct {
	Logger *zerolog.Logger
	// UTC a boolean stating whether to use UTC time zone or local.
	UTC            bool
	SkipPath       []string
	SkipPathRegexp *regexp.Regexp
}

// GetLogger from gin context
func GetLogger(c *gin.Context) zerolog.Logger {
	if logger, ok := c.Get("_log"); ok {
		return logger.(zerolog.Logger)
	}
	return log.Logger
}

// SetLogger initializes the logging middleware.
func SetLogger(config ...Config) gin.HandlerFunc {
	var newConfig Config
	if len(config) > 0 {
		newConfig = config[0]
	}
	var skip map[string]struct{}
	if length := len(newConfig.SkipPath); length > 0 {
		skip = make(map[string]struct{}, length)
		for _, path := range newConfig.SkipPath {
			skip[path] = struct{}{}
		}
	}

	var sublog zerolog.Logger
	if newConfig.Logger == nil {
		sublog = log.Logger
	} else {
		sublog = *newConfig.Logger
	}

	return func(c *gin.Context) {
		start := time.Now()
		if newConfig.UTC {
			start = start.UTC()
		}

		// get full url path for logs
		path := c.Request.URL.Path
		fullPath := path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			fullPath = path + "?" + raw
		}

		_, skipped := skip[path]
		track := !skipped && (newConfig.SkipPathRegexp == nil || !newConfig.SkipPathRegexp.MatchString(path))

		// keep the id assigned by a proxy in front of the api
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = xid.New().String()
		}
		c.Writer.Header().Set(RequestIDHeader, id)
		reqlogger := sublog.With().
			Str("request_id", id).
			Logger()
		c.Set("_log", reqlogger)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		monitor.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		monitor.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		if !track {
			return
		}

		msg := "Request"
		if len(c.Errors) > 0 {
			msg = c.Errors.String()
		}
		dumplogger := reqlogger.With().
			Str("method", c.Request.Method).
			Str("path", fullPath).
			Str("ip", c.ClientIP()).
			Str("user-agent", c.Request.UserAgent()).
			Int("status", status).
			Dur("latency", latency).
			Logger()

		if cacheOrigin := c.Writer.Header().Get("X-Cache"); cacheOrigin != "" {
			dumplogger = dumplogger.With().Str("cache", cacheOrigin).Logger()
		}

		switch {
		case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
			dumplogger.Warn().Msg(msg)
		case status >= http.StatusInternalServerError:
			dumplogger.Error().Msg(msg)
		default:
			dumplogger.Debug().Msg(msg)
		}
	}
}
