package actions

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gitlab.com/bunkercoin/dashboard_api/cache"
	"gitlab.com/bunkercoin/dashboard_api/httputils"
	"gitlab.com/bunkercoin/dashboard_api/logger"
)

const (
	// UnavailableMessage is the body of every 503 response
	UnavailableMessage = "Data temporarily unavailable"
	// RetryAfterSeconds is suggested to clients on 503
	RetryAfterSeconds = 60

	headerCache        = "X-Cache"
	headerCacheControl = "Cache-Control"
	headerRetryAfter   = "Retry-After"
)

// Ping godoc
// swagger:route GET /ping misc ping
// Ping
//
// Ping the server
//
//	Produces:
//	- application/json
//
//	Schemes: http, https
//
//	Responses:
//	  200: StringResp
func Ping(c *gin.Context) {
	c.JSON(OK, "pong")
}

// Live godoc
// swagger:route GET /probe/live misc probe_live
// Liveness check
//
//	Responses:
//	  200:
func Live(c *gin.Context) {
	c.Status(OK)
}

func abortWithError(c *gin.Context, code int, message string) {
	l := getlog(c)
	l.Debug().Int("resp_code", code).Msg(message)
	c.AbortWithStatusJSON(code, httputils.RequestError{Error: message})
}

func abortUnavailable(c *gin.Context, err error) {
	l := getlog(c)
	l.Warn().Err(err).Str("path", c.FullPath()).Msg("Serving unavailable")
	c.Header(headerRetryAfter, strconv.Itoa(RetryAfterSeconds))
	c.AbortWithStatusJSON(Unavailable, httputils.RequestError{Error: UnavailableMessage})
}

func getlog(c *gin.Context) zerolog.Logger {
	return logger.GetLogger(c)
}

// isUncached reports whether the client asked to bypass the cache
func isUncached(c *gin.Context) bool {
	v := c.Query("uncached")
	return v != "" && v != "0" && v != "false"
}

func cacheControl(maxAge time.Duration) string {
	return fmt.Sprintf("max-age=0, s-maxage=%d", int64(maxAge/time.Second))
}

// respond writes a cached metric with its freshness headers, or a 503 when the
// metric could not be produced
func respond(c *gin.Context, data interface{}, origin cache.Origin, maxAge time.Duration, err error) {
	if err != nil {
		if !errors.Is(err, cache.ErrUnavailable) && !errors.Is(err, cache.ErrValidationFailed) {
			l := getlog(c)
			l.Error().Err(err).Str("path", c.FullPath()).Msg("Unable to produce data")
		}
		abortUnavailable(c, err)
		return
	}
	c.Header(headerCache, string(origin))
	c.Header(headerCacheControl, cacheControl(maxAge))
	c.JSON(OK, data)
}
