package actions

import (
	"github.com/gin-gonic/gin"
)

// EvictCache godoc
// swagger:route DELETE /internal/cache/{key} internal evict_cache
// Evict one cache entry
//
//	Responses:
//	  200: StringResp
//	  500: RequestErrorResp
func (actions *Actions) EvictCache(c *gin.Context) {
	key := c.Param("key")
	if err := actions.service.Cache().Evict(c.Request.Context(), key); err != nil {
		abortWithError(c, ServerError, "Unable to evict cache entry")
		return
	}
	l := getlog(c)
	l.Info().Str("key", key).Msg("Cache entry evicted")
	c.JSON(OK, gin.H{"evicted": key})
}
