package actions

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/bunkercoin/dashboard_api/service"
)

// GetLocks godoc
// swagger:route GET /locks locks get_locks
// Lock summary
//
// Every lock of the token grouped by category. Pass uncached=1 to refresh synchronously.
//
//	Produces:
//	- application/json
//
//	Schemes: http, https
//
//	Responses:
//	  200: LockSummary
//	  503: RequestErrorResp
func (actions *Actions) GetLocks(c *gin.Context) {
	data, origin, err := actions.service.GetLocks(c.Request.Context(), isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.Locks.MaxAge, err)
}

// GetBurned godoc
// swagger:route GET /burned token get_burned
// Burned supply
//
//	Responses:
//	  200: Amount
//	  503: RequestErrorResp
func (actions *Actions) GetBurned(c *gin.Context) {
	data, origin, err := actions.service.GetBurned(c.Request.Context(), isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.Burned.MaxAge, err)
}

// GetPrice godoc
// swagger:route GET /price market get_price
// Current price
//
//	Responses:
//	  200: PriceData
//	  503: RequestErrorResp
func (actions *Actions) GetPrice(c *gin.Context) {
	data, origin, err := actions.service.GetPrice(c.Request.Context(), isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.Price.MaxAge, err)
}

// GetHistory godoc
// swagger:route GET /history market get_history
// Daily price history
//
//	Responses:
//	  200: []PricePoint
//	  503: RequestErrorResp
func (actions *Actions) GetHistory(c *gin.Context) {
	data, origin, err := actions.service.GetHistory(c.Request.Context(), isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.History.MaxAge, err)
}

// GetHolders godoc
// swagger:route GET /holders token get_holders
// Top holders
//
// The largest token accounts. The limit defaults to 10 and is capped at 50.
//
//	Responses:
//	  200: []TokenBalance
//	  400: RequestErrorResp
//	  503: RequestErrorResp
func (actions *Actions) GetHolders(c *gin.Context) {
	limit := service.DefaultHoldersLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, BadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	data, origin, err := actions.service.GetHolders(c.Request.Context(), limit, isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.Holders.MaxAge, err)
}

// GetLiquidity godoc
// swagger:route GET /liquidity token get_liquidity
// Liquidity pools
//
//	Responses:
//	  200: LiquidityInfo
//	  503: RequestErrorResp
func (actions *Actions) GetLiquidity(c *gin.Context) {
	data, origin, err := actions.service.GetLiquidity(c.Request.Context(), isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.Liquidity.MaxAge, err)
}
