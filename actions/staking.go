package actions

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gitlab.com/bunkercoin/dashboard_api/address"
	"gitlab.com/bunkercoin/dashboard_api/featureflags"
	"gitlab.com/bunkercoin/dashboard_api/lockbuilder"
	"gitlab.com/bunkercoin/dashboard_api/model"
)

// FeatureEnableLock switches the lock transaction builder
const FeatureEnableLock = "api.staking.enable-lock"

// GetStakingOverview godoc
// swagger:route GET /staking/overview staking get_staking_overview
// Staking overview
//
// Protocol wide staking weight, APY and the offered lock durations.
//
//	Responses:
//	  200: StakingOverview
//	  503: RequestErrorResp
func (actions *Actions) GetStakingOverview(c *gin.Context) {
	data, origin, err := actions.service.GetStakingOverview(c.Request.Context(), isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.Locks.MaxAge, err)
}

// GetUserStakes godoc
// swagger:route GET /staking/stakes/{wallet} staking get_user_stakes
// Staking positions of a wallet
//
//	Responses:
//	  200: UserStakes
//	  400: RequestErrorResp
//	  503: RequestErrorResp
func (actions *Actions) GetUserStakes(c *gin.Context) {
	wallet, err := address.FromBase58(c.Param("wallet"))
	if err != nil {
		abortWithError(c, BadRequest, "Invalid wallet address")
		return
	}
	data, origin, err := actions.service.GetUserStakes(c.Request.Context(), wallet, isUncached(c))
	respond(c, data, origin, actions.cfg.Cache.Locks.MaxAge, err)
}

// BuildLock godoc
// swagger:route POST /locks/build staking build_lock
// Build lock transaction
//
// Returns an unsigned transaction that locks the given amount for the given duration.
// The wallet signs it together with the returned one-time base key.
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
//	Responses:
//	  200: UnsignedLockTransaction
//	  400: RequestErrorResp
//	  403: RequestErrorResp
//	  503: RequestErrorResp
func (actions *Actions) BuildLock(c *gin.Context) {
	if !featureflags.IsEnabled(FeatureEnableLock, true) {
		abortWithError(c, AccessDenied, "Lock creation is disabled")
		return
	}
	req := &model.BuildLockRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, BadRequest, "Invalid request body")
		return
	}

	tx, err := actions.builder.Build(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(OK, tx)
	case errors.Is(err, lockbuilder.ErrInvalidWallet):
		abortWithError(c, BadRequest, "Invalid wallet address")
	case errors.Is(err, lockbuilder.ErrInvalidAmount):
		abortWithError(c, BadRequest, "Invalid amount")
	case errors.Is(err, lockbuilder.ErrInvalidDuration):
		abortWithError(c, BadRequest, "Invalid duration, expected one of 1M, 3M, 6M, 12M")
	default:
		abortUnavailable(c, err)
	}
}
