package actions

import (
	"context"

	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/lockbuilder"
	"gitlab.com/bunkercoin/dashboard_api/service"
)

// Actions structure
type Actions struct {
	ctx     context.Context
	cfg     config.Config
	service *service.Service
	builder *lockbuilder.Builder
}

// NewActions constructor
func NewActions(ctx context.Context, cfg config.Config, srv *service.Service, builder *lockbuilder.Builder) *Actions {
	return &Actions{
		ctx:     ctx,
		cfg:     cfg,
		service: srv,
		builder: builder,
	}
}
