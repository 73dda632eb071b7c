package model

import "gitlab.com/bunkercoin/dashboard_api/address"

// TokenBalance of one holder
// swagger:model TokenBalance
type TokenBalance struct {
	Address    address.PublicKey `json:"address"`
	Balance    Amount            `json:"balance"`
	Percentage float64           `json:"percentage"`
}

// LiquidityPool is the token side of one pool
type LiquidityPool struct {
	Platform string            `json:"platform"`
	Address  address.PublicKey `json:"address"`
	Amount   Amount            `json:"amount"`
}

// LiquidityInfo is the token amount held by all configured pools
// swagger:model LiquidityInfo
type LiquidityInfo struct {
	Total Amount           `json:"total"`
	Pools []*LiquidityPool `json:"pools"`
}
