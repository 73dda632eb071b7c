package model

import "gitlab.com/bunkercoin/dashboard_api/address"

// BuildLockRequest is the body of the lock transaction builder endpoint
type BuildLockRequest struct {
	Wallet   string `json:"wallet" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Duration string `json:"duration" binding:"required"`
}

// UnsignedLockTransaction is returned for client side signing
// swagger:model UnsignedLockTransaction
type UnsignedLockTransaction struct {
	Transaction          string              `json:"transaction"`
	Message              string              `json:"message"`
	Signers              []address.PublicKey `json:"signers"`
	BaseKey              address.PublicKey   `json:"baseKey"`
	BaseSecret           string              `json:"baseSecret"`
	Escrow               address.PublicKey   `json:"escrow"`
	EscrowMetadata       address.PublicKey   `json:"escrowMetadata"`
	Title                string              `json:"title"`
	Amount               Amount              `json:"amount"`
	DurationCode         string              `json:"duration"`
	StartTime            int64               `json:"startTime"`
	EndTime              int64               `json:"endTime"`
	RecentBlockhash      address.PublicKey   `json:"recentBlockhash"`
	LastValidBlockHeight uint64              `json:"lastValidBlockHeight"`
}
