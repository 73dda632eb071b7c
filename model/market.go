package model

// PriceData is the current market snapshot of the token
// swagger:model PriceData
type PriceData struct {
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
	Volume24h      float64 `json:"volume24h"`
	MarketCap      float64 `json:"marketCap"`
	High24h        float64 `json:"high24h"`
	Low24h         float64 `json:"low24h"`
}

// PricePoint is one daily close of the price history
type PricePoint struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}
