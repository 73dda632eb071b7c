// Package pricefeed reads the token market data from a CoinGecko style HTTP API.
package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/bunkercoin/dashboard_api/lib/httpagent"
	"gitlab.com/bunkercoin/dashboard_api/model"
	"gitlab.com/bunkercoin/dashboard_api/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrParsePriceData is returned when the upstream payload misses an expected field
var ErrParsePriceData = errors.New("unable to parse price data")

// HistoryTimeFormat labels each history point
const HistoryTimeFormat = "Jan 2"

// Config of the price feed
type Config struct {
	URL         string        `mapstructure:"url"`
	CoinID      string        `mapstructure:"coin_id"`
	Currency    string        `mapstructure:"currency"`
	HistoryDays int           `mapstructure:"history_days"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

type getFunc func(ctx context.Context, url string) (int, []byte, error)

// App reads current price and history
type App struct {
	cfg Config
	get getFunc
}

// NewApp creates a price feed reader
func NewApp(cfg Config) *App {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &App{cfg: cfg, get: httpagent.GetWithContext}
}

// Timeout applied to each price feed call
func (app *App) Timeout() time.Duration {
	return app.cfg.Timeout
}

func (app *App) priceURL() string {
	q := url.Values{}
	q.Set("ids", app.cfg.CoinID)
	q.Set("vs_currencies", app.cfg.Currency)
	q.Set("include_24hr_vol", "true")
	q.Set("include_24hr_change", "true")
	q.Set("include_market_cap", "true")
	return fmt.Sprintf("%s/simple/price?%s", app.cfg.URL, q.Encode())
}

func (app *App) historyURL(daily bool) string {
	q := url.Values{}
	q.Set("vs_currency", app.cfg.Currency)
	q.Set("days", fmt.Sprint(app.cfg.HistoryDays))
	if daily {
		q.Set("interval", "daily")
	}
	return fmt.Sprintf("%s/coins/%s/market_chart?%s", app.cfg.URL, url.PathEscape(app.cfg.CoinID), q.Encode())
}

func (app *App) fetch(ctx context.Context, endpoint, target string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, app.cfg.Timeout)
	defer cancel()
	code, body, err := app.get(ctx, target)
	switch {
	case err != nil:
		monitor.PriceFeedRequests.WithLabelValues(endpoint, "error").Inc()
	case code != http.StatusOK:
		monitor.PriceFeedRequests.WithLabelValues(endpoint, fmt.Sprint(code)).Inc()
	default:
		monitor.PriceFeedRequests.WithLabelValues(endpoint, "ok").Inc()
	}
	return code, body, err
}

// GetPrice returns the current market snapshot
func (app *App) GetPrice(ctx context.Context) (*model.PriceData, error) {
	code, body, err := app.fetch(ctx, "simple_price", app.priceURL())
	if err != nil {
		return nil, errors.Wrap(err, "price request failed")
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("invalid status code: %d (%s)", code, http.StatusText(code))
	}

	// fields are keyed by the quote currency, e.g. usd, usd_24h_change
	coins := map[string]map[string]*float64{}
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, errors.Wrap(ErrParsePriceData, err.Error())
	}
	coin, ok := coins[app.cfg.CoinID]
	if !ok {
		return nil, errors.Wrapf(ErrParsePriceData, "coin %s missing", app.cfg.CoinID)
	}
	currency := strings.ToLower(app.cfg.Currency)
	price := coin[currency]
	if price == nil {
		return nil, errors.Wrap(ErrParsePriceData, "price missing")
	}
	return &model.PriceData{
		Price:          *price,
		PriceChange24h: valueOf(coin[currency+"_24h_change"]),
		Volume24h:      valueOf(coin[currency+"_24h_vol"]),
		MarketCap:      valueOf(coin[currency+"_market_cap"]),
	}, nil
}

// GetHistory returns the daily price series of the configured trailing window. A
// rate limited daily request is retried once without the interval parameter.
func (app *App) GetHistory(ctx context.Context) ([]model.PricePoint, error) {
	code, body, err := app.fetch(ctx, "market_chart", app.historyURL(true))
	if err == nil && (code == http.StatusTooManyRequests || code == http.StatusForbidden) {
		log.Warn().Str("section", "pricefeed").Str("action", "history").Int("status", code).
			Msg("Daily history refused, retrying without interval")
		code, body, err = app.fetch(ctx, "market_chart", app.historyURL(false))
	}
	if err != nil {
		return nil, errors.Wrap(err, "history request failed")
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("invalid status code: %d (%s)", code, http.StatusText(code))
	}

	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, errors.Wrap(ErrParsePriceData, err.Error())
	}
	if chart.Prices == nil {
		return nil, errors.Wrap(ErrParsePriceData, "prices missing")
	}
	points := make([]model.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		ts := time.Unix(0, int64(p[0])*int64(time.Millisecond)).UTC()
		points = append(points, model.PricePoint{Time: ts.Format(HistoryTimeFormat), Price: p[1]})
	}
	return points, nil
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
