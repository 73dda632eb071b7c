package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, handler http.HandlerFunc) *App {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewApp(Config{URL: srv.URL + "/", CoinID: "bunkercoin", Timeout: time.Second})
}

func TestGetPrice(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		price   float64
		change  float64
		wantErr error
	}{
		{
			name:   "full payload",
			status: http.StatusOK,
			body:   `{"bunkercoin":{"usd":0.0123,"usd_24h_change":-2.5,"usd_24h_vol":1000,"usd_market_cap":12300000}}`,
			price:  0.0123,
			change: -2.5,
		},
		{
			name:   "optional fields absent",
			status: http.StatusOK,
			body:   `{"bunkercoin":{"usd":1}}`,
			price:  1,
		},
		{
			name:    "coin missing",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: ErrParsePriceData,
		},
		{
			name:    "price missing",
			status:  http.StatusOK,
			body:    `{"bunkercoin":{"usd_24h_vol":1}}`,
			wantErr: ErrParsePriceData,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: ErrParsePriceData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/simple/price", r.URL.Path)
				require.Equal(t, "bunkercoin", r.URL.Query().Get("ids"))
				require.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			data, err := app.GetPrice(context.Background())
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.price, data.Price)
			require.Equal(t, tt.change, data.PriceChange24h)
		})
	}
}

func TestGetPriceReadsConfiguredCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "eur", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"bunkercoin":{"eur":0.011,"eur_24h_change":1.5,"eur_24h_vol":900,"eur_market_cap":11000000,"usd":0.0123}}`))
	}))
	defer srv.Close()
	app := NewApp(Config{URL: srv.URL + "/", CoinID: "bunkercoin", Currency: "eur", Timeout: time.Second})

	data, err := app.GetPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0.011, data.Price)
	require.Equal(t, 1.5, data.PriceChange24h)
	require.Equal(t, 900.0, data.Volume24h)
	require.Equal(t, 11000000.0, data.MarketCap)
}

func TestGetPriceMissingConfiguredCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bunkercoin":{"usd":0.0123}}`))
	}))
	defer srv.Close()
	app := NewApp(Config{URL: srv.URL + "/", CoinID: "bunkercoin", Currency: "eur", Timeout: time.Second})

	_, err := app.GetPrice(context.Background())
	require.True(t, errors.Is(err, ErrParsePriceData), "got %v", err)
}

func TestGetPriceRateLimited(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := app.GetPrice(context.Background())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "429"))
}

func TestGetHistory(t *testing.T) {
	var calls []string
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/bunkercoin/market_chart", r.URL.Path)
		calls = append(calls, r.URL.Query().Get("interval"))
		require.Equal(t, "30", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{"prices":[[1704067200000,0.01],[1704153600000,0.02]]}`))
	})
	points, err := app.GetHistory(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"daily"}, calls)
	require.Len(t, points, 2)
	require.Equal(t, "Jan 1", points[0].Time)
	require.Equal(t, "Jan 2", points[1].Time)
	require.Equal(t, 0.02, points[1].Price)
}

func TestGetHistoryFallsBackWithoutInterval(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusForbidden} {
		var calls []string
		app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
			interval := r.URL.Query().Get("interval")
			calls = append(calls, interval)
			if interval == "daily" {
				w.WriteHeader(status)
				return
			}
			_, _ = w.Write([]byte(`{"prices":[[1704067200000,0.5]]}`))
		})
		points, err := app.GetHistory(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"daily", ""}, calls)
		require.Len(t, points, 1)
	}
}

func TestGetHistoryFailures(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := app.GetHistory(context.Background())
	require.Error(t, err)

	app = newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"market_caps":[]}`))
	})
	_, err = app.GetHistory(context.Background())
	require.True(t, errors.Is(err, ErrParsePriceData))
}
