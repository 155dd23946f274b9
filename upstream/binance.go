package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chartflow/config"
	"chartflow/logger"
	"chartflow/models"

	binance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"
)

// BinanceProvider fetches klines from the Binance REST API.
type BinanceProvider struct {
	client  *binance.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewBinanceProvider builds the provider with a tuned HTTP transport and a
// client-side request limiter so backfill bursts stay under the exchange
// weight budget.
func NewBinanceProvider(cfg *config.Config) *BinanceProvider {
	log := logger.GetLogger()

	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Upstream.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Upstream.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Upstream.ConnectionPool.IdleConnTimeout,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Upstream.Timeout,
	}

	client := binance.NewClient("", "")
	client.HTTPClient = httpClient
	if cfg.Upstream.BaseURL != "" {
		client.BaseURL = cfg.Upstream.BaseURL
	}

	rps := cfg.Upstream.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Upstream.RateLimit.BurstSize
	if burst <= 0 {
		burst = rps
	}

	p := &BinanceProvider{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	log.WithComponent("binance_provider").WithFields(logger.Fields{
		"base_url":            cfg.Upstream.BaseURL,
		"timeout":             cfg.Upstream.Timeout,
		"requests_per_second": rps,
	}).Info("binance provider initialized")

	return p
}

// FetchBars pulls one page of klines for [startMs, untilMs].
func (p *BinanceProvider) FetchBars(ctx context.Context, symbol, interval string, startMs int64, limit int, untilMs int64) ([]models.Bar, error) {
	if limit <= 0 || limit > MaxPageBars {
		limit = MaxPageBars
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	started := time.Now()
	svc := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startMs).
		Limit(limit)
	if untilMs > 0 {
		svc = svc.EndTime(untilMs)
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s/%s: %w", symbol, interval, err)
	}

	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := barFromKline(k)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s/%s: %w", symbol, interval, err)
		}
		bars = append(bars, bar)
	}

	p.log.WithComponent("binance_provider").WithFields(logger.Fields{
		"symbol":      symbol,
		"interval":    interval,
		"start":       startMs,
		"until":       untilMs,
		"bars":        len(bars),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("klines fetched")

	return bars, nil
}

func barFromKline(k *binance.Kline) (models.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("volume: %w", err)
	}

	return models.Bar{
		Timestamp: k.OpenTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
