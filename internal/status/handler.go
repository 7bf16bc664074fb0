package status

import (
	"context"
	"net/http"
	"time"

	"perpscanner/internal/engine"

	"github.com/gin-gonic/gin"
)

// Home handles GET /.
func (s *Server) Home(c *gin.Context) {
	body := gin.H{
		"name":    ServiceName,
		"version": ServiceVersion,
		"status":  "starting",
		"configuration": gin.H{
			"scan_interval":          s.info.Scanner.ScanIntervalSeconds,
			"testnet":                s.info.Testnet,
			"min_volume_24h":         s.info.Scanner.MinVolume24h,
			"price_pump_threshold":   s.info.Scanner.PricePumpThresholdPct,
			"volume_spike_threshold": s.info.Scanner.VolumeSpikeThreshold,
		},
	}
	if e, ok := s.ref.Get(); ok {
		body["status"] = e.State().String()
		body["uptime_seconds"] = s.now().Sub(e.StartedAt()).Seconds()
		body["alerts_sent"] = e.AlertsSent()
	}
	c.JSON(http.StatusOK, body)
}

// Health handles GET /health. It answers 503 until the engine exists and
// after it has stopped.
func (s *Server) Health(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}

	e, ok := s.ref.Get()
	if !ok {
		body["status"] = "unhealthy"
		body["scanner_status"] = "not_initialized"
		body["api_status"] = "not_initialized"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["scanner_status"] = e.State().String()
	body["uptime_seconds"] = s.now().Sub(e.StartedAt()).Seconds()
	if e.State() == engine.StateStopped {
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()
	if _, err := s.prober.GetServerTime(ctx); err != nil {
		body["api_status"] = "error"
		body["api_error"] = err.Error()
	} else {
		body["api_status"] = "connected"
	}
	c.JSON(http.StatusOK, body)
}

// Status handles GET /status.
func (s *Server) Status(c *gin.Context) {
	sc := s.info.Scanner
	scanner := gin.H{
		"status":          "starting",
		"alerts_sent":     0,
		"symbols_tracked": 0,
	}
	if e, ok := s.ref.Get(); ok {
		scanner["status"] = e.State().String()
		scanner["start_time"] = e.StartedAt().UTC().Format(time.RFC3339)
		scanner["uptime_hours"] = s.now().Sub(e.StartedAt()).Hours()
		scanner["alerts_sent"] = e.AlertsSent()
		scanner["symbols_tracked"] = e.TrackedSymbols()
	}
	if s.sources.Subscribers != nil {
		scanner["subscribers"] = s.sources.Subscribers.Len()
	}
	if s.sources.Instruments != nil {
		scanner["perpetual_instruments"] = s.sources.Instruments.Len()
	}

	storage := "disabled"
	if s.sources.Storage != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()
		storage = "unhealthy"
		if s.sources.Storage.IsHealthy(ctx) {
			storage = "healthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"scanner": scanner,
		"configuration": gin.H{
			"scan_interval_seconds": sc.ScanIntervalSeconds,
			"bybit_testnet":         s.info.Testnet,
			"telegram_configured":   s.info.TelegramConfigured,
			"thresholds": gin.H{
				"volume_spike":              sc.VolumeSpikeThreshold,
				"price_pump":                sc.PricePumpThresholdPct,
				"price_dump":                sc.PriceDumpThresholdPct,
				"volatility":                sc.VolatilityThresholdPct,
				"breakout_lookback_periods": sc.BreakoutLookbackPeriods,
			},
			"filters": gin.H{
				"min_volume_24h":        sc.MinVolume24h,
				"min_price":             sc.MinPrice,
				"max_price":             sc.MaxPrice,
				"max_symbols_per_cycle": sc.MaxSymbolsPerCycle,
			},
		},
		"system": gin.H{
			"timestamp": s.now().UTC().Format(time.RFC3339),
			"storage":   storage,
		},
	})
}
