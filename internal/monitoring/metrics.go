package monitoring

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stablemint/stablemint/internal/engine"
)

// Config defines the metrics exporter configuration.
type Config struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Namespace  string `mapstructure:"namespace"`
}

// Exporter serves Prometheus metrics for one engine, fed by the engine's
// event stream.
type Exporter struct {
	logger   *zap.Logger
	config   Config
	registry *prometheus.Registry
	server   *http.Server

	deposits     *prometheus.CounterVec
	redemptions  *prometheus.CounterVec
	mints        prometheus.Counter
	burns        prometheus.Counter
	liquidations *prometheus.CounterVec

	collateralSeized *prometheus.CounterVec
	totalDebt        prometheus.Gauge
}

// NewExporter creates an exporter with its own registry.
func NewExporter(logger *zap.Logger, config Config) *Exporter {
	if config.ListenAddr == "" {
		config.ListenAddr = ":9090"
	}
	if config.Namespace == "" {
		config.Namespace = "stablemint"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	e := &Exporter{
		logger:   logger,
		config:   config,
		registry: registry,
		deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "collateral_deposits_total",
			Help:      "Committed collateral deposits by token.",
		}, []string{"token"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "collateral_redemptions_total",
			Help:      "Committed collateral redemptions by token.",
		}, []string{"token"}),
		mints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "debt_mints_total",
			Help:      "Committed debt mint operations.",
		}),
		burns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "debt_burns_total",
			Help:      "Committed debt burn operations.",
		}),
		liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "liquidations_total",
			Help:      "Committed liquidations by collateral token.",
		}, []string{"token"}),
		collateralSeized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "collateral_seized_units",
			Help:      "Collateral units seized by liquidations, 18-decimal scale.",
		}, []string{"token"}),
		totalDebt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "total_debt_units",
			Help:      "Outstanding stablecoin debt, 18-decimal scale.",
		}),
	}

	registry.MustRegister(
		e.deposits, e.redemptions, e.mints, e.burns,
		e.liquidations, e.collateralSeized, e.totalDebt,
	)
	return e
}

// Watch consumes engine events until the context ends. Run it in its own
// goroutine.
func (e *Exporter) Watch(ctx context.Context, events <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.record(ev)
		}
	}
}

func (e *Exporter) record(ev interface{}) {
	switch ev := ev.(type) {
	case engine.EventCollateralDeposited:
		e.deposits.WithLabelValues(ev.Token).Inc()
	case engine.EventCollateralRedeemed:
		e.redemptions.WithLabelValues(ev.Token).Inc()
	case engine.EventDebtMinted:
		e.mints.Inc()
		e.totalDebt.Add(scaledUnits(ev.Amount))
	case engine.EventDebtBurned:
		e.burns.Inc()
		e.totalDebt.Sub(scaledUnits(ev.Amount))
	case engine.EventLiquidation:
		// The debt reduction already arrived via the burn event the same
		// liquidation emitted.
		e.liquidations.WithLabelValues(ev.Token).Inc()
		e.collateralSeized.WithLabelValues(ev.Token).Add(scaledUnits(ev.CollateralSeized))
	}
}

// scaledUnits renders an 18-decimal fixed-point amount as a float for
// gauge arithmetic. Precision loss is acceptable for monitoring.
func scaledUnits(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amount),
		new(big.Float).SetInt(engine.PrecisionScale),
	).Float64()
	return f
}

// Start serves the /metrics endpoint until Stop.
func (e *Exporter) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))

	e.server = &http.Server{
		Addr:         e.config.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	e.logger.Info("Starting metrics exporter", zap.String("listen_addr", e.config.ListenAddr))
	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error("Metrics server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the metrics server down.
func (e *Exporter) Stop(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(ctx)
}
