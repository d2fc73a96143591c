package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the business instruments recorded by the domain services.
type Metrics struct {
	ordersCreated      metric.Int64Counter
	orderItemMutations metric.Int64Counter
	invoicesIssued     metric.Int64Counter
	balanceDelta       metric.Float64Counter
	itemsRouted        metric.Int64Counter
	processesRecorded  metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New creates the business instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "millrun"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	var err error
	if m.ordersCreated, err = meter.Int64Counter("millrun_orders_created_total"); err != nil {
		return nil, err
	}
	if m.orderItemMutations, err = meter.Int64Counter("millrun_order_item_mutations_total"); err != nil {
		return nil, err
	}
	if m.invoicesIssued, err = meter.Int64Counter("millrun_invoices_issued_total"); err != nil {
		return nil, err
	}
	if m.balanceDelta, err = meter.Float64Counter("millrun_customer_balance_delta_total"); err != nil {
		return nil, err
	}
	if m.itemsRouted, err = meter.Int64Counter("millrun_production_items_routed_total"); err != nil {
		return nil, err
	}
	if m.processesRecorded, err = meter.Int64Counter("millrun_production_processes_recorded_total"); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = meter.Int64Counter("millrun_rate_limit_denied_total"); err != nil {
		return nil, err
	}
	return m, nil
}

// NewNoop returns instruments backed by the no-op provider, for tests.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordOrderCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

func (m *Metrics) RecordOrderItemMutation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.orderItemMutations.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
	)...))
}

func (m *Metrics) RecordInvoiceIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.invoicesIssued.Add(ctx, 1)
}

// RecordBalanceDelta accumulates the absolute change applied to customer
// balances, labelled by the ledger operation that caused it.
func (m *Metrics) RecordBalanceDelta(ctx context.Context, operation string, delta float64) {
	if m == nil {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.balanceDelta.Add(ctx, delta, metric.WithAttributes(FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
	)...))
}

func (m *Metrics) RecordItemsRouted(ctx context.Context, productionType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.itemsRouted.Add(ctx, int64(count), metric.WithAttributes(FilterAttributes(
		attribute.String("production_type", strings.TrimSpace(productionType)),
	)...))
}

func (m *Metrics) RecordProcessRecorded(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.processesRecorded.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
	)...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(route)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":       {},
	"production_type": {},
	"kind":            {},
	"endpoint":        {},
	"status_code":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
