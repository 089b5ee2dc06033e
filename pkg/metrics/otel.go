package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// OTELClient records measurements on an in-process meter provider.
// Integer values feed counters, floating point values feed histograms.
type OTELClient struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	meter    metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

func NewOTELClient(serviceName string) *OTELClient {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return &OTELClient{
		provider:   provider,
		reader:     reader,
		meter:      provider.Meter(serviceName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (c *OTELClient) Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue) {
	opt := metric.WithAttributes(attributes...)

	switch v := value.(type) {
	case int:
		if counter := c.counter(key); counter != nil {
			counter.Add(ctx, int64(v), opt)
		}
	case int64:
		if counter := c.counter(key); counter != nil {
			counter.Add(ctx, v, opt)
		}
	case float64:
		if histogram := c.histogram(key); histogram != nil {
			histogram.Record(ctx, v, opt)
		}
	}
}

func (c *OTELClient) counter(key string) metric.Int64Counter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, ok := c.counters[key]; ok {
		return counter
	}

	counter, err := RegisterInt64Counter(c.meter, Descriptor{Description: key, Unit: "1"}, key)
	if err != nil {
		return nil
	}

	c.counters[key] = counter

	return counter
}

func (c *OTELClient) histogram(key string) metric.Float64Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, ok := c.histograms[key]; ok {
		return histogram
	}

	unit := "1"
	if strings.HasSuffix(key, "duration") {
		unit = "s"
	}

	histogram, err := RegisterFloat64Histogram(c.meter, Descriptor{Description: key, Unit: unit}, key)
	if err != nil {
		return nil
	}

	c.histograms[key] = histogram

	return histogram
}

// Handler serves the current snapshot of every instrument as JSON.
func (c *OTELClient) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := c.reader.Collect(r.Context(), &rm); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rm.ScopeMetrics)
	})
}

func (c *OTELClient) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}
