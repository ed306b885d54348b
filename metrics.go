/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// meters owns the process meter provider. Counters are read on demand
// through a manual reader, so nothing is exported in the background.
type meters struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

func newMeters() *meters {
	reader := sdkmetric.NewManualReader()

	return &meters{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		reader:   reader,
	}
}

// totals sums every int64 counter across its attribute sets, keyed by
// instrument name. Instruments that never recorded are absent.
func (m *meters) totals(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			out[md.Name] = total
		}
	}

	return out, nil
}

func (m *meters) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	return m.provider.Shutdown(ctx)
}

func serveStats(cfg *Config, m *meters, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)
		w.Header().Set("Cache-Control", "no-store")

		totals, err := m.totals(r.Context())
		if err != nil {
			errorf(cfg, err, "SERVE: Collecting stats failed")
			http.Error(w, "stats unavailable", http.StatusInternalServerError)
			return
		}

		if err := writeJSON(w, http.StatusOK, totals); err != nil {
			errs <- err
		}
	}
}
