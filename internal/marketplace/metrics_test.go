package marketplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"realticket/internal/domain"
	"realticket/internal/ledger"
)

// counterValue sums the points of counter whose attributes include want.
func counterValue(t *testing.T, reader sdkmetric.Reader, counter string, want attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != counter {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is %T", counter, m.Data)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(want.Key); ok && v == want.Value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestSalesAndRejectionCounters(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	svc, _ := newTestService(t, func(c *Config) { c.MeterProvider = provider })

	id := buy(t, svc, alice)
	buy(t, svc, bob)
	assert.Equal(t, int64(2), counterValue(t, reader, "realticket.sales", attribute.String("market", "primary")))

	require.NoError(t, svc.ListForResale(ctx, alice, id, basePrice))
	require.NoError(t, svc.ResalePurchase(ctx, ledger.Call{Caller: carol, Value: amount(2e16)}, id, alice))
	assert.Equal(t, int64(1), counterValue(t, reader, "realticket.sales", attribute.String("market", "resale")))

	_, err := svc.PrimaryPurchase(ctx, ledger.Call{Caller: carol, Value: amount(1)})
	require.ErrorIs(t, err, domain.ErrInsufficientValue)
	assert.ErrorIs(t, svc.UseTicket(ctx, alice, id), domain.ErrUnauthorized)

	assert.Equal(t, int64(1), counterValue(t, reader, "realticket.rejections", attribute.String("reason", "insufficient_value")))
	assert.Equal(t, int64(1), counterValue(t, reader, "realticket.rejections", attribute.String("reason", "unauthorized")))
	assert.Equal(t, int64(2), counterValue(t, reader, "realticket.sales", attribute.String("market", "primary")))
}
