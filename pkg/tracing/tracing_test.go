package tracing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/tracing"
)

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := tracing.Setup(context.Background(), tracing.Config{}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_EndpointURL(t *testing.T) {
	// Setup replaces the global tracer provider.
	var exports atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			exports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	shutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Endpoint:    collector.URL,
		ServiceName: "notifyhub-test",
		SampleRatio: 1,
	}, "test")
	require.NoError(t, err)

	_, span := otel.Tracer("tracing_test").Start(context.Background(), "export")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.GreaterOrEqual(t, exports.Load(), int32(1))
}

func TestSetup_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	for _, endpoint := range []string{"ftp://collector:4318", "http://"} {
		_, err := tracing.Setup(context.Background(), tracing.Config{Endpoint: endpoint}, "test")
		assert.ErrorIs(t, err, tracing.ErrSetup, endpoint)
	}
}
