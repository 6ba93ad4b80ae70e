package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrelay/internal/external"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := []struct {
		level   string
		debugOn bool
		warnOn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true}, // unknown levels fall back to info
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger := newLogger(tc.level)
			assert.Equal(t, tc.debugOn, logger.Enabled(context.Background(), -4))
			assert.Equal(t, tc.warnOn, logger.Enabled(context.Background(), 4))
		})
	}
}

func TestProviderProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entity":"collection","count":0,"items":[]}`))
	}))
	defer srv.Close()

	client := external.NewRazorpayClient(srv.Client(), external.RazorpayClientConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		BaseURL:   srv.URL,
	})

	probe := providerProbe{client: client}
	assert.Equal(t, "razorpay", probe.Name())
	require.NoError(t, probe.Check(context.Background()))
}
