package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func TestActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activity", r.URL.Path)
		assert.Equal(t, "0xwhale", r.URL.Query().Get("user"))
		assert.Equal(t, "TRADE", r.URL.Query().Get("type"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"transactionHash":"0x1","asset":"123456789012345678901234567890","usdcSize":12.5,"timestamp":1768672800},
			{"transactionHash":"0x2","proxyWallet":"0xother","usdcSize":3}
		]`))
	}))
	defer srv.Close()

	c := NewActivityClient(srv.URL+"/", srv.Client())
	trades, err := c.Activity(context.Background(), "0xwhale", 25)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "0xwhale", trades[0]["proxyWallet"])
	assert.Equal(t, "0xother", trades[1]["proxyWallet"])
	assert.Equal(t, json.Number("1768672800"), trades[0]["timestamp"])
	assert.Equal(t, json.Number("12.5"), trades[0]["usdcSize"])
}

func TestActivityStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := NewActivityClient(srv.URL, srv.Client()).Activity(context.Background(), "0xa", 10)
		srv.Close()
		require.Error(t, err)
		assert.True(t, errors.Is(err, tt.want), err.Error())
	}
}

func TestActivityBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := NewActivityClient(srv.URL, srv.Client()).Activity(context.Background(), "0xa", 0)
	assert.Error(t, err)
}
