package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/address"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, h http.HandlerFunc) (*geoapifyResolver, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	r := NewGeoapifyResolver("key", logger.NewNopLogger()).(*geoapifyResolver)
	r.baseURL = srv.URL
	return r, &calls
}

func TestGeoapifyResolver_Resolve(t *testing.T) {
	r, calls := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "countrycode:jp", req.URL.Query().Get("filter"))
		assert.Equal(t, "渋谷区 道玄坂", req.URL.Query().Get("text"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"formatted":"東京都渋谷区道玄坂1丁目","postcode":"150-0043","state":"東京都","city":"渋谷区","suburb":"道玄坂","lat":35.65,"lon":139.69},
			{"formatted":""},
			{"formatted":"東京都渋谷区道玄坂2丁目","state":"東京都","city":"渋谷区","district":"道玄坂"}
		]}`))
	})

	got, err := r.Resolve(context.Background(), "  渋谷区   道玄坂 ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "150-0043", got[0].PostalCode)
	assert.Equal(t, "道玄坂", got[0].District)
	assert.Equal(t, 139.69, got[0].Lng)

	_, err = r.Resolve(context.Background(), "渋谷区 道玄坂")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load(), "second lookup is served from cache")
}

func TestGeoapifyResolver_Errors(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := r.Resolve(context.Background(), "大阪")
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, address.ErrEmptyAddress)

	unconfigured := NewGeoapifyResolver("", logger.NewNopLogger())
	_, err = unconfigured.Resolve(context.Background(), "大阪")
	assert.ErrorIs(t, err, ErrResolverNotConfigured)
}
