package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderBookSortsAndTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "mkt-1", r.URL.Query().Get("market"))
		_, _ = w.Write([]byte(`{
			"bids":[{"price":"0.55","size":"10"},{"price":"0.58","size":"5"},{"price":"0.57","size":"0"},{"price":"0.50","size":"1"}],
			"asks":[{"price":"0.65","size":"3"},{"price":0.61,"size":2}],
			"timestamp":"2026-01-02T03:04:05Z"
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 2)
	book, err := c.OrderBook(context.Background(), "mkt-1")
	require.NoError(t, err)

	require.Len(t, book.Bids, 2)
	assert.Equal(t, "0.58", book.Bids[0].Price.String())
	assert.Equal(t, "0.55", book.Bids[1].Price.String())
	require.Len(t, book.Asks, 2)
	assert.Equal(t, "0.61", book.Asks[0].Price.String())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), book.Timestamp.UTC())
}

func TestTradesFiltersWindow(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`{"trades":[
			{"price":"0.70","size":"4","side":"buy","timestamp":"2026-01-10T11:50:00Z"},
			{"price":"0.60","size":"2","side":"sell","timestamp":"2026-01-10T11:30:00Z"},
			{"price":"0.10","size":"9","side":"sell","timestamp":"2026-01-09T00:00:00Z"},
			{"price":"0.90","size":"0","side":"buy","timestamp":"2026-01-10T11:59:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 0)
	c.now = func() time.Time { return now }

	trades, err := c.Trades(context.Background(), "mkt-1", "1H")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "0.6", trades[0].Price.String())
	assert.Equal(t, "SELL", trades[0].Side)
	assert.Equal(t, "BUY", trades[1].Side)
}

func TestOrderBookHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, 5).OrderBook(context.Background(), "missing")
	assert.Error(t, err)
}
