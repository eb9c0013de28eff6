package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
	xhttp "Foresight/pkg/http"
	"Foresight/pkg/util"
)

// Client reads order books and trade history from the market data API.
type Client struct {
	baseURL string
	depth   int
	http    *xhttp.Client
	now     func() time.Time
}

func New(baseURL string, timeout time.Duration, depth int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		depth:   depth,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		now:     time.Now,
	}
}

var _ service.MarketData = (*Client)(nil)

type level struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

type bookResponse struct {
	Market    string  `json:"market"`
	Bids      []level `json:"bids"`
	Asks      []level `json:"asks"`
	Timestamp string  `json:"timestamp"`
}

type tradeRow struct {
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Side      string          `json:"side"`
	Timestamp string          `json:"timestamp"`
}

type tradesResponse struct {
	Trades []tradeRow `json:"trades"`
}

// OrderBook returns the book with bids sorted descending and asks ascending,
// each side truncated to the configured depth.
func (c *Client) OrderBook(ctx context.Context, market string) (models.OrderBook, error) {
	var resp bookResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/book",
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: map[string][]string{"market": {market}},
	}, &resp)
	if err != nil {
		return models.OrderBook{}, fmt.Errorf("order book %s: %w", market, err)
	}

	book := models.OrderBook{
		Market:    market,
		Bids:      c.levels(resp.Bids),
		Asks:      c.levels(resp.Asks),
		Timestamp: util.ParseTimeDefault(resp.Timestamp, c.now()),
	}
	sort.SliceStable(book.Bids, func(i, j int) bool { return book.Bids[i].Price.GreaterThan(book.Bids[j].Price) })
	sort.SliceStable(book.Asks, func(i, j int) bool { return book.Asks[i].Price.LessThan(book.Asks[j].Price) })
	book.Bids = c.truncate(book.Bids)
	book.Asks = c.truncate(book.Asks)
	return book, nil
}

// Trades returns fills inside the interval's lookback window, oldest first.
func (c *Client) Trades(ctx context.Context, market, interval string) ([]models.MarketTrade, error) {
	name, _ := util.ParseInterval(interval)
	var resp tradesResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/trades",
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: map[string][]string{"market": {market}, "interval": {name}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("trades %s: %w", market, err)
	}

	start := util.IntervalStart(name, c.now())
	out := make([]models.MarketTrade, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		if !t.Size.IsPositive() {
			continue
		}
		ts, ok := util.ParseTime(t.Timestamp)
		if ok && ts.Before(start) {
			continue
		}
		out = append(out, models.MarketTrade{
			Price:     t.Price,
			Size:      t.Size,
			Side:      strings.ToUpper(t.Side),
			Timestamp: ts,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (c *Client) levels(in []level) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(in))
	for _, l := range in {
		if !l.Size.IsPositive() {
			continue
		}
		out = append(out, models.PriceLevel{Price: l.Price, Size: l.Size})
	}
	return out
}

func (c *Client) truncate(levels []models.PriceLevel) []models.PriceLevel {
	if c.depth > 0 && len(levels) > c.depth {
		return levels[:c.depth]
	}
	return levels
}
