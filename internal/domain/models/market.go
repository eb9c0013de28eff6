package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBook holds bids sorted best-first (descending) and asks best-first (ascending).
type OrderBook struct {
	Market    string       `json:"market"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

type MarketTrade struct {
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Side      string          `json:"side"` // BUY | SELL
	Timestamp time.Time       `json:"timestamp"`
}

// BookSnapshot summarizes the top of an order book.
type BookSnapshot struct {
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Mid       decimal.Decimal
	Spread    decimal.Decimal
	BidDepth  decimal.Decimal
	AskDepth  decimal.Decimal
	Imbalance decimal.Decimal // (bid-ask)/(bid+ask) depth, in [-1,1]
}

// Snapshot returns false when either side of the book is empty.
func (b OrderBook) Snapshot() (BookSnapshot, bool) {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return BookSnapshot{}, false
	}
	s := BookSnapshot{Bid: b.Bids[0].Price, Ask: b.Asks[0].Price}
	s.Mid = s.Bid.Add(s.Ask).Div(decimal.NewFromInt(2))
	s.Spread = s.Ask.Sub(s.Bid)
	for _, l := range b.Bids {
		s.BidDepth = s.BidDepth.Add(l.Size)
	}
	for _, l := range b.Asks {
		s.AskDepth = s.AskDepth.Add(l.Size)
	}
	if total := s.BidDepth.Add(s.AskDepth); total.IsPositive() {
		s.Imbalance = s.BidDepth.Sub(s.AskDepth).Div(total)
	}
	return s, true
}

// VWAP returns the volume-weighted average price; false when there is no volume.
func VWAP(trades []MarketTrade) (decimal.Decimal, decimal.Decimal, bool) {
	var notional, volume decimal.Decimal
	for _, t := range trades {
		notional = notional.Add(t.Price.Mul(t.Size))
		volume = volume.Add(t.Size)
	}
	if !volume.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	return notional.Div(volume), volume, true
}
