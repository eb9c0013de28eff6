package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Mode selects the pipeline variant.
type Mode string

const (
	ModeFast          Mode = "fast"
	ModeComprehensive Mode = "comprehensive"
)

// ErrInvalidRequest marks a malformed AnalysisRequest.
var ErrInvalidRequest = errors.New("invalid analysis request")

// AnalysisRequest is the immutable input of one pipeline run.
type AnalysisRequest struct {
	MarketURL       string             `json:"market_url"`
	Mode            Mode               `json:"mode,omitempty"`
	SessionID       string             `json:"session_id,omitempty"`
	CustomerID      string             `json:"customer_id,omitempty"`
	RhoByCluster    map[string]float64 `json:"rho_by_cluster,omitempty"`
	Drivers         []string           `json:"drivers,omitempty"`
	HistoryInterval string             `json:"history_interval,omitempty"`
	WithBooks       bool               `json:"with_books,omitempty"`
	WithTrades      bool               `json:"with_trades,omitempty"`
}

// Validate only checks the market identifier; unknown modes fall back to fast
// and are never an error.
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.MarketURL) == "" {
		return fmt.Errorf("%w: market_url is required", ErrInvalidRequest)
	}
	return nil
}

// Fingerprint is a stable digest of every field, used as a cache key.
func (r AnalysisRequest) Fingerprint() string {
	var b strings.Builder
	b.WriteString(r.MarketURL)
	b.WriteByte('|')
	b.WriteString(string(r.Mode))
	b.WriteByte('|')
	b.WriteString(r.SessionID)
	b.WriteByte('|')
	b.WriteString(r.CustomerID)
	b.WriteByte('|')
	b.WriteString(strings.Join(r.Drivers, ","))
	b.WriteByte('|')
	b.WriteString(r.HistoryInterval)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(r.WithBooks))
	b.WriteString(strconv.FormatBool(r.WithTrades))

	keys := make([]string, 0, len(r.RhoByCluster))
	for k := range r.RhoByCluster {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(r.RhoByCluster[k], 'g', -1, 64))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ProgressEvent is emitted to the caller's observer on each stage transition.
type ProgressEvent struct {
	Stage   string                 `json:"stage"`
	Details map[string]interface{} `json:"details,omitempty"`
	At      time.Time              `json:"at"`
}
