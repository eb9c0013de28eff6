package models

// ForecastRequest is the HTTP/WebSocket body for starting an analysis.
type ForecastRequest struct {
	MarketURL       string             `json:"market_url" validate:"required,max=2048"`
	Mode            string             `json:"mode" default:"fast"`
	SessionID       string             `json:"session_id" validate:"max=128"`
	CustomerID      string             `json:"customer_id" validate:"max=128"`
	RhoByCluster    map[string]float64 `json:"rho_by_cluster" validate:"dive,gte=0,lte=1"`
	Drivers         []string           `json:"drivers" validate:"max=32,dive,required,max=256"`
	HistoryInterval string             `json:"history_interval" default:"1d" validate:"oneof=1h 6h 1d 1w max"`
	WithBooks       bool               `json:"with_books"`
	WithTrades      bool               `json:"with_trades"`
}

func (r *ForecastRequest) ToAnalysisRequest() AnalysisRequest {
	return AnalysisRequest{
		MarketURL:       r.MarketURL,
		Mode:            Mode(r.Mode),
		SessionID:       r.SessionID,
		CustomerID:      r.CustomerID,
		RhoByCluster:    r.RhoByCluster,
		Drivers:         r.Drivers,
		HistoryInterval: r.HistoryInterval,
		WithBooks:       r.WithBooks,
		WithTrades:      r.WithTrades,
	}
}

// CardListRequest is the query for listing cards of a market.
type CardListRequest struct {
	MarketURL string `query:"market_url" validate:"required"`
	Limit     int    `query:"limit" default:"20" validate:"gte=1,lte=200"`
}
