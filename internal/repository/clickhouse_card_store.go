package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"Foresight/internal/domain/models"
	domrepo "Foresight/internal/domain/repository"
	applogger "Foresight/pkg/logger"
)

const cardsTable = "forecast_cards"

// CardSchema returns the DDL for the card history table.
func CardSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            id               String,
            market_url       String,
            mode             LowCardinality(String),
            probability      Float64,
            evidence_count   UInt32,
            session_id       String,
            customer_id      String,
            critique_skipped UInt8,
            duration_ms      Int64,
            created_at       DateTime64(3, 'UTC'),
            payload          String
        ) ENGINE = ReplacingMergeTree
        ORDER BY (market_url, created_at, id)`, database, cardsTable),
	}
}

// CHCardStore implements CardStore backed by ClickHouse. The full card is
// kept as JSON in payload; the other columns exist for querying.
type CHCardStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCardStore(db *sql.DB, database string, l *applogger.Logger) *CHCardStore {
	table := cardsTable
	if database != "" {
		table = database + "." + cardsTable
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHCardStore{db: db, table: table, l: l}
}

var _ domrepo.CardStore = (*CHCardStore)(nil)

func (s *CHCardStore) Save(ctx context.Context, card *models.ForecastCard) error {
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	var skipped uint8
	if card.Metadata.CritiqueSkipped {
		skipped = 1
	}

	q := fmt.Sprintf(`INSERT INTO %s (id, market_url, mode, probability, evidence_count, session_id, customer_id, critique_skipped, duration_ms, created_at, payload)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		card.ID,
		card.MarketURL,
		string(card.Mode),
		card.Probability,
		uint32(len(card.Evidence)),
		card.Metadata.SessionID,
		card.Metadata.CustomerID,
		skipped,
		card.Metadata.DurationMs,
		card.Metadata.CompletedAt,
		string(payload),
	)
	if err != nil {
		s.l.Error("clickhouse save card error",
			applogger.String("card_id", card.ID),
			applogger.Error(err))
		return fmt.Errorf("save card: %w", err)
	}
	return nil
}

func (s *CHCardStore) Get(ctx context.Context, id string) (*models.ForecastCard, error) {
	q := fmt.Sprintf("SELECT payload FROM %s WHERE id = ? LIMIT 1", s.table)
	var payload string
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return decodeCard(payload)
}

// ListByMarket returns the newest cards for a market first.
func (s *CHCardStore) ListByMarket(ctx context.Context, marketURL string, limit int) ([]*models.ForecastCard, error) {
	q := fmt.Sprintf(`SELECT payload FROM %s
        WHERE market_url = ?
        ORDER BY created_at DESC, id ASC
        LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, marketURL, limit)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ForecastCard, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		card, err := decodeCard(payload)
		if err != nil {
			s.l.Warn("skipping undecodable card", applogger.Error(err))
			continue
		}
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return out, nil
}

func (s *CHCardStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func decodeCard(payload string) (*models.ForecastCard, error) {
	var card models.ForecastCard
	if err := json.Unmarshal([]byte(payload), &card); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}
	return &card, nil
}
