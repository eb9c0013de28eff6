package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"Foresight/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCard(id string) *models.ForecastCard {
	return &models.ForecastCard{
		ID:          id,
		MarketURL:   "https://polymarket.com/event/rain",
		Probability: 0.62,
		Rationale:   "Pooled 1 evidence items across 1 clusters; estimate 62.0%.",
		Mode:        models.ModeFast,
		Evidence: []models.EvidenceItem{{
			ID: "ev-abc", Topic: "weather", Claim: "front arriving", Provenance: "https://wx.example", Probability: 0.62, Weight: 1,
		}},
		Metadata: models.CardMetadata{
			SessionID:   "s-1",
			CompletedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			DurationMs:  1200,
		},
	}
}

func newMockStore(t *testing.T) (*CHCardStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCHCardStore(db, "foresight", nil), mock
}

func TestCHCardStoreSave(t *testing.T) {
	store, mock := newMockStore(t)
	card := sampleCard("card-1")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO foresight.forecast_cards")).
		WithArgs("card-1", card.MarketURL, "fast", 0.62, sqlmock.AnyArg(), "s-1", "", sqlmock.AnyArg(), sqlmock.AnyArg(), card.Metadata.CompletedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), card))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHCardStoreSaveError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO foresight.forecast_cards")).
		WillReturnError(errors.New("table is read-only"))

	err := store.Save(context.Background(), sampleCard("card-1"))
	assert.ErrorContains(t, err, "save card")
}

func TestCHCardStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	payload, err := json.Marshal(sampleCard("card-2"))
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM foresight.forecast_cards WHERE id = ?")).
		WithArgs("card-2").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(string(payload)))

	card, err := store.Get(context.Background(), "card-2")
	require.NoError(t, err)
	assert.Equal(t, "card-2", card.ID)
	assert.Equal(t, 0.62, card.Probability)
	require.Len(t, card.Evidence, 1)
	assert.Equal(t, "ev-abc", card.Evidence[0].ID)
}

func TestCHCardStoreGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM foresight.forecast_cards")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrCardNotFound)
}

func TestCHCardStoreListByMarket(t *testing.T) {
	store, mock := newMockStore(t)
	a, _ := json.Marshal(sampleCard("card-a"))
	b, _ := json.Marshal(sampleCard("card-b"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM foresight.forecast_cards")).
		WithArgs("https://polymarket.com/event/rain", 10).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).
			AddRow(string(a)).
			AddRow("{not json").
			AddRow(string(b)))

	cards, err := store.ListByMarket(context.Background(), "https://polymarket.com/event/rain", 10)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "card-a", cards[0].ID)
	assert.Equal(t, "card-b", cards[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardSchema(t *testing.T) {
	stmts := CardSchema("foresight")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "foresight.forecast_cards")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}
