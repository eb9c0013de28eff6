package repository

import (
	"context"
	"errors"
	"time"

	"Foresight/internal/domain/models"
	domrepo "Foresight/internal/domain/repository"
	"Foresight/pkg/cache"
)

// CardCache stores cards under their ID and maps request fingerprints to
// card IDs, both with the same TTL.
type CardCache struct {
	c   cache.Service
	ttl time.Duration
}

func NewCardCache(c cache.Service, ttl time.Duration) *CardCache {
	return &CardCache{c: c, ttl: ttl}
}

var _ domrepo.CardCache = (*CardCache)(nil)

func (cc *CardCache) GetByFingerprint(ctx context.Context, fp string) (*models.ForecastCard, bool, error) {
	var id string
	if err := cc.c.Get(ctx, cache.GenerateKey("card:fp", fp), &id); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return cc.GetByID(ctx, id)
}

func (cc *CardCache) GetByID(ctx context.Context, id string) (*models.ForecastCard, bool, error) {
	var card models.ForecastCard
	if err := cc.c.Get(ctx, cache.GenerateKey("card:id", id), &card); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &card, true, nil
}

// Put stores the card and, when fp is non-empty, the fingerprint mapping.
func (cc *CardCache) Put(ctx context.Context, fp string, card *models.ForecastCard) error {
	if err := cc.c.Set(ctx, cache.GenerateKey("card:id", card.ID), card, cc.ttl); err != nil {
		return err
	}
	if fp == "" {
		return nil
	}
	return cc.c.Set(ctx, cache.GenerateKey("card:fp", fp), card.ID, cc.ttl)
}
