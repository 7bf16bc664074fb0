package storage

import (
	"context"

	"gorm.io/gorm/clause"
)

// AddSymbol inserts the pair, ignoring an existing row.
func (c *Client) AddSymbol(ctx context.Context, subscriberID int64, symbol string) error {
	record := &WatchlistRecord{SubscriberID: subscriberID, Symbol: symbol}
	return c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscriber_id"}, {Name: "symbol"}},
		DoNothing: true,
	}).Create(record).Error
}

func (c *Client) RemoveSymbol(ctx context.Context, subscriberID int64, symbol string) error {
	return c.DB.WithContext(ctx).
		Where("subscriber_id = ? AND symbol = ?", subscriberID, symbol).
		Delete(&WatchlistRecord{}).Error
}

// LoadAll returns every watchlist keyed by subscriber, symbols in insertion order.
func (c *Client) LoadAll(ctx context.Context) (map[int64][]string, error) {
	var records []WatchlistRecord
	if err := c.DB.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	out := make(map[int64][]string)
	for _, r := range records {
		out[r.SubscriberID] = append(out[r.SubscriberID], r.Symbol)
	}
	return out, nil
}
