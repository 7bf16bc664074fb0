package storage

import "time"

// WatchlistRecord is one symbol on one subscriber's watchlist.
type WatchlistRecord struct {
	ID uint `gorm:"primaryKey"`

	SubscriberID int64  `gorm:"not null;index:idx_watchlist_subscriber_symbol,unique"`
	Symbol       string `gorm:"type:varchar(32);not null;index:idx_watchlist_subscriber_symbol,unique;index:idx_watchlist_symbol"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (WatchlistRecord) TableName() string {
	return "watchlist_record"
}
