package models

import "time"

// Redemption is written in the same transaction as the promotion it records.
type Redemption struct {
	ID        uint   `gorm:"primarykey"`
	Code      string `gorm:"index"` // empty for master code
	UserID    uint   `gorm:"index"`
	Master    bool
	CreatedAt time.Time
}
