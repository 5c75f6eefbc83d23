package models

import "time"

type Invitation struct {
	Code      string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy uint // 0 if generated from invitectl
	UseCount  uint
	MaxUses   uint
}

// Exhausted reports whether every use of the invitation has been consumed.
func (i *Invitation) Exhausted() bool {
	return i.UseCount >= i.MaxUses
}

// Remaining returns how many more times the invitation can be redeemed.
func (i *Invitation) Remaining() uint {
	if i.Exhausted() {
		return 0
	}
	return i.MaxUses - i.UseCount
}
