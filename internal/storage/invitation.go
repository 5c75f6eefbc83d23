package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/models"
)

func GetInvitationByCode(db *gormw.DB, code string) (*models.Invitation, error) {
	res := &models.Invitation{}
	if err := db.Where("code = ?", code).First(res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func AddInvitation(db *gormw.DB, invitation *models.Invitation) error {
	return db.Create(invitation).Error
}

// ListInvitations returns all invitations, oldest first.
func ListInvitations(db *gormw.DB) ([]models.Invitation, error) {
	res := []models.Invitation{}
	if err := db.Order("created_at ASC").Order("code ASC").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// ConsumeInvitation increments the use count of the invitation only if it
// still has a use left. It returns false when no row was updated, which
// means the code does not exist or is exhausted.
func ConsumeInvitation(db *gormw.DB, code string) (bool, error) {
	res := db.Model(&models.Invitation{}).
		Where("code = ? AND use_count < max_uses", code).
		Updates(map[string]any{
			"use_count":  gorm.Expr("use_count + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteExhaustedInvitations deletes exhausted invitations whose last use is
// before the given time.
func DeleteExhaustedInvitations(db *gormw.DB, before time.Time) (int64, error) {
	res := db.Where("use_count >= max_uses AND updated_at < ?", before).Delete(&models.Invitation{})
	return res.RowsAffected, res.Error
}
