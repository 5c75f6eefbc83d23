package storage

import (
	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/models"
)

func AddRedemption(db *gormw.DB, redemption *models.Redemption) error {
	return db.Create(redemption).Error
}

func ListRedemptionsByCode(db *gormw.DB, code string) ([]models.Redemption, error) {
	res := []models.Redemption{}
	if err := db.Where("code = ?", code).Order("id ASC").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
