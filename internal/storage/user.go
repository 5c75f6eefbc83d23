package storage

import (
	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/models"
)

func GetUserByID(db *gormw.DB, id uint) (*models.User, error) {
	user := &models.User{}
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserBySubject(db *gormw.DB, subject string) (*models.User, error) {
	user := &models.User{}
	if err := db.Where("subject = ?", subject).First(&user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func CreateUser(db *gormw.DB, user *models.User) error {
	if user.Roles == "" {
		user.Roles = models.RoleUser
	}
	return db.Create(user).Error
}

// GetOrCreateUserBySubject returns the local account mirroring the identity
// subject, creating it with the user role on first sight. Profile fields are
// refreshed when the identity provider reports new values.
func GetOrCreateUserBySubject(db *gormw.DB, subject, email, name string) (*models.User, error) {
	user := &models.User{}
	err := db.Where(models.User{Subject: subject}).
		Attrs(models.User{Email: email, Name: name, Roles: models.RoleUser}).
		FirstOrCreate(user).Error
	if err != nil {
		// lost a first-sight race with another request of the same subject
		if existing, getErr := GetUserBySubject(db, subject); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	updates := map[string]any{}
	if email != "" && email != user.Email {
		updates["email"] = email
		user.Email = email
	}
	if name != "" && name != user.Name {
		updates["name"] = name
		user.Name = name
	}
	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return user, nil
}

// UpdateUserRoles writes back user.Roles.
func UpdateUserRoles(db *gormw.DB, user *models.User) error {
	return db.Model(user).Update("roles", user.Roles).Error
}
