package models

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	gorm.Model
	Subject string `gorm:"uniqueIndex"` // "sub" claim of the identity provider
	Name    string
	Email   string
	Roles   string // multi-roles splitted by " "
}

func (u *User) roleSet() *set.Set[string] {
	return set.From(strings.Fields(u.Roles))
}

func (u *User) HasRole(role string) bool {
	return u.roleSet().Contains(role)
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Promote replaces the user role with admin, other roles are kept.
func (u *User) Promote() {
	roles := u.roleSet()
	roles.Remove(RoleUser)
	roles.Insert(RoleAdmin)

	s := roles.Slice()
	slices.Sort(s)
	u.Roles = strings.Join(s, " ")
}
