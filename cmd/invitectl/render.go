package main

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"github.com/charleshuang3/invitegate/internal/models"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	exhaustedStyle = cellStyle.Foreground(lipgloss.Color("241"))
)

func renderInvitations(invitations []models.Invitation) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CODE", "USED", "MAX", "CREATED", "LAST USED").
		Rows(lo.Map(invitations, func(inv models.Invitation, _ int) []string {
			return []string{
				inv.Code,
				strconv.FormatUint(uint64(inv.UseCount), 10),
				strconv.FormatUint(uint64(inv.MaxUses), 10),
				inv.CreatedAt.Format(time.DateTime),
				lastUsed(inv),
			}
		})...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(invitations) && invitations[row].Exhausted() {
				return exhaustedStyle
			}
			return cellStyle
		})
	return t.String()
}

func lastUsed(inv models.Invitation) string {
	if inv.UseCount == 0 {
		return "-"
	}
	return inv.UpdatedAt.Format(time.DateTime)
}

func renderRedemptions(redemptions []models.Redemption) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("USER", "REDEEMED AT").
		Rows(lo.Map(redemptions, func(r models.Redemption, _ int) []string {
			return []string{
				strconv.FormatUint(uint64(r.UserID), 10),
				r.CreatedAt.Format(time.DateTime),
			}
		})...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}
