// Package invite exposes invitation codes and admin promotion over HTTP.
package invite

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/charleshuang3/invitegate/internal/handlers/middleware"
	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/promotion"
)

var (
	logger = log.With().Str("component", "invite-handlers").Logger()
)

// Promoter is the invitation workflow used by the handlers.
type Promoter interface {
	GenerateCode(ctx context.Context, opts promotion.GenerateOptions) (*models.Invitation, error)
	Redeem(ctx context.Context, userID uint, code string) (bool, error)
	ListCodes(ctx context.Context) ([]models.Invitation, error)
	ListRedemptions(ctx context.Context, code string) ([]models.Redemption, error)
}

type Handlers struct {
	promoter Promoter
}

func NewHandlers(promoter Promoter) *Handlers {
	return &Handlers{
		promoter: promoter,
	}
}

// RegisterHandlers registers user routes on rg and admin routes on admin.
// Both groups must be behind the auth middleware, admin also behind the
// admin role check.
func (h *Handlers) RegisterHandlers(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	rg.GET("/me", h.handleMe)
	rg.POST("/invitations/redeem", h.handleRedeem)

	admin.GET("/invitations", h.handleListInvitations)
	admin.POST("/invitations", h.handleGenerateInvitation)
	admin.GET("/invitations/:code/redemptions", h.handleListRedemptions)
}

type userResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Roles string `json:"roles"`
}

func (h *Handlers) handleMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, &userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Roles: user.Roles,
	})
}

type invitationResponse struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy uint      `json:"created_by,omitempty"`
	UsedCount uint      `json:"used_count"`
	MaxUses   uint      `json:"max_uses"`
	Exhausted bool      `json:"exhausted"`
}

func toInvitationResponse(inv models.Invitation) *invitationResponse {
	return &invitationResponse{
		Code:      inv.Code,
		CreatedAt: inv.CreatedAt,
		CreatedBy: inv.CreatedBy,
		UsedCount: inv.UseCount,
		MaxUses:   inv.MaxUses,
		Exhausted: inv.Exhausted(),
	}
}

func toInvitationResponses(invs []models.Invitation) []*invitationResponse {
	return lo.Map(invs, func(inv models.Invitation, _ int) *invitationResponse {
		return toInvitationResponse(inv)
	})
}

type redemptionResponse struct {
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
