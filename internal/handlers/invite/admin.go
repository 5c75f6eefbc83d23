package invite

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/charleshuang3/invitegate/internal/handlers/middleware"
	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/promotion"
)

const (
	maxUsesLimit = 10000
)

func (h *Handlers) handleListInvitations(c *gin.Context) {
	invs, err := h.promoter.ListCodes(c.Request.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list invitations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": toInvitationResponses(invs)})
}

type handleGenerateInvitationParams struct {
	MaxUses uint `form:"max_uses" json:"max_uses"`
}

func (h *Handlers) handleGenerateInvitation(c *gin.Context) {
	params := &handleGenerateInvitationParams{}
	// body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameters"})
			return
		}
	}

	if params.MaxUses > maxUsesLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_uses is too large"})
		return
	}

	admin := middleware.CurrentUser(c)
	inv, err := h.promoter.GenerateCode(c.Request.Context(), promotion.GenerateOptions{
		MaxUses:   params.MaxUses,
		CreatedBy: admin.ID,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate invitation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate invitation"})
		return
	}

	c.JSON(http.StatusCreated, toInvitationResponse(*inv))
}

func (h *Handlers) handleListRedemptions(c *gin.Context) {
	code := c.Param("code")

	rs, err := h.promoter.ListRedemptions(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, promotion.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
			return
		}
		logger.Error().Err(err).Msg("Failed to list redemptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": code,
		"redemptions": lo.Map(rs, func(r models.Redemption, _ int) *redemptionResponse {
			return &redemptionResponse{UserID: r.UserID, CreatedAt: r.CreatedAt}
		}),
	})
}
