package invite

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charleshuang3/invitegate/internal/handlers/firewall"
	"github.com/charleshuang3/invitegate/internal/handlers/middleware"
	"github.com/charleshuang3/invitegate/internal/promotion"
)

type handleRedeemParams struct {
	Code string `form:"code" json:"code" binding:"required"`
}

type redeemResponse struct {
	Promoted bool   `json:"promoted"`
	Roles    string `json:"roles"`
}

func (h *Handlers) handleRedeem(c *gin.Context) {
	params := &handleRedeemParams{}
	if err := c.ShouldBind(params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	user := middleware.CurrentUser(c)
	promoted, err := h.promoter.Redeem(c.Request.Context(), user.ID, params.Code)
	if err != nil {
		status, msg := redeemErrorStatus(err)
		if errors.Is(err, promotion.ErrNotFound) {
			firewall.ReportHacking(c, msg)
		}
		c.JSON(status, gin.H{"promoted": false, "error": msg})
		return
	}

	// the user loaded by the middleware has the old roles
	if promoted {
		user.Promote()
	}
	c.JSON(http.StatusOK, &redeemResponse{
		Promoted: promoted,
		Roles:    user.Roles,
	})
}

func redeemErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, promotion.ErrNotFound):
		return http.StatusBadRequest, "Invalid invitation code."
	case errors.Is(err, promotion.ErrExhausted):
		return http.StatusConflict, "Invitation code has been used up."
	case errors.Is(err, promotion.ErrAlreadyAdmin):
		return http.StatusConflict, "Already an admin."
	case errors.Is(err, promotion.ErrThrottled):
		return http.StatusTooManyRequests, "Too many failed attempts, try again later."
	case errors.Is(err, promotion.ErrUserNotFound):
		return http.StatusNotFound, "User not found."
	default:
		return http.StatusInternalServerError, "Error redeeming invitation code."
	}
}
