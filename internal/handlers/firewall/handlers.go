package firewall

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterAdminHandlers lets admins ban or report an IP by hand, rg must be
// guarded by an admin role check.
func (f *Firewall) RegisterAdminHandlers(rg *gin.RouterGroup) {
	rg.POST("/ban", f.ban)
	rg.POST("/logerr", f.logError)
}

type firewallRequest struct {
	IP     string `form:"ip" json:"ip" binding:"required,ip"`
	Reason string `form:"reason" json:"reason" binding:"required"`
}

func (f *Firewall) ban(c *gin.Context) {
	req := &firewallRequest{}

	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	f.fw.BanIP(req.IP, int(f.conf.BanMinutes), req.Reason)
	c.JSON(http.StatusOK, gin.H{"ip": req.IP, "ban_minutes": f.conf.BanMinutes})
}

func (f *Firewall) logError(c *gin.Context) {
	req := &firewallRequest{}

	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	f.fw.LogIPError(req.IP, req.Reason)
	c.JSON(http.StatusOK, gin.H{"ip": req.IP})
}
