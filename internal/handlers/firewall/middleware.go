// Package firewall bans clients which keep guessing invitation codes or
// probing undefined URLs.
package firewall

import (
	"net/http"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	fw "github.com/charleshuang3/firewall"
	"github.com/charleshuang3/firewall/gcplog"
	"github.com/charleshuang3/firewall/ipgeo"
	"github.com/charleshuang3/firewall/opn"
	"github.com/charleshuang3/firewall/pf"
	"github.com/charleshuang3/firewall/ros"
	"github.com/charleshuang3/firewall/zerolog"
)

var (
	logger = log.With().Str("component", "firewall").Logger()
)

const (
	// KeyHackingError is set on the gin context by handlers which consider
	// the request a possible attack.
	KeyHackingError = "HACKING_ERROR"

	appName = "invitegate"
)

type Firewall struct {
	fw   *fw.Firewall
	conf *FirewallConfig
}

// New returns nil if the firewall is disabled.
func New(conf *FirewallConfig) *Firewall {
	if !conf.Enabled() {
		return nil
	}

	var firewallProvider fw.IFirewall
	switch conf.Provider {
	case "ros":
		firewallProvider = ros.New(
			conf.ProviderIP, conf.ProviderUser, conf.ProviderPassword)
	case "pf":
		firewallProvider = pf.New(
			conf.ProviderIP, conf.ProviderUser, conf.ProviderPassword)
	case "opn":
		firewallProvider = opn.New(
			conf.ProviderIP, conf.ProviderUser, conf.ProviderPassword, conf.ListUUID)
	default:
		// keep firewallProvider nil which means no block on firewall
	}

	var fwlogger fw.ILogger
	if conf.GoogleKeyFile != "" {
		var err error
		fwlogger, err = gcplog.New(conf.GoogleKeyFile, conf.GoogleProjectID, appName)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create gcp logger")
		}
	} else {
		fwlogger = zerolog.New(logger, zlog.InfoLevel, appName)
	}

	var f *fw.Firewall
	if conf.hasGeo() {
		mm, err := ipgeo.NewAutoUpdateMMIPGeo(
			conf.CityDBFile,
			conf.UpdatedCityDBFile,
			conf.ASNDBFile,
			conf.UpdatedASNDBFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load geo databases")
		}
		f = fw.New(conf.Whitelist, firewallProvider, fwlogger, mm, conf.forgivable())
	} else {
		f = fw.New(conf.Whitelist, firewallProvider, fwlogger, nil, conf.forgivable())
	}

	return &Firewall{
		fw:   f,
		conf: conf,
	}
}

func (f *Firewall) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// run handle
		c.Next()

		// after handler
		reason, ok := c.Get(KeyHackingError)
		if ok {
			f.fw.LogIPError(c.ClientIP(), reason.(string))
			return
		}

		// this means user request to url undefined in router.
		if c.Writer.Status() == http.StatusNotFound && c.FullPath() == "" {
			f.fw.LogIPError(c.ClientIP(), "undefined_url")
		}
	}
}

// ReportHacking marks the request as a possible attack, the middleware
// counts it against the client IP.
func ReportHacking(c *gin.Context, reason string) {
	c.Set(KeyHackingError, c.FullPath()+" "+reason)
}
