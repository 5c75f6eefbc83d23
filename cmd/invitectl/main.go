// invitectl manages invitations directly on the invitegate database.
package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/charleshuang3/invitegate/internal/config"
	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/promotion"
)

type app struct {
	db      *gormw.DB
	service *promotion.Service
}

func (a *app) close() {
	a.service.Close()
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

func openApp(path string) (*app, error) {
	if path == "" {
		return nil, errors.New("config path must be provided via CONFIG_PATH env var or -c flag")
	}

	cfg := config.LoadOfflineConfig(path)
	db, err := gormw.Open(&cfg.DB)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate database")
	}

	return &app{
		db:      db,
		service: promotion.NewService(&cfg.Invite, db),
	}, nil
}

type cli struct {
	configPath string
	verbose    bool

	open func(path string) (*app, error)
	app  *app
}

func (c *cli) load() (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.open(c.configPath)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.close()
		c.app = nil
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "invitectl",
		Short: "Manage invitegate invitations and accounts",
		Long: `invitectl operates on the invitegate database configured in the
server config file. It generates and lists invitation codes, inspects
redemptions and promotes accounts without going through the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if c.verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		newGenerateCmd(c),
		newListCmd(c),
		newRedemptionsCmd(c),
		newRedeemCmd(c),
		newUserCmd(c),
		newHashMasterCodeCmd(),
	)
	return root
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	c := &cli{open: openApp}
	if err := newRootCmd(c).Execute(); err != nil {
		c.close()
		os.Exit(1)
	}
}
