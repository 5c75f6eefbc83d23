package storage

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/invitegate/internal/gormw"
)

var (
	logger = log.With().Str("component", "storage").Logger()
)

// Exhausted invitations stay in database forever if not register a cleaner.
func RegisterExhaustedInvitationsCleaner(scheduler gocron.Scheduler, db *gormw.DB, keepDays int) error {
	_, err := scheduler.NewJob(
		gocron.CronJob(
			// 4am Daily
			"0 4 * * *",
			false,
		),
		gocron.NewTask(
			func() {
				cleanExhaustedInvitations(db, keepDays)
			},
		),
	)
	return err
}

func cleanExhaustedInvitations(db *gormw.DB, keepDays int) {
	logger.Info().Int("keep_days", keepDays).Msg("Cleaning up exhausted invitations")
	before := time.Now().AddDate(0, 0, -keepDays)
	n, err := DeleteExhaustedInvitations(db, before)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to clean up exhausted invitations")
		return
	}
	logger.Info().Int64("deleted", n).Msg("Exhausted invitations cleaned")
}
