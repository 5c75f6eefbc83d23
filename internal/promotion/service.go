// Package promotion promotes users to admin through invitation codes.
package promotion

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/storage"
)

var (
	logger = log.With().Str("component", "promotion").Logger()
)

const (
	generateAttempts = 3
)

type Service struct {
	config   *Config
	db       *gormw.DB
	attempts *storage.RedeemAttemptStorage
}

func NewService(config *Config, db *gormw.DB) *Service {
	config.Validate()

	return &Service{
		config:   config,
		db:       db,
		attempts: storage.NewRedeemAttemptStorage(config.MaxFailedAttempts, config.FailedAttemptsWindow()),
	}
}

func (s *Service) Close() {
	s.attempts.Close()
}

type GenerateOptions struct {
	// MaxUses of the new code, 0 for the configured default.
	MaxUses uint
	// CreatedBy is the id of the admin generating the code.
	CreatedBy uint
}

func (s *Service) newCode() string {
	var sb strings.Builder
	for sb.Len() < s.config.CodeLength {
		sb.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return strings.ToUpper(sb.String()[:s.config.CodeLength])
}

// GenerateCode persists a new unused invitation code.
func (s *Service) GenerateCode(ctx context.Context, opts GenerateOptions) (*models.Invitation, error) {
	maxUses := opts.MaxUses
	if maxUses == 0 {
		maxUses = s.config.DefaultMaxUses
	}

	db := s.db.Ctx(ctx)
	var err error
	for i := 0; i < generateAttempts; i++ {
		invitation := &models.Invitation{
			Code:      s.newCode(),
			CreatedBy: opts.CreatedBy,
			MaxUses:   maxUses,
		}
		if err = storage.AddInvitation(db, invitation); err == nil {
			invitationsGeneratedTotal.Inc()
			logger.Info().
				Str("invitation_code", invitation.Code).
				Uint("max_uses", maxUses).
				Uint("created_by", opts.CreatedBy).
				Msg("Invitation code generated")
			return invitation, nil
		}

		if _, getErr := storage.GetInvitationByCode(db, invitation.Code); getErr != nil {
			// not a collision
			break
		}
		logger.Warn().Str("invitation_code", invitation.Code).Msg("Invitation code collision, retrying")
	}

	logger.Error().Err(err).Msg("Failed to generate invitation code")
	return nil, storageError("generate code", err)
}

// ListCodes returns every invitation code with its usage, oldest first.
func (s *Service) ListCodes(ctx context.Context) ([]models.Invitation, error) {
	invitations, err := storage.ListInvitations(s.db.Ctx(ctx))
	if err != nil {
		return nil, storageError("list codes", err)
	}
	return invitations, nil
}

// ListRedemptions returns who redeemed the code, in order.
func (s *Service) ListRedemptions(ctx context.Context, code string) ([]models.Redemption, error) {
	db := s.db.Ctx(ctx)
	if _, err := storage.GetInvitationByCode(db, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("get invitation", err)
	}

	redemptions, err := storage.ListRedemptionsByCode(db, code)
	if err != nil {
		return nil, storageError("list redemptions", err)
	}
	return redemptions, nil
}

// Redeem promotes the user to admin with the given code. It returns true only
// when the user was promoted; otherwise the error tells why.
func (s *Service) Redeem(ctx context.Context, userID uint, code string) (bool, error) {
	err := s.redeem(ctx, userID, strings.TrimSpace(code))
	result := resultOf(err)
	redemptionsTotal.WithLabelValues(result).Inc()

	if err != nil {
		ev := logger.Warn()
		if IsStorageError(err) {
			ev = logger.Error()
		}
		if errors.Is(err, ErrNotFound) {
			n := s.attempts.Fail(userID)
			ev = ev.Int("failed_attempts", n)
		}
		ev.Err(err).Uint("user_id", userID).Str("result", result).Msg("Invitation redemption failed")
		return false, err
	}

	s.attempts.Reset(userID)
	logger.Info().Uint("user_id", userID).Msg("User promoted to admin")
	return true, nil
}

func (s *Service) redeem(ctx context.Context, userID uint, code string) error {
	if code == "" {
		return ErrNotFound
	}

	// the master code promotes unconditionally, throttled users included
	if s.isMasterCode(code) {
		return s.redeemMasterCode(ctx, userID)
	}

	if s.attempts.Blocked(userID) {
		return ErrThrottled
	}

	err := s.db.Tx(ctx, func(tx *gormw.DB) error {
		// The conditional increment comes first so the transaction holds the
		// write lock before any read. Every later failure rolls it back.
		ok, err := storage.ConsumeInvitation(tx, code)
		if err != nil {
			return storageError("consume invitation", err)
		}
		if !ok {
			return unusableInvitation(tx, code)
		}

		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}

		if user.IsAdmin() {
			return ErrAlreadyAdmin
		}

		user.Promote()
		if err := storage.UpdateUserRoles(tx, user); err != nil {
			return storageError("promote user", err)
		}

		if err := storage.AddRedemption(tx, &models.Redemption{Code: code, UserID: userID}); err != nil {
			return storageError("add redemption", err)
		}
		return nil
	})
	return transactionError(err)
}

func (s *Service) redeemMasterCode(ctx context.Context, userID uint) error {
	err := s.db.Tx(ctx, func(tx *gormw.DB) error {
		user, err := getUser(tx, userID)
		if err != nil {
			return err
		}

		if !user.IsAdmin() {
			user.Promote()
			if err := storage.UpdateUserRoles(tx, user); err != nil {
				return storageError("promote user", err)
			}
		}

		if err := storage.AddRedemption(tx, &models.Redemption{UserID: userID, Master: true}); err != nil {
			return storageError("add redemption", err)
		}
		return nil
	})
	if err == nil {
		logger.Info().Uint("user_id", userID).Msg("Master code redeemed")
	}
	return transactionError(err)
}

func (s *Service) isMasterCode(code string) bool {
	if s.config.MasterCodeHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.config.MasterCodeHash), []byte(code)) == nil
}

// unusableInvitation tells why no use of the code could be consumed.
func unusableInvitation(db *gormw.DB, code string) error {
	invitation, err := storage.GetInvitationByCode(db, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return storageError("get invitation", err)
	}
	if !invitation.Exhausted() {
		return storageError("consume invitation", errors.Errorf("invitation %s has uses left but was not consumed", code))
	}
	return ErrExhausted
}

func getUser(db *gormw.DB, userID uint) (*models.User, error) {
	user, err := storage.GetUserByID(db, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("get user", err)
	}
	return user, nil
}

// transactionError wraps begin/commit failures which are not produced by us.
func transactionError(err error) error {
	if err == nil || resultOf(err) != "storage_error" || IsStorageError(err) {
		return err
	}
	return storageError("transaction", err)
}
