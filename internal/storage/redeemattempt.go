package storage

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"
)

const (
	maxTrackedUsers = 10000
)

// RedeemAttemptStorage counts failed redemptions per user within a window.
type RedeemAttemptStorage struct {
	mu     sync.Mutex
	cache  *ristretto.Cache[uint64, int]
	window time.Duration
	limit  int
}

// NewRedeemAttemptStorage allows limit failures per window, limit 0 disables
// throttling.
func NewRedeemAttemptStorage(limit int, window time.Duration) *RedeemAttemptStorage {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, int]{
		NumCounters: maxTrackedUsers * 10,
		MaxCost:     maxTrackedUsers,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create redeem attempt storage")
	}

	return &RedeemAttemptStorage{
		cache:  c,
		window: window,
		limit:  limit,
	}
}

// Blocked reports whether the user used up its failures for the window.
func (s *RedeemAttemptStorage) Blocked(userID uint) bool {
	if s.limit <= 0 {
		return false
	}
	n, _ := s.cache.Get(uint64(userID))
	return n >= s.limit
}

// Fail records a failed attempt and returns the failures in the window.
// The window restarts on every failure.
func (s *RedeemAttemptStorage) Fail(userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.cache.Get(uint64(userID))
	n++
	s.cache.SetWithTTL(uint64(userID), n, 1, s.window)
	s.cache.Wait()
	return n
}

func (s *RedeemAttemptStorage) Reset(userID uint) {
	s.cache.Del(uint64(userID))
	s.cache.Wait()
}

func (s *RedeemAttemptStorage) Close() {
	s.cache.Close()
}
