// Package capability answers whether a branch may take payments right now.
//
// Answers come from the stripe_account_mappings table through a Redis
// read-through cache. The cache TTL is the staleness window: a capability
// change made directly at the vendor is visible here at most TTL later,
// unless the account lifecycle manager refreshes the entry first.
package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/branchpay/checkout-backend/internal/branches"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/redis"
)

const defaultTTL = 5 * time.Minute

// Snapshot is the cached capability view of one branch.
type Snapshot struct {
	BranchID            int64     `json:"branch_id"`
	HasAccount          bool      `json:"has_account"`
	AccountID           string    `json:"account_id,omitempty"`
	ChargesEnabled      bool      `json:"charges_enabled"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	PayoutsEnabled      bool      `json:"payouts_enabled"`
	CheckedAt           time.Time `json:"checked_at"`
}

// CanAcceptPayments requires an account that finished onboarding and has charges enabled.
func (s *Snapshot) CanAcceptPayments() bool {
	return s != nil && s.HasAccount && s.ChargesEnabled && s.OnboardingCompleted
}

// FromMapping builds a snapshot; a nil mapping means no connected account.
func FromMapping(branchID int64, mapping *models.StripeAccountMapping) *Snapshot {
	snap := &Snapshot{BranchID: branchID, CheckedAt: time.Now().UTC()}
	if mapping == nil || mapping.StripeAccountID == "" {
		return snap
	}
	snap.HasAccount = true
	snap.AccountID = mapping.StripeAccountID
	snap.ChargesEnabled = mapping.ChargesEnabled
	snap.OnboardingCompleted = mapping.OnboardingCompleted()
	snap.PayoutsEnabled = mapping.PayoutsEnabled
	return snap
}

type mappingReader interface {
	FindMapping(ctx context.Context, branchID int64) (*models.StripeAccountMapping, error)
}

// Gate exposes the payment capability checks.
type Gate interface {
	Snapshot(ctx context.Context, branchID int64) (*Snapshot, error)
	CanAcceptPayments(ctx context.Context, branchID int64) (bool, error)
	Store(ctx context.Context, snap *Snapshot) error
	Invalidate(ctx context.Context, branchID int64) error
}

type gate struct {
	repo  mappingReader
	cache redis.KeyValueStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewGate builds a capability gate. A nil cache reads the table on every call.
func NewGate(repo mappingReader, cache redis.KeyValueStore, ttl time.Duration, logg *logger.Logger) (Gate, error) {
	if repo == nil {
		return nil, fmt.Errorf("mapping repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &gate{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

func (g *gate) CanAcceptPayments(ctx context.Context, branchID int64) (bool, error) {
	snap, err := g.Snapshot(ctx, branchID)
	if err != nil {
		return false, err
	}
	return snap.CanAcceptPayments(), nil
}

func (g *gate) Snapshot(ctx context.Context, branchID int64) (*Snapshot, error) {
	if snap, ok := g.readCache(ctx, branchID); ok {
		return snap, nil
	}

	g.logg.Debug(g.logg.WithBranchID(ctx, branchID), "capability.cache_miss")

	mapping, err := g.repo.FindMapping(ctx, branchID)
	if err != nil && !branches.IsNotFound(err) {
		return nil, fmt.Errorf("load account mapping: %w", err)
	}
	if branches.IsNotFound(err) {
		mapping = nil
	}

	snap := FromMapping(branchID, mapping)
	if err := g.Store(ctx, snap); err != nil {
		g.logg.Warn(g.logg.WithBranchID(ctx, branchID), "capability.cache_write_failed: "+err.Error())
	}
	return snap, nil
}

func (g *gate) Store(ctx context.Context, snap *Snapshot) error {
	if g.cache == nil || snap == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return g.cache.Set(ctx, g.cache.CapabilityKey(snap.BranchID), string(payload), g.ttl)
}

func (g *gate) Invalidate(ctx context.Context, branchID int64) error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Del(ctx, g.cache.CapabilityKey(branchID))
}

func (g *gate) readCache(ctx context.Context, branchID int64) (*Snapshot, bool) {
	if g.cache == nil {
		return nil, false
	}
	raw, err := g.cache.Get(ctx, g.cache.CapabilityKey(branchID))
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			g.logg.Warn(g.logg.WithBranchID(ctx, branchID), "capability.cache_read_failed: "+err.Error())
		}
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || snap.BranchID != branchID {
		return nil, false
	}
	return &snap, true
}
