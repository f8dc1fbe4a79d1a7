// Package campaignstop supplies real-time campaign-stop state. The state is
// computed elsewhere and cached in Redis; this package only reads it, in
// batches, before statuses are resolved.
package campaignstop

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/adgroup-autopilot/internal/domain"
	"github.com/ignite/adgroup-autopilot/internal/pkg/logger"
)

// ErrMalformedState marks a cached entry that could not be decoded.
var ErrMalformedState = errors.New("malformed campaign stop state")

// Provider fetches campaign-stop state for many campaigns at once.
// Campaigns with no state are absent from the returned map.
type Provider interface {
	Fetch(ctx context.Context, campaignIDs []int64) (map[int64]domain.CampaignStopState, error)
}

// Hash fields of a cached state entry.
const (
	fieldAllowedToRun   = "allowed_to_run"
	fieldPendingUpdates = "pending_budget_updates"
	fieldAlmostDepleted = "almost_depleted"
)

// RedisProvider reads states stored as Redis hashes under prefix+campaignID.
type RedisProvider struct {
	client *redis.Client
	prefix string
}

// NewRedisProvider creates a provider reading keys under the given prefix.
func NewRedisProvider(client *redis.Client, prefix string) *RedisProvider {
	return &RedisProvider{client: client, prefix: prefix}
}

func (p *RedisProvider) key(campaignID int64) string {
	return p.prefix + strconv.FormatInt(campaignID, 10)
}

// Fetch reads all requested states in one pipelined round trip. Malformed
// entries are logged and skipped so one bad key does not hide the rest.
func (p *RedisProvider) Fetch(ctx context.Context, campaignIDs []int64) (map[int64]domain.CampaignStopState, error) {
	out := make(map[int64]domain.CampaignStopState, len(campaignIDs))
	if len(campaignIDs) == 0 {
		return out, nil
	}

	pipe := p.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(campaignIDs))
	for i, id := range campaignIDs {
		cmds[i] = pipe.HGetAll(ctx, p.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("fetch campaign stop states: %w", err)
	}

	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		state, err := decodeState(fields)
		if err != nil {
			logger.Warn("skipping campaign stop state", "campaign_id", campaignIDs[i], "error", err)
			continue
		}
		out[campaignIDs[i]] = state
	}
	return out, nil
}

// Store writes a state entry. Used by the stop-state producer and by tests.
func (p *RedisProvider) Store(ctx context.Context, campaignID int64, state domain.CampaignStopState) error {
	err := p.client.HSet(ctx, p.key(campaignID),
		fieldAllowedToRun, strconv.FormatBool(state.AllowedToRun),
		fieldPendingUpdates, strconv.FormatBool(state.PendingBudgetUpdates),
		fieldAlmostDepleted, strconv.FormatBool(state.AlmostDepleted),
	).Err()
	if err != nil {
		return fmt.Errorf("store campaign stop state %d: %w", campaignID, err)
	}
	return nil
}

func decodeState(fields map[string]string) (domain.CampaignStopState, error) {
	var s domain.CampaignStopState
	var err error
	if s.AllowedToRun, err = parseField(fields, fieldAllowedToRun); err != nil {
		return s, err
	}
	if s.PendingBudgetUpdates, err = parseField(fields, fieldPendingUpdates); err != nil {
		return s, err
	}
	if s.AlmostDepleted, err = parseField(fields, fieldAlmostDepleted); err != nil {
		return s, err
	}
	return s, nil
}

func parseField(fields map[string]string, name string) (bool, error) {
	raw, ok := fields[name]
	if !ok {
		return false, fmt.Errorf("%w: missing %s", ErrMalformedState, name)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrMalformedState, name, raw)
	}
	return v, nil
}

// StaticProvider serves states from memory. Useful when real-time campaign
// stop is disabled (empty map) and in tests.
type StaticProvider map[int64]domain.CampaignStopState

// Fetch implements Provider.
func (s StaticProvider) Fetch(_ context.Context, campaignIDs []int64) (map[int64]domain.CampaignStopState, error) {
	out := make(map[int64]domain.CampaignStopState, len(campaignIDs))
	for _, id := range campaignIDs {
		if st, ok := s[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}
