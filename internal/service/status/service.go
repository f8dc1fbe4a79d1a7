package status

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/adgroup-autopilot/internal/campaignstop"
	"github.com/ignite/adgroup-autopilot/internal/delivery"
	"github.com/ignite/adgroup-autopilot/internal/domain"
)

// EntityStatus is the resolved status of one entity.
type EntityStatus struct {
	Level    domain.EntityLevel            `json:"level"`
	EntityID int64                         `json:"id"`
	Detailed domain.DetailedDeliveryStatus `json:"detailed_delivery_status"`
	Coarse   domain.DeliveryStatus         `json:"delivery_status"`
}

// Service resolves delivery statuses.
type Service struct {
	repo  Repository
	stops campaignstop.Provider
	now   func() time.Time
}

// NewService creates a status service. stops may be nil when no campaign
// uses real-time campaign stop.
func NewService(repo Repository, stops campaignstop.Provider) *Service {
	return &Service{repo: repo, stops: stops, now: time.Now}
}

// AdGroupStatuses resolves every ad group of the given campaigns.
func (s *Service) AdGroupStatuses(ctx context.Context, campaignIDs []int64) ([]EntityStatus, error) {
	rows, err := s.repo.AdGroupRows(ctx, campaignIDs)
	if err != nil {
		return nil, fmt.Errorf("load ad groups: %w", err)
	}
	today := s.now().UTC()
	settings := make([]domain.DeliverySettings, len(rows))
	for i, r := range rows {
		settings[i] = r.Settings
		settings[i].RunningState = r.Window.RunningState(today)
	}
	return s.resolve(ctx, settings)
}

// CampaignStatuses resolves the given campaigns.
func (s *Service) CampaignStatuses(ctx context.Context, campaignIDs []int64) ([]EntityStatus, error) {
	settings, err := s.repo.CampaignSettings(ctx, campaignIDs, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	return s.resolve(ctx, settings)
}

// AccountStatuses resolves the given accounts. Accounts never consult
// campaign-stop state.
func (s *Service) AccountStatuses(ctx context.Context, accountIDs []int64) ([]EntityStatus, error) {
	settings, err := s.repo.AccountSettings(ctx, accountIDs, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return s.resolve(ctx, settings)
}

// resolve prefetches campaign-stop state for all entities that need it and
// resolves them in one batch. Output is ordered by entity ID.
func (s *Service) resolve(ctx context.Context, settings []domain.DeliverySettings) ([]EntityStatus, error) {
	stops, err := s.fetchStops(ctx, settings)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.DeliverySettings, len(settings))
	for _, st := range settings {
		byID[st.EntityID] = st
	}
	detailed := delivery.ResolveBatch(byID, stops)

	out := make([]EntityStatus, 0, len(detailed))
	for id, d := range detailed {
		coarse, ok := delivery.MapToCoarse(d)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnmappedStatus, d)
		}
		out = append(out, EntityStatus{Level: byID[id].Level, EntityID: id, Detailed: d, Coarse: coarse})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func (s *Service) fetchStops(ctx context.Context, settings []domain.DeliverySettings) (map[int64]domain.CampaignStopState, error) {
	if s.stops == nil {
		return nil, nil
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, st := range settings {
		if st.Level == domain.LevelAccount || !st.RealTimeCampaignStop {
			continue
		}
		id := st.CampaignID
		if id == 0 {
			id = st.EntityID
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	stops, err := s.stops.Fetch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCampaignStopUnavailable, err)
	}
	return stops, nil
}
