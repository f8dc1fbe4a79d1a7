package delivery

import "github.com/ignite/adgroup-autopilot/internal/domain"

// StatusResolver resolves the detailed delivery status of one entity.
// stop is nil when no campaign-stop state was fetched for the entity.
type StatusResolver interface {
	Resolve(settings domain.DeliverySettings, stop *domain.CampaignStopState) domain.DetailedDeliveryStatus
}

// ResolverFor picks the resolver matching the agency's migration flag.
func ResolverFor(usesRealtimeAutopilot bool) StatusResolver {
	if usesRealtimeAutopilot {
		return CurrentResolver{}
	}
	return LegacyResolver{}
}

// Resolve resolves one entity with the resolver its settings select.
func Resolve(settings domain.DeliverySettings, stop *domain.CampaignStopState) domain.DetailedDeliveryStatus {
	return ResolverFor(settings.UsesRealtimeAutopilot).Resolve(settings, stop)
}

// ResolveBatch resolves every prefetched entity. stopStates is keyed by
// campaign ID. No I/O happens here; callers fetch both maps up front.
func ResolveBatch(
	entities map[int64]domain.DeliverySettings,
	stopStates map[int64]domain.CampaignStopState,
) map[int64]domain.DetailedDeliveryStatus {
	out := make(map[int64]domain.DetailedDeliveryStatus, len(entities))
	for id, s := range entities {
		var stop *domain.CampaignStopState
		if st, ok := stopStates[campaignOf(s)]; ok {
			stop = &st
		}
		out[id] = Resolve(s, stop)
	}
	return out
}

func campaignOf(s domain.DeliverySettings) int64 {
	if s.Level == domain.LevelCampaign && s.CampaignID == 0 {
		return s.EntityID
	}
	return s.CampaignID
}

// mode is the pair of statuses an optimization setting resolves to, with
// and without a pending budget update blocking the campaign.
type mode struct {
	running domain.DetailedDeliveryStatus
	pending domain.DetailedDeliveryStatus
}

// resolveActivity applies the steps shared by both vocabularies. ok is
// false when the entity is live and the optimization mode decides.
func resolveActivity(s domain.DeliverySettings) (status domain.DetailedDeliveryStatus, ok bool) {
	if s.Disabled {
		return domain.DetailedDisabled, true
	}
	setting := s.SettingState == domain.StateActive
	running := s.RunningState == domain.StateActive
	if !setting && !running {
		return domain.DetailedStopped, true
	}
	// Settings not yet converged. Checked before campaign stop on purpose.
	if setting != running {
		return domain.DetailedInactive, true
	}
	return "", false
}

// applyCampaignStop gates a live entity on its campaign's real-time stop state.
func applyCampaignStop(s domain.DeliverySettings, stop *domain.CampaignStopState, m mode) domain.DetailedDeliveryStatus {
	if s.Level == domain.LevelAccount || !s.RealTimeCampaignStop || stop == nil {
		return m.running
	}
	if !stop.AllowedToRun {
		if stop.PendingBudgetUpdates {
			return m.pending
		}
		return domain.DetailedCampaignStopStopped
	}
	if stop.AlmostDepleted {
		return domain.DetailedCampaignStopLowBudget
	}
	return m.running
}

// budgetFlag reads a campaign-level flag that accounts never carry.
func budgetFlag(s domain.DeliverySettings, flag bool) bool {
	return flag && s.Level != domain.LevelAccount
}
