package delivery

import "github.com/ignite/adgroup-autopilot/internal/domain"

// LegacyResolver resolves statuses for agencies still on the two-flag
// autopilot / price-discovery vocabulary.
type LegacyResolver struct{}

var (
	legacyActive         = mode{domain.DetailedActive, domain.DetailedCampaignStopPendingBudgetActive}
	legacyAutopilot      = mode{domain.DetailedAutopilot, domain.DetailedCampaignStopPendingBudgetAutopilot}
	legacyPriceDiscovery = mode{domain.DetailedActivePriceDiscovery, domain.DetailedCampaignStopPendingBudgetActivePriceDiscovery}
)

// Resolve implements StatusResolver. Campaign autopilot takes precedence
// over price discovery.
func (LegacyResolver) Resolve(s domain.DeliverySettings, stop *domain.CampaignStopState) domain.DetailedDeliveryStatus {
	if status, ok := resolveActivity(s); ok {
		return status
	}
	m := legacyActive
	switch {
	case budgetFlag(s, s.CampaignAutopilot):
		m = legacyAutopilot
	case s.OptimalBidEnabled():
		m = legacyPriceDiscovery
	}
	return applyCampaignStop(s, stop, m)
}
