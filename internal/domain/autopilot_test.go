package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestActivityWindow_RunningState(t *testing.T) {
	end := date(2026, 3, 31)
	w := ActivityWindow{StartDate: date(2026, 3, 1), EndDate: &end, State: StateActive}

	tests := []struct {
		name  string
		today time.Time
		want  EntityState
	}{
		{"before start", date(2026, 2, 28), StateInactive},
		{"on start", date(2026, 3, 1), StateActive},
		{"late on end date", time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC), StateActive},
		{"after end", date(2026, 4, 1), StateInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.RunningState(tt.today))
		})
	}
}

func TestActivityWindow_OpenEndedAndPaused(t *testing.T) {
	w := ActivityWindow{StartDate: date(2026, 1, 1), State: StateActive}
	assert.Equal(t, StateActive, w.RunningState(date(2030, 1, 1)))

	w.State = StateInactive
	assert.Equal(t, StateInactive, w.RunningState(date(2026, 6, 1)))
}

func TestSourceIDMap_IsGroupedRTB(t *testing.T) {
	m := SourceIDMap{Outbrain: 3, Yahoo: 4}
	assert.False(t, m.IsGroupedRTB(3))
	assert.False(t, m.IsGroupedRTB(4))
	assert.True(t, m.IsGroupedRTB(11))
}

func TestLedgerRow_Spend(t *testing.T) {
	r := LedgerRow{SpendEtfmTotalNano: 12_500_000_000, SpendLocalEtfmTotalNano: 1_000_000}
	assert.True(t, decimal.RequireFromString("12.5").Equal(r.Spend(false)))
	assert.True(t, decimal.RequireFromString("0.001").Equal(r.Spend(true)))
}

func TestDeliverySettings_OptimalBidEnabled(t *testing.T) {
	s := DeliverySettings{Level: LevelAdGroup, AutopilotState: AutopilotActiveCPC}
	assert.True(t, s.OptimalBidEnabled())

	s.AutopilotState = AutopilotInactive
	assert.False(t, s.OptimalBidEnabled())

	s = DeliverySettings{Level: LevelCampaign, AutopilotState: AutopilotActive}
	assert.False(t, s.OptimalBidEnabled())
}
