package budget

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adgroup-autopilot/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	testCampaign = domain.CampaignConfig{ID: 7, AccountID: 1}
	testSources  = domain.SourceIDMap{Outbrain: 3, Yahoo: 4}
)

func baseAdGroup() domain.AdGroupConfig {
	return domain.AdGroupConfig{
		ID:                        100,
		CampaignID:                7,
		AutopilotState:            domain.AutopilotInactive,
		Bid:                       d("0.45"),
		MaxAutopilotBid:           d("0.60"),
		DailyBudget:               decimal.NewNullDecimal(d("80")),
		AutopilotDailyBudget:      d("150"),
		B1SourcesGroupDailyBudget: d("40"),
		B1SourcesGroupCPCCC:       d("0.20"),
		B1SourcesGroupCPM:         d("1.50"),
		BiddingType:               domain.BiddingCPC,
	}
}

func testAllocations() []domain.SourceAllocation {
	return []domain.SourceAllocation{
		{SourceID: 3, DailyBudgetCC: d("10"), CPCCC: d("0.30"), CPMCC: d("2.00")},
		{SourceID: 4, DailyBudgetCC: d("30"), CPCCC: d("0.10"), CPMCC: d("1.00")},
		{SourceID: 11, DailyBudgetCC: d("60"), CPCCC: d("0.50"), CPMCC: d("3.00")},
	}
}

func TestSelectRegime(t *testing.T) {
	tests := []struct {
		name      string
		autopilot bool
		state     domain.AutopilotState
		want      Regime
	}{
		{"manual", false, domain.AutopilotInactive, SourceDriven{}},
		{"cpc only", false, domain.AutopilotActiveCPC, SourceDriven{}},
		{"cpc and budget", false, domain.AutopilotActiveCPCBudget, BudgetCapped{}},
		{"full", false, domain.AutopilotActive, PlainActive{}},
		{"campaign autopilot wins over full", true, domain.AutopilotActive, SourceDriven{}},
		{"campaign autopilot wins over cpc budget", true, domain.AutopilotActiveCPCBudget, SourceDriven{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ag := baseAdGroup()
			ag.Autopilot = tt.autopilot
			ag.AutopilotState = tt.state
			got, err := SelectRegime(ag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectRegime_UnhandledState(t *testing.T) {
	ag := baseAdGroup()
	ag.AutopilotState = "SOMETHING_NEW"

	_, err := SelectRegime(ag)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnhandledAutopilotState))

	var stateErr *UnhandledAutopilotStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, int64(100), stateErr.AdGroupID)
	assert.Equal(t, domain.AutopilotState("SOMETHING_NEW"), stateErr.State)
}

func TestCompute_SourceDrivenManualUsesWeightedAverage(t *testing.T) {
	res, err := Compute(testCampaign, baseAdGroup(), testAllocations(), testSources)
	require.NoError(t, err)

	// (0.3·10 + 0.1·30 + 0.5·60) / 100 = 0.36
	assert.True(t, d("100").Equal(res.DailyBudget), res.DailyBudget.String())
	assert.True(t, d("0.36").Equal(res.Bid), res.Bid.String())
	assert.Empty(t, res.Warnings)
}

func TestCompute_SourceDrivenGroupsRTBSources(t *testing.T) {
	ag := baseAdGroup()
	ag.B1SourcesGroupEnabled = true

	res, err := Compute(testCampaign, ag, testAllocations(), testSources)
	require.NoError(t, err)

	// outbrain 10 + yahoo 30 + rtb group 40; (0.3·10 + 0.1·30 + 0.2·40) / 80 = 0.175
	assert.True(t, d("80").Equal(res.DailyBudget), res.DailyBudget.String())
	assert.True(t, d("0.175").Equal(res.Bid), res.Bid.String())
}

func TestCompute_GroupWithoutRTBSourcesHasNoAggregateBucket(t *testing.T) {
	ag := baseAdGroup()
	ag.B1SourcesGroupEnabled = true
	allocs := testAllocations()[:2]

	res, err := Compute(testCampaign, ag, allocs, testSources)
	require.NoError(t, err)
	assert.True(t, d("40").Equal(res.DailyBudget), res.DailyBudget.String())
}

func TestCompute_CPMUsesCPMPrices(t *testing.T) {
	ag := baseAdGroup()
	ag.BiddingType = domain.BiddingCPM

	res, err := Compute(testCampaign, ag, testAllocations(), testSources)
	require.NoError(t, err)

	// (2·10 + 1·30 + 3·60) / 100 = 2.3
	assert.True(t, d("2.3").Equal(res.Bid), res.Bid.String())
}

func TestCompute_AutopilotBidSource(t *testing.T) {
	ag := baseAdGroup()
	ag.AutopilotState = domain.AutopilotActiveCPC

	res, err := Compute(testCampaign, ag, testAllocations(), testSources)
	require.NoError(t, err)
	assert.True(t, d("0.60").Equal(res.Bid), "legacy autopilot bids max autopilot bid")

	ag.UsesRealtimeAutopilot = true
	res, err = Compute(testCampaign, ag, testAllocations(), testSources)
	require.NoError(t, err)
	assert.True(t, d("0.45").Equal(res.Bid), "realtime autopilot bids the ad group bid")
}

func TestCompute_BudgetCapped(t *testing.T) {
	ag := baseAdGroup()
	ag.AutopilotState = domain.AutopilotActiveCPCBudget
	ag.UsesRealtimeAutopilot = true

	res, err := Compute(testCampaign, ag, testAllocations(), testSources)
	require.NoError(t, err)
	assert.True(t, d("150").Equal(res.DailyBudget))
	assert.True(t, d("0.45").Equal(res.Bid))
}

func TestCompute_PlainActive(t *testing.T) {
	ag := baseAdGroup()
	ag.AutopilotState = domain.AutopilotActive

	res, err := Compute(testCampaign, ag, testAllocations(), testSources)
	require.NoError(t, err)
	assert.True(t, d("80").Equal(res.DailyBudget))
	assert.True(t, d("0.45").Equal(res.Bid))
}

func TestCompute_NullDailyBudgetIsZeroWithWarning(t *testing.T) {
	ag := baseAdGroup()
	ag.Autopilot = false
	ag.AutopilotState = domain.AutopilotActive
	ag.DailyBudget = decimal.NullDecimal{}

	res, err := Compute(testCampaign, ag, testAllocations(), testSources)
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(res.DailyBudget))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnNullDailyBudget, res.Warnings[0].Code)
	assert.True(t, res.Warnings[0].IsError())
}

func TestCompute_NoBudgetGivesZeroBid(t *testing.T) {
	allocs := []domain.SourceAllocation{
		{SourceID: 11, DailyBudgetCC: decimal.Zero, CPCCC: d("0.5")},
		{SourceID: 12, DailyBudgetCC: decimal.Zero, CPCCC: d("0.7")},
	}
	res, err := Compute(testCampaign, baseAdGroup(), allocs, testSources)
	require.NoError(t, err)
	assert.True(t, res.Bid.IsZero())
	assert.True(t, res.DailyBudget.IsZero())

	res, err = Compute(testCampaign, baseAdGroup(), nil, testSources)
	require.NoError(t, err)
	assert.True(t, res.Bid.IsZero())
}

func TestCompute_NegativeValuesClamped(t *testing.T) {
	ag := baseAdGroup()
	ag.AutopilotState = domain.AutopilotActive
	ag.DailyBudget = decimal.NewNullDecimal(d("-5"))
	ag.Bid = d("-0.1")

	res, err := Compute(testCampaign, ag, nil, testSources)
	require.NoError(t, err)
	assert.True(t, res.DailyBudget.IsZero())
	assert.True(t, res.Bid.IsZero())
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, WarnNegativeClamped, res.Warnings[0].Code)
}

func TestCompute_NeverNegative(t *testing.T) {
	states := []domain.AutopilotState{
		domain.AutopilotInactive, domain.AutopilotActiveCPC,
		domain.AutopilotActiveCPCBudget, domain.AutopilotActive,
	}
	for _, state := range states {
		for _, grouped := range []bool{false, true} {
			ag := baseAdGroup()
			ag.AutopilotState = state
			ag.B1SourcesGroupEnabled = grouped
			ag.AutopilotDailyBudget = d("-3")
			allocs := append(testAllocations(), domain.SourceAllocation{SourceID: 20, DailyBudgetCC: d("-500"), CPCCC: d("0.2")})

			res, err := Compute(testCampaign, ag, allocs, testSources)
			require.NoError(t, err)
			assert.False(t, res.DailyBudget.IsNegative(), "state %s grouped %v", state, grouped)
			assert.False(t, res.Bid.IsNegative(), "state %s grouped %v", state, grouped)
		}
	}
}

func TestCompute_RoundsToCC(t *testing.T) {
	allocs := []domain.SourceAllocation{
		{SourceID: 11, DailyBudgetCC: d("1"), CPCCC: d("0.1")},
		{SourceID: 12, DailyBudgetCC: d("2"), CPCCC: d("0.2")},
	}
	res, err := Compute(testCampaign, baseAdGroup(), allocs, testSources)
	require.NoError(t, err)
	// 0.5 / 3 = 0.16666..
	assert.Equal(t, "0.1667", res.Bid.String())
}

func TestCompute_Errors(t *testing.T) {
	ag := baseAdGroup()
	ag.CampaignID = 8
	_, err := Compute(testCampaign, ag, nil, testSources)
	assert.ErrorIs(t, err, ErrCampaignMismatch)

	ag = baseAdGroup()
	ag.AutopilotState = ""
	_, err = Compute(testCampaign, ag, nil, testSources)
	assert.ErrorIs(t, err, ErrUnhandledAutopilotState)
}

func TestCompute_DoesNotMutateInputs(t *testing.T) {
	ag := baseAdGroup()
	ag.B1SourcesGroupEnabled = true
	allocs := testAllocations()
	before := testAllocations()

	_, err := Compute(testCampaign, ag, allocs, testSources)
	require.NoError(t, err)
	assert.Equal(t, before, allocs)
}

func TestWeightedAveragePrice(t *testing.T) {
	assert.True(t, weightedAveragePrice(nil).IsZero())
	got := weightedAveragePrice([]bucket{
		{budget: d("3"), price: d("1")},
		{budget: d("1"), price: d("5")},
	})
	assert.True(t, d("2").Equal(got), got.String())
}
