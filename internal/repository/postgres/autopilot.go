package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignite/adgroup-autopilot/internal/domain"
	"github.com/ignite/adgroup-autopilot/internal/service/autopilot"
)

// AutopilotRepo implements autopilot.Repository against PostgreSQL.
type AutopilotRepo struct{ db *sql.DB }

// NewAutopilotRepo creates a Postgres-backed autopilot repository.
func NewAutopilotRepo(db *sql.DB) *AutopilotRepo { return &AutopilotRepo{db: db} }

var _ autopilot.Repository = (*AutopilotRepo)(nil)

// ListAdGroupRefs compares activity windows against day rather than
// CURRENT_DATE, which follows the session time zone.
func (r *AutopilotRepo) ListAdGroupRefs(ctx context.Context, day time.Time) ([]autopilot.AdGroupRef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ag.id, ag.campaign_id
		FROM ad_groups ag
		JOIN campaigns c ON c.id = ag.campaign_id
		JOIN accounts a ON a.id = c.account_id
		WHERE NOT ag.archived AND NOT c.archived AND NOT a.archived
		  AND ag.state = 'ACTIVE'
		  AND ag.start_date <= $1
		  AND (ag.end_date IS NULL OR ag.end_date >= $1)
		ORDER BY ag.campaign_id, ag.id
	`, day)
	if err != nil {
		return nil, fmt.Errorf("list ad groups: %w", err)
	}
	defer rows.Close()

	var out []autopilot.AdGroupRef
	for rows.Next() {
		var ref autopilot.AdGroupRef
		if err := rows.Scan(&ref.AdGroupID, &ref.CampaignID); err != nil {
			return nil, fmt.Errorf("scan ad group ref: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *AutopilotRepo) FetchInputs(ctx context.Context, adGroupIDs []int64, day time.Time) (*autopilot.Inputs, error) {
	in := &autopilot.Inputs{
		Campaigns:   make(map[int64]domain.CampaignConfig),
		Allocations: make(map[int64][]domain.SourceAllocation),
		SpendSoFar:  make(map[int64]decimal.Decimal),
	}
	if len(adGroupIDs) == 0 {
		return in, nil
	}
	if err := r.fetchAdGroups(ctx, adGroupIDs, in); err != nil {
		return nil, err
	}
	if err := r.fetchAllocations(ctx, adGroupIDs, in); err != nil {
		return nil, err
	}
	if err := r.fetchSpend(ctx, adGroupIDs, day, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (r *AutopilotRepo) fetchAdGroups(ctx context.Context, ids []int64, in *autopilot.Inputs) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ag.id, ag.campaign_id, c.account_id, c.local_currency, c.autopilot,
		       COALESCE(agy.uses_realtime_autopilot, false),
		       ag.autopilot_state, ag.bid, ag.max_autopilot_bid,
		       ag.daily_budget, ag.autopilot_daily_budget,
		       ag.b1_sources_group_enabled, ag.b1_sources_group_daily_budget,
		       ag.b1_sources_group_cpc_cc, ag.b1_sources_group_cpm,
		       ag.bidding_type, ag.state, ag.start_date, ag.end_date
		FROM ad_groups ag
		JOIN campaigns c ON c.id = ag.campaign_id
		JOIN accounts a ON a.id = c.account_id
		LEFT JOIN agencies agy ON agy.id = a.agency_id
		WHERE ag.id = ANY($1)
		ORDER BY ag.id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("fetch ad groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ag      domain.AdGroupConfig
			c       domain.CampaignConfig
			endDate sql.NullTime
		)
		if err := rows.Scan(
			&ag.ID, &ag.CampaignID, &c.AccountID, &c.LocalCurrency, &ag.Autopilot,
			&ag.UsesRealtimeAutopilot,
			&ag.AutopilotState, &ag.Bid, &ag.MaxAutopilotBid,
			&ag.DailyBudget, &ag.AutopilotDailyBudget,
			&ag.B1SourcesGroupEnabled, &ag.B1SourcesGroupDailyBudget,
			&ag.B1SourcesGroupCPCCC, &ag.B1SourcesGroupCPM,
			&ag.BiddingType, &ag.Window.State, &ag.Window.StartDate, &endDate,
		); err != nil {
			return fmt.Errorf("scan ad group: %w", err)
		}
		if endDate.Valid {
			end := endDate.Time
			ag.Window.EndDate = &end
		}
		c.ID = ag.CampaignID
		in.Campaigns[c.ID] = c
		in.AdGroups = append(in.AdGroups, ag)
	}
	return rows.Err()
}

func (r *AutopilotRepo) fetchAllocations(ctx context.Context, ids []int64, in *autopilot.Inputs) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ad_group_id, source_id, daily_budget_cc, cpc_cc, cpm_cc
		FROM ad_group_sources
		WHERE ad_group_id = ANY($1) AND state = 'ACTIVE'
		ORDER BY ad_group_id, source_id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("fetch allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			adGroupID int64
			a         domain.SourceAllocation
		)
		if err := rows.Scan(&adGroupID, &a.SourceID, &a.DailyBudgetCC, &a.CPCCC, &a.CPMCC); err != nil {
			return fmt.Errorf("scan allocation: %w", err)
		}
		in.Allocations[adGroupID] = append(in.Allocations[adGroupID], a)
	}
	return rows.Err()
}

// fetchSpend must run after fetchAdGroups: the campaign's currency decides
// which spend column counts.
func (r *AutopilotRepo) fetchSpend(ctx context.Context, ids []int64, day time.Time, in *autopilot.Inputs) error {
	campaignOf := make(map[int64]int64, len(in.AdGroups))
	for _, ag := range in.AdGroups {
		campaignOf[ag.ID] = ag.CampaignID
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ad_group_id, spend_nano, spend_local_nano
		FROM ad_group_daily_spend
		WHERE ad_group_id = ANY($1) AND date = $2
	`, pq.Array(ids), day)
	if err != nil {
		return fmt.Errorf("fetch spend: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var adGroupID, spend, spendLocal int64
		if err := rows.Scan(&adGroupID, &spend, &spendLocal); err != nil {
			return fmt.Errorf("scan spend: %w", err)
		}
		nano := spend
		if in.Campaigns[campaignOf[adGroupID]].LocalCurrency {
			nano = spendLocal
		}
		in.SpendSoFar[adGroupID] = decimal.New(nano, -9)
	}
	return rows.Err()
}

// FetchLedgers sums each budget line item active on day with its spend up
// to the day before.
func (r *AutopilotRepo) FetchLedgers(ctx context.Context, campaignIDs []int64, day time.Time) (map[int64]domain.CampaignLedger, error) {
	out := make(map[int64]domain.CampaignLedger)
	if len(campaignIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT b.campaign_id, b.amount, b.freed_cc,
		       COALESCE(SUM(st.spend_etfm_total_nano), 0),
		       COALESCE(SUM(st.spend_local_etfm_total_nano), 0)
		FROM budget_line_items b
		LEFT JOIN budget_daily_statements st ON st.budget_id = b.id AND st.date < $2
		WHERE b.campaign_id = ANY($1)
		  AND b.start_date <= $2 AND b.end_date >= $2
		GROUP BY b.id, b.campaign_id, b.amount, b.freed_cc
		ORDER BY b.campaign_id, b.id
	`, pq.Array(campaignIDs), day)
	if err != nil {
		return nil, fmt.Errorf("fetch ledgers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			campaignID int64
			row        domain.LedgerRow
		)
		if err := rows.Scan(&campaignID, &row.Amount, &row.FreedCC, &row.SpendEtfmTotalNano, &row.SpendLocalEtfmTotalNano); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		l := out[campaignID]
		l.CampaignID = campaignID
		l.Rows = append(l.Rows, row)
		out[campaignID] = l
	}
	return out, rows.Err()
}

func (r *AutopilotRepo) SaveResults(ctx context.Context, runID string, day time.Time, budgets []domain.AdGroupBudget) error {
	if len(budgets) == 0 {
		return nil
	}
	ids := make([]int64, len(budgets))
	dailyBudgets := make([]string, len(budgets))
	bids := make([]string, len(budgets))
	for i, b := range budgets {
		ids[i] = b.AdGroupID
		dailyBudgets[i] = b.DailyBudget.String()
		bids[i] = b.Bid.String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ad_group_calculated_budgets (ad_group_id, day, run_id, daily_budget, bid, updated_at)
		SELECT data.ad_group_id, $4, $5, data.daily_budget, data.bid, NOW()
		FROM (
			SELECT UNNEST($1::bigint[]) AS ad_group_id,
			       UNNEST($2::numeric[]) AS daily_budget,
			       UNNEST($3::numeric[]) AS bid
		) AS data
		ON CONFLICT (ad_group_id, day) DO UPDATE
		SET run_id = EXCLUDED.run_id,
		    daily_budget = EXCLUDED.daily_budget,
		    bid = EXCLUDED.bid,
		    updated_at = NOW()
	`, pq.Array(ids), pq.Array(dailyBudgets), pq.Array(bids), day, runID)
	if err != nil {
		return fmt.Errorf("save calculated budgets: %w", err)
	}
	return nil
}
