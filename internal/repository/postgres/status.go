package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/adgroup-autopilot/internal/domain"
	"github.com/ignite/adgroup-autopilot/internal/service/status"
)

// StatusRepo implements status.Repository against PostgreSQL.
type StatusRepo struct{ db *sql.DB }

// NewStatusRepo creates a Postgres-backed delivery settings repository.
func NewStatusRepo(db *sql.DB) *StatusRepo { return &StatusRepo{db: db} }

var _ status.Repository = (*StatusRepo)(nil)

// runningAdGroup matches an ad group delivering on $2.
const runningAdGroup = `ag.state = 'ACTIVE' AND NOT ag.archived
		  AND ag.start_date <= $2 AND (ag.end_date IS NULL OR ag.end_date >= $2)`

func (r *StatusRepo) AdGroupRows(ctx context.Context, campaignIDs []int64) ([]status.AdGroupRow, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT ag.id, ag.campaign_id,
		       (ag.archived OR c.archived OR a.archived OR COALESCE(agy.disabled, false)),
		       ag.state, ag.start_date, ag.end_date, ag.autopilot_state,
		       c.real_time_campaign_stop, c.autopilot,
		       COALESCE(agy.uses_realtime_autopilot, false)
		FROM ad_groups ag
		JOIN campaigns c ON c.id = ag.campaign_id
		JOIN accounts a ON a.id = c.account_id
		LEFT JOIN agencies agy ON agy.id = a.agency_id
		WHERE ag.campaign_id = ANY($1)
		ORDER BY ag.id
	`, pq.Array(campaignIDs))
	if err != nil {
		return nil, fmt.Errorf("load ad group settings: %w", err)
	}
	defer rows.Close()

	var out []status.AdGroupRow
	for rows.Next() {
		var (
			row     status.AdGroupRow
			endDate sql.NullTime
		)
		s := &row.Settings
		if err := rows.Scan(
			&s.EntityID, &s.CampaignID, &s.Disabled,
			&s.SettingState, &row.Window.StartDate, &endDate, &s.AutopilotState,
			&s.RealTimeCampaignStop, &s.CampaignAutopilot,
			&s.UsesRealtimeAutopilot,
		); err != nil {
			return nil, fmt.Errorf("scan ad group settings: %w", err)
		}
		s.Level = domain.LevelAdGroup
		s.CampaignBudgetOptimization = s.CampaignAutopilot
		row.Window.State = s.SettingState
		if endDate.Valid {
			end := endDate.Time
			row.Window.EndDate = &end
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CampaignSettings derives a campaign's setting state from its ad groups:
// ACTIVE when any non-archived ad group is set ACTIVE.
func (r *StatusRepo) CampaignSettings(ctx context.Context, campaignIDs []int64, day time.Time) ([]domain.DeliverySettings, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id,
		       (c.archived OR a.archived OR COALESCE(agy.disabled, false)),
		       EXISTS (SELECT 1 FROM ad_groups ag
		               WHERE ag.campaign_id = c.id AND ag.state = 'ACTIVE' AND NOT ag.archived),
		       EXISTS (SELECT 1 FROM ad_groups ag
		               WHERE ag.campaign_id = c.id AND `+runningAdGroup+`),
		       c.real_time_campaign_stop, c.autopilot,
		       COALESCE(agy.uses_realtime_autopilot, false)
		FROM campaigns c
		JOIN accounts a ON a.id = c.account_id
		LEFT JOIN agencies agy ON agy.id = a.agency_id
		WHERE c.id = ANY($1)
		ORDER BY c.id
	`, pq.Array(campaignIDs), day)
	if err != nil {
		return nil, fmt.Errorf("load campaign settings: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliverySettings
	for rows.Next() {
		var (
			s                domain.DeliverySettings
			setting, running bool
		)
		if err := rows.Scan(
			&s.EntityID, &s.Disabled, &setting, &running,
			&s.RealTimeCampaignStop, &s.CampaignAutopilot, &s.UsesRealtimeAutopilot,
		); err != nil {
			return nil, fmt.Errorf("scan campaign settings: %w", err)
		}
		s.Level = domain.LevelCampaign
		s.CampaignID = s.EntityID
		s.CampaignBudgetOptimization = s.CampaignAutopilot
		s.SettingState = stateOf(setting)
		s.RunningState = stateOf(running)
		out = append(out, s)
	}
	return out, rows.Err()
}

// AccountSettings carries no campaign-level flags: accounts resolve on
// activity alone.
func (r *StatusRepo) AccountSettings(ctx context.Context, accountIDs []int64, day time.Time) ([]domain.DeliverySettings, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id,
		       (a.archived OR COALESCE(agy.disabled, false)),
		       EXISTS (SELECT 1 FROM campaigns c JOIN ad_groups ag ON ag.campaign_id = c.id
		               WHERE c.account_id = a.id AND NOT c.archived
		                 AND ag.state = 'ACTIVE' AND NOT ag.archived),
		       EXISTS (SELECT 1 FROM campaigns c JOIN ad_groups ag ON ag.campaign_id = c.id
		               WHERE c.account_id = a.id AND NOT c.archived AND `+runningAdGroup+`),
		       COALESCE(agy.uses_realtime_autopilot, false)
		FROM accounts a
		LEFT JOIN agencies agy ON agy.id = a.agency_id
		WHERE a.id = ANY($1)
		ORDER BY a.id
	`, pq.Array(accountIDs), day)
	if err != nil {
		return nil, fmt.Errorf("load account settings: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliverySettings
	for rows.Next() {
		var (
			s                domain.DeliverySettings
			setting, running bool
		)
		if err := rows.Scan(&s.EntityID, &s.Disabled, &setting, &running, &s.UsesRealtimeAutopilot); err != nil {
			return nil, fmt.Errorf("scan account settings: %w", err)
		}
		s.Level = domain.LevelAccount
		s.SettingState = stateOf(setting)
		s.RunningState = stateOf(running)
		out = append(out, s)
	}
	return out, rows.Err()
}

func stateOf(on bool) domain.EntityState {
	if on {
		return domain.StateActive
	}
	return domain.StateInactive
}
