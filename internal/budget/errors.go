package budget

import (
	"errors"
	"fmt"

	"github.com/ignite/adgroup-autopilot/internal/domain"
)

// Sentinel errors for the budget calculators.
var (
	ErrUnhandledAutopilotState = errors.New("unhandled autopilot state")
	ErrCampaignMismatch        = errors.New("ad group does not belong to campaign")
)

// UnhandledAutopilotStateError is returned when no regime matches an ad
// group's settings. It aborts only that ad group.
type UnhandledAutopilotStateError struct {
	AdGroupID int64
	State     domain.AutopilotState
}

func (e *UnhandledAutopilotStateError) Error() string {
	return fmt.Sprintf("ad group %d: unhandled autopilot state %q", e.AdGroupID, e.State)
}

// Is lets errors.Is match ErrUnhandledAutopilotState.
func (e *UnhandledAutopilotStateError) Is(target error) bool {
	return target == ErrUnhandledAutopilotState
}
