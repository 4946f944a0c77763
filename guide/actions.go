package guide

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// SourceAIGuide marks records created through an approved guide action.
const SourceAIGuide = "ai-guide"

type ActionKind string

const (
	ActionCreateActivity         ActionKind = "create_activity"
	ActionAddPackingItem         ActionKind = "add_packing_item"
	ActionSuggestItineraryChange ActionKind = "suggest_itinerary_change"
	ActionReplaceActivity        ActionKind = "replace_activity"
	ActionDeleteActivity         ActionKind = "delete_activity"
	ActionUpdateActivity         ActionKind = "update_activity"
	ActionLogExpense             ActionKind = "log_expense"
	ActionRecordPayment          ActionKind = "record_payment"
)

type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusApproved  ActionStatus = "approved"
	StatusDismissed ActionStatus = "dismissed"
)

// Action is the pending-mutation contract attached to an assistant chat
// message. Status only ever moves pending -> approved or pending -> dismissed.
type Action struct {
	Action   ActionKind    `json:"action"`
	Status   ActionStatus  `json:"status"`
	ResultID string        `json:"result_id,omitempty"`
	Payload  ActionPayload `json:"payload"`
}

// ActionPayload is the closed set of per-kind payload shapes.
type ActionPayload interface {
	isActionPayload()
}

type CreateActivityPayload struct {
	DayNumber    int     `json:"day_number"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	StartTime    string  `json:"start_time,omitempty"`
	LocationName string  `json:"location_name,omitempty"`
	Description  string  `json:"description,omitempty"`
	CostEstimate float64 `json:"cost_estimate,omitempty"`
}

type AddPackingItemPayload struct {
	ChecklistType string `json:"checklist_type"`
	Label         string `json:"label"`
}

type SuggestItineraryChangePayload struct {
	DayNumber      int    `json:"day_number"`
	SuggestionText string `json:"suggestion_text"`
}

type ReplaceActivityPayload struct {
	DayNumber        int     `json:"day_number"`
	OldActivityTitle string  `json:"old_activity_title"`
	Title            string  `json:"title"`
	Type             string  `json:"type"`
	StartTime        string  `json:"start_time,omitempty"`
	LocationName     string  `json:"location_name,omitempty"`
	Description      string  `json:"description,omitempty"`
	CostEstimate     float64 `json:"cost_estimate,omitempty"`
}

type DeleteActivityPayload struct {
	DayNumber     int    `json:"day_number"`
	ActivityTitle string `json:"activity_title"`
}

// UpdateActivityPayload uses pointers so that absent fields are left untouched
// on approval rather than zeroed.
type UpdateActivityPayload struct {
	DayNumber     int      `json:"day_number"`
	ActivityTitle string   `json:"activity_title"`
	Title         *string  `json:"title,omitempty"`
	Type          *string  `json:"type,omitempty"`
	Status        *string  `json:"status,omitempty"`
	StartTime     *string  `json:"start_time,omitempty"`
	LocationName  *string  `json:"location_name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	CostEstimate  *float64 `json:"cost_estimate,omitempty"`
}

type LogExpensePayload struct {
	Title      string  `json:"title"`
	Amount     float64 `json:"amount"`
	Category   string  `json:"category"`
	PaidByName string  `json:"paid_by_name,omitempty"`
	DayNumber  int     `json:"day_number,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

type RecordPaymentPayload struct {
	FromName string  `json:"from_name"`
	ToName   string  `json:"to_name"`
	Amount   float64 `json:"amount"`
	Method   string  `json:"method,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

func (CreateActivityPayload) isActionPayload()         {}
func (AddPackingItemPayload) isActionPayload()         {}
func (SuggestItineraryChangePayload) isActionPayload() {}
func (ReplaceActivityPayload) isActionPayload()        {}
func (DeleteActivityPayload) isActionPayload()         {}
func (UpdateActivityPayload) isActionPayload()         {}
func (LogExpensePayload) isActionPayload()             {}
func (RecordPaymentPayload) isActionPayload()          {}

func (a *Action) UnmarshalJSON(data []byte) error {
	var head struct {
		Action   ActionKind      `json:"action"`
		Status   ActionStatus    `json:"status"`
		ResultID string          `json:"result_id"`
		Payload  json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	a.Action = head.Action
	a.Status = head.Status
	a.ResultID = head.ResultID

	payload, err := decodePayload(head.Action, head.Payload)
	if err != nil {
		return err
	}
	a.Payload = payload
	return nil
}

func decodePayload(kind ActionKind, raw json.RawMessage) (ActionPayload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	unmarshal := func(v ActionPayload) (ActionPayload, error) {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	switch kind {
	case ActionCreateActivity:
		return unmarshal(&CreateActivityPayload{})
	case ActionAddPackingItem:
		return unmarshal(&AddPackingItemPayload{})
	case ActionSuggestItineraryChange:
		return unmarshal(&SuggestItineraryChangePayload{})
	case ActionReplaceActivity:
		return unmarshal(&ReplaceActivityPayload{})
	case ActionDeleteActivity:
		return unmarshal(&DeleteActivityPayload{})
	case ActionUpdateActivity:
		return unmarshal(&UpdateActivityPayload{})
	case ActionLogExpense:
		return unmarshal(&LogExpensePayload{})
	case ActionRecordPayment:
		return unmarshal(&RecordPaymentPayload{})
	default:
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
}

// BuildAction converts a completed tool call into a pending Action. It returns
// nil when the tool is unknown (e.g. the read-only budget tool) or when the
// accumulated arguments are not valid JSON; a turn with unparsable arguments
// degrades to a text-only message instead of failing.
func BuildAction(toolName string, rawArgs string) *Action {
	kind := ActionKind(toolName)
	payload, err := decodePayload(kind, json.RawMessage(rawArgs))
	if err != nil {
		return nil
	}
	return &Action{Action: kind, Status: StatusPending, Payload: payload}
}

// ProposalText is the human-readable sentence appended to the assistant reply
// when a write tool call was made, so the client can render it next to the
// approve/dismiss control.
func (a *Action) ProposalText() string {
	switch p := a.Payload.(type) {
	case *CreateActivityPayload:
		time := ""
		if p.StartTime != "" {
			time = fmt.Sprintf(" at %s", p.StartTime)
		}
		return fmt.Sprintf("I'd like to add **%s** to Day %d%s. Would you like me to go ahead?", p.Title, p.DayNumber, time)
	case *AddPackingItemPayload:
		return fmt.Sprintf("I'd like to add **%s** to your %s list. Sound good?", p.Label, p.ChecklistType)
	case *SuggestItineraryChangePayload:
		return fmt.Sprintf("Here's a suggestion for Day %d: %s", p.DayNumber, p.SuggestionText)
	case *ReplaceActivityPayload:
		return fmt.Sprintf("I'd like to replace **%s** with **%s** on Day %d. Want me to make the swap?", p.OldActivityTitle, p.Title, p.DayNumber)
	case *DeleteActivityPayload:
		return fmt.Sprintf("I'd like to remove **%s** from Day %d. Should I go ahead?", p.ActivityTitle, p.DayNumber)
	case *UpdateActivityPayload:
		return fmt.Sprintf("I'd like to update **%s** on Day %d. Want me to apply the change?", p.ActivityTitle, p.DayNumber)
	case *LogExpensePayload:
		return fmt.Sprintf("I'd like to log a **$%.2f** expense for **%s**. Should I add it?", p.Amount, p.Title)
	case *RecordPaymentPayload:
		return fmt.Sprintf("I'd like to record a **$%.2f** payment from **%s** to **%s**. Confirm?", p.Amount, p.FromName, p.ToName)
	default:
		return ""
	}
}

var clockTimePattern = regexp.MustCompile(`(\d{1,2}:\d{2})`)

// ParseClockTime extracts the first HH:MM substring from a free-form time
// value (covers "19:30", "2026-05-16T19:30:00", "around 7:00 PM"). A value
// with no clock time yields "" and is treated as unset, never an error.
func ParseClockTime(value string) string {
	match := clockTimePattern.FindString(value)
	return match
}
