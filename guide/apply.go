package guide

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// RequestError is a resolution or validation failure that maps directly to an
// HTTP status for the approval endpoint. No state has been mutated when one is
// returned.
type RequestError struct {
	Code    int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func failf(code int, format string, args ...any) *RequestError {
	return &RequestError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ApplyResult reports the outcome of an approve/dismiss decision.
type ApplyResult struct {
	Status   ActionStatus `json:"status"`
	ResultID string       `json:"resultId,omitempty"`
}

var checklistTitles = map[string]string{
	"packing":  "Packing List",
	"todo":     "To-Do List",
	"shopping": "Shopping List",
}

// Decide resolves a pending action on one of the caller's chat messages.
// Preconditions: the message exists, belongs to the caller, and carries an
// action with status exactly "pending"; otherwise the call fails without side
// effects. Approval dispatches on the action kind, performs the mutation
// against current data, and records status plus result id back onto the
// message. Either way the final state is fanned out to any shared group-chat
// copies best effort.
func Decide(app core.App, trip *core.Record, userID, messageID, decision string) (*ApplyResult, error) {
	message, err := app.FindRecordById("chat_messages", messageID)
	if err != nil {
		return nil, failf(http.StatusNotFound, "message not found")
	}
	if message.GetString("user") != userID {
		return nil, failf(http.StatusNotFound, "message not found")
	}

	raw := message.GetString("metadata")
	if raw == "" || raw == "null" {
		return nil, failf(http.StatusBadRequest, "action is not pending")
	}
	var action Action
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return nil, failf(http.StatusBadRequest, "action is not pending")
	}
	if action.Status != StatusPending {
		return nil, failf(http.StatusBadRequest, "action is not pending")
	}

	if decision == "dismiss" {
		action.Status = StatusDismissed
		if err := writeBackAction(app, message, &action); err != nil {
			return nil, err
		}
		propagateSharedCopies(app, message.Id, &action)
		return &ApplyResult{Status: StatusDismissed}, nil
	}

	resultID, err := applyAction(app, trip, userID, &action)
	if err != nil {
		return nil, err
	}

	action.Status = StatusApproved
	action.ResultID = resultID
	if err := writeBackAction(app, message, &action); err != nil {
		return nil, err
	}
	propagateSharedCopies(app, message.Id, &action)

	return &ApplyResult{Status: StatusApproved, ResultID: resultID}, nil
}

func applyAction(app core.App, trip *core.Record, userID string, action *Action) (string, error) {
	switch p := action.Payload.(type) {
	case *CreateActivityPayload:
		return applyCreateActivity(app, trip, userID, p)
	case *AddPackingItemPayload:
		return applyAddPackingItem(app, trip, userID, p)
	case *SuggestItineraryChangePayload:
		// informational only, nothing to mutate
		return "", nil
	case *ReplaceActivityPayload:
		return applyReplaceActivity(app, trip, userID, p)
	case *DeleteActivityPayload:
		return applyDeleteActivity(app, trip, p)
	case *UpdateActivityPayload:
		return applyUpdateActivity(app, trip, p)
	case *LogExpensePayload:
		return applyLogExpense(app, trip, userID, p)
	case *RecordPaymentPayload:
		return applyRecordPayment(app, trip, p)
	default:
		return "", failf(http.StatusBadRequest, "unsupported action %q", action.Action)
	}
}

func applyCreateActivity(app core.App, trip *core.Record, userID string, p *CreateActivityPayload) (string, error) {
	day, err := findDay(app, trip, p.DayNumber)
	if err != nil {
		return "", err
	}

	existing, err := DayActivities(app, day)
	if err != nil {
		return "", err
	}
	nextOrder := 1
	for _, a := range existing {
		if order := a.GetInt("sortOrder"); order >= nextOrder {
			nextOrder = order + 1
		}
	}

	return insertActivity(app, trip, day, userID, activityFields{
		Title:        p.Title,
		Type:         p.Type,
		StartTime:    ParseClockTime(p.StartTime),
		LocationName: p.LocationName,
		Description:  p.Description,
		CostEstimate: p.CostEstimate,
		SortOrder:    nextOrder,
	})
}

func applyAddPackingItem(app core.App, trip *core.Record, userID string, p *AddPackingItemPayload) (string, error) {
	title, ok := checklistTitles[p.ChecklistType]
	if !ok {
		return "", failf(http.StatusBadRequest, "unknown checklist type %q", p.ChecklistType)
	}

	checklist, err := app.FindFirstRecordByFilter(
		"checklists", "trip = {:trip} && type = {:type}",
		dbx.Params{"trip": trip.Id, "type": p.ChecklistType},
	)
	if err != nil {
		collection, err := app.FindCollectionByNameOrId("checklists")
		if err != nil {
			return "", err
		}
		checklist = core.NewRecord(collection)
		checklist.Set("trip", trip.Id)
		checklist.Set("title", title)
		checklist.Set("type", p.ChecklistType)
		checklist.Set("createdBy", userID)
		if err := app.Save(checklist); err != nil {
			return "", err
		}
	}

	collection, err := app.FindCollectionByNameOrId("checklist_items")
	if err != nil {
		return "", err
	}
	item := core.NewRecord(collection)
	item.Set("checklist", checklist.Id)
	item.Set("label", p.Label)
	item.Set("source", SourceAIGuide)
	if err := app.Save(item); err != nil {
		return "", err
	}
	return item.Id, nil
}

func applyReplaceActivity(app core.App, trip *core.Record, userID string, p *ReplaceActivityPayload) (string, error) {
	day, err := findDay(app, trip, p.DayNumber)
	if err != nil {
		return "", err
	}
	old, err := resolveActivity(app, day, p.OldActivityTitle, p.DayNumber)
	if err != nil {
		return "", err
	}

	// the replacement inherits the old activity's sort position; delete and
	// insert share one transaction so a failed insert keeps the old activity
	oldOrder := old.GetInt("sortOrder")
	var resultID string
	err = app.RunInTransaction(func(txApp core.App) error {
		if err := txApp.Delete(old); err != nil {
			return err
		}
		id, err := insertActivity(txApp, trip, day, userID, activityFields{
			Title:        p.Title,
			Type:         p.Type,
			StartTime:    ParseClockTime(p.StartTime),
			LocationName: p.LocationName,
			Description:  p.Description,
			CostEstimate: p.CostEstimate,
			SortOrder:    oldOrder,
		})
		resultID = id
		return err
	})
	if err != nil {
		return "", err
	}
	return resultID, nil
}

func applyDeleteActivity(app core.App, trip *core.Record, p *DeleteActivityPayload) (string, error) {
	day, err := findDay(app, trip, p.DayNumber)
	if err != nil {
		return "", err
	}
	activity, err := resolveActivity(app, day, p.ActivityTitle, p.DayNumber)
	if err != nil {
		return "", err
	}
	if err := app.Delete(activity); err != nil {
		return "", err
	}
	return activity.Id, nil
}

func applyUpdateActivity(app core.App, trip *core.Record, p *UpdateActivityPayload) (string, error) {
	day, err := findDay(app, trip, p.DayNumber)
	if err != nil {
		return "", err
	}
	activity, err := resolveActivity(app, day, p.ActivityTitle, p.DayNumber)
	if err != nil {
		return "", err
	}

	// partial update: only fields present in the payload are touched
	if p.Title != nil {
		activity.Set("title", *p.Title)
	}
	if p.Type != nil {
		activity.Set("type", *p.Type)
	}
	if p.Status != nil {
		activity.Set("status", *p.Status)
	}
	if p.StartTime != nil {
		activity.Set("startTime", ParseClockTime(*p.StartTime))
	}
	if p.LocationName != nil {
		activity.Set("locationName", *p.LocationName)
	}
	if p.Description != nil {
		activity.Set("description", *p.Description)
	}
	if p.CostEstimate != nil {
		activity.Set("costEstimate", *p.CostEstimate)
	}

	if err := app.Save(activity); err != nil {
		return "", err
	}
	return activity.Id, nil
}

func applyLogExpense(app core.App, trip *core.Record, userID string, p *LogExpensePayload) (string, error) {
	var payer *core.Record
	var err error
	if p.PaidByName != "" {
		payer, err = resolveMember(app, trip, p.PaidByName, "member")
	} else {
		payer, err = memberForUser(app, trip, userID)
	}
	if err != nil {
		return "", err
	}

	category := p.Category
	if category == "" {
		category = "other"
	}

	collection, err := app.FindCollectionByNameOrId("expenses")
	if err != nil {
		return "", err
	}
	expense := core.NewRecord(collection)
	expense.Set("trip", trip.Id)
	expense.Set("title", p.Title)
	expense.Set("totalAmount", p.Amount)
	expense.Set("currency", "USD")
	expense.Set("category", category)
	expense.Set("paidByMember", payer.Id)
	expense.Set("expenseDate", types.NowDateTime())
	if p.DayNumber > 0 {
		expense.Set("dayNumber", p.DayNumber)
	}
	if p.Notes != "" {
		expense.Set("notes", p.Notes)
	}
	if err := app.Save(expense); err != nil {
		return "", err
	}
	return expense.Id, nil
}

func applyRecordPayment(app core.App, trip *core.Record, p *RecordPaymentPayload) (string, error) {
	from, err := resolveMember(app, trip, p.FromName, "payer")
	if err != nil {
		return "", err
	}
	to, err := resolveMember(app, trip, p.ToName, "recipient")
	if err != nil {
		return "", err
	}

	collection, err := app.FindCollectionByNameOrId("expense_payments")
	if err != nil {
		return "", err
	}
	payment := core.NewRecord(collection)
	payment.Set("trip", trip.Id)
	payment.Set("fromMember", from.Id)
	payment.Set("toMember", to.Id)
	payment.Set("amount", p.Amount)
	payment.Set("currency", "USD")
	payment.Set("paidAt", types.NowDateTime())
	if p.Method != "" {
		payment.Set("method", p.Method)
	}
	if p.Notes != "" {
		payment.Set("notes", p.Notes)
	}
	if err := app.Save(payment); err != nil {
		return "", err
	}
	return payment.Id, nil
}

type activityFields struct {
	Title        string
	Type         string
	StartTime    string
	LocationName string
	Description  string
	CostEstimate float64
	SortOrder    int
}

func insertActivity(app core.App, trip *core.Record, day *core.Record, userID string, fields activityFields) (string, error) {
	collection, err := app.FindCollectionByNameOrId("activities")
	if err != nil {
		return "", err
	}

	activity := core.NewRecord(collection)
	activity.Set("trip", trip.Id)
	activity.Set("day", day.Id)
	activity.Set("title", fields.Title)
	activity.Set("type", fields.Type)
	// guide-created activities always start out tentative
	activity.Set("status", "tentative")
	activity.Set("sortOrder", fields.SortOrder)
	activity.Set("source", SourceAIGuide)
	activity.Set("createdBy", userID)
	if fields.StartTime != "" {
		activity.Set("startTime", fields.StartTime)
	}
	if fields.LocationName != "" {
		activity.Set("locationName", fields.LocationName)
	}
	if fields.Description != "" {
		activity.Set("description", fields.Description)
	}
	if fields.CostEstimate > 0 {
		activity.Set("costEstimate", fields.CostEstimate)
	}
	if err := app.Save(activity); err != nil {
		return "", err
	}
	return activity.Id, nil
}

func findDay(app core.App, trip *core.Record, dayNumber int) (*core.Record, error) {
	day, err := app.FindFirstRecordByFilter(
		"days", "trip = {:trip} && dayNumber = {:dayNumber}",
		dbx.Params{"trip": trip.Id, "dayNumber": dayNumber},
	)
	if err != nil {
		return nil, failf(http.StatusNotFound, "Day %d not found", dayNumber)
	}
	return day, nil
}

func resolveActivity(app core.App, day *core.Record, title string, dayNumber int) (*core.Record, error) {
	activities, err := DayActivities(app, day)
	if err != nil {
		return nil, err
	}

	match, err := Resolve(activities, func(r *core.Record) string { return r.GetString("title") }, title)
	if err != nil {
		var ambiguous *AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			return nil, failf(http.StatusBadRequest, "%s", ambiguous.Error())
		}
		return nil, failf(http.StatusNotFound, "no activity found matching %q on day %d", title, dayNumber)
	}
	return match, nil
}

func resolveMember(app core.App, trip *core.Record, name, role string) (*core.Record, error) {
	members, err := app.FindAllRecords("trip_members", dbx.NewExp("trip = {:tripId}", dbx.Params{"tripId": trip.Id}))
	if err != nil {
		return nil, err
	}

	match, err := Resolve(members, func(r *core.Record) string { return r.GetString("displayName") }, name)
	if err != nil {
		var ambiguous *AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			return nil, failf(http.StatusBadRequest, "%s", ambiguous.Error())
		}
		return nil, failf(http.StatusNotFound, "%s %q not found among trip members", role, name)
	}
	return match, nil
}

func memberForUser(app core.App, trip *core.Record, userID string) (*core.Record, error) {
	member, err := app.FindFirstRecordByFilter(
		"trip_members", "trip = {:trip} && user = {:user}",
		dbx.Params{"trip": trip.Id, "user": userID},
	)
	if err != nil {
		return nil, failf(http.StatusNotFound, "no trip member record for the current user")
	}
	return member, nil
}

func writeBackAction(app core.App, message *core.Record, action *Action) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return err
	}
	message.Set("metadata", types.JSONRaw(raw))
	return app.Save(message)
}

// propagateSharedCopies overwrites the action copy on every group message that
// re-shared this chat message. Fire and forget: failures are logged and the
// terminal status write is idempotent, so a later approval elsewhere repairs a
// missed copy.
func propagateSharedCopies(app core.App, messageID string, action *Action) {
	shares, err := app.FindAllRecords("group_messages",
		dbx.NewExp("sharedFromMessage = {:messageId}", dbx.Params{"messageId": messageID}))
	if err != nil {
		app.Logger().Error("failed to load shared copies", "error", err, "messageId", messageID)
		return
	}

	raw, err := json.Marshal(action)
	if err != nil {
		return
	}
	for _, share := range shares {
		share.Set("sharedActionMetadata", types.JSONRaw(raw))
		if err := app.Save(share); err != nil {
			app.Logger().Error("failed to sync shared action copy", "error", err, "groupMessageId", share.Id)
		}
	}
}
