package guide

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

func requestError(t *testing.T, err error) *RequestError {
	t.Helper()

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T: %v", err, err)
	}
	return reqErr
}

func TestDecideApproveCreateActivity(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	seedActivity(t, app, trip, 4, "Mather Point Sunrise", 1)
	seedActivity(t, app, trip, 4, "Lodge Check-in", 2)

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action: ActionCreateActivity,
		Status: StatusPending,
		Payload: &CreateActivityPayload{
			DayNumber:    4,
			Title:        "Bright Angel Trail",
			Type:         "activity",
			StartTime:    "around 7:00 in the morning",
			LocationName: "Grand Canyon South Rim",
			CostEstimate: 0,
		},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusApproved {
		t.Fatalf("expected approved status, got %q", result.Status)
	}
	if result.ResultID == "" {
		t.Fatal("expected a result id for the created activity")
	}

	activity, err := app.FindRecordById("activities", result.ResultID)
	if err != nil {
		t.Fatal(err)
	}
	if got := activity.GetString("title"); got != "Bright Angel Trail" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := activity.GetString("status"); got != "tentative" {
		t.Fatalf("guide-created activity should be tentative, got %q", got)
	}
	if got := activity.GetString("source"); got != SourceAIGuide {
		t.Fatalf("unexpected source %q", got)
	}
	if got := activity.GetString("startTime"); got != "7:00" {
		t.Fatalf("expected normalized start time 7:00, got %q", got)
	}
	if got := activity.GetInt("sortOrder"); got != 3 {
		t.Fatalf("expected sortOrder 3 (after existing 1 and 2), got %d", got)
	}

	stored := messageAction(t, app, message.Id)
	if stored.Status != StatusApproved {
		t.Fatalf("message metadata status not updated: %q", stored.Status)
	}
	if stored.ResultID != result.ResultID {
		t.Fatalf("message metadata result id %q != %q", stored.ResultID, result.ResultID)
	}
}

func TestDecideApproveUnknownDay(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionCreateActivity,
		Status:  StatusPending,
		Payload: &CreateActivityPayload{DayNumber: 42, Title: "Moon Walk", Type: "activity"},
	})

	_, err := Decide(app, trip, user.Id, message.Id, "approve")
	reqErr := requestError(t, err)
	if reqErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", reqErr.Code)
	}
	if !strings.Contains(reqErr.Message, "Day 42") {
		t.Fatalf("expected message to name the day, got %q", reqErr.Message)
	}

	// failed approval must leave the action pending
	if stored := messageAction(t, app, message.Id); stored.Status != StatusPending {
		t.Fatalf("action should remain pending after a failed apply, got %q", stored.Status)
	}
}

func TestDecideDismiss(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionDeleteActivity,
		Status:  StatusPending,
		Payload: &DeleteActivityPayload{DayNumber: 2, ActivityTitle: "Cadillac Ranch"},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "dismiss")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusDismissed {
		t.Fatalf("expected dismissed, got %q", result.Status)
	}
	// dismiss never touches trip data, so the nonexistent activity is fine
	if stored := messageAction(t, app, message.Id); stored.Status != StatusDismissed {
		t.Fatalf("metadata not updated, got %q", stored.Status)
	}
}

func TestDecideRejectsNonPending(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	seedActivity(t, app, trip, 3, "Route 66 Diner", 1)

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionDeleteActivity,
		Status:  StatusPending,
		Payload: &DeleteActivityPayload{DayNumber: 3, ActivityTitle: "Route 66 Diner"},
	})

	if _, err := Decide(app, trip, user.Id, message.Id, "approve"); err != nil {
		t.Fatal(err)
	}

	// second decision on the same message must fail without re-applying
	_, err := Decide(app, trip, user.Id, message.Id, "approve")
	reqErr := requestError(t, err)
	if reqErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", reqErr.Code)
	}
	if reqErr.Message != "action is not pending" {
		t.Fatalf("unexpected message %q", reqErr.Message)
	}

	_, err = Decide(app, trip, user.Id, message.Id, "dismiss")
	reqErr = requestError(t, err)
	if reqErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on dismiss after approve, got %d", reqErr.Code)
	}
	if stored := messageAction(t, app, message.Id); stored.Status != StatusApproved {
		t.Fatalf("approved status must be terminal, got %q", stored.Status)
	}
}

func TestDecideRejectsOtherUsersMessage(t *testing.T) {
	app, trip := setupTestApp(t)
	owner := seedUser(t, app, "dana@example.com")
	other := seedUser(t, app, "sam@example.com")

	message := seedActionMessage(t, app, trip, owner.Id, &Action{
		Action:  ActionAddPackingItem,
		Status:  StatusPending,
		Payload: &AddPackingItemPayload{ChecklistType: "packing", Label: "Sunscreen"},
	})

	_, err := Decide(app, trip, other.Id, message.Id, "approve")
	reqErr := requestError(t, err)
	if reqErr.Code != http.StatusNotFound {
		t.Fatalf("foreign message should read as not found, got %d", reqErr.Code)
	}
	if stored := messageAction(t, app, message.Id); stored.Status != StatusPending {
		t.Fatalf("foreign decision must not mutate, got %q", stored.Status)
	}
}

func TestDecideRejectsPlainTextMessage(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")

	collection, err := app.FindCollectionByNameOrId("chat_messages")
	if err != nil {
		t.Fatal(err)
	}
	message := core.NewRecord(collection)
	message.Set("trip", trip.Id)
	message.Set("user", user.Id)
	message.Set("role", "assistant")
	message.Set("content", "The Grand Canyon is stunning at sunrise.")
	if err := app.Save(message); err != nil {
		t.Fatal(err)
	}

	_, err = Decide(app, trip, user.Id, message.Id, "approve")
	reqErr := requestError(t, err)
	if reqErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", reqErr.Code)
	}
}

func TestDecideApproveAddPackingItemCreatesChecklist(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionAddPackingItem,
		Status:  StatusPending,
		Payload: &AddPackingItemPayload{ChecklistType: "packing", Label: "Hiking boots"},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}

	item, err := app.FindRecordById("checklist_items", result.ResultID)
	if err != nil {
		t.Fatal(err)
	}
	if got := item.GetString("label"); got != "Hiking boots" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := item.GetString("source"); got != SourceAIGuide {
		t.Fatalf("unexpected source %q", got)
	}

	checklist, err := app.FindRecordById("checklists", item.GetString("checklist"))
	if err != nil {
		t.Fatal(err)
	}
	if got := checklist.GetString("title"); got != "Packing List" {
		t.Fatalf("expected canonical Packing List title, got %q", got)
	}

	// a second item lands on the same checklist instead of creating another
	second := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionAddPackingItem,
		Status:  StatusPending,
		Payload: &AddPackingItemPayload{ChecklistType: "packing", Label: "Rain jacket"},
	})
	result2, err := Decide(app, trip, user.Id, second.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}
	item2, err := app.FindRecordById("checklist_items", result2.ResultID)
	if err != nil {
		t.Fatal(err)
	}
	if item2.GetString("checklist") != checklist.Id {
		t.Fatal("second packing item should reuse the existing checklist")
	}
}

func TestDecideApproveReplaceKeepsSortOrder(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	seedActivity(t, app, trip, 5, "Morning Drive", 1)
	old := seedActivity(t, app, trip, 5, "Chain Restaurant Dinner", 2)
	seedActivity(t, app, trip, 5, "Evening Stroll", 3)

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action: ActionReplaceActivity,
		Status: StatusPending,
		Payload: &ReplaceActivityPayload{
			DayNumber:        5,
			OldActivityTitle: "chain restaurant",
			Title:            "Lotus of Siam",
			Type:             "restaurant",
			StartTime:        "19:30",
		},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := app.FindRecordById("activities", old.Id); err == nil {
		t.Fatal("replaced activity should be deleted")
	}
	replacement, err := app.FindRecordById("activities", result.ResultID)
	if err != nil {
		t.Fatal(err)
	}
	if got := replacement.GetInt("sortOrder"); got != 2 {
		t.Fatalf("replacement should inherit sortOrder 2, got %d", got)
	}
	if got := replacement.GetString("startTime"); got != "19:30" {
		t.Fatalf("unexpected startTime %q", got)
	}
}

func TestDecideApproveReplaceFailedInsertKeepsOld(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	old := seedActivity(t, app, trip, 5, "Chain Restaurant Dinner", 1)

	// "meal" is outside the activities type enum, so the insert is rejected
	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action: ActionReplaceActivity,
		Status: StatusPending,
		Payload: &ReplaceActivityPayload{
			DayNumber:        5,
			OldActivityTitle: "Chain Restaurant Dinner",
			Title:            "Lotus of Siam",
			Type:             "meal",
		},
	})

	if _, err := Decide(app, trip, user.Id, message.Id, "approve"); err == nil {
		t.Fatal("expected the approval to fail on the invalid replacement")
	}

	// the delete must roll back with the failed insert
	if _, err := app.FindRecordById("activities", old.Id); err != nil {
		t.Fatal("old activity should survive a failed replacement insert")
	}
	if stored := messageAction(t, app, message.Id); stored.Status != StatusPending {
		t.Fatalf("action should remain pending after a failed apply, got %q", stored.Status)
	}
}

func TestDecideApproveDeleteAmbiguous(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	seedActivity(t, app, trip, 6, "Brunch at Matt's", 1)
	seedActivity(t, app, trip, 6, "Sunday Brunch", 2)

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionDeleteActivity,
		Status:  StatusPending,
		Payload: &DeleteActivityPayload{DayNumber: 6, ActivityTitle: "brunch"},
	})

	_, err := Decide(app, trip, user.Id, message.Id, "approve")
	reqErr := requestError(t, err)
	if reqErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on ambiguity, got %d", reqErr.Code)
	}
	if !strings.Contains(reqErr.Message, "Brunch at Matt's") || !strings.Contains(reqErr.Message, "Sunday Brunch") {
		t.Fatalf("ambiguity error should name every candidate, got %q", reqErr.Message)
	}
	if stored := messageAction(t, app, message.Id); stored.Status != StatusPending {
		t.Fatalf("ambiguous delete must stay pending, got %q", stored.Status)
	}
}

func TestDecideApproveUpdateActivityPartial(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	activity := seedActivity(t, app, trip, 3, "Meteor Crater Stop", 1)
	activity.Set("locationName", "Winslow, AZ")
	activity.Set("costEstimate", 29.0)
	if err := app.Save(activity); err != nil {
		t.Fatal(err)
	}

	newTime := "10:30"
	newStatus := "confirmed"
	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action: ActionUpdateActivity,
		Status: StatusPending,
		Payload: &UpdateActivityPayload{
			DayNumber:     3,
			ActivityTitle: "Meteor Crater Stop",
			StartTime:     &newTime,
			Status:        &newStatus,
		},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}
	if result.ResultID != activity.Id {
		t.Fatalf("result id should be the updated activity, got %q", result.ResultID)
	}

	updated, err := app.FindRecordById("activities", activity.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got := updated.GetString("startTime"); got != "10:30" {
		t.Fatalf("unexpected startTime %q", got)
	}
	if got := updated.GetString("status"); got != "confirmed" {
		t.Fatalf("unexpected status %q", got)
	}
	// absent payload fields stay as they were
	if got := updated.GetString("locationName"); got != "Winslow, AZ" {
		t.Fatalf("locationName should be untouched, got %q", got)
	}
	if got := updated.GetFloat("costEstimate"); got != 29.0 {
		t.Fatalf("costEstimate should be untouched, got %v", got)
	}
}

func TestDecideApproveLogExpenseDefaultsToActingUser(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	member := seedMember(t, app, trip, user.Id, "Dana")
	seedMember(t, app, trip, "", "Marcus")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionLogExpense,
		Status:  StatusPending,
		Payload: &LogExpensePayload{Title: "Gas fill-up", Amount: 62.40},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}

	expense, err := app.FindRecordById("expenses", result.ResultID)
	if err != nil {
		t.Fatal(err)
	}
	if got := expense.GetString("paidByMember"); got != member.Id {
		t.Fatalf("expense without paid_by_name should default to the acting user's member, got %q", got)
	}
	if got := expense.GetString("category"); got != "other" {
		t.Fatalf("missing category should default to other, got %q", got)
	}
	if got := expense.GetFloat("totalAmount"); got != 62.40 {
		t.Fatalf("unexpected amount %v", got)
	}
}

func TestDecideApproveLogExpenseResolvesNamedPayer(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	seedMember(t, app, trip, user.Id, "Dana")
	marcus := seedMember(t, app, trip, "", "Marcus")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionLogExpense,
		Status:  StatusPending,
		Payload: &LogExpensePayload{Title: "Dinner", Amount: 148.0, Category: "food", PaidByName: "marcus"},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}
	expense, err := app.FindRecordById("expenses", result.ResultID)
	if err != nil {
		t.Fatal(err)
	}
	if got := expense.GetString("paidByMember"); got != marcus.Id {
		t.Fatalf("payer should resolve case-insensitively to Marcus, got %q", got)
	}
}

func TestDecideApproveRecordPaymentUnknownRecipient(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	seedMember(t, app, trip, user.Id, "Dana")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionRecordPayment,
		Status:  StatusPending,
		Payload: &RecordPaymentPayload{FromName: "Dana", ToName: "Ziggy", Amount: 50},
	})

	_, err := Decide(app, trip, user.Id, message.Id, "approve")
	reqErr := requestError(t, err)
	if reqErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", reqErr.Code)
	}
	if !strings.Contains(reqErr.Message, "recipient") || !strings.Contains(reqErr.Message, "Ziggy") {
		t.Fatalf("error should name the unresolved recipient, got %q", reqErr.Message)
	}

	payments, err := app.FindAllRecords("expense_payments",
		dbx.NewExp("trip = {:trip}", dbx.Params{"trip": trip.Id}))
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 0 {
		t.Fatalf("no payment should be written, found %d", len(payments))
	}
}

func TestDecideApproveRecordPayment(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")
	dana := seedMember(t, app, trip, user.Id, "Dana")
	marcus := seedMember(t, app, trip, "", "Marcus")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionRecordPayment,
		Status:  StatusPending,
		Payload: &RecordPaymentPayload{FromName: "Marcus", ToName: "Dana", Amount: 75.50, Method: "venmo"},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}
	payment, err := app.FindRecordById("expense_payments", result.ResultID)
	if err != nil {
		t.Fatal(err)
	}
	if payment.GetString("fromMember") != marcus.Id || payment.GetString("toMember") != dana.Id {
		t.Fatal("payment endpoints resolved to the wrong members")
	}
	if got := payment.GetString("method"); got != "venmo" {
		t.Fatalf("unexpected method %q", got)
	}
}

func TestDecideApproveSuggestionNoMutation(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionSuggestItineraryChange,
		Status:  StatusPending,
		Payload: &SuggestItineraryChangePayload{DayNumber: 2, SuggestionText: "Swap the museum for the hot springs."},
	})

	result, err := Decide(app, trip, user.Id, message.Id, "approve")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusApproved {
		t.Fatalf("expected approved, got %q", result.Status)
	}
	if result.ResultID != "" {
		t.Fatalf("suggestion approval has no result record, got %q", result.ResultID)
	}
}

func TestDecidePropagatesToSharedCopies(t *testing.T) {
	app, trip := setupTestApp(t)
	user := seedUser(t, app, "dana@example.com")

	message := seedActionMessage(t, app, trip, user.Id, &Action{
		Action:  ActionAddPackingItem,
		Status:  StatusPending,
		Payload: &AddPackingItemPayload{ChecklistType: "todo", Label: "Book campsite"},
	})
	share := seedSharedCopy(t, app, trip, user.Id, message)

	if _, err := Decide(app, trip, user.Id, message.Id, "dismiss"); err != nil {
		t.Fatal(err)
	}

	updated, err := app.FindRecordById("group_messages", share.Id)
	if err != nil {
		t.Fatal(err)
	}
	var copied Action
	if err := copied.UnmarshalJSON([]byte(updated.GetString("sharedActionMetadata"))); err != nil {
		t.Fatal(err)
	}
	if copied.Status != StatusDismissed {
		t.Fatalf("shared copy should carry the dismissed status, got %q", copied.Status)
	}
}
