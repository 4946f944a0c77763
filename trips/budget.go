package trips

import (
	"sort"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RecentExpenseLimit caps the expense list included in summaries, most recent
// first.
const RecentExpenseLimit = 5

type ExpenseSummary struct {
	Title    string  `json:"title"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	PaidBy   string  `json:"paidBy,omitempty"`
	Date     string  `json:"date,omitempty"`
}

type BudgetSummary struct {
	Total    float64          `json:"total"`
	Currency string           `json:"currency"`
	Count    int              `json:"count"`
	Recent   []ExpenseSummary `json:"recent"`
}

// SummarizeBudget aggregates the trip's expenses: total spend, expense count,
// and the most recent entries (capped at RecentExpenseLimit).
func SummarizeBudget(app core.App, trip *core.Record) (*BudgetSummary, error) {
	records, err := app.FindAllRecords("expenses", dbx.NewExp("trip = {:tripId}", dbx.Params{"tripId": trip.Id}))
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].GetDateTime("created").Time().After(records[j].GetDateTime("created").Time())
	})

	memberNames, err := memberNamesById(app, trip)
	if err != nil {
		return nil, err
	}

	summary := &BudgetSummary{
		Total:    lo.SumBy(records, func(r *core.Record) float64 { return r.GetFloat("totalAmount") }),
		Currency: "USD",
		Count:    len(records),
	}

	for _, record := range records {
		if len(summary.Recent) >= RecentExpenseLimit {
			break
		}
		entry := ExpenseSummary{
			Title:    record.GetString("title"),
			Amount:   record.GetFloat("totalAmount"),
			Category: record.GetString("category"),
			PaidBy:   memberNames[record.GetString("paidByMember")],
		}
		if date := record.GetDateTime("expenseDate"); !date.IsZero() {
			entry.Date = date.Time().Format("2006-01-02")
		}
		summary.Recent = append(summary.Recent, entry)
	}

	return summary, nil
}

func memberNamesById(app core.App, trip *core.Record) (map[string]string, error) {
	members, err := app.FindAllRecords("trip_members", dbx.NewExp("trip = {:tripId}", dbx.Params{"tripId": trip.Id}))
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(members))
	for _, member := range members {
		names[member.Id] = member.GetString("displayName")
	}
	return names, nil
}

var amountPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatAmount renders a money value with locale grouping, e.g. "$1,234.50".
func FormatAmount(value float64, currency string) string {
	symbol := "$"
	if currency != "" && currency != "USD" {
		symbol = currency + " "
	}
	return amountPrinter.Sprintf("%s%.2f", symbol, value)
}
