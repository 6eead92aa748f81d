package finance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for expense, income and goal dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", kerrors.ErrValidation, s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYY-MM-DD and full RFC 3339 timestamps.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = Date{t}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = NewDate(t)
	return nil
}

// HistoryAction records what happened to an asset.
type HistoryAction string

const (
	ActionCreated HistoryAction = "created"
	ActionUpdated HistoryAction = "updated"
	ActionDeleted HistoryAction = "deleted"
)

// Asset is something the user owns, valued at a point in time.
type Asset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Value       decimal.Decimal `json:"value"`
	Currency    string          `json:"currency,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Created     time.Time       `json:"created"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// AssetHistory is one entry in the asset change log.
type AssetHistory struct {
	ID            string           `json:"id"`
	AssetID       string           `json:"assetId"`
	Name          string           `json:"name"`
	Action        HistoryAction    `json:"action"`
	PreviousValue *decimal.Decimal `json:"previousValue,omitempty"`
	Value         decimal.Decimal  `json:"value"`
	Timestamp     time.Time        `json:"timestamp"`
}

// AssetBook is the shape of the assets record set.
type AssetBook struct {
	Assets  []Asset        `json:"assets"`
	History []AssetHistory `json:"history"`
}

// Expense is money spent.
type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        Date            `json:"date"`
	Notes       string          `json:"notes,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Income is money received.
type Income struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Date      Date            `json:"date"`
	Recurring bool            `json:"recurring"`
	Notes     string          `json:"notes,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Contribution is one deposit towards a goal.
type Contribution struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      Date            `json:"date"`
	Note      string          `json:"note,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Goal is a savings target. Saved always equals the sum of SavingsDetails.
type Goal struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Target         decimal.Decimal `json:"target"`
	Saved          decimal.Decimal `json:"saved"`
	Deadline       *Date           `json:"deadline,omitempty"`
	SavingsDetails []Contribution  `json:"savingsDetails"`
	Created        time.Time       `json:"created"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// recompute re-establishes Saved from the contribution list.
func (g *Goal) recompute() {
	saved := decimal.Zero
	for _, c := range g.SavingsDetails {
		saved = saved.Add(c.Amount)
	}
	g.Saved = saved
	if g.SavingsDetails == nil {
		g.SavingsDetails = []Contribution{}
	}
}

// Remaining returns how much is left to reach the target, never below zero.
func (g Goal) Remaining() decimal.Decimal {
	left := g.Target.Sub(g.Saved)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// Progress returns Saved as a percentage of Target, rounded to one decimal.
func (g Goal) Progress() decimal.Decimal {
	if !g.Target.IsPositive() {
		return decimal.Zero
	}
	return g.Saved.Div(g.Target).Mul(decimal.NewFromInt(100)).Round(1)
}

// CategoryKind selects the expense or income category list.
type CategoryKind string

const (
	ExpenseCategory CategoryKind = "expense"
	IncomeCategory  CategoryKind = "income"
)

// ParseCategoryKind validates a kind name.
func ParseCategoryKind(s string) (CategoryKind, error) {
	switch kind := CategoryKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case ExpenseCategory, IncomeCategory:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: category kind must be %q or %q", kerrors.ErrValidation, ExpenseCategory, IncomeCategory)
	}
}

// CategoryList is the shape of the categories record set.
type CategoryList struct {
	Expense []string `json:"expense"`
	Income  []string `json:"income"`
}

// Of returns the list for kind.
func (c CategoryList) Of(kind CategoryKind) []string {
	if kind == IncomeCategory {
		return c.Income
	}
	return c.Expense
}

// Lookup returns the stored spelling of name in kind's list, matching
// case-insensitively.
func (c CategoryList) Lookup(kind CategoryKind, name string) (string, bool) {
	for _, existing := range c.Of(kind) {
		if strings.EqualFold(existing, strings.TrimSpace(name)) {
			return existing, true
		}
	}
	return "", false
}

// Settings holds the preferences the ledger reads.
type Settings struct {
	EncryptionEnabled bool   `json:"encryptionEnabled"`
	Currency          string `json:"currency"`
}

// Totals are simple sums over the current records.
type Totals struct {
	Assets   decimal.Decimal
	Expenses decimal.Decimal
	Income   decimal.Decimal
	Saved    decimal.Decimal
	// Balance is Income minus Expenses.
	Balance decimal.Decimal
}
