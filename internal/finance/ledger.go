package finance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger reads and writes the domain record sets through a Store.
type Ledger struct {
	store    *store.Store
	now      func() time.Time
	newID    func() string
	currency string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDs overrides uuid generation.
func WithIDs(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithDefaultCurrency sets the currency reported when settings has none.
// Invalid codes are ignored.
func WithDefaultCurrency(code string) Option {
	return func(l *Ledger) {
		if code, err := NormalizeCurrency(code); err == nil {
			l.currency = code
		}
	}
}

// NewLedger returns a Ledger over st.
func NewLedger(st *store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    st,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) timestamp() time.Time {
	return l.now().UTC().Truncate(time.Second)
}

// load decodes name into v. An absent record set reads as its default.
func (l *Ledger) load(name string, v any) error {
	status, err := l.store.Load(name, v)
	if err != nil {
		return err
	}
	if status == store.Absent {
		def, _ := store.Default(name)
		if err := json.Unmarshal(def, v); err != nil {
			return fmt.Errorf("%w: default %s: %v", kerrors.ErrSerialization, name, err)
		}
	}
	return nil
}

// AssetInput describes a new asset.
type AssetInput struct {
	Name     string
	Category string
	Value    decimal.Decimal
	Currency string
	Notes    string
}

// AssetUpdate lists the fields to change. Nil fields are left alone.
type AssetUpdate struct {
	Name     *string
	Category *string
	Value    *decimal.Decimal
	Notes    *string
}

func (l *Ledger) assetBook() (AssetBook, error) {
	var book AssetBook
	if err := l.load(store.Assets, &book); err != nil {
		return AssetBook{}, err
	}
	if book.Assets == nil {
		book.Assets = []Asset{}
	}
	if book.History == nil {
		book.History = []AssetHistory{}
	}
	return book, nil
}

// Assets returns every asset.
func (l *Ledger) Assets() ([]Asset, error) {
	book, err := l.assetBook()
	if err != nil {
		return nil, err
	}
	return book.Assets, nil
}

// AssetHistory returns the asset change log, oldest first.
func (l *Ledger) AssetHistory() ([]AssetHistory, error) {
	book, err := l.assetBook()
	if err != nil {
		return nil, err
	}
	return book.History, nil
}

// AddAsset records a new asset and its "created" history entry.
func (l *Ledger) AddAsset(in AssetInput) (Asset, error) {
	name, err := required("asset name", in.Name)
	if err != nil {
		return Asset{}, err
	}
	category, err := required("asset category", in.Category)
	if err != nil {
		return Asset{}, err
	}
	if in.Value.IsNegative() {
		return Asset{}, fmt.Errorf("%w: asset value must not be negative", kerrors.ErrValidation)
	}

	currency := ""
	if strings.TrimSpace(in.Currency) != "" {
		if currency, err = NormalizeCurrency(in.Currency); err != nil {
			return Asset{}, err
		}
	}

	book, err := l.assetBook()
	if err != nil {
		return Asset{}, err
	}

	now := l.timestamp()
	asset := Asset{
		ID:          l.newID(),
		Name:        name,
		Category:    category,
		Value:       in.Value,
		Currency:    currency,
		Notes:       strings.TrimSpace(in.Notes),
		Created:     now,
		LastUpdated: now,
	}
	book.Assets = append(book.Assets, asset)
	book.History = append(book.History, l.history(asset, ActionCreated, nil))

	if err := l.store.Set(store.Assets, book); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// UpdateAsset changes an asset and appends an "updated" history entry.
func (l *Ledger) UpdateAsset(id string, in AssetUpdate) (Asset, error) {
	book, err := l.assetBook()
	if err != nil {
		return Asset{}, err
	}

	i := indexAsset(book.Assets, id)
	if i < 0 {
		return Asset{}, fmt.Errorf("asset %s: %w", id, kerrors.ErrNotFound)
	}
	asset := book.Assets[i]
	previous := asset.Value

	if in.Name != nil {
		if asset.Name, err = required("asset name", *in.Name); err != nil {
			return Asset{}, err
		}
	}
	if in.Category != nil {
		if asset.Category, err = required("asset category", *in.Category); err != nil {
			return Asset{}, err
		}
	}
	if in.Value != nil {
		if in.Value.IsNegative() {
			return Asset{}, fmt.Errorf("%w: asset value must not be negative", kerrors.ErrValidation)
		}
		asset.Value = *in.Value
	}
	if in.Notes != nil {
		asset.Notes = strings.TrimSpace(*in.Notes)
	}

	asset.LastUpdated = l.timestamp()
	book.Assets[i] = asset
	book.History = append(book.History, l.history(asset, ActionUpdated, &previous))

	if err := l.store.Set(store.Assets, book); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// DeleteAsset removes an asset and appends a "deleted" history entry.
func (l *Ledger) DeleteAsset(id string) error {
	book, err := l.assetBook()
	if err != nil {
		return err
	}

	i := indexAsset(book.Assets, id)
	if i < 0 {
		return fmt.Errorf("asset %s: %w", id, kerrors.ErrNotFound)
	}
	asset := book.Assets[i]
	previous := asset.Value

	book.Assets = append(book.Assets[:i], book.Assets[i+1:]...)
	deleted := l.history(asset, ActionDeleted, &previous)
	deleted.Value = decimal.Zero
	book.History = append(book.History, deleted)

	return l.store.Set(store.Assets, book)
}

func (l *Ledger) history(asset Asset, action HistoryAction, previous *decimal.Decimal) AssetHistory {
	return AssetHistory{
		ID:            l.newID(),
		AssetID:       asset.ID,
		Name:          asset.Name,
		Action:        action,
		PreviousValue: previous,
		Value:         asset.Value,
		Timestamp:     l.timestamp(),
	}
}

func indexAsset(assets []Asset, id string) int {
	for i, a := range assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// ExpenseInput describes a new expense.
type ExpenseInput struct {
	Description string
	Category    string
	Amount      decimal.Decimal
	// Date defaults to today.
	Date  Date
	Notes string
}

// Expenses returns every expense.
func (l *Ledger) Expenses() ([]Expense, error) {
	var expenses []Expense
	if err := l.load(store.Expenses, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// AddExpense records an expense. Its category must exist.
func (l *Ledger) AddExpense(in ExpenseInput) (Expense, error) {
	description, err := required("description", in.Description)
	if err != nil {
		return Expense{}, err
	}
	if err := positive(in.Amount); err != nil {
		return Expense{}, err
	}
	category, err := l.category(ExpenseCategory, in.Category)
	if err != nil {
		return Expense{}, err
	}

	expenses, err := l.Expenses()
	if err != nil {
		return Expense{}, err
	}

	expense := Expense{
		ID:          l.newID(),
		Description: description,
		Category:    category,
		Amount:      in.Amount,
		Date:        l.dateOrToday(in.Date),
		Notes:       strings.TrimSpace(in.Notes),
		Timestamp:   l.timestamp(),
	}
	if err := l.store.Set(store.Expenses, append(expenses, expense)); err != nil {
		return Expense{}, err
	}
	return expense, nil
}

// DeleteExpense removes an expense.
func (l *Ledger) DeleteExpense(id string) error {
	expenses, err := l.Expenses()
	if err != nil {
		return err
	}
	for i, e := range expenses {
		if e.ID == id {
			return l.store.Set(store.Expenses, append(expenses[:i], expenses[i+1:]...))
		}
	}
	return fmt.Errorf("expense %s: %w", id, kerrors.ErrNotFound)
}

// IncomeInput describes new income.
type IncomeInput struct {
	Source    string
	Category  string
	Amount    decimal.Decimal
	Date      Date
	Recurring bool
	Notes     string
}

// Income returns every income entry.
func (l *Ledger) Income() ([]Income, error) {
	var income []Income
	if err := l.load(store.Income, &income); err != nil {
		return nil, err
	}
	return income, nil
}

// AddIncome records income. Its category must exist.
func (l *Ledger) AddIncome(in IncomeInput) (Income, error) {
	source, err := required("source", in.Source)
	if err != nil {
		return Income{}, err
	}
	if err := positive(in.Amount); err != nil {
		return Income{}, err
	}
	category, err := l.category(IncomeCategory, in.Category)
	if err != nil {
		return Income{}, err
	}

	income, err := l.Income()
	if err != nil {
		return Income{}, err
	}

	entry := Income{
		ID:        l.newID(),
		Source:    source,
		Category:  category,
		Amount:    in.Amount,
		Date:      l.dateOrToday(in.Date),
		Recurring: in.Recurring,
		Notes:     strings.TrimSpace(in.Notes),
		Timestamp: l.timestamp(),
	}
	if err := l.store.Set(store.Income, append(income, entry)); err != nil {
		return Income{}, err
	}
	return entry, nil
}

// DeleteIncome removes an income entry.
func (l *Ledger) DeleteIncome(id string) error {
	income, err := l.Income()
	if err != nil {
		return err
	}
	for i, e := range income {
		if e.ID == id {
			return l.store.Set(store.Income, append(income[:i], income[i+1:]...))
		}
	}
	return fmt.Errorf("income %s: %w", id, kerrors.ErrNotFound)
}

// GoalInput describes a new savings goal.
type GoalInput struct {
	Name     string
	Target   decimal.Decimal
	Deadline *Date
}

// ContributionInput describes a deposit towards a goal.
type ContributionInput struct {
	Amount decimal.Decimal
	Date   Date
	Note   string
}

// Goals returns every goal with Saved recomputed from its contributions.
func (l *Ledger) Goals() ([]Goal, error) {
	var goals []Goal
	if err := l.load(store.Goals, &goals); err != nil {
		return nil, err
	}
	for i := range goals {
		goals[i].recompute()
	}
	return goals, nil
}

// AddGoal records a new goal with nothing saved yet.
func (l *Ledger) AddGoal(in GoalInput) (Goal, error) {
	name, err := required("goal name", in.Name)
	if err != nil {
		return Goal{}, err
	}
	if !in.Target.IsPositive() {
		return Goal{}, fmt.Errorf("%w: goal target must be greater than zero", kerrors.ErrValidation)
	}

	goals, err := l.Goals()
	if err != nil {
		return Goal{}, err
	}

	now := l.timestamp()
	goal := Goal{
		ID:             l.newID(),
		Name:           name,
		Target:         in.Target,
		Deadline:       in.Deadline,
		SavingsDetails: []Contribution{},
		Created:        now,
		LastUpdated:    now,
	}
	goal.recompute()

	if err := l.saveGoals(append(goals, goal)); err != nil {
		return Goal{}, err
	}
	return goal, nil
}

// Contribute adds a deposit to a goal and returns the updated goal.
func (l *Ledger) Contribute(goalID string, in ContributionInput) (Goal, error) {
	if err := positive(in.Amount); err != nil {
		return Goal{}, err
	}

	goals, err := l.Goals()
	if err != nil {
		return Goal{}, err
	}

	for i := range goals {
		if goals[i].ID != goalID {
			continue
		}
		goals[i].SavingsDetails = append(goals[i].SavingsDetails, Contribution{
			ID:        l.newID(),
			Amount:    in.Amount,
			Date:      l.dateOrToday(in.Date),
			Note:      strings.TrimSpace(in.Note),
			Timestamp: l.timestamp(),
		})
		goals[i].LastUpdated = l.timestamp()
		goals[i].recompute()

		if err := l.saveGoals(goals); err != nil {
			return Goal{}, err
		}
		return goals[i], nil
	}
	return Goal{}, fmt.Errorf("goal %s: %w", goalID, kerrors.ErrNotFound)
}

// DeleteGoal removes a goal.
func (l *Ledger) DeleteGoal(id string) error {
	goals, err := l.Goals()
	if err != nil {
		return err
	}
	for i, g := range goals {
		if g.ID == id {
			return l.saveGoals(append(goals[:i], goals[i+1:]...))
		}
	}
	return fmt.Errorf("goal %s: %w", id, kerrors.ErrNotFound)
}

func (l *Ledger) saveGoals(goals []Goal) error {
	for i := range goals {
		goals[i].recompute()
	}
	return l.store.Set(store.Goals, goals)
}

// Categories returns both category lists.
func (l *Ledger) Categories() (CategoryList, error) {
	var list CategoryList
	if err := l.load(store.Categories, &list); err != nil {
		return CategoryList{}, err
	}
	if list.Expense == nil {
		list.Expense = []string{}
	}
	if list.Income == nil {
		list.Income = []string{}
	}
	return list, nil
}

// AddCategory appends name to kind's list. Names are unique ignoring case.
func (l *Ledger) AddCategory(kind CategoryKind, name string) error {
	name, err := required("category name", name)
	if err != nil {
		return err
	}

	list, err := l.Categories()
	if err != nil {
		return err
	}
	if existing, ok := list.Lookup(kind, name); ok {
		return fmt.Errorf("%w: %s category %q already exists", kerrors.ErrValidation, kind, existing)
	}

	switch kind {
	case ExpenseCategory:
		list.Expense = append(list.Expense, name)
	case IncomeCategory:
		list.Income = append(list.Income, name)
	default:
		return fmt.Errorf("%w: unknown category kind %q", kerrors.ErrValidation, kind)
	}
	return l.store.Set(store.Categories, list)
}

func (l *Ledger) category(kind CategoryKind, name string) (string, error) {
	name, err := required(string(kind)+" category", name)
	if err != nil {
		return "", err
	}

	list, err := l.Categories()
	if err != nil {
		return "", err
	}
	existing, ok := list.Lookup(kind, name)
	if !ok {
		return "", fmt.Errorf("%w: unknown %s category %q (one of: %s)", kerrors.ErrValidation, kind, name, strings.Join(list.Of(kind), ", "))
	}
	return existing, nil
}

// Settings returns the stored preferences. A missing currency reads as the
// ledger's default currency.
func (l *Ledger) Settings() (Settings, error) {
	var settings Settings
	if err := l.load(store.Settings, &settings); err != nil {
		return Settings{}, err
	}
	if settings.Currency == "" {
		settings.Currency = l.currency
	}
	return settings, nil
}

// SetCurrency changes the display currency. Every other settings field,
// encryptionEnabled included, is written back untouched.
func (l *Ledger) SetCurrency(code string) error {
	code, err := NormalizeCurrency(code)
	if err != nil {
		return err
	}

	fields := map[string]json.RawMessage{}
	if err := l.load(store.Settings, &fields); err != nil {
		return err
	}
	fields["currency"], _ = json.Marshal(code)

	return l.store.Set(store.Settings, fields)
}

// Totals sums the current records.
func (l *Ledger) Totals() (Totals, error) {
	var t Totals

	assets, err := l.Assets()
	if err != nil {
		return Totals{}, err
	}
	for _, a := range assets {
		t.Assets = t.Assets.Add(a.Value)
	}

	expenses, err := l.Expenses()
	if err != nil {
		return Totals{}, err
	}
	for _, e := range expenses {
		t.Expenses = t.Expenses.Add(e.Amount)
	}

	income, err := l.Income()
	if err != nil {
		return Totals{}, err
	}
	for _, i := range income {
		t.Income = t.Income.Add(i.Amount)
	}

	goals, err := l.Goals()
	if err != nil {
		return Totals{}, err
	}
	for _, g := range goals {
		t.Saved = t.Saved.Add(g.Saved)
	}

	t.Balance = t.Income.Sub(t.Expenses)
	return t, nil
}

func (l *Ledger) dateOrToday(d Date) Date {
	if d.IsZero() {
		return NewDate(l.now())
	}
	return d
}

func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s must not be empty", kerrors.ErrValidation, field)
	}
	return value, nil
}

func positive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", kerrors.ErrValidation)
	}
	return nil
}
