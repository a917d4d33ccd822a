// Package ledger holds the dashboard's collections in memory, mirrors every
// mutation to the slot store, and derives the aggregate views the UI reads.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
	"github.com/ronnyfly2/finanzas-basicas/internal/storage"
)

// BaseCurrency is undeletable; all exchange rates are expressed against it.
const BaseCurrency = "USD"

var (
	ErrNotFound        = errors.New("not found")
	ErrMemberExists    = errors.New("ese nombre de miembro ya existe")
	ErrMemberInUse     = errors.New("el miembro tiene transacciones asociadas")
	ErrCategoryExists  = errors.New("ese nombre de categoría ya existe")
	ErrCategoryInUse   = errors.New("la categoría tiene transacciones asociadas")
	ErrCurrencyExists  = errors.New("el código de moneda ya existe")
	ErrUnknownCurrency = errors.New("moneda desconocida")
	ErrUnknownMember   = errors.New("miembro desconocido")
	ErrUnknownCategory = errors.New("categoría desconocida")
	ErrBaseCurrency    = errors.New("no se puede eliminar la moneda base")
	ErrLastCurrency    = errors.New("no se puede eliminar la única moneda disponible")
	ErrCurrencyInUse   = errors.New("la moneda se usa en transacciones existentes")
)

// Slots is the persistence adapter the store mirrors every mutation to.
type Slots interface {
	Load(ctx context.Context, key string, v any) bool
	Save(ctx context.Context, key string, v any) error
}

// EventSink receives a notification after each successful mutation.
type EventSink interface {
	LedgerChanged(ctx context.Context, collection, op string)
}

// Store is the single logical writer over the ledger. Handlers run on
// concurrent goroutines, so a mutex serializes access.
type Store struct {
	mu     sync.Mutex
	slots  Slots
	events EventSink

	transactions []core.Transaction
	members      []string
	categories   []core.Category
	currencies   []core.Currency
	rates        map[string]decimal.Decimal
	display      string

	filterStart core.Date
	filterEnd   core.Date

	pending *PendingAction
	lastID  int64
}

func defaultMembers() []string {
	return []string{"Padre", "Madre", "Hijo", "Hija", "Familia"}
}

func defaultCategories() []core.Category {
	return []core.Category{
		{Name: "Comida", Color: "#4ade80"},
		{Name: "Transporte", Color: "#60a5fa"},
		{Name: "Vivienda", Color: "#facc15"},
		{Name: "Ocio", Color: "#fb923c"},
		{Name: "Salud", Color: "#f87171"},
		{Name: "Educación", Color: "#c084fc"},
		{Name: "Ropa", Color: "#ec4899"},
		{Name: "Otros", Color: "#94a3b8"},
	}
}

func defaultCurrencies() []core.Currency {
	return []core.Currency{
		{Code: "PEN", Name: "Soles Peruanos", Symbol: "S/", ExchangeRate: decimal.NewFromFloat(3.75)},
		{Code: "USD", Name: "Dólares Americanos", Symbol: "$", ExchangeRate: decimal.NewFromInt(1)},
	}
}

// New loads every collection from the slot store, falling back to the starter
// defaults for any slot that is absent or malformed. events may be nil.
func New(ctx context.Context, slots Slots, events EventSink) *Store {
	s := &Store{slots: slots, events: events}

	if !slots.Load(ctx, storage.SlotTransactions, &s.transactions) {
		s.transactions = nil
	}
	if !slots.Load(ctx, storage.SlotMembers, &s.members) || len(s.members) == 0 {
		s.members = defaultMembers()
	}
	if !slots.Load(ctx, storage.SlotCategories, &s.categories) || len(s.categories) == 0 {
		s.categories = defaultCategories()
	}
	if !slots.Load(ctx, storage.SlotCurrencies, &s.currencies) || len(s.currencies) == 0 {
		s.currencies = defaultCurrencies()
	}
	if !slots.Load(ctx, storage.SlotExchangeRates, &s.rates) || len(s.rates) == 0 {
		s.rates = make(map[string]decimal.Decimal, len(s.currencies))
		for _, c := range s.currencies {
			s.rates[c.Code] = c.ExchangeRate
		}
	}
	if !slots.Load(ctx, storage.SlotSelectedCurrency, &s.display) {
		s.display = "PEN"
	}
	if _, ok := s.findCurrency(s.display); !ok {
		s.display = s.fallbackDisplay()
	}

	for _, t := range s.transactions {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}

	return s
}

// newID generates a fresh unique transaction id, monotonic across the session.
func (s *Store) newID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) persist(ctx context.Context, key string, v any) {
	if err := s.slots.Save(ctx, key, v); err != nil {
		slog.ErrorContext(ctx, "Persist failed", "slot", key, "error", err)
	}
}

func (s *Store) notify(ctx context.Context, collection, op string) {
	if s.events != nil {
		s.events.LedgerChanged(ctx, collection, op)
	}
}

func (s *Store) findCurrency(code string) (core.Currency, bool) {
	for _, c := range s.currencies {
		if c.Code == code {
			return c, true
		}
	}
	return core.Currency{}, false
}

func (s *Store) fallbackDisplay() string {
	if _, ok := s.findCurrency(BaseCurrency); ok {
		return BaseCurrency
	}
	return s.currencies[0].Code
}

func (s *Store) hasMember(name string) bool {
	for _, m := range s.members {
		if m == name {
			return true
		}
	}
	return false
}

func (s *Store) hasCategory(name string) bool {
	for _, c := range s.categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// checkReferences verifies that a transaction points at existing reference
// rows. The caller holds the lock.
func (s *Store) checkReferences(t core.Transaction) error {
	if !s.hasMember(t.Member) {
		return fmt.Errorf("%w: %s", ErrUnknownMember, t.Member)
	}
	if t.Type == core.Expense && !s.hasCategory(t.Category) {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, t.Category)
	}
	if _, ok := s.findCurrency(t.Currency); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, t.Currency)
	}
	return nil
}

// normalize fills implied fields: income never carries a category, and a
// transaction without a currency is recorded in the display currency.
func (s *Store) normalize(t core.Transaction) core.Transaction {
	if t.Type == core.Income {
		t.Category = ""
	}
	if t.Currency == "" {
		t.Currency = s.display
	}
	return t
}

// AddTransaction validates, assigns an id, and prepends the transaction.
func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = s.normalize(t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkReferences(t); err != nil {
		return core.Transaction{}, err
	}

	t.ID = s.newID()
	s.transactions = append([]core.Transaction{t}, s.transactions...)
	s.persist(ctx, storage.SlotTransactions, s.transactions)
	s.notify(ctx, "transactions", "add")
	return t, nil
}

// UpdateTransaction replaces the entry with the same id in place, without
// reordering other entries.
func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = s.normalize(t)
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.checkReferences(t); err != nil {
		return err
	}

	for i := range s.transactions {
		if s.transactions[i].ID == t.ID {
			s.transactions[i] = t
			s.persist(ctx, storage.SlotTransactions, s.transactions)
			s.notify(ctx, "transactions", "update")
			return nil
		}
	}
	return ErrNotFound
}

// DeleteTransaction removes the entry with the given id. An absent id is a
// silent no-op.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			s.persist(ctx, storage.SlotTransactions, s.transactions)
			s.notify(ctx, "transactions", "delete")
			return
		}
	}
}

// ClearTransactions empties the transaction list.
func (s *Store) ClearTransactions(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearTransactionsLocked(ctx)
}

func (s *Store) clearTransactionsLocked(ctx context.Context) {
	s.transactions = nil
	s.persist(ctx, storage.SlotTransactions, []core.Transaction{})
	s.notify(ctx, "transactions", "clear")
}

// AddMember appends a member. An empty or already-present name is a no-op.
func (s *Store) AddMember(ctx context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" || s.hasMember(name) {
		return
	}
	s.members = append(s.members, name)
	s.persist(ctx, storage.SlotMembers, s.members)
	s.notify(ctx, "members", "add")
}

// RenameMember renames a member and cascades the new name onto every
// transaction that referenced the old one. Matching is case-sensitive.
func (s *Store) RenameMember(ctx context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newName == "" {
		return core.ErrEmptyMember
	}
	if oldName == newName {
		return nil
	}
	if s.hasMember(newName) {
		return ErrMemberExists
	}

	idx := -1
	for i, m := range s.members {
		if m == oldName {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}

	s.members[idx] = newName
	for i := range s.transactions {
		if s.transactions[i].Member == oldName {
			s.transactions[i].Member = newName
		}
	}
	s.persist(ctx, storage.SlotMembers, s.members)
	s.persist(ctx, storage.SlotTransactions, s.transactions)
	s.notify(ctx, "members", "rename")
	return nil
}

// DeleteMember removes a member unless a transaction still references it.
func (s *Store) DeleteMember(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transactions {
		if t.Member == name {
			return ErrMemberInUse
		}
	}
	for i, m := range s.members {
		if m == name {
			s.members = append(s.members[:i], s.members[i+1:]...)
			s.persist(ctx, storage.SlotMembers, s.members)
			s.notify(ctx, "members", "delete")
			return nil
		}
	}
	return nil
}

// AddCategory appends a category. An empty or already-present name is a no-op.
func (s *Store) AddCategory(ctx context.Context, c core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Name == "" || s.hasCategory(c.Name) {
		return
	}
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	s.categories = append(s.categories, c)
	s.persist(ctx, storage.SlotCategories, s.categories)
	s.notify(ctx, "categories", "add")
}

// RenameCategory renames a category (and updates its color), cascading the
// new name onto referencing transactions.
func (s *Store) RenameCategory(ctx context.Context, oldName string, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Name == "" {
		return core.ErrEmptyCategory
	}
	if oldName != c.Name && s.hasCategory(c.Name) {
		return ErrCategoryExists
	}

	idx := -1
	for i := range s.categories {
		if s.categories[i].Name == oldName {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}

	s.categories[idx] = c
	for i := range s.transactions {
		if s.transactions[i].Category == oldName {
			s.transactions[i].Category = c.Name
		}
	}
	s.persist(ctx, storage.SlotCategories, s.categories)
	s.persist(ctx, storage.SlotTransactions, s.transactions)
	s.notify(ctx, "categories", "rename")
	return nil
}

// DeleteCategory removes a category unless an expense transaction still
// references it. Income transactions never carry a category.
func (s *Store) DeleteCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transactions {
		if t.Type == core.Expense && t.Category == name {
			return ErrCategoryInUse
		}
	}
	for i := range s.categories {
		if s.categories[i].Name == name {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			s.persist(ctx, storage.SlotCategories, s.categories)
			s.notify(ctx, "categories", "delete")
			return nil
		}
	}
	return nil
}

// CategoryColor returns the color of the named category, or the neutral
// default when the category does not exist.
func (s *Store) CategoryColor(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.Name == name {
			return c.Color
		}
	}
	return core.DefaultCategoryColor
}

// AddCurrency adds a currency and its rate to the rate table.
func (s *Store) AddCurrency(ctx context.Context, c core.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.Validate(); err != nil {
		return err
	}
	if _, ok := s.findCurrency(c.Code); ok {
		return ErrCurrencyExists
	}
	s.currencies = append(s.currencies, c)
	s.rates[c.Code] = c.ExchangeRate
	s.persist(ctx, storage.SlotCurrencies, s.currencies)
	s.persist(ctx, storage.SlotExchangeRates, s.rates)
	s.notify(ctx, "currencies", "add")
	return nil
}

// UpdateCurrency replaces an existing currency, keeping the rate table in sync.
func (s *Store) UpdateCurrency(ctx context.Context, c core.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.Validate(); err != nil {
		return err
	}
	for i := range s.currencies {
		if s.currencies[i].Code == c.Code {
			s.currencies[i] = c
			s.rates[c.Code] = c.ExchangeRate
			s.persist(ctx, storage.SlotCurrencies, s.currencies)
			s.persist(ctx, storage.SlotExchangeRates, s.rates)
			s.notify(ctx, "currencies", "update")
			return nil
		}
	}
	return ErrUnknownCurrency
}

// DeleteCurrency removes a currency. The base currency, the last remaining
// currency, and any currency used by a transaction cannot be deleted.
func (s *Store) DeleteCurrency(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code == BaseCurrency {
		return ErrBaseCurrency
	}
	if _, ok := s.findCurrency(code); !ok {
		return ErrUnknownCurrency
	}
	if len(s.currencies) <= 1 {
		return ErrLastCurrency
	}
	for _, t := range s.transactions {
		if t.Currency == code {
			return ErrCurrencyInUse
		}
	}

	for i := range s.currencies {
		if s.currencies[i].Code == code {
			s.currencies = append(s.currencies[:i], s.currencies[i+1:]...)
			break
		}
	}
	delete(s.rates, code)
	if s.display == code {
		s.display = s.fallbackDisplay()
		s.persist(ctx, storage.SlotSelectedCurrency, s.display)
	}
	s.persist(ctx, storage.SlotCurrencies, s.currencies)
	s.persist(ctx, storage.SlotExchangeRates, s.rates)
	s.notify(ctx, "currencies", "delete")
	return nil
}

// SetDisplayCurrency selects the currency every amount is displayed in.
func (s *Store) SetDisplayCurrency(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findCurrency(code); !ok {
		return ErrUnknownCurrency
	}
	s.display = code
	s.persist(ctx, storage.SlotSelectedCurrency, s.display)
	return nil
}

func (s *Store) DisplayCurrency() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// SetDateFilter bounds the derived views to [start, end] inclusive. A zero
// date leaves that side unbounded. The filter is ephemeral, never persisted.
func (s *Store) SetDateFilter(start, end core.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterStart, s.filterEnd = start, end
}

// ResetFilters clears both filter bounds.
func (s *Store) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterStart, s.filterEnd = core.Date{}, core.Date{}
}
