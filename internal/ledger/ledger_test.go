package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
	"github.com/ronnyfly2/finanzas-basicas/internal/storage"
)

// fakeSlots keeps slots in memory so store tests run without a database.
type fakeSlots struct {
	data  map[string][]byte
	saves []string
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{data: make(map[string][]byte)}
}

func (f *fakeSlots) Load(_ context.Context, key string, v any) bool {
	raw, ok := f.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (f *fakeSlots) Save(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.saves = append(f.saves, key)
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeSlots) {
	t.Helper()
	slots := newFakeSlots()
	return New(context.Background(), slots, nil), slots
}

func expense(desc string, amount float64, member, category string, date core.Date) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      decimal.NewFromFloat(amount),
		Type:        core.Expense,
		Category:    category,
		Member:      member,
		Date:        date,
		Currency:    "PEN",
	}
}

func income(desc string, amount float64, member string, date core.Date) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      decimal.NewFromFloat(amount),
		Type:        core.Income,
		Member:      member,
		Date:        date,
		Currency:    "PEN",
	}
}

func mustAdd(t *testing.T, s *Store, tr core.Transaction) core.Transaction {
	t.Helper()
	saved, err := s.AddTransaction(context.Background(), tr)
	if err != nil {
		t.Fatalf("AddTransaction(%s): %v", tr.Description, err)
	}
	return saved
}

func TestNew_LoadsDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	if got := len(s.Members()); got != 5 {
		t.Errorf("default members = %d, want 5", got)
	}
	if got := len(s.Categories()); got != 8 {
		t.Errorf("default categories = %d, want 8", got)
	}
	currencies := s.Currencies()
	if len(currencies) != 2 {
		t.Fatalf("default currencies = %d, want 2", len(currencies))
	}
	if s.DisplayCurrency() != "PEN" {
		t.Errorf("default display currency = %s, want PEN", s.DisplayCurrency())
	}
	rates := s.Rates()
	if !rates["PEN"].Equal(decimal.NewFromFloat(3.75)) || !rates["USD"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("default rates = %v", rates)
	}
}

func TestNew_MalformedSlotFallsBackToDefaults(t *testing.T) {
	slots := newFakeSlots()
	slots.data[storage.SlotMembers] = []byte(`{"not":"a list"}`)
	s := New(context.Background(), slots, nil)

	if got := len(s.Members()); got != 5 {
		t.Errorf("members after malformed slot = %d, want 5 defaults", got)
	}
}

func TestAddTransaction_RoundTrip(t *testing.T) {
	s, slots := newTestStore(t)

	tr := expense("Mercado", 52.40, "Madre", "Comida", core.NewDate(2025, time.March, 14))
	tr.Detail = "frutas y verduras"
	saved := mustAdd(t, s, tr)

	if saved.ID == 0 {
		t.Fatal("AddTransaction did not assign an id")
	}

	list := s.Transactions()
	if len(list) != 1 {
		t.Fatalf("transactions = %d, want 1", len(list))
	}
	got := list[0]
	if got.Description != tr.Description || !got.Amount.Equal(tr.Amount) ||
		got.Type != tr.Type || got.Category != tr.Category || got.Member != tr.Member ||
		!got.Date.Equal(tr.Date) || got.Currency != tr.Currency || got.Detail != tr.Detail {
		t.Errorf("stored transaction lost fields: %+v", got)
	}

	if _, ok := slots.data[storage.SlotTransactions]; !ok {
		t.Error("mutation was not persisted to the transactions slot")
	}
}

func TestAddTransaction_UniqueIDs(t *testing.T) {
	s, _ := newTestStore(t)

	d := core.NewDate(2025, time.March, 14)
	seen := make(map[int64]bool)
	for i := 0; i < 20; i++ {
		saved := mustAdd(t, s, expense("Gasto", 1, "Padre", "Otros", d))
		if seen[saved.ID] {
			t.Fatalf("duplicate id %d", saved.ID)
		}
		seen[saved.ID] = true
	}
}

func TestAddTransaction_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	d := core.NewDate(2025, time.March, 14)

	tests := []struct {
		name    string
		tr      core.Transaction
		wantErr error
	}{
		{"unknown member", expense("x", 1, "Abuela", "Comida", d), ErrUnknownMember},
		{"unknown category", expense("x", 1, "Padre", "Mascotas", d), ErrUnknownCategory},
		{"unknown currency", func() core.Transaction {
			tr := expense("x", 1, "Padre", "Comida", d)
			tr.Currency = "EUR"
			return tr
		}(), ErrUnknownCurrency},
		{"missing description", expense("", 1, "Padre", "Comida", d), core.ErrEmptyDescription},
		{"missing category on expense", expense("x", 1, "Padre", "", d), core.ErrEmptyCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddTransaction(context.Background(), tt.tr)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddTransaction = %v, want %v", err, tt.wantErr)
			}
			if len(s.Transactions()) != 0 {
				t.Fatal("rejected transaction was stored")
			}
		})
	}
}

func TestAddTransaction_IncomeDropsCategory(t *testing.T) {
	s, _ := newTestStore(t)

	tr := income("Sueldo", 1000, "Padre", core.NewDate(2025, time.March, 1))
	tr.Category = "Comida"
	saved := mustAdd(t, s, tr)
	if saved.Category != "" {
		t.Errorf("income kept category %q, want empty", saved.Category)
	}
}

func TestAddTransaction_DefaultsToDisplayCurrency(t *testing.T) {
	s, _ := newTestStore(t)

	tr := income("Sueldo", 1000, "Padre", core.NewDate(2025, time.March, 1))
	tr.Currency = ""
	saved := mustAdd(t, s, tr)
	if saved.Currency != "PEN" {
		t.Errorf("currency = %q, want display currency PEN", saved.Currency)
	}
}

func TestUpdateTransaction(t *testing.T) {
	s, _ := newTestStore(t)
	d := core.NewDate(2025, time.March, 14)

	first := mustAdd(t, s, expense("Uno", 1, "Padre", "Comida", d))
	second := mustAdd(t, s, expense("Dos", 2, "Madre", "Ocio", d))

	edited := first
	edited.Description = "Uno editado"
	edited.Amount = decimal.NewFromInt(9)
	if err := s.UpdateTransaction(context.Background(), edited); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	list := s.Transactions()
	if len(list) != 2 {
		t.Fatalf("transactions = %d, want 2", len(list))
	}
	// Entries keep their positions: second was prepended, first stays last.
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Error("update reordered entries")
	}
	if list[1].Description != "Uno editado" || !list[1].Amount.Equal(decimal.NewFromInt(9)) {
		t.Errorf("update was not applied: %+v", list[1])
	}

	missing := edited
	missing.ID = 424242
	if err := s.UpdateTransaction(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateTransaction(absent) = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s, _ := newTestStore(t)
	d := core.NewDate(2025, time.March, 14)

	saved := mustAdd(t, s, expense("Uno", 1, "Padre", "Comida", d))
	s.DeleteTransaction(context.Background(), saved.ID)
	if len(s.Transactions()) != 0 {
		t.Fatal("transaction was not deleted")
	}

	// Absent id is a silent no-op.
	s.DeleteTransaction(context.Background(), 999)
}

func TestMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("add is a no-op for empty and duplicate names", func(t *testing.T) {
		s, _ := newTestStore(t)
		before := len(s.Members())
		s.AddMember(ctx, "")
		s.AddMember(ctx, "Padre")
		if got := len(s.Members()); got != before {
			t.Errorf("members = %d, want %d", got, before)
		}
		s.AddMember(ctx, "Abuela")
		if got := len(s.Members()); got != before+1 {
			t.Errorf("members = %d, want %d", got, before+1)
		}
	})

	t.Run("rename cascades to transactions", func(t *testing.T) {
		s, _ := newTestStore(t)
		d := core.NewDate(2025, time.March, 14)
		mustAdd(t, s, expense("Uno", 1, "Padre", "Comida", d))
		mustAdd(t, s, expense("Dos", 2, "Madre", "Comida", d))

		if err := s.RenameMember(ctx, "Padre", "Papá"); err != nil {
			t.Fatalf("RenameMember: %v", err)
		}
		for _, tr := range s.Transactions() {
			if tr.Member == "Padre" {
				t.Error("rename did not cascade to transactions")
			}
		}
		if !s.hasMember("Papá") || s.hasMember("Padre") {
			t.Error("member list not renamed")
		}
	})

	t.Run("rename to taken name fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.RenameMember(ctx, "Padre", "Madre"); !errors.Is(err, ErrMemberExists) {
			t.Fatalf("RenameMember = %v, want %v", err, ErrMemberExists)
		}
	})

	t.Run("rename to own name trivially succeeds", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.RenameMember(ctx, "Padre", "Padre"); err != nil {
			t.Fatalf("RenameMember = %v, want nil", err)
		}
	})

	t.Run("matching is case-sensitive", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.RenameMember(ctx, "Padre", "madre"); err != nil {
			t.Fatalf("RenameMember = %v, want nil for different case", err)
		}
	})

	t.Run("delete blocked while referenced", func(t *testing.T) {
		s, _ := newTestStore(t)
		d := core.NewDate(2025, time.March, 14)
		mustAdd(t, s, expense("Uno", 1, "Padre", "Comida", d))

		before := s.Members()
		if err := s.DeleteMember(ctx, "Padre"); !errors.Is(err, ErrMemberInUse) {
			t.Fatalf("DeleteMember = %v, want %v", err, ErrMemberInUse)
		}
		after := s.Members()
		if len(after) != len(before) {
			t.Error("failed delete changed the member list")
		}

		if err := s.DeleteMember(ctx, "Madre"); err != nil {
			t.Fatalf("DeleteMember(unreferenced) = %v", err)
		}
	})
}

func TestCategories(t *testing.T) {
	ctx := context.Background()

	t.Run("rename cascades and keeps color", func(t *testing.T) {
		s, _ := newTestStore(t)
		d := core.NewDate(2025, time.March, 14)
		mustAdd(t, s, expense("Uno", 1, "Padre", "Comida", d))

		if err := s.RenameCategory(ctx, "Comida", core.Category{Name: "Alimentación", Color: "#22c55e"}); err != nil {
			t.Fatalf("RenameCategory: %v", err)
		}
		if s.Transactions()[0].Category != "Alimentación" {
			t.Error("rename did not cascade to transactions")
		}
		if got := s.CategoryColor("Alimentación"); got != "#22c55e" {
			t.Errorf("CategoryColor = %q, want #22c55e", got)
		}
	})

	t.Run("rename to taken name fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		err := s.RenameCategory(ctx, "Comida", core.Category{Name: "Ocio", Color: "#000000"})
		if !errors.Is(err, ErrCategoryExists) {
			t.Fatalf("RenameCategory = %v, want %v", err, ErrCategoryExists)
		}
	})

	t.Run("delete blocked while an expense references it", func(t *testing.T) {
		s, _ := newTestStore(t)
		d := core.NewDate(2025, time.March, 14)
		mustAdd(t, s, expense("Uno", 1, "Padre", "Comida", d))

		if err := s.DeleteCategory(ctx, "Comida"); !errors.Is(err, ErrCategoryInUse) {
			t.Fatalf("DeleteCategory = %v, want %v", err, ErrCategoryInUse)
		}
		if err := s.DeleteCategory(ctx, "Ocio"); err != nil {
			t.Fatalf("DeleteCategory(unreferenced) = %v", err)
		}
	})

	t.Run("unknown category color is the neutral default", func(t *testing.T) {
		s, _ := newTestStore(t)
		if got := s.CategoryColor("Mascotas"); got != core.DefaultCategoryColor {
			t.Errorf("CategoryColor = %q, want %q", got, core.DefaultCategoryColor)
		}
	})
}

func TestCurrencies(t *testing.T) {
	ctx := context.Background()

	t.Run("add rejects duplicates and syncs the rate table", func(t *testing.T) {
		s, _ := newTestStore(t)
		eur := core.Currency{Code: "EUR", Name: "Euros", Symbol: "€", ExchangeRate: decimal.NewFromFloat(0.9)}
		if err := s.AddCurrency(ctx, eur); err != nil {
			t.Fatalf("AddCurrency: %v", err)
		}
		if !s.Rates()["EUR"].Equal(decimal.NewFromFloat(0.9)) {
			t.Error("rate table not updated")
		}
		if err := s.AddCurrency(ctx, eur); !errors.Is(err, ErrCurrencyExists) {
			t.Fatalf("AddCurrency(dup) = %v, want %v", err, ErrCurrencyExists)
		}
	})

	t.Run("update requires an existing code", func(t *testing.T) {
		s, _ := newTestStore(t)
		err := s.UpdateCurrency(ctx, core.Currency{Code: "EUR", ExchangeRate: decimal.NewFromInt(1)})
		if !errors.Is(err, ErrUnknownCurrency) {
			t.Fatalf("UpdateCurrency = %v, want %v", err, ErrUnknownCurrency)
		}

		pen := core.Currency{Code: "PEN", Name: "Soles", Symbol: "S/", ExchangeRate: decimal.NewFromFloat(3.80)}
		if err := s.UpdateCurrency(ctx, pen); err != nil {
			t.Fatalf("UpdateCurrency: %v", err)
		}
		if !s.Rates()["PEN"].Equal(decimal.NewFromFloat(3.80)) {
			t.Error("rate table not synced on update")
		}
	})

	t.Run("delete guards", func(t *testing.T) {
		s, _ := newTestStore(t)
		d := core.NewDate(2025, time.March, 14)
		mustAdd(t, s, expense("Uno", 1, "Padre", "Comida", d)) // currency PEN

		if err := s.DeleteCurrency(ctx, "USD"); !errors.Is(err, ErrBaseCurrency) {
			t.Errorf("delete base = %v, want %v", err, ErrBaseCurrency)
		}
		if err := s.DeleteCurrency(ctx, "PEN"); !errors.Is(err, ErrCurrencyInUse) {
			t.Errorf("delete referenced = %v, want %v", err, ErrCurrencyInUse)
		}
		if err := s.DeleteCurrency(ctx, "EUR"); !errors.Is(err, ErrUnknownCurrency) {
			t.Errorf("delete unknown = %v, want %v", err, ErrUnknownCurrency)
		}
	})

	t.Run("deleting the last currency fails", func(t *testing.T) {
		slots := newFakeSlots()
		slots.data[storage.SlotCurrencies] = []byte(`[{"code":"PEN","name":"Soles","symbol":"S/","exchangeRate":"3.75"}]`)
		s := New(context.Background(), slots, nil)

		if err := s.DeleteCurrency(ctx, "PEN"); !errors.Is(err, ErrLastCurrency) {
			t.Fatalf("DeleteCurrency = %v, want %v", err, ErrLastCurrency)
		}
	})

	t.Run("deleting the display currency falls back", func(t *testing.T) {
		s, _ := newTestStore(t)
		eur := core.Currency{Code: "EUR", Name: "Euros", Symbol: "€", ExchangeRate: decimal.NewFromFloat(0.9)}
		if err := s.AddCurrency(ctx, eur); err != nil {
			t.Fatalf("AddCurrency: %v", err)
		}
		if err := s.SetDisplayCurrency(ctx, "EUR"); err != nil {
			t.Fatalf("SetDisplayCurrency: %v", err)
		}
		if err := s.DeleteCurrency(ctx, "EUR"); err != nil {
			t.Fatalf("DeleteCurrency: %v", err)
		}
		if s.DisplayCurrency() != "USD" {
			t.Errorf("display currency = %s, want USD fallback", s.DisplayCurrency())
		}
	})

	t.Run("display currency must be active", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.SetDisplayCurrency(ctx, "EUR"); !errors.Is(err, ErrUnknownCurrency) {
			t.Fatalf("SetDisplayCurrency = %v, want %v", err, ErrUnknownCurrency)
		}
	})
}

func TestDerivedViews(t *testing.T) {
	s, _ := newTestStore(t)

	mustAdd(t, s, income("Sueldo", 1000, "Padre", core.NewDate(2025, time.March, 1)))
	mustAdd(t, s, expense("Mercado", 200, "Madre", "Comida", core.NewDate(2025, time.March, 2)))
	mustAdd(t, s, expense("Cine", 50, "Padre", "Ocio", core.NewDate(2025, time.March, 2)))
	mustAdd(t, s, expense("Bus", 10, "Hijo", "Transporte", core.NewDate(2025, time.April, 1)))

	t.Run("totals and balance", func(t *testing.T) {
		if !s.TotalIncome().Equal(decimal.NewFromInt(1000)) {
			t.Errorf("TotalIncome = %s", s.TotalIncome())
		}
		if !s.TotalExpense().Equal(decimal.NewFromInt(260)) {
			t.Errorf("TotalExpense = %s", s.TotalExpense())
		}
		if !s.Balance().Equal(decimal.NewFromInt(740)) {
			t.Errorf("Balance = %s", s.Balance())
		}
	})

	t.Run("balance identity holds under any filter", func(t *testing.T) {
		filters := [][2]core.Date{
			{{}, {}},
			{core.NewDate(2025, time.March, 1), core.NewDate(2025, time.March, 31)},
			{core.NewDate(2025, time.April, 1), {}},
			{{}, core.NewDate(2025, time.March, 1)},
			{core.NewDate(2030, time.January, 1), {}},
		}
		for _, f := range filters {
			s.SetDateFilter(f[0], f[1])
			want := s.TotalIncome().Sub(s.TotalExpense())
			if !s.Balance().Equal(want) {
				t.Errorf("filter %v: balance %s != income-expense %s", f, s.Balance(), want)
			}
		}
		s.ResetFilters()
	})

	t.Run("date filter is inclusive on both bounds", func(t *testing.T) {
		s.SetDateFilter(core.NewDate(2025, time.March, 2), core.NewDate(2025, time.March, 2))
		got := s.FilteredTransactions()
		if len(got) != 2 {
			t.Fatalf("filtered = %d, want 2", len(got))
		}
		s.ResetFilters()
	})

	t.Run("filtered sorted by date descending", func(t *testing.T) {
		got := s.FilteredTransactions()
		for i := 1; i < len(got); i++ {
			if got[i-1].Date.Time.Before(got[i].Date.Time) {
				t.Fatal("not sorted by date descending")
			}
		}
	})

	t.Run("grouped by exact date", func(t *testing.T) {
		groups := s.GroupedTransactions()
		if len(groups) != 3 {
			t.Fatalf("groups = %d, want 3", len(groups))
		}
		if groups[0].Date.String() != "2025-04-01" {
			t.Errorf("first group = %s, want newest date", groups[0].Date)
		}
		for _, g := range groups {
			for _, tr := range g.Transactions {
				if tr.Date.String() != g.Date.String() {
					t.Errorf("transaction %q in wrong group %s", tr.Description, g.Date)
				}
			}
		}
	})

	t.Run("expenses grouped by category and member", func(t *testing.T) {
		byCat := s.ExpensesByCategory()
		if !byCat["Comida"].Equal(decimal.NewFromInt(200)) || !byCat["Ocio"].Equal(decimal.NewFromInt(50)) {
			t.Errorf("ExpensesByCategory = %v", byCat)
		}
		if _, ok := byCat[""]; ok {
			t.Error("income leaked into category totals")
		}
		byMember := s.ExpensesByMember()
		if !byMember["Padre"].Equal(decimal.NewFromInt(50)) || !byMember["Madre"].Equal(decimal.NewFromInt(200)) {
			t.Errorf("ExpensesByMember = %v", byMember)
		}
	})

	t.Run("summary agrees with the individual views", func(t *testing.T) {
		sum := s.Summarize()
		if !sum.TotalIncome.Equal(s.TotalIncome()) ||
			!sum.TotalExpense.Equal(s.TotalExpense()) ||
			!sum.Balance.Equal(s.Balance()) {
			t.Errorf("Summarize totals diverge: %+v", sum)
		}
	})
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	slots := newFakeSlots()
	s := New(ctx, slots, nil)

	saved := mustAdd(t, s, expense("Mercado", 52.40, "Madre", "Comida", core.NewDate(2025, time.March, 14)))
	s.AddMember(ctx, "Abuela")

	// A second store over the same slots sees the same state.
	s2 := New(ctx, slots, nil)
	list := s2.Transactions()
	if len(list) != 1 || list[0].ID != saved.ID || !list[0].Amount.Equal(saved.Amount) {
		t.Fatalf("reloaded transactions = %+v", list)
	}
	if len(s2.Members()) != 6 {
		t.Errorf("reloaded members = %d, want 6", len(s2.Members()))
	}

	// New ids stay unique across sessions.
	again := mustAdd(t, s2, expense("Otro", 1, "Madre", "Comida", core.NewDate(2025, time.March, 15)))
	if again.ID <= saved.ID {
		t.Error("id not monotonic across sessions")
	}
}
