package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
)

// DateGroup is one day's worth of filtered transactions.
type DateGroup struct {
	Date         core.Date          `json:"date"`
	Transactions []core.Transaction `json:"transactions"`
}

// Summary bundles the aggregates the dashboard shows at a glance.
type Summary struct {
	TotalIncome  decimal.Decimal            `json:"totalIncome"`
	TotalExpense decimal.Decimal            `json:"totalExpense"`
	Balance      decimal.Decimal            `json:"balance"`
	ByCategory   map[string]decimal.Decimal `json:"expensesByCategory"`
	ByMember     map[string]decimal.Decimal `json:"expensesByMember"`
}

// inFilter reports whether the date falls within the current filter bounds,
// both inclusive. A zero bound is unbounded.
func (s *Store) inFilter(d core.Date) bool {
	if !s.filterStart.IsZero() && d.Time.Before(s.filterStart.Time) {
		return false
	}
	if !s.filterEnd.IsZero() && d.Time.After(s.filterEnd.Time) {
		return false
	}
	return true
}

// filteredLocked returns the transactions within the filter bounds, sorted by
// date descending. Same-day entries keep their stored order.
func (s *Store) filteredLocked() []core.Transaction {
	out := make([]core.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if s.inFilter(t.Date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Time.After(out[j].Date.Time)
	})
	return out
}

// FilteredTransactions returns the date-filtered transactions, newest day first.
func (s *Store) FilteredTransactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filteredLocked()
}

// Transactions returns a copy of the full unfiltered transaction list.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

func (s *Store) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.members))
	copy(out, s.members)
	return out
}

func (s *Store) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Store) Currencies() []core.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Currency, len(s.currencies))
	copy(out, s.currencies)
	return out
}

func (s *Store) Rates() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out
}

// TotalIncome sums income amounts over the filtered transactions.
func (s *Store) TotalIncome() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(core.Income)
}

// TotalExpense sums expense amounts over the filtered transactions.
func (s *Store) TotalExpense() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(core.Expense)
}

// Balance is total income minus total expense for the current filter.
func (s *Store) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(core.Income).Sub(s.sumLocked(core.Expense))
}

func (s *Store) sumLocked(kind core.TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.filteredLocked() {
		if t.Type == kind {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// ExpensesByCategory sums filtered expense amounts per category name.
func (s *Store) ExpensesByCategory() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupExpensesLocked(func(t core.Transaction) string { return t.Category })
}

// ExpensesByMember sums filtered expense amounts per member name.
func (s *Store) ExpensesByMember() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupExpensesLocked(func(t core.Transaction) string { return t.Member })
}

func (s *Store) groupExpensesLocked(key func(core.Transaction) string) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range s.filteredLocked() {
		if t.Type != core.Expense {
			continue
		}
		k := key(t)
		sums[k] = sums[k].Add(t.Amount)
	}
	return sums
}

// GroupedTransactions groups the filtered transactions by day, newest day
// first, preserving the filtered order inside each group.
func (s *Store) GroupedTransactions() []DateGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	var groups []DateGroup
	index := make(map[string]int)
	for _, t := range s.filteredLocked() {
		key := t.Date.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup{Date: t.Date})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
	}
	return groups
}

// Summarize computes all dashboard aggregates in one pass over the filter.
func (s *Store) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   make(map[string]decimal.Decimal),
		ByMember:     make(map[string]decimal.Decimal),
	}
	for _, t := range s.filteredLocked() {
		switch t.Type {
		case core.Income:
			sum.TotalIncome = sum.TotalIncome.Add(t.Amount)
		case core.Expense:
			sum.TotalExpense = sum.TotalExpense.Add(t.Amount)
			sum.ByCategory[t.Category] = sum.ByCategory[t.Category].Add(t.Amount)
			sum.ByMember[t.Member] = sum.ByMember[t.Member].Add(t.Amount)
		}
	}
	sum.Balance = sum.TotalIncome.Sub(sum.TotalExpense)
	return sum
}
