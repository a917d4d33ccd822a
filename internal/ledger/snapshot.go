package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
	"github.com/ronnyfly2/finanzas-basicas/internal/storage"
)

const (
	ActionImport            ActionKind = "import"
	ActionClearTransactions ActionKind = "clear-transactions"
)

type ActionKind string

var (
	ErrSnapshotFormat = errors.New("el archivo no tiene el formato correcto")
	ErrNoPending      = errors.New("no pending action")
)

// Snapshot is a full serialized copy of the persisted collections, used for
// export and import. Transactions, members, and categories are required on
// import; currencies and rates are the richer variant.
type Snapshot struct {
	Transactions []core.Transaction         `json:"transactions"`
	Members      []string                   `json:"members"`
	Categories   []core.Category            `json:"categories"`
	Currencies   []core.Currency            `json:"currencies,omitempty"`
	Rates        map[string]decimal.Decimal `json:"rates,omitempty"`
}

// PendingAction is a destructive operation waiting for explicit confirmation.
// It carries its parameters as data rather than a captured closure, so at most
// one can be pending and it runs exactly once.
type PendingAction struct {
	Kind    ActionKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`

	snapshot *Snapshot
}

// ExportSnapshot serializes the full ledger as pretty-printed JSON.
func (s *Store) ExportSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Transactions: s.transactions,
		Members:      s.members,
		Categories:   s.categories,
		Currencies:   s.currencies,
		Rates:        s.rates,
	}
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return raw, nil
}

// ExportFilename names the export artifact after the current UTC date.
func ExportFilename(now time.Time) string {
	return "dashboard-gastos-" + now.UTC().Format("2006-01-02") + ".json"
}

// RequestImport parses an uploaded snapshot and, if well formed, registers a
// pending import action. The top level must carry the transactions, members,
// and categories keys; anything else is rejected with no state change.
func (s *Store) RequestImport(raw []byte) (PendingAction, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return PendingAction{}, fmt.Errorf("%w: %v", ErrSnapshotFormat, err)
	}
	for _, required := range []string{"transactions", "members", "categories"} {
		if _, ok := keys[required]; !ok {
			return PendingAction{}, ErrSnapshotFormat
		}
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return PendingAction{}, fmt.Errorf("%w: %v", ErrSnapshotFormat, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &PendingAction{
		Kind:     ActionImport,
		Title:    "Importar Datos",
		Message:  "Esto reemplazará todos los datos actuales. ¿Deseas continuar?",
		snapshot: &snap,
	}
	return *s.pending, nil
}

// RequestClearTransactions registers a pending action that empties the
// transaction list once confirmed.
func (s *Store) RequestClearTransactions() PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &PendingAction{
		Kind:    ActionClearTransactions,
		Title:   "Borrar Transacciones",
		Message: "Esto eliminará todas las transacciones. ¿Deseas continuar?",
	}
	return *s.pending
}

// Pending returns the action awaiting confirmation, if any.
func (s *Store) Pending() (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingAction{}, false
	}
	return *s.pending, true
}

// Cancel discards the pending action without applying it.
func (s *Store) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Confirm applies the pending action exactly once and clears it.
func (s *Store) Confirm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ErrNoPending
	}
	action := *s.pending
	s.pending = nil

	switch action.Kind {
	case ActionImport:
		s.applySnapshotLocked(ctx, action.snapshot)
	case ActionClearTransactions:
		s.clearTransactionsLocked(ctx)
	}
	return nil
}

// applySnapshotLocked replaces the ledger's collections wholesale. Currencies
// and rates are only replaced when the snapshot carries them.
func (s *Store) applySnapshotLocked(ctx context.Context, snap *Snapshot) {
	s.transactions = snap.Transactions
	s.members = snap.Members
	s.categories = snap.Categories

	if len(snap.Currencies) > 0 {
		s.currencies = snap.Currencies
		if len(snap.Rates) > 0 {
			s.rates = snap.Rates
		} else {
			s.rates = make(map[string]decimal.Decimal, len(s.currencies))
			for _, c := range s.currencies {
				s.rates[c.Code] = c.ExchangeRate
			}
		}
		s.persist(ctx, storage.SlotCurrencies, s.currencies)
		s.persist(ctx, storage.SlotExchangeRates, s.rates)
	}
	if _, ok := s.findCurrency(s.display); !ok && len(s.currencies) > 0 {
		s.display = s.fallbackDisplay()
		s.persist(ctx, storage.SlotSelectedCurrency, s.display)
	}

	for _, t := range s.transactions {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}

	s.persist(ctx, storage.SlotTransactions, s.transactions)
	s.persist(ctx, storage.SlotMembers, s.members)
	s.persist(ctx, storage.SlotCategories, s.categories)
	s.notify(ctx, "ledger", "import")
}
