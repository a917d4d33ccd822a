package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Date is a calendar day with no time component. It marshals as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Member      string          `json:"member"`
		Date        Date            `json:"date"`
		Currency    string          `json:"currency"`
		Detail      string          `json:"detail,omitempty"`
	}

	Category struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	Currency struct {
		Code         string          `json:"code"`
		Name         string          `json:"name"`
		Symbol       string          `json:"symbol"`
		ExchangeRate decimal.Decimal `json:"exchangeRate"`
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyMember      = errors.New("empty member")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyDate        = errors.New("empty date")
	ErrEmptyCurrency    = errors.New("empty currency code")
	ErrInvalidRate      = errors.New("exchange rate must be positive")
	ErrIncomeCategory   = errors.New("income transactions cannot carry a category")
)

const DateFormat = "2006-01-02"

// NewDate creates a Date at UTC midnight of the given day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateFormat)
}

func (d Date) Equal(x Date) bool {
	return d.Time.Equal(x.Time)
}

// AddDays returns the date shifted by the given number of days.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year(), d.Month(), d.Day()+n)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Validate checks the required fields of a transaction. An income transaction
// must not carry a category; an expense transaction must.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Member) == "" {
		return ErrEmptyMember
	}
	if t.Date.IsZero() {
		return ErrEmptyDate
	}
	if t.Type == Expense && strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Type == Income && t.Category != "" {
		return ErrIncomeCategory
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (c Currency) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return ErrEmptyCurrency
	}
	if !c.ExchangeRate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}
