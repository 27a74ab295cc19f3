package models

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// TransactionStatus tracks the approval workflow of a transaction.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// BudgetPeriod is the window a budget limit applies to.
type BudgetPeriod string

const (
	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
	Yearly  BudgetPeriod = "yearly"
)

// Transaction is a single ledger entry.
type Transaction struct {
	ID          ID                `json:"id,omitempty"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	CategoryID  string            `json:"categoryId,omitempty"`
	Status      TransactionStatus `json:"status,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

func (t Transaction) GetID() string { return t.ID.String() }

// Validate checks required fields, the type/status enums and that the amount is not negative.
func (t Transaction) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Description, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.Type, validation.Required, validation.In(Income, Expense)),
		validation.Field(&t.Status, validation.In(StatusPending, StatusApproved, StatusRejected)),
		validation.Field(&t.Amount, validation.By(nonNegative)),
		validation.Field(&t.Date, validation.Required),
	)
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Category groups transactions.
type Category struct {
	ID    ID              `json:"id,omitempty"`
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color,omitempty"`
	Icon  string          `json:"icon,omitempty"`
}

func (c Category) GetID() string { return c.ID.String() }

func (c Category) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&c.Type, validation.Required, validation.In(Income, Expense)),
	)
}

// Budget caps spending in one category over a period.
type Budget struct {
	ID         ID              `json:"id,omitempty"`
	Name       string          `json:"name"`
	CategoryID string          `json:"categoryId"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Period     BudgetPeriod    `json:"period"`
}

func (b Budget) GetID() string { return b.ID.String() }

func (b Budget) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Name, validation.Required),
		validation.Field(&b.CategoryID, validation.Required),
		validation.Field(&b.Limit, validation.By(positive)),
		validation.Field(&b.Spent, validation.By(nonNegative)),
		validation.Field(&b.Period, validation.Required, validation.In(Weekly, Monthly, Yearly)),
	)
}

// Remaining returns the unspent part of the limit, which is negative when overspent.
func (b Budget) Remaining() decimal.Decimal {
	return b.Limit.Sub(b.Spent)
}

// Plan is a savings goal.
type Plan struct {
	ID       ID              `json:"id,omitempty"`
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Saved    decimal.Decimal `json:"saved"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

func (p Plan) GetID() string { return p.ID.String() }

func (p Plan) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Target, validation.By(positive)),
		validation.Field(&p.Saved, validation.By(nonNegative)),
	)
}

// Progress returns Saved/Target clamped to [0, 1].
func (p Plan) Progress() float64 {
	if !p.Target.IsPositive() {
		return 0
	}
	f, _ := p.Saved.Div(p.Target).Float64()
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func nonNegative(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func positive(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

// Summary aggregates non-rejected transactions over a date range.
type Summary struct {
	From       *time.Time                 `json:"from,omitempty"`
	To         *time.Time                 `json:"to,omitempty"`
	Count      int                        `json:"count"`
	Income     decimal.Decimal            `json:"income"`
	Expense    decimal.Decimal            `json:"expense"`
	Net        decimal.Decimal            `json:"net"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
}

// Summarize totals txs, skipping rejected entries and any outside [from, to] when those bounds are set.
func Summarize(txs []Transaction, from, to *time.Time) Summary {
	s := Summary{From: from, To: to, ByCategory: map[string]decimal.Decimal{}}
	for _, tx := range txs {
		if tx.Status == StatusRejected {
			continue
		}
		if from != nil && tx.Date.Before(*from) {
			continue
		}
		if to != nil && tx.Date.After(*to) {
			continue
		}

		s.Count++
		if tx.Type == Income {
			s.Income = s.Income.Add(tx.Amount)
		} else {
			s.Expense = s.Expense.Add(tx.Amount)
		}
		if tx.CategoryID != "" {
			s.ByCategory[tx.CategoryID] = s.ByCategory[tx.CategoryID].Add(tx.Signed())
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}
