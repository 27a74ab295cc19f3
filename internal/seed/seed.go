// package seed loads the demo data set into local storage
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/storage"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

const dateLayout = "2006-01-02"

// Data is the decoded demo data set.
type Data struct {
	Transactions []models.Transaction
	Categories   []models.Category
	Budgets      []models.Budget
	Plans        []models.Plan
}

// Result reports which collections [Seed] wrote and which it left alone.
type Result struct {
	Written []string
	Skipped []string
}

type fixtureFile struct {
	Categories   []categoryFixture    `yaml:"categories"`
	Transactions []transactionFixture `yaml:"transactions"`
	Budgets      []budgetFixture      `yaml:"budgets"`
	Plans        []planFixture        `yaml:"plans"`
}

type categoryFixture struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Color string `yaml:"color"`
	Icon  string `yaml:"icon"`
}

type transactionFixture struct {
	ID          string `yaml:"id"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
	Type        string `yaml:"type"`
	Category    string `yaml:"category"`
	Status      string `yaml:"status"`
	Notes       string `yaml:"notes"`
}

type budgetFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Limit    string `yaml:"limit"`
	Spent    string `yaml:"spent"`
	Period   string `yaml:"period"`
}

type planFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Target   string `yaml:"target"`
	Saved    string `yaml:"saved"`
	Deadline string `yaml:"deadline"`
}

// Fixtures decodes and validates the embedded data set.
func Fixtures() (*Data, error) {
	return Parse(fixturesYAML)
}

// Parse decodes a fixture document. Every record is validated.
func Parse(doc []byte) (*Data, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	data := &Data{}
	for _, c := range f.Categories {
		cat := models.Category{ID: models.ID(c.ID), Name: c.Name, Type: models.TransactionType(c.Type), Color: c.Color, Icon: c.Icon}
		if err := cat.Validate(); err != nil {
			return nil, fmt.Errorf("category %s: %w", c.ID, err)
		}
		data.Categories = append(data.Categories, cat)
	}

	for _, t := range f.Transactions {
		tx, err := t.model()
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		data.Transactions = append(data.Transactions, tx)
	}

	for _, b := range f.Budgets {
		budget, err := b.model()
		if err != nil {
			return nil, fmt.Errorf("budget %s: %w", b.ID, err)
		}
		data.Budgets = append(data.Budgets, budget)
	}

	for _, p := range f.Plans {
		plan, err := p.model()
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", p.ID, err)
		}
		data.Plans = append(data.Plans, plan)
	}
	return data, nil
}

func (t transactionFixture) model() (models.Transaction, error) {
	date, err := time.Parse(dateLayout, t.Date)
	if err != nil {
		return models.Transaction{}, err
	}
	amount, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return models.Transaction{}, err
	}

	tx := models.Transaction{
		ID:          models.ID(t.ID),
		Date:        date,
		Description: t.Description,
		Amount:      amount,
		Type:        models.TransactionType(t.Type),
		CategoryID:  t.Category,
		Status:      models.TransactionStatus(t.Status),
		Notes:       t.Notes,
	}
	return tx, tx.Validate()
}

func (b budgetFixture) model() (models.Budget, error) {
	limit, err := decimal.NewFromString(b.Limit)
	if err != nil {
		return models.Budget{}, err
	}
	spent, err := decimal.NewFromString(b.Spent)
	if err != nil {
		return models.Budget{}, err
	}

	budget := models.Budget{
		ID:         models.ID(b.ID),
		Name:       b.Name,
		CategoryID: b.Category,
		Limit:      limit,
		Spent:      spent,
		Period:     models.BudgetPeriod(b.Period),
	}
	return budget, budget.Validate()
}

func (p planFixture) model() (models.Plan, error) {
	target, err := decimal.NewFromString(p.Target)
	if err != nil {
		return models.Plan{}, err
	}
	saved, err := decimal.NewFromString(p.Saved)
	if err != nil {
		return models.Plan{}, err
	}

	plan := models.Plan{ID: models.ID(p.ID), Name: p.Name, Target: target, Saved: saved}
	if p.Deadline != "" {
		deadline, err := time.Parse(dateLayout, p.Deadline)
		if err != nil {
			return models.Plan{}, err
		}
		plan.Deadline = &deadline
	}
	return plan, plan.Validate()
}

// Seed writes each demo collection that is not already present. With force every collection is overwritten.
func Seed(a *storage.Adapter, force bool) (*Result, error) {
	data, err := Fixtures()
	if err != nil {
		return nil, err
	}

	collections := []struct {
		key   string
		value any
	}{
		{storage.KeyCategories, data.Categories},
		{storage.KeyTransactions, data.Transactions},
		{storage.KeyBudgets, data.Budgets},
		{storage.KeyPlans, data.Plans},
	}

	result := &Result{}
	for _, c := range collections {
		if !force && a.Has(c.key) {
			result.Skipped = append(result.Skipped, c.key)
			continue
		}
		if err := a.Put(c.key, c.value); err != nil {
			return result, fmt.Errorf("failed to seed %s: %w", c.key, err)
		}
		result.Written = append(result.Written, c.key)
	}
	return result, nil
}
