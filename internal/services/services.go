package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/desertthunder/fintx/internal/api"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/query"
	"github.com/desertthunder/fintx/internal/shared"
)

// Endpoint names beyond the derived CRUD set.
const (
	ApproveTransaction    = "approveTransaction"
	RejectTransaction     = "rejectTransaction"
	GetTransactionSummary = "getTransactionSummary"
)

// Entity URL segments.
const (
	Transactions = "transactions"
	Categories   = "categories"
	Budgets      = "budgets"
	Plans        = "plans"
)

// FinanceAPI groups the typed facades of every finance entity.
type FinanceAPI struct {
	Transactions *api.CRUD[models.Transaction]
	Categories   *api.CRUD[models.Category]
	Budgets      *api.CRUD[models.Budget]
	Plans        *api.CRUD[models.Plan]

	client *api.Client
	custom *api.CustomAPI
}

// NewFinanceAPI registers the finance endpoints with client.
//
// Calling it twice against the same client is harmless: the second set of registrations is ignored.
func NewFinanceAPI(client *api.Client) (*FinanceAPI, error) {
	var (
		f   = &FinanceAPI{client: client}
		err error
	)

	f.Transactions, err = api.InjectCRUD[models.Transaction](client, api.Definition{
		EntityName: Transactions,
		TagType:    models.TagTransactions,
		Extra: func(b api.Builder) []api.Endpoint {
			return []api.Endpoint{
				statusAction(b, ApproveTransaction, "approve"),
				statusAction(b, RejectTransaction, "reject"),
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to inject %s: %w", Transactions, err)
	}

	if f.Categories, err = api.InjectCRUD[models.Category](client, api.Definition{EntityName: Categories, TagType: models.TagCategory}); err != nil {
		return nil, fmt.Errorf("failed to inject %s: %w", Categories, err)
	}
	if f.Budgets, err = api.InjectCRUD[models.Budget](client, api.Definition{EntityName: Budgets, TagType: models.TagBudget}); err != nil {
		return nil, fmt.Errorf("failed to inject %s: %w", Budgets, err)
	}
	if f.Plans, err = api.InjectCRUD[models.Plan](client, api.Definition{EntityName: Plans, TagType: models.TagPlan}); err != nil {
		return nil, fmt.Errorf("failed to inject %s: %w", Plans, err)
	}

	f.custom, err = api.CreateCustomAPI(client, api.CustomEndpoint{
		Name: GetTransactionSummary,
		URL:  "/" + Transactions + "/summary",
		Tags: []models.TagType{models.TagTransactions},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create custom endpoints: %w", err)
	}
	return f, nil
}

// statusAction declares POST /{entity}/:id/{action}, invalidating the record and its list.
func statusAction(b api.Builder, name, action string) api.Endpoint {
	ep := b.Custom(api.CustomEndpoint{
		Name:   name,
		URL:    "/" + b.EntityName + "/:id/" + action,
		Method: http.MethodPost,
		Tags:   []models.TagType{b.TagType},
	})

	tagType := b.TagType
	ep.Invalidates = func(_ json.RawMessage, arg any) []models.Tag {
		tags := []models.Tag{models.ListTag(tagType)}
		if p, ok := arg.(query.Params); ok {
			if id, ok := p.Get("id"); ok && id != nil {
				tags = append([]models.Tag{models.IDTag(tagType, query.Scalar(id))}, tags...)
			}
		}
		return tags
	}
	return ep
}

// Client returns the underlying dispatcher.
func (f *FinanceAPI) Client() *api.Client { return f.client }

// Endpoints returns every registered endpoint in registration order.
func (f *FinanceAPI) Endpoints() []api.Endpoint {
	reg := f.client.Registry()
	names := reg.Names()

	eps := make([]api.Endpoint, 0, len(names))
	for _, name := range names {
		if ep, ok := reg.Lookup(name); ok {
			eps = append(eps, ep)
		}
	}
	return eps
}

// Approve marks a transaction approved, storing reason in its notes when given.
func (f *FinanceAPI) Approve(ctx context.Context, id, reason string) (models.Transaction, error) {
	return f.review(ctx, ApproveTransaction, id, reason)
}

// Reject marks a transaction rejected, storing reason in its notes when given.
func (f *FinanceAPI) Reject(ctx context.Context, id, reason string) (models.Transaction, error) {
	return f.review(ctx, RejectTransaction, id, reason)
}

func (f *FinanceAPI) review(ctx context.Context, name, id, reason string) (models.Transaction, error) {
	var tx models.Transaction
	if id == "" {
		return tx, fmt.Errorf("%s: %w", name, shared.ErrMissingID)
	}

	params := query.New("id", id)
	if reason != "" {
		params = params.Set("reason", reason)
	}

	body, err := f.Transactions.Call(ctx, name, params)
	if err != nil {
		return tx, err
	}
	if err := json.Unmarshal(body, &tx); err != nil {
		return tx, fmt.Errorf("%s: failed to decode response: %w", name, err)
	}
	return tx, nil
}

// Summary totals transactions between from and to, either of which may be nil.
func (f *FinanceAPI) Summary(ctx context.Context, from, to *time.Time) (*models.Summary, error) {
	params := query.Params{}
	if from != nil {
		params = params.Set("from", from.Format(time.DateOnly))
	}
	if to != nil {
		params = params.Set("to", to.Format(time.DateOnly))
	}

	body, err := f.custom.Call(ctx, GetTransactionSummary, params)
	if err != nil {
		return nil, err
	}

	var s models.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", GetTransactionSummary, err)
	}
	return &s, nil
}

// ListOptions describes one list request.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Sort   []string          // field names, "-field" for descending
	Filter map[string]string // exact-match field filters
}

// Params converts the options to list parameters, returning nil when nothing is set.
func (o ListOptions) Params() query.Params {
	if o.Page <= 0 && o.Limit <= 0 && o.Search == "" && len(o.Sort) == 0 && len(o.Filter) == 0 {
		return nil
	}

	page, limit := o.Page, o.Limit
	if page <= 0 {
		page = api.DefaultPage
	}
	if limit <= 0 {
		limit = api.DefaultLimit
	}

	p := query.New("page", page, "limit", limit)
	if o.Search != "" {
		p = p.Set("search", o.Search)
	}
	if len(o.Sort) > 0 {
		p = p.Set("sort", o.Sort)
	}
	if len(o.Filter) > 0 {
		keys := make([]string, 0, len(o.Filter))
		for k := range o.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		filter := make(query.Params, 0, len(keys))
		for _, k := range keys {
			filter = filter.Set(k, o.Filter[k])
		}
		p = p.Set("filter", filter)
	}
	return p
}
