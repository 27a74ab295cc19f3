package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/services"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/desertthunder/fintx/internal/ui"
	"github.com/urfave/cli/v3"
)

func listAction[T models.Entity](r *Runner, o entityCommandOpts[T]) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		finance, err := r.financeAPI()
		if err != nil {
			return err
		}

		filter, err := parseFilters(cmd.StringSlice("filter"))
		if err != nil {
			return err
		}

		opts := services.ListOptions{
			Page:   cmd.Int("page"),
			Limit:  cmd.Int("limit"),
			Search: cmd.String("search"),
			Sort:   cmd.StringSlice("sort"),
			Filter: filter,
		}
		r.logger.Debug("listing", "entity", o.Name, "page", opts.Page, "limit", opts.Limit)

		page, err := o.CRUD(finance).List(ctx, opts.Params())
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", o.Name, err)
		}

		if cmd.Bool("json") {
			err = r.writeJSON(page, cmd.Bool("pretty"))
		} else {
			err = r.writePlain("%s\n", o.Render(page))
		}
		if err != nil {
			return err
		}

		if cmd.Bool("stats") && r.cache != nil {
			return r.writePlainln("%s", ui.CacheStats(r.cache.Stats()))
		}
		return nil
	}
}

func getAction[T models.Entity](r *Runner, o entityCommandOpts[T]) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := requireID(cmd)
		if err != nil {
			return err
		}

		finance, err := r.financeAPI()
		if err != nil {
			return err
		}

		entity, err := o.CRUD(finance).Get(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get %s %s: %w", o.Singular, id, err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(entity, true)
		}
		return r.writePlain("%s\n", o.Render(&models.Page[T]{Data: []T{entity}, Total: 1, Page: 1, Limit: 1}))
	}
}

func createAction[T models.Entity](r *Runner, o entityCommandOpts[T]) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		entity, err := decodeEntity[T](cmd.String("data"), "")
		if err != nil {
			return err
		}

		finance, err := r.financeAPI()
		if err != nil {
			return err
		}

		created, err := o.CRUD(finance).Create(ctx, entity)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", o.Singular, err)
		}

		r.logger.Info("created", "entity", o.Singular, "id", created.GetID())
		return r.writeJSON(created, true)
	}
}

func updateAction[T models.Entity](r *Runner, o entityCommandOpts[T]) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := requireID(cmd)
		if err != nil {
			return err
		}

		entity, err := decodeEntity[T](cmd.String("data"), id)
		if err != nil {
			return err
		}

		finance, err := r.financeAPI()
		if err != nil {
			return err
		}

		updated, err := o.CRUD(finance).Update(ctx, entity)
		if err != nil {
			return fmt.Errorf("failed to update %s %s: %w", o.Singular, id, err)
		}

		r.logger.Info("updated", "entity", o.Singular, "id", id)
		return r.writeJSON(updated, true)
	}
}

func deleteAction[T models.Entity](r *Runner, o entityCommandOpts[T]) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := requireID(cmd)
		if err != nil {
			return err
		}

		finance, err := r.financeAPI()
		if err != nil {
			return err
		}

		if err := o.CRUD(finance).Remove(ctx, id); err != nil {
			return fmt.Errorf("failed to delete %s %s: %w", o.Singular, id, err)
		}
		return r.writePlain("%s %s %s deleted\n", ui.Styles.OK("✓"), o.Singular, id)
	}
}

// Endpoints prints every endpoint the finance client registers.
func (r *Runner) Endpoints(ctx context.Context, cmd *cli.Command) error {
	finance, err := r.financeAPI()
	if err != nil {
		return err
	}

	eps := finance.Endpoints()
	if !cmd.Bool("json") {
		return r.writePlain("%s\n", ui.Endpoints(eps))
	}

	type endpointJSON struct {
		Name     string `json:"name"`
		Kind     string `json:"kind"`
		Method   string `json:"method"`
		Mutation bool   `json:"mutation"`
	}
	out := make([]endpointJSON, len(eps))
	for i, ep := range eps {
		out[i] = endpointJSON{Name: ep.Name, Kind: ep.Kind.String(), Method: ep.Method(), Mutation: ep.Mutation}
	}
	return r.writeJSON(out, true)
}

func requireID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return id, nil
}

// decodeEntity parses a JSON object into T. A non-empty id replaces any id in data.
func decodeEntity[T models.Entity](data, id string) (T, error) {
	var entity T

	var fields map[string]any
	if err := json.Unmarshal([]byte(data), &fields); err != nil || fields == nil {
		return entity, fmt.Errorf("%w: data must be a JSON object", shared.ErrInvalidInput)
	}
	if id != "" {
		fields["id"] = id
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return entity, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(normalized, &entity); err != nil {
		return entity, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return entity, nil
}

// parseFilters turns field=value pairs into a filter map.
func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	filter := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: filter %q must be field=value", shared.ErrInvalidArgument, pair)
		}
		filter[key] = value
	}
	return filter, nil
}
