package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/query"
	"github.com/desertthunder/fintx/internal/shared"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Definition declares an entity's CRUD surface.
type Definition struct {
	EntityName string                     // URL segment, e.g. "transactions"
	TagType    models.TagType             // optional; without it no tags are provided or invalidated
	Extra      func(b Builder) []Endpoint // optional extra endpoints sharing the entity's tag space
}

// BuildCRUD synthesizes the five CRUD endpoints for def followed by any extras.
//
// It is pure: nothing is registered and no request is sent.
func BuildCRUD(def Definition) ([]Endpoint, error) {
	entity := strings.Trim(def.EntityName, "/")
	if entity == "" {
		return nil, fmt.Errorf("%w: entity name", shared.ErrMissingArgument)
	}

	names := DeriveNames(entity, def.TagType)
	tagType := def.TagType
	base := "/" + entity

	endpoints := []Endpoint{
		{
			Name: names.List,
			Kind: KindList,
			Verb: http.MethodGet,
			Build: func(arg any) (Request, error) {
				return Request{Method: http.MethodGet, Path: base + query.Encode(listParams(arg))}, nil
			},
			Provides: tagged(tagType, func(_ json.RawMessage, _ any) []models.Tag {
				return []models.Tag{models.ListTag(tagType)}
			}),
		},
		{
			Name: names.GetByID,
			Kind: KindGetByID,
			Verb: http.MethodGet,
			Build: func(arg any) (Request, error) {
				id, err := idArg(arg)
				if err != nil {
					return Request{}, err
				}
				return Request{Method: http.MethodGet, Path: base + "/" + query.EncodeComponent(id)}, nil
			},
			Provides: tagged(tagType, func(result json.RawMessage, _ any) []models.Tag {
				if id := models.ProbeID(result); id != "" {
					return []models.Tag{models.IDTag(tagType, id)}
				}
				return []models.Tag{models.ListTag(tagType)}
			}),
		},
		{
			Name:     names.Create,
			Kind:     KindCreate,
			Verb:     http.MethodPost,
			Mutation: true,
			Build: func(arg any) (Request, error) {
				return Request{Method: http.MethodPost, Path: base, Body: arg}, nil
			},
			Invalidates: tagged(tagType, func(_ json.RawMessage, _ any) []models.Tag {
				return []models.Tag{models.ListTag(tagType)}
			}),
		},
		{
			Name:     names.Update,
			Kind:     KindUpdate,
			Verb:     http.MethodPut,
			Mutation: true,
			Build: func(arg any) (Request, error) {
				id, err := idArg(arg)
				if err != nil {
					return Request{}, err
				}
				return Request{Method: http.MethodPut, Path: base + "/" + query.EncodeComponent(id), Body: arg}, nil
			},
			Invalidates: tagged(tagType, func(_ json.RawMessage, arg any) []models.Tag {
				id, _ := idArg(arg)
				return []models.Tag{models.IDTag(tagType, id), models.ListTag(tagType)}
			}),
		},
		{
			Name:     names.Remove,
			Kind:     KindRemove,
			Verb:     http.MethodDelete,
			Mutation: true,
			Build: func(arg any) (Request, error) {
				id, err := idArg(arg)
				if err != nil {
					return Request{}, err
				}
				return Request{Method: http.MethodDelete, Path: base + "/" + query.EncodeComponent(id)}, nil
			},
			Invalidates: tagged(tagType, func(_ json.RawMessage, arg any) []models.Tag {
				id, _ := idArg(arg)
				return []models.Tag{models.ListTag(tagType), models.IDTag(tagType, id)}
			}),
		},
	}

	if def.Extra == nil {
		return endpoints, nil
	}

	seen := make(map[string]bool, len(endpoints))
	for _, ep := range endpoints {
		seen[ep.Name] = true
	}
	for _, ep := range def.Extra(Builder{EntityName: entity, TagType: tagType}) {
		if ep.Name == "" || ep.Build == nil {
			return nil, fmt.Errorf("%w: extra endpoint of %s needs a name and a request builder", shared.ErrInvalidArgument, entity)
		}
		if seen[ep.Name] {
			return nil, fmt.Errorf("%w: duplicate endpoint name %q in %s", shared.ErrInvalidArgument, ep.Name, entity)
		}
		seen[ep.Name] = true
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// tagged returns fn when t is set and nil otherwise.
func tagged(t models.TagType, fn TagFunc) TagFunc {
	if t == "" {
		return nil
	}
	return fn
}

// listParams applies page=1, limit=20 when no parameters are given.
func listParams(arg any) any {
	switch p := arg.(type) {
	case nil:
		return query.New("page", DefaultPage, "limit", DefaultLimit)
	case query.Params:
		if p == nil {
			return query.New("page", DefaultPage, "limit", DefaultLimit)
		}
		return p
	case map[string]any:
		if p == nil {
			return query.New("page", DefaultPage, "limit", DefaultLimit)
		}
		return p
	default:
		return arg
	}
}

// idArg extracts the entity id from a string, an [models.ID] or an [models.Entity].
func idArg(arg any) (string, error) {
	var id string
	switch v := arg.(type) {
	case string:
		id = v
	case models.ID:
		id = v.String()
	case models.Entity:
		id = v.GetID()
	case nil:
	default:
		return "", fmt.Errorf("%w: unsupported id argument %T", shared.ErrInvalidArgument, arg)
	}
	if id == "" {
		return "", shared.ErrMissingID
	}
	return id, nil
}

// CRUD is the typed facade returned by [InjectCRUD].
//
// Its endpoint table is frozen at construction and resolved through the registry, so a name that
// was registered earlier keeps its first definition.
type CRUD[T models.Entity] struct {
	client    *Client
	names     Names
	order     []string
	endpoints map[string]Endpoint
}

// InjectCRUD builds the endpoints for def, registers them with the client's registry and returns a typed facade.
func InjectCRUD[T models.Entity](c *Client, def Definition) (*CRUD[T], error) {
	if def.TagType != "" && !c.registry.KnownTagType(def.TagType) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownTagType, def.TagType)
	}

	built, err := BuildCRUD(def)
	if err != nil {
		return nil, err
	}

	added := c.registry.RegisterAll(built)
	c.logger.Debug("injected endpoints", "entity", def.EntityName, "added", len(added), "total", c.registry.Len())

	crud := &CRUD[T]{
		client:    c,
		names:     DeriveNames(strings.Trim(def.EntityName, "/"), def.TagType),
		endpoints: make(map[string]Endpoint, len(built)),
	}
	for _, ep := range built {
		registered, _ := c.registry.Lookup(ep.Name)
		crud.endpoints[ep.Name] = registered
		crud.order = append(crud.order, ep.Name)
	}
	return crud, nil
}

// Names returns the derived CRUD operation names.
func (c *CRUD[T]) Names() Names { return c.names }

// Endpoints returns the endpoint table in synthesis order.
func (c *CRUD[T]) Endpoints() []Endpoint {
	eps := make([]Endpoint, 0, len(c.order))
	for _, name := range c.order {
		eps = append(eps, c.endpoints[name])
	}
	return eps
}

// Endpoint returns the endpoint named name from this facade's table.
func (c *CRUD[T]) Endpoint(name string) (Endpoint, bool) {
	ep, ok := c.endpoints[name]
	return ep, ok
}

// List fetches one page; nil params request page 1 with 20 items.
func (c *CRUD[T]) List(ctx context.Context, params query.Params) (*models.Page[T], error) {
	resp, err := c.Do(ctx, c.names.List, params)
	if err != nil {
		return nil, err
	}
	var page models.Page[T]
	if err := decode(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("%s: %w", c.names.List, err)
	}
	return &page, nil
}

// Get fetches a single entity.
func (c *CRUD[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	resp, err := c.Do(ctx, c.names.GetByID, id)
	if err != nil {
		return out, err
	}
	if err := decode(resp.Body, &out); err != nil {
		return out, fmt.Errorf("%s: %w", c.names.GetByID, err)
	}
	return out, nil
}

// Create validates and posts a new entity, returning the stored record.
func (c *CRUD[T]) Create(ctx context.Context, entity T) (T, error) {
	return c.write(ctx, c.names.Create, entity)
}

// Update validates and replaces an existing entity. The entity must carry its id.
func (c *CRUD[T]) Update(ctx context.Context, entity T) (T, error) {
	if entity.GetID() == "" {
		var zero T
		return zero, fmt.Errorf("%s: %w", c.names.Update, shared.ErrMissingID)
	}
	return c.write(ctx, c.names.Update, entity)
}

// Remove deletes the entity with the given id.
func (c *CRUD[T]) Remove(ctx context.Context, id string) error {
	_, err := c.Do(ctx, c.names.Remove, id)
	return err
}

// Call invokes any endpoint of this facade, including extras, returning the raw body.
func (c *CRUD[T]) Call(ctx context.Context, name string, arg any) (json.RawMessage, error) {
	resp, err := c.Do(ctx, name, arg)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Do invokes an endpoint of this facade and returns the full response.
func (c *CRUD[T]) Do(ctx context.Context, name string, arg any) (*Response, error) {
	ep, ok := c.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownEndpoint, name)
	}
	return c.client.dispatch(ctx, ep, arg)
}

func (c *CRUD[T]) write(ctx context.Context, name string, entity T) (T, error) {
	var out T
	if err := entity.Validate(); err != nil {
		return out, fmt.Errorf("%s: %w: %w", name, shared.ErrInvalidInput, err)
	}

	resp, err := c.Do(ctx, name, entity)
	if err != nil {
		return out, err
	}
	if len(resp.Body) == 0 {
		return entity, nil
	}
	if err := decode(resp.Body, &out); err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func decode(body json.RawMessage, out any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
