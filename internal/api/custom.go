package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/query"
	"github.com/desertthunder/fintx/internal/shared"
)

// CustomEndpoint declares a one-off operation.
//
// URL may contain ":name" placeholders filled from the parameter set. Method defaults to GET.
// GET endpoints provide the collection marker of each listed tag type; every other verb invalidates them.
type CustomEndpoint struct {
	Name    string
	URL     string
	Method  string
	Tags    []models.TagType
	Headers map[string]string
}

var placeholder = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// Verb returns the upper-cased method, defaulting to GET.
func (d CustomEndpoint) Verb() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(d.Method)
}

// Endpoint converts the declaration into an [Endpoint].
func (d CustomEndpoint) Endpoint() Endpoint {
	method := d.Verb()
	headers := d.Headers
	url := d.URL

	ep := Endpoint{
		Name:     d.Name,
		Kind:     KindCustom,
		Verb:     method,
		Mutation: method != http.MethodGet,
		Build: func(arg any) (Request, error) {
			params, err := customParams(arg)
			if err != nil {
				return Request{}, err
			}

			req := Request{Method: method, Path: SubstitutePath(url, params), Headers: headers}
			if method == http.MethodGet {
				req.Path += query.Encode(params)
			} else if params != nil {
				req.Body = params
			}
			return req, nil
		},
	}

	if ep.Mutation {
		ep.Invalidates = ListTags(d.Tags...)
	} else {
		ep.Provides = ListTags(d.Tags...)
	}
	return ep
}

// SubstitutePath replaces each ":key" in template with the encoded value of key.
//
// Placeholders without a matching parameter are left untouched. Parameters are never removed from
// params; GET endpoints therefore repeat path values in the query string.
func SubstitutePath(template string, params query.Params) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		value, ok := params.Get(m[1:])
		if !ok || value == nil {
			return m
		}
		return query.EncodeComponent(query.Scalar(value))
	})
}

func customParams(arg any) (query.Params, error) {
	switch p := arg.(type) {
	case nil:
		return nil, nil
	case query.Params:
		return p, nil
	case map[string]any:
		out := make(query.Params, 0, len(p))
		for _, key := range sortedKeys(p) {
			out = out.Set(key, p[key])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: custom endpoints take query.Params, got %T", shared.ErrInvalidArgument, arg)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CustomAPI exposes the endpoints created by [CreateCustomAPI].
type CustomAPI struct {
	client    *Client
	order     []string
	endpoints map[string]Endpoint
}

// CreateCustomAPI validates and registers the given declarations.
func CreateCustomAPI(c *Client, defs ...CustomEndpoint) (*CustomAPI, error) {
	api := &CustomAPI{client: c, endpoints: make(map[string]Endpoint, len(defs))}

	for _, def := range defs {
		if def.Name == "" || def.URL == "" {
			return nil, fmt.Errorf("%w: custom endpoint needs a name and a url", shared.ErrMissingArgument)
		}
		if _, dup := api.endpoints[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate endpoint name %q", shared.ErrInvalidArgument, def.Name)
		}
		for _, t := range def.Tags {
			if !c.registry.KnownTagType(t) {
				return nil, fmt.Errorf("%w: %s", shared.ErrUnknownTagType, t)
			}
		}

		c.registry.Register(def.Endpoint())
		registered, _ := c.registry.Lookup(def.Name)
		api.endpoints[def.Name] = registered
		api.order = append(api.order, def.Name)
	}
	return api, nil
}

// Names returns the endpoint names in declaration order.
func (a *CustomAPI) Names() []string { return append([]string(nil), a.order...) }

// Endpoint returns the endpoint registered under name.
func (a *CustomAPI) Endpoint(name string) (Endpoint, bool) {
	ep, ok := a.endpoints[name]
	return ep, ok
}

// Call invokes name with params and returns the raw body.
func (a *CustomAPI) Call(ctx context.Context, name string, params query.Params) (json.RawMessage, error) {
	resp, err := a.Do(ctx, name, params)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Do invokes name with params and returns the full response.
func (a *CustomAPI) Do(ctx context.Context, name string, params query.Params) (*Response, error) {
	ep, ok := a.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownEndpoint, name)
	}
	return a.client.dispatch(ctx, ep, params)
}
