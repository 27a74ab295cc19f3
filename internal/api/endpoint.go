package api

import (
	"encoding/json"
	"net/http"

	"github.com/desertthunder/fintx/internal/models"
)

// Kind identifies which operation an endpoint performs.
type Kind int

const (
	KindList Kind = iota
	KindGetByID
	KindCreate
	KindUpdate
	KindRemove
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindGetByID:
		return "getById"
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindRemove:
		return "remove"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Request is a transport-level call, with Path relative to the base URL and already carrying any query string.
type Request struct {
	Method  string
	Path    string
	Body    any
	Headers map[string]string
}

// RequestFunc builds the request for one invocation of an endpoint.
type RequestFunc func(arg any) (Request, error)

// TagFunc computes cache tags from a response body and the invocation argument.
type TagFunc func(result json.RawMessage, arg any) []models.Tag

// Endpoint describes one network operation and its cache contract.
//
// Reads (Mutation == false) use Provides; writes use Invalidates.
type Endpoint struct {
	Name        string
	Kind        Kind
	Verb        string // HTTP method, for display; optional
	Mutation    bool
	Build       RequestFunc
	Provides    TagFunc
	Invalidates TagFunc
}

// Method returns Verb, or else the HTTP verb the endpoint uses for a nil argument. For display only.
func (e Endpoint) Method() string {
	if e.Verb != "" {
		return e.Verb
	}
	if e.Build == nil {
		return ""
	}
	req, err := e.Build(nil)
	if err != nil || req.Method == "" {
		if e.Mutation {
			return http.MethodPost
		}
		return http.MethodGet
	}
	return req.Method
}

func (e Endpoint) tagsFor(result json.RawMessage, arg any) []models.Tag {
	fn := e.Provides
	if e.Mutation {
		fn = e.Invalidates
	}
	if fn == nil {
		return nil
	}
	return fn(result, arg)
}

// Builder is handed to a [Definition]'s Extra function so extra endpoints can share the entity's tag space.
type Builder struct {
	EntityName string
	TagType    models.TagType
}

// Query declares a read endpoint.
func (b Builder) Query(name string, build RequestFunc, provides TagFunc) Endpoint {
	return Endpoint{Name: name, Kind: KindCustom, Verb: http.MethodGet, Build: build, Provides: provides}
}

// Mutation declares a write endpoint.
func (b Builder) Mutation(name string, build RequestFunc, invalidates TagFunc) Endpoint {
	return Endpoint{Name: name, Kind: KindCustom, Mutation: true, Build: build, Invalidates: invalidates}
}

// Custom declares an endpoint from a URL template; see [CustomEndpoint].
func (b Builder) Custom(def CustomEndpoint) Endpoint {
	return def.Endpoint()
}

// ListTags returns a TagFunc yielding the collection marker for each type, ignoring the result.
func ListTags(types ...models.TagType) TagFunc {
	if len(types) == 0 {
		return nil
	}
	return func(json.RawMessage, any) []models.Tag {
		tags := make([]models.Tag, 0, len(types))
		for _, t := range types {
			tags = append(tags, models.ListTag(t))
		}
		return tags
	}
}
