// Package server provides HTTP routing, middleware and the mock finance backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// The first [Middleware] added runs outermost.
//
// [BasicRouter] wraps each route with the middleware added before it was registered, which is how
// the CLI keeps "GET /api/health" outside [BearerAuth] while every collection route sits behind it.
//
// # Mock Backend
//
// [Backend] serves the REST surface the API client expects, persisting each collection as a JSON
// array in a storage adapter:
//
//	GET    /{collection}?page=&limit=&search=&sort=&filter[field]=
//	POST   /{collection}
//	GET    /{collection}/{id}
//	PUT    /{collection}/{id}
//	DELETE /{collection}/{id}
//	POST   /transactions/{id}/approve
//	POST   /transactions/{id}/reject
//	GET    /transactions/summary?from=&to=
//
// List responses use the page envelope {data, total, page, limit}. Sort fields may be repeated and
// prefixed with "-" for descending order.
//
// # Authentication
//
// [BearerAuth] verifies HS256 tokens issued by [IssueToken]. It is a no-op when no secret is configured.
package server
