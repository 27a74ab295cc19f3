// Package api synthesizes typed REST operations for finance entities and dispatches them through a
// pluggable transport, query cache and invalidation observers.
//
// # Endpoint Registry
//
// Every operation is an [Endpoint] stored by name in a [Registry]. Registration happens once, at
// construction time, and the first registration of a name wins: registering the same name again
// is a silent no-op, so repeated [InjectCRUD] calls never shadow or duplicate an endpoint.
//
// # CRUD Synthesis
//
// [BuildCRUD] turns a [Definition] (entity name, optional tag type, optional extra endpoints) into
// five endpoints named by [DeriveNames]:
//
//	getAll{S}   GET    /{entity}{query}   provides {S, LIST}
//	get{S}ById  GET    /{entity}/{id}     provides {S, id}, or {S, LIST} when the result is empty
//	create{S}   POST   /{entity}          invalidates {S, LIST}
//	update{S}   PUT    /{entity}/{id}     invalidates {S, id} and {S, LIST}
//	remove{S}   DELETE /{entity}/{id}     invalidates {S, LIST} and {S, id}
//
// [InjectCRUD] registers them and returns a typed [CRUD] facade. Without a tag type the endpoints
// neither provide nor invalidate anything.
//
// # Custom Endpoints
//
// [CustomEndpoint] declares one-off operations with ":param" URL templates. GET endpoints substitute
// path parameters and still serialize the full parameter set into the query string; other verbs
// substitute the path and send the full parameter set as the JSON body.
//
// # Dispatch
//
// [Client.Do] builds the request, sends reads through the [QueryCache] when one is configured and
// records the tags they provide. Writes execute directly; on success the resulting
// [models.Invalidation] is returned in the [Response] and published to every [Observer].
//
// Transport failures are never retried. A non-2xx response becomes an [*HTTPError] carrying the
// status and body, matching [shared.ErrAPIRequest] (and [shared.ErrNotFound] for 404).
package api
