// Package models defines the finance entities and the cache-tag vocabulary shared by the API client,
// the query cache and the mock backend.
//
// Entities:
//   - [Transaction] : a single income or expense with an approval status
//   - [Category] : a grouping for transactions
//   - [Budget] : a spending limit over a period for one category
//   - [Plan] : a savings target with a deadline
//
// Every entity implements [Entity] and validates itself with ozzo-validation rules.
// List endpoints return entities wrapped in a [Page] envelope.
//
// Cache tags:
//
// A [Tag] pairs a [TagType] from the closed [DefaultTagTypes] set with either the collection marker
// ([ListID]) or a single entity id. Reads provide tags and writes invalidate them; an [Invalidation]
// carries the tags a completed write has made stale.
package models
