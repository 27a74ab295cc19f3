// Package services assembles the finance API from the generic endpoint synthesizer.
//
// # Finance API
//
// [NewFinanceAPI] injects one CRUD facade per entity into a shared [api.Client]:
//
//	entity        tag type       extra endpoints
//	transactions  Transactions   approveTransaction, rejectTransaction
//	categories    Category
//	budgets       Budget
//	plans         Plan
//
// plus the custom endpoint getTransactionSummary (GET /transactions/summary).
//
// Approving or rejecting a transaction invalidates both the transaction and the transaction list,
// so cached reads of either are refetched.
//
// # Listing
//
// [ListOptions] maps paging, search, sort and filter flags onto the query parameters the backend
// understands. A zero ListOptions lets the list endpoint apply its defaults.
package services
