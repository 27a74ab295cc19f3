// package storage provides namespaced JSON persistence over a key-value backend.
//
// The [Adapter] prefixes every key with [Prefix] before touching the backend, so unrelated data
// sharing the same store is never read or cleared. [Get] and [Set] degrade failures to an absent
// value and a warning log; [Adapter.Lookup] and [Adapter.Put] return the failure instead, telling a
// missing key ([shared.ErrNotFound]) apart from unreadable JSON ([*CorruptError]).
//
// Two backends are provided: [MemoryBackend] for tests and ephemeral demos, and [SQLiteBackend]
// over the kv_items table created by the shared migrations.
package storage
