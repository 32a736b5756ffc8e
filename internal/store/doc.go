// Package store provides the SQLite-backed content repository backend.
//
// Nodes of every workspace live in one database:
//   - nodes: one row per node with its parent, materialized path, primary
//     type, document order (seq) and sibling position (sort_index)
//   - properties: one row per scalar property in canonical lexical form,
//     with a numeric shadow column for Long, Double and Decimal values
//
// # Critical Patterns
//
// Deterministic results:
//   - Subtrees load children by sort_index and properties by position
//   - Search results order by seq, identifier COLLATE BINARY
//
// Values are never interpolated into SQL. Query compilation is delegated to
// internal/querysql.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - case_sensitive_like=ON: LIKE matches byte-wise like the in-memory engine
package store
