// Package qom provides the Query Object Model: an immutable expression tree
// of sources, join conditions, constraints and operands.
//
// QOM is the abstraction boundary between callers that build queries and the
// storage backends that evaluate them. Backends switch exhaustively over the
// sealed interfaces below; the SQLite backend compiles the tree to SQL
// (internal/querysql), the index backend evaluates it over bitmaps
// (internal/search).
package qom
