package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/afoeder/typo3cr/internal/nodetype"
	"github.com/afoeder/typo3cr/internal/querysql"
	"github.com/afoeder/typo3cr/internal/storage"
)

// Search resolves QOM queries with SQL against the store's tables.
// Selectors match their node type and, when a node type manager is bound,
// every registered subtype.
type Search struct {
	db        *sql.DB
	types     *nodetype.Manager
	workspace string
	logger    *slog.Logger
}

var _ storage.Search = (*Search)(nil)

// NewSearch creates a search engine over the store's database. types may be nil.
func (s *Store) NewSearch(types *nodetype.Manager) *Search {
	return &Search{
		db:        s.db,
		types:     types,
		workspace: storage.DefaultWorkspace,
		logger:    s.logger,
	}
}

// SetWorkspaceName selects the workspace searched by FindNodeIdentifiers.
func (e *Search) SetWorkspaceName(name string) {
	e.workspace = name
}

// FindNodeIdentifiers returns the primary selector's identifiers in document
// order, with limit and offset applied in SQL.
func (e *Search) FindNodeIdentifiers(ctx context.Context, q storage.Query) ([]string, error) {
	compiler := querysql.NewSQLCompiler(e.workspace)
	if e.types != nil {
		compiler.SubTypes = e.types.SubTypeNames
	}

	query, params, err := compiler.Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find node identifiers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var (
			id  string
			seq int64
		)
		if err := rows.Scan(&id, &seq); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identifiers: %w", err)
	}

	e.logger.Debug("query resolved", "workspace", e.workspace, "identifiers", len(ids))
	return ids, nil
}
