package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/storage"
)

// GetNode loads the subtree rooted at the identified node of the active
// workspace. Children keep their insertion order, properties their position.
// Returns a NOT_FOUND error when the workspace has no such node.
func (s *Store) GetNode(ctx context.Context, identifier string) (*node.Node, error) {
	ws := s.WorkspaceName()

	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM nodes WHERE workspace = ? AND identifier = ?`,
		ws, identifier).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, crerr.NotFound(identifier).WithDetail("workspace", ws)
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", identifier, err)
	}

	nodes, order, err := s.loadSubtree(ctx, ws, path)
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", identifier, err)
	}
	if err := s.loadProperties(ctx, ws, path, nodes); err != nil {
		return nil, fmt.Errorf("get node %s: %w", identifier, err)
	}

	// order is sorted by sort_index, so appending keeps sibling order
	for _, row := range order {
		if row.id == identifier || !row.parent.Valid {
			continue
		}
		if p, ok := nodes[row.parent.String]; ok {
			p.AddChild(nodes[row.id])
		}
	}
	return nodes[identifier], nil
}

// GetNodeIterator resolves identifiers lazily through GetNode.
func (s *Store) GetNodeIterator(identifiers []string) *storage.NodeIterator {
	return storage.NewNodeIterator(s, identifiers)
}

type subtreeRow struct {
	id     string
	parent sql.NullString
}

// loadSubtree reads every node whose path starts with path.
func (s *Store) loadSubtree(ctx context.Context, ws, path string) (map[string]*node.Node, []subtreeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, parent, name, primary_type
		FROM nodes
		WHERE workspace = ? AND substr(path, 1, length(?)) = ?
		ORDER BY sort_index ASC, seq ASC
	`, ws, path, path)
	if err != nil {
		return nil, nil, fmt.Errorf("query subtree: %w", err)
	}
	defer rows.Close()

	nodes := make(map[string]*node.Node)
	var order []subtreeRow
	for rows.Next() {
		var (
			row               subtreeRow
			name, primaryType string
		)
		if err := rows.Scan(&row.id, &row.parent, &name, &primaryType); err != nil {
			return nil, nil, fmt.Errorf("scan node: %w", err)
		}
		nodes[row.id] = node.New(row.id, name, primaryType)
		order = append(order, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate subtree: %w", err)
	}
	return nodes, order, nil
}

// loadProperties attaches the properties of every subtree node.
func (s *Store) loadProperties(ctx context.Context, ws, path string, nodes map[string]*node.Node) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.node, p.name, p.type, p.value
		FROM properties p
		JOIN nodes n ON n.workspace = p.workspace AND n.identifier = p.node
		WHERE n.workspace = ? AND substr(n.path, 1, length(?)) = ?
		ORDER BY p.position ASC
	`, ws, path, path)
	if err != nil {
		return fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			owner, name, value string
			typ                int
		)
		if err := rows.Scan(&owner, &name, &typ, &value); err != nil {
			return fmt.Errorf("scan property: %w", err)
		}
		if n, ok := nodes[owner]; ok {
			n.AddProperty(node.NewProperty(name, node.PropertyType(typ), node.NewValue(value)))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate properties: %w", err)
	}
	return nil
}
