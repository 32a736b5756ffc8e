package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
)

// AddNode stores n and its subtree in the active workspace below the node
// parentID, after the parent's existing children. An empty parentID adds a
// root level node.
//
// The subtree is written in one transaction: identifiers must be non-empty
// and unique within the workspace, property values must parse as their
// declared type. Values are stored canonicalized.
func (s *Store) AddNode(ctx context.Context, parentID string, n *node.Node) error {
	if n == nil {
		return crerr.InvalidArgument("cannot add a nil node")
	}
	ws := s.WorkspaceName()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add node: begin transaction: %w", err)
	}
	defer tx.Rollback()

	parentPath := "/"
	var parent any // NULL for root level nodes
	if parentID != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT path FROM nodes WHERE workspace = ? AND identifier = ?`,
			ws, parentID).Scan(&parentPath)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("add node below %s: %w", parentID, crerr.NotFound(parentID))
		}
		if err != nil {
			return fmt.Errorf("add node: load parent: %w", err)
		}
		parent = parentID
	}

	var sortIndex, seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_index) + 1, 0) FROM nodes WHERE workspace = ? AND parent IS ?`,
		ws, parent).Scan(&sortIndex); err != nil {
		return fmt.Errorf("add node: next sort index: %w", err)
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM nodes WHERE workspace = ?`,
		ws).Scan(&seq); err != nil {
		return fmt.Errorf("add node: next seq: %w", err)
	}

	w := &subtreeWriter{ctx: ctx, tx: tx, workspace: ws, seq: seq}
	if err := w.write(parent, parentPath, sortIndex, n); err != nil {
		return fmt.Errorf("add node %s: %w", n.Identifier, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add node: commit: %w", err)
	}
	s.logger.Debug("subtree added",
		"workspace", ws,
		"root", n.Identifier,
		"nodes", w.seq-seq,
	)
	return nil
}

// subtreeWriter inserts a subtree in document order.
type subtreeWriter struct {
	ctx       context.Context
	tx        *sql.Tx
	workspace string
	seq       int64
}

func (w *subtreeWriter) write(parent any, parentPath string, sortIndex int64, n *node.Node) error {
	if n.Identifier == "" {
		return crerr.InvalidArgument("node %q of type %s has no identifier", n.Name, n.PrimaryType)
	}
	if n.PrimaryType == "" {
		return crerr.InvalidArgument("node %s has no primary type", n.Identifier)
	}

	var exists int
	err := w.tx.QueryRowContext(w.ctx,
		`SELECT 1 FROM nodes WHERE workspace = ? AND identifier = ?`,
		w.workspace, n.Identifier).Scan(&exists)
	if err == nil {
		return crerr.New(crerr.CodeDuplicateIdentifier,
			"node %s already exists in workspace %s", n.Identifier, w.workspace).
			WithDetail("identifier", n.Identifier)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check identifier: %w", err)
	}

	name := node.NormalizeName(n.Name)
	_, local := node.SplitName(name)
	path := parentPath + n.Identifier + "/"
	w.seq++

	_, err = w.tx.ExecContext(w.ctx, `
		INSERT INTO nodes
		(workspace, identifier, parent, path, name, local_name, primary_type, seq, sort_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		w.workspace,
		n.Identifier,
		parent,
		path,
		name,
		local,
		n.PrimaryType,
		w.seq,
		sortIndex,
	)
	if err != nil {
		return fmt.Errorf("insert node %s: %w", n.Identifier, err)
	}

	seen := make(map[string]bool, len(n.Properties))
	for i, p := range n.Properties {
		if err := w.writeProperty(n.Identifier, i, p, seen); err != nil {
			return err
		}
	}

	for i, child := range n.Children {
		if err := w.write(n.Identifier, path, int64(i), child); err != nil {
			return err
		}
	}
	return nil
}

func (w *subtreeWriter) writeProperty(owner string, position int, p node.Property, seen map[string]bool) error {
	name := node.NormalizeName(p.Name)
	if seen[name] {
		return crerr.InvalidArgument("node %s carries property %s twice", owner, name)
	}
	seen[name] = true

	v, err := node.Canonicalize(p.Value, p.Type)
	if err != nil {
		return crerr.InvalidArgument("property %s of node %s: %v", name, owner, err).
			WithDetail("property", name)
	}

	var num any // NULL for non-numeric types
	if qom.Numeric(p.Type) {
		f, err := v.Double()
		if err != nil {
			return crerr.InvalidArgument("property %s of node %s: %v", name, owner, err)
		}
		num = f
	}

	_, err = w.tx.ExecContext(w.ctx, `
		INSERT INTO properties
		(workspace, node, name, type, value, num, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		w.workspace,
		owner,
		name,
		int(p.Type),
		v.String(),
		num,
		position,
	)
	if err != nil {
		return fmt.Errorf("insert property %s of node %s: %w", name, owner, err)
	}
	return nil
}
