// Package authz answers whether the current subject may act on a node. It is
// a boundary only: the decision is delegated to a PrivilegeManager.
package authz

import (
	"log/slog"

	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/nodetype"
)

// EditNodePrivilege is the privilege checked before a node is modified.
const EditNodePrivilege = "EditNodePrivilege"

// NodePrivilegeSubject is the node a privilege is checked against.
type NodePrivilegeSubject struct {
	Node *node.Node
}

// PrivilegeManager decides privileges.
type PrivilegeManager interface {
	IsGranted(privilege string, subject NodePrivilegeSubject) bool
}

// PrivilegeFunc adapts a function to PrivilegeManager.
type PrivilegeFunc func(privilege string, subject NodePrivilegeSubject) bool

// IsGranted calls f.
func (f PrivilegeFunc) IsGranted(privilege string, subject NodePrivilegeSubject) bool {
	return f(privilege, subject)
}

// Service checks node privileges.
type Service struct {
	privileges PrivilegeManager
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for denied checks. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service delegating to pm.
func NewService(pm PrivilegeManager, opts ...Option) *Service {
	s := &Service{privileges: pm, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsGrantedToEditNode reports whether n may be edited.
func (s *Service) IsGrantedToEditNode(n *node.Node) bool {
	granted := s.privileges.IsGranted(EditNodePrivilege, NodePrivilegeSubject{Node: n})
	if !granted {
		s.logger.Debug("edit denied", "identifier", n.Identifier, "type", n.PrimaryType)
	}
	return granted
}

// TypePolicy grants a privilege on nodes whose primary type is, or inherits
// from, one of the listed node types. Other privileges are denied.
type TypePolicy struct {
	Privilege string
	Types     *nodetype.Manager
	Allowed   []string
}

// IsGranted implements PrivilegeManager.
func (p TypePolicy) IsGranted(privilege string, subject NodePrivilegeSubject) bool {
	if privilege != p.Privilege || subject.Node == nil {
		return false
	}
	t, err := p.Types.NodeType(subject.Node.PrimaryType)
	if err != nil {
		return false
	}
	for _, allowed := range p.Allowed {
		if t.IsOfType(allowed) {
			return true
		}
	}
	return false
}
