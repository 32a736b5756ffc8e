package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/afoeder/typo3cr/internal/mapper"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/query"
	"github.com/afoeder/typo3cr/internal/storage"
)

// Executable is a query that can be run. *query.Query and *query.Prepared
// implement it.
type Executable interface {
	Execute(ctx context.Context) (*query.Result, error)
}

// Manager loads aggregates: it executes queries against a backend and maps
// the results into objects.
type Manager struct {
	backend storage.Backend
	schemas mapper.ClassSchemas
	builder *Builder
	session *Session
	mapOpts []mapper.Option
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithBuilder sets the entity builder. Default: NewBuilder().
func WithBuilder(b *Builder) Option {
	return func(m *Manager) {
		m.builder = b
	}
}

// WithSession sets the session reconstituted objects are recorded in.
// Default: NewSession().
func WithSession(s *Session) Option {
	return func(m *Manager) {
		m.session = s
	}
}

// WithMapperOptions passes options to every mapping pass.
func WithMapperOptions(opts ...mapper.Option) Option {
	return func(m *Manager) {
		m.mapOpts = append(m.mapOpts, opts...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager reading from backend.
func NewManager(backend storage.Backend, schemas mapper.ClassSchemas, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		schemas: schemas,
		builder: NewBuilder(),
		session: NewSession(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the session objects are recorded in.
func (m *Manager) Session() *Session { return m.session }

// CreateQuery creates a query over nodes of nodeType.
func (m *Manager) CreateQuery(nodeType string, constraint qom.Constraint) (*query.Query, error) {
	return query.New(m.backend, qom.Selector{NodeTypeName: nodeType}, constraint)
}

// Find executes q and maps every resulting node, in result order, through
// one fresh mapping pass.
func (m *Manager) Find(ctx context.Context, q Executable) ([]mapper.Object, error) {
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	objects, err := m.newMapper().Map(ctx, res.Nodes())
	if err != nil {
		return nil, err
	}
	m.logger.Debug("query mapped", "nodes", res.Len(), "objects", len(objects))
	return objects, nil
}

// FindByIdentifier loads and maps the node identifier.
func (m *Manager) FindByIdentifier(ctx context.Context, identifier string) (mapper.Object, error) {
	n, err := m.backend.GetNode(ctx, identifier)
	if err != nil {
		return nil, err
	}
	objects, err := m.newMapper().MapNodes(ctx, []*node.Node{n})
	if err != nil {
		return nil, err
	}
	return objects[0], nil
}

func (m *Manager) newMapper() *mapper.Mapper {
	return mapper.New(mapper.Dependencies{
		Schemas:        m.schemas,
		Configurations: m.builder,
		Builder:        m.builder,
		Session:        m.session,
		Nodes:          m.backend,
	}, m.mapOpts...)
}
