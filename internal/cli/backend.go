package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/afoeder/typo3cr/internal/compiler"
	"github.com/afoeder/typo3cr/internal/kvstore"
	"github.com/afoeder/typo3cr/internal/namespace"
	"github.com/afoeder/typo3cr/internal/nodetype"
	"github.com/afoeder/typo3cr/internal/storage"
	"github.com/afoeder/typo3cr/internal/store"
)

// Backend names accepted by --backend.
const (
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
)

// ValidBackends defines the allowed storage backends.
var ValidBackends = []string{BackendSQLite, BackendLevelDB}

// BackendOptions holds the flags of commands that open a repository.
type BackendOptions struct {
	*RootOptions
	Database  string
	Backend   string
	Workspace string
	SchemaDir string
}

// repository is an open storage backend.
type repository interface {
	storage.Store
	io.Closer
}

func addBackendFlags(cmd *cobra.Command, opts *BackendOptions, defaultBackend string) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite database or LevelDB directory")
	cmd.Flags().StringVar(&opts.Backend, "backend", defaultBackend, "storage backend (sqlite|leveldb)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", "", "workspace to operate on (default: default)")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE class schemas and node types")
}

// newLogger builds the command logger. Logs go to stderr so they never mix
// with command output.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// loadModel compiles the schema directory, failing on the first error.
func loadModel(dir string) (*compiler.Result, error) {
	loadResult, loadErrors := LoadModel(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	if errs := compiler.Validate(loadResult.Model); len(errs) > 0 {
		return nil, errs[0]
	}
	return loadResult.Model, nil
}

// openRepository opens the backend selected by opts and switches to the
// requested workspace. types, when non-nil, makes node type queries match
// subtypes. A LevelDB backend without --db lives in memory.
func openRepository(opts *BackendOptions, types *nodetype.Manager, logger *slog.Logger) (repository, error) {
	if !slices.Contains(ValidBackends, opts.Backend) {
		return nil, fmt.Errorf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends)
	}

	var repo repository
	switch opts.Backend {
	case BackendSQLite:
		if opts.Database == "" {
			return nil, errors.New("--db is required for the sqlite backend")
		}
		s, err := store.Open(opts.Database, store.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if types != nil {
			s.SetSearchEngine(s.NewSearch(types))
		}
		repo = s
	case BackendLevelDB:
		kvOpts := []kvstore.Option{kvstore.WithLogger(logger)}
		if types != nil {
			kvOpts = append(kvOpts, kvstore.WithNodeTypes(types))
		}
		var (
			s   *kvstore.Store
			err error
		)
		if opts.Database == "" {
			s, err = kvstore.OpenMemory(kvOpts...)
		} else {
			s, err = kvstore.Open(opts.Database, kvOpts...)
		}
		if err != nil {
			return nil, err
		}
		repo = s
	}

	if opts.Workspace != "" {
		if err := storage.Configure(repo, map[string]any{"workspaceName": opts.Workspace}); err != nil {
			repo.Close()
			return nil, err
		}
	}
	logger.Debug("repository opened", "backend", opts.Backend, "db", opts.Database, "workspace", repo.WorkspaceName())
	return repo, nil
}

// openWithSchema loads the optional schema directory and opens the
// repository with its node types.
func openWithSchema(opts *BackendOptions, logger *slog.Logger) (repository, *compiler.Result, error) {
	var (
		model *compiler.Result
		types *nodetype.Manager
	)
	if opts.SchemaDir != "" {
		var err error
		model, err = loadModel(opts.SchemaDir)
		if err != nil {
			return nil, nil, fmt.Errorf("load schema: %w", err)
		}
		types, err = model.NodeTypeManager(namespace.PersistencePrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("build node types: %w", err)
		}
		logger.Debug("schema loaded", "dir", opts.SchemaDir, "classes", len(model.Classes), "nodeTypes", len(types.Names()))
	}
	repo, err := openRepository(opts, types, logger)
	if err != nil {
		return nil, nil, err
	}
	return repo, model, nil
}

func closeRepository(repo repository, logger *slog.Logger) {
	if err := repo.Close(); err != nil {
		logger.Error("error closing repository", "error", err)
	}
}

// commandContext returns the command's context, if set (for testing).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
