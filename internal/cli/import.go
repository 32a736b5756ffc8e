package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afoeder/typo3cr/internal/fixture"
	"github.com/afoeder/typo3cr/internal/node"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	BackendOptions

	// Identifiers allows overriding the identifier generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Identifiers node.IdentifierGenerator
}

// ImportResult holds the outcome of an import.
type ImportResult struct {
	Fixture     string   `json:"fixture"`
	Workspace   string   `json:"workspace"`
	Identifiers []string `json:"identifiers"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{BackendOptions: BackendOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Import a node fixture into a repository",
		Long: `Import the node tree of a YAML fixture into a repository.

Nodes without an identifier get a generated UUIDv7. The nodes go into the
workspace named by the fixture, else the one named by --workspace.

Example:
  typo3cr import --db ./cr.db ./fixtures/blog.yaml
  typo3cr import --backend leveldb --db ./cr.ldb --workspace live ./fixtures/blog.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	addBackendFlags(cmd, &opts.BackendOptions, BackendSQLite)
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	fx, err := fixture.Load(path)
	if err != nil {
		return formatter.Fail("failed to load fixture", err)
	}

	repo, _, err := openWithSchema(&opts.BackendOptions, logger)
	if err != nil {
		return formatter.Fail("failed to open repository", err)
	}
	defer closeRepository(repo, logger)

	importerOpts := []fixture.Option{fixture.WithLogger(logger)}
	if opts.Identifiers != nil {
		importerOpts = append(importerOpts, fixture.WithIdentifierGenerator(opts.Identifiers))
	}
	ids, err := fixture.NewImporter(importerOpts...).ImportInto(commandContext(cmd), repo, fx)
	if err != nil {
		return formatter.Fail("failed to import fixture", err)
	}

	result := ImportResult{Fixture: fx.Name, Workspace: repo.WorkspaceName(), Identifiers: ids}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Imported %d root node(s) from %s into workspace %s\n", len(ids), fx.Name, result.Workspace)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}
