package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afoeder/typo3cr/internal/mapper"
	"github.com/afoeder/typo3cr/internal/namespace"
	"github.com/afoeder/typo3cr/internal/persistence"
	"github.com/afoeder/typo3cr/internal/schema"
)

// MapOptions holds flags for the map command.
type MapOptions struct {
	QueryOptions
	ClassName  string
	Identifier string
	MaxDepth   int
}

// NewMapCommand creates the map command.
func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MapOptions{QueryOptions: QueryOptions{BackendOptions: BackendOptions{RootOptions: rootOpts}}}

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map nodes into objects",
		Long: `Query nodes and map them into objects described by the class schemas
of --schema, printing the object graphs as JSON.

Select the nodes with --type or --class plus an optional --where filter,
or a single node with --id. Each object is written in full where it first
appears; later occurrences are {"$ref": id}.

Examples:
  typo3cr map --db ./cr.db --schema ./schema --class Blog.Post
  typo3cr map --db ./cr.db --schema ./schema --type flow3:Blog_Post --where "rating > 5"
  typo3cr map --db ./cr.db --schema ./schema --id 018f4c1e-7f3a-7cc1-9a8e-3c6b4c2b8f10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(opts, cmd)
		},
	}

	addBackendFlags(cmd, &opts.BackendOptions, BackendSQLite)
	cmd.Flags().StringVar(&opts.NodeType, "type", "", "node type to select")
	cmd.Flags().StringVar(&opts.ClassName, "class", "", "class whose node type to select")
	cmd.Flags().StringVar(&opts.Identifier, "id", "", "identifier of a single node to map")
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of results to skip")
	cmd.Flags().StringToStringVar(&opts.Bind, "bind", nil, "bind variable values (name=value)")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "maximum mapping depth (0 = default)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("schema")
	cmd.MarkFlagsMutuallyExclusive("type", "class", "id")
	cmd.MarkFlagsOneRequired("type", "class", "id")

	return cmd
}

func runMap(opts *MapOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	repo, model, err := openWithSchema(&opts.BackendOptions, logger)
	if err != nil {
		return formatter.Fail("failed to open repository", err)
	}
	defer closeRepository(repo, logger)

	if model == nil {
		return formatter.Fail("invalid arguments", errors.New("--schema is required"))
	}
	schemas, err := model.Schemas()
	if err != nil {
		return formatter.Fail("invalid schema", err)
	}

	mapOpts := []mapper.Option{mapper.WithLogger(logger)}
	if opts.MaxDepth > 0 {
		mapOpts = append(mapOpts, mapper.WithMaxDepth(opts.MaxDepth))
	}
	manager := persistence.NewManager(repo, schemas,
		persistence.WithLogger(logger),
		persistence.WithMapperOptions(mapOpts...),
	)

	var objects []mapper.Object
	if opts.Identifier != "" {
		obj, err := manager.FindByIdentifier(ctx, opts.Identifier)
		if err != nil {
			return formatter.Fail("mapping failed", err)
		}
		objects = []mapper.Object{obj}
	} else {
		nodeType := opts.NodeType
		if opts.ClassName != "" {
			if _, err := schemas.ClassSchema(opts.ClassName); err != nil {
				return formatter.Fail("invalid class", err)
			}
			nodeType = schema.NodeTypeFromClassName(namespace.PersistencePrefix, opts.ClassName)
		}
		q, err := buildQuery(repo, nodeType, opts.Where, opts.Bind)
		if err != nil {
			return formatter.Fail("invalid query", err)
		}
		if err := applyPaging(q.Query, opts.Limit, opts.Offset); err != nil {
			return formatter.Fail("invalid query", err)
		}
		objects, err = manager.Find(ctx, q)
		if err != nil {
			return formatter.Fail("mapping failed", err)
		}
	}
	formatter.VerboseLog("mapped %d object(s), %d reconstituted", len(objects), len(manager.Session().ReconstitutedObjects()))

	out, err := persistence.Dump(objects)
	if err != nil {
		return formatter.Fail("failed to render objects", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(json.RawMessage(out))
	}
	fmt.Fprintln(formatter.Writer, string(out))
	return nil
}
