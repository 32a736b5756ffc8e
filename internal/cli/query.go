package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	BackendOptions
	NodeType string
	Where    string
	Limit    int
	Offset   int
	Bind     map[string]string
}

// QueryResult holds the identifiers a query returned.
type QueryResult struct {
	NodeType    string   `json:"nodeType"`
	Workspace   string   `json:"workspace"`
	Identifiers []string `json:"identifiers"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{BackendOptions: BackendOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query node identifiers",
		Long: `Find the identifiers of nodes of a node type, in document order.

The --where filter joins comparisons with AND. Bare property names are
qualified with the prefix of --type, @name compares the local node name,
and :variable refers to a value given with --bind.

Examples:
  typo3cr query --db ./cr.db --type flow3:Blog_Post --where "rating > 5"
  typo3cr query --db ./cr.db --type flow3:Blog_Post --where "title like 'H%'" --limit 10
  typo3cr query --db ./cr.db --type flow3:Person --where "age >= :min" --bind min=30`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	addBackendFlags(cmd, &opts.BackendOptions, BackendSQLite)
	cmd.Flags().StringVar(&opts.NodeType, "type", "", "node type to select (required)")
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of results to skip")
	cmd.Flags().StringToStringVar(&opts.Bind, "bind", nil, "bind variable values (name=value)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	repo, _, err := openWithSchema(&opts.BackendOptions, logger)
	if err != nil {
		return formatter.Fail("failed to open repository", err)
	}
	defer closeRepository(repo, logger)

	q, err := buildQuery(repo, opts.NodeType, opts.Where, opts.Bind)
	if err != nil {
		return formatter.Fail("invalid query", err)
	}
	if err := applyPaging(q.Query, opts.Limit, opts.Offset); err != nil {
		return formatter.Fail("invalid query", err)
	}

	res, err := q.Execute(commandContext(cmd))
	if err != nil {
		return formatter.Fail("query failed", err)
	}
	formatter.VerboseLog("query returned %d node(s)", res.Len())

	result := QueryResult{NodeType: opts.NodeType, Workspace: repo.WorkspaceName(), Identifiers: res.Identifiers()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, id := range result.Identifiers {
		fmt.Fprintln(formatter.Writer, id)
	}
	return nil
}

// buildQuery parses where against nodeType and binds every variable it
// refers to from bind. Names in bind the filter does not use are rejected.
func buildQuery(repo repository, nodeType, where string, bind map[string]string) (*query.Prepared, error) {
	prefix, _ := node.SplitName(nodeType)
	constraint, err := qom.ParseFilter(where, prefix)
	if err != nil {
		return nil, err
	}
	q, err := query.NewPrepared(repo, qom.Selector{NodeTypeName: nodeType}, constraint)
	if err != nil {
		return nil, err
	}

	for _, name := range slices.Sorted(maps.Keys(bind)) {
		if err := q.BindValue(name, qom.ParseLiteral(bind[name])); err != nil {
			return nil, err
		}
	}
	var missing []string
	for _, name := range q.BindVariableNames() {
		if _, ok := bind[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, crerr.InvalidArgument("no --bind value for %s", strings.Join(missing, ", "))
	}
	return q, nil
}

func applyPaging(q *query.Query, limit, offset int) error {
	if limit > 0 {
		if err := q.SetLimit(limit); err != nil {
			return err
		}
	}
	return q.SetOffset(offset)
}
