package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afoeder/typo3cr/internal/fixture"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	BackendOptions
}

// CheckResult holds the outcome of checking one fixture.
type CheckResult struct {
	Fixture string                `json:"fixture"`
	Backend string                `json:"backend"`
	Queries []fixture.QueryResult `json:"queries"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Total   int                   `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{BackendOptions: BackendOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "check <fixture.yaml>...",
		Short: "Import fixtures and verify their queries",
		Long: `Import each fixture and run its queries against the repository.

Every query result is compared, in order, with the identifiers the fixture
expects. Without --db the LevelDB backend runs in memory, giving every
fixture a fresh repository.

Exit codes:
  0 - All queries returned the expected identifiers
  1 - One or more queries failed
  2 - Command error (unreadable fixture, import failure)

Examples:
  typo3cr check ./fixtures/blog.yaml
  typo3cr check --backend sqlite --db /tmp/check.db ./fixtures/blog.yaml
  typo3cr check --schema ./schema --format json ./fixtures/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	addBackendFlags(cmd, &opts.BackendOptions, BackendLevelDB)

	return cmd
}

func runCheck(opts *CheckOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	var results []CheckResult
	for _, path := range paths {
		fx, err := fixture.Load(path)
		if err != nil {
			return formatter.Fail("failed to load fixture "+path, err)
		}

		repo, _, err := openWithSchema(&opts.BackendOptions, logger)
		if err != nil {
			return formatter.Fail("failed to open repository", err)
		}
		result, err := checkFixture(ctx, repo, fx, opts.Backend)
		closeRepository(repo, logger)
		if err != nil {
			return formatter.Fail("failed to check fixture "+fx.Name, err)
		}
		formatter.VerboseLog("checked %s: %d/%d passed", fx.Name, result.Passed, result.Total)
		results = append(results, result)
	}

	failed := 0
	for _, r := range results {
		failed += r.Failed
	}

	if formatter.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		printCheckResults(formatter, results)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d fixture queries failed", failed))
	}
	return nil
}

// checkFixture imports fx into repo and verifies its queries.
func checkFixture(ctx context.Context, repo repository, fx *fixture.Fixture, backend string) (CheckResult, error) {
	if _, err := fixture.NewImporter().ImportInto(ctx, repo, fx); err != nil {
		return CheckResult{}, err
	}
	queries, err := fixture.Verify(ctx, repo, fx)
	if err != nil {
		return CheckResult{}, err
	}

	result := CheckResult{Fixture: fx.Name, Backend: backend, Queries: queries, Total: len(queries)}
	for _, q := range queries {
		if q.Passed() {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

func printCheckResults(formatter *OutputFormatter, results []CheckResult) {
	w := formatter.Writer
	passed, failed, total := 0, 0, 0
	for _, r := range results {
		fmt.Fprintf(w, "%s (%s)\n", r.Fixture, r.Backend)
		for _, q := range r.Queries {
			if q.Passed() {
				fmt.Fprintf(w, "✓ %s\n", q.Name)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", q.Name)
			if q.Error != "" {
				fmt.Fprintf(w, "  Query error: %s\n", q.Error)
				continue
			}
			fmt.Fprintf(w, "  expected: [%s]\n", strings.Join(q.Expect, ", "))
			fmt.Fprintf(w, "  got:      [%s]\n", strings.Join(q.Got, ", "))
		}
		passed += r.Passed
		failed += r.Failed
		total += r.Total
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Check Summary: %d passed, %d failed, %d total\n", passed, failed, total)
	if failed == 0 {
		fmt.Fprintln(w, "✓ All queries passed")
	}
}
