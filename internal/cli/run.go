package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sequent"
	"github.com/roach88/sequent/sqliteq"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	File     string
	Database string
	Page     int
	PageSize int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a query definition against a SQLite database",
		Long: `Execute a query definition file against a SQLite database and print
the resulting rows, or one page of them.

Example:
  sequent run -f query.yaml --db ./data.db
  sequent run -f query.yaml --db ./data.db --page 2 --page-size 25`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "query definition file (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "1-based page number (0 = all rows)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "rows per page")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// RunResult is the run command's output payload.
type RunResult struct {
	Rows  []any `json:"rows"`
	Total *int  `json:"total,omitempty"` // set when paginated
}

func (r RunResult) String() string {
	var b strings.Builder
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "%v\n", row)
	}
	if r.Total != nil {
		fmt.Fprintf(&b, "total: %d", *r.Total)
	} else {
		fmt.Fprintf(&b, "rows: %d", len(r.Rows))
	}
	return b.String()
}

func runQuery(opts *RunOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	def, err := LoadQueryDef(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load query definition", err)
	}

	db, err := sqliteq.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	q, err := def.Apply(sqliteq.MapTable(db, def.Table))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compose query", err)
	}
	logger.Debug("query composed", "table", def.Table, "page", opts.Page)

	result, err := executeQuery(ctx, def, q, opts)
	if err != nil {
		_ = out.Fail(err)
		return NewExitError(ExitFailure, "query failed")
	}
	return out.Success(result)
}

func executeQuery(ctx context.Context, def *QueryDef, q *sequent.Queryable[map[string]any], opts *RunOptions) (*RunResult, error) {
	if sel := def.Projection(); sel != nil {
		return collect(ctx, sequent.Select[map[string]any, any](q, sel), opts)
	}
	return collect(ctx, q, opts)
}

// collect fetches either every row or one page, normalizing to RunResult.
func collect[T any](ctx context.Context, q *sequent.Queryable[T], opts *RunOptions) (*RunResult, error) {
	if opts.Page > 0 {
		page, err := sequent.PageOf(ctx, q, opts.Page, opts.PageSize)
		if err != nil {
			return nil, err
		}
		rows := make([]any, len(page.Items))
		for i, it := range page.Items {
			rows[i] = it
		}
		total := page.Total
		return &RunResult{Rows: rows, Total: &total}, nil
	}
	items, err := sequent.ToSliceAsync(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := make([]any, len(items))
	for i, it := range items {
		rows[i] = it
	}
	return &RunResult{Rows: rows}, nil
}
