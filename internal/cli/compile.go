package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sequent"
	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
	"github.com/roach88/sequent/sqliteq"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	File string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query definition to SQL",
		Long: `Compile a query definition file to the parameterized SQL it would
execute, without touching a database.

Example:
  sequent compile -f query.yaml
  sequent compile -f query.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "query definition file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// CompileResult is the compile command's output payload.
type CompileResult struct {
	Expression string `json:"expression"`
	SQL        string `json:"sql"`
	Params     []any  `json:"params"`
}

func (r CompileResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "expression: %s\n", r.Expression)
	fmt.Fprintf(&b, "sql:        %s\n", r.SQL)
	fmt.Fprintf(&b, "params:     %v", r.Params)
	return b.String()
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
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
	out.VerboseLog("loaded %s (table %s)", opts.File, def.Table)

	e, err := definitionExpression(def)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compose query", err)
	}

	query, params, err := sqliteq.CompileSQL(e)
	if err != nil {
		_ = out.Fail(err)
		return NewExitError(ExitFailure, "query does not compile to SQL")
	}
	if params == nil {
		params = []any{}
	}
	return out.Success(CompileResult{
		Expression: expr.Render(e),
		SQL:        query,
		Params:     params,
	})
}

// definitionExpression composes a definition into an expression tree over an
// unbound table source.
func definitionExpression(def *QueryDef) (expr.Expression, error) {
	base := sequent.New[map[string]any](unboundProvider{}, &expr.Source{
		Name: def.Table,
		Elem: expr.TypeOf[map[string]any](),
	})
	q, err := def.Apply(base)
	if err != nil {
		return nil, err
	}
	if sel := def.Projection(); sel != nil {
		return sequent.Select[map[string]any, any](q, sel).Expression(), nil
	}
	return q.Expression(), nil
}

// unboundProvider backs definitions composed for inspection only. Any
// attempt to execute through it is a caller error.
type unboundProvider struct{}

func (unboundProvider) Execute(context.Context, expr.Expression) (any, error) {
	return nil, qerr.New(qerr.CodeInvalidArgument, "", "query is not bound to a database")
}
