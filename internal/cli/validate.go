package cli

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	File   string
	Schema string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a query definition against a CUE schema",
		Long: `Validate a query definition file against a CUE schema package that
declares the tables and column types the database carries.

Example:
  sequent validate -f query.yaml --schema ./schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "query definition file (required)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "directory of CUE schema files (required)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

// ValidateResult is the validate command's output payload.
type ValidateResult struct {
	Valid    bool     `json:"valid"`
	Table    string   `json:"table"`
	Problems []string `json:"problems,omitempty"`
}

func (r ValidateResult) String() string {
	if r.Valid {
		return fmt.Sprintf("%s: ok", r.Table)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d problem(s)\n", r.Table, len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
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
	schema, err := LoadSchema(opts.Schema)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	out.VerboseLog("schema declares %d table(s)", len(schema.Tables))

	result := schema.Check(def)
	if err := out.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "query definition does not match schema")
	}
	return nil
}

// Schema is the table layout declared by a CUE schema package: table name
// to column name to column type ("integer", "real", "text", "boolean").
type Schema struct {
	Tables map[string]map[string]string
}

// LoadSchema builds the schema from a directory of CUE files.
//
// The schema package declares tables under a top-level "table" struct:
//
//	table: users: {
//		id:   "integer"
//		name: "text"
//	}
func LoadSchema(dir string) (*Schema, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	tables := value.LookupPath(cue.ParsePath("table"))
	if !tables.Exists() {
		return nil, fmt.Errorf("schema declares no tables")
	}
	schema := &Schema{Tables: map[string]map[string]string{}}
	tableIter, err := tables.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}
	for tableIter.Next() {
		cols := map[string]string{}
		colIter, err := tableIter.Value().Fields()
		if err != nil {
			return nil, fmt.Errorf("iterating columns of %s: %w", tableIter.Label(), err)
		}
		for colIter.Next() {
			typ, err := colIter.Value().String()
			if err != nil {
				return nil, fmt.Errorf("column %s.%s: type must be a string: %w",
					tableIter.Label(), colIter.Label(), err)
			}
			cols[colIter.Label()] = typ
		}
		schema.Tables[tableIter.Label()] = cols
	}
	return schema, nil
}

// Check validates a definition against the schema.
func (s *Schema) Check(def *QueryDef) ValidateResult {
	result := ValidateResult{Table: def.Table}

	cols, ok := s.Tables[def.Table]
	if !ok {
		result.Problems = append(result.Problems, fmt.Sprintf("unknown table %q", def.Table))
		result.Valid = false
		return result
	}
	if def.Select != "" {
		if _, ok := cols[def.Select]; !ok {
			result.Problems = append(result.Problems,
				fmt.Sprintf("select references unknown column %q", def.Select))
		}
	}
	for _, c := range append(append([]Condition(nil), def.Where...), def.Any...) {
		typ, ok := cols[c.Field]
		if !ok {
			result.Problems = append(result.Problems,
				fmt.Sprintf("condition references unknown column %q", c.Field))
			continue
		}
		if p := checkConditionType(c, typ); p != "" {
			result.Problems = append(result.Problems, p)
		}
	}
	result.Valid = len(result.Problems) == 0
	return result
}

// checkConditionType reports a mismatch between a condition's value and its
// column's declared type, or "" when they agree.
func checkConditionType(c Condition, typ string) string {
	if c.Value == nil {
		if c.Op != "eq" && c.Op != "ne" {
			return fmt.Sprintf("column %q: null only compares with eq/ne", c.Field)
		}
		return ""
	}
	ok := false
	switch typ {
	case "integer":
		switch c.Value.(type) {
		case int, int32, int64:
			ok = true
		}
	case "real":
		switch c.Value.(type) {
		case int, int32, int64, float32, float64:
			ok = true
		}
	case "text":
		_, ok = c.Value.(string)
	case "boolean":
		_, ok = c.Value.(bool)
	default:
		return fmt.Sprintf("column %q has unsupported schema type %q", c.Field, typ)
	}
	if !ok {
		return fmt.Sprintf("column %q is %s, condition value is %T", c.Field, typ, c.Value)
	}
	return ""
}
