package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/peak-solution/openatfx-sub003/internal/engine"
	"github.com/peak-solution/openatfx-sub003/internal/schema"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// nullText is how an absent value is printed in text output.
const nullText = "NULL"

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions

	// IDGenerator overrides the evaluation id source. Nil means UUIDv7.
	IDGenerator engine.IDGenerator
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return newQueryCommand(&QueryOptions{RootOptions: rootOpts})
}

func newQueryCommand(opts *QueryOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <query-file>",
		Short: "Evaluate a query against a database",
		Long: `Evaluate the YAML query in <query-file> against the database named by --db.

The query is resolved against the stored meta-model, validated, and
evaluated. Text output prints one table per element; absent values are
shown as NULL. JSON output carries the full typed result.

Exit codes:
  0 - Query evaluated
  1 - Query rejected (VALIDATION, NOT_FOUND, TYPE_MISMATCH, ...)
  2 - Command error (unreadable query file, database errors, etc.)

Examples:
  odsq query parameters.yaml --db measurements.db
  odsq query parameters.yaml --db measurements.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	return cmd
}

func runQuery(opts *QueryOptions, queryFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openModelStore(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	q, err := schema.ReadQuery(queryFile, st.Model())
	if err != nil {
		return formatter.Fail(ErrCodeLoadFailed, "failed to read query", err)
	}

	eng := engine.New(st, engineOptions(opts)...)
	res, err := eng.Evaluate(cmd.Context(), q)
	if err != nil {
		return formatter.Fail(ErrCodeGeneric, "query failed", err)
	}
	formatter.VerboseLog("Evaluation %s (fingerprint %s)", res.EvalID, res.Fingerprint)

	if opts.Format == "json" {
		return formatter.Success(res)
	}
	return renderResult(cmd.OutOrStdout(), res)
}

func engineOptions(opts *QueryOptions) []engine.Option {
	engOpts := []engine.Option{engine.WithLogger(opts.logger())}
	if opts.Parallelism > 0 {
		engOpts = append(engOpts, engine.WithParallelism(opts.Parallelism))
	}
	if opts.IDGenerator != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	return engOpts
}

// renderResult prints one aligned table per element.
func renderResult(w io.Writer, res *engine.Result) error {
	for i := range res.Elements {
		er := &res.Elements[i]
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d rows)\n", er.ElementName, er.Rows())

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(er.ColumnNames(), "\t"))
		for row := 0; row < er.Rows(); row++ {
			cells := make([]string, len(er.Columns))
			for c, col := range er.Columns {
				cells[c] = cellText(col.Values[row])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if res.Joined {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rows are joined pairs.")
	}
	return nil
}

func cellText(v value.Value) string {
	if !v.Present() {
		return nullText
	}
	return value.ToString(v)
}
