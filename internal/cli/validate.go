package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peak-solution/openatfx-sub003/internal/engine"
	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/schema"
	"github.com/peak-solution/openatfx-sub003/internal/store"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ModelDir string // compile this CUE model instead of reading --db
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Elements int               `json:"elements"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes one invalid input: the model or a query file.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [query-file...]",
		Short: "Validate a model and queries without reading instance data",
		Long: `Validate query files against a meta-model without evaluating them.

The model is compiled from --model, or read from the database named by
--db. Each query is decoded, checked for supported shapes, and resolved
against the model; no instance data is read. With --model and no query
files, only the model is checked.

Exit codes:
  0 - Model and all queries valid
  1 - One or more inputs invalid
  2 - Command error (no model source, database errors, etc.)

Examples:
  odsq validate --model ./model
  odsq validate --model ./model queries/*.yaml
  odsq validate --db measurements.db parameters.yaml`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ModelDir, "model", "", "CUE model directory (default: model stored in --db)")

	return cmd
}

func runValidate(opts *ValidateOptions, queryFiles []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	if opts.ModelDir == "" && len(queryFiles) == 0 {
		return outputValidateError(formatter, ErrCodeGeneric, "nothing to validate: pass --model or query files")
	}

	var st *store.Store
	if opts.ModelDir != "" {
		m, err := schema.LoadModelDir(opts.ModelDir)
		if err != nil {
			var compileErr *schema.CompileError
			if !errors.As(err, &compileErr) {
				return outputValidateError(formatter, ErrCodeLoadFailed, err.Error())
			}
			return outputValidationErrors(formatter, ValidationResult{Errors: []ValidationError{{
				File:    opts.ModelDir,
				Code:    ErrCodeLoadFailed,
				Message: err.Error(),
				Line:    compileErrorLine(compileErr),
			}}})
		}
		formatter.VerboseLog("Compiled %d element(s) from %s", len(m.Elements), opts.ModelDir)

		if st, err = modelOnlyStore(ctx, m); err != nil {
			return outputValidateError(formatter, ErrCodeStoreFailed, err.Error())
		}
	} else {
		var err error
		if st, err = openModelStore(opts.RootOptions, formatter); err != nil {
			return err
		}
	}
	defer st.Close()

	m := st.Model()
	result := ValidationResult{Elements: len(m.Elements)}
	eng := engine.New(st, engine.WithLogger(opts.logger()))
	for _, file := range queryFiles {
		formatter.VerboseLog("Validating query: %s", file)
		if verr := validateQuery(ctx, eng, m, file); verr != nil {
			result.Errors = append(result.Errors, *verr)
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	result.Valid = true
	return outputValidateSuccess(formatter, result, len(queryFiles))
}

// modelOnlyStore loads m into a fresh in-memory database so queries can be
// resolved against it.
func modelOnlyStore(ctx context.Context, m *model.Model) (*store.Store, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, err
	}
	if err := st.Load(ctx, m, nil); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func validateQuery(ctx context.Context, eng *engine.Engine, m *model.Model, file string) *ValidationError {
	q, err := schema.ReadQuery(file, m)
	if err == nil {
		err = eng.Check(ctx, q)
	}
	if err == nil {
		return nil
	}
	return &ValidationError{
		File:    file,
		Code:    errorCode(err, ErrCodeLoadFailed),
		Message: err.Error(),
	}
}

// compileErrorLine extracts the line number of a model compile error.
func compileErrorLine(err *schema.CompileError) int {
	if err.Pos.IsValid() {
		return err.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult, queries int) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if queries == 0 {
		fmt.Fprintf(formatter.Writer, "✓ Model valid (%d elements)\n", result.Elements)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d queries valid\n", queries)
	return nil
}

// outputValidateError outputs a single command error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
