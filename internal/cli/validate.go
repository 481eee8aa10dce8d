package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/calcgraph/internal/model"
)

// ValidationResult holds validation results for JSON output.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Model string           `json:"model,omitempty"`
	Nodes int              `json:"nodes,omitempty"`
	Error *ValidationError `json:"error,omitempty"`
}

// ValidationError is one compile failure with its source location.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model.cue>",
		Short: "Compile a model file and report errors",
		Long: `Compile a CUE model file without evaluating anything.

Checks the model structure, node kinds, operations, and that every calc
input references a defined node.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	m, err := model.CompileFile(path)
	if err != nil {
		var ce *model.CompileError
		if errors.As(err, &ce) {
			ve := &ValidationError{
				Field:   ce.Field,
				Message: ce.Message,
			}
			if ce.Pos.IsValid() {
				ve.Line = ce.Pos.Line()
			}
			return outputValidationError(formatter, ve)
		}
		_ = formatter.Error("model_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	formatter.VerboseLog("compiled model %q from %s", m.Name, path)

	if formatter.Format == "json" {
		if err := formatter.Success(ValidationResult{
			Valid: true,
			Model: m.Name,
			Nodes: len(m.Nodes),
		}); err != nil {
			return err
		}
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✓ model %q valid (%d nodes)\n", m.Name, len(m.Nodes))
	return nil
}

func outputValidationError(formatter *OutputFormatter, ve *ValidationError) error {
	if formatter.Format == "json" {
		_ = formatter.Error("compile_error", ve.Message, ve)
		return NewExitError(ExitFailure, "validation failed")
	}

	fmt.Fprintln(formatter.Writer, "✗ validation failed")
	if ve.Line > 0 {
		fmt.Fprintf(formatter.Writer, "  line %d\n", ve.Line)
	}
	if ve.Field != "" {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ve.Field, ve.Message)
	} else {
		fmt.Fprintf(formatter.Writer, "  %s\n", ve.Message)
	}
	return NewExitError(ExitFailure, "validation failed")
}
