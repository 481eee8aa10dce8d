package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/calcgraph/internal/ident"
	"github.com/fenwick-labs/calcgraph/internal/model"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Sets      []string // name=value variable assignments applied before evaluation
	Overrides []string // name=value overrides applied before evaluation
}

// EvalResult is the JSON payload for a successful evaluation.
type EvalResult struct {
	Model string   `json:"model"`
	Node  string   `json:"node"`
	Args  []string `json:"args,omitempty"`
	Value any      `json:"value"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <model.cue> <node> [args...]",
		Short: "Evaluate one identity from a model",
		Long: `Build an engine from a CUE model and evaluate a single identity.

Arguments after the node name become identity arguments; each parses as an
integer, then a float, then a bool, and finally falls back to a string.

Variables can be set and identities overridden before evaluation:

  calcgraph eval rates.cue multi_year 5 --set spread=0.01
  calcgraph eval rates.cue nominal_rate --override real_rate=0.1`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "set a variable before evaluating (name=value, repeatable)")
	cmd.Flags().StringArrayVar(&opts.Overrides, "override", nil, "override an identity before evaluating (name=value, repeatable)")

	return cmd
}

func runEval(opts *EvalOptions, modelPath, nodeName string, rawArgs []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	configureLogging(opts.Verbose)

	m, err := model.CompileFile(modelPath)
	if err != nil {
		_ = formatter.Error("compile_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile model", err)
	}

	eng, err := model.Build(m)
	if err != nil {
		_ = formatter.Error("build_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	for _, assignment := range opts.Sets {
		name, value, err := parseAssignment(assignment)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --set", err)
		}
		if err := eng.SetValue(name, value); err != nil {
			_ = formatter.Error("set_error", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to set variable", err)
		}
		formatter.VerboseLog("set %s = %v", name, value)
	}

	for _, assignment := range opts.Overrides {
		name, value, err := parseAssignment(assignment)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --override", err)
		}
		eng.Override(name, value)
		formatter.VerboseLog("override %s = %v", name, value)
	}

	args := make([]ident.Value, len(rawArgs))
	for i, raw := range rawArgs {
		args[i] = parseIdentArg(raw)
	}

	value, err := eng.Evaluate(nodeName, args...)
	if err != nil {
		_ = formatter.Error("eval_error", err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(EvalResult{
			Model: m.Name,
			Node:  nodeName,
			Args:  rawArgs,
			Value: value,
		})
	}

	fmt.Fprintf(formatter.Writer, "%s = %v\n", ident.New(nodeName, args...), value)
	return nil
}

// parseIdentArg converts a CLI argument to an identity argument. Integers
// win over floats so `5` and `5.0` stay distinct identities, matching the
// scenario file convention.
func parseIdentArg(raw string) ident.Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ident.Int(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return ident.Float(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return ident.Bool(b)
	}
	return ident.String(raw)
}

// parseAssignment splits a name=value flag. Values parse like node values
// in a model file: numbers become float64, then bool, then string.
func parseAssignment(assignment string) (string, any, error) {
	name, raw, found := strings.Cut(assignment, "=")
	if !found || name == "" {
		return "", nil, fmt.Errorf("expected name=value, got %q", assignment)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return name, f, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return name, b, nil
	}
	return name, raw, nil
}

// configureLogging routes engine debug logs to stderr when verbose.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
