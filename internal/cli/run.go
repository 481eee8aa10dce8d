package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/calcgraph/internal/harness"
	"github.com/fenwick-labs/calcgraph/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string // optional SQLite journal path
}

// RunResult is the JSON payload for a scenario run.
type RunResult struct {
	Scenario string   `json:"scenario"`
	Pass     bool     `json:"pass"`
	Steps    int      `json:"steps"`
	Events   int      `json:"events"`
	Session  string   `json:"session,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario file against its model",
		Long: `Run a scenario file: build a fresh engine from the scenario's model,
execute the steps in order, and check every expectation.

With --journal, the run's full event trace is appended to a SQLite journal
under a new session labeled with the scenario name:

  calcgraph run scenario.yaml --journal runs.db
  calcgraph trace --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "append the event trace to a SQLite journal at this path")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	configureLogging(opts.Verbose)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error("scenario_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		_ = formatter.Error("run_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	session := ""
	if opts.Journal != "" {
		session, err = journalTrace(opts.Journal, scenario, result)
		if err != nil {
			_ = formatter.Error("journal_error", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to journal trace", err)
		}
		formatter.VerboseLog("journaled %d events to %s (session %s)", len(result.Trace), opts.Journal, session)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(RunResult{
			Scenario: scenario.Name,
			Pass:     result.Pass,
			Steps:    len(scenario.Steps),
			Events:   len(result.Trace),
			Session:  session,
			Errors:   result.Errors,
		}); err != nil {
			return err
		}
		if !result.Pass {
			return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
		}
		return nil
	}

	if opts.Verbose {
		_, _ = formatter.GetErrWriter().Write(harness.RenderTrace(scenario.Name, result.Trace))
	}

	if !result.Pass {
		fmt.Fprintf(formatter.Writer, "✗ scenario %q failed (%d steps, %d events)\n",
			scenario.Name, len(scenario.Steps), len(result.Trace))
		for _, msg := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", msg)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}

	fmt.Fprintf(formatter.Writer, "✓ scenario %q passed (%d steps, %d events)\n",
		scenario.Name, len(scenario.Steps), len(result.Trace))
	if session != "" {
		fmt.Fprintf(formatter.Writer, "  journal session %s\n", session)
	}
	return nil
}

// journalTrace replays the run's in-memory trace into a SQLite journal.
// Events keep their original logical clock stamps.
func journalTrace(path string, scenario *harness.Scenario, result *harness.Result) (string, error) {
	j, err := journal.Open(path, scenario.Name)
	if err != nil {
		return "", err
	}
	defer j.Close()

	for _, ev := range result.Trace {
		j.Record(ev)
	}
	return j.Session(), nil
}
