package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/calcgraph/internal/harness"
	"github.com/fenwick-labs/calcgraph/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - dump one session's events
}

// SessionSummary is the JSON shape for a journal session listing.
type SessionSummary struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	CreatedAt string `json:"created_at"`
	Events    int    `json:"events"`
}

// TraceEvent is the JSON shape for one journaled engine event.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	Identity string `json:"identity"`
	Value    string `json:"value,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a journal database",
		Long: `Inspect a journal written by run --journal.

Without --session, lists all sessions. With --session, dumps that
session's events in logical clock order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to dump")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	db, err := journal.OpenRead(opts.Database)
	if err != nil {
		_ = formatter.Error("journal_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer db.Close()

	if opts.Session == "" {
		return listSessions(formatter, db)
	}
	return dumpSession(formatter, db, opts.Session)
}

func listSessions(formatter *OutputFormatter, db *sql.DB) error {
	sessions, err := journal.Sessions(db)
	if err != nil {
		_ = formatter.Error("journal_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if formatter.Format == "json" {
		out := make([]SessionSummary, len(sessions))
		for i, s := range sessions {
			out[i] = SessionSummary{ID: s.ID, Label: s.Label, CreatedAt: s.CreatedAt, Events: s.Events}
		}
		return formatter.Success(out)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(formatter.Writer, "no sessions")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(formatter.Writer, "%s  %-20s %s  %d events\n", s.ID, s.Label, s.CreatedAt, s.Events)
	}
	return nil
}

func dumpSession(formatter *OutputFormatter, db *sql.DB, session string) error {
	events, err := journal.Events(db, session)
	if err != nil {
		_ = formatter.Error("journal_error", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if len(events) == 0 {
		_ = formatter.Error("journal_error", fmt.Sprintf("no events for session %s", session), nil)
		return NewExitError(ExitCommandError, "no events for session")
	}

	if formatter.Format == "json" {
		out := make([]TraceEvent, len(events))
		for i, ev := range events {
			out[i] = TraceEvent{Seq: ev.Seq, Kind: string(ev.Kind), Identity: ev.Identity, Value: ev.Value}
		}
		return formatter.Success(out)
	}

	_, err = formatter.Writer.Write(harness.RenderTrace(session, events))
	return err
}
