package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/examwatch/examwatch/internal/config"
	"github.com/examwatch/examwatch/internal/database"
	"github.com/examwatch/examwatch/internal/model"
	"github.com/examwatch/examwatch/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit bounds the session listing so a long-lived journal
// does not flood the terminal.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command inspects sessions stored in the journal by earlier watches.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Inspect stored watch sessions",
		Long: `History lists and shows watch sessions stored in the journal.

Without arguments it lists recent sessions across all exam pages. With a
session ID it prints the full report for that session, including the event
timeline. Use --url to restrict the listing to one exam page.

Sessions are stored automatically by 'examwatch watch' and 'examwatch demo'.

Examples:
  # List recent sessions
  examwatch history

  # List sessions for one exam page
  examwatch history --url https://exam.example.com/final

  # Show the full report for a session
  examwatch history 550e8400-e29b-41d4-a716-446655440000

  # Show a stored session as JSON
  examwatch history --json 550e8400-e29b-41d4-a716-446655440000`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().StringP("url", "u", "",
		"List sessions for the specified exam page only")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of sessions to list")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	// Validate flags before opening the journal.
	// This prevents database lock issues when validation fails.
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	targetURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// Use XDG data directory for the journal
	dbDir := config.XDGDataDir()

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open session journal: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// A session ID argument shows that session's full report
	if len(args) == 1 {
		return showSession(ctx, db, args[0], jsonOutput, markdownOutput)
	}

	// --url narrows the listing to one exam page
	if targetURL != "" {
		return listPageSessions(ctx, db, targetURL, limit)
	}

	return listAllSessions(ctx, db, limit)
}

// listAllSessions lists stored sessions across all exam pages.
func listAllSessions(ctx context.Context, db *database.SessionDB, limit int) error {
	sessions, err := db.ListSessions(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No watch sessions found in the journal.")
		fmt.Println("\nUse 'examwatch watch <url>' to watch an exam page, or 'examwatch demo' to try it out.")
		return nil
	}

	fmt.Printf("Watch sessions (%d):\n\n", len(sessions))
	printSessionTable(sessions)

	fmt.Println("\nUse 'examwatch history <session-id>' to see a session's full report.")
	fmt.Println("Use 'examwatch history --url <url>' to list sessions for one exam page.")
	return nil
}

// listPageSessions lists stored sessions for one exam page, most recent
// first.
func listPageSessions(ctx context.Context, db *database.SessionDB, targetURL string, limit int) error {
	sessions, err := db.SessionHistory(ctx, targetURL)
	if err != nil {
		return fmt.Errorf("failed to get session history: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Printf("No watch sessions found for %s\n", targetURL)
		fmt.Println("\nUse 'examwatch watch' to watch this page.")
		return nil
	}

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	fmt.Printf("Watch sessions for %s (%d):\n\n", targetURL, len(sessions))
	printSessionTable(toMetadata(sessions))

	fmt.Println("\nUse 'examwatch history <session-id>' to see a session's full report.")
	return nil
}

// showSession prints the full report for one stored session.
func showSession(ctx context.Context, db *database.SessionDB, sessionID string, jsonOutput, markdownOutput bool) error {
	session, err := db.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %s not found (use 'examwatch history' to list sessions)", sessionID)
	}

	switch {
	case jsonOutput:
		writer := report.NewFullJSONWriter(os.Stdout, getVersion(), report.WithPrettyPrint())
		_, err = writer.Write(session)
	case markdownOutput:
		writer := report.NewMarkdownWriter(os.Stdout)
		_, err = writer.Write(session)
	default:
		writer := report.NewSimpleWriter(os.Stdout, report.WithShowEmpty(true), report.WithVerbose(true))
		_, err = writer.Write(session)
	}
	return err
}

// printSessionTable prints session summaries in a fixed-width table.
func printSessionTable(sessions []database.SessionMetadata) {
	fmt.Printf("  %-36s  %-19s  %6s  %8s  %s\n", "Session", "Started", "Events", "Devtools", "Status")
	fmt.Println("  " + strings.Repeat("-", 84))

	for _, meta := range sessions {
		fmt.Printf("  %-36s  %-19s  %6d  %8d  %s\n",
			meta.ID,
			meta.StartedAt.Format("2006-01-02 15:04:05"),
			meta.SuspiciousEvents(),
			meta.DevtoolsDetections,
			sessionStatus(meta),
		)
	}
}

// sessionStatus summarizes how a stored session ended.
func sessionStatus(meta database.SessionMetadata) string {
	switch {
	case meta.Interrupted:
		return "interrupted"
	case meta.EndedAt.IsZero():
		return "in progress"
	default:
		return "complete"
	}
}

// toMetadata converts stored sessions to display summaries.
func toMetadata(sessions []*model.Session) []database.SessionMetadata {
	metas := make([]database.SessionMetadata, 0, len(sessions))
	for _, s := range sessions {
		metas = append(metas, database.SessionMetadata{
			ID:                 s.ID,
			TargetURL:          s.TargetURL,
			PageTitle:          s.PageTitle,
			StartedAt:          s.StartedAt,
			EndedAt:            s.EndedAt,
			TabSwitches:        s.TabSwitches,
			FocusLosses:        s.FocusLosses,
			DevtoolsDetections: s.DevtoolsDetections,
			Interrupted:        s.Interrupted,
		})
	}
	return metas
}
