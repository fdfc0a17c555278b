package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/models"
)

func (a *app) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage chat history",
		Long: `View and manage saved chats. Images are not kept in history;
messages that had them show a placeholder note instead.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved chats",
		Args:  cobra.NoArgs,
		RunE:  a.runHistoryList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved chat",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runHistoryShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved chat",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runHistoryDelete,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all saved chats",
		Args:  cobra.NoArgs,
		RunE:  a.runHistoryClear,
	})
	cmd.AddCommand(a.newHistoryExportCmd())

	return cmd
}

func (a *app) runHistoryList(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	catalog := s.store.Catalog()
	out := a.deps.Stdout
	if len(catalog) == 0 {
		fmt.Fprintln(out, "No saved chats.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t-------")

	for _, c := range catalog {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			c.ID, c.Title, len(c.Messages), history.FormatRelativeTime(time.UnixMilli(c.CreatedAt)))
	}

	return w.Flush()
}

func (a *app) runHistoryShow(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	c, ok := s.store.Chat(args[0])
	if !ok {
		return fmt.Errorf("chat %s: %w", args[0], apperrors.ErrNotFound)
	}

	out := a.deps.Stdout
	fmt.Fprintf(out, "ID: %s\n", c.ID)
	fmt.Fprintf(out, "Title: %s\n", c.Title)
	fmt.Fprintf(out, "Created: %s\n", time.UnixMilli(c.CreatedAt).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Messages: %d\n", len(c.Messages))
	fmt.Fprintln(out)

	for i, msg := range history.ReifyAll(c.Messages) {
		role := "You"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(out, "[%d] %s:\n", i+1, role)

		if msg.Reasoning != "" {
			fmt.Fprintf(out, "  💭 %s\n", truncate(msg.Reasoning, 200))
		}
		fmt.Fprintf(out, "  %s\n\n", strings.ReplaceAll(truncate(msg.Content, 500), "\n", "\n  "))
	}

	return nil
}

func (a *app) runHistoryDelete(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}

	fmt.Fprintf(a.deps.Stdout, "Deleted chat: %s\n", args[0])
	return nil
}

func (a *app) runHistoryClear(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.ClearHistory(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintln(a.deps.Stdout, "All chats deleted.")
	return nil
}

func (a *app) newHistoryExportCmd() *cobra.Command {
	var (
		format    string
		output    string
		reasoning bool
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a saved chat as markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := history.ParseExportFormat(format)
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
			if err != nil {
				return err
			}
			defer s.Close()

			c, ok := s.store.Chat(args[0])
			if !ok {
				return fmt.Errorf("chat %s: %w", args[0], apperrors.ErrNotFound)
			}

			data, err := history.Export(c, history.ExportOptions{Format: f, IncludeReasoning: reasoning})
			if err != nil {
				return err
			}

			if output == "" {
				_, err = a.deps.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(a.deps.Stderr, "Exported %s to %s\n", c.ID, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "Export format: markdown or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&reasoning, "reasoning", true, "Include model reasoning (markdown only)")
	return cmd
}

// truncate shortens s to n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
