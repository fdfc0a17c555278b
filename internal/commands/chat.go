package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/imagestudio/internal/api"
	"github.com/diogo/imagestudio/internal/config"
	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/render"
	"github.com/diogo/imagestudio/internal/tui"
)

func (a *app) newChatCmd() *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with an image model.

Type a prompt and press Enter to send it. Commands start with "/":
/attach <path> adds a reference image, /edit reuses the last generated
image, /history browses saved chats. Type /help for the full list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, chatID)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "Open a saved chat by ID")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, chatID string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{fileLogOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if chatID != "" && !s.store.Load(chatID) {
		return fmt.Errorf("chat %s: %w", chatID, apperrors.ErrNotFound)
	}

	downloadDir, err := config.GetDownloadDir(s.cfg)
	if err != nil {
		downloadDir = api.DefaultSaveOptions().Directory
	}

	opts := []tui.ModelOption{
		tui.WithImageSaver(s.client, downloadDir),
		tui.WithRenderOptions(render.OptionsFromConfig(s.cfg.Markdown, getTerminalWidth())),
		tui.WithAutoCopy(s.cfg.CopyToClipboard),
	}
	if a.deps.CopyToClipboard != nil {
		opts = append(opts, tui.WithClipboard(a.deps.CopyToClipboard))
	}

	return a.deps.TUI.RunChat(s.controller, opts...)
}
