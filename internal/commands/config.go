package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/imagestudio/internal/config"
	"github.com/diogo/imagestudio/internal/models"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change settings",
		Long: `Show and change settings.

The API key and selected model live in the storage backend, next to chat
history. Everything else is read from ~/.imagestudio/config.json.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-key <key>",
		Short: "Store the OpenRouter API key",
		Long:  `Store the OpenRouter API key. Pass an empty string to remove it.`,
		Args:  cobra.ExactArgs(1),
		RunE:  a.runConfigSetKey,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-model <model>",
		Short: "Select the default model",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runConfigSetModel,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List known models",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigModels,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigInit,
	})

	return cmd
}

func (a *app) runConfigShow(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	path, _ := config.GetConfigPath()
	key := config.MaskKey(s.settings.APIKey)
	if s.settings.KeySource != "" {
		key += " (" + s.settings.KeySource + ")"
	}

	w := tabwriter.NewWriter(a.deps.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Config file:\t%s\n", path)
	_, _ = fmt.Fprintf(w, "Storage:\t%s\n", s.cfg.Storage.Backend)
	_, _ = fmt.Fprintf(w, "API key:\t%s\n", key)
	_, _ = fmt.Fprintf(w, "Model:\t%s\n", s.settings.Model)
	_, _ = fmt.Fprintf(w, "Max images:\t%d\n", s.cfg.MaxImages)
	_, _ = fmt.Fprintf(w, "Context window:\t%d\n", s.cfg.ContextWindow)
	_, _ = fmt.Fprintf(w, "Saved chats:\t%d\n", len(s.store.Catalog()))
	return w.Flush()
}

func (a *app) runConfigSetKey(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	key := strings.TrimSpace(args[0])
	if err := config.SaveAPIKey(cmd.Context(), s.kv, key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}

	if key == "" {
		fmt.Fprintln(a.deps.Stdout, "API key removed.")
		return nil
	}
	fmt.Fprintf(a.deps.Stdout, "API key saved: %s\n", config.MaskKey(key))
	return nil
}

func (a *app) runConfigSetModel(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	model := strings.TrimSpace(args[0])
	if err := config.SaveModel(cmd.Context(), s.kv, model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	if model == "" {
		model = models.DefaultModel
	}
	fmt.Fprintf(a.deps.Stdout, "Model set to %s\n", model)
	if !models.SupportsImageOutput(model) {
		fmt.Fprintln(a.deps.Stderr, "Warning: this model may not return images")
	}
	return nil
}

func (a *app) runConfigModels(cmd *cobra.Command, args []string) error {
	s, err := a.openSession(cmd.Context(), sessionOptions{coreOnly: true})
	if err != nil {
		return err
	}
	defer s.Close()

	w := tabwriter.NewWriter(a.deps.Stdout, 0, 0, 2, ' ', 0)
	for _, m := range models.AllModels() {
		marker := " "
		if m.Name == s.settings.Model {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %s\t%s\n", marker, m.Name, m.Description)
	}
	return w.Flush()
}

func (a *app) runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := config.SaveConfig(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(a.deps.Stdout, "Wrote %s\n", path)
	return nil
}
