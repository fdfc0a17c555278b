// Package commands provides CLI commands for imagestudio.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version info (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// errSendFailed marks a send whose failure was already printed
var errSendFailed = errors.New("send failed")

// app carries the dependencies and persistent flags of one invocation
type app struct {
	deps    *Dependencies
	model   string
	verbose bool
}

// sendFlags are the root command's flags
type sendFlags struct {
	images     []string
	output     string
	file       string
	saveImages string
	chatID     string
	raw        bool
}

// NewRootCmd builds the command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}
	a := &app{deps: deps}
	var flags sendFlags

	cmd := &cobra.Command{
		Use:   "imagestudio [prompt]",
		Short: "Generate and edit images with OpenRouter models",
		Long: `imagestudio is a terminal client for image-capable chat models on
OpenRouter. Send a prompt with optional reference images, keep the
conversation going, and browse saved chats.

Examples:
  imagestudio config set-key sk-or-...        Store your API key
  imagestudio "a watercolor fox"              Generate from a prompt
  imagestudio "make it night" -i fox.png      Edit an image
  imagestudio "a logo" --save-images ./out    Save generated images
  imagestudio chat                            Start interactive chat
  cat prompt.md | imagestudio                 Read prompt from stdin`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "imagestudio %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := a.readPrompt(flags, args)
			if err != nil {
				return err
			}
			if !ok && len(flags.images) == 0 {
				return cmd.Help()
			}
			return a.runSend(cmd.Context(), prompt, flags)
		},
	}

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.PersistentFlags().StringVarP(&a.model, "model", "m", "", "Model to use (e.g., google/gemini-2.5-flash-image)")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringArrayVarP(&flags.images, "image", "i", nil, "Image to include (repeatable)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Save the reply text to file")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().StringVar(&flags.saveImages, "save-images", "", "Save generated images to directory")
	cmd.Flags().StringVar(&flags.chatID, "chat", "", "Continue a saved chat by ID")
	cmd.Flags().BoolVar(&flags.raw, "raw", false, "Print only the reply text")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(a.newChatCmd())
	cmd.AddCommand(a.newHistoryCmd())
	cmd.AddCommand(a.newConfigCmd())

	return cmd
}

// readPrompt picks the prompt from --file, the argument or piped stdin, in that order
func (a *app) readPrompt(flags sendFlags, args []string) (string, bool, error) {
	if flags.file != "" {
		data, err := os.ReadFile(flags.file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}

	if a.deps.StdinIsPipe != nil && a.deps.StdinIsPipe() {
		data, err := io.ReadAll(a.deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		prompt := strings.TrimSpace(string(data))
		return prompt, prompt != "", nil
	}

	return "", false, nil
}

// Execute runs the root command
func Execute() {
	deps := NewDependencies()
	if err := NewRootCmd(deps).Execute(); err != nil {
		if !errors.Is(err, errSendFailed) {
			fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Error"))
		}
		os.Exit(1)
	}
}
