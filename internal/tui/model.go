package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/imagestudio/internal/api"
	"github.com/diogo/imagestudio/internal/chat"
	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/render"
)

// Animation tick message
type animationTickMsg time.Time

// Message types for the TUI
type (
	sendDoneMsg struct {
		outcome chat.Outcome
		err     error
	}
	attachDoneMsg struct {
		attachment models.Attachment
		err        error
	}
	saveDoneMsg struct {
		paths []string
		err   error
	}
	statusMsg struct {
		text string
		err  error
	}
)

// ImageSaver writes an image reference to disk
type ImageSaver interface {
	SaveImage(ctx context.Context, ref string, opts api.SaveOptions) (string, error)
}

// Prompts offered on the welcome screen
var suggestions = []string{
	"A watercolor fox sleeping under a maple tree",
	"A minimalist logo for a coffee shop called Bean There",
	"A cozy reading nook on a rainy evening, isometric style",
	"A retro travel poster for Lisbon",
}

type viewMode int

const (
	viewChat viewMode = iota
	viewHistory
)

// Model represents the TUI state
type Model struct {
	ctrl       *chat.Controller
	saver      ImageSaver
	saveDir    string
	copyText   func(string) error
	autoCopy   bool
	renderOpts render.Options

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	mode           viewMode
	historyCursor  int
	sending        bool
	pendingText    string
	pendingImages  int
	ready          bool
	status         string
	err            error
	animationFrame int

	// Dimensions
	width  int
	height int
}

// ModelOption configures the chat model
type ModelOption func(*Model)

// WithImageSaver enables /save into dir
func WithImageSaver(saver ImageSaver, dir string) ModelOption {
	return func(m *Model) {
		m.saver = saver
		m.saveDir = dir
	}
}

// WithRenderOptions sets the markdown options; the width follows the window
func WithRenderOptions(opts render.Options) ModelOption {
	return func(m *Model) {
		m.renderOpts = opts
	}
}

// WithClipboard replaces the clipboard writer
func WithClipboard(fn func(string) error) ModelOption {
	return func(m *Model) {
		m.copyText = fn
	}
}

// WithAutoCopy copies every successful reply to the clipboard
func WithAutoCopy(enabled bool) ModelOption {
	return func(m *Model) {
		m.autoCopy = enabled
	}
}

// NewChatModel creates a new chat TUI model
func NewChatModel(ctrl *chat.Controller, opts ...ModelOption) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe an image, or type /help..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		ctrl:       ctrl,
		copyText:   clipboard.WriteAll,
		renderOpts: render.DefaultOptions(),
		textarea:   ta,
		spinner:    s,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if m.mode == viewHistory {
			return m.updateHistory(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if !m.sending {
				return m, tea.Quit
			}

		case "enter":
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" && m.ctrl.Attachments().Len() == 0 {
				return m, nil
			}
			m.textarea.Reset()
			return m.handleInput(input)
		}

	case sendDoneMsg:
		m.sending = false
		m.pendingText = ""
		m.pendingImages = 0
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.applyOutcome(msg.outcome)
			if m.autoCopy && !msg.outcome.Failed {
				cmds = append(cmds, m.copyReply())
			}
		}
		m.updateViewport()
		m.viewport.GotoBottom()

	case attachDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = fmt.Sprintf("Attached %s (%s)", attachmentName(msg.attachment), m.ctrl.Attachments())
		}

	case saveDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "Saved " + strings.Join(msg.paths, ", ")
		}

	case statusMsg:
		m.status, m.err = msg.text, msg.err

	case spinner.TickMsg:
		if m.sending {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.sending {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only key presses reach the textarea so escape sequences don't leak in
	if _, ok := msg.(tea.KeyMsg); ok && !m.sending {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 3
	inputHeight := 6
	statusHeight := 2

	vpHeight := m.height - headerHeight - inputHeight - statusHeight
	if vpHeight < 5 {
		vpHeight = 5
	}
	contentWidth := m.width - 4

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
	m.renderOpts = m.renderOpts.WithWidth(contentWidth - 10)
	m.updateViewport()
}

// handleInput runs one line of input
func (m Model) handleInput(input string) (tea.Model, tea.Cmd) {
	intent, err := parseIntent(input)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.err = nil
	m.status = ""
	store := m.ctrl.Store()
	set := m.ctrl.Attachments()

	switch intent.Kind {
	case IntentQuit:
		return m, tea.Quit

	case IntentSend:
		return m.startSend(intent.Text)

	case IntentTry:
		if intent.Index >= len(suggestions) {
			m.err = fmt.Errorf("there are %d suggestions", len(suggestions))
			return m, nil
		}
		return m.startSend(suggestions[intent.Index])

	case IntentAttach:
		return m, attachImage(set, expandHome(intent.Text))

	case IntentRemove:
		if !set.RemoveAt(intent.Index) {
			m.err = fmt.Errorf("no attachment %d (%s)", intent.Index+1, set)
			return m, nil
		}
		m.status = "Removed attachment " + fmt.Sprint(intent.Index+1)

	case IntentEdit:
		ref, err := m.replyImage(intent.Index)
		if err != nil {
			m.err = err
			return m, nil
		}
		a, err := set.Promote(ref)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = fmt.Sprintf("Attached %s (%s)", attachmentName(a), set)

	case IntentNew:
		if m.sending {
			m.err = apperrors.ErrBusy
			return m, nil
		}
		store.StartNew()
		set.Clear()
		m.updateViewport()

	case IntentHistory:
		if m.sending {
			m.err = apperrors.ErrBusy
			return m, nil
		}
		m.mode = viewHistory
		m.historyCursor = 0

	case IntentLoad:
		if err := m.loadChat(intent.Index); err != nil {
			m.err = err
		}

	case IntentSave:
		replies := m.lastReply()
		if replies == nil || len(replies.Images) == 0 {
			m.err = errors.New("the last reply has no images")
			return m, nil
		}
		if m.saver == nil {
			m.err = errors.New("saving images is not available")
			return m, nil
		}
		dir := m.saveDir
		if intent.Text != "" {
			dir = expandHome(intent.Text)
		}
		return m, saveImages(m.saver, replies.Images, dir)

	case IntentCopy:
		return m, m.copyReply()

	case IntentClear:
		if m.sending {
			m.err = apperrors.ErrBusy
			return m, nil
		}
		if err := store.ClearHistory(context.Background()); err != nil {
			m.err = err
			return m, nil
		}
		store.StartNew()
		set.Clear()
		m.status = "Chat history cleared"
		m.updateViewport()

	case IntentHelp:
		m.status = helpText()
	}

	return m, nil
}

func (m Model) startSend(text string) (tea.Model, tea.Cmd) {
	if m.sending {
		m.err = apperrors.ErrBusy
		return m, nil
	}
	if !m.ctrl.HasCredential() {
		m.err = apperrors.ErrMissingCredential
		return m, nil
	}

	m.sending = true
	m.pendingText = text
	m.pendingImages = m.ctrl.Attachments().Len()
	m.animationFrame = 0
	m.updateViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		sendMessage(m.ctrl, text),
		m.spinner.Tick,
		animationTick(),
	)
}

func (m *Model) applyOutcome(out chat.Outcome) {
	switch {
	case out.Failed && out.Hint != "":
		m.status = "💡 " + out.Hint
	case out.Persist.Degraded():
		m.status = fmt.Sprintf("History storage is full; kept %d chats", len(out.Persist.Catalog))
	case out.Persist.Failed():
		m.status = "Could not save chat history; it will be retried on the next reply"
	}
}

func (m *Model) loadChat(index int) error {
	catalog := m.ctrl.Store().Catalog()
	if index < 0 || index >= len(catalog) {
		return fmt.Errorf("no saved chat %d (%d saved)", index+1, len(catalog))
	}
	if m.sending {
		return apperrors.ErrBusy
	}
	m.ctrl.Store().Load(catalog[index].ID)
	m.ctrl.Attachments().Clear()
	m.status = "Loaded " + catalog[index].Title
	m.updateViewport()
	m.viewport.GotoBottom()
	return nil
}

// lastReply returns the most recent assistant message, or nil
func (m Model) lastReply() *models.Message {
	messages := m.ctrl.Store().Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant {
			return &messages[i]
		}
	}
	return nil
}

func (m Model) replyImage(index int) (string, error) {
	reply := m.lastReply()
	if reply == nil || len(reply.Images) == 0 {
		return "", errors.New("the last reply has no images")
	}
	if index >= len(reply.Images) {
		return "", fmt.Errorf("the last reply has %d image(s)", len(reply.Images))
	}
	return reply.Images[index], nil
}

func (m Model) copyReply() tea.Cmd {
	reply := m.lastReply()
	if reply == nil || reply.Content == "" {
		return func() tea.Msg { return statusMsg{err: errors.New("nothing to copy")} }
	}
	text := reply.Content
	copyText := m.copyText
	return func() tea.Msg {
		if err := copyText(text); err != nil {
			return statusMsg{err: fmt.Errorf("failed to copy: %w", err)}
		}
		return statusMsg{text: "Copied reply to clipboard"}
	}
}

func sendMessage(ctrl *chat.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		out, err := ctrl.Send(context.Background(), text)
		return sendDoneMsg{outcome: out, err: err}
	}
}

type attacher interface {
	Add(ctx context.Context, path string) (models.Attachment, error)
}

func attachImage(set attacher, path string) tea.Cmd {
	return func() tea.Msg {
		a, err := set.Add(context.Background(), path)
		return attachDoneMsg{attachment: a, err: err}
	}
}

func saveImages(saver ImageSaver, refs []string, dir string) tea.Cmd {
	refs = append([]string(nil), refs...)
	return func() tea.Msg {
		var paths []string
		for _, ref := range refs {
			opts := api.SaveOptions{Directory: dir}
			path, err := saver.SaveImage(context.Background(), ref, opts)
			if err != nil {
				return saveDoneMsg{paths: paths, err: err}
			}
			paths = append(paths, path)
		}
		return saveDoneMsg{paths: paths}
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func attachmentName(a models.Attachment) string {
	if a.SourcePath == "" {
		return "generated image"
	}
	return filepath.Base(a.SourcePath)
}

// RunChat starts the chat TUI
func RunChat(ctrl *chat.Controller, opts ...ModelOption) error {
	p := tea.NewProgram(
		NewChatModel(ctrl, opts...),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
