package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/imagestudio/internal/api"
	"github.com/diogo/imagestudio/internal/attachments"
	"github.com/diogo/imagestudio/internal/chat"
	"github.com/diogo/imagestudio/internal/conversation"
	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/storage"
)

const catReply = `{"choices":[{"message":{"content":"Here is a cat","images":[{"type":"image_url","image_url":{"url":"data:image/png;base64,Q0FU"}}]}}]}`

type fakeSaver struct {
	refs []string
	dir  string
}

func (f *fakeSaver) SaveImage(_ context.Context, ref string, opts api.SaveOptions) (string, error) {
	f.refs = append(f.refs, ref)
	f.dir = opts.Directory
	return filepath.Join(opts.Directory, "image.png"), nil
}

func newTestModel(t *testing.T, apiKey string, opts ...ModelOption) (Model, *api.MockClient) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := conversation.NewStore(context.Background(),
		history.NewPersister(storage.NewMemoryStore(), history.WithLogger(logger)),
		conversation.WithLogger(logger))
	set := attachments.NewSet(models.MaxImages, attachments.WithDecoder(
		func(ctx context.Context, path string) (string, error) {
			return "data:image/png;base64,SU1H", nil
		}))
	transport := &api.MockClient{Body: []byte(catReply)}
	ctrl := chat.NewController(transport, store, set, chat.WithAPIKey(apiKey), chat.WithLogger(logger))

	m := NewChatModel(ctrl, opts...)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model), transport
}

// typeLine enters a line of input and presses enter
func typeLine(m Model, line string) (Model, tea.Cmd) {
	m.textarea.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// send runs a full send synchronously
func send(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = typeLine(m, text)
	if !m.sending {
		t.Fatalf("model is not sending after enter (err: %v)", m.err)
	}
	next, _ := m.Update(sendMessage(m.ctrl, text)())
	return next.(Model)
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_WelcomeScreen(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")

	view := m.View()
	if !strings.Contains(view, "What would you like to create?") {
		t.Error("empty conversation should show the welcome screen")
	}
	if !strings.Contains(view, suggestions[0]) {
		t.Error("welcome screen should list suggestions")
	}
	if strings.Contains(view, "No API key set") {
		t.Error("key warning shown although a key is set")
	}

	noKey, _ := newTestModel(t, "")
	if !strings.Contains(noKey.View(), "No API key set") {
		t.Error("missing key warning not shown")
	}
}

func TestModel_NotReady(t *testing.T) {
	m, _ := newTestModel(t, "k")
	m.ready = false
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("View() before the first resize should show the loading text")
	}
}

func TestModel_SendFlow(t *testing.T) {
	m, transport := newTestModel(t, "sk-or-test")

	m = send(t, m, "draw a cat")

	if m.sending {
		t.Error("still sending after the reply arrived")
	}
	if transport.CallCount() != 1 {
		t.Errorf("transport called %d times, want 1", transport.CallCount())
	}
	if got := m.ctrl.Store().Len(); got != 2 {
		t.Fatalf("store has %d messages, want 2", got)
	}
	if len(m.ctrl.Store().Catalog()) != 1 {
		t.Error("conversation was not saved")
	}

	// Rendered markdown may carry ANSI codes between words
	content := m.viewport.View()
	if !strings.Contains(content, "draw a cat") || !strings.Contains(content, "Here") {
		t.Errorf("viewport missing the exchange:\n%s", content)
	}
}

func TestModel_MissingCredential(t *testing.T) {
	m, transport := newTestModel(t, "")

	m, cmd := typeLine(m, "draw a cat")

	if !errors.Is(m.err, apperrors.ErrMissingCredential) {
		t.Errorf("err = %v, want ErrMissingCredential", m.err)
	}
	if m.sending {
		t.Error("should not be sending")
	}
	if cmd != nil {
		t.Error("no command should run")
	}
	if transport.CallCount() != 0 {
		t.Error("transport should not be called")
	}
	if !strings.Contains(m.View(), "config set-key") {
		t.Error("error view should include the hint")
	}
}

func TestModel_BusyBlocksSecondSend(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")

	m, _ = typeLine(m, "first")
	m, _ = handle(m, "second")

	if !errors.Is(m.err, apperrors.ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", m.err)
	}
}

func handle(m Model, input string) (Model, tea.Cmd) {
	next, cmd := m.handleInput(input)
	return next.(Model), cmd
}

func TestModel_AttachAndRemove(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")

	m, cmd := handle(m, "/attach /tmp/cat.png")
	if cmd == nil {
		t.Fatal("/attach should return a command")
	}
	m = update(m, cmd())

	if m.ctrl.Attachments().Len() != 1 {
		t.Fatalf("attachments = %d, want 1", m.ctrl.Attachments().Len())
	}
	if !strings.Contains(m.status, "cat.png") {
		t.Errorf("status = %q", m.status)
	}
	if !strings.Contains(m.View(), "1/10 images") {
		t.Error("attachment bar not shown")
	}

	m, _ = handle(m, "/remove 2")
	if m.err == nil {
		t.Error("removing a missing attachment should fail")
	}

	m, _ = handle(m, "/remove 1")
	if m.err != nil || m.ctrl.Attachments().Len() != 0 {
		t.Errorf("remove failed: err=%v len=%d", m.err, m.ctrl.Attachments().Len())
	}
}

func TestModel_ImageOnlySend(t *testing.T) {
	m, transport := newTestModel(t, "sk-or-test")

	m, cmd := handle(m, "/attach /tmp/cat.png")
	m = update(m, cmd())

	m = send(t, m, "")
	if transport.CallCount() != 1 {
		t.Fatal("image-only message was not sent")
	}
	if m.ctrl.Attachments().Len() != 0 {
		t.Error("attachments should be cleared after send")
	}
}

func TestModel_EditPromotesReplyImage(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")

	m, _ = handle(m, "/edit")
	if m.err == nil {
		t.Error("/edit without a reply should fail")
	}

	m = send(t, m, "draw a cat")
	m, _ = handle(m, "/edit")
	if m.err != nil {
		t.Fatalf("/edit failed: %v", m.err)
	}

	snap := m.ctrl.Attachments().Snapshot()
	if len(snap) != 1 || snap[0].Data != "data:image/png;base64,Q0FU" {
		t.Errorf("attachments = %+v, want the generated image", snap)
	}

	m, _ = handle(m, "/edit 2")
	if m.err == nil {
		t.Error("/edit 2 should fail with one image")
	}
}

func TestModel_NewChat(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")
	m = send(t, m, "draw a cat")

	m, _ = handle(m, "/new")

	if m.ctrl.Store().Len() != 0 {
		t.Error("/new should empty the conversation")
	}
	if m.ctrl.Store().ActiveID() != "" {
		t.Error("/new should clear the active chat")
	}
	if len(m.ctrl.Store().Catalog()) != 1 {
		t.Error("/new must not delete history")
	}
}

func TestModel_HistoryView(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")
	m = send(t, m, "draw a cat")
	m, _ = handle(m, "/new")
	m = send(t, m, "draw a dog")

	m, _ = handle(m, "/history")
	if m.mode != viewHistory {
		t.Fatal("/history should open the history view")
	}
	view := m.View()
	if !strings.Contains(view, "draw a cat") || !strings.Contains(view, "draw a dog") {
		t.Errorf("history view missing chats:\n%s", view)
	}

	// Catalog is most recent first; move to the cat chat and open it
	m = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.mode != viewChat {
		t.Error("enter should return to the chat view")
	}
	msgs := m.ctrl.Store().Messages()
	if len(msgs) != 2 || msgs[0].Content != "draw a cat" {
		t.Errorf("loaded messages = %+v", msgs)
	}
}

func TestModel_HistoryDelete(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")
	m = send(t, m, "draw a cat")

	m, _ = handle(m, "/history")
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})

	if len(m.ctrl.Store().Catalog()) != 0 {
		t.Error("d should delete the selected chat")
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != viewChat {
		t.Error("esc should leave the history view")
	}
}

func TestModel_LoadByNumber(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")

	m, _ = handle(m, "/load 1")
	if m.err == nil {
		t.Error("/load with empty history should fail")
	}

	m = send(t, m, "draw a cat")
	m, _ = handle(m, "/new")
	m, _ = handle(m, "/load 1")
	if m.err != nil {
		t.Fatalf("/load 1 failed: %v", m.err)
	}
	if m.ctrl.Store().Len() != 2 {
		t.Error("chat not loaded")
	}
}

func TestModel_ClearHistory(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")
	m = send(t, m, "draw a cat")

	m, _ = handle(m, "/clear")

	if len(m.ctrl.Store().Catalog()) != 0 || m.ctrl.Store().Len() != 0 {
		t.Error("/clear should remove history and start a new chat")
	}
}

func TestModel_Copy(t *testing.T) {
	var copied string
	m, _ := newTestModel(t, "sk-or-test", WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m, cmd := handle(m, "/copy")
	m = update(m, cmd())
	if m.err == nil {
		t.Error("/copy with no reply should fail")
	}

	m = send(t, m, "draw a cat")
	m, cmd = handle(m, "/copy")
	m = update(m, cmd())

	if copied != "Here is a cat" {
		t.Errorf("copied %q", copied)
	}
	if m.err != nil {
		t.Errorf("err = %v", m.err)
	}
}

func TestModel_Save(t *testing.T) {
	saver := &fakeSaver{}
	m, _ := newTestModel(t, "sk-or-test", WithImageSaver(saver, "/downloads"))

	m = send(t, m, "draw a cat")
	m, cmd := handle(m, "/save /elsewhere")
	if cmd == nil {
		t.Fatalf("/save returned no command (err: %v)", m.err)
	}
	m = update(m, cmd())

	if len(saver.refs) != 1 || saver.dir != "/elsewhere" {
		t.Errorf("saver got refs=%v dir=%s", saver.refs, saver.dir)
	}
	if !strings.Contains(m.status, "image.png") {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_UnknownCommand(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")
	m, _ = handle(m, "/bogus")
	if m.err == nil {
		t.Error("unknown command should set an error")
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t, "sk-or-test")
	_, cmd := handle(m, "/quit")
	if cmd == nil {
		t.Fatal("/quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("/quit should quit")
	}
}

func TestFormatError(t *testing.T) {
	if FormatError(nil) != "" {
		t.Error("FormatError(nil) should be empty")
	}

	out := FormatError(apperrors.NewAPIError(401, models.EndpointCompletion, "bad key sk-or-v1-abc"))
	if strings.Contains(out, "sk-or-v1-abc") {
		t.Error("FormatError leaked the key")
	}
	if !strings.Contains(out, "401") {
		t.Error("FormatError should show the status")
	}
	if !strings.Contains(out, "rejected your key") {
		t.Error("FormatError should include the auth hint")
	}
}
