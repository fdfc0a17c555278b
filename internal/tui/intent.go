package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// IntentKind is what a line of input asks for
type IntentKind int

const (
	IntentSend IntentKind = iota
	IntentAttach
	IntentRemove
	IntentEdit
	IntentTry
	IntentNew
	IntentHistory
	IntentLoad
	IntentSave
	IntentCopy
	IntentClear
	IntentHelp
	IntentQuit
)

// Intent is parsed input. Index is zero-based; users type one-based numbers.
type Intent struct {
	Kind  IntentKind
	Text  string
	Index int
}

// Command help, in display order
var commandHelp = []struct {
	usage string
	desc  string
}{
	{"/attach <path>", "attach an image"},
	{"/remove <n>", "remove attachment n"},
	{"/edit <n>", "attach image n of the last reply"},
	{"/try <n>", "send suggestion n"},
	{"/new", "start a new chat"},
	{"/history", "browse saved chats"},
	{"/load <n>", "open saved chat n"},
	{"/save [dir]", "save images of the last reply"},
	{"/copy", "copy the last reply"},
	{"/clear", "delete all saved chats"},
	{"/help", "show commands"},
	{"/quit", "exit"},
}

// parseIntent maps a line of input to an intent. Lines that do not start
// with "/" are messages.
func parseIntent(input string) (Intent, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		if input == "exit" || input == "quit" {
			return Intent{Kind: IntentQuit}, nil
		}
		return Intent{Kind: IntentSend, Text: input}, nil
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/attach", "/a":
		if arg == "" {
			return Intent{}, fmt.Errorf("usage: /attach <path>")
		}
		return Intent{Kind: IntentAttach, Text: arg}, nil
	case "/remove", "/rm":
		return indexed(IntentRemove, name, arg)
	case "/edit":
		if arg == "" {
			return Intent{Kind: IntentEdit}, nil
		}
		return indexed(IntentEdit, name, arg)
	case "/try":
		return indexed(IntentTry, name, arg)
	case "/new":
		return Intent{Kind: IntentNew}, nil
	case "/history", "/h":
		return Intent{Kind: IntentHistory}, nil
	case "/load":
		return indexed(IntentLoad, name, arg)
	case "/save":
		return Intent{Kind: IntentSave, Text: arg}, nil
	case "/copy":
		return Intent{Kind: IntentCopy}, nil
	case "/clear":
		return Intent{Kind: IntentClear}, nil
	case "/help", "/?":
		return Intent{Kind: IntentHelp}, nil
	case "/quit", "/exit", "/q":
		return Intent{Kind: IntentQuit}, nil
	}

	return Intent{}, fmt.Errorf("unknown command %s (try /help)", name)
}

func indexed(kind IntentKind, name, arg string) (Intent, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return Intent{}, fmt.Errorf("usage: %s <n>, with n starting at 1", name)
	}
	return Intent{Kind: kind, Index: n - 1}, nil
}

// helpText lists the commands
func helpText() string {
	lines := make([]string, len(commandHelp))
	for i, c := range commandHelp {
		lines[i] = fmt.Sprintf("%-16s %s", c.usage, c.desc)
	}
	return strings.Join(lines, "\n")
}
