package handler

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// Command is a parsed inbound bot command: a lower-cased verb and at most
// one argument.
type Command struct {
	Verb string
	Arg  string
}

// ParseCommand splits a message into verb and argument. Quoting is
// honored; on unbalanced quotes the text degrades to whitespace
// splitting. Everything after the verb is one argument, so a name with
// spaces stays intact either way. Returns false for anything that is
// not a slash command.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	parts, err := shellquote.Split(text)
	if err != nil {
		parts = strings.Fields(text)
	}
	if len(parts) == 0 {
		return Command{}, false
	}

	cmd := Command{Verb: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Arg = strings.Join(parts[1:], " ")
	}
	return cmd, true
}

// ParseServerArg splits an optional "provider:server" prefix off an
// argument. The provider token is lower-cased and trimmed. When either
// side of the colon is empty the whole argument counts as a bare server
// name, not an error.
func ParseServerArg(arg string) (providerName, serverName string) {
	if i := strings.Index(arg, ":"); i >= 0 {
		p := strings.ToLower(strings.TrimSpace(arg[:i]))
		s := strings.TrimSpace(arg[i+1:])
		if p != "" && s != "" {
			return p, s
		}
	}
	return "", strings.TrimSpace(arg)
}
