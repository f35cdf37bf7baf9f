package tui

import "strings"

// Command is a parsed ":" command.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":    "quit",
	"h":    "help",
	"c":    "chat",
	"rm":   "delete",
	"n":    "notifications",
	"noti": "notifications",
}

// ParseCommand parses a command line without the leading ':'. Names are
// lower-cased and aliases resolved; arguments keep their case.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	name, args, _ := strings.Cut(input, " ")
	name = strings.ToLower(name)
	if full, ok := commandAliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}
