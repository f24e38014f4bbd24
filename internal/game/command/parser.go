package command

import (
	"strings"
	"unicode"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command. Double quotes group
	// words, so names containing spaces stay one argument.
	Args []string
	// RawArgs is the raw text after the command.
	RawArgs string
}

// Parse splits a text line into a command and arguments.
//
// Precondition: line should be trimmed of leading/trailing whitespace.
// Postcondition: Returns a ParseResult. If line is empty, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	// Split at first space for the command word
	spaceIdx := strings.IndexFunc(line, unicode.IsSpace)
	if spaceIdx < 0 {
		return ParseResult{
			Command: strings.ToLower(line),
		}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	return ParseResult{
		Command: cmd,
		Args:    SplitArgs(rest),
		RawArgs: rest,
	}
}

// SplitArgs splits s on whitespace, keeping double-quoted runs together.
// An unterminated quote extends to the end of s. Empty input yields nil.
func SplitArgs(s string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case unicode.IsSpace(r) && !quoted:
			if pending {
				args = append(args, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if pending {
		args = append(args, cur.String())
	}
	return args
}
