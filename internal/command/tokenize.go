// Package command holds the terminal's command-line primitives: the argument
// tokenizer, the ordered command registry, and the submitted-line history.
package command

import "strings"

const noQuote rune = 0

// Split breaks a raw argument string into tokens using shell-like rules.
//
//   - unquoted whitespace separates tokens
//   - a backslash makes the next character literal and is itself dropped
//   - single or double quotes group text until the matching quote of the same kind
//   - the other quote kind inside an open quote is a literal character
//   - an unterminated quote runs to the end of the input
//   - a trailing lone backslash is kept as a literal backslash
//   - empty tokens are never emitted
func Split(s string) []string {
	var (
		tokens  []string
		buf     strings.Builder
		quote   = noQuote
		escaped bool
	)

	flush := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, buf.String())
			buf.Reset()
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			buf.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case quote != noQuote:
			if r == quote {
				quote = noQuote
			} else {
				buf.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
		case isSpace(r):
			flush()
		default:
			buf.WriteRune(r)
		}
	}

	if escaped {
		buf.WriteRune('\\')
	}
	flush()
	return tokens
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
