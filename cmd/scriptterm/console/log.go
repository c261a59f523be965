package console

import (
	"strings"

	"scriptterm/cmd/scriptterm/ui"
)

type lineKind int

const (
	kindPlain lineKind = iota
	kindInfo
	kindError
	kindWarning
	kindSuccess
	kindMuted
	kindEcho // a submitted line, shown with its prompt
)

type logLine struct {
	kind lineKind
	text string
}

// outputLog is the append-only transcript shown in the viewport. Script
// output arrives in chunks that need not end at a newline; a chunk without a
// trailing newline leaves the last line open for the next chunk.
type outputLog struct {
	lines   []logLine
	partial bool
}

func newOutputLog() *outputLog {
	return &outputLog{}
}

// add appends text as complete lines of the given kind.
func (l *outputLog) add(kind lineKind, text string) {
	l.partial = false
	for _, part := range strings.Split(text, "\n") {
		l.lines = append(l.lines, logLine{kind: kind, text: part})
	}
}

// appendChunk appends raw script output.
func (l *outputLog) appendChunk(text string) {
	if text == "" {
		return
	}
	complete := strings.HasSuffix(text, "\n")
	parts := strings.Split(text, "\n")
	if complete {
		parts = parts[:len(parts)-1]
	}
	for i, part := range parts {
		if i == 0 && l.partial && len(l.lines) > 0 {
			l.lines[len(l.lines)-1].text += part
			continue
		}
		l.lines = append(l.lines, logLine{kind: kindPlain, text: part})
	}
	l.partial = !complete
}

// endChunk closes an open output line.
func (l *outputLog) endChunk() {
	l.partial = false
}

func (l *outputLog) clear() {
	l.lines = nil
	l.partial = false
}

func (l *outputLog) texts() []string {
	out := make([]string, len(l.lines))
	for i, ln := range l.lines {
		out[i] = ln.text
	}
	return out
}

func (l *outputLog) render(s ui.Styles, width int) string {
	var b strings.Builder
	for i, ln := range l.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		style := s.Plain
		switch ln.kind {
		case kindInfo:
			style = s.Info
		case kindError:
			style = s.Error
		case kindWarning:
			style = s.Warning
		case kindSuccess:
			style = s.Success
		case kindMuted:
			style = s.Muted
		case kindEcho:
			style = s.UserInput
		}
		if width > 0 {
			style = style.Width(width)
		}
		b.WriteString(style.Render(ln.text))
	}
	return b.String()
}
