package syntax

import "fmt"

// ParseError is returned by Parser.Parse. Its Error() text mirrors bash's
// own diagnostics so callers (and golden-file tests) can string-match.
type ParseError struct {
	Filename string
	Pos      Position
	Text     string
	Fatal    bool // parsing cannot usefully continue (vs. a recoverable note)
}

func (e *ParseError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Text)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Pos.Line, e.Pos.Column, e.Text)
}
