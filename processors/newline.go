package processors

import "bytes"

// TrailingNewline makes non-empty text files end with exactly one line
// ending, in the style the file already uses. It is not part of the
// default chain; add it with engine.WithPostProcessors.
type TrailingNewline struct{}

func (TrailingNewline) ProcessContent(_ string, content []byte) ([]byte, error) {
	trimmed := bytes.TrimRight(content, "\r\n")
	if len(trimmed) == 0 {
		return content, nil
	}
	eol := []byte("\n")
	if bytes.Contains(content, []byte("\r\n")) {
		eol = []byte("\r\n")
	}
	out := make([]byte, len(trimmed), len(trimmed)+len(eol))
	copy(out, trimmed)
	return append(out, eol...), nil
}
