package engine

import "io"

// TextStream replays fixed text as chunks of at most size runes.
func TextStream(text string, size int) Stream {
	if size <= 0 {
		size = 1
	}
	return &textStream{runes: []rune(text), size: size}
}

type textStream struct {
	runes []rune
	size  int
	pos   int
}

func (s *textStream) Recv() (string, error) {
	if s.pos >= len(s.runes) {
		return "", io.EOF
	}
	end := min(s.pos+s.size, len(s.runes))
	chunk := string(s.runes[s.pos:end])
	s.pos = end
	return chunk, nil
}

func (s *textStream) Close() { s.pos = len(s.runes) }
