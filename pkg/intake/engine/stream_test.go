package engine

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s Stream) []string {
	t.Helper()
	var chunks []string
	for {
		c, err := s.Recv()
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
}

func TestTextStream(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "multibyte runes stay whole", text: "你好世界", size: 3, want: []string{"你好世", "界"}},
		{name: "one rune per chunk", text: "ab", size: 0, want: []string{"a", "b"}},
		{name: "empty", text: "", size: 4, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drain(t, TextStream(tt.text, tt.size))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}

func TestTextStream_Close(t *testing.T) {
	s := TextStream("hello", 2)
	_, err := s.Recv()
	require.NoError(t, err)
	s.Close()
	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
}
