package discord

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkMessageShortTextIsSingleChunk(t *testing.T) {
	chunks := ChunkMessage("hello", 2000)
	require.Equal(t, []string{"hello"}, chunks)
}

func TestChunkMessageEmpty(t *testing.T) {
	require.Nil(t, ChunkMessage("   ", 2000))
}

func TestChunkMessageSplitsOnLineBoundaries(t *testing.T) {
	text := strings.Repeat("0123456789\n", 30)
	chunks := ChunkMessage(text, 100)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 100)
		require.NotEmpty(t, chunk)
	}
	require.Equal(t, strings.Count(text, "0123456789"), countOccurrences(chunks, "0123456789"))
}

func TestChunkMessageHardSplitWithoutNewlines(t *testing.T) {
	text := strings.Repeat("a", 250)
	chunks := ChunkMessage(text, 100)
	require.Len(t, chunks, 3)
	require.Equal(t, 100, len(chunks[0]))
	require.Equal(t, 100, len(chunks[1]))
	require.Equal(t, 50, len(chunks[2]))
}

func countOccurrences(chunks []string, needle string) int {
	total := 0
	for _, chunk := range chunks {
		total += strings.Count(chunk, needle)
	}
	return total
}
