package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTailShorterThanWindow(t *testing.T) {
	turns := []Turn{{Role: RoleUser, Content: "a"}, {Role: RoleAssistant, Content: "b"}}
	got := Tail(turns, 5)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Content)
}

func TestTailKeepsNewest(t *testing.T) {
	turns := []Turn{
		{Content: "1"}, {Content: "2"}, {Content: "3"}, {Content: "4"},
	}
	got := Tail(turns, 2)
	require.Len(t, got, 2)
	require.Equal(t, "3", got[0].Content)
	require.Equal(t, "4", got[1].Content)
}

func TestTailCopiesBacking(t *testing.T) {
	turns := []Turn{{Content: "x"}}
	got := Tail(turns, 1)
	got[0].Content = "mutated"
	require.Equal(t, "x", turns[0].Content)
}
