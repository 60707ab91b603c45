package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antoniostano/clyde/internal/protocol"
)

func TestCacheBoundsAndOrder(t *testing.T) {
	c := NewCache(3)
	for i := 0; i < 7; i++ {
		c.AddMessage("chan", protocol.Turn{Role: protocol.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	got := c.GetHistory("chan")
	require.Len(t, got, 3)
	require.Equal(t, "m4", got[0].Content)
	require.Equal(t, "m5", got[1].Content)
	require.Equal(t, "m6", got[2].Content)
}

func TestCacheSetHistoryKeepsTrailingWindow(t *testing.T) {
	c := NewCache(2)
	turns := []protocol.Turn{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	c.SetHistory("chan", turns)

	got := c.GetHistory("chan")
	require.Equal(t, []protocol.Turn{{Content: "b"}, {Content: "c"}}, got)
}

func TestCacheUnseenChannelIsEmpty(t *testing.T) {
	c := NewCache(0)
	require.Equal(t, defaultCapacity, c.Capacity())
	require.Empty(t, c.GetHistory("nope"))
}

func TestCacheGetHistoryReturnsCopy(t *testing.T) {
	c := NewCache(5)
	c.AddMessage("chan", protocol.Turn{Content: "orig"})
	got := c.GetHistory("chan")
	got[0].Content = "mutated"
	require.Equal(t, "orig", c.GetHistory("chan")[0].Content)
}

func TestCacheClear(t *testing.T) {
	c := NewCache(5)
	c.AddMessage("a", protocol.Turn{Content: "x"})
	c.AddMessage("b", protocol.Turn{Content: "y"})
	require.Equal(t, 2, c.ChannelCount())

	c.ClearChannel("a")
	require.Empty(t, c.GetHistory("a"))
	require.NotEmpty(t, c.GetHistory("b"))

	c.ClearAll()
	require.Equal(t, 0, c.ChannelCount())
}

func TestCacheConcurrentAddStaysBounded(t *testing.T) {
	c := NewCache(4)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.AddMessage("chan", protocol.Turn{Content: fmt.Sprintf("m%d", n)})
		}(i)
	}
	wg.Wait()
	require.Len(t, c.GetHistory("chan"), 4)
}

func TestLockChannelSerializes(t *testing.T) {
	c := NewCache(4)
	unlock := c.LockChannel("chan")

	acquired := make(chan struct{})
	go func() {
		u := c.LockChannel("chan")
		close(acquired)
		u()
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	default:
	}

	unlock()
	<-acquired
}
