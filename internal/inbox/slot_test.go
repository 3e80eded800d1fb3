package inbox

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeOnce(t *testing.T) {
	var s Slot
	_, ok := s.Take()
	assert.False(t, ok)

	assert.Equal(t, uint64(1), s.Post("a"))
	src, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, "a", src)

	_, ok = s.Take()
	assert.False(t, ok)

	last, seq := s.Last()
	assert.Equal(t, "a", last)
	assert.Equal(t, uint64(1), seq)
}

func TestLastWriteWins(t *testing.T) {
	var s Slot
	s.Post("first")
	s.Post("second")
	src, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, "second", src)
	_, ok = s.Take()
	assert.False(t, ok)
}

func TestConcurrentPosts(t *testing.T) {
	var s Slot
	const producers, posts = 8, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < posts; i++ {
				s.Post(strconv.Itoa(p*posts + i))
			}
		}(p)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	var takes int
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, ok := s.Take(); ok {
				takes++
			}
		}
	}()
	wg.Wait()
	close(stop)
	<-done

	_, seq := s.Last()
	assert.Equal(t, uint64(producers*posts), seq)
	assert.LessOrEqual(t, takes, producers*posts)

	// Whatever remains is the newest post.
	last, _ := s.Last()
	if src, ok := s.Take(); ok {
		assert.Equal(t, last, src)
	}
}
