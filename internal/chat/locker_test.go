package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, pairKey("a", "b"), pairKey("b", "a"))
	assert.NotEqual(t, pairKey("a", "bc"), pairKey("ab", "c"))
}

func TestKeyedLocker_SerializesAndCleansUp(t *testing.T) {
	k := newKeyedLocker()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("chat-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size())
}
