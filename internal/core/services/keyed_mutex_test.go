package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	counters := map[string]*int{"a": new(int), "b": new(int)}
	for i := 0; i < 100; i++ {
		for key, c := range counters {
			key, c := key, c
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock(key)
				*c++
				unlock()
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, 100, *counters["a"])
	assert.Equal(t, 100, *counters["b"])
	assert.Equal(t, 0, k.size(), "released keys must be forgotten")
}
