package watch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsLatestSet(t *testing.T) {
	w := NewValue(1)
	assert.Equal(t, 1, w.Get())

	w.Set(2)
	w.Set(3)
	assert.Equal(t, 3, w.Get())
}

func TestConcurrentReadersSeeAConsistentValue(t *testing.T) {
	type pair struct{ a, b int }
	w := NewValue(pair{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			w.Set(pair{a: i, b: -i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p := w.Get()
			assert.Equal(t, -p.a, p.b)
		}
	}()
	wg.Wait()
}
