package command

import (
	"sync"
	"testing"

	"valve/pkg/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainAllReturnsCommandsInFIFOOrder(t *testing.T) {
	q := NewQueue()
	q.Push(Pause{})
	q.Push(SetRate{Magnitude: 2, Unit: units.Mebibyte})
	q.Push(Resume{})
	q.Push(Quit{})

	cmds := q.DrainAll()
	require.Len(t, cmds, 4)
	assert.IsType(t, Pause{}, cmds[0])
	assert.IsType(t, SetRate{}, cmds[1])
	assert.IsType(t, Resume{}, cmds[2])
	assert.IsType(t, Quit{}, cmds[3])

	assert.Nil(t, q.DrainAll())
}

func TestPushNeverDrops(t *testing.T) {
	q := NewQueue()

	const n = 10_000
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				q.Push(Nudge{Delta: 10})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, q.DrainAll(), 4*n)
}

func TestWakeSignalsAfterPush(t *testing.T) {
	q := NewQueue()

	select {
	case <-q.Wake():
		t.Fatal("wake fired before any push")
	default:
	}

	q.Push(Pause{})
	q.Push(Resume{})

	// One receive may cover both pushes.
	select {
	case <-q.Wake():
	default:
		t.Fatal("wake did not fire after push")
	}
	assert.Len(t, q.DrainAll(), 2)
}
