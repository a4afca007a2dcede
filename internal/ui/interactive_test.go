package ui

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyReaderStopsOnShutdownWithFullChannel(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	s := &Interactive{tty: r}
	keys := make(chan keyEvent, 1)
	done := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		s.readKeys(keys, done)
		close(finished)
	}()

	// More events than the channel holds, with nobody receiving.
	_, err = w.Write([]byte("aaaa"))
	require.NoError(t, err)
	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("key reader kept blocking after shutdown")
	}
}
