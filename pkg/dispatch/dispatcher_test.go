package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDispatcherFiresTimersAndStops(t *testing.T) {
	d, err := New(SystemClock{})
	require.NoError(t, err)

	wantErr := errors.New("done")
	var fired []string
	q := NewQueue(func(k string) {
		fired = append(fired, k)
		if k == "last" {
			d.Stop(wantErr)
		}
	})
	d.AddTimers(q)

	now := time.Now()
	q.Add(now.Add(20*time.Millisecond), "last")
	q.Add(now, "first")

	err = d.Run(context.Background())
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, []string{"first", "last"}, fired)
}

func TestDispatcherReadableSourceAndPost(t *testing.T) {
	d, err := New(SystemClock{})
	require.NoError(t, err)

	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	var got []byte
	d.Register(Source{Name: "pipe", FD: p[0], OnReadable: func() {
		buf := make([]byte, 16)
		n, _ := unix.Read(p[0], buf)
		got = append(got, buf[:n]...)
		d.Stop(nil)
	}})

	go func() {
		d.Post(func() {
			_, _ = unix.Write(p[1], []byte("hi"))
		})
	}()

	err = d.Run(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, "hi", string(got))
}

func TestDispatcherContextCancel(t *testing.T) {
	d, err := New(SystemClock{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, d.Run(ctx), context.DeadlineExceeded)
}
