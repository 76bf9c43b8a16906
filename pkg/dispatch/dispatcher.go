package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/dhclient/pkg/logger"
)

var ErrStopped = errors.New("dispatcher stopped")

// Timers is a deadline source the dispatcher fires from its loop.
type Timers interface {
	Next() (time.Time, bool)
	Fire(now time.Time) int
}

// Source is a file descriptor polled for readability. OnReadable runs on
// the dispatcher goroutine.
type Source struct {
	Name       string
	FD         int
	OnReadable func()
}

// Dispatcher is the single-threaded event loop: it fires due timers, then
// blocks in poll until the next deadline, a readable source or a wakeup.
// Everything registered with it runs on the goroutine that called Run.
type Dispatcher struct {
	clock  Clock
	logger *slog.Logger

	timers  []Timers
	sources []Source

	wakeR, wakeW int

	mu      sync.Mutex
	posted  []func()
	stopped bool
	stopErr error
}

func New(clock Clock) (*Dispatcher, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("create wake pipe: %w", err)
	}
	return &Dispatcher{
		clock:  clock,
		logger: logger.Get(logger.Dispatch),
		wakeR:  p[0],
		wakeW:  p[1],
	}, nil
}

func (d *Dispatcher) Clock() Clock {
	return d.clock
}

func (d *Dispatcher) AddTimers(t Timers) {
	d.timers = append(d.timers, t)
}

func (d *Dispatcher) Register(s Source) {
	d.sources = append(d.sources, s)
	d.logger.Debug("Registered source", "name", s.Name, "fd", s.FD)
}

func (d *Dispatcher) Unregister(name string) {
	kept := d.sources[:0]
	for _, s := range d.sources {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	d.sources = kept
}

// Post queues fn to run on the dispatcher goroutine. Safe for concurrent use.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	d.posted = append(d.posted, fn)
	d.mu.Unlock()
	d.wake()
}

// Stop makes Run return err (ErrStopped when nil) after the current pass.
func (d *Dispatcher) Stop(err error) {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		d.stopErr = err
	}
	d.mu.Unlock()
	d.wake()
}

func (d *Dispatcher) wake() {
	_, _ = unix.Write(d.wakeW, []byte{0})
}

func (d *Dispatcher) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(d.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (d *Dispatcher) runPosted() {
	d.mu.Lock()
	fns := d.posted
	d.posted = nil
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *Dispatcher) isStopped() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped, d.stopErr
}

// RunOnce fires due timers and posted work without blocking.
func (d *Dispatcher) RunOnce() {
	d.runPosted()
	now := d.clock.Now()
	for _, t := range d.timers {
		t.Fire(now)
	}
}

func (d *Dispatcher) pollTimeout() int {
	var next time.Time
	found := false
	for _, t := range d.timers {
		if when, ok := t.Next(); ok && (!found || when.Before(next)) {
			next, found = when, true
		}
	}
	if !found {
		return -1
	}
	wait := next.Sub(d.clock.Now())
	if wait <= 0 {
		return 0
	}
	ms := (wait + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

// Run loops until Stop is called or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer unix.Close(d.wakeR)
	defer unix.Close(d.wakeW)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			d.wake()
		case <-done:
		}
	}()

	for {
		d.RunOnce()

		if stopped, err := d.isStopped(); stopped {
			if err == nil {
				err = ErrStopped
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fds := make([]unix.PollFd, 0, len(d.sources)+1)
		fds = append(fds, unix.PollFd{Fd: int32(d.wakeR), Events: unix.POLLIN})
		for _, s := range d.sources {
			fds = append(fds, unix.PollFd{Fd: int32(s.FD), Events: unix.POLLIN})
		}

		_, err := unix.Poll(fds, d.pollTimeout())
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}

		if fds[0].Revents != 0 {
			d.drainWake()
		}

		sources := append([]Source(nil), d.sources...)
		for i, s := range sources {
			re := fds[i+1].Revents
			if re&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
				s.OnReadable()
			}
			if re&unix.POLLNVAL != 0 {
				d.logger.Warn("Source closed", "name", s.Name, "fd", s.FD)
				d.Unregister(s.Name)
			}
		}
	}
}
