package component

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComponent struct {
	*Base
	log      *[]string
	startErr error
}

func (f *fakeComponent) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.StartContext(ctx)
	*f.log = append(*f.log, "start "+f.Name())
	return nil
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	*f.log = append(*f.log, "stop "+f.Name())
	return f.StopContext(ctx)
}

func TestOrchestratorOrder(t *testing.T) {
	var log []string
	o := NewOrchestrator()
	o.Register(&fakeComponent{Base: NewBase("a"), log: &log})
	o.Register(&fakeComponent{Base: NewBase("b"), log: &log})

	ctx := context.Background()
	require.NoError(t, o.Start(ctx))
	require.NoError(t, o.Stop(ctx))
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)

	// a second stop has nothing left to do
	require.NoError(t, o.Stop(ctx))
	assert.Len(t, log, 4)
}

func TestOrchestratorRollback(t *testing.T) {
	var log []string
	o := NewOrchestrator()
	o.Register(&fakeComponent{Base: NewBase("a"), log: &log})
	o.Register(&fakeComponent{Base: NewBase("b"), log: &log, startErr: errors.New("boom")})

	err := o.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start b")
	assert.Equal(t, []string{"start a", "stop a"}, log)
}

func TestBaseGoWaitsOnStop(t *testing.T) {
	b := NewBase("worker")
	b.StartContext(context.Background())

	done := make(chan struct{})
	b.Go(func() {
		<-b.Context().Done()
		close(done)
	})

	require.NoError(t, b.StopContext(context.Background()))
	select {
	case <-done:
	default:
		t.Fatal("goroutine still running after StopContext")
	}
}

func TestLoadAllSkipsDisabled(t *testing.T) {
	var log []string
	Register("test.enabled", func(deps Dependencies) (Component, error) {
		return &fakeComponent{Base: NewBase("test.enabled"), log: &log}, nil
	})
	Register("test.disabled", func(deps Dependencies) (Component, error) {
		return nil, nil
	})

	assert.Subset(t, List(), []string{"test.disabled", "test.enabled"})
	_, ok := Get("test.enabled")
	assert.True(t, ok)

	comps, err := LoadAll(Dependencies{})
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, "test.enabled", comps[0].Name())

	assert.Panics(t, func() {
		Register("test.enabled", func(Dependencies) (Component, error) { return nil, nil })
	})
}
