package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
}

func (r *recorder) service(name string, deps ...string) *Func {
	return &Func{
		ID:       name,
		Requires: deps,
		OnStart: func() error {
			r.events = append(r.events, "start "+name)
			return nil
		},
		OnStop: func() error {
			r.events = append(r.events, "stop "+name)
			return nil
		},
	}
}

func TestGroupStartsInDependencyOrderAndStopsInReverse(t *testing.T) {
	var rec recorder
	g := NewGroup()
	require.NoError(t, g.Register(rec.service("terminal", "reactor")))
	require.NoError(t, g.Register(rec.service("reactor")))
	require.NoError(t, g.Register(rec.service("host", "terminal")))

	require.NoError(t, g.StartAll())
	assert.Equal(t, []string{"reactor", "terminal", "host"}, g.Started())

	require.NoError(t, g.StopAll())
	assert.Equal(t, []string{
		"start reactor", "start terminal", "start host",
		"stop host", "stop terminal", "stop reactor",
	}, rec.events)
	assert.Empty(t, g.Started())
}

func TestGroupRollsBackOnStartFailure(t *testing.T) {
	var rec recorder
	boom := errors.New("boom")

	g := NewGroup()
	require.NoError(t, g.Register(rec.service("a")))
	failing := rec.service("b", "a")
	failing.OnStart = func() error { return boom }
	require.NoError(t, g.Register(failing))
	require.NoError(t, g.Register(rec.service("c", "b")))

	err := g.StartAll()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start a", "stop a"}, rec.events)
	assert.Empty(t, g.Started())
}

func TestGroupStopAllReturnsFirstErrorAndStopsEveryService(t *testing.T) {
	var rec recorder
	first := errors.New("first")

	g := NewGroup()
	a := rec.service("a")
	a.OnStop = func() error { return errors.New("second") }
	b := rec.service("b")
	b.OnStop = func() error { return first }
	require.NoError(t, g.Register(a))
	require.NoError(t, g.Register(b))
	require.NoError(t, g.StartAll())

	assert.ErrorIs(t, g.StopAll(), first)
	assert.NoError(t, g.StopAll(), "second stop has nothing to do")
}

func TestGroupRejectsBadGraphs(t *testing.T) {
	var rec recorder

	g := NewGroup()
	require.NoError(t, g.Register(rec.service("a")))
	assert.Error(t, g.Register(rec.service("a")), "duplicate name")

	missing := NewGroup()
	require.NoError(t, missing.Register(rec.service("a", "ghost")))
	assert.Error(t, missing.StartAll())

	cycle := NewGroup()
	require.NoError(t, cycle.Register(rec.service("a", "b")))
	require.NoError(t, cycle.Register(rec.service("b", "a")))
	assert.Error(t, cycle.StartAll())
	assert.Empty(t, rec.events)
}

func TestFuncNilHooks(t *testing.T) {
	f := &Func{ID: "noop"}
	assert.NoError(t, f.Start())
	assert.NoError(t, f.Stop())
	assert.Nil(t, f.Dependencies())

	_, ok := NewGroup().Get("noop")
	assert.False(t, ok)
}
