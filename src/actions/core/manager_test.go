package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct{ events []string }

type fakeModule struct {
	name string
	err  error
	rec  *recorder
}

func (f *fakeModule) Name() string { return f.name }

func (f *fakeModule) Start(context.Context) error {
	f.rec.events = append(f.rec.events, "start "+f.name)
	return f.err
}

func (f *fakeModule) Stop(context.Context) {
	f.rec.events = append(f.rec.events, "stop "+f.name)
}

func TestManagerStartsInOrderAndStopsInReverse(t *testing.T) {
	rec := &recorder{}
	m := NewManager(zaptest.NewLogger(t), &fakeModule{name: "a", rec: rec})
	require.NoError(t, m.Add(&fakeModule{name: "b", rec: rec}))
	require.NoError(t, m.Start(context.Background()))

	assert.Error(t, m.Add(&fakeModule{name: "late", rec: rec}))
	assert.Error(t, m.Start(context.Background()))

	m.Stop(context.Background())
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, rec.events)
}

func TestManagerRollsBackOnFailure(t *testing.T) {
	rec := &recorder{}
	m := NewManager(nil,
		&fakeModule{name: "a", rec: rec},
		nil,
		&fakeModule{name: "b", rec: rec, err: errors.New("no token")},
		&fakeModule{name: "c", rec: rec},
	)
	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module b failed")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, rec.events)

	m.Stop(context.Background())
	assert.Len(t, rec.events, 3)
}
