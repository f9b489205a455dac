package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	d, err := Init(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestJournal(t *testing.T) {
	d := testDB(t)
	deadline := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, d.Record(1, "encode", deadline, EventSubmitted))
	require.NoError(t, d.Record(2, "upload", deadline, EventSubmitted))
	require.NoError(t, d.Record(1, "encode", deadline, EventReleased))

	events, err := d.History(1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventSubmitted, events[0].Event)
	assert.Equal(t, EventReleased, events[1].Event)
	assert.Equal(t, "encode", events[0].Label)
	assert.True(t, events[0].Deadline.Equal(deadline))

	events, err = d.History(99)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAuth(t *testing.T) {
	d := testDB(t)

	require.NoError(t, d.AddAuth("operator", "hunter2"))

	ok, err := d.CheckAuth("operator", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.CheckAuth("operator", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.CheckAuth("nobody", "hunter2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.RemoveAuth("operator"))
	ok, err = d.CheckAuth("operator", "hunter2")
	require.NoError(t, err)
	assert.False(t, ok)
}
