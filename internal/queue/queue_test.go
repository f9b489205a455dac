package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSubmitAndNext(t *testing.T) {
	q := New(8)

	_, err := q.Submit("late", epoch.Add(time.Hour))
	require.NoError(t, err)
	early, err := q.Submit("early", epoch.Add(time.Minute))
	require.NoError(t, err)

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, early.ID, next.ID)
	assert.Equal(t, "early", next.Label)
	assert.Equal(t, 2, q.Len())
}

func TestPopDue(t *testing.T) {
	q := New(8)

	for i, offset := range []time.Duration{
		3 * time.Minute, time.Minute, 10 * time.Minute, 2 * time.Minute,
	} {
		_, err := q.Submit(string(rune('a'+i)), epoch.Add(offset))
		require.NoError(t, err)
	}

	due := q.PopDue(epoch.Add(5 * time.Minute))
	require.Len(t, due, 3)
	assert.Equal(t, "b", due[0].Label)
	assert.Equal(t, "d", due[1].Label)
	assert.Equal(t, "a", due[2].Label)
	assert.Equal(t, 1, q.Len())

	assert.Empty(t, q.PopDue(epoch.Add(5*time.Minute)))
}

// Equal deadlines must release in submission order.
func TestPopDueFIFOAmongTies(t *testing.T) {
	q := New(8)
	deadline := epoch.Add(time.Minute)

	first, err := q.Submit("first", deadline)
	require.NoError(t, err)
	second, err := q.Submit("second", deadline)
	require.NoError(t, err)

	due := q.PopDue(deadline)
	require.Len(t, due, 2)
	assert.Equal(t, first.ID, due[0].ID)
	assert.Equal(t, second.ID, due[1].ID)
}

func TestCancel(t *testing.T) {
	q := New(8)

	a, err := q.Submit("a", epoch.Add(time.Minute))
	require.NoError(t, err)
	b, err := q.Submit("b", epoch.Add(2*time.Minute))
	require.NoError(t, err)

	cancelled, err := q.Cancel(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", cancelled.Label)

	// Cancelled jobs are gone for good.
	_, err = q.Cancel(a.ID)
	assert.ErrorIs(t, err, ErrUnknownJob)
	_, err = q.Cancel(12345)
	assert.ErrorIs(t, err, ErrUnknownJob)

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, b.ID, next.ID)
}

func TestAdvance(t *testing.T) {
	q := New(8)

	a, err := q.Submit("a", epoch.Add(time.Minute))
	require.NoError(t, err)
	b, err := q.Submit("b", epoch.Add(time.Hour))
	require.NoError(t, err)

	// Moving b ahead of a changes the release order.
	updated, err := q.Advance(b.ID, epoch.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Second), updated.Deadline)

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, b.ID, next.ID)

	// Deadlines only move earlier.
	_, err = q.Advance(a.ID, epoch.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrLaterDeadline)

	_, err = q.Advance(999, epoch)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestLifetimeCapacity(t *testing.T) {
	q := New(2)

	a, err := q.Submit("a", epoch.Add(time.Minute))
	require.NoError(t, err)
	_, err = q.Submit("b", epoch.Add(2*time.Minute))
	require.NoError(t, err)

	_, err = q.Submit("c", epoch.Add(3*time.Minute))
	assert.ErrorIs(t, err, ErrFull)

	// Cancelling doesn't open a slot back up.
	_, err = q.Cancel(a.ID)
	require.NoError(t, err)
	_, err = q.Submit("c", epoch.Add(3*time.Minute))
	assert.ErrorIs(t, err, ErrFull)

	accepted, capacity := q.Lifetime()
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 2, capacity)
}

func TestSnapshot(t *testing.T) {
	q := New(8)

	_, err := q.Submit("a", epoch.Add(time.Minute))
	require.NoError(t, err)
	b, err := q.Submit("b", epoch.Add(2*time.Minute))
	require.NoError(t, err)
	_, err = q.Submit("c", epoch.Add(3*time.Minute))
	require.NoError(t, err)
	_, err = q.Cancel(b.ID)
	require.NoError(t, err)

	snap := q.Snapshot()
	require.Len(t, snap, 2)
	labels := map[string]bool{}
	for _, j := range snap {
		labels[j.Label] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "c": true}, labels)
}
