package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/campus/internal/domain"
)

func TestMergeMessagesDedupesAndSorts(t *testing.T) {
	t0 := time.Now()
	list := []domain.Message{
		{ID: "b", Text: "second", CreatedAt: t0.Add(2 * time.Second)},
		{ID: "a", Text: "first", CreatedAt: t0.Add(time.Second)},
	}
	list = mergeMessages(list,
		domain.Message{ID: "c", Text: "zeroth", CreatedAt: t0},
		domain.Message{ID: "a", Text: "first, edited", CreatedAt: t0.Add(time.Second)},
		domain.Message{ID: "c", Text: "zeroth again", CreatedAt: t0},
	)

	assert.Equal(t, []string{"c", "a", "b"}, ids(list))
	assert.Equal(t, "first, edited", list[1].Text)
	assert.Equal(t, "zeroth again", list[0].Text)
}

func TestMergeMessagesDropsDeleted(t *testing.T) {
	list := mergeMessages(nil,
		domain.Message{ID: "a", CreatedAt: time.Now()},
		domain.Message{ID: "b", CreatedAt: time.Now(), IsDeleted: true},
	)
	assert.Equal(t, []string{"a"}, ids(list))
}

func TestMergeMessagesStableOnEqualTimes(t *testing.T) {
	at := time.Now()
	list := mergeMessages(nil,
		domain.Message{ID: "x", CreatedAt: at},
		domain.Message{ID: "y", CreatedAt: at},
		domain.Message{ID: "z", CreatedAt: at},
	)
	assert.Equal(t, []string{"x", "y", "z"}, ids(list))
}

func TestKeepOptimistic(t *testing.T) {
	list := []domain.Message{
		{ID: "s1", ConversationID: "A"},
		{ID: "tmp", ConversationID: "A", Optimistic: true},
		{ID: "tmp2", ConversationID: "B", Optimistic: true},
	}
	assert.Equal(t, []string{"tmp"}, ids(keepOptimistic(list, "A")))
}

func TestPatchMessage(t *testing.T) {
	list := []domain.Message{{ID: "a", Text: "x"}}
	assert.True(t, patchMessage(list, domain.Message{ID: "a", Text: "y", IsEdited: true}))
	assert.Equal(t, "y", list[0].Text)
	assert.True(t, list[0].IsEdited)
	assert.False(t, patchMessage(list, domain.Message{ID: "missing"}))
}

func TestLedgerTransitions(t *testing.T) {
	l := newLedger()
	p, err := l.open("tmp-1", "C1", "hello")
	require.NoError(t, err)
	assert.Equal(t, Optimistic, p.State())

	l.resolve("tmp-1", "m-1")
	l.resolve("tmp-1", "m-2")
	assert.Equal(t, "m-1", p.ServerID)

	require.NoError(t, l.finish("tmp-1", Confirmed))
	assert.Equal(t, Confirmed, p.State())
	assert.Zero(t, l.len())

	// Finishing an unknown entry is a no-op.
	assert.NoError(t, l.finish("tmp-1", RolledBack))
}

func TestLedgerRejectsInvalidTransition(t *testing.T) {
	l := newLedger()
	_, err := l.open("tmp-1", "C1", "hello")
	require.NoError(t, err)
	assert.Error(t, l.finish("tmp-1", Composing))
}

func TestLeaseReleaseStopsRenewal(t *testing.T) {
	renewed := make(chan struct{}, 100)
	l := AcquireLease(5*time.Millisecond, func() { renewed <- struct{}{} })

	select {
	case <-renewed:
	case <-time.After(time.Second):
		t.Fatal("lease never renewed")
	}
	l.Release()
	l.Release()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lease goroutine did not exit")
	}

	var nilLease *Lease
	nilLease.Release()
}
