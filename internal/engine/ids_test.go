package engine

import (
	"math/rand/v2"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestUniqueID(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	e := New(Params{
		Now:  func() time.Time { return now },
		Rand: rand.New(rand.NewPCG(1, 2)),
	})

	base := now.UnixMilli() * 1000
	seen := make(map[int64]bool)
	for i := 0; i < 100; i++ {
		id, err := e.uniqueIDLocked(func(id int64) bool { return seen[id] })
		assert.NilError(t, err)
		assert.Assert(t, id >= base, "id %d below timestamp base", id)
		seen[id] = true
	}
	assert.Equal(t, len(seen), 100)
}

func TestUniqueID_GivesUp(t *testing.T) {
	e := New(Params{Now: func() time.Time { return time.UnixMilli(1) }})

	calls := 0
	_, err := e.uniqueIDLocked(func(int64) bool {
		calls++
		return true
	})
	assert.ErrorContains(t, err, "max attempts")
	assert.Equal(t, calls, maxIDAttempts)
}

func TestPushUndo_EvictsOldest(t *testing.T) {
	e := New(Params{UndoCapacity: 2})
	for _, action := range []UndoAction{"a", "b", "c"} {
		e.pushUndoLocked(UndoEntry{Action: action})
	}
	assert.Equal(t, len(e.undo), 2)
	assert.Equal(t, e.undo[0].Action, UndoAction("b"))
	assert.Equal(t, e.undo[1].Action, UndoAction("c"))
}

func TestPendingSet(t *testing.T) {
	p := newPendingSet()
	p.update(1)
	p.remove(1)
	assert.Assert(t, !p.updates[1], "delete supersedes update")
	assert.Assert(t, p.deletes[1])

	p.addDirectory("Dev")
	p.deleteDirectory("Dev")
	assert.DeepEqual(t, p.dirAdds, []string{})
	assert.DeepEqual(t, p.dirDeletes, []string{"Dev"})
	assert.Assert(t, !p.empty())
}
