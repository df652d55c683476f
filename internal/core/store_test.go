package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddAssignsUniqueIDsAndOrder(t *testing.T) {
	s := NewStore(WithClock(stepClock(testEpoch, time.Millisecond)))

	seen := map[string]bool{}
	var last int64
	for i := 0; i < 50; i++ {
		rec := s.Add(candidate("c"))
		require.NotEmpty(t, rec.ID)
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
		assert.GreaterOrEqual(t, rec.CreatedAt, last)
		last = rec.CreatedAt
	}
	assert.Equal(t, 50, s.Len())
}

func TestStore_AddPrepends(t *testing.T) {
	s := NewStore(WithIDGenerator(seqIDs()))
	s.Add(candidate("first"))
	s.Add(candidate("second"))

	assert.Equal(t, []string{"id-2", "id-1"}, ids(s.All()))
}

func TestStore_CreatedAtNeverDecreases(t *testing.T) {
	// The wall clock steps back a second on every call.
	s := NewStore(WithClock(stepClock(testEpoch, -time.Second)))

	a := s.Add(candidate("a"))
	b := s.Add(candidate("b"))
	c := s.Add(candidate("c"))

	assert.Equal(t, testEpoch.UnixMilli(), a.CreatedAt)
	assert.GreaterOrEqual(t, b.CreatedAt, a.CreatedAt)
	assert.GreaterOrEqual(t, c.CreatedAt, b.CreatedAt)
}

func TestStore_AddRedrawsCollidingID(t *testing.T) {
	gen := []string{"taken", "taken", "fresh"}
	s := NewStore(WithIDGenerator(func() string {
		id := gen[0]
		gen = gen[1:]
		return id
	}))
	s.ReplaceAll([]Customer{{ID: "taken", Name: "imported", FamilyCount: 1}})

	rec := s.Add(candidate("new"))
	assert.Equal(t, "fresh", rec.ID)
}

func TestStore_AddCoercesFamilyCount(t *testing.T) {
	s := NewStore()
	c := candidate("x")
	c.FamilyCount = 0
	assert.Equal(t, 1, s.Add(c).FamilyCount)
}

func TestStore_UpdatePreservesIdentity(t *testing.T) {
	s := NewStore(WithClock(stepClock(testEpoch, time.Minute)))
	orig := s.Add(candidate("old name"))

	name := "new name"
	got, ok := s.Update(orig.ID, Patch{Name: &name})
	require.True(t, ok)

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.CreatedAt, got.CreatedAt)
	assert.Equal(t, "new name", got.Name)
	// Fields not in the patch are untouched.
	assert.Equal(t, orig.PageNumber, got.PageNumber)
	assert.Equal(t, orig.FamilyCount, got.FamilyCount)
	assert.Equal(t, orig.SecretPin, got.SecretPin)

	stored, _ := s.Get(orig.ID)
	assert.Equal(t, got, stored)
}

func TestStore_UpdateUnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	s.Add(candidate("a"))
	before := s.All()

	calls := 0
	s.SetNotify(func(Change) { calls++ })

	name := "x"
	_, ok := s.Update("missing", Patch{Name: &name})
	assert.False(t, ok)
	assert.Equal(t, before, s.All())
	assert.Zero(t, calls, "no-op must not notify")
}

func TestStore_DeleteUnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	s.Add(candidate("a"))
	s.Add(candidate("b"))
	before := s.All()

	calls := 0
	s.SetNotify(func(Change) { calls++ })

	assert.False(t, s.Delete("missing"))
	assert.Equal(t, before, s.All())
	assert.Zero(t, calls)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(WithIDGenerator(seqIDs()))
	s.Add(candidate("a"))
	s.Add(candidate("b"))
	s.Add(candidate("c"))

	assert.True(t, s.Delete("id-2"))
	assert.Equal(t, []string{"id-3", "id-1"}, ids(s.All()))
	_, ok := s.Get("id-2")
	assert.False(t, ok)
}

func TestStore_ReplaceAllCopies(t *testing.T) {
	s := NewStore()
	in := []Customer{{ID: "a", FamilyCount: 1}, {ID: "b", FamilyCount: 1}}
	s.ReplaceAll(in)

	in[0].Name = "mutated"
	got, _ := s.Get("a")
	assert.Empty(t, got.Name, "store must not alias the caller's slice")

	out := s.All()
	out[1].Name = "mutated"
	got, _ = s.Get("b")
	assert.Empty(t, got.Name, "All must return a copy")
}

func TestStore_NotifyOnEffectiveMutations(t *testing.T) {
	s := NewStore(WithIDGenerator(seqIDs()))
	var got []Change
	s.SetNotify(func(c Change) { got = append(got, c) })

	rec := s.Add(candidate("a"))
	name := "b"
	s.Update(rec.ID, Patch{Name: &name})
	s.Delete(rec.ID)
	s.ReplaceAll(nil)

	require.Len(t, got, 4)
	assert.Equal(t, ActionAdd, got[0].Action)
	assert.Equal(t, "id-1", got[0].RecordID)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, ActionUpdate, got[1].Action)
	assert.Equal(t, ActionDelete, got[2].Action)
	assert.Equal(t, SeverityHigh, got[2].Severity)
	assert.Equal(t, ActionReplace, got[3].Action)
	assert.Equal(t, SeverityCritical, got[3].Severity)
	assert.Equal(t, 0, got[3].Count)
}

func TestChangeLog_Recent(t *testing.T) {
	l := newChangeLog(3)
	assert.Empty(t, l.recent(0))

	for _, id := range []string{"1", "2", "3", "4"} {
		l.add(Change{ID: id})
	}

	got := l.recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "2", got[2].ID)

	got = l.recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[1].ID)
}
