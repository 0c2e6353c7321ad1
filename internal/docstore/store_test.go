package docstore

import (
	"cmp"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID     int64  `json:"id"`
	Body   string `json:"body"`
	Folder *int64 `json:"folder,omitempty"`
}

type pair struct {
	A int64 `json:"a"`
	B int64 `json:"b"`
}

func newNotes(s *Store) *Collection[int64, note] {
	return NewCollection(s, "notes",
		func(n note) int64 { return n.ID },
		cmp.Compare[int64],
		AutoIncrement(func(k int64) int64 { return k }, func(n *note, seq int64) { n.ID = seq }),
		Index[int64, note]("folder", func(n note) (any, bool) {
			if n.Folder == nil {
				return nil, false
			}
			return *n.Folder, true
		}),
	)
}

func newPairs(s *Store) *Collection[pair, pair] {
	return NewCollection(s, "pairs",
		func(p pair) pair { return p },
		func(x, y pair) int {
			if c := cmp.Compare(x.A, y.A); c != 0 {
				return c
			}
			return cmp.Compare(x.B, y.B)
		},
		Index[pair, pair]("a", func(p pair) (any, bool) { return p.A, true }),
	)
}

func folder(id int64) *int64 { return &id }

func TestCollection_AutoIncrement(t *testing.T) {
	s := New("")
	notes := newNotes(s)
	require.NoError(t, s.Open())

	var first, second, explicit, after int64
	err := s.Update(func(tx *Tx) error {
		var err error
		if first, err = notes.Add(tx, note{Body: "a"}); err != nil {
			return err
		}
		if second, err = notes.Add(tx, note{Body: "b"}); err != nil {
			return err
		}
		if explicit, err = notes.Add(tx, note{ID: 10, Body: "c"}); err != nil {
			return err
		}
		after, err = notes.Add(tx, note{Body: "d"})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, int64(10), explicit)
	assert.Equal(t, int64(11), after)
}

func TestCollection_AddRejectsDuplicateKey(t *testing.T) {
	s := New("")
	notes := newNotes(s)
	require.NoError(t, s.Open())

	err := s.Update(func(tx *Tx) error {
		if _, err := notes.Add(tx, note{ID: 1}); err != nil {
			return err
		}
		_, err := notes.Add(tx, note{ID: 1})
		return err
	})

	assert.ErrorIs(t, err, ErrKeyExists)
}

func TestCollection_IndexFollowsUpdates(t *testing.T) {
	s := New("")
	notes := newNotes(s)
	require.NoError(t, s.Open())

	require.NoError(t, s.Update(func(tx *Tx) error {
		for _, n := range []note{
			{Body: "a", Folder: folder(1)},
			{Body: "b", Folder: folder(2)},
			{Body: "c", Folder: folder(1)},
			{Body: "d"},
		} {
			if _, err := notes.Add(tx, n); err != nil {
				return err
			}
		}
		// move note 3 out of folder 1
		_, err := notes.Put(tx, note{ID: 3, Body: "c"})
		return err
	}))

	require.NoError(t, s.View(func(tx *Tx) error {
		inOne, err := notes.Where(tx, "folder", int64(1))
		require.NoError(t, err)
		require.Len(t, inOne, 1)
		assert.Equal(t, "a", inOne[0].Body)

		_, err = notes.Where(tx, "missing", int64(1))
		assert.ErrorIs(t, err, ErrNoIndex)

		assert.Equal(t, 4, notes.Count(tx))
		return nil
	}))
}

func TestCollection_CompositeKeyPutIsIdempotent(t *testing.T) {
	s := New("")
	pairs := newPairs(s)
	require.NoError(t, s.Open())

	require.NoError(t, s.Update(func(tx *Tx) error {
		for _, p := range []pair{{1, 2}, {1, 2}, {1, 3}, {2, 2}} {
			if _, err := pairs.Put(tx, p); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(func(tx *Tx) error {
		assert.Equal(t, []pair{{1, 2}, {1, 3}, {2, 2}}, pairs.All(tx))
		return nil
	}))

	require.NoError(t, s.Update(func(tx *Tx) error {
		n, err := pairs.DeleteWhere(tx, "a", int64(1))
		assert.Equal(t, 2, n)
		return err
	}))

	require.NoError(t, s.View(func(tx *Tx) error {
		assert.Equal(t, []pair{{2, 2}}, pairs.All(tx))
		return nil
	}))
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	s := New("")
	notes := newNotes(s)
	pairs := newPairs(s)
	require.NoError(t, s.Open())

	require.NoError(t, s.Update(func(tx *Tx) error {
		_, err := notes.Add(tx, note{Body: "keep", Folder: folder(1)})
		return err
	}))

	boom := errors.New("boom")
	err := s.Update(func(tx *Tx) error {
		if err := notes.Delete(tx, 1); err != nil {
			return err
		}
		if _, err := pairs.Put(tx, pair{1, 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(func(tx *Tx) error {
		n, ok := notes.Get(tx, 1)
		assert.True(t, ok)
		assert.Equal(t, "keep", n.Body)
		inOne, err := notes.Where(tx, "folder", int64(1))
		require.NoError(t, err)
		assert.Len(t, inOne, 1)
		assert.Empty(t, pairs.All(tx))
		return nil
	}))

	// the sequence is rolled back too
	require.NoError(t, s.Update(func(tx *Tx) error {
		id, err := notes.Add(tx, note{Body: "next"})
		assert.Equal(t, int64(2), id)
		return err
	}))
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	s := New("")
	notes := newNotes(s)
	require.NoError(t, s.Open())

	err := s.View(func(tx *Tx) error {
		_, err := notes.Add(tx, note{Body: "x"})
		return err
	})

	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = notes.Put(nil, note{Body: "x"})
	assert.ErrorIs(t, err, ErrNoTx)
}

func TestStore_ClosedStore(t *testing.T) {
	s := New("")
	newNotes(s)

	assert.NoError(t, s.Close(), "closing an unopened store is a no-op")
	assert.ErrorIs(t, s.Open(), ErrClosed)
	assert.ErrorIs(t, s.View(func(*Tx) error { return nil }), ErrClosed)
}

func TestStore_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.json")

	s := New(path)
	notes := newNotes(s)
	pairs := newPairs(s)
	require.NoError(t, s.Open())
	require.NoError(t, s.Update(func(tx *Tx) error {
		if _, err := notes.Add(tx, note{Body: "a", Folder: folder(7)}); err != nil {
			return err
		}
		if _, err := notes.Add(tx, note{Body: "b"}); err != nil {
			return err
		}
		if err := notes.Delete(tx, 2); err != nil {
			return err
		}
		_, err := pairs.Put(tx, pair{1, 9})
		return err
	}))
	require.NoError(t, s.Close())

	reopened := New(path)
	notes2 := newNotes(reopened)
	pairs2 := newPairs(reopened)
	require.NoError(t, reopened.Open())
	defer reopened.Close()

	require.NoError(t, reopened.View(func(tx *Tx) error {
		all := notes2.All(tx)
		require.Len(t, all, 1)
		assert.Equal(t, "a", all[0].Body)
		inSeven, err := notes2.Where(tx, "folder", int64(7))
		require.NoError(t, err)
		assert.Len(t, inSeven, 1)
		assert.Equal(t, []pair{{1, 9}}, pairs2.All(tx))
		return nil
	}))

	// deleted key 2 is not reused
	require.NoError(t, reopened.Update(func(tx *Tx) error {
		id, err := notes2.Add(tx, note{Body: "c"})
		assert.Equal(t, int64(3), id)
		return err
	}))
}

func TestStore_SecondOpenerIsLockedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	first := New(path)
	newNotes(first)
	require.NoError(t, first.Open())
	defer first.Close()

	second := New(path)
	newNotes(second)
	assert.ErrorIs(t, second.Open(), ErrLocked)
}

func TestStore_OpenTwiceIsNoop(t *testing.T) {
	s := New("")
	notes := newNotes(s)
	require.NoError(t, s.Open())
	require.NoError(t, s.Update(func(tx *Tx) error {
		_, err := notes.Add(tx, note{Body: "a"})
		return err
	}))

	require.NoError(t, s.Open())

	require.NoError(t, s.View(func(tx *Tx) error {
		assert.Equal(t, 1, notes.Count(tx))
		return nil
	}))
}
