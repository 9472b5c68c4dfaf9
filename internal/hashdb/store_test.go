package hashdb

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreInsertContains(t *testing.T) {
	s := NewStore(0)
	p := Pair{Hi: 42, Lo: 7}

	require.False(t, s.Contains(p))
	require.True(t, s.Insert(p))
	require.True(t, s.Contains(p))
	require.False(t, s.Insert(p), "second insert of the same pair must report already-present")
	require.Equal(t, 1, s.Len())
}

func TestStoreStaysSortedAndUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	s := NewStore(0)
	for i := 0; i < 1000; i++ {
		s.Insert(Pair{Hi: rng.Uint64() % 64, Lo: rng.Uint64() % 64})
	}

	for i := 1; i < len(s.pairs); i++ {
		require.Equal(t, -1, s.pairs[i-1].Compare(s.pairs[i]),
			"store must be strictly ascending at index %d", i)
	}
}

func TestStoreBulkInsert(t *testing.T) {
	s := NewStore(0)
	existing := Pair{Hi: 5, Lo: 5}
	require.True(t, s.Insert(existing))

	b := Pair{Hi: 9, Lo: 0}
	a := Pair{Hi: 1, Lo: 0}

	added := s.BulkInsert([]Pair{b, existing, a, b})

	// Only the genuinely new pairs come back, in arrival order, with the
	// in-batch duplicate counted once.
	require.Equal(t, []Pair{b, a}, added)
	require.Equal(t, 3, s.Len())
}

func TestStoreSetAll(t *testing.T) {
	s := NewStore(0)
	resorted := s.setAll([]Pair{{Hi: 3}, {Hi: 1}, {Hi: 2}, {Hi: 1}})
	require.True(t, resorted)
	require.Equal(t, 3, s.Len())
	require.Equal(t, []Pair{{Hi: 1}, {Hi: 2}, {Hi: 3}}, s.pairs)

	sorted := NewStore(0)
	resorted = sorted.setAll([]Pair{{Hi: 1}, {Hi: 2}, {Hi: 3}})
	require.False(t, resorted)
	require.Equal(t, 3, sorted.Len())
}

func TestStoreIndexOf(t *testing.T) {
	s := NewStore(0)
	for _, p := range []Pair{{Hi: 1}, {Hi: 3}, {Hi: 5}} {
		require.True(t, s.Insert(p))
	}

	pos, ok := s.IndexOf(Pair{Hi: 3})
	require.True(t, ok)
	require.Equal(t, 1, pos)

	_, ok = s.IndexOf(Pair{Hi: 4})
	require.False(t, ok)
}

func TestStoreWriteText(t *testing.T) {
	s := NewStore(0)
	p1 := Pair{Hi: 2, Lo: 2}
	p2 := Pair{Hi: 1, Lo: 1}
	s.Insert(p1)
	s.Insert(p2)

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	require.Equal(t, p2.String()+"\n"+p1.String()+"\n", buf.String())
}
