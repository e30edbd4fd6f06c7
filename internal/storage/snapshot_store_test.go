package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aikinexis/flint/internal/memory"
	"github.com/Aikinexis/flint/internal/types"
)

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store, err := OpenSnapshotStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	mm := memory.NewManager()
	mm.Add("1", "machine learning with neural networks", types.Metadata{"pinned": true})
	mm.Add("2", "grocery list for the week", nil)
	mm.Train()
	want := mm.Search("neural networks", memory.SearchOptions{TopK: 2})

	require.NoError(t, store.Save(mm.Export(), mm.VocabState()))

	items, vocab, err := store.Load()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ID, "snapshot order preserves insertion order")
	assert.NotEmpty(t, items[0].Vector, "trained vectors are reattached on load")

	restored := memory.NewManager()
	restored.Import(items)
	restored.RestoreVocab(vocab)

	assert.Equal(t, mm.GetStats(), restored.GetStats())
	assert.Equal(t, want, restored.Search("neural networks", memory.SearchOptions{TopK: 2}),
		"a restored session is search-ready without retraining")
}

func TestSnapshotStore_UntrainedSnapshot(t *testing.T) {
	store, err := OpenSnapshotStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	mm := memory.NewManager()
	mm.Add("1", "not yet trained", nil)
	require.NoError(t, store.Save(mm.Export(), mm.VocabState()))

	items, vocab, err := store.Load()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Vector)
	assert.Empty(t, vocab.Terms)
}

func TestSnapshotStore_SaveReplacesPrevious(t *testing.T) {
	store, err := OpenSnapshotStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	mm := memory.NewManager()
	mm.Add("old-1", "first generation snapshot", nil)
	mm.Add("old-2", "second item in first snapshot", nil)
	mm.Train()
	require.NoError(t, store.Save(mm.Export(), mm.VocabState()))

	replacement := memory.NewManager()
	replacement.Add("new", "the only surviving item", nil)
	replacement.Train()
	require.NoError(t, store.Save(replacement.Export(), replacement.VocabState()))

	items, _, err := store.Load()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
}

func TestSnapshotStore_ItemAddedAfterTrainGetsZeroVector(t *testing.T) {
	store, err := OpenSnapshotStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	mm := memory.NewManager()
	mm.Add("1", "alpha beta", nil)
	mm.Train()
	mm.Add("2", "added after training", nil)

	require.NoError(t, store.Save(mm.Export(), mm.VocabState()))
	items, vocab, err := store.Load()
	require.NoError(t, err)
	require.Len(t, items, 2)

	dim := len(vocab.Terms)
	require.Len(t, items[1].Vector, dim)
	for _, w := range items[1].Vector {
		assert.Equal(t, 0.0, w)
	}
}
