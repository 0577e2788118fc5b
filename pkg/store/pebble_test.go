package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	s := openTestStore(t)
	var lastID uint64
	var lastTS int64
	for i := 0; i < 10; i++ {
		m, err := s.Insert(fmt.Sprintf("plain-%d", i), "ct", "v1")
		require.NoError(t, err)
		require.Greater(t, m.ID, lastID, "ids must strictly increase")
		require.Greater(t, m.TS, lastTS, "timestamps must strictly increase")
		lastID = m.ID
		lastTS = m.TS
	}
	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(10), n)
}

func TestInsertStoresAllFields(t *testing.T) {
	s := openTestStore(t)
	m, err := s.Insert("hello", "Y2lwaGVy", "v2")
	require.NoError(t, err)

	got, err := s.ListRecent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, m.ID, got[0].ID)
	require.Equal(t, "hello", got[0].Plaintext)
	require.Equal(t, "Y2lwaGVy", got[0].Ciphertext)
	require.Equal(t, "v2", got[0].KeyVersion)
	require.Equal(t, m.TS, got[0].TS)
}

func TestListRecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.Insert(fmt.Sprintf("m%d", i), "ct", "v1")
		require.NoError(t, err)
	}
	got, err := s.ListRecent(3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "m4", got[0].Plaintext)
	require.Equal(t, "m3", got[1].Plaintext)
	require.Equal(t, "m2", got[2].Plaintext)
}

func TestListRecentClampsLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		_, err := s.Insert(fmt.Sprintf("m%d", i), "ct", "v1")
		require.NoError(t, err)
	}
	for _, limit := range []int{0, -7, DefaultHistoryLimit + 100} {
		got, err := s.ListRecent(limit)
		require.NoError(t, err)
		require.Len(t, got, DefaultHistoryLimit, "limit %d should clamp to default", limit)
	}
}

func TestListRecentEmptyStore(t *testing.T) {
	s := openTestStore(t)
	got, err := s.ListRecent(10)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestReopenRestoresIDCounter(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Insert("m", "ct", "v1")
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	m, err := s2.Insert("after reopen", "ct", "v1")
	require.NoError(t, err)
	require.Equal(t, uint64(4), m.ID, "id counter must resume past existing records")

	got, err := s2.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "after reopen", got[0].Plaintext)
}

func TestConcurrentInsertsStayOrdered(t *testing.T) {
	s := openTestStore(t)
	const n = 50
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := s.Insert(fmt.Sprintf("c%d", i), "ct", "v1")
			done <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}

	got, err := s.ListRecent(DefaultHistoryLimit)
	require.NoError(t, err)
	require.Len(t, got, n)
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i-1].ID, got[i].ID)
		require.Greater(t, got[i-1].TS, got[i].TS)
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.False(t, s.Ready())

	_, err = s.Insert("m", "ct", "v1")
	require.Error(t, err)
	_, err = s.ListRecent(1)
	require.Error(t, err)
}
