package kvlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alecthomas/assert"
)

func testPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.kvlog")
}

func mustGet(t *testing.T, s *Store, key string) []byte {
	t.Helper()
	v, ok, err := s.Get(key)
	assert.NoError(t, err)
	assert.True(t, ok, "key %q should be present", key)
	return v
}

func assertAbsent(t *testing.T, s *Store, key string) {
	t.Helper()
	v, ok, err := s.Get(key)
	assert.NoError(t, err)
	assert.False(t, ok, "key %q should be absent", key)
	assert.Nil(t, v)
}

func TestEmptyStore(t *testing.T) {
	path := testPath(t)
	s, err := Open(path)
	assert.NoError(t, err)

	assert.Equal(t, 0, s.Len())
	assert.Len(t, s.Keys(), 0)
	assertAbsent(t, s, "anything")
	assertAbsent(t, s, "")
	assert.NoError(t, s.Close())

	// reopening an empty log is still zero records
	s, err = Open(path)
	assert.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.NoError(t, s.Close())
}

func TestSetGet(t *testing.T) {
	s, err := Open(testPath(t))
	assert.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Set("name", []byte("John Doe")))
	assert.Equal(t, []byte("John Doe"), mustGet(t, s, "name"))

	// keys and values can contain arbitrary bytes
	key := "bin\x00key\nwith newline"
	val := []byte{0, 1, 2, 3, 255, '\n', 0}
	assert.NoError(t, s.Set(key, val))
	assert.Equal(t, val, mustGet(t, s, key))

	// empty value is a real value, not a tombstone
	assert.NoError(t, s.Set("empty", []byte{}))
	v, ok, err := s.Get("empty")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, v, 0)

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("name"))
	assert.False(t, s.Has("nope"))
}

func TestOverwrite(t *testing.T) {
	s, err := Open(testPath(t))
	assert.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Set("k", []byte("v1")))
	assert.NoError(t, s.Set("k", []byte("v2")))
	assert.Equal(t, []byte("v2"), mustGet(t, s, "k"))
	assert.Equal(t, 1, s.Len())
}

func TestDelete(t *testing.T) {
	s, err := Open(testPath(t))
	assert.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Set("k", []byte("v")))
	assert.NoError(t, s.Delete("k"))
	assertAbsent(t, s, "k")

	// deleting an absent key is an error, not a silent no-op
	err = s.Delete("k")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	err = s.Delete("never-set")
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	// a key can come back after a delete
	assert.NoError(t, s.Set("k", []byte("again")))
	assert.Equal(t, []byte("again"), mustGet(t, s, "k"))
}

func TestPersistence(t *testing.T) {
	path := testPath(t)

	s, err := Open(path)
	assert.NoError(t, err)
	assert.NoError(t, s.Set("a", []byte("1")))
	assert.NoError(t, s.Set("b", []byte("2")))
	assert.NoError(t, s.Set("a", []byte("3")))
	assert.NoError(t, s.Delete("b"))
	assert.NoError(t, s.Close())

	// the index is fully reconstructible from the log alone
	s, err = Open(path)
	assert.NoError(t, err)
	assert.Equal(t, []byte("3"), mustGet(t, s, "a"))
	assertAbsent(t, s, "b")
	assert.Equal(t, 1, s.Len())
	assert.NoError(t, s.Close())
}

func TestClosedStore(t *testing.T) {
	s, err := Open(testPath(t))
	assert.NoError(t, err)
	assert.NoError(t, s.Set("k", []byte("v")))
	assert.NoError(t, s.Close())

	err = s.Set("k", []byte("v"))
	assert.True(t, errors.Is(err, ErrStoreClosed))
	_, _, err = s.Get("k")
	assert.True(t, errors.Is(err, ErrStoreClosed))
	err = s.Delete("k")
	assert.True(t, errors.Is(err, ErrStoreClosed))
	err = s.Compact()
	assert.True(t, errors.Is(err, ErrStoreClosed))

	// Close twice is a no-op
	assert.NoError(t, s.Close())
}

func TestKeys(t *testing.T) {
	s, err := Open(testPath(t))
	assert.NoError(t, err)
	defer s.Close()

	for _, k := range []string{"c", "a", "b"} {
		assert.NoError(t, s.Set(k, []byte(k)))
	}
	assert.NoError(t, s.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, s.Keys())
}

func TestStats(t *testing.T) {
	path := testPath(t)
	s, err := Open(path)
	assert.NoError(t, err)
	defer s.Close()

	st := s.Stats()
	assert.Equal(t, path, st.Path)
	assert.Equal(t, 0, st.LiveKeys)
	assert.Equal(t, int64(0), st.LogSize)

	assert.NoError(t, s.Set("k", []byte("v")))
	st = s.Stats()
	assert.Equal(t, 1, st.LiveKeys)
	assert.Equal(t, int64(recordHeaderSize+2), st.LogSize)

	// stats come from the tracked size, verify against the real file
	fi, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, fi.Size(), st.LogSize)
}

func TestCompressedValues(t *testing.T) {
	path := testPath(t)
	s, err := Open(path, CompressValues(true))
	assert.NoError(t, err)

	// highly repetitive value, should shrink a lot
	var val []byte
	for i := 0; i < 2000; i++ {
		val = append(val, "all work and no play "...)
	}
	assert.NoError(t, s.Set("text", val))
	assert.Equal(t, val, mustGet(t, s, "text"))
	assert.True(t, s.Stats().LogSize < int64(len(val)),
		"log size %d should be smaller than raw value %d", s.Stats().LogSize, len(val))
	assert.NoError(t, s.Close())

	// must reopen with the same option
	s, err = Open(path, CompressValues(true))
	assert.NoError(t, err)
	assert.Equal(t, val, mustGet(t, s, "text"))
	assert.NoError(t, s.Close())
}

// appendGarbage simulates a crash mid-append by appending a partial
// record to the log file
func appendGarbage(t *testing.T, path string, d []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	assert.NoError(t, err)
	_, err = f.Write(d)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestCorruptTailFailsOpen(t *testing.T) {
	path := testPath(t)
	s, err := Open(path)
	assert.NoError(t, err)
	assert.NoError(t, s.Set("k", []byte("v")))
	assert.NoError(t, s.Close())

	full := marshalRecord(record{kind: kindSet, key: "lost", value: []byte("lost")}, nil)
	appendGarbage(t, path, full[:len(full)-2])

	_, err = Open(path)
	assert.True(t, errors.Is(err, ErrCorruptRecord), "expected ErrCorruptRecord, got %v", err)
}

func TestTruncateCorruptTail(t *testing.T) {
	path := testPath(t)
	s, err := Open(path)
	assert.NoError(t, err)
	assert.NoError(t, s.Set("k", []byte("v")))
	assert.NoError(t, s.Close())

	goodSize := int64(recordHeaderSize + 2)
	appendGarbage(t, path, []byte{1, 2, 3, 4, 5})

	s, err = Open(path, TruncateCorruptTail(true))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), mustGet(t, s, "k"))
	assert.Equal(t, goodSize, s.Stats().LogSize)

	// the store is fully usable after the repair
	assert.NoError(t, s.Set("k2", []byte("v2")))
	assert.NoError(t, s.Close())

	// and the repaired log opens cleanly without the option
	s, err = Open(path)
	assert.NoError(t, err)
	assert.Equal(t, []byte("v2"), mustGet(t, s, "k2"))
	assert.NoError(t, s.Close())
}

func TestConcurrentOperations(t *testing.T) {
	s, err := Open(testPath(t))
	assert.NoError(t, err)
	defer s.Close()

	const numGoroutines = 8
	const numOps = 100

	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < numOps; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i)
				if err := s.Set(key, []byte(key)); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				v, ok, err := s.Get(key)
				if err != nil || !ok || string(v) != key {
					t.Errorf("Get %q: v=%q ok=%v err=%v", key, v, ok, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, numGoroutines*numOps, s.Len())
}
