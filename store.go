package kvlog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Store is one open log file plus the in-memory index for it. All
// state lives in the Store, there are no globals. Safe for concurrent
// use from multiple goroutines; mutations are serialized because an
// append and the matching index update are two separate steps.
type Store struct {
	path   string
	config *config

	mu     sync.RWMutex
	log    *logFile
	keydir map[string]int64

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the store at path and rebuilds the index by
// replaying the log. Replay cost is proportional to the log size on
// disk. A decode failure during replay fails the open unless the
// TruncateCorruptTail option is set.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	lf, err := openLogFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	keydir, goodOff, err := buildIndex(lf)
	if err != nil {
		if !cfg.truncateCorruptTail || !errors.Is(err, ErrCorruptRecord) {
			lf.close()
			return nil, fmt.Errorf("failed to replay log %s: %w", path, err)
		}
		// keep the records that replayed cleanly, drop the rest
		if terr := lf.truncate(goodOff); terr != nil {
			lf.close()
			return nil, fmt.Errorf("failed to truncate corrupt tail of %s: %w", path, terr)
		}
	}

	s := &Store{
		path:   path,
		config: cfg,
		log:    lf,
		keydir: keydir,
	}
	if cfg.compress {
		s.enc, err = zstd.NewWriter(nil)
		if err == nil {
			s.dec, err = zstd.NewReader(nil)
		}
		if err != nil {
			lf.close()
			return nil, fmt.Errorf("failed to create zstd codec: %w", err)
		}
	}
	return s, nil
}

// Set writes key = value. The record is durable on disk before the
// index is updated, so there is no window where the index points at
// data that could be lost by a crash.
func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil {
		return ErrStoreClosed
	}
	if s.config.compress {
		value = s.enc.EncodeAll(value, nil)
	}
	d := marshalRecord(record{kind: kindSet, key: key, value: value}, nil)
	off, err := s.log.append(d)
	if err != nil {
		return fmt.Errorf("failed to append set record for key %q: %w", key, err)
	}
	s.keydir[key] = off
	return nil
}

// Get returns the value for key. A missing key is not an error: ok is
// false and err is nil. err is non-nil only for IO failures or a
// corrupt record.
func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.log == nil {
		return nil, false, ErrStoreClosed
	}
	off, ok := s.keydir[key]
	if !ok {
		return nil, false, nil
	}
	value, err := s.readValueAt(key, off)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// readValueAt reads the set record at off and returns its value. The
// record must be a set record for exactly this key; anything else
// means the index and the log are out of sync, which is reported
// instead of silently returning wrong data.
func (s *Store) readValueAt(key string, off int64) ([]byte, error) {
	rec, _, err := s.log.readRecordAt(off)
	if err != nil {
		return nil, err
	}
	if rec.kind != kindSet || rec.key != key {
		return nil, corruptErr(off, "expected set record for key %q", key)
	}
	value := rec.value
	if s.config.compress {
		value, err = s.dec.DecodeAll(value, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress value for key %q: %w", key, err)
		}
	}
	return value, nil
}

// Delete removes key from the store. Deleting a key that is not in
// the store returns ErrKeyNotFound; it's a deliberate policy, not a
// silent no-op, so callers can tell the two cases apart.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil {
		return ErrStoreClosed
	}
	if _, ok := s.keydir[key]; !ok {
		return ErrKeyNotFound
	}
	d := marshalRecord(record{kind: kindDelete, key: key}, nil)
	if _, err := s.log.append(d); err != nil {
		return fmt.Errorf("failed to append delete record for key %q: %w", key, err)
	}
	delete(s.keydir, key)
	return nil
}

// Has returns true if key is live in the store.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keydir[key]
	return ok
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keydir)
}

// Keys returns all live keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.keydir))
	for k := range s.keydir {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the log file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Stats describes the current state of a store.
type Stats struct {
	Path     string `json:"path"`
	LiveKeys int    `json:"live_keys"`
	// LogSize is the size of the log file in bytes, including
	// overwritten and deleted records not yet compacted away
	LogSize int64 `json:"log_size"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Path:     s.path,
		LiveKeys: len(s.keydir),
	}
	if s.log != nil {
		st.LogSize = s.log.size
	}
	return st
}

// Close closes the log file handle. Every mutation is flushed as it
// happens so there is nothing else to do. Calling Close twice is a
// no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil {
		return nil
	}
	err := s.log.close()
	s.log = nil
	s.keydir = nil
	if s.enc != nil {
		s.enc.Close()
		s.enc = nil
	}
	if s.dec != nil {
		s.dec.Close()
		s.dec = nil
	}
	return err
}
