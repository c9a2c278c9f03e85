package kvlog

import (
	"fmt"

	"github.com/kjk/kvlog/atomicfile"
)

// Compact rewrites the log so it contains exactly one set record per
// live key, dropping overwritten values and deleted keys. The on-disk
// size becomes proportional to the number of live keys instead of the
// full mutation history. Get returns the same values after compaction
// as before it.
//
// The compacted log is built in a temporary file in the same
// directory and renamed over the original, so an error anywhere
// before the rename leaves the old log and index fully intact and the
// store serviceable. The rename is the only point of no return.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil {
		return ErrStoreClosed
	}

	w, err := atomicfile.New(s.path)
	if err != nil {
		return fmt.Errorf("failed to create compaction file: %w", err)
	}
	defer w.RemoveIfNotClosed()

	// every offset in the index points at a live, valid set record,
	// copy each one and remember where it landed
	newKeydir := make(map[string]int64, len(s.keydir))
	var newOff int64
	var buf []byte
	for key, off := range s.keydir {
		rec, _, err := s.log.readRecordAt(off)
		if err != nil {
			return fmt.Errorf("failed to read record for key %q: %w", key, err)
		}
		if rec.kind != kindSet || rec.key != key {
			return corruptErr(off, "expected set record for key %q", key)
		}
		buf = marshalRecord(rec, buf[:0])
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write compacted record for key %q: %w", key, err)
		}
		newKeydir[key] = newOff
		newOff += int64(len(buf))
	}

	// Close syncs the temp file and renames it over the log
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to replace log file: %w", err)
	}

	lf, err := openLogFile(s.path)
	if err != nil {
		// the compacted file on disk is good, we just can't serve
		// from it; a reopen of the store will recover
		_ = s.log.close()
		s.log = nil
		return fmt.Errorf("failed to reopen compacted log: %w", err)
	}
	_ = s.log.close()
	s.log = lf
	s.keydir = newKeydir
	return nil
}
