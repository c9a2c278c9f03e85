package kvlog

import "errors"

// ErrKeyNotFound is returned by Delete when the key is not in the store.
var ErrKeyNotFound = errors.New("key not found")

// ErrCorruptRecord is returned when bytes in the log file don't form a
// valid record, e.g. after a crash truncated a write mid-record.
var ErrCorruptRecord = errors.New("corrupt record")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("store is closed")
