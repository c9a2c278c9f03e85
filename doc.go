/*
Package kvlog implements an embedded, log-structured key-value store.

All mutations are appended to a single log file and flushed to disk
before the call returns. An in-memory index maps each live key to the
offset of its latest set record, so reads are a single ReadAt. On open
the index is rebuilt by replaying the log from the beginning, which is
how the store recovers after a crash.

# Basic Usage

	s, err := kvlog.Open("app.kvlog")
	if err != nil {
	    log.Fatal(err)
	}
	defer s.Close()

	err = s.Set("name", []byte("John Doe"))
	v, ok, err := s.Get("name")
	err = s.Delete("name")

Deleting a key that is not in the store returns [ErrKeyNotFound].
Get of a missing key is not an error, it returns ok == false.

# On-Disk Format

The log is a sequence of self-delimiting binary records:

	crc32(4) | kind(1) | keyLen(4) | valLen(4) | key | value

Lengths are little-endian. The checksum covers everything after the
crc field. Length-prefixed framing means keys and values can contain
arbitrary bytes, and a reader starting at byte 0 can walk every record
boundary using only the file's own bytes.

# Compaction

Overwritten and deleted records stay in the log until [Store.Compact]
rewrites it with only the latest set record per live key. The new log
is built in a temporary file and renamed over the old one, so a crash
mid-compaction leaves the original log untouched.

# Ownership

A Store must be the only process with the file open; no file locking
is done. Within one process a Store is safe for concurrent use.
*/
package kvlog
