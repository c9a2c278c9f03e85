package kvlog

// The index is a map from key to the offset of its latest live set
// record in the log. A key missing from the map is not live: it was
// never set, or its most recent record is a delete.

// buildIndex replays the log from offset 0 in file order and rebuilds
// the index. On a decode error it returns the index built so far and
// the offset of the bad record, so the caller can decide between
// failing the open and truncating the tail.
func buildIndex(lf *logFile) (map[string]int64, int64, error) {
	keydir := make(map[string]int64)
	var off int64
	for off < lf.size {
		rec, n, err := lf.readRecordAt(off)
		if err != nil {
			return keydir, off, err
		}
		switch rec.kind {
		case kindSet:
			keydir[rec.key] = off
		case kindDelete:
			delete(keydir, rec.key)
		}
		off += n
	}
	return keydir, off, nil
}
