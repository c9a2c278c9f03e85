package kvlog

import (
	"os"
)

// logFile is an append-only file with random-offset reads. It tracks
// its own size so appends don't need a Seek and truncated records can
// be detected without re-stating the file.
type logFile struct {
	path string
	file *os.File
	size int64
}

// openLogFile opens or creates the file at path. No parsing happens
// here, replay is the caller's job.
func openLogFile(path string) (*logFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &logFile{path: path, file: f, size: st.Size()}, nil
}

// append writes d at the current end of the file and flushes it to
// disk before returning, so a crash right after a successful append
// cannot lose the record. Returns the offset d was written at.
func (lf *logFile) append(d []byte) (int64, error) {
	off := lf.size
	if _, err := lf.file.WriteAt(d, off); err != nil {
		return 0, err
	}
	if err := lf.file.Sync(); err != nil {
		return 0, err
	}
	lf.size += int64(len(d))
	return off, nil
}

// readRecordAt decodes exactly one record starting at off.
func (lf *logFile) readRecordAt(off int64) (record, int64, error) {
	return readRecordAt(lf.file, off, lf.size)
}

// truncate drops everything at and after size. Used to discard a
// corrupt tail left by a crash mid-append.
func (lf *logFile) truncate(size int64) error {
	if err := lf.file.Truncate(size); err != nil {
		return err
	}
	lf.size = size
	return nil
}

func (lf *logFile) close() error {
	if lf.file == nil {
		return nil
	}
	err := lf.file.Close()
	lf.file = nil
	return err
}
