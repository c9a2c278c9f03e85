package kvlog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// recordKind tags a record as a set or a delete
type recordKind byte

const (
	kindSet    recordKind = 1
	kindDelete recordKind = 2
)

// on-disk record layout:
// crc32(4) | kind(1) | keyLen(4) | valLen(4) | key | value
// lengths are little-endian uint32, crc covers everything after the
// crc field. Delete records have valLen == 0 and no value bytes.
const recordHeaderSize = 4 + 1 + 4 + 4

type record struct {
	kind  recordKind
	key   string
	value []byte
}

// marshalRecord appends the serialized form of rec to buf and returns
// the resulting slice. Serialization is deterministic: the same record
// always produces the same bytes.
func marshalRecord(rec record, buf []byte) []byte {
	n := recordHeaderSize + len(rec.key) + len(rec.value)
	start := len(buf)
	buf = append(buf, make([]byte, n)...)
	d := buf[start:]
	d[4] = byte(rec.kind)
	binary.LittleEndian.PutUint32(d[5:9], uint32(len(rec.key)))
	binary.LittleEndian.PutUint32(d[9:13], uint32(len(rec.value)))
	copy(d[recordHeaderSize:], rec.key)
	copy(d[recordHeaderSize+len(rec.key):], rec.value)
	binary.LittleEndian.PutUint32(d[0:4], crc32.ChecksumIEEE(d[4:]))
	return buf
}

func corruptErr(off int64, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("record at offset %d: %s: %w", off, msg, ErrCorruptRecord)
}

// readRecordAt decodes exactly one record starting at off. fileSize
// bounds the read so a crash-truncated record is reported as
// ErrCorruptRecord instead of a short read. Returns the record and its
// length in bytes, so off+n is the offset of the next record.
func readRecordAt(r io.ReaderAt, off int64, fileSize int64) (record, int64, error) {
	var rec record
	if off < 0 || off >= fileSize {
		return rec, 0, corruptErr(off, "offset past end of log (size %d)", fileSize)
	}
	if fileSize-off < recordHeaderSize {
		return rec, 0, corruptErr(off, "truncated header")
	}
	var hdr [recordHeaderSize]byte
	if _, err := r.ReadAt(hdr[:], off); err != nil {
		return rec, 0, fmt.Errorf("failed to read record header at offset %d: %w", off, err)
	}
	kind := recordKind(hdr[4])
	if kind != kindSet && kind != kindDelete {
		return rec, 0, corruptErr(off, "unknown record kind %d", hdr[4])
	}
	keyLen := int64(binary.LittleEndian.Uint32(hdr[5:9]))
	valLen := int64(binary.LittleEndian.Uint32(hdr[9:13]))
	if kind == kindDelete && valLen != 0 {
		return rec, 0, corruptErr(off, "delete record with value of size %d", valLen)
	}
	n := recordHeaderSize + keyLen + valLen
	if off+n > fileSize {
		return rec, 0, corruptErr(off, "truncated record (%d bytes past end of log)", off+n-fileSize)
	}
	payload := make([]byte, keyLen+valLen)
	if _, err := r.ReadAt(payload, off+recordHeaderSize); err != nil {
		return rec, 0, fmt.Errorf("failed to read record payload at offset %d: %w", off, err)
	}
	crc := crc32.ChecksumIEEE(hdr[4:])
	crc = crc32.Update(crc, crc32.IEEETable, payload)
	if crc != binary.LittleEndian.Uint32(hdr[0:4]) {
		return rec, 0, corruptErr(off, "checksum mismatch")
	}
	rec.kind = kind
	rec.key = string(payload[:keyLen])
	if kind == kindSet {
		rec.value = payload[keyLen:]
	}
	return rec, n, nil
}
