package kvlog

// Option configures a Store at Open time.
type Option func(*config)

type config struct {
	compress            bool
	truncateCorruptTail bool
}

// CompressValues makes the store transparently compress values with
// zstd before writing and decompress them on Get. A store written with
// compression enabled must be reopened with it enabled.
func CompressValues(enable bool) Option {
	return func(c *config) {
		c.compress = enable
	}
}

// TruncateCorruptTail makes Open discard a corrupt trailing record
// (the typical symptom of a crash mid-append) instead of failing the
// open. Everything at and after the first bad record is dropped. By
// default Open fails with ErrCorruptRecord.
func TruncateCorruptTail(enable bool) Option {
	return func(c *config) {
		c.truncateCorruptTail = enable
	}
}

func defaultConfig() *config {
	return &config{}
}
