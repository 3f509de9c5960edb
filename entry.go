package g7z

import "time"

// entry is one logical payload enqueued by the caller, consumed exactly
// once during Finish.
type entry struct {
	name string

	// Exactly one of diskPath or data is meaningful, selected by
	// isDisk.
	isDisk   bool
	diskPath string
	data     []byte

	size    int64 // known immediately for in-memory entries, resolved from disk stat otherwise
	modTime *time.Time

	// crc is precomputed at enqueue time for in-memory entries (the
	// whole buffer is already in hand) and left zero for disk entries,
	// whose digest is accumulated block by block as Finish reads them.
	crc uint32

	// config is a snapshot of the Config active when this entry was
	// enqueued, so that Finish compresses every entry with the settings
	// that were active at the time it was added.
	config Config
}
