package protocol

import "github.com/google/uuid"

// NewTag mints a unique per-request correlation tag (spec §4.6). AniDB
// tags are opaque client-chosen strings; a UUID keeps tags unique
// across process restarts without the client tracking a counter.
func NewTag() string {
	return "t" + uuid.NewString()[:12]
}
