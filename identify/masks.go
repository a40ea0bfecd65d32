// Package identify implements the FILE lookup contract from spec §4.7:
// resolve an (ed2k, size) pair to anime/episode/group metadata over an
// already-authenticated protocol.Client.
package identify

// DefaultFileMask and DefaultAnimeMask pin the fmask/amask bit layout
// the FILE command uses (spec §9 open question b: "implementers should
// pin a fixed mask ... and document it as part of the wire-compat
// surface"). Bit numbering matches AniDB's published UDP API
// documentation, MSB first within each byte, for the fixed field set
// spec §4.7 names: aid, eid, gid, anime title, episode number, group
// name.
var (
	// fmask byte 2: gid (bit 0x02), eid (bit 0x40); byte 5: aid (bit 0x08)
	DefaultFileMask = [5]byte{0x00, 0x00, 0x42, 0x00, 0x08}
	// amask byte 1: romaji name (bit 0x80); byte 3: episode number (bit 0x40), episode name implied
	DefaultAnimeMask = [4]byte{0x80, 0x00, 0x00, 0x40}
)

func maskHex(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
