// Package protocol implements the AniDB UDP wire protocol: request/response
// framing and escaping (spec §4.5), the session state machine, the
// mandatory flood-control rate limiter, and retry/notification handling
// (spec §4.6). Grounded on the teacher's common/retryUtils.go (retry
// shape) and ste/pacer-tokenBucketPacer.go (token-bucket admission),
// generalized from HTTP byte-throughput pacing to UDP packet-count
// pacing.
package protocol

import (
	"bytes"
	"compress/flate"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/anidbgo/anidb/anerr"
)

// MaxDatagramBytes is the PPPoE-safe request size ceiling (spec §4.5).
const MaxDatagramBytes = 1400

var requestEscapes = strings.NewReplacer("&", "&amp;", "\n", "<br />")

// EscapeField applies the request-side escaping spec §4.5 documents.
func EscapeField(v string) string {
	return requestEscapes.Replace(v)
}

var responseUnescapes = strings.NewReplacer("<br />", "\n", "`", "'", "/", "|")

// UnescapeField applies the response-side unescaping spec §4.5 documents.
func UnescapeField(v string) string {
	return responseUnescapes.Replace(v)
}

// Param is one key/value pair of a Request's parameter list. Spec §3
// defines Request.params as an ordered list, not a set, so the wire
// encoding of a given command is reproducible byte-for-byte.
type Param struct {
	Key   string
	Value string
}

// ParamsFromMap converts an unordered parameter map into a Param slice
// sorted by key, the deterministic order Encode relies on. Callers that
// build a Request from a map (most of protocol.Client's public surface)
// go through this rather than ranging the map directly.
func ParamsFromMap(m map[string]string) []Param {
	params := make([]Param, 0, len(m))
	for k, v := range m {
		params = append(params, Param{Key: k, Value: v})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Key < params[j].Key })
	return params
}

// Request is an outbound command before encoding.
type Request struct {
	Command string
	Params  []Param
	Tag     string
}

// Encode renders req as the wire line "COMMAND k=v&k=v&tag=...", applying
// field escaping to every value. Callers must keep the result under
// MaxDatagramBytes once encryption/compression overhead is added.
func (r Request) Encode() string {
	var b strings.Builder
	b.WriteString(r.Command)
	if len(r.Params) > 0 || r.Tag != "" {
		b.WriteByte(' ')
	}
	first := true
	writePair := func(k, v string) {
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(EscapeField(v))
	}
	for _, p := range r.Params {
		writePair(p.Key, p.Value)
	}
	if r.Tag != "" {
		writePair("tag", r.Tag)
	}
	return b.String()
}

// Response is a decoded reply: a numeric code, its text, and zero or
// more `|`-delimited data lines.
type Response struct {
	Tag       string
	Code      uint16
	Text      string
	DataLines [][]string
}

// DecodeResponse parses a raw (already decrypted/decompressed) response
// payload into a Response, applying field unescaping to every data cell.
func DecodeResponse(payload []byte) (*Response, error) {
	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, anerr.New(anerr.Protocol, "empty response payload")
	}

	header := lines[0]
	var tag string
	if sp := strings.IndexByte(header, ' '); sp > 0 {
		if maybeTag := header[:sp]; looksLikeTag(maybeTag) {
			tag = maybeTag
			header = header[sp+1:]
		}
	}

	fields := strings.SplitN(header, " ", 2)
	if len(fields) < 1 {
		return nil, anerr.New(anerr.Protocol, "malformed response header %q", header)
	}
	code64, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Protocol, "malformed response code in %q", header)
	}
	text := ""
	if len(fields) == 2 {
		text = fields[1]
	}

	resp := &Response{Tag: tag, Code: uint16(code64), Text: text}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		cells := strings.Split(line, "|")
		for i := range cells {
			cells[i] = UnescapeField(cells[i])
		}
		resp.DataLines = append(resp.DataLines, cells)
	}
	return resp, nil
}

func looksLikeTag(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// IsCompressed reports whether payload starts with the two zero bytes
// that mark a DEFLATE-compressed response body (spec §4.5); a tag never
// starts with two zero bytes so this check is unambiguous.
func IsCompressed(payload []byte) bool {
	return len(payload) >= 2 && payload[0] == 0 && payload[1] == 0
}

// Decompress inflates a DEFLATE payload, skipping its 2-byte marker.
func Decompress(payload []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(payload[2:]))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Protocol, "inflate response")
	}
	return out, nil
}

// sessionKey derives the AES-128 key for ENCRYPT mode: MD5(api_key ‖ salt).
func sessionKey(apiKey, salt string) []byte {
	sum := md5.Sum([]byte(apiKey + salt))
	return sum[:]
}

// Encrypt applies AES-128-CBC with PKCS#5 padding, per spec §4.5. The IV
// is always sixteen zero bytes: AniDB's protocol defines no per-message
// IV exchange, so the server and every compliant client use a fixed IV.
func Encrypt(apiKey, salt string, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(sessionKey(apiKey, salt))
	if err != nil {
		return nil, errors.Wrap(err, "build AES cipher")
	}
	padded := pkcs5Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, make([]byte, block.BlockSize())).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt.
func Decrypt(apiKey, salt string, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(sessionKey(apiKey, salt))
	if err != nil {
		return nil, errors.Wrap(err, "build AES cipher")
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, anerr.New(anerr.Protocol, "ciphertext not a multiple of the AES block size")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, make([]byte, block.BlockSize())).CryptBlocks(out, ciphertext)
	return pkcs5Unpad(out)
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs5Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, anerr.New(anerr.Protocol, "cannot unpad empty buffer")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, anerr.New(anerr.Protocol, "invalid PKCS#5 padding")
	}
	return data[:len(data)-padLen], nil
}
