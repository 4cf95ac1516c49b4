// Package wire encodes event payloads for the store endpoint and decodes
// them according to the request's content encoding.
package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/kilianp07/selfreport/core/event"
)

// Content encodings understood by Decode.
const (
	EncodingDeflate  = "deflate"
	EncodingGzip     = "gzip"
	EncodingIdentity = ""
)

// ContentType is sent alongside encoded payloads.
const ContentType = "application/octet-stream"

// maxDecodedSize caps decompressed payloads.
const maxDecodedSize = 10 << 20

// ContentEncoding returns the encoding produced by Encode.
func ContentEncoding() string { return EncodingDeflate }

// Encode serialises ev as JSON and compresses it with zlib.
func Encode(ev *event.Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress event: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress event: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode for the given content encoding. Bodies without an
// encoding that do not look like JSON are treated as base64 wrapped zlib,
// the format of older clients.
func Decode(body []byte, contentEncoding string) (*event.Event, error) {
	raw, err := decompress(body, strings.ToLower(strings.TrimSpace(contentEncoding)))
	if err != nil {
		return nil, err
	}
	var ev event.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("bad data: %w", err)
	}
	return &ev, nil
}

func decompress(body []byte, enc string) ([]byte, error) {
	switch enc {
	case EncodingGzip:
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("bad gzip data: %w", err)
		}
		defer func() { _ = zr.Close() }()
		return readLimited(zr)
	case EncodingDeflate:
		return inflate(body)
	case EncodingIdentity, "identity":
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return trimmed, nil
		}
		dec, err := base64.StdEncoding.DecodeString(string(trimmed))
		if err != nil {
			return nil, fmt.Errorf("bad data: %w", err)
		}
		return inflate(dec)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
}

func inflate(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bad deflate data: %w", err)
	}
	defer func() { _ = zr.Close() }()
	return readLimited(zr)
}

func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("payload exceeds %d bytes", maxDecodedSize)
	}
	return out, nil
}
