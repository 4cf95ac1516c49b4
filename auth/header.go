// Package auth builds and parses the signed X-Sentry-Auth request header
// used by the store endpoint.
package auth

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// HeaderName is the request header carrying the credentials.
	HeaderName = "X-Sentry-Auth"
	// ProtocolVersion is the store protocol version emitted by this client.
	ProtocolVersion = 7

	scheme = "Sentry"
)

// ErrMissingKey is returned by Parse when the header carries no public key.
var ErrMissingKey = errors.New("missing sentry_key")

// Header holds the fields of an X-Sentry-Auth header.
type Header struct {
	Version   int
	Timestamp time.Time
	// Client identifies the sender as "<library-name>/<version>".
	Client    string
	PublicKey string
	SecretKey string
}

// String renders the header. Field order is fixed and sentry_secret is
// omitted when empty, so equal inputs always render identically.
func (h Header) String() string {
	parts := []string{
		"sentry_timestamp=" + strconv.FormatInt(h.Timestamp.Unix(), 10),
		"sentry_client=" + h.Client,
		"sentry_version=" + strconv.Itoa(h.Version),
		"sentry_key=" + h.PublicKey,
	}
	if h.SecretKey != "" {
		parts = append(parts, "sentry_secret="+h.SecretKey)
	}
	return scheme + " " + strings.Join(parts, ", ")
}

// Parse reads a header value produced by String or by any compatible client.
// The "Sentry " prefix is optional and unknown fields are ignored.
func Parse(value string) (Header, error) {
	var h Header
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, scheme+" "); ok {
		value = rest
	}
	if value == "" {
		return h, ErrMissingKey
	}
	for _, part := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch k {
		case "sentry_key":
			h.PublicKey = v
		case "sentry_secret":
			h.SecretKey = v
		case "sentry_client":
			h.Client = v
		case "sentry_version":
			n, err := strconv.Atoi(v)
			if err != nil {
				return h, fmt.Errorf("invalid sentry_version %q", v)
			}
			h.Version = n
		case "sentry_timestamp":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return h, fmt.Errorf("invalid sentry_timestamp %q", v)
			}
			sec, frac := math.Modf(f)
			h.Timestamp = time.Unix(int64(sec), int64(frac*1e9)).UTC()
		}
	}
	if h.PublicKey == "" {
		return h, ErrMissingKey
	}
	return h, nil
}
