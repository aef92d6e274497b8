package local

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/rzbill/logpager/internal/loader"
)

var (
	// ErrInvalidToken is returned for tokens this package did not issue.
	ErrInvalidToken = errors.New("local: invalid token")
	// ErrInvalidStreamID is returned for identifiers not of the form group/stream.
	ErrInvalidStreamID = errors.New("local: invalid stream id")
)

// EncodeToken returns the token naming seq.
func EncodeToken(seq uint64) loader.Token {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return loader.Token(base64.RawURLEncoding.EncodeToString(b[:]))
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(t loader.Token) (uint64, error) {
	b, err := base64.RawURLEncoding.DecodeString(string(t))
	if err != nil || len(b) != 8 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidToken, string(t))
	}
	return binary.BigEndian.Uint64(b), nil
}

// StreamID joins a group and stream name.
func StreamID(group, stream string) string { return group + "/" + stream }

// SplitStreamID is the inverse of StreamID.
func SplitStreamID(id string) (group, stream string, err error) {
	group, stream, ok := strings.Cut(id, "/")
	if !ok || group == "" || stream == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidStreamID, id)
	}
	return group, stream, nil
}
