package logstore

import (
	"encoding/binary"
)

// Keyspace (byte-wise, lexicographically sortable):
//   - g/{group}                       group metadata (JSON)
//   - s/{group}/{stream}              stream metadata (JSON)
//   - l/{group}/{stream}/m            lastSeq (8B BE)
//   - l/{group}/{stream}/e/{seq_be8}  entries
//
// Names never contain '/', so a group or stream prefix cannot collide with a
// longer sibling.

var (
	sep          = byte('/')
	groupPrefix  = []byte("g/")
	streamPrefix = []byte("s/")
	logPrefix    = []byte("l/")
	metaSuffix   = []byte("m")
	entrySeg     = []byte("e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func keyGroup(group string) []byte {
	k := make([]byte, 0, len(groupPrefix)+len(group))
	k = append(k, groupPrefix...)
	return append(k, group...)
}

func keyStream(group, stream string) []byte {
	k := keyStreamsOf(group)
	return append(k, stream...)
}

// keyStreamsOf is the prefix of every stream metadata key in a group.
func keyStreamsOf(group string) []byte {
	k := make([]byte, 0, len(streamPrefix)+len(group)+32)
	k = append(k, streamPrefix...)
	k = append(k, group...)
	return append(k, sep)
}

func keyLogPrefix(group, stream string) []byte {
	k := make([]byte, 0, len(logPrefix)+len(group)+len(stream)+16)
	k = append(k, logPrefix...)
	k = append(k, group...)
	k = append(k, sep)
	k = append(k, stream...)
	return append(k, sep)
}

func keyLogMeta(group, stream string) []byte {
	return append(keyLogPrefix(group, stream), metaSuffix...)
}

func keyLogEntry(group, stream string, seq uint64) []byte {
	k := append(keyLogPrefix(group, stream), entrySeg...)
	return appendBE8(k, seq)
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
