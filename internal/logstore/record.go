package logstore

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload).
// The header carries the event timestamp (8B BE, unix ms) followed by the
// source label; the payload is the message text.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

type Decoded struct {
	Header  []byte
	Payload []byte
}

// DecodeRecord validates the checksum and copies header and payload out of b.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if int(n)+int(hlen)+4 > len(b) {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{Header: append([]byte(nil), header...), Payload: append([]byte(nil), payload...)}, true
}

func encodeHeader(tsMs int64, source string) []byte {
	h := make([]byte, 0, 8+len(source))
	h = appendBE8(h, uint64(tsMs))
	return append(h, source...)
}

func decodeHeader(h []byte) (int64, string, bool) {
	if len(h) < 8 {
		return 0, "", false
	}
	return int64(binary.BigEndian.Uint64(h[:8])), string(h[8:]), true
}

// decodeEntry turns a stored value into a Record; ok is false on corruption.
func decodeEntry(seq uint64, value []byte) (Record, bool) {
	dec, ok := DecodeRecord(value)
	if !ok {
		return Record{}, false
	}
	ts, source, ok := decodeHeader(dec.Header)
	if !ok {
		return Record{}, false
	}
	return Record{Seq: seq, TimestampMs: ts, Source: source, Message: string(dec.Payload)}, true
}
