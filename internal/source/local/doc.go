// Package local serves loader fetches straight from a logstore.Store.
//
// Stream identifiers have the form "group/stream". Tokens are the base64url
// encoding of a big-endian sequence number: a forward token names the first
// sequence to read, a backward token the sequence below which to read.
//
// Filtered forward fetches scan the stream in batches, evaluating the CEL
// expression per record, until a page is full or the tail is reached. The
// context is checked between batches.
package local
