// Package logstore persists log groups, their streams and stream entries in
// Pebble.
//
// A group holds streams; a stream is an append-only sequence of records, each
// with a sequence number, a millisecond timestamp, a source label and the
// message text. Sequences start at 1 and never repeat, even after trims.
//
//	store, _ := logstore.Open(db, logstore.Options{})
//	st, _ := store.Stream("app", "web-1")
//	seqs, _ := st.Append(ctx, []logstore.AppendRecord{{Message: "hello"}})
//	recs, _ := st.Read(logstore.ReadOptions{From: seqs[0], Limit: 100})
//	older, _ := st.Read(logstore.ReadOptions{From: seqs[0], Reverse: true})
//	_ = st.WaitForAppend(ctx)
//	_, _ = store.TrimOlderThan(ctx, cutoffMs)
package logstore
