// Package runtime wires storage, configuration and the log store into a
// single-node instance.
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	defer rt.Close()
//	_ = rt.CheckHealth(ctx)
//	st, _ := rt.Store().Stream("app", "web-1")
//	_, _ = st.Append(ctx, []logstore.AppendRecord{{Message: "hello"}})
package runtime
