// Package httpserver serves the log store over JSON.
//
// Routes:
//
//	GET  /v1/healthz
//	GET  /v1/groups?after=&limit=
//	GET  /v1/groups/streams?group=&after=&limit=
//	GET  /v1/events/forward?stream=group/name&token=&start=&end=&filter=&waitMs=
//	GET  /v1/events/backward?stream=group/name&token=
//	POST /v1/events/ingest
//	GET  /metrics
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
