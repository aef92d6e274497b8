// Package client provides the `logpager` command-line client.
//
// Commands talk to a logpager server over HTTP, or, with --data-dir, open a
// data directory directly (the server must not be running on it). Every
// command drives the loader actors: listings use a ListActor, `view` uses an
// Actor with an in-memory model.
//
// Usage
//
//	logpager groups
//	logpager streams --group app
//
//	# first page, then two more pages forward
//	logpager view --stream app/web --forward 2
//
//	# the minute before an incident, then one page further back
//	logpager view --stream app/web --at 2025-09-20T12:00:00Z --window 1m --backward 1
//
//	# filtered view, then keep following new matches
//	logpager view --stream app/web --filter 'text.contains("ERROR")' --follow
//
//	# export streams to files, or to stdout with a page limit and resume token
//	logpager export --stream app/web --stream app/worker --out ./logs
//	logpager export --stream app/web --max-pages 20 > web.log
//	logpager export --stream app/web --resume <token> --until <ms> >> web.log
//
//	tail -f app.log | logpager ingest --group app --stream web --source host-1
//
// The server URL comes from --api-url, LOGPAGER_API_URL or the config file
// (default http://127.0.0.1:8080).
package client
