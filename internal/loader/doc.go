// Package loader keeps an ordered view model in sync with a paginated log
// source.
//
// An Actor owns a pair of pagination cursors for one stream and processes
// control messages from its inbox strictly one at a time:
//
//	model := loader.NewListModel[loader.Entry]()
//	a := loader.NewActor(ctx, "app/web-1", fetcher, model,
//	    loader.WithLogger(logger),
//	    loader.OnStatus(func(s loader.Status) { /* render status */ }),
//	)
//	defer a.Dispose()
//
//	_ = a.Send(loader.LoadInitialRange{Anchor: t, Window: 5 * time.Minute})
//	_ = a.Send(loader.LoadBackward{})  // older entries are prepended
//	_ = a.Send(loader.LoadForward{})   // newer entries are appended
//
// A ListActor is the forward-only variant used to enumerate named resources
// such as log groups.
//
// Fetch failures are reported through the status observer and never stop the
// actor. After Dispose every Send fails with ErrInboxClosed, in-flight fetches
// are cancelled and their results discarded.
package loader
