package loader

import "context"

// Fetcher reads pages of a log stream.
//
// Implementations must honour ctx cancellation and must return backward pages
// already in chronological order.
type Fetcher interface {
	FetchForward(ctx context.Context, stream string, req ForwardRequest) (Page, error)
	FetchBackward(ctx context.Context, stream string, token Token) (Page, error)
}

// FilterSupporter is implemented by fetchers able to evaluate
// ForwardRequest.Filter. Fetchers that do not implement it are treated as
// unable to filter.
type FilterSupporter interface {
	SupportsFilter() bool
}

func supportsFilter(f Fetcher) bool {
	fs, ok := f.(FilterSupporter)
	return ok && fs.SupportsFilter()
}

// ListFetcher enumerates a resource page by page.
type ListFetcher[T any] interface {
	List(ctx context.Context, token Token) (ListPage[T], error)
}

// ListFunc adapts a function to ListFetcher.
type ListFunc[T any] func(ctx context.Context, token Token) (ListPage[T], error)

func (f ListFunc[T]) List(ctx context.Context, token Token) (ListPage[T], error) {
	return f(ctx, token)
}
