package loader

// ViewModel is the ordered, insertion-ordered collection an actor renders
// into. An actor is its only writer while the actor is active; every call is
// made from the actor's goroutine.
type ViewModel[T any] interface {
	ReplaceAll(items []T)
	AppendRange(items []T)
	PrependRange(items []T)
	Clear()
	// SetEmptyStatus sets the hint shown when the model has no rows.
	SetEmptyStatus(message string)
}
