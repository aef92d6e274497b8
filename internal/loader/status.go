package loader

// StatusKind classifies the outcome of a handled message.
type StatusKind int

const (
	// StatusLoaded means entries were written to the model.
	StatusLoaded StatusKind = iota + 1
	// StatusEmpty means the fetch succeeded with no entries.
	StatusEmpty
	// StatusFailed means the fetch failed or the operation is unsupported.
	StatusFailed
	// StatusRejected means the message was not applicable and no fetch ran.
	StatusRejected
)

func (k StatusKind) String() string {
	switch k {
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Status is reported once per handled message.
type Status struct {
	ActorID string
	Message Kind
	Kind    StatusKind
	// Entries is the number of entries written to the model.
	Entries int
	Err     error
}
