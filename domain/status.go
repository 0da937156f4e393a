package domain

// StatusKind tags the variant held by a Status
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusLoading
	StatusSuccess
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the listing request status: Idle, Loading, Success(Result) or
// Failed(Reason). Result is only meaningful for StatusSuccess, Reason and Err
// only for StatusFailed.
type Status struct {
	Kind   StatusKind
	Result ListingResult
	Reason string
	Err    error
}

// Idle returns the initial status
func Idle() Status { return Status{Kind: StatusIdle} }

// Loading returns the in-flight status
func Loading() Status { return Status{Kind: StatusLoading} }

// Succeeded wraps a listing result
func Succeeded(r ListingResult) Status {
	return Status{Kind: StatusSuccess, Result: r}
}

// Failed records a failure with its user-facing reason
func Failed(err error) Status {
	return Status{Kind: StatusFailed, Reason: FailureReason(err), Err: err}
}
