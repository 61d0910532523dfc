package analytics

// Status tells callers whether report data could be computed.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// Result carries a report or marks it unavailable. Unavailable results still
// hold an empty value so callers can render empty charts.
type Result[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data"`
}

// Ok wraps computed data.
func Ok[T any](data T) Result[T] {
	return Result[T]{Status: StatusOK, Data: data}
}

// Unavailable returns a degraded result carrying empty.
func Unavailable[T any](empty T) Result[T] {
	return Result[T]{Status: StatusUnavailable, Data: empty}
}

// OK reports whether the data was computed.
func (r Result[T]) OK() bool { return r.Status == StatusOK }
