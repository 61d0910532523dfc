package obs

import "context"

// routePatternKey is the context key storing matched route pattern.
type routePatternKey struct{}

// requestFactsKey stores facts learned by inner handlers, such as the
// authenticated staff member, for the outer request logger.
type requestFactsKey struct{}

type requestFacts struct {
	staffID string
}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}

func withRequestFacts(ctx context.Context) (context.Context, *requestFacts) {
	facts := &requestFacts{}
	return context.WithValue(ctx, requestFactsKey{}, facts), facts
}

// SetStaffID records the authenticated staff member for request logs and spans.
// It is a no-op outside an instrumented request.
func SetStaffID(ctx context.Context, staffID string) {
	if facts, ok := ctx.Value(requestFactsKey{}).(*requestFacts); ok {
		facts.staffID = staffID
	}
}

// StaffIDFromContext returns the staff id recorded by SetStaffID.
func StaffIDFromContext(ctx context.Context) string {
	if facts, ok := ctx.Value(requestFactsKey{}).(*requestFacts); ok {
		return facts.staffID
	}
	return ""
}
