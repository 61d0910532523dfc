package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxSpanKey struct{}

// PGXTracer implements pgx.QueryTracer to create spans for ledger queries.
type PGXTracer struct{}

// TraceQueryStart starts a span for the SQL statement.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := "query"
	if fields := strings.Fields(data.SQL); len(fields) > 0 {
		op = strings.ToLower(fields[0])
	}
	ctx, span := otel.Tracer("db.pgx").Start(ctx, "pgx."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.statement", truncateSQL(data.SQL)),
	)
	return context.WithValue(ctx, ctxSpanKey{}, span)
}

// TraceQueryEnd ends the span and records any error.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(ctxSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	span.End()
}

func truncateSQL(sql string) string {
	trimmed := strings.Join(strings.Fields(sql), " ")
	if len(trimmed) > 300 {
		return trimmed[:300] + "..."
	}
	return trimmed
}
