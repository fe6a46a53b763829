package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sanctuary/sanctuary-api/internal/logger"
)

// QueryTracer logs the duration and outcome of one statement.
// Arguments are counted, not logged, since they carry user ids and emails.
type QueryTracer struct {
	logger *logger.Logger
	query  string
	args   int
	start  time.Time
}

func NewQueryTracer(logger *logger.Logger, query string, args int) *QueryTracer {
	return &QueryTracer{
		logger: logger,
		query:  strings.Join(strings.Fields(query), " "),
		args:   args,
		start:  time.Now(),
	}
}

// Done logs the statement outcome. A nil result is fine for reads.
func (qt *QueryTracer) Done(result sql.Result, err error) {
	fields := []interface{}{
		"duration_ms", time.Since(qt.start).Milliseconds(),
		"query", qt.query,
		"args", qt.args,
	}
	if result != nil && err == nil {
		if rows, rowsErr := result.RowsAffected(); rowsErr == nil {
			fields = append(fields, "rows_affected", rows)
		}
	}

	// no rows is an expected outcome for lookups
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		fields = append(fields, "error", err.Error())
		qt.logger.Errorw("subscription store statement failed", fields...)
		return
	}
	qt.logger.Debugw("subscription store statement completed", fields...)
}

// TracedQuerier logs every statement that goes through the wrapped Querier
type TracedQuerier struct {
	Querier
	logger *logger.Logger
}

func NewTracedQuerier(q Querier, logger *logger.Logger) *TracedQuerier {
	return &TracedQuerier{
		Querier: q,
		logger:  logger,
	}
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	tracer := NewQueryTracer(tq.logger, query, len(args))
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	tracer.Done(result, err)
	return result, err
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	tracer := NewQueryTracer(tq.logger, query, len(args))
	err := tq.Querier.GetContext(ctx, dest, query, args...)
	tracer.Done(nil, err)
	return err
}

func (tq *TracedQuerier) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	tracer := NewQueryTracer(tq.logger, query, 1)
	result, err := tq.Querier.NamedExecContext(ctx, query, arg)
	tracer.Done(result, err)
	return result, err
}
