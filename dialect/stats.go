package dialect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalDuration is the total time spent executing queries.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of queries exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of query errors.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average query duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	if s.TotalQueries == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.TotalQueries)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow query is detected.
type SlowQueryHook func(ctx context.Context, query string, params map[string]any, duration time.Duration)

// StatsDriver wraps a Driver with query statistics collection.
type StatsDriver struct {
	drv           Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow query detection.
// Queries taking longer than this duration will be counted as slow
// queries. Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow queries.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow queries to the default logger. This is a
// convenience wrapper around WithSlowQueryHook.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, params map[string]any, duration time.Duration) {
		slog.Warn("slow query detected", "duration", duration, "query", query, "params", params)
	})
}

// NewStatsDriver wraps a Driver with statistics collection.
//
// Example:
//
//	drv, _ := neo4j.Open(uri, user, pass)
//	stats := dialect.NewStatsDriver(drv,
//	    dialect.WithSlowThreshold(200*time.Millisecond),
//	    dialect.WithSlowQueryLog(),
//	)
//	g := query.New(stats)
func NewStatsDriver(drv Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		drv:           drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow query threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a query and records statistics. Timing covers query
// submission, not cursor consumption.
func (d *StatsDriver) Query(ctx context.Context, query string, params map[string]any) (Cursor, error) {
	start := time.Now()
	cur, err := d.drv.Query(ctx, query, params)
	d.record(ctx, query, params, start, err)
	return cur, err
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (Tx, error) {
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{tx: tx, driver: d}, nil
}

// Close releases the wrapped driver.
func (d *StatsDriver) Close(ctx context.Context) error {
	return d.drv.Close(ctx)
}

func (d *StatsDriver) record(ctx context.Context, query string, params map[string]any, start time.Time, err error) {
	duration := time.Since(start)
	d.stats.TotalQueries.Add(1)
	d.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		d.stats.Errors.Add(1)
	}

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, params, duration)
		}
	}
}

type statsTx struct {
	tx     Tx
	driver *StatsDriver
}

func (t *statsTx) Query(ctx context.Context, query string, params map[string]any) (Cursor, error) {
	start := time.Now()
	cur, err := t.tx.Query(ctx, query, params)
	t.driver.record(ctx, query, params, start, err)
	return cur, err
}

func (t *statsTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *statsTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// DebugDriver wraps a Driver with debug logging.
type DebugDriver struct {
	drv Driver
	log func(context.Context, ...any)
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog sets a custom log function.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) {
		d.log = logFunc
	}
}

// NewDebugDriver wraps a Driver with debug logging.
func NewDebugDriver(drv Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		drv: drv,
		log: func(_ context.Context, v ...any) {
			slog.Info(fmt.Sprint(v...))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, params map[string]any) (Cursor, error) {
	d.log(ctx, fmt.Sprintf("query: %s params: %v", query, params))
	return d.drv.Query(ctx, query, params)
}

// Tx starts a transaction with debug logging.
func (d *DebugDriver) Tx(ctx context.Context) (Tx, error) {
	d.log(ctx, "begin transaction")
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{tx: tx, log: d.log}, nil
}

// Close releases the wrapped driver.
func (d *DebugDriver) Close(ctx context.Context) error {
	return d.drv.Close(ctx)
}

type debugTx struct {
	tx  Tx
	log func(context.Context, ...any)
}

func (t *debugTx) Query(ctx context.Context, query string, params map[string]any) (Cursor, error) {
	t.log(ctx, fmt.Sprintf("tx query: %s params: %v", query, params))
	return t.tx.Query(ctx, query, params)
}

func (t *debugTx) Commit(ctx context.Context) error {
	t.log(ctx, "commit transaction")
	return t.tx.Commit(ctx)
}

func (t *debugTx) Rollback(ctx context.Context) error {
	t.log(ctx, "rollback transaction")
	return t.tx.Rollback(ctx)
}

// Ensure interfaces are implemented.
var (
	_ Driver = (*StatsDriver)(nil)
	_ Tx     = (*statsTx)(nil)
	_ Driver = (*DebugDriver)(nil)
	_ Tx     = (*debugTx)(nil)
)
