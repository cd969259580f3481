package check

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/theflywheel/strmap"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// KeyMode selects how keys are generated.
type KeyMode string

const (
	KeysSequential KeyMode = "sequential"
	KeysUUID       KeyMode = "uuid"
)

const (
	DefaultCount  = 1024 * 1024
	DefaultPrefix = "somekey"

	sentinelIndex = 100
	cancelEvery   = 1 << 16
)

// Config describes one run of the scenario.
type Config struct {
	Count  int
	Prefix string
	Keys   KeyMode

	// Table is passed to strmap.NewWithOptions. A nil Logger is replaced by
	// the run's logger.
	Table strmap.Options

	// ProgressInterval enables periodic progress logging. Zero disables it.
	ProgressInterval time.Duration

	// MaxFailures caps how many verification failures are collected before
	// a phase gives up.
	MaxFailures int
}

// DefaultConfig returns the million key sequential scenario.
func DefaultConfig() Config {
	return Config{
		Count:       DefaultCount,
		Prefix:      DefaultPrefix,
		Keys:        KeysSequential,
		MaxFailures: 10,
	}
}

// Record is the value stored under each key.
type Record struct {
	Key    string
	Number int
}

// PhaseResult is the outcome of one phase of the scenario.
type PhaseResult struct {
	Name    string
	Elapsed time.Duration
}

// Report summarises a successful or failed run.
type Report struct {
	Count         int
	Capacity      int
	Rebuilds      int
	Visited       int
	SentinelFound int
	Phases        []PhaseResult
}

type runner struct {
	cfg     Config
	log     *zap.Logger
	table   *strmap.Table[*Record]
	records []*Record
	report  Report

	phase *atomic.String
	done  *atomic.Int64
}

// Run executes the scenario. Verification failures are collected and
// returned together; a table error that makes further progress pointless
// ends the run immediately.
func Run(ctx context.Context, cfg Config, log *zap.Logger) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Table.Logger == nil {
		cfg.Table.Logger = log.Named("table")
	}

	r := &runner{
		cfg:   cfg,
		log:   log,
		phase: atomic.NewString("create"),
		done:  atomic.NewInt64(0),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return r.run(gctx)
	})
	if cfg.ProgressInterval > 0 {
		g.Go(func() error {
			r.reportProgress(gctx)
			return nil
		})
	}

	err := g.Wait()
	return r.report, err
}

func (c Config) validate() error {
	if c.Count < 0 {
		return fmt.Errorf("invalid count %d", c.Count)
	}
	if c.Prefix == "" && c.Keys == KeysSequential {
		return errors.New("sequential keys need a prefix")
	}
	switch c.Keys {
	case KeysSequential, KeysUUID:
	default:
		return fmt.Errorf("unknown key mode %q", c.Keys)
	}
	if c.MaxFailures < 1 {
		return fmt.Errorf("invalid max failures %d", c.MaxFailures)
	}
	return nil
}

func (r *runner) run(ctx context.Context) error {
	table, err := strmap.NewWithOptions[*Record](r.cfg.Table)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	r.table = table
	defer r.table.Destroy()

	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"populate", r.populate},
		{"verify", r.verify},
		{"missing", r.missing},
		{"iterate", r.iterate},
		{"length", r.length},
		{"remove", r.remove},
	}

	for _, p := range phases {
		r.phase.Store(p.name)
		r.done.Store(0)
		start := time.Now()

		err := p.fn(ctx)

		elapsed := time.Since(start)
		r.report.Phases = append(r.report.Phases, PhaseResult{Name: p.name, Elapsed: elapsed})
		if err != nil {
			r.log.Error("phase failed", zap.String("phase", p.name), zap.Error(err))
			return fmt.Errorf("%s: %w", p.name, err)
		}
		r.log.Info("phase complete",
			zap.String("phase", p.name),
			zap.Duration("elapsed", elapsed),
			zap.Int("len", r.table.Len()),
			zap.Int("capacity", r.table.Capacity()))
	}
	return nil
}

func (r *runner) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.log.Info("progress",
				zap.String("phase", r.phase.Load()),
				zap.Int64("done", r.done.Load()),
				zap.Int("count", r.cfg.Count))
		}
	}
}

// step counts one unit of work and polls for cancellation.
func (r *runner) step(ctx context.Context, i int) error {
	r.done.Inc()
	if i%cancelEvery == 0 {
		return ctx.Err()
	}
	return nil
}

func (r *runner) newKey(buf *bytebufferpool.ByteBuffer, i int) string {
	if r.cfg.Keys == KeysUUID {
		return uuid.NewString()
	}
	buf.Reset()
	buf.WriteString(r.cfg.Prefix)
	buf.B = strconv.AppendInt(buf.B, int64(i), 10)
	return buf.String()
}

func (r *runner) populate(ctx context.Context) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	r.records = make([]*Record, r.cfg.Count)
	for i := range r.records {
		if err := r.step(ctx, i); err != nil {
			return err
		}
		rec := &Record{Key: r.newKey(buf, i), Number: i}
		if err := r.table.Put(rec.Key, rec); err != nil {
			return fmt.Errorf("put record %d: %w", i, err)
		}
		r.records[i] = rec
	}

	st := r.table.Stats()
	r.report.Count = st.Len
	r.report.Capacity = st.Capacity
	r.report.Rebuilds = st.Rebuilds
	return nil
}

func (r *runner) verify(ctx context.Context) error {
	var failures error
	failed := 0

	for i, want := range r.records {
		if err := r.step(ctx, i); err != nil {
			return multierr.Append(failures, err)
		}
		got, err := r.table.Get(want.Key)
		switch {
		case err != nil:
			failures = multierr.Append(failures, fmt.Errorf("get %q: %w", want.Key, err))
		case got.Number != i:
			failures = multierr.Append(failures, fmt.Errorf("get %q: number %d, want %d", want.Key, got.Number, i))
		default:
			continue
		}
		if failed++; failed >= r.cfg.MaxFailures {
			break
		}
	}
	return failures
}

func (r *runner) absentKey() string {
	if r.cfg.Keys == KeysUUID {
		return uuid.NewString()
	}
	return r.cfg.Prefix + strconv.Itoa(r.cfg.Count)
}

func (r *runner) missing(context.Context) error {
	key := r.absentKey()
	rec, err := r.table.Get(key)
	if !errors.Is(err, strmap.ErrMissing) {
		return fmt.Errorf("get %q: want %v, got record %v and %v", key, strmap.Missing, rec, err)
	}
	return nil
}

func (r *runner) iterate(context.Context) error {
	if len(r.records) == 0 {
		return nil
	}

	idx := min(sentinelIndex, len(r.records)-1)
	sentinel := Record{Key: r.records[idx].Key, Number: idx}

	visited, found := 0, 0
	r.table.Iterate(func(key string, rec *Record) strmap.Action {
		visited++
		r.done.Inc()
		if *rec == sentinel {
			found++
		}
		return strmap.Continue
	})
	r.report.Visited = visited
	r.report.SentinelFound = found

	var err error
	if visited != r.table.Len() {
		err = multierr.Append(err, fmt.Errorf("visited %d entries, table holds %d", visited, r.table.Len()))
	}
	if found != 1 {
		err = multierr.Append(err, fmt.Errorf("sentinel %+v found %d times", sentinel, found))
	}

	action := r.table.Iterate(func(_ string, rec *Record) strmap.Action {
		if *rec == sentinel {
			return strmap.Stop
		}
		return strmap.Continue
	})
	if action != strmap.Stop {
		err = multierr.Append(err, fmt.Errorf("iterate for sentinel returned %v", action))
	}
	return err
}

func (r *runner) length(context.Context) error {
	if n := r.table.Len(); n != r.cfg.Count {
		return fmt.Errorf("length %d, want %d", n, r.cfg.Count)
	}
	return nil
}

func (r *runner) remove(ctx context.Context) error {
	for i, rec := range r.records {
		if err := r.step(ctx, i); err != nil {
			return err
		}
		if _, err := r.table.Get(rec.Key); err != nil {
			return fmt.Errorf("get %q before remove: %w", rec.Key, err)
		}
		if err := r.table.Remove(rec.Key); err != nil {
			return fmt.Errorf("remove %q: %w", rec.Key, err)
		}
		if _, err := r.table.Get(rec.Key); !errors.Is(err, strmap.ErrMissing) {
			return fmt.Errorf("get %q after remove: want %v, got %v", rec.Key, strmap.Missing, err)
		}
		r.records[i] = nil
	}

	if n := r.table.Len(); n != 0 {
		return fmt.Errorf("length %d after removing every key", n)
	}
	return nil
}
