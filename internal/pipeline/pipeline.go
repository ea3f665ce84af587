// Package pipeline composes the stages behind the two entry points.
//
// Acquire: lock, retrieve, decode, publish, cleanup.
// Normalize: lock, merge.
//
// Each stage is timed, recorded on the status board and in metrics, and
// reported to the operator as one status line:
//
//	>> decode: ok (17 regions, 2481035 rows)
//	>> publish: failed [PUB001] The shared store rejected the publish. Check ...
//
// Failures are returned as *core.StageError so the caller can map them to an
// exit code.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/decode"
	"github.com/JonMunkholm/storefront/internal/logging"
	"github.com/JonMunkholm/storefront/internal/merge"
	"github.com/JonMunkholm/storefront/internal/metrics"
	"github.com/JonMunkholm/storefront/internal/publish"
	"github.com/JonMunkholm/storefront/internal/retrieval"
	"github.com/JonMunkholm/storefront/internal/runs"
)

// Commands.
const (
	CommandAcquire   = "acquire"
	CommandNormalize = "normalize"
)

// Stage names.
const (
	StageLock     = "lock"
	StageRetrieve = "retrieve"
	StageDecode   = "decode"
	StagePublish  = "publish"
	StageCleanup  = "cleanup"
	StageMerge    = "merge"
)

// Locker takes the single-writer run lock.
type Locker func(ctx context.Context) (runs.Lock, error)

// FileLocker locks with a lock file at path.
func FileLocker(path string) Locker {
	return func(context.Context) (runs.Lock, error) {
		return runs.AcquireFile(path)
	}
}

// Ledger records run outcomes. *runs.Ledger satisfies it.
type Ledger interface {
	Start(ctx context.Context, id uuid.UUID, command string) error
	Finish(ctx context.Context, id uuid.UUID, status string, detail any) error
}

// Deps are the collaborators of a Pipeline. Nil fields are built from the
// configuration.
type Deps struct {
	Retriever retrieval.Retriever
	Store     publish.Store
	Locker    Locker
	Ledger    Ledger
	Metrics   *metrics.Metrics
	Board     *Board

	// Status receives the operator status lines (default: stderr).
	Status io.Writer
}

// Pipeline runs acquire and normalize.
type Pipeline struct {
	cfg       *config.Config
	retriever retrieval.Retriever
	decoder   *decode.Decoder
	publisher *publish.Publisher
	engine    *merge.Engine
	locker    Locker
	ledger    Ledger
	metrics   *metrics.Metrics
	board     *Board
	status    io.Writer
	now       func() time.Time
}

// New wires a Pipeline from cfg and deps.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	p := &Pipeline{
		cfg:       cfg,
		retriever: deps.Retriever,
		decoder:   decode.New(decode.FromConfig(cfg)),
		locker:    deps.Locker,
		ledger:    deps.Ledger,
		metrics:   deps.Metrics,
		board:     deps.Board,
		status:    deps.Status,
		now:       time.Now,
	}
	if p.retriever == nil {
		p.retriever = retrieval.FromConfig(cfg)
	}
	if p.locker == nil {
		p.locker = FileLocker(cfg.Paths.LockPath())
	}
	if p.status == nil {
		p.status = os.Stderr
	}

	store := deps.Store
	if store == nil {
		s, err := publish.NewStore(cfg.Publish)
		if err != nil {
			return nil, err
		}
		store = s
	}
	p.publisher = publish.New(store, publish.Options{
		Mode:    cfg.Publish.Mode,
		Timeout: cfg.Publish.Timeout,
	})

	mopts, err := merge.FromConfig(cfg.Merge)
	if err != nil {
		return nil, err
	}
	p.engine = merge.New(mopts)
	return p, nil
}

// run is the bookkeeping of one command invocation.
type run struct {
	id      uuid.UUID
	command string
	ctx     context.Context
}

func (p *Pipeline) begin(ctx context.Context, command string) *run {
	id := uuid.New()
	ctx = logging.WithRunID(ctx, id.String())
	logging.FromContext(ctx).Info("run started", "command", command)

	if p.ledger != nil {
		if err := p.ledger.Start(ctx, id, command); err != nil {
			logging.FromContext(ctx).Warn("run ledger unavailable", "error", err)
		}
	}
	return &run{id: id, command: command, ctx: ctx}
}

func (p *Pipeline) end(r *run, detail any, err error) {
	logger := logging.FromContext(r.ctx)
	status := runs.StatusSucceeded
	if err != nil {
		status = runs.StatusFailed
		logger.Error("run failed", "command", r.command, "exit_code", core.ExitCode(err), "error", err)
	} else {
		p.metrics.MarkSuccess(r.command, p.now())
		logger.Info("run finished", "command", r.command)
	}

	if p.ledger != nil {
		// Record the outcome even when the run was cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), 10*time.Second)
		defer cancel()
		if lerr := p.ledger.Finish(ctx, r.id, status, detail); lerr != nil {
			logger.Warn("run ledger not updated", "error", lerr)
		}
	}
}

// stage runs fn, classifies its error as kind, and reports the outcome.
// summary is called only on success.
func (p *Pipeline) stage(r *run, name string, kind core.Kind, fn func(ctx context.Context) (string, error)) error {
	if err := r.ctx.Err(); err != nil {
		err = core.Fail(kind, name, err)
		p.report(r, name, 0, "", err)
		return err
	}

	start := p.now()
	summary, err := fn(r.ctx)
	err = core.Fail(kind, name, err)
	p.report(r, name, p.now().Sub(start), summary, err)
	return err
}

func (p *Pipeline) report(r *run, name string, d time.Duration, summary string, err error) {
	o := Outcome{
		Command:    r.command,
		RunID:      r.id.String(),
		Stage:      name,
		OK:         err == nil,
		DurationMS: d.Milliseconds(),
		FinishedAt: p.now().UTC(),
	}

	var line string
	if err == nil {
		o.Summary = summary
		line = fmt.Sprintf(">> %s: ok (%s)", name, summary)
	} else {
		msg := core.MapError(err)
		o.Code = msg.Code
		o.Summary = msg.Message
		line = fmt.Sprintf(">> %s: failed %s", name, core.FormatUserError(err))
	}

	fmt.Fprintln(p.status, line)
	logger := logging.WithFields(r.ctx, "stage", name, "duration_ms", o.DurationMS)
	if err == nil {
		logger.Info(line)
	} else {
		logger.Error(line, "error", err)
	}

	p.board.Record(o)
	p.metrics.ObserveStage(name, d, err)
}

// lock takes the run lock as its own stage. The returned release logs
// instead of failing the run.
func (p *Pipeline) lock(r *run) (func(), error) {
	var held runs.Lock
	err := p.stage(r, StageLock, core.KindLock, func(ctx context.Context) (string, error) {
		l, err := p.locker(ctx)
		if err != nil {
			return "", err
		}
		held = l
		return "acquired", nil
	})
	if err != nil {
		return nil, err
	}
	return func() {
		if err := held.Release(); err != nil {
			logging.FromContext(r.ctx).Warn("run lock not released", "error", err)
		}
	}, nil
}
