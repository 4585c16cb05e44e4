package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/models"
	"github.com/garyjia/bonus-report/internal/report"
	"github.com/garyjia/bonus-report/internal/storage"
	"github.com/garyjia/bonus-report/pkg/utils"
)

// Config configures the runner
type Config struct {
	QueueSize       int
	OutputPattern   string // file name with one %s for the quarter
	MetricsTextfile string
}

// DefaultOutputPattern names workbooks after their quarter
const DefaultOutputPattern = "Bonusbericht_%s.xlsx"

// Job is one report generation request
type Job struct {
	ID       string
	Inputs   report.Inputs
	Options  report.Options
	Progress report.ProgressFunc
}

// Result is the outcome of a job
type Result struct {
	RunID      string
	OutputPath string
	Quarter    string
	Employees  int
	Rows       int
	Unresolved int
	Err        error
}

type generateFunc func(ctx context.Context, job Job, progress report.ProgressFunc, logger *zap.Logger) (*report.Report, error)

type task struct {
	job    Job
	result chan Result
}

// Runner executes report jobs one at a time from a bounded queue. Every
// job works in its own folder and the finished workbook is published
// into the output directory in a single rename.
type Runner struct {
	cfg      Config
	folders  *storage.FolderManager
	out      storage.FileStorage
	writer   *report.WorkbookWriter
	metrics  *Metrics
	rec      *recorder
	logger   *zap.Logger
	generate generateFunc
	now      func() time.Time

	mu     sync.Mutex
	queue  chan *task
	cancel context.CancelFunc
	done   chan struct{}
	seq    int
}

// NewRunner creates a new Runner. metrics may be nil.
func NewRunner(cfg Config, folders *storage.FolderManager, out storage.FileStorage, metrics *Metrics, logger *zap.Logger) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.OutputPattern == "" {
		cfg.OutputPattern = DefaultOutputPattern
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Runner{
		cfg:      cfg,
		folders:  folders,
		out:      out,
		writer:   report.NewWorkbookWriter(logger),
		metrics:  metrics,
		logger:   logger,
		generate: generateReport,
		now:      time.Now,
	}
}

func generateReport(ctx context.Context, job Job, progress report.ProgressFunc, logger *zap.Logger) (*report.Report, error) {
	return report.NewGenerator(job.Options, logger).Generate(ctx, job.Inputs, progress)
}

// WithHistory records every run in the given stores
func (r *Runner) WithHistory(runs RunStore, history HistoryStore) *Runner {
	r.rec = &recorder{runs: runs, history: history, logger: r.logger}
	return r
}

// Name implements worker.Worker
func (r *Runner) Name() string {
	return "report-runner"
}

// Start launches the worker goroutine
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queue != nil {
		return fmt.Errorf("runner already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.queue = make(chan *task, r.cfg.QueueSize)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.queue, r.done)

	r.logger.Info("Report runner started", zap.Int("queue_size", r.cfg.QueueSize))
	return nil
}

// Stop cancels the running job, fails queued jobs with ErrStopped and
// waits for the worker goroutine to exit.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.queue == nil {
		r.mu.Unlock()
		return nil
	}
	r.cancel()
	close(r.queue)
	r.queue = nil
	done := r.done
	r.mu.Unlock()

	<-done
	r.logger.Info("Report runner stopped")
	return nil
}

// Submit enqueues a job without blocking. The returned channel receives
// exactly one Result.
func (r *Runner) Submit(job Job) (<-chan Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queue == nil {
		return nil, ErrNotRunning
	}
	// only Submit sends and it holds mu, so the queue cannot fill up
	// between this check and the send below
	if len(r.queue) >= cap(r.queue) {
		r.logger.Warn("Report queue full", zap.Int("queue_size", cap(r.queue)))
		return nil, ErrQueueFull
	}

	r.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("run-%s-%03d", r.now().Format("20060102T150405"), r.seq)
	}

	r.rec.queued(&models.ReportRun{
		RunID:      job.ID,
		Quarter:    job.Options.Quarter,
		Status:     models.RunStatusQueued,
		BudgetPath: job.Inputs.BudgetPath,
		TimesPath:  job.Inputs.TimesPath,
	})

	t := &task{job: job, result: make(chan Result, 1)}
	r.queue <- t
	r.metrics.setQueueDepth(len(r.queue))

	r.logger.Info("Report job queued", zap.String("run_id", job.ID))
	return t.result, nil
}

// Run submits a job and waits for its result
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	results, err := r.Submit(job)
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-results:
		return res, res.Err
	case <-ctx.Done():
		return Result{RunID: job.ID}, ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, queue <-chan *task, done chan<- struct{}) {
	defer close(done)

	for t := range queue {
		r.metrics.setQueueDepth(len(queue))

		if ctx.Err() != nil {
			r.finish(t, Result{RunID: t.job.ID, Err: ErrStopped}, models.RunStatusQueued, r.now(), 0)
			continue
		}

		start := r.now()
		r.rec.running(t.job.ID, start)

		p := report.NewProgress(t.job.Progress)
		res := r.execute(ctx, t.job, p)
		r.finish(t, res, models.RunStatusRunning, start, p.Last())
	}
}

func (r *Runner) finish(t *task, res Result, from string, start time.Time, lastProgress int) {
	finished := r.now()

	run := &models.ReportRun{
		RunID:      t.job.ID,
		Quarter:    res.Quarter,
		Status:     models.RunStatusSucceeded,
		OutputPath: res.OutputPath,
		Employees:  res.Employees,
		Rows:       res.Rows,
		Unresolved: res.Unresolved,
		FinishedAt: &finished,
	}
	label := "succeeded"
	switch {
	case res.Err == nil:
	case errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, ErrStopped):
		run.Status = models.RunStatusCancelled
		run.ErrorMessage = res.Err.Error()
		label = "cancelled"
	default:
		run.Status = models.RunStatusFailed
		run.ErrorMessage = res.Err.Error()
		label = "failed"
	}
	if run.Quarter == "" {
		run.Quarter = t.job.Options.Quarter
	}

	r.rec.completed(run, from, lastProgress)
	r.metrics.observe(label, finished.Sub(start), res.Unresolved, finished)
	if r.cfg.MetricsTextfile != "" {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsTextfile); err != nil {
			r.logger.Warn("Failed to export metrics", zap.Error(err))
		}
	}

	t.result <- res
}

func (r *Runner) execute(ctx context.Context, job Job, p *report.Progress) Result {
	logger := utils.RunLogger(r.logger, job.ID, job.Options.Quarter)
	res := Result{RunID: job.ID}

	folder, err := r.folders.CreateRunFolder(job.ID)
	if err != nil {
		res.Err = fmt.Errorf("failed to prepare workspace: %w", err)
		return res
	}
	defer func() {
		if err := r.folders.DeleteRunFolder(job.ID); err != nil {
			logger.Warn("Failed to clean up workspace", zap.Error(err))
		}
	}()

	rep, err := r.generate(ctx, job, p.Report, logger)
	if err != nil {
		logger.Error("Report generation failed", zap.Error(err))
		res.Err = err
		return res
	}
	res.Quarter = rep.Quarter.String()
	res.Employees = len(rep.Employees())
	res.Rows = len(rep.Rows())
	res.Unresolved = len(rep.Unresolved())

	name := fmt.Sprintf(r.cfg.OutputPattern, res.Quarter)
	p.Report(96, "Schreibe Arbeitsmappe")
	tmp := filepath.Join(folder, filepath.Base(name))
	if err := r.writer.SaveAs(rep, tmp); err != nil {
		res.Err = err
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	p.Report(99, "Veröffentliche Bericht")
	dst, err := r.out.Publish(tmp, name)
	if err != nil {
		res.Err = fmt.Errorf("failed to publish report: %w", err)
		return res
	}
	res.OutputPath = dst
	p.Report(100, "Fertig")

	logger.Info("Report published",
		zap.String("path", dst),
		zap.Int("employees", res.Employees),
		zap.Int("unresolved", res.Unresolved))
	return res
}
