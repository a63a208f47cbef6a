// Package persist は検索結果の保存をリクエストから切り離して実行するバックグラウンドディスパッチャーを提供する。
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hitoshi/podsearch/internal/metrics"
)

// デフォルト設定値。
const (
	DefaultQueueSize  = 256
	DefaultWorkers    = 1
	DefaultJobTimeout = 60 * time.Second
)

// ErrClosed はShutdown後にSubmitされた場合のエラー。
var ErrClosed = errors.New("dispatcher is closed")

// ErrQueueFull はキューが満杯でジョブを破棄した場合のエラー。
var ErrQueueFull = errors.New("persist queue is full")

// JobFunc は保存ジョブ本体。ctxはリクエストから切り離されたジョブ単位のタイムアウト付きコンテキスト。
type JobFunc func(ctx context.Context) error

type job struct {
	name string
	fn   JobFunc
	// enqueuedAt はキュー待ち時間のログ用。
	enqueuedAt time.Time
}

// Options はDispatcherの設定。
type Options struct {
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
	Logger     *slog.Logger
	Metrics    metrics.MetricsCollector
}

// Dispatcher は有界キューとワーカーgoroutineで保存ジョブを実行する。
// ワーカー数が1の場合、ジョブは投入順に実行される。
type Dispatcher struct {
	queue   chan job
	workers int
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher はDispatcherを生成する。0以下の値にはデフォルトを使う。
// ジョブを実行するにはStartを呼ぶこと。
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &Dispatcher{
		queue:   make(chan job, opts.QueueSize),
		workers: opts.Workers,
		timeout: opts.JobTimeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Start はワーカーgoroutineを起動する。2回目以降の呼び出しは何もしない。
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	d.logger.Info("永続化ディスパッチャーを開始しました",
		slog.Int("workers", d.workers),
		slog.Int("queue_size", cap(d.queue)),
		slog.Duration("job_timeout", d.timeout),
	)
}

// Submit はジョブをキューに投入する。ブロックしない。
// キューが満杯またはShutdown済みの場合はジョブを破棄し、警告ログを出してエラーを返す。
func (d *Dispatcher) Submit(name string, fn JobFunc) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.RecordPersistJob(metrics.JobDropped)
		d.logger.Warn("停止済みのため保存ジョブを破棄しました", slog.String("job", name))
		return ErrClosed
	}

	select {
	case d.queue <- job{name: name, fn: fn, enqueuedAt: time.Now()}:
		return nil
	default:
		d.metrics.RecordPersistJob(metrics.JobDropped)
		d.logger.Warn("キューが満杯のため保存ジョブを破棄しました",
			slog.String("job", name),
			slog.Int("queue_size", cap(d.queue)),
		)
		return ErrQueueFull
	}
}

// Pending はキューで待機中のジョブ数を返す。
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Shutdown は新規投入を止め、キューに残ったジョブの完了を待つ。
// ctxの期限までに完了しない場合はctxのエラーを返す。
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()

	if !started {
		// ワーカーがいないため残りのジョブは実行されない
		if n := len(d.queue); n > 0 {
			d.logger.Warn("未起動のディスパッチャーを停止しました", slog.Int("discarded", n))
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("永続化ディスパッチャーを停止しました")
		return nil
	case <-ctx.Done():
		d.logger.Warn("保存ジョブの完了待ちがタイムアウトしました",
			slog.Int("pending", len(d.queue)),
		)
		return ctx.Err()
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(id, j)
	}
}

// run はジョブを1件実行する。エラーとpanicはログとメトリクスに記録し、呼び出し元には返さない。
func (d *Dispatcher) run(worker int, j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.safeRun(ctx, j)
	elapsed := time.Since(start)

	var panicErr *panicError
	switch {
	case errors.As(err, &panicErr):
		d.metrics.RecordPersistJob(metrics.JobPanicked)
		d.logger.Error("保存ジョブがpanicしました",
			slog.String("job", j.name),
			slog.Int("worker", worker),
			slog.Any("panic", panicErr.value),
			slog.String("stack", panicErr.stack),
		)
	case err != nil:
		d.metrics.RecordPersistJob(metrics.JobFailed)
		d.logger.Error("保存ジョブが失敗しました",
			slog.String("job", j.name),
			slog.Int("worker", worker),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
	default:
		d.metrics.RecordPersistJob(metrics.JobCompleted)
		d.logger.Debug("保存ジョブが完了しました",
			slog.String("job", j.name),
			slog.Int("worker", worker),
			slog.Int64("queued_ms", start.Sub(j.enqueuedAt).Milliseconds()),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
	}
}

type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (d *Dispatcher) safeRun(ctx context.Context, j job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec, stack: string(debug.Stack())}
		}
	}()
	return j.fn(ctx)
}
