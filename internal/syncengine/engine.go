// Package syncengine reconciles the local cache with the remote store. A
// single engine goroutine reacts to connectivity transitions and a periodic
// ticker; at most one sync pass runs at a time, and a trigger that arrives
// while a pass is in flight is dropped rather than queued.
package syncengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/connectivity"
	"github.com/champlabs/schoolsync/internal/models"
)

// localStore is the slice of the local cache the engine depends on.
type localStore interface {
	PendingDirty(ctx context.Context) (models.PendingRecords, error)
	PendingCount(ctx context.Context) (int, error)
	MarkSynced(ctx context.Context, collection models.Collection, id string) error
	MarkDead(ctx context.Context, collection models.Collection, id string) error
	Delete(ctx context.Context, collection models.Collection, id string) error
	ClearOps(ctx context.Context, collection models.Collection, recordID string) error
	IncrementOpRetry(ctx context.Context, collection models.Collection, recordID string) (int, error)
	SetLastSync(ctx context.Context, t time.Time) error
	LastSync(ctx context.Context) (*time.Time, error)

	GetStudent(ctx context.Context, id string) (*models.Student, error)
	PutStudent(ctx context.Context, student models.Student) error
	GetFeePayment(ctx context.Context, id string) (*models.FeePayment, error)
	PutFeePayment(ctx context.Context, payment models.FeePayment) error
	GetAttendanceRecord(ctx context.Context, id string) (*models.AttendanceRecord, error)
	PutAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error
}

// remoteAdapter mirrors remote.Adapter for the engine's needs.
type remoteAdapter interface {
	InsertStudent(ctx context.Context, student models.Student) error
	UpdateStudent(ctx context.Context, student models.Student) error
	DeleteStudent(ctx context.Context, id string) error
	SelectStudents(ctx context.Context) ([]models.Student, error)

	InsertFeePayment(ctx context.Context, payment models.FeePayment) error
	UpdateFeePayment(ctx context.Context, payment models.FeePayment) error
	DeleteFeePayment(ctx context.Context, id string) error
	SelectFeePayments(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, error)

	InsertAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error
	UpdateAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error
	DeleteAttendanceRecord(ctx context.Context, id string) error
	SelectAttendanceRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// metricsRecorder receives engine telemetry. Satisfied by
// *service.MetricsService; a no-op implementation is installed when nil.
type metricsRecorder interface {
	ObserveSyncPass(failed bool, duration time.Duration)
	ObserveSyncPush(collection models.Collection, err error)
	ObserveDeadLetter()
	SetPendingRecords(n int)
	SetLastSyncTime(t time.Time)
}

type nopMetrics struct{}

func (nopMetrics) ObserveSyncPass(bool, time.Duration)      {}
func (nopMetrics) ObserveSyncPush(models.Collection, error) {}
func (nopMetrics) ObserveDeadLetter()                       {}
func (nopMetrics) SetPendingRecords(int)                    {}
func (nopMetrics) SetLastSyncTime(time.Time)                {}

// Listener receives status snapshots on every engine transition.
type Listener func(models.SyncStatus)

// Config tunes the engine.
type Config struct {
	// Interval between periodic sync attempts while online.
	Interval time.Duration
	// RemoteTimeout bounds every individual remote call during a pass.
	RemoteTimeout time.Duration
	// RetryThreshold is the number of failed pushes after which a record
	// is dead-lettered. Zero disables dead-lettering.
	RetryThreshold int
	// DownloadOnBoot runs a full download before the first upload pass.
	DownloadOnBoot bool
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = 10 * time.Second
	}
}

// Engine owns the reconciliation loop between the local cache and the
// remote store.
type Engine struct {
	store   localStore
	remote  remoteAdapter
	source  connectivity.Source
	metrics metricsRecorder
	logger  *zap.Logger
	cfg     Config

	syncing    atomic.Bool
	downloaded atomic.Bool

	mu         sync.Mutex
	listeners  map[int]Listener
	nextListen int

	stopOnce sync.Once
	done     chan struct{}
}

// New constructs the engine. The connectivity source is injected so tests
// can drive transitions directly.
func New(store localStore, remote remoteAdapter, source connectivity.Source, metrics metricsRecorder, cfg Config, logger *zap.Logger) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Engine{
		store:     store,
		remote:    remote,
		source:    source,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		listeners: make(map[int]Listener),
		done:      make(chan struct{}),
	}
}

// Start launches the engine goroutine. It returns immediately.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

// Close stops the engine loop.
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.done) })
}

func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	if e.source.Online() {
		e.onOnline(ctx)
	} else {
		e.notify(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case state := <-e.source.Events():
			if state == connectivity.Online {
				e.logger.Info("connection restored, starting sync")
				e.onOnline(ctx)
			} else {
				e.logger.Info("connection lost, entering offline mode")
				e.notify(ctx)
			}
		case <-ticker.C:
			if e.source.Online() {
				if err := e.SyncAllData(ctx); err != nil {
					e.logger.Warn("periodic sync failed", zap.Error(err))
				}
			}
		}
	}
}

// onOnline handles an offline-to-online transition: an initial download
// when configured, followed by an upload pass.
func (e *Engine) onOnline(ctx context.Context) {
	if e.cfg.DownloadOnBoot && e.downloaded.CompareAndSwap(false, true) {
		if err := e.DownloadAllData(ctx); err != nil {
			e.logger.Warn("initial download failed", zap.Error(err))
			e.downloaded.Store(false)
		}
	}
	if err := e.SyncAllData(ctx); err != nil {
		e.logger.Warn("sync after reconnect failed", zap.Error(err))
	}
}

// State reports the engine's current high-level state.
func (e *Engine) State() string {
	if !e.source.Online() {
		return "offline"
	}
	if e.syncing.Load() {
		return "online-syncing"
	}
	return "online-idle"
}

// GetStatus builds a fresh status snapshot. The pending count is always
// recomputed from the store.
func (e *Engine) GetStatus(ctx context.Context) models.SyncStatus {
	status := models.SyncStatus{
		IsOnline:  e.source.Online(),
		IsSyncing: e.syncing.Load(),
	}
	if n, err := e.store.PendingCount(ctx); err == nil {
		status.PendingChanges = n
		e.metrics.SetPendingRecords(n)
	} else {
		e.logger.Warn("pending count failed", zap.Error(err))
	}
	if last, err := e.store.LastSync(ctx); err == nil {
		status.LastSync = last
	} else {
		e.logger.Warn("last sync lookup failed", zap.Error(err))
	}
	return status
}

// AddListener subscribes to status notifications and returns an unsubscribe
// function. The listener fires synchronously on engine transitions.
func (e *Engine) AddListener(fn Listener) func() {
	e.mu.Lock()
	id := e.nextListen
	e.nextListen++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// notify pushes a fresh status snapshot to every listener.
func (e *Engine) notify(ctx context.Context) {
	status := e.GetStatus(ctx)

	e.mu.Lock()
	fns := make([]Listener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}
