package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

// localStore is the slice of the local cache the data service depends on.
type localStore interface {
	PutStudent(ctx context.Context, student models.Student) error
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	ListStudents(ctx context.Context) ([]models.Student, error)

	PutFeePayment(ctx context.Context, payment models.FeePayment) error
	GetFeePayment(ctx context.Context, id string) (*models.FeePayment, error)
	ListFeePayments(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, error)

	PutAttendanceRecord(ctx context.Context, record models.AttendanceRecord) error
	GetAttendanceRecord(ctx context.Context, id string) (*models.AttendanceRecord, error)
	ListAttendanceRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)

	MarkSynced(ctx context.Context, collection models.Collection, id string) error
	Delete(ctx context.Context, collection models.Collection, id string) error
	AppendOp(ctx context.Context, entry models.OpLogEntry) error
	ClearOps(ctx context.Context, collection models.Collection, recordID string) error
}

// connectivityOracle answers whether the remote store is reachable.
type connectivityOracle interface {
	Online() bool
}

// syncTrigger is the engine surface the data service delegates to.
type syncTrigger interface {
	SyncAllData(ctx context.Context) error
	DownloadAllData(ctx context.Context) error
}

// Config controls how the data service routes reads and writes. UseOffline
// forces local-only reads even while online; AutoSync gates the immediate
// remote write attempt after each local mutation.
type Config struct {
	UseOffline bool `json:"use_offline"`
	AutoSync   bool `json:"auto_sync"`
}

// DataService is the single entry point the rest of the application uses
// for record access. It hides whether the app is online or offline: every
// mutation lands in the local store first, and remote writes are
// opportunistic. Remote read failures silently fall back to the cache.
type DataService struct {
	store  localStore
	remote remoteAdapter
	oracle connectivityOracle
	syncer syncTrigger

	validator *validator.Validate
	logger    *zap.Logger

	mu     sync.RWMutex
	config Config
}

// remoteAdapter mirrors remote.Adapter; declared locally so tests can use
// lightweight fakes without importing the adapter package.
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

// NewDataService constructs the data service.
func NewDataService(store localStore, remote remoteAdapter, oracle connectivityOracle, syncer syncTrigger, cfg Config, validate *validator.Validate, logger *zap.Logger) *DataService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataService{
		store:     store,
		remote:    remote,
		oracle:    oracle,
		syncer:    syncer,
		validator: validate,
		logger:    logger,
		config:    cfg,
	}
}

// SetConfig applies a partial configuration update.
func (s *DataService) SetConfig(useOffline, autoSync *bool) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if useOffline != nil {
		s.config.UseOffline = *useOffline
	}
	if autoSync != nil {
		s.config.AutoSync = *autoSync
	}
	return s.config
}

// GetConfig returns the current configuration snapshot.
func (s *DataService) GetConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// readsLocal reports whether reads must be served from the local store.
func (s *DataService) readsLocal() bool {
	s.mu.RLock()
	useOffline := s.config.UseOffline
	s.mu.RUnlock()
	return useOffline || !s.oracle.Online()
}

// writesRemote reports whether a mutation should attempt an immediate
// remote write after the local one.
func (s *DataService) writesRemote() bool {
	s.mu.RLock()
	autoSync := s.config.AutoSync
	s.mu.RUnlock()
	return autoSync && s.oracle.Online()
}

// logOp records a mutation in the operation log so the sync engine can
// replay it later. Op log failures are fatal to the mutation: a dirty
// record without a log entry would never be retried.
func (s *DataService) logOp(ctx context.Context, collection models.Collection, recordID string, op models.OpKind, record interface{}, ts time.Time) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode op payload")
	}
	return s.store.AppendOp(ctx, models.OpLogEntry{
		Table:     collection,
		RecordID:  recordID,
		Op:        op,
		Payload:   string(payload),
		Timestamp: ts,
	})
}

// confirmSynced settles the local bookkeeping after the remote store
// acknowledged a push: the record is marked clean and its op log entries
// are cleared. Bookkeeping failures are logged but do not undo the push.
func (s *DataService) confirmSynced(ctx context.Context, collection models.Collection, id string, envelope *models.SyncEnvelope) {
	if err := s.store.MarkSynced(ctx, collection, id); err != nil {
		s.logger.Warn("mark synced failed", zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
		return
	}
	if err := s.store.ClearOps(ctx, collection, id); err != nil {
		s.logger.Warn("clear ops failed", zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
	}
	if envelope != nil {
		envelope.MarkClean(time.Now().UTC())
	}
}

// confirmDeleted settles a confirmed remote deletion by hard-removing the
// local row and its op log entries.
func (s *DataService) confirmDeleted(ctx context.Context, collection models.Collection, id string) {
	if err := s.store.Delete(ctx, collection, id); err != nil {
		s.logger.Warn("local delete failed after remote confirm", zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
		return
	}
	if err := s.store.ClearOps(ctx, collection, id); err != nil {
		s.logger.Warn("clear ops failed", zap.String("collection", string(collection)), zap.String("id", id), zap.Error(err))
	}
}

// SyncAllData asks the sync engine for an on-demand pass. No-op offline.
func (s *DataService) SyncAllData(ctx context.Context) error {
	if !s.oracle.Online() {
		return nil
	}
	return s.syncer.SyncAllData(ctx)
}

// DownloadAllData asks the sync engine for a full download. No-op offline.
func (s *DataService) DownloadAllData(ctx context.Context) error {
	if !s.oracle.Online() {
		return nil
	}
	return s.syncer.DownloadAllData(ctx)
}
