package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

// CreateAttendanceRequest holds payload for marking daily attendance.
type CreateAttendanceRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Status    string    `json:"status" validate:"required,oneof=present absent leave"`
	Remarks   *string   `json:"remarks"`
	CreatedBy string    `json:"created_by"`
}

// UpdateAttendanceRequest corrects a recorded attendance entry.
type UpdateAttendanceRequest struct {
	Status  *string `json:"status" validate:"omitempty,oneof=present absent leave"`
	Remarks *string `json:"remarks"`
}

// ListAttendanceRecords serves attendance entries, optionally filtered by
// student and date.
func (s *DataService) ListAttendanceRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if !s.readsLocal() {
		records, err := s.remote.SelectAttendanceRecords(ctx, filter)
		if err == nil {
			s.refreshAttendance(ctx, records)
			return records, nil
		}
		s.logger.Warn("remote attendance read failed, serving cache", zap.Error(err))
	}
	records, err := s.store.ListAttendanceRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	return filterDeletedAttendance(records), nil
}

// GetAttendanceRecord returns one attendance entry from the cache.
func (s *DataService) GetAttendanceRecord(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	record, err := s.store.GetAttendanceRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil || record.OfflineDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	return record, nil
}

// CreateAttendanceRecord marks attendance, local store first.
func (s *DataService) CreateAttendanceRecord(ctx context.Context, req CreateAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	now := time.Now().UTC()
	record := models.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		Date:      req.Date,
		Status:    models.AttendanceStatus(req.Status),
		Remarks:   req.Remarks,
		CreatedAt: now,
		CreatedBy: req.CreatedBy,
	}
	record.StampCreated()

	if err := s.store.PutAttendanceRecord(ctx, record); err != nil {
		return nil, err
	}
	if err := s.logOp(ctx, models.CollectionAttendance, record.ID, models.OpCreate, record, now); err != nil {
		return nil, err
	}

	if s.writesRemote() {
		if err := s.remote.InsertAttendanceRecord(ctx, record); err != nil {
			s.logger.Warn("immediate attendance push failed, record stays pending",
				zap.String("id", record.ID), zap.Error(err))
		} else {
			s.confirmSynced(ctx, models.CollectionAttendance, record.ID, &record.SyncEnvelope)
		}
	}
	return &record, nil
}

// UpdateAttendanceRecord corrects a recorded entry.
func (s *DataService) UpdateAttendanceRecord(ctx context.Context, id string, req UpdateAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	record, err := s.store.GetAttendanceRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil || record.OfflineDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}

	if req.Status != nil {
		record.Status = models.AttendanceStatus(*req.Status)
	}
	if req.Remarks != nil {
		record.Remarks = req.Remarks
	}
	now := time.Now().UTC()
	record.StampUpdated()

	if err := s.store.PutAttendanceRecord(ctx, *record); err != nil {
		return nil, err
	}
	if err := s.logOp(ctx, models.CollectionAttendance, record.ID, models.OpUpdate, record, now); err != nil {
		return nil, err
	}

	if s.writesRemote() {
		push := s.remote.UpdateAttendanceRecord
		if record.OfflineCreated {
			push = s.remote.InsertAttendanceRecord
		}
		if err := push(ctx, *record); err != nil {
			s.logger.Warn("immediate attendance push failed, record stays pending",
				zap.String("id", record.ID), zap.Error(err))
		} else {
			s.confirmSynced(ctx, models.CollectionAttendance, record.ID, &record.SyncEnvelope)
		}
	}
	return record, nil
}

// DeleteAttendanceRecord flags an entry for remote deletion.
func (s *DataService) DeleteAttendanceRecord(ctx context.Context, id string) error {
	record, err := s.store.GetAttendanceRecord(ctx, id)
	if err != nil {
		return err
	}
	if record == nil || record.OfflineDeleted {
		return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}

	now := time.Now().UTC()
	record.StampDeleted()
	if err := s.store.PutAttendanceRecord(ctx, *record); err != nil {
		return err
	}
	if err := s.logOp(ctx, models.CollectionAttendance, record.ID, models.OpDelete, record, now); err != nil {
		return err
	}

	if s.writesRemote() {
		if err := s.remote.DeleteAttendanceRecord(ctx, id); err != nil {
			s.logger.Warn("immediate attendance delete failed, record stays pending",
				zap.String("id", id), zap.Error(err))
			return nil
		}
		s.confirmDeleted(ctx, models.CollectionAttendance, id)
	}
	return nil
}

func (s *DataService) refreshAttendance(ctx context.Context, records []models.AttendanceRecord) {
	now := time.Now().UTC()
	for _, record := range records {
		local, err := s.store.GetAttendanceRecord(ctx, record.ID)
		if err != nil {
			s.logger.Warn("attendance cache refresh read failed", zap.String("id", record.ID), zap.Error(err))
			continue
		}
		if local != nil && local.Dirty() {
			continue
		}
		record.MarkClean(now)
		if err := s.store.PutAttendanceRecord(ctx, record); err != nil {
			s.logger.Warn("attendance cache refresh write failed", zap.String("id", record.ID), zap.Error(err))
		}
	}
}

func filterDeletedAttendance(records []models.AttendanceRecord) []models.AttendanceRecord {
	out := records[:0]
	for _, record := range records {
		if !record.OfflineDeleted {
			out = append(out, record)
		}
	}
	return out
}
