package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	StudentID            string   `json:"student_id" validate:"required"`
	Name                 string   `json:"name" validate:"required"`
	RollNumber           string   `json:"roll_number" validate:"required"`
	Class                string   `json:"class" validate:"required"`
	Section              *string  `json:"section"`
	Contact              *string  `json:"contact"`
	Address              *string  `json:"address"`
	TotalFee             *float64 `json:"total_fee" validate:"omitempty,gte=0"`
	FeePaid              *float64 `json:"fee_paid" validate:"omitempty,gte=0"`
	AttendancePercentage *float64 `json:"attendance_percentage" validate:"omitempty,gte=0,lte=100"`
	Remarks              *string  `json:"remarks"`
	CreatedBy            string   `json:"created_by"`
}

// UpdateStudentRequest holds a partial student update. Nil fields are left
// untouched.
type UpdateStudentRequest struct {
	StudentID            *string  `json:"student_id"`
	Name                 *string  `json:"name"`
	RollNumber           *string  `json:"roll_number"`
	Class                *string  `json:"class"`
	Section              *string  `json:"section"`
	Contact              *string  `json:"contact"`
	Address              *string  `json:"address"`
	TotalFee             *float64 `json:"total_fee" validate:"omitempty,gte=0"`
	FeePaid              *float64 `json:"fee_paid" validate:"omitempty,gte=0"`
	AttendancePercentage *float64 `json:"attendance_percentage" validate:"omitempty,gte=0,lte=100"`
	Remarks              *string  `json:"remarks"`
}

// ListStudents serves the student collection. Online it prefers the remote
// store and refreshes the cache with what it got back; offline, or when the
// remote read fails, it serves the cache minus records awaiting deletion.
func (s *DataService) ListStudents(ctx context.Context) ([]models.Student, error) {
	if !s.readsLocal() {
		students, err := s.remote.SelectStudents(ctx)
		if err == nil {
			s.refreshStudents(ctx, students)
			return students, nil
		}
		s.logger.Warn("remote student read failed, serving cache", zap.Error(err))
	}
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	return filterDeletedStudents(students), nil
}

// GetStudent returns one student from the cache. Every write lands in the
// cache first, so the cache is authoritative for point reads.
func (s *DataService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil || student.OfflineDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// CreateStudent registers a new student. The record is written to the local
// store unconditionally; a remote insert is attempted only when online with
// auto-sync enabled, and its failure still leaves the creation successful.
func (s *DataService) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	now := time.Now().UTC()
	student := models.Student{
		ID:                   uuid.NewString(),
		StudentID:            req.StudentID,
		Name:                 req.Name,
		RollNumber:           req.RollNumber,
		Class:                req.Class,
		Section:              req.Section,
		Contact:              req.Contact,
		Address:              req.Address,
		TotalFee:             req.TotalFee,
		FeePaid:              req.FeePaid,
		AttendancePercentage: req.AttendancePercentage,
		Remarks:              req.Remarks,
		CreatedAt:            now,
		UpdatedAt:            now,
		CreatedBy:            req.CreatedBy,
	}
	student.StampCreated()

	if err := s.store.PutStudent(ctx, student); err != nil {
		return nil, err
	}
	if err := s.logOp(ctx, models.CollectionStudents, student.ID, models.OpCreate, student, now); err != nil {
		return nil, err
	}

	if s.writesRemote() {
		if err := s.remote.InsertStudent(ctx, student); err != nil {
			s.logger.Warn("immediate student push failed, record stays pending",
				zap.String("id", student.ID), zap.Error(err))
		} else {
			s.confirmSynced(ctx, models.CollectionStudents, student.ID, &student.SyncEnvelope)
		}
	}
	return &student, nil
}

// UpdateStudent applies a partial update to an existing student.
func (s *DataService) UpdateStudent(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil || student.OfflineDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	applyStudentUpdate(student, req)
	now := time.Now().UTC()
	student.UpdatedAt = now
	student.StampUpdated()

	if err := s.store.PutStudent(ctx, *student); err != nil {
		return nil, err
	}
	if err := s.logOp(ctx, models.CollectionStudents, student.ID, models.OpUpdate, student, now); err != nil {
		return nil, err
	}

	if s.writesRemote() {
		push := s.remote.UpdateStudent
		if student.OfflineCreated {
			push = s.remote.InsertStudent
		}
		if err := push(ctx, *student); err != nil {
			s.logger.Warn("immediate student push failed, record stays pending",
				zap.String("id", student.ID), zap.Error(err))
		} else {
			s.confirmSynced(ctx, models.CollectionStudents, student.ID, &student.SyncEnvelope)
		}
	}
	return student, nil
}

// DeleteStudent flags a student for deletion. The row survives locally until
// the remote store confirms, so an offline delete is never lost.
func (s *DataService) DeleteStudent(ctx context.Context, id string) error {
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if student == nil || student.OfflineDeleted {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	now := time.Now().UTC()
	student.StampDeleted()
	if err := s.store.PutStudent(ctx, *student); err != nil {
		return err
	}
	if err := s.logOp(ctx, models.CollectionStudents, student.ID, models.OpDelete, student, now); err != nil {
		return err
	}

	if s.writesRemote() {
		if err := s.remote.DeleteStudent(ctx, id); err != nil {
			s.logger.Warn("immediate student delete failed, record stays pending",
				zap.String("id", id), zap.Error(err))
			return nil
		}
		s.confirmDeleted(ctx, models.CollectionStudents, id)
	}
	return nil
}

// refreshStudents writes clean remote rows back into the cache, skipping any
// record with unsynced local changes. Best effort: a cache refresh failure
// does not fail the read that triggered it.
func (s *DataService) refreshStudents(ctx context.Context, students []models.Student) {
	now := time.Now().UTC()
	for _, student := range students {
		local, err := s.store.GetStudent(ctx, student.ID)
		if err != nil {
			s.logger.Warn("student cache refresh read failed", zap.String("id", student.ID), zap.Error(err))
			continue
		}
		if local != nil && local.Dirty() {
			continue
		}
		student.MarkClean(now)
		if err := s.store.PutStudent(ctx, student); err != nil {
			s.logger.Warn("student cache refresh write failed", zap.String("id", student.ID), zap.Error(err))
		}
	}
}

func applyStudentUpdate(student *models.Student, req UpdateStudentRequest) {
	if req.StudentID != nil {
		student.StudentID = *req.StudentID
	}
	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.RollNumber != nil {
		student.RollNumber = *req.RollNumber
	}
	if req.Class != nil {
		student.Class = *req.Class
	}
	if req.Section != nil {
		student.Section = req.Section
	}
	if req.Contact != nil {
		student.Contact = req.Contact
	}
	if req.Address != nil {
		student.Address = req.Address
	}
	if req.TotalFee != nil {
		student.TotalFee = req.TotalFee
	}
	if req.FeePaid != nil {
		student.FeePaid = req.FeePaid
	}
	if req.AttendancePercentage != nil {
		student.AttendancePercentage = req.AttendancePercentage
	}
	if req.Remarks != nil {
		student.Remarks = req.Remarks
	}
}

func filterDeletedStudents(students []models.Student) []models.Student {
	out := students[:0]
	for _, student := range students {
		if !student.OfflineDeleted {
			out = append(out, student)
		}
	}
	return out
}
