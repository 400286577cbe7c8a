package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
)

// CreateFeePaymentRequest holds payload for recording a fee installment.
type CreateFeePaymentRequest struct {
	StudentID     string    `json:"student_id" validate:"required"`
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	PaymentDate   time.Time `json:"payment_date" validate:"required"`
	PaymentMethod *string   `json:"payment_method"`
	Remarks       *string   `json:"remarks"`
	CreatedBy     string    `json:"created_by"`
}

// UpdateFeePaymentRequest holds a partial payment correction.
type UpdateFeePaymentRequest struct {
	Amount        *float64   `json:"amount" validate:"omitempty,gt=0"`
	PaymentDate   *time.Time `json:"payment_date"`
	PaymentMethod *string    `json:"payment_method"`
	Remarks       *string    `json:"remarks"`
}

// ListFeePayments serves fee payments, optionally scoped to one student.
func (s *DataService) ListFeePayments(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, error) {
	if !s.readsLocal() {
		payments, err := s.remote.SelectFeePayments(ctx, filter)
		if err == nil {
			s.refreshFeePayments(ctx, payments)
			return payments, nil
		}
		s.logger.Warn("remote payment read failed, serving cache", zap.Error(err))
	}
	payments, err := s.store.ListFeePayments(ctx, filter)
	if err != nil {
		return nil, err
	}
	return filterDeletedPayments(payments), nil
}

// GetFeePayment returns one payment from the cache.
func (s *DataService) GetFeePayment(ctx context.Context, id string) (*models.FeePayment, error) {
	payment, err := s.store.GetFeePayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.OfflineDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "fee payment not found")
	}
	return payment, nil
}

// CreateFeePayment records a fee installment, local store first.
func (s *DataService) CreateFeePayment(ctx context.Context, req CreateFeePaymentRequest) (*models.FeePayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payment payload")
	}

	now := time.Now().UTC()
	payment := models.FeePayment{
		ID:            uuid.NewString(),
		StudentID:     req.StudentID,
		Amount:        req.Amount,
		PaymentDate:   req.PaymentDate,
		PaymentMethod: req.PaymentMethod,
		Remarks:       req.Remarks,
		CreatedAt:     now,
		CreatedBy:     req.CreatedBy,
	}
	payment.StampCreated()

	if err := s.store.PutFeePayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := s.logOp(ctx, models.CollectionFeePayments, payment.ID, models.OpCreate, payment, now); err != nil {
		return nil, err
	}

	if s.writesRemote() {
		if err := s.remote.InsertFeePayment(ctx, payment); err != nil {
			s.logger.Warn("immediate payment push failed, record stays pending",
				zap.String("id", payment.ID), zap.Error(err))
		} else {
			s.confirmSynced(ctx, models.CollectionFeePayments, payment.ID, &payment.SyncEnvelope)
		}
	}
	return &payment, nil
}

// UpdateFeePayment corrects an existing payment.
func (s *DataService) UpdateFeePayment(ctx context.Context, id string, req UpdateFeePaymentRequest) (*models.FeePayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payment payload")
	}
	payment, err := s.store.GetFeePayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.OfflineDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "fee payment not found")
	}

	if req.Amount != nil {
		payment.Amount = *req.Amount
	}
	if req.PaymentDate != nil {
		payment.PaymentDate = *req.PaymentDate
	}
	if req.PaymentMethod != nil {
		payment.PaymentMethod = req.PaymentMethod
	}
	if req.Remarks != nil {
		payment.Remarks = req.Remarks
	}
	now := time.Now().UTC()
	payment.StampUpdated()

	if err := s.store.PutFeePayment(ctx, *payment); err != nil {
		return nil, err
	}
	if err := s.logOp(ctx, models.CollectionFeePayments, payment.ID, models.OpUpdate, payment, now); err != nil {
		return nil, err
	}

	if s.writesRemote() {
		push := s.remote.UpdateFeePayment
		if payment.OfflineCreated {
			push = s.remote.InsertFeePayment
		}
		if err := push(ctx, *payment); err != nil {
			s.logger.Warn("immediate payment push failed, record stays pending",
				zap.String("id", payment.ID), zap.Error(err))
		} else {
			s.confirmSynced(ctx, models.CollectionFeePayments, payment.ID, &payment.SyncEnvelope)
		}
	}
	return payment, nil
}

// DeleteFeePayment flags a payment for remote deletion.
func (s *DataService) DeleteFeePayment(ctx context.Context, id string) error {
	payment, err := s.store.GetFeePayment(ctx, id)
	if err != nil {
		return err
	}
	if payment == nil || payment.OfflineDeleted {
		return appErrors.Clone(appErrors.ErrNotFound, "fee payment not found")
	}

	now := time.Now().UTC()
	payment.StampDeleted()
	if err := s.store.PutFeePayment(ctx, *payment); err != nil {
		return err
	}
	if err := s.logOp(ctx, models.CollectionFeePayments, payment.ID, models.OpDelete, payment, now); err != nil {
		return err
	}

	if s.writesRemote() {
		if err := s.remote.DeleteFeePayment(ctx, id); err != nil {
			s.logger.Warn("immediate payment delete failed, record stays pending",
				zap.String("id", id), zap.Error(err))
			return nil
		}
		s.confirmDeleted(ctx, models.CollectionFeePayments, id)
	}
	return nil
}

func (s *DataService) refreshFeePayments(ctx context.Context, payments []models.FeePayment) {
	now := time.Now().UTC()
	for _, payment := range payments {
		local, err := s.store.GetFeePayment(ctx, payment.ID)
		if err != nil {
			s.logger.Warn("payment cache refresh read failed", zap.String("id", payment.ID), zap.Error(err))
			continue
		}
		if local != nil && local.Dirty() {
			continue
		}
		payment.MarkClean(now)
		if err := s.store.PutFeePayment(ctx, payment); err != nil {
			s.logger.Warn("payment cache refresh write failed", zap.String("id", payment.ID), zap.Error(err))
		}
	}
}

func filterDeletedPayments(payments []models.FeePayment) []models.FeePayment {
	out := payments[:0]
	for _, payment := range payments {
		if !payment.OfflineDeleted {
			out = append(out, payment)
		}
	}
	return out
}
