package service

import (
	"context"
	"encoding/json"
	"log"

	"compliance-backend/internal/model"
	"compliance-backend/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditService records who changed what. Record is best-effort: an audit
// write failure is logged, never propagated into the user's operation.
type AuditService interface {
	Record(ctx context.Context, userID, action, entityID, entityName string, details any)
	RecordTx(ctx context.Context, userID, action, entityID, entityName string, details any) error
	List(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) entry(userID, action, entityID, entityName string, details any) *model.AuditLog {
	payload := "{}"
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			payload = string(data)
		}
	}
	return &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
}

func (s *auditService) Record(ctx context.Context, userID, action, entityID, entityName string, details any) {
	if err := s.repo.Create(ctx, s.entry(userID, action, entityID, entityName, details)); err != nil {
		log.Printf("audit write failed for %s on %s: %v", action, entityID, err)
	}
}

// RecordTx writes the audit row inside the caller's transaction context, so
// the row commits or rolls back with the mutation it describes.
func (s *auditService) RecordTx(ctx context.Context, userID, action, entityID, entityName string, details any) error {
	return s.repo.Create(ctx, s.entry(userID, action, entityID, entityName, details))
}

func (s *auditService) List(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     l.UserID,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}
