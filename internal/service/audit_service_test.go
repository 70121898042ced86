package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"compliance-backend/internal/model"

	"github.com/google/uuid"
)

type fakeAuditRepo struct {
	entries   []*model.AuditLog
	createErr error
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return nil, 0, nil
}

func TestAuditRecordSerializesDetails(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo)

	svc.Record(context.Background(), "user_1", model.ActionCreateTag, "tag_1", "Urgent",
		map[string]string{"color": "red"})

	if len(repo.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Action != model.ActionCreateTag || entry.UserID != "user_1" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Details != `{"color":"red"}` {
		t.Errorf("Details = %s", entry.Details)
	}
}

func TestAuditRecordNilDetails(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo)
	svc.Record(context.Background(), "user_1", model.ActionDeleteTag, "tag_1", "", nil)
	if repo.entries[0].Details != "{}" {
		t.Errorf("Details = %s, want {}", repo.entries[0].Details)
	}
}

func TestAuditRecordSwallowsWriteFailure(t *testing.T) {
	repo := &fakeAuditRepo{createErr: errors.New("db down")}
	svc := NewAuditService(repo)
	// best-effort: must not panic or surface the failure
	svc.Record(context.Background(), "user_1", model.ActionDeleteTag, "tag_1", "", nil)
}

func TestAuditRecordTxPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	svc := NewAuditService(&fakeAuditRepo{createErr: boom})
	err := svc.RecordTx(context.Background(), "user_1", model.ActionCreateDepartment, "d1", "HR", nil)
	if !errors.Is(err, boom) {
		t.Errorf("RecordTx err = %v, want %v", err, boom)
	}
}

type listingAuditRepo struct {
	fakeAuditRepo
	logs  []model.AuditLog
	total int64
}

func (f *listingAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return f.logs, f.total, nil
}

func TestAuditListShapesResponse(t *testing.T) {
	created := time.Date(2023, 7, 1, 9, 30, 0, 0, time.UTC)
	repo := &listingAuditRepo{
		logs: []model.AuditLog{{
			ID:         uuid.New(),
			UserID:     "user_1",
			Action:     model.ActionUpdateChecklist,
			EntityID:   "c1",
			EntityName: "File report",
			Details:    `{"completed":true}`,
			CreatedAt:  created,
		}},
		total: 41,
	}
	svc := NewAuditService(repo)

	rows, total, err := svc.List(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 41 || len(rows) != 1 {
		t.Errorf("total = %d rows = %d", total, len(rows))
	}
	if rows[0].CreatedAt != "2023-07-01 09:30:00" {
		t.Errorf("CreatedAt = %s", rows[0].CreatedAt)
	}
	if rows[0].Action != model.ActionUpdateChecklist || rows[0].EntityName != "File report" {
		t.Errorf("row = %+v", rows[0])
	}
}
