package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

func finalizedRequest() *entity.ApprovalRequest {
	at := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	category := int64(2)
	return &entity.ApprovalRequest{
		ID:             5,
		OwnerID:        "owner",
		Title:          "Team lunch",
		CategoryID:     &category,
		AmountMin:      decimal.NewFromInt(90),
		AmountAvg:      decimal.NewFromInt(100),
		AmountMax:      decimal.NewFromInt(110),
		Status:         entity.StatusApproved,
		ApprovedAmount: decimal.NewNullDecimal(decimal.NewFromInt(105)),
		ApprovedAt:     &at,
	}
}

func TestMaterializer_CreatesTaggedEntry(t *testing.T) {
	var stored *entity.LedgerEntry
	repo := &mockLedgerRepo{createFunc: func(ctx context.Context, e *entity.LedgerEntry) error {
		e.ID = 31
		stored = e
		return nil
	}}
	m := NewMaterializer(repo, &mockLogger{})
	req := finalizedRequest()

	entry, created, err := m.Materialize(context.Background(), req, "a2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created || entry.ID != 31 {
		t.Fatalf("created=%v id=%d", created, entry.ID)
	}
	if stored.Title != "[Personal] Team lunch" {
		t.Errorf("title = %q", stored.Title)
	}
	if stored.SourceRequestID == nil || *stored.SourceRequestID != 5 {
		t.Errorf("source request = %v", stored.SourceRequestID)
	}
	if stored.Note != "personal-request:5" {
		t.Errorf("note = %q", stored.Note)
	}
	if !stored.ActualAmount.Decimal.Equal(decimal.NewFromInt(105)) || !stored.Date.Equal(*req.ApprovedAt) {
		t.Errorf("amount/date = %s/%s", stored.ActualAmount.Decimal, stored.Date)
	}
	if stored.CreatedBy != "a2" || stored.CategoryID == nil || *stored.CategoryID != 2 {
		t.Errorf("creator/category = %s/%v", stored.CreatedBy, stored.CategoryID)
	}
}

func TestMaterializer_IsIdempotent(t *testing.T) {
	existing := &entity.LedgerEntry{ID: 31, ActualAmount: decimal.NewNullDecimal(decimal.NewFromInt(99))}
	creates := 0
	repo := &mockLedgerRepo{
		getBySourceRequestFunc: func(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
			return existing, nil
		},
		createFunc: func(ctx context.Context, e *entity.LedgerEntry) error {
			creates++
			return nil
		},
	}
	m := NewMaterializer(repo, &mockLogger{})

	for i := 0; i < 2; i++ {
		entry, created, err := m.Materialize(context.Background(), finalizedRequest(), "a1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created || entry.ID != 31 {
			t.Errorf("call %d: created=%v id=%d", i, created, entry.ID)
		}
	}
	if creates != 0 {
		t.Errorf("create called %d times", creates)
	}
}

func TestMaterializer_LostUniqueRace(t *testing.T) {
	lookups := 0
	repo := &mockLedgerRepo{
		getBySourceRequestFunc: func(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
			lookups++
			if lookups == 1 {
				return nil, nil
			}
			return &entity.LedgerEntry{ID: 44, ActualAmount: decimal.NewNullDecimal(decimal.NewFromInt(105))}, nil
		},
		createFunc: func(ctx context.Context, e *entity.LedgerEntry) error {
			return fmt.Errorf("insert: %w", port.ErrStorageConflict)
		},
	}

	entry, created, err := NewMaterializer(repo, &mockLogger{}).Materialize(context.Background(), finalizedRequest(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created || entry.ID != 44 {
		t.Errorf("created=%v id=%d", created, entry.ID)
	}
}

func TestMaterializer_RejectsUnfinalized(t *testing.T) {
	req := finalizedRequest()
	req.Status = entity.StatusPending
	req.ApprovedAmount = decimal.NullDecimal{}

	_, _, err := NewMaterializer(&mockLedgerRepo{}, &mockLogger{}).Materialize(context.Background(), req, "a1")
	if !errors.Is(err, port.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}
