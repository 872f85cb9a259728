package service

import (
	"context"
	"errors"
	"testing"

	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"

	"github.com/shopspring/decimal"
)

func newTestCertificateService(t *testing.T) (*CertificateService, repository.CertificateRepository, *fakeStorage) {
	t.Helper()
	repo := newTestCertRepo(t)
	store := newFakeStorage()
	svc := NewCertificateService(uploadTestConfig(t), repo, store)
	return svc, repo, store
}

func TestUpdateChangesRollNumber(t *testing.T) {
	svc, repo, _ := newTestCertificateService(t)
	cert := seedCertificate(t, repo, "MD2024001")

	updated, err := svc.Update(context.Background(), cert.ID, UpdateCertificateInput{RollNumber: " md2024099 "})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.RollNumber != "MD2024099" {
		t.Fatalf("roll number want MD2024099 got %s", updated.RollNumber)
	}

	stored, err := repo.GetByRollNumber("MD2024099")
	if err != nil {
		t.Fatalf("get by roll number failed: %v", err)
	}
	if stored == nil {
		t.Fatalf("updated roll number should be persisted")
	}
}

func TestUpdateRejectsRollNumberCollision(t *testing.T) {
	svc, repo, _ := newTestCertificateService(t)
	seedCertificate(t, repo, "MD2024001")
	cert := seedCertificate(t, repo, "MD2024002")

	_, err := svc.Update(context.Background(), cert.ID, UpdateCertificateInput{RollNumber: "md2024001"})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("want ErrDuplicateRecord got %v", err)
	}
}

func TestUpdateMergesDetail(t *testing.T) {
	svc, repo, _ := newTestCertificateService(t)
	cert := seedCertificate(t, repo, "MD2024001")
	if err := repo.SaveDetail(&models.CertificateDetail{
		CertificateID: cert.ID,
		StudentName:   "张三",
		Category:      "madrasa",
		Year:          "2024",
	}); err != nil {
		t.Fatalf("save detail failed: %v", err)
	}

	updated, err := svc.Update(context.Background(), cert.ID, UpdateCertificateInput{
		Detail: &CertificateDetailInput{
			Grade:      "A+",
			Percentage: "88",
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	detail := updated.Detail
	if detail == nil {
		t.Fatalf("detail should be present")
	}
	if detail.StudentName != "张三" || detail.Year != "2024" {
		t.Fatalf("untouched fields should keep their values, got %+v", detail)
	}
	if detail.Grade != "A+" {
		t.Fatalf("grade want A+ got %s", detail.Grade)
	}
	if !detail.Percentage.Valid || !detail.Percentage.Decimal.Equal(decimal.NewFromInt(88)) {
		t.Fatalf("percentage want 88 got %+v", detail.Percentage)
	}
}

func TestUpdateRejectsBadDetail(t *testing.T) {
	svc, repo, _ := newTestCertificateService(t)
	cert := seedCertificate(t, repo, "MD2024001")

	cases := []CertificateDetailInput{
		{Category: "university"},
		{Percentage: "abc"},
		{Percentage: "101"},
		{Percentage: "-1"},
	}
	for _, input := range cases {
		detail := input
		if _, err := svc.Update(context.Background(), cert.ID, UpdateCertificateInput{Detail: &detail}); !errors.Is(err, ErrValidation) {
			t.Fatalf("input %+v: want ErrValidation got %v", input, err)
		}
	}
}

func TestUpdateBadDetailLeavesRollUnchanged(t *testing.T) {
	svc, repo, _ := newTestCertificateService(t)
	cert := seedCertificate(t, repo, "MD2024001")

	_, err := svc.Update(context.Background(), cert.ID, UpdateCertificateInput{
		RollNumber: "MD2024099",
		Detail:     &CertificateDetailInput{Percentage: "101"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation got %v", err)
	}

	stored, err := repo.GetByID(cert.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if stored.RollNumber != "MD2024001" {
		t.Fatalf("rejected update must not change the roll number, got %s", stored.RollNumber)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := newTestCertificateService(t)

	_, err := svc.Update(context.Background(), 9999, UpdateCertificateInput{RollNumber: "MD2024001"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound got %v", err)
	}
}

func TestDeleteRemovesRecordAndObject(t *testing.T) {
	svc, repo, store := newTestCertificateService(t)
	cert := seedCertificate(t, repo, "MD2024001")

	if err := svc.Delete(context.Background(), cert.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := repo.GetByID(cert.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if got != nil {
		t.Fatalf("record should be gone")
	}
	if len(store.removed) != 1 || store.removed[0] != cert.StorageKey {
		t.Fatalf("storage object should be removed, got %v", store.removed)
	}
}

func TestDeleteSurvivesStorageFailure(t *testing.T) {
	svc, repo, store := newTestCertificateService(t)
	cert := seedCertificate(t, repo, "MD2024001")
	store.removeErr = errors.New("storage unreachable")

	if err := svc.Delete(context.Background(), cert.ID); err != nil {
		t.Fatalf("delete should succeed despite storage failure: %v", err)
	}

	got, err := repo.GetByID(cert.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if got != nil {
		t.Fatalf("record should be gone even when storage removal fails")
	}
}

func TestGetStats(t *testing.T) {
	svc, repo, _ := newTestCertificateService(t)
	seedCertificate(t, repo, "MD2024001")
	seedCertificate(t, repo, "MD2024002")
	seedCertificate(t, repo, "MD2024003")

	stats, err := svc.GetStats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("total want 3 got %d", stats.Total)
	}
	if stats.RecentGrowth != 3 {
		t.Fatalf("recent growth want 3 got %d", stats.RecentGrowth)
	}
}

func TestExportXLSX(t *testing.T) {
	svc, repo, _ := newTestCertificateService(t)
	cert := seedCertificate(t, repo, "MD2024001")
	if err := repo.SaveDetail(&models.CertificateDetail{
		CertificateID: cert.ID,
		StudentName:   "李四",
		Category:      "school",
	}); err != nil {
		t.Fatalf("save detail failed: %v", err)
	}

	data, err := svc.ExportXLSX()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("export should produce data")
	}
	// xlsx 本质是 zip 包，以 PK 开头
	if data[0] != 'P' || data[1] != 'K' {
		t.Fatalf("export should be a zip archive, got %x", data[:2])
	}
}
