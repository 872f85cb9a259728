package service

import (
	"context"
	"errors"
	"testing"

	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"

	"github.com/shopspring/decimal"
)

func seedCertificate(t *testing.T, repo repository.CertificateRepository, rollNumber string) *models.Certificate {
	t.Helper()
	cert := &models.Certificate{
		RollNumber: rollNumber,
		PdfURL:     "https://storage.test/certificates/" + rollNumber + ".pdf",
		FileName:   rollNumber + ".pdf",
		StorageKey: "certificates/" + rollNumber + ".pdf",
	}
	if err := repo.Create(cert); err != nil {
		t.Fatalf("seed certificate %s failed: %v", rollNumber, err)
	}
	return cert
}

func TestSearchNormalizesRollNumber(t *testing.T) {
	repo := newTestCertRepo(t)
	cert := seedCertificate(t, repo, "MD2024001")
	detail := &models.CertificateDetail{
		CertificateID: cert.ID,
		StudentName:   "张三",
		Category:      "madrasa",
		Percentage:    decimal.NewNullDecimal(decimal.RequireFromString("92.5")),
	}
	if err := repo.SaveDetail(detail); err != nil {
		t.Fatalf("save detail failed: %v", err)
	}

	svc := NewLookupService(repo)
	view, err := svc.Search(context.Background(), "  md2024001  ")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if view.RollNumber != "MD2024001" {
		t.Fatalf("roll number want MD2024001 got %s", view.RollNumber)
	}
	if view.PdfURL == "" || view.FileName == "" {
		t.Fatalf("result should carry file url and name")
	}
	if view.Detail == nil {
		t.Fatalf("result should carry detail")
	}
	if view.Detail.StudentName != "张三" {
		t.Fatalf("student name want 张三 got %s", view.Detail.StudentName)
	}
	if view.Detail.Percentage != "92.5" {
		t.Fatalf("percentage want 92.5 got %s", view.Detail.Percentage)
	}
}

func TestSearchNotFound(t *testing.T) {
	svc := NewLookupService(newTestCertRepo(t))

	_, err := svc.Search(context.Background(), "NOPE2024")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound got %v", err)
	}
}

func TestSearchRejectsInvalidRollNumber(t *testing.T) {
	svc := NewLookupService(newTestCertRepo(t))

	for _, roll := range []string{"", "   ", "MD-2024", "罗尔"} {
		if _, err := svc.Search(context.Background(), roll); !errors.Is(err, ErrValidation) {
			t.Fatalf("roll %q: want ErrValidation got %v", roll, err)
		}
	}
}

func TestVerifyRoll(t *testing.T) {
	repo := newTestCertRepo(t)
	seedCertificate(t, repo, "SC2024015")
	svc := NewLookupService(repo)

	exists, err := svc.VerifyRoll("sc2024015")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !exists {
		t.Fatalf("existing roll should verify")
	}

	exists, err = svc.VerifyRoll("SC9999999")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if exists {
		t.Fatalf("unknown roll should not verify")
	}
}

func TestRecentClampsLimit(t *testing.T) {
	repo := newTestCertRepo(t)
	for i := 0; i < 15; i++ {
		seedCertificate(t, repo, "RC"+string(rune('A'+i))+"2024")
	}
	svc := NewLookupService(repo)

	for _, limit := range []int{0, -3, 25} {
		views, err := svc.Recent(limit)
		if err != nil {
			t.Fatalf("recent(%d) failed: %v", limit, err)
		}
		if len(views) != 10 {
			t.Fatalf("recent(%d): want 10 results got %d", limit, len(views))
		}
	}

	views, err := svc.Recent(5)
	if err != nil {
		t.Fatalf("recent(5) failed: %v", err)
	}
	if len(views) != 5 {
		t.Fatalf("recent(5): want 5 results got %d", len(views))
	}
}

func TestPublicStats(t *testing.T) {
	repo := newTestCertRepo(t)
	seedCertificate(t, repo, "ST2024001")
	seedCertificate(t, repo, "ST2024002")
	svc := NewLookupService(repo)

	stats, err := svc.PublicStats()
	if err != nil {
		t.Fatalf("public stats failed: %v", err)
	}
	if stats["total"] != 2 {
		t.Fatalf("total want 2 got %d", stats["total"])
	}
	if stats["recent_growth"] != 2 {
		t.Fatalf("recent_growth want 2 got %d", stats["recent_growth"])
	}
}
