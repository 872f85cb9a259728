package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/certvault/internal/models"
	"github.com/certvault/internal/provider"
	"github.com/certvault/internal/repository"
	"github.com/certvault/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int

func newResultsTestRouter(t *testing.T) (*gin.Engine, repository.CertificateRepository) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:public_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}, &models.Certificate{}, &models.CertificateDetail{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	repo := repository.NewCertificateRepository(db)

	handler := New(&provider.Container{
		CertificateRepo: repo,
		LookupService:   service.NewLookupService(repo),
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	results := r.Group("/api/results")
	{
		results.GET("/search", handler.Search)
		results.GET("/search/:rollNumber", handler.Search)
		results.POST("/verify-roll", handler.Verify)
	}
	return r, repo
}

func seedResult(t *testing.T, repo repository.CertificateRepository, rollNumber string) {
	t.Helper()
	if err := repo.Create(&models.Certificate{
		RollNumber: rollNumber,
		PdfURL:     "https://storage.test/certificates/" + rollNumber + ".pdf",
		FileName:   rollNumber + ".pdf",
		StorageKey: "certificates/" + rollNumber + ".pdf",
	}); err != nil {
		t.Fatalf("seed certificate failed: %v", err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func TestSearchByQueryParam(t *testing.T) {
	r, repo := newResultsTestRouter(t)
	seedResult(t, repo, "MD2024001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/results/search?rollNumber=md2024001", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if !resp.Success {
		t.Fatalf("response should be successful: %s", w.Body.String())
	}
	if !strings.Contains(string(resp.Data), "MD2024001") {
		t.Fatalf("result should carry the roll number: %s", resp.Data)
	}
}

func TestSearchByPathParam(t *testing.T) {
	r, repo := newResultsTestRouter(t)
	seedResult(t, repo, "MD2024001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/results/search/MD2024001", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
}

func TestSearchUnknownRollReturns404(t *testing.T) {
	r, _ := newResultsTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/results/search?rollNumber=NOPE2024", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404 got %d: %s", w.Code, w.Body.String())
	}
}

func TestVerifyRollPost(t *testing.T) {
	r, repo := newResultsTestRouter(t)
	seedResult(t, repo, "SC2024015")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/results/verify-roll",
		strings.NewReader(`{"rollNumber":"sc2024015"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"exists":true`) {
		t.Fatalf("existing roll should verify: %s", w.Body.String())
	}
}
