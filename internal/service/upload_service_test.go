package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"sync"
	"testing"

	"github.com/certvault/internal/config"
	"github.com/certvault/internal/models"
	"github.com/certvault/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	removeErr error
	removed   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return f.URL(key), nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeStorage) URL(key string) string {
	return "https://storage.test/" + key
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

var testDBSeq int

func newTestCertRepo(t *testing.T) repository.CertificateRepository {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:upload_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}, &models.Certificate{}, &models.CertificateDetail{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return repository.NewCertificateRepository(db)
}

func uploadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Upload: config.UploadConfig{
			MaxSize:           5 * 1024 * 1024,
			MaxFiles:          10,
			AllowedTypes:      []string{"image/jpeg", "image/png"},
			AllowedExtensions: []string{".jpg", ".jpeg", ".png"},
			TempDir:           t.TempDir(),
		},
		Storage: config.StorageConfig{Folder: "certificates"},
	}
}

func makeImageFiles(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile("certificates", name)
		if err != nil {
			t.Fatalf("create form file failed: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write form file failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer failed: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read multipart form failed: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["certificates"]
}

func TestUploadCreatesCertificateAndCleansTempFiles(t *testing.T) {
	cfg := uploadTestConfig(t)
	repo := newTestCertRepo(t)
	store := newFakeStorage()
	svc := NewUploadService(cfg, repo, store)

	files := makeImageFiles(t, map[string][]byte{
		"front.png": pngBytes(t, 40, 60),
		"back.jpg":  jpegBytes(t, 60, 40),
	})

	cert, err := svc.Upload(context.Background(), UploadInput{
		RollNumber:   " md2024001 ",
		Files:        files,
		UploadedByID: 1,
		Detail: &CertificateDetailInput{
			StudentName: "Abdul Karim",
			Category:    "Madrasa",
			Percentage:  "92.5",
		},
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if cert.RollNumber != "MD2024001" {
		t.Fatalf("roll number want MD2024001 got %s", cert.RollNumber)
	}
	if cert.StorageKey == "" || cert.PdfURL == "" {
		t.Fatalf("storage key and pdf url should be set")
	}
	if store.count() != 1 {
		t.Fatalf("storage object count want 1 got %d", store.count())
	}
	if cert.Detail == nil || cert.Detail.Category != "madrasa" {
		t.Fatalf("detail category want madrasa got %+v", cert.Detail)
	}
	if !cert.Detail.Percentage.Valid || cert.Detail.Percentage.Decimal.String() != "92.5" {
		t.Fatalf("percentage want 92.5 got %+v", cert.Detail.Percentage)
	}

	entries, err := os.ReadDir(cfg.Upload.TempDir)
	if err != nil {
		t.Fatalf("read temp dir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir should be empty after upload, got %d entries", len(entries))
	}

	saved, err := repo.GetByRollNumber("MD2024001")
	if err != nil {
		t.Fatalf("get by roll number failed: %v", err)
	}
	if saved == nil {
		t.Fatalf("certificate should be persisted")
	}
}

func TestUploadRejectsDuplicateRollNumber(t *testing.T) {
	cfg := uploadTestConfig(t)
	repo := newTestCertRepo(t)
	store := newFakeStorage()
	svc := NewUploadService(cfg, repo, store)

	first := makeImageFiles(t, map[string][]byte{"a.png": pngBytes(t, 10, 10)})
	if _, err := svc.Upload(context.Background(), UploadInput{RollNumber: "SC100", Files: first, UploadedByID: 1}); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	second := makeImageFiles(t, map[string][]byte{"b.png": pngBytes(t, 10, 10)})
	_, err := svc.Upload(context.Background(), UploadInput{RollNumber: "sc100", Files: second, UploadedByID: 1})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("want ErrDuplicateRecord got %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("duplicate upload should not leave extra objects, got %d", store.count())
	}
}

func TestUploadRejectsInvalidRollNumber(t *testing.T) {
	svc := NewUploadService(uploadTestConfig(t), newTestCertRepo(t), newFakeStorage())

	cases := []string{"", "  ", "MD-2024", "roll number", "MD/01"}
	for _, roll := range cases {
		_, err := svc.Upload(context.Background(), UploadInput{RollNumber: roll, UploadedByID: 1})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("roll %q want ErrValidation got %v", roll, err)
		}
	}
}

func TestUploadRejectsNonImagePayload(t *testing.T) {
	cfg := uploadTestConfig(t)
	store := newFakeStorage()
	svc := NewUploadService(cfg, newTestCertRepo(t), store)

	files := makeImageFiles(t, map[string][]byte{"fake.png": []byte("not an image at all")})
	_, err := svc.Upload(context.Background(), UploadInput{RollNumber: "MD9", Files: files, UploadedByID: 1})
	if !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("want ErrInvalidFile got %v", err)
	}
	if store.count() != 0 {
		t.Fatalf("rejected upload should not write storage objects")
	}

	entries, err := os.ReadDir(cfg.Upload.TempDir)
	if err != nil {
		t.Fatalf("read temp dir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir should be cleaned after rejection, got %d entries", len(entries))
	}
}

func TestUploadStorageFailureLeavesNoRecord(t *testing.T) {
	cfg := uploadTestConfig(t)
	repo := newTestCertRepo(t)
	store := newFakeStorage()
	store.putErr = errors.New("bucket unreachable")
	svc := NewUploadService(cfg, repo, store)

	files := makeImageFiles(t, map[string][]byte{"a.png": pngBytes(t, 10, 10)})
	_, err := svc.Upload(context.Background(), UploadInput{RollNumber: "MD20", Files: files, UploadedByID: 1})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("want ErrStorage got %v", err)
	}

	saved, err := repo.GetByRollNumber("MD20")
	if err != nil {
		t.Fatalf("get by roll number failed: %v", err)
	}
	if saved != nil {
		t.Fatalf("failed upload must not persist a record")
	}

	entries, err := os.ReadDir(cfg.Upload.TempDir)
	if err != nil {
		t.Fatalf("read temp dir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir should be cleaned after storage failure, got %d entries", len(entries))
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	svc := NewUploadService(uploadTestConfig(t), newTestCertRepo(t), newFakeStorage())

	files := makeImageFiles(t, map[string][]byte{"scan.gif": pngBytes(t, 10, 10)})
	_, err := svc.Upload(context.Background(), UploadInput{RollNumber: "MD10", Files: files, UploadedByID: 1})
	if !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("want ErrInvalidFile got %v", err)
	}
}

func TestUploadRejectsTooManyFiles(t *testing.T) {
	cfg := uploadTestConfig(t)
	cfg.Upload.MaxFiles = 1
	svc := NewUploadService(cfg, newTestCertRepo(t), newFakeStorage())

	files := makeImageFiles(t, map[string][]byte{
		"a.png": pngBytes(t, 10, 10),
		"b.png": pngBytes(t, 10, 10),
	})
	_, err := svc.Upload(context.Background(), UploadInput{RollNumber: "MD11", Files: files, UploadedByID: 1})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation got %v", err)
	}
}
