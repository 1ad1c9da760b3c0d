package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"nutricek/internal/models"
	"nutricek/internal/registry"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Allergen{},
		&models.RegistryCache{},
		&models.RegistryScan{},
		&models.PhotoScan{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeResolver struct {
	calls  int
	record *models.ProductRecord
	err    error
}

func (f *fakeResolver) Resolve(ctx context.Context, identifier string) (*models.ProductRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeAnalyzer struct {
	calls  int
	result *models.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, imageData []byte, language string) (*models.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.result
	return &copied, nil
}

func (f *fakeAnalyzer) Chat(ctx context.Context, productContext, question, language string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "jawaban", nil
}

func sampleRecord() *models.ProductRecord {
	return &models.ProductRecord{
		RegistryNumber: "MD 224510107023",
		ProductName:    "Biskuit Coklat",
		Brand:          "Enak",
		Manufacturer:   "PT Pangan Sejahtera",
		Status:         "Berlaku",
	}
}

func sampleAnalysis() *models.AnalysisResult {
	return &models.AnalysisResult{
		Nutrition:   models.Nutrition{Calories: 150, Sugar: 12, Sodium: 180, Fiber: 2},
		HealthScore: 62,
		Grade:       "C",
		Ingredients: "tepung terigu, gula, susu bubuk",
		Warnings:    []string{"mengandung gluten"},
	}
}

func seedCache(t *testing.T, db *gorm.DB, record *models.ProductRecord, age time.Duration) {
	t.Helper()
	data, _ := json.Marshal(record)
	if err := db.Create(&models.RegistryCache{
		CacheKey:       registry.NormalizeKey(record.RegistryNumber),
		RegistryNumber: record.RegistryNumber,
		Data:           string(data),
		LastUpdated:    time.Now().Add(-age),
	}).Error; err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

func TestGetOrResolveFreshCacheSkipsResolver(t *testing.T) {
	db := testDB(t)
	resolver := &fakeResolver{record: sampleRecord()}
	svc := NewScanService(db, resolver, &fakeAnalyzer{}, 5)

	seedCache(t, db, sampleRecord(), 29*24*time.Hour)

	record, fromCache, err := svc.GetOrResolve(context.Background(), "MD 224510107023")
	if err != nil {
		t.Fatalf("get or resolve: %v", err)
	}
	if !fromCache {
		t.Fatal("expected cache hit")
	}
	if resolver.calls != 0 {
		t.Fatalf("expected resolver untouched for a 29-day-old entry, got %d calls", resolver.calls)
	}
	if record.ProductName != "Biskuit Coklat" {
		t.Fatalf("expected cached record, got %+v", record)
	}
}

func TestGetOrResolveStaleCacheInvokesResolver(t *testing.T) {
	db := testDB(t)
	resolver := &fakeResolver{record: sampleRecord()}
	svc := NewScanService(db, resolver, &fakeAnalyzer{}, 5)

	seedCache(t, db, sampleRecord(), 31*24*time.Hour)

	_, fromCache, err := svc.GetOrResolve(context.Background(), "MD 224510107023")
	if err != nil {
		t.Fatalf("get or resolve: %v", err)
	}
	if fromCache {
		t.Fatal("expected live resolution for a 31-day-old entry")
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one resolver call, got %d", resolver.calls)
	}

	// The stale entry was refreshed in place, not duplicated.
	var count int64
	db.Model(&models.RegistryCache{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one cache row after refresh, got %d", count)
	}
	var cache models.RegistryCache
	db.First(&cache)
	if time.Since(cache.LastUpdated) > time.Minute {
		t.Fatal("expected cache timestamp to be reset")
	}
}

func TestGetOrResolveMissIsNeverCached(t *testing.T) {
	db := testDB(t)
	resolver := &fakeResolver{err: registry.ErrNotFound}
	svc := NewScanService(db, resolver, &fakeAnalyzer{}, 5)

	_, _, err := svc.GetOrResolve(context.Background(), "MD 999")
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var count int64
	db.Model(&models.RegistryCache{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no cache rows for a miss, got %d", count)
	}
}

func TestGetOrResolveSharedKeyAcrossRawInputs(t *testing.T) {
	db := testDB(t)
	resolver := &fakeResolver{record: sampleRecord()}
	svc := NewScanService(db, resolver, &fakeAnalyzer{}, 5)

	if _, _, err := svc.GetOrResolve(context.Background(), "md224510107023"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if _, fromCache, err := svc.GetOrResolve(context.Background(), "MD 2245-1010-7023"); err != nil || !fromCache {
		t.Fatalf("expected second raw spelling to hit the shared cache entry, fromCache=%v err=%v", fromCache, err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one resolver call across spellings, got %d", resolver.calls)
	}
}

func TestResolveProductDedupsHistory(t *testing.T) {
	db := testDB(t)
	svc := NewScanService(db, &fakeResolver{record: sampleRecord()}, &fakeAnalyzer{}, 5)
	ident := Identity{SessionID: "sess-1"}

	_, firstID, _, err := svc.ResolveProduct(context.Background(), "MD 224510107023", ident)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}

	var first models.RegistryScan
	db.First(&first, firstID)
	earlier := time.Now().Add(-time.Hour)
	db.Model(&first).Update("created_at", earlier)

	_, secondID, _, err := svc.ResolveProduct(context.Background(), "MD 224510107023", ident)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}

	if firstID != secondID {
		t.Fatalf("expected the same history row, got %d then %d", firstID, secondID)
	}

	var count int64
	db.Model(&models.RegistryScan{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one history row, got %d", count)
	}

	var refreshed models.RegistryScan
	db.First(&refreshed, firstID)
	if !refreshed.CreatedAt.After(earlier) {
		t.Fatal("expected the repeat scan to refresh the timestamp")
	}
}

func TestResolveProductAttachesSessionToOwnedRow(t *testing.T) {
	db := testDB(t)
	svc := NewScanService(db, &fakeResolver{record: sampleRecord()}, &fakeAnalyzer{}, 5)

	userID := uint(7)
	db.Create(&models.RegistryScan{
		UserID:         &userID,
		RegistryNumber: "MD 224510107023",
		ProductName:    "Biskuit Coklat",
		CreatedAt:      time.Now().Add(-time.Hour),
	})

	ident := Identity{UserID: &userID, SessionID: "sess-new"}
	_, recordID, _, err := svc.ResolveProduct(context.Background(), "MD 224510107023", ident)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	var row models.RegistryScan
	db.First(&row, recordID)
	if row.SessionID != "sess-new" {
		t.Fatalf("expected session id attached to existing row, got %q", row.SessionID)
	}
}

func TestResolveProductHistoryWriteIsBestEffort(t *testing.T) {
	db := testDB(t)
	svc := NewScanService(db, &fakeResolver{record: sampleRecord()}, &fakeAnalyzer{}, 5)

	// Breaking the history table must not block the resolution payload.
	if err := db.Migrator().DropTable(&models.RegistryScan{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	record, recordID, _, err := svc.ResolveProduct(context.Background(), "MD 224510107023", Identity{SessionID: "s"})
	if err != nil {
		t.Fatalf("expected resolution to survive a history write failure, got %v", err)
	}
	if record == nil || recordID != 0 {
		t.Fatalf("expected record with zero record id, got id %d", recordID)
	}
}

func TestAnalyzeLabelQuotaBoundary(t *testing.T) {
	db := testDB(t)
	analyzer := &fakeAnalyzer{result: sampleAnalysis()}
	svc := NewScanService(db, &fakeResolver{}, analyzer, 4)
	ident := Identity{SessionID: "sess-q"}

	for i := 0; i < 3; i++ {
		db.Create(&models.PhotoScan{
			SessionID:  "sess-q",
			RawPayload: string(rune('a' + i)),
			CreatedAt:  time.Now().UTC(),
		})
	}

	// 3 existing rows: the call proceeds.
	if _, _, err := svc.AnalyzeLabel(context.Background(), []byte("img"), "", ident, "id"); err != nil {
		t.Fatalf("expected 4th analysis to pass, got %v", err)
	}
	if analyzer.calls != 1 {
		t.Fatalf("expected one model call, got %d", analyzer.calls)
	}

	// Now at the ceiling of 4: rejected before any vision-model call.
	_, _, err := svc.AnalyzeLabel(context.Background(), []byte("img"), "", ident, "id")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if analyzer.calls != 1 {
		t.Fatalf("expected quota rejection before the model call, got %d calls", analyzer.calls)
	}

	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) || !quotaErr.Anonymous {
		t.Fatalf("expected anonymous quota error, got %v", err)
	}
}

func TestAnalyzeLabelAdminBypassesQuota(t *testing.T) {
	db := testDB(t)
	analyzer := &fakeAnalyzer{result: sampleAnalysis()}
	svc := NewScanService(db, &fakeResolver{}, analyzer, 1)
	userID := uint(1)
	ident := Identity{UserID: &userID, SessionID: "", IsAdmin: true}

	db.Create(&models.PhotoScan{UserID: &userID, RawPayload: "x", CreatedAt: time.Now().UTC()})

	if _, _, err := svc.AnalyzeLabel(context.Background(), []byte("img"), "", ident, "id"); err != nil {
		t.Fatalf("expected admin to bypass quota, got %v", err)
	}
}

func TestAnalyzeLabelDuplicatePayloadRefreshes(t *testing.T) {
	db := testDB(t)
	analyzer := &fakeAnalyzer{result: sampleAnalysis()}
	svc := NewScanService(db, &fakeResolver{}, analyzer, 10)
	ident := Identity{SessionID: "sess-d"}

	_, firstID, err := svc.AnalyzeLabel(context.Background(), []byte("img"), "Biskuit", ident, "id")
	if err != nil {
		t.Fatalf("first analysis: %v", err)
	}

	_, secondID, err := svc.AnalyzeLabel(context.Background(), []byte("img"), "Biskuit", ident, "id")
	if err != nil {
		t.Fatalf("second analysis: %v", err)
	}

	if firstID != secondID {
		t.Fatalf("expected duplicate payload to refresh row %d, got new row %d", firstID, secondID)
	}

	var count int64
	db.Model(&models.PhotoScan{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one photo-scan row, got %d", count)
	}
}

func TestAnalyzeLabelAllergenWarnings(t *testing.T) {
	db := testDB(t)
	analyzer := &fakeAnalyzer{result: sampleAnalysis()}
	svc := NewScanService(db, &fakeResolver{}, analyzer, 10)

	gluten := models.Allergen{Name: "gluten"}
	milk := models.Allergen{Name: "susu"}
	peanut := models.Allergen{Name: "kacang tanah"}
	db.Create(&gluten)
	db.Create(&milk)
	db.Create(&peanut)

	user := models.User{Name: "Sari", Email: "sari@example.com", PasswordHash: "x", Allergies: []models.Allergen{milk, peanut}}
	db.Create(&user)

	ident := Identity{UserID: &user.ID}
	result, _, err := svc.AnalyzeLabel(context.Background(), []byte("img"), "", ident, "id")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	// Model warning kept, matching allergen added capitalized, non-matching
	// allergen absent. Ingredients contain "susu bubuk" but no peanuts.
	want := map[string]bool{
		"mengandung gluten":        true,
		"Mengandung alergen: Susu": true,
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", result.Warnings)
	}
	for _, w := range result.Warnings {
		if !want[w] {
			t.Fatalf("unexpected warning %q in %v", w, result.Warnings)
		}
	}
}

func TestChatNeverFailsOutward(t *testing.T) {
	db := testDB(t)
	svc := NewScanService(db, &fakeResolver{}, &fakeAnalyzer{err: errors.New("boom")}, 5)

	answer := svc.Chat(context.Background(), "Biskuit", "sehat?", "id")
	if answer == "" {
		t.Fatal("expected a degraded-service answer, got empty string")
	}
}
