package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"nutricek/internal/models"
	"nutricek/internal/registry"

	"gorm.io/gorm"
)

// CacheFreshness is how long a cached registry record counts as fresh.
// Older entries are re-resolved on the next lookup but never deleted.
const CacheFreshness = 30 * 24 * time.Hour

// productResolver is the registry lookup dependency.
type productResolver interface {
	Resolve(ctx context.Context, identifier string) (*models.ProductRecord, error)
}

// labelAnalyzer is the vision model dependency.
type labelAnalyzer interface {
	Analyze(ctx context.Context, imageData []byte, language string) (*models.AnalysisResult, error)
	Chat(ctx context.Context, productContext, question, language string) (string, error)
}

// ScanService runs the product-resolution and label-analysis pipeline.
type ScanService struct {
	db         *gorm.DB
	resolver   productResolver
	analyzer   labelAnalyzer
	dailyLimit int
}

// NewScanService creates the scan pipeline service.
func NewScanService(db *gorm.DB, resolver productResolver, analyzer labelAnalyzer, dailyLimit int) *ScanService {
	return &ScanService{
		db:         db,
		resolver:   resolver,
		analyzer:   analyzer,
		dailyLimit: dailyLimit,
	}
}

// ResolveProduct is the registry-scan use case: cache read-through, then the
// history write-back. recordID is 0 when the best-effort history write
// failed; the resolved data is still returned.
func (s *ScanService) ResolveProduct(ctx context.Context, identifier string, ident Identity) (*models.ProductRecord, uint, bool, error) {
	record, fromCache, err := s.GetOrResolve(ctx, identifier)
	if err != nil {
		return nil, 0, false, err
	}

	var recordID uint
	entry, err := s.recordRegistryScan(ident, record)
	if err != nil {
		log.Printf("WARNING: failed to record registry scan: %v", err)
	} else {
		recordID = entry.ID
	}

	return record, recordID, fromCache, nil
}

// GetOrResolve returns the cached record when it is fresh, otherwise asks
// the live resolver and writes the cache through. A miss is never cached.
func (s *ScanService) GetOrResolve(ctx context.Context, identifier string) (*models.ProductRecord, bool, error) {
	key := registry.NormalizeKey(identifier)

	var cache models.RegistryCache
	err := s.db.Where("cache_key = ?", key).First(&cache).Error
	if err == nil && time.Since(cache.LastUpdated) < CacheFreshness {
		var record models.ProductRecord
		if err := json.Unmarshal([]byte(cache.Data), &record); err == nil {
			return &record, true, nil
		}
		log.Printf("WARNING: corrupt cache entry for %s, re-resolving", key)
	}

	record, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, false, err
	}

	if err := s.upsertCache(record); err != nil {
		log.Printf("WARNING: failed to write registry cache: %v", err)
	}

	return record, false, nil
}

// upsertCache stores the record keyed by the resolved registry number, so
// different raw inputs for the same product share one entry.
func (s *ScanService) upsertCache(record *models.ProductRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := registry.NormalizeKey(record.RegistryNumber)

	var cache models.RegistryCache
	err = s.db.Where("cache_key = ?", key).First(&cache).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.RegistryCache{
			CacheKey:       key,
			RegistryNumber: record.RegistryNumber,
			Data:           string(data),
			LastUpdated:    time.Now(),
		}).Error
	}
	if err != nil {
		return err
	}

	cache.RegistryNumber = record.RegistryNumber
	cache.Data = string(data)
	cache.LastUpdated = time.Now()
	return s.db.Save(&cache).Error
}

// AnalyzeLabel is the label-photo use case: quota guard, vision analysis,
// allergen warnings, then the best-effort history write.
func (s *ScanService) AnalyzeLabel(ctx context.Context, imageData []byte, productName string, ident Identity, language string) (*models.AnalysisResult, uint, error) {
	if err := s.checkQuota(ident); err != nil {
		return nil, 0, err
	}

	result, err := s.analyzer.Analyze(ctx, imageData, language)
	if err != nil {
		return nil, 0, err
	}

	result.Warnings = s.withAllergenWarnings(ident, result)

	rawPayload, _ := json.Marshal(result.Nutrition)

	var recordID uint
	entry, err := s.recordPhotoScan(ident, result, string(rawPayload), productName)
	if err != nil {
		log.Printf("WARNING: failed to record photo scan: %v", err)
	} else {
		recordID = entry.ID
	}

	return result, recordID, nil
}

// Chat answers a product question. Degraded-service strings come back as
// normal answers; this never fails outward.
func (s *ScanService) Chat(ctx context.Context, productContext, question, language string) string {
	answer, err := s.analyzer.Chat(ctx, productContext, question, language)
	if err != nil {
		log.Printf("WARNING: chat request failed: %v", err)
		if language == "en" {
			return "Sorry, the assistant is busy right now. Please try again later."
		}
		return "Maaf, asisten sedang sibuk. Silakan coba lagi nanti."
	}
	return answer
}

// checkQuota enforces the per-identity daily ceiling on AI analysis calls.
// The day boundary is the UTC calendar day. Admins bypass the check.
func (s *ScanService) checkQuota(ident Identity) error {
	if ident.IsAdmin {
		return nil
	}

	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var count int64
	q := scopeOwner(s.db.Model(&models.PhotoScan{}), ident)
	if err := q.Where("created_at >= ?", startOfDay).Count(&count).Error; err != nil {
		return err
	}

	if count >= int64(s.dailyLimit) {
		return &QuotaExceededError{Anonymous: ident.Anonymous(), Limit: s.dailyLimit}
	}
	return nil
}

// withAllergenWarnings cross-references the owner's declared allergens
// against the detected ingredients and merges matches into the model's own
// warnings. Matching is a case-insensitive substring check.
func (s *ScanService) withAllergenWarnings(ident Identity, result *models.AnalysisResult) []string {
	warnings := append([]string{}, result.Warnings...)
	if ident.UserID == nil || result.Ingredients == "" {
		return warnings
	}

	var user models.User
	if err := s.db.Preload("Allergies").First(&user, *ident.UserID).Error; err != nil {
		log.Printf("WARNING: failed to load allergens for user %d: %v", *ident.UserID, err)
		return warnings
	}

	for _, allergen := range user.Allergies {
		if containsFold(result.Ingredients, allergen.Name) {
			warnings = append(warnings, "Mengandung alergen: "+capitalize(allergen.Name))
		}
	}
	return warnings
}
