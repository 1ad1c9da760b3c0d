package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"nutricek/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// recordRegistryScan reconciles a resolution result into the owner's
// history. A repeat scan of the same registry number refreshes the existing
// row instead of inserting a duplicate.
func (s *ScanService) recordRegistryScan(ident Identity, record *models.ProductRecord) (*models.RegistryScan, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	var existing models.RegistryScan
	err = scopeOwner(s.db, ident).
		Where("registry_number = ?", record.RegistryNumber).
		First(&existing).Error

	if err == nil {
		existing.ProductName = record.ProductName
		existing.Brand = record.Brand
		existing.Manufacturer = record.Manufacturer
		existing.Status = record.Status
		existing.RawResponse = string(raw)
		existing.CreatedAt = time.Now()
		// Accounts created after anonymous scanning: attach the session id
		// once one becomes available.
		if existing.SessionID == "" && ident.SessionID != "" {
			existing.SessionID = ident.SessionID
		}
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := models.RegistryScan{
		UserID:         ident.UserID,
		SessionID:      sessionOrGuest(ident.SessionID),
		RegistryNumber: record.RegistryNumber,
		ProductName:    record.ProductName,
		Brand:          record.Brand,
		Manufacturer:   record.Manufacturer,
		Status:         record.Status,
		RawResponse:    string(raw),
		CreatedAt:      time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// recordPhotoScan reconciles a label analysis into the owner's history. When
// the raw payload is byte-identical to the owner's most recent entry the
// scan is a duplicate: the timestamp is bumped and the row returned
// otherwise unchanged. Compared only against the most recent row, not a time
// window.
func (s *ScanService) recordPhotoScan(ident Identity, result *models.AnalysisResult, rawPayload, productName string) (*models.PhotoScan, error) {
	var latest models.PhotoScan
	err := scopeOwner(s.db, ident).
		Order("created_at DESC").
		First(&latest).Error

	if err == nil && latest.RawPayload == rawPayload {
		latest.CreatedAt = time.Now()
		if err := s.db.Save(&latest).Error; err != nil {
			return nil, err
		}
		return &latest, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	analysis, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return nil, err
	}

	entry := models.PhotoScan{
		UserID:      ident.UserID,
		SessionID:   sessionOrGuest(ident.SessionID),
		ProductName: productName,
		RawPayload:  rawPayload,
		Analysis:    string(analysis),
		Warnings:    string(warnings),
		HealthScore: result.HealthScore,
		Grade:       result.Grade,
		CreatedAt:   time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// sessionOrGuest generates a guest placeholder when no session id came with
// the request.
func sessionOrGuest(sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return "guest-" + uuid.New().String()
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// capitalize uppercases the first rune of each word.
func capitalize(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
