package services

import (
	"errors"
	"sort"
	"time"

	"nutricek/internal/models"

	"gorm.io/gorm"
)

// FavoriteService covers the history listing and favorite toggling shared by
// both scan kinds.
type FavoriteService struct {
	db *gorm.DB
}

// NewFavoriteService creates a new favorite service
func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

// HistoryResponse groups the owner's recent scans by kind, newest first.
type HistoryResponse struct {
	Registry []models.RegistryScan `json:"bpom"`
	Photo    []models.PhotoScan    `json:"ocr"`
}

// History returns the owner's most recent scans of both kinds.
func (fs *FavoriteService) History(ident Identity, limit int) (*HistoryResponse, error) {
	resp := &HistoryResponse{
		Registry: []models.RegistryScan{},
		Photo:    []models.PhotoScan{},
	}

	if err := scopeOwner(fs.db, ident).
		Order("created_at DESC").
		Limit(limit).
		Find(&resp.Registry).Error; err != nil {
		return nil, err
	}

	if err := scopeOwner(fs.db, ident).
		Order("created_at DESC").
		Limit(limit).
		Find(&resp.Photo).Error; err != nil {
		return nil, err
	}

	return resp, nil
}

// DashboardItem is one row on the profile screen's recent-activity list.
type DashboardItem struct {
	ID       uint            `json:"id"`
	Type     models.ScanKind `json:"type"`
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Date     time.Time       `json:"date"`
	Score    *int            `json:"score,omitempty"`
}

// DashboardStats are the profile screen counters.
type DashboardStats struct {
	Scans           int64 `json:"scans"`
	Favorites       int64 `json:"favorites"`
	History         int64 `json:"history"`
	Recommendations int64 `json:"recommendations"`
}

// DashboardResponse is the profile screen summary.
type DashboardResponse struct {
	Stats  DashboardStats  `json:"stats"`
	Recent []DashboardItem `json:"recent"`
}

// Dashboard aggregates the profile screen summary: per-kind counters plus
// the five most recent scans of both kinds merged newest first.
func (fs *FavoriteService) Dashboard(ident Identity) (*DashboardResponse, error) {
	var countRegistry, countPhoto int64
	if err := scopeOwner(fs.db.Model(&models.RegistryScan{}), ident).Count(&countRegistry).Error; err != nil {
		return nil, err
	}
	if err := scopeOwner(fs.db.Model(&models.PhotoScan{}), ident).Count(&countPhoto).Error; err != nil {
		return nil, err
	}

	var favRegistry, favPhoto int64
	if err := scopeOwner(fs.db.Model(&models.RegistryScan{}), ident).
		Where("is_favorited = ?", true).Count(&favRegistry).Error; err != nil {
		return nil, err
	}
	if err := scopeOwner(fs.db.Model(&models.PhotoScan{}), ident).
		Where("is_favorited = ?", true).Count(&favPhoto).Error; err != nil {
		return nil, err
	}

	var registryScans []models.RegistryScan
	if err := scopeOwner(fs.db, ident).
		Order("created_at DESC").
		Limit(5).
		Find(&registryScans).Error; err != nil {
		return nil, err
	}
	var photoScans []models.PhotoScan
	if err := scopeOwner(fs.db, ident).
		Order("created_at DESC").
		Limit(5).
		Find(&photoScans).Error; err != nil {
		return nil, err
	}

	recent := make([]DashboardItem, 0, len(registryScans)+len(photoScans))
	for _, scan := range registryScans {
		title := scan.ProductName
		if title == "" || title == models.NotAvailable {
			title = "Produk BPOM"
		}
		recent = append(recent, DashboardItem{
			ID:       scan.ID,
			Type:     models.KindRegistry,
			Title:    title,
			Subtitle: scan.RegistryNumber,
			Date:     scan.CreatedAt,
		})
	}
	for _, scan := range photoScans {
		score := scan.HealthScore
		recent = append(recent, DashboardItem{
			ID:       scan.ID,
			Type:     models.KindPhoto,
			Title:    "Scan Label Gizi",
			Subtitle: "Analisis AI",
			Date:     scan.CreatedAt,
			Score:    &score,
		})
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return &DashboardResponse{
		Stats: DashboardStats{
			Scans:           countRegistry + countPhoto,
			Favorites:       favRegistry + favPhoto,
			History:         countRegistry + countPhoto,
			Recommendations: countPhoto,
		},
		Recent: recent,
	}, nil
}

// ToggleFavorite flips the favorited flag on one history row. Returns
// ErrScanNotFound when the row does not exist or belongs to someone else.
func (fs *FavoriteService) ToggleFavorite(ident Identity, kind models.ScanKind, scanID uint) (bool, error) {
	switch kind {
	case models.KindRegistry:
		var scan models.RegistryScan
		if err := scopeOwner(fs.db, ident).Where("id = ?", scanID).First(&scan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrScanNotFound
			}
			return false, err
		}
		scan.IsFavorited = !scan.IsFavorited
		if err := fs.db.Save(&scan).Error; err != nil {
			return false, err
		}
		return scan.IsFavorited, nil

	case models.KindPhoto:
		var scan models.PhotoScan
		if err := scopeOwner(fs.db, ident).Where("id = ?", scanID).First(&scan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrScanNotFound
			}
			return false, err
		}
		scan.IsFavorited = !scan.IsFavorited
		if err := fs.db.Save(&scan).Error; err != nil {
			return false, err
		}
		return scan.IsFavorited, nil

	default:
		return false, ErrScanNotFound
	}
}

// GetRegistryScan loads one registry-scan row owned by the identity.
func (fs *FavoriteService) GetRegistryScan(ident Identity, scanID uint) (*models.RegistryScan, error) {
	var scan models.RegistryScan
	if err := scopeOwner(fs.db, ident).Where("id = ?", scanID).First(&scan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return &scan, nil
}
