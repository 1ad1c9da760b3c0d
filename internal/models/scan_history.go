package models

import "time"

// ScanKind tags the two history variants sharing the favorite/list endpoints.
type ScanKind string

const (
	KindRegistry ScanKind = "bpom"
	KindPhoto    ScanKind = "ocr"
)

// RegistryScan is one registry-number lookup in a user's history. Owned by
// exactly one of UserID or SessionID.
type RegistryScan struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         *uint     `json:"user_id" gorm:"index"`
	SessionID      string    `json:"session_id" gorm:"size:100;index"`
	RegistryNumber string    `json:"bpom_number" gorm:"size:50;not null;index"`
	ProductName    string    `json:"product_name" gorm:"size:255"`
	Brand          string    `json:"brand" gorm:"size:255"`
	Manufacturer   string    `json:"manufacturer" gorm:"size:255"`
	Status         string    `json:"status" gorm:"size:50"`
	RawResponse    string    `json:"raw_response" gorm:"type:text"` // JSON of ProductRecord
	IsFavorited    bool      `json:"is_favorited" gorm:"default:false;index"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for RegistryScan
func (RegistryScan) TableName() string {
	return "scan_history_bpom"
}

// PhotoScan is one label-photo analysis in a user's history. It carries a
// denormalized copy of the analysis so history survives cache eviction.
type PhotoScan struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      *uint     `json:"user_id" gorm:"index"`
	SessionID   string    `json:"session_id" gorm:"size:100;index"`
	ProductName string    `json:"product_name" gorm:"size:255"`
	RawPayload  string    `json:"-" gorm:"type:text"`           // raw OCR payload, dedup key
	Analysis    string    `json:"analysis" gorm:"type:text"`    // JSON of AnalysisResult
	Warnings    string    `json:"warnings" gorm:"type:text"`    // JSON array of strings
	HealthScore int       `json:"health_score" gorm:"type:smallint"`
	Grade       string    `json:"grade" gorm:"size:2"`
	IsFavorited bool      `json:"is_favorited" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for PhotoScan
func (PhotoScan) TableName() string {
	return "scan_history_ocr"
}
