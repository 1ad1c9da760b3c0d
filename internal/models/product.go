package models

import "time"

// NotAvailable fills registry fields the upstream left empty. Downstream
// display and caching assume fully populated records.
const NotAvailable = "Tidak tersedia"

// ProductRecord is a resolved BPOM registry entry.
type ProductRecord struct {
	RegistryNumber string `json:"bpom_number"`
	ProductName    string `json:"product_name"`
	Brand          string `json:"brand"`
	Manufacturer   string `json:"manufacturer"`
	Address        string `json:"address"`
	IssuedDate     string `json:"issued_date"`
	ExpiredDate    string `json:"expired_date"`
	Composition    string `json:"composition"`
	Packaging      string `json:"packaging"`
	Status         string `json:"status"`
	QRCode         string `json:"qr_code"`
}

// RegistryCache stores one resolved product per registry number. Entries
// older than the freshness window are treated as absent, never deleted.
type RegistryCache struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CacheKey       string    `json:"-" gorm:"uniqueIndex;size:50;not null"`
	RegistryNumber string    `json:"bpom_number" gorm:"size:50;not null"`
	Data           string    `json:"data" gorm:"type:text;not null"` // JSON of ProductRecord
	LastUpdated    time.Time `json:"last_updated"`
}

// TableName specifies the table name for RegistryCache
func (RegistryCache) TableName() string {
	return "bpom_cache"
}
