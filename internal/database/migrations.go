package database

import (
	"log"

	"nutricek/internal/models"

	"gorm.io/gorm"
)

// defaultAllergens seeds the allergen dictionary users pick their profile
// from. Names are matched case-insensitively against detected ingredients.
var defaultAllergens = []models.Allergen{
	{Name: "Gluten", Description: "Protein pada gandum, jelai, dan gandum hitam"},
	{Name: "Susu", Description: "Susu sapi dan produk turunannya"},
	{Name: "Telur", Description: "Telur ayam dan produk olahannya"},
	{Name: "Kacang Tanah", Description: "Kacang tanah dan produk olahannya"},
	{Name: "Kedelai", Description: "Kedelai dan produk turunannya"},
	{Name: "Ikan", Description: "Ikan dan produk olahannya"},
	{Name: "Udang", Description: "Udang dan krustasea lainnya"},
	{Name: "Gandum", Description: "Gandum dan produk olahannya"},
	{Name: "Wijen", Description: "Biji wijen dan produk olahannya"},
}

// seedAllergens inserts the default allergen dictionary on first boot.
// Existing entries are left untouched.
func seedAllergens(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Allergen{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if err := db.Create(&defaultAllergens).Error; err != nil {
		return err
	}

	log.Printf("Seeded %d default allergens", len(defaultAllergens))
	return nil
}
