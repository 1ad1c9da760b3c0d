package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string `json:"name" gorm:"size:100;not null"`
	Email        string `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `json:"-" gorm:"size:255;not null"`
	Role         string `json:"role" gorm:"type:varchar(20);default:'user';check:role IN ('admin','user')"`

	// Profile
	Age      *int     `json:"age"`
	Weight   *float64 `json:"weight"`
	Height   *float64 `json:"height"`
	Gender   string   `json:"gender" gorm:"size:10"`
	Timezone string   `json:"timezone" gorm:"size:50;default:'Asia/Jakarta'"`
	Locale   string   `json:"locale" gorm:"size:10;default:'id-ID'"`
	PhotoURL string   `json:"photo_url" gorm:"size:255"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Allergies []Allergen `json:"allergies" gorm:"many2many:user_allergies"`
}

// Allergen is one entry of the allergen dictionary users can declare.
type Allergen struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description string `json:"description" gorm:"size:255"`
}

// TableName specifies the table name for Allergen
func (Allergen) TableName() string {
	return "allergens"
}

// UserRegister represents registration request
type UserRegister struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserLogin represents login request
type UserLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
