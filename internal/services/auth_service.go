package services

import (
	"errors"
	"os"
	"time"

	"nutricek/internal/database"
	"nutricek/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct{}

type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	secretKey := os.Getenv("JWT_SECRET")
	if secretKey == "" {
		secretKey = "nutricek-super-secret-jwt-key-change-in-production" // fallback
	}
	return []byte(secretKey)
}

// Register creates a new user account
func (as *AuthService) Register(req models.UserRegister) (*models.UserResponse, error) {
	db := database.GetDB()

	// Check if email already exists
	var existingUser models.User
	if err := db.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		return nil, errors.New("email already registered")
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         "user",
	}

	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &models.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Login authenticates user and returns JWT token
func (as *AuthService) Login(req models.UserLogin) (string, *models.UserResponse, error) {
	db := database.GetDB()

	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return "", nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, errors.New("invalid email or password")
	}

	token, err := as.generateJWT(user)
	if err != nil {
		return "", nil, err
	}

	userResponse := &models.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}

	return token, userResponse, nil
}

// generateJWT creates a JWT token for the user
func (as *AuthService) generateJWT(user models.User) (string, error) {
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // 24 hours
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ValidateToken validates JWT token and returns user claims
func (as *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GetUserByID retrieves user by ID with the allergen profile preloaded
func (as *AuthService) GetUserByID(userID uint) (*models.User, error) {
	db := database.GetDB()

	var user models.User
	if err := db.Preload("Allergies").First(&user, userID).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// ListAllergens returns the full allergen dictionary
func (as *AuthService) ListAllergens() ([]models.Allergen, error) {
	db := database.GetDB()

	var allergens []models.Allergen
	if err := db.Order("name ASC").Find(&allergens).Error; err != nil {
		return nil, err
	}
	return allergens, nil
}

// GetUserAllergens returns the user's declared allergens
func (as *AuthService) GetUserAllergens(userID uint) ([]models.Allergen, error) {
	user, err := as.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	return user.Allergies, nil
}

// UpdateUserAllergens replaces the user's declared allergens with the
// selection identified by allergenIDs
func (as *AuthService) UpdateUserAllergens(userID uint, allergenIDs []uint) error {
	db := database.GetDB()

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return err
	}

	var selected []models.Allergen
	if len(allergenIDs) > 0 {
		if err := db.Where("id IN ?", allergenIDs).Find(&selected).Error; err != nil {
			return err
		}
	}

	return db.Model(&user).Association("Allergies").Replace(selected)
}
