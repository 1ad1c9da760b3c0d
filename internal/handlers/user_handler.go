package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"nutricek/internal/models"
	"nutricek/internal/services"
)

type UserHandler struct {
	authService     *services.AuthService
	favoriteService *services.FavoriteService
}

func NewUserHandler(favoriteService *services.FavoriteService) *UserHandler {
	return &UserHandler{
		authService:     &services.AuthService{},
		favoriteService: favoriteService,
	}
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegister
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Validate required fields
	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "All fields are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 6 {
		http.Error(w, "Password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	user, err := h.authService.Register(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLogin
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	token, user, err := h.authService.Login(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// GetProfile returns the authenticated user including the allergen profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(h.authService, w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// GetDashboard returns the profile screen summary for the authenticated user
func (h *UserHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	checkDatabase()

	userID, ok := requireUser(h.authService, w, r)
	if !ok {
		return
	}

	data, err := h.favoriteService.Dashboard(services.Identity{UserID: &userID})
	if err != nil {
		log.Printf("WARNING: failed to load dashboard for user %d: %v", userID, err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// ListAllergens returns the allergen dictionary
func (h *UserHandler) ListAllergens(w http.ResponseWriter, r *http.Request) {
	allergens, err := h.authService.ListAllergens()
	if err != nil {
		http.Error(w, "Failed to load allergens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    allergens,
	})
}

// GetMyAllergens returns the authenticated user's declared allergens
func (h *UserHandler) GetMyAllergens(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(h.authService, w, r)
	if !ok {
		return
	}

	allergens, err := h.authService.GetUserAllergens(userID)
	if err != nil {
		http.Error(w, "Failed to load allergens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    allergens,
	})
}

// UpdateMyAllergens replaces the authenticated user's declared allergens
func (h *UserHandler) UpdateMyAllergens(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(h.authService, w, r)
	if !ok {
		return
	}

	var req struct {
		AllergenIDs []uint `json:"allergen_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.authService.UpdateUserAllergens(userID, req.AllergenIDs); err != nil {
		http.Error(w, "Failed to update allergens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Allergens updated",
	})
}
