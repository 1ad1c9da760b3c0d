package main

import (
	"bufio"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"nutricek/internal/database"
	"nutricek/internal/handlers"
	"nutricek/internal/registry"
	"nutricek/internal/services"
	"nutricek/internal/vision"

	"github.com/gorilla/mux"
)

// loadEnvFile loads environment variables from a file
func loadEnvFile(filename string) {
	file, err := os.Open(filename)
	if err != nil {
		return // File doesn't exist, skip silently
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	}

	log.Printf("DEBUG: Loaded environment from %s", filename)
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-ID")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// geminiKeys reads the credential pool from the environment. A single
// GEMINI_API_KEY is accepted as a pool of one.
func geminiKeys() []string {
	raw := os.Getenv("GEMINI_API_KEYS")
	if raw == "" {
		raw = os.Getenv("GEMINI_API_KEY")
	}

	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		log.Println("WARNING: no Gemini API keys configured, AI analysis will fail")
	}
	return keys
}

func dailyLimit() int {
	if v := os.Getenv("AI_DAILY_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			return limit
		}
	}
	return 5
}

func main() {
	log.Println("DEBUG: Starting NutriCek API server...")

	// Load environment variables from .env file
	loadEnvFile(".env")
	loadEnvFile("env.production")
	loadEnvFile("env.local")

	// Initialize database
	log.Println("DEBUG: Initializing database...")
	database.InitDatabase()
	log.Println("DEBUG: Database initialized successfully")

	// Wire the scan pipeline
	resolver := registry.NewResolver()
	visionClient := vision.NewClient(geminiKeys())
	scanService := services.NewScanService(database.GetDB(), resolver, visionClient, dailyLimit())
	favoriteService := services.NewFavoriteService(database.GetDB())

	scanHandler := handlers.NewScanHandler(scanService, favoriteService)
	userHandler := handlers.NewUserHandler(favoriteService)

	r := mux.NewRouter()

	// User management endpoints
	r.HandleFunc("/api/auth/register", userHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", userHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/profile", userHandler.GetProfile).Methods("GET")

	// Allergen endpoints
	r.HandleFunc("/api/users/allergens", userHandler.ListAllergens).Methods("GET")
	r.HandleFunc("/api/users/me/allergens", userHandler.GetMyAllergens).Methods("GET")
	r.HandleFunc("/api/users/me/allergens", userHandler.UpdateMyAllergens).Methods("PUT")
	r.HandleFunc("/api/users/dashboard", userHandler.GetDashboard).Methods("GET")

	// Scan endpoints
	r.HandleFunc("/api/scan/bpom", scanHandler.ScanBPOM).Methods("POST")
	r.HandleFunc("/api/scan/bpom/{id}/qr", scanHandler.ProductQR).Methods("GET")
	r.HandleFunc("/api/scan/analyze", scanHandler.AnalyzeImage).Methods("POST")
	r.HandleFunc("/api/scan/chat", scanHandler.Chat).Methods("POST")
	r.HandleFunc("/api/scan/history", scanHandler.GetHistory).Methods("GET")
	r.HandleFunc("/api/scan/favorite", scanHandler.ToggleFavorite).Methods("POST")

	// Health check endpoint
	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","message":"Backend is running"}`))
	}).Methods("GET")

	// Apply CORS middleware
	handler := corsMiddleware(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	log.Println("🚀 NutriCek Backend started on :" + port)
	log.Println("📡 Available endpoints:")
	log.Println("   🔐 AUTH:")
	log.Println("      POST /api/auth/register      - User registration")
	log.Println("      POST /api/auth/login         - User login")
	log.Println("      GET  /api/auth/profile       - Get user profile")
	log.Println("   🥗 ALLERGENS:")
	log.Println("      GET  /api/users/allergens    - Allergen dictionary")
	log.Println("      GET  /api/users/me/allergens - My allergens")
	log.Println("      PUT  /api/users/me/allergens - Update my allergens")
	log.Println("      GET  /api/users/dashboard    - Profile dashboard")
	log.Println("   📷 SCAN:")
	log.Println("      POST /api/scan/bpom          - Resolve BPOM number")
	log.Println("      GET  /api/scan/bpom/{id}/qr  - Product QR code")
	log.Println("      POST /api/scan/analyze       - AI label analysis")
	log.Println("      POST /api/scan/chat          - Product Q&A")
	log.Println("      GET  /api/scan/history       - Scan history")
	log.Println("      POST /api/scan/favorite      - Toggle favorite")

	log.Fatal(http.ListenAndServe(":"+port, handler))
}
