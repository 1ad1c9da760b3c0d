package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"nutricek/internal/database"
	"nutricek/internal/models"
	"nutricek/internal/registry"
	"nutricek/internal/services"
	"nutricek/internal/vision"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"
)

type ScanHandler struct {
	scanService     *services.ScanService
	favoriteService *services.FavoriteService
	authService     *services.AuthService
}

func NewScanHandler(scanService *services.ScanService, favoriteService *services.FavoriteService) *ScanHandler {
	return &ScanHandler{
		scanService:     scanService,
		favoriteService: favoriteService,
		authService:     &services.AuthService{},
	}
}

// BPOMRequest is the registry-scan request body
type BPOMRequest struct {
	BPOMNumber string `json:"bpom_number"`
}

// AnalyzeImageRequest is the label-photo request body
type AnalyzeImageRequest struct {
	ImageBase64 string `json:"image_base64"`
	ProductName string `json:"product_name"`
	Language    string `json:"language"`
}

// ChatRequest is the product Q&A request body
type ChatRequest struct {
	ProductContext string `json:"product_context"`
	Question       string `json:"question"`
	Language       string `json:"language"`
}

// FavoriteRequest identifies one history row by kind and id
type FavoriteRequest struct {
	ScanKind models.ScanKind `json:"scan_kind"`
	ScanID   uint            `json:"scan_id"`
}

// checkDatabase pings the shared connection before a handler touches GORM.
// Failures are logged, not fatal; the query itself reports the real error.
func checkDatabase() {
	if err := database.CheckAndReconnect(); err != nil {
		log.Printf("WARNING: Failed to check database connection: %v", err)
	}
}

// ScanBPOM resolves a registry identifier through the cache and records the
// lookup in the caller's history
func (h *ScanHandler) ScanBPOM(w http.ResponseWriter, r *http.Request) {
	checkDatabase()

	var req BPOMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BPOMNumber == "" {
		http.Error(w, "bpom_number is required", http.StatusBadRequest)
		return
	}

	ident := identityFromRequest(h.authService, r)

	record, recordID, fromCache, err := h.scanService.ResolveProduct(r.Context(), req.BPOMNumber, ident)
	if errors.Is(err, registry.ErrNotFound) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"found":   false,
			"message": fmt.Sprintf("Produk dengan kode %s tidak ditemukan.", req.BPOMNumber),
			"data":    nil,
		})
		return
	}
	if err != nil {
		log.Printf("WARNING: registry resolution failed: %v", err)
		http.Error(w, "Layanan registrasi sedang bermasalah. Silakan coba lagi.", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"found":      true,
		"message":    "Data ditemukan",
		"data":       record,
		"record_id":  recordID,
		"from_cache": fromCache,
	})
}

// AnalyzeImage runs the AI nutrition analysis on a label photo
func (h *ScanHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	checkDatabase()

	var req AnalyzeImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ImageBase64 == "" {
		http.Error(w, "Gambar tidak ditemukan.", http.StatusBadRequest)
		return
	}

	imageData, err := vision.DecodeBase64Image(req.ImageBase64)
	if err != nil {
		http.Error(w, "Format gambar tidak valid.", http.StatusBadRequest)
		return
	}

	ident := identityFromRequest(h.authService, r)
	// The daily quota counts per user or per session id. A caller carrying
	// neither could never be counted, so reject it outright.
	if ident.UserID == nil && ident.SessionID == "" {
		http.Error(w, "Sesi tidak dikenali. Sertakan header X-Session-ID atau login terlebih dahulu.", http.StatusBadRequest)
		return
	}

	result, recordID, err := h.scanService.AnalyzeLabel(r.Context(), imageData, req.ProductName, ident, req.Language)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrQuotaExceeded):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	case errors.Is(err, vision.ErrInvalidImage):
		http.Error(w, "Format gambar tidak valid.", http.StatusBadRequest)
		return
	case errors.Is(err, vision.ErrQuotaExhausted):
		log.Printf("WARNING: vision credentials exhausted: %v", err)
		http.Error(w, "Layanan AI sedang penuh. Silakan coba lagi nanti.", http.StatusServiceUnavailable)
		return
	case errors.Is(err, vision.ErrMalformedResponse):
		log.Printf("ERROR: malformed vision response: %v", err)
		http.Error(w, "Gagal menganalisis gambar dengan AI.", http.StatusInternalServerError)
		return
	default:
		log.Printf("WARNING: label analysis failed: %v", err)
		http.Error(w, "Gagal menganalisis gambar dengan AI. Silakan coba lagi.", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"id":           recordID,
			"nutrition":    result.Nutrition,
			"health_score": result.HealthScore,
			"grade":        result.Grade,
			"summary":      result.Summary,
			"pros":         result.Pros,
			"cons":         result.Cons,
			"ingredients":  result.Ingredients,
			"warnings":     result.Warnings,
		},
	})
}

// Chat answers a free-text question about a product. Degraded answers are
// normal responses; this endpoint never errors outward.
func (h *ScanHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	answer := h.scanService.Chat(r.Context(), req.ProductContext, req.Question, req.Language)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"answer": answer,
	})
}

// GetHistory lists the caller's recent scans of both kinds
func (h *ScanHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	checkDatabase()

	ident := identityFromRequest(h.authService, r)

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	history, err := h.favoriteService.History(ident, limit)
	if err != nil {
		log.Printf("WARNING: failed to load history: %v", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    history,
	})
}

// ToggleFavorite flips the favorited flag on one history row
func (h *ScanHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	checkDatabase()

	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ident := identityFromRequest(h.authService, r)

	isFavorited, err := h.favoriteService.ToggleFavorite(ident, req.ScanKind, req.ScanID)
	if errors.Is(err, services.ErrScanNotFound) {
		http.Error(w, "Riwayat scan tidak ditemukan", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("WARNING: failed to toggle favorite: %v", err)
		http.Error(w, "Failed to toggle favorite", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"is_favorited": isFavorited,
	})
}

// ProductQR renders the stored QR payload of one registry scan as a PNG
func (h *ScanHandler) ProductQR(w http.ResponseWriter, r *http.Request) {
	checkDatabase()

	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		http.Error(w, "Invalid scan id", http.StatusBadRequest)
		return
	}

	ident := identityFromRequest(h.authService, r)

	scan, err := h.favoriteService.GetRegistryScan(ident, uint(id))
	if errors.Is(err, services.ErrScanNotFound) {
		http.Error(w, "Riwayat scan tidak ditemukan", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load scan", http.StatusInternalServerError)
		return
	}

	var record models.ProductRecord
	payload := scan.RegistryNumber
	if err := json.Unmarshal([]byte(scan.RawResponse), &record); err == nil {
		if record.QRCode != "" && record.QRCode != models.NotAvailable {
			payload = record.QRCode
		}
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
