package handlers

import (
	"net/http"
	"strings"

	"nutricek/internal/services"
)

// identityFromRequest builds the request identity: the authenticated user
// from a bearer token when one validates, otherwise the anonymous session id
// from the X-Session-ID header. A bad token degrades to anonymous rather
// than failing the request.
func identityFromRequest(authService *services.AuthService, r *http.Request) services.Identity {
	ident := services.Identity{
		SessionID: strings.TrimSpace(r.Header.Get("X-Session-ID")),
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ident
	}

	claims, err := authService.ValidateToken(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return ident
	}

	userID := claims.UserID
	ident.UserID = &userID
	ident.IsAdmin = claims.Role == "admin"
	return ident
}

// requireUser resolves the authenticated user id or writes a 401.
func requireUser(authService *services.AuthService, w http.ResponseWriter, r *http.Request) (uint, bool) {
	ident := identityFromRequest(authService, r)
	if ident.UserID == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return 0, false
	}
	return *ident.UserID, true
}
