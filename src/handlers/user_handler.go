// backend/src/handlers/user_handler.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/username/monbudget/backend/src/database"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/model"
	"github.com/username/monbudget/backend/src/security"
	"github.com/username/monbudget/backend/src/services"
	"golang.org/x/oauth2"
)

type contextKey string

const userIDContextKey contextKey = "userID"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var passwordRegex = regexp.MustCompile(`^.{6,}$`)

var (
	googleOauthConfig *oauth2.Config
	oauthStateString  = "random-string-for-security"
)

// UserHandler serves authentication and the current-user endpoints. Logins
// fire the recurrence trigger so pending occurrences exist before the first page loads.
type UserHandler struct {
	authService *security.AuthService
	trigger     *services.RecurrenceTrigger
}

func NewUserHandler(authService *security.AuthService, trigger *services.RecurrenceTrigger) *UserHandler {
	return &UserHandler{
		authService: authService,
		trigger:     trigger,
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func sendJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}

func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

// HandleGetCurrentUser returns the authenticated user's profile.
func (h *UserHandler) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load current user", "error", err)
		sendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	user.IsAdmin = isAdmin(user.Email)
	sendJSON(w, http.StatusOK, user)
}

// --- ADMIN FUNCTIONS ---

func (h *UserHandler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			sendJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		user, err := model.GetUserByID(database.DB, userID)
		if err != nil {
			logger.L.Error("Failed to get user for admin check", "userID", userID, "error", err)
			sendJSONError(w, "Failed to verify user", http.StatusInternalServerError)
			return
		}

		if !isAdmin(user.Email) {
			logger.L.Warn("Admin access denied for user", "userID", user.ID)
			sendJSONError(w, "Forbidden: Administrator access required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
