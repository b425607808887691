// backend/src/handlers/oauth_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/username/monbudget/backend/src/config"
	"github.com/username/monbudget/backend/src/database"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/model"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

func InitializeGoogleOAuthConfig() {
	googleOauthConfig = &oauth2.Config{
		RedirectURL:  config.Cfg.GoogleRedirectURL,
		ClientID:     config.Cfg.GoogleClientID,
		ClientSecret: config.Cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
	if config.Cfg.OAuthStateString != "" {
		oauthStateString = config.Cfg.OAuthStateString
	}
}

func (h *UserHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if googleOauthConfig == nil || googleOauthConfig.ClientID == "" {
		sendJSONError(w, "Google login is not configured", http.StatusServiceUnavailable)
		return
	}
	url := googleOauthConfig.AuthCodeURL(oauthStateString)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *UserHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	if r.FormValue("state") != oauthStateString {
		ctxLogger.Warn("Invalid OAuth state from Google callback")
		http.Redirect(w, r, "/signin?error=invalid_state", http.StatusTemporaryRedirect)
		return
	}

	code := r.FormValue("code")
	token, err := googleOauthConfig.Exchange(r.Context(), code)
	if err != nil {
		ctxLogger.Error("Failed to exchange code for token", "error", err)
		http.Redirect(w, r, "/signin?error=token_exchange_failed", http.StatusTemporaryRedirect)
		return
	}

	// The oauth2 client injects the bearer token and refreshes it if needed.
	response, err := googleOauthConfig.Client(r.Context(), token).Get(googleUserInfoURL)
	if err != nil {
		ctxLogger.Error("Failed to get user info from Google", "error", err)
		http.Redirect(w, r, "/signin?error=userinfo_failed", http.StatusTemporaryRedirect)
		return
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		ctxLogger.Error("Failed to read user info response body", "error", err)
		http.Redirect(w, r, "/signin?error=userinfo_read_failed", http.StatusTemporaryRedirect)
		return
	}

	var googleUser struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Verified bool   `json:"verified_email"`
		ID       string `json:"id"`
	}
	if err := json.Unmarshal(contents, &googleUser); err != nil {
		ctxLogger.Error("Failed to unmarshal Google user info", "error", err)
		http.Redirect(w, r, "/signin?error=userinfo_parse_failed", http.StatusTemporaryRedirect)
		return
	}

	if !googleUser.Verified {
		http.Redirect(w, r, "/signin?error=email_not_verified_by_google", http.StatusTemporaryRedirect)
		return
	}

	user, err := model.GetUserByEmail(database.DB, googleUser.Email)
	if err != nil {
		newUser := &model.User{
			Username:     googleUser.Email,
			Email:        googleUser.Email,
			AuthProvider: "google",
		}
		if err := newUser.CreateUser(database.DB); err != nil {
			ctxLogger.Error("Failed to create Google user", "error", err)
			http.Redirect(w, r, "/signin?error=user_creation_failed", http.StatusTemporaryRedirect)
			return
		}
		user = newUser
	} else if user.AuthProvider == "local" || user.Password != "" {
		ctxLogger.Warn("Google login attempt for existing local account", "userID", user.ID)
		http.Redirect(w, r, "/signin?error=email_already_exists_local", http.StatusTemporaryRedirect)
		return
	}

	recordLogin(user.ID, r)
	executed := h.runLoginTrigger(r)

	userForFrontend := struct {
		ID                  int64  `json:"id"`
		Username            string `json:"username"`
		Email               string `json:"email"`
		AuthProvider        string `json:"auth_provider"`
		IsAdmin             bool   `json:"is_admin"`
		RecurrencesExecuted int    `json:"recurrences_executed"`
	}{
		ID:                  user.ID,
		Username:            user.Username,
		Email:               user.Email,
		AuthProvider:        user.AuthProvider,
		IsAdmin:             isAdmin(user.Email),
		RecurrencesExecuted: executed,
	}

	userJSON, err := json.Marshal(userForFrontend)
	if err != nil {
		ctxLogger.Error("Failed to marshal custom user object for frontend", "error", err)
		http.Redirect(w, r, "/signin?error=user_data_build_failed", http.StatusTemporaryRedirect)
		return
	}

	appToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		ctxLogger.Error("Failed to generate app token for Google user", "error", err)
		http.Redirect(w, r, "/signin?error=token_generation_failed", http.StatusTemporaryRedirect)
		return
	}

	redirectURL := fmt.Sprintf("%s/auth/google/callback?token=%s&user=%s",
		config.Cfg.FrontendBaseURL,
		appToken,
		url.QueryEscape(string(userJSON)))
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}
