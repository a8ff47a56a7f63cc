package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cloudreel/cloudreel/internal/api/services"
	"github.com/cloudreel/cloudreel/internal/config"
	"github.com/cloudreel/cloudreel/internal/models"
	"github.com/cloudreel/cloudreel/internal/repositories"
	"github.com/cloudreel/cloudreel/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const sessionTTL = 24 * time.Hour

// Claims carried in the session JWT.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// issueSession signs a session token for the user and sets it as an
// HttpOnly cookie.
func issueSession(w http.ResponseWriter, user *models.User) error {
	expiration := time.Now().Add(sessionTTL)
	claims := &Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Envs.JWTSecret))
	if err != nil {
		return fmt.Errorf("signing session token: %w", err)
	}

	isProd := config.Envs.Environment == "production"
	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    signed,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	})
	return nil
}

// POST /api/v1/auth/sign-up
// RegisterUser godoc
// @Summary Register a new account
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} map[string]string
// @Failure 400 {object} utils.ErrorResponse
// @Router /auth/sign-up [post]
func RegisterUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil || input.Username == "" || input.Email == "" || input.Password == "" {
		utils.Error(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var existing models.User
	err := repositories.DB.
		Where("username = ? OR email = ?", input.Username, input.Email).
		First(&existing).Error
	switch {
	case err == nil:
		utils.Error(w, http.StatusBadRequest, "Account already exists")
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		log.Println("Sign-up lookup failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Database query failed")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashed),
	}
	if err := repositories.DB.Create(&user).Error; err != nil {
		log.Println("Sign-up insert failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Database insert failed")
		return
	}

	utils.JSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully",
	})
}

// POST /api/v1/auth/login
// LoginUser godoc
// @Summary Log in with username and password
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func LoginUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil || input.Username == "" || input.Password == "" {
		utils.Error(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	err := repositories.DB.Where("username = ?", input.Username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		log.Println("Login lookup failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := issueSession(w, &user); err != nil {
		log.Println("Login failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{
		"message": "Login successful",
	})
}

// POST /api/v1/auth/logout
func Logout(w http.ResponseWriter, r *http.Request) {
	isProd := config.Envs.Environment == "production"

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // maxAge < 0 deletes the cookie
		Secure:   isProd,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.JSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// GET /api/v1/auth/google/login
func HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		redirect = "/home"
	}

	state, err := GenerateState(map[string]string{"redirect": redirect})
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to generate OAuth state")
		return
	}

	url := services.GoogleOauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GET /api/v1/auth/google/callback
func HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateData, err := DecodeState(r.FormValue("state"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	token, err := services.GoogleOauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Println("OAuth code exchange failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Code exchange failed")
		return
	}

	googleUser, err := fetchGoogleUser(r.Context(), token)
	if err != nil {
		log.Println("Fetching Google user info failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Failed to get user info")
		return
	}

	user, err := upsertGoogleUser(googleUser)
	if err != nil {
		log.Println("Upserting Google user failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := issueSession(w, user); err != nil {
		log.Println("Google login failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	redirect := stateData["redirect"]
	if redirect == "" || redirect[0] != '/' {
		redirect = "/home"
	}
	http.Redirect(w, r, config.Envs.FrontendURL+redirect, http.StatusTemporaryRedirect)
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*googleUser, error) {
	client := services.GoogleOauthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var user googleUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	if user.Email == "" {
		return nil, fmt.Errorf("userinfo response missing email")
	}
	return &user, nil
}

// upsertGoogleUser finds the account by email or creates it. Google accounts
// carry no local password.
func upsertGoogleUser(gu *googleUser) (*models.User, error) {
	var user models.User
	err := repositories.DB.Where("email = ?", gu.Email).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	user = models.User{
		Username: gu.Name,
		Email:    gu.Email,
		Picture:  gu.Picture,
	}
	if err := repositories.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
