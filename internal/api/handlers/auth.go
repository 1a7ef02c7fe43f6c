package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yemaney/filevector/internal/config"
	"github.com/yemaney/filevector/internal/models"
	"github.com/yemaney/filevector/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// JWT Claims struct
type Claims struct {
	UserID uint `json:"user"`
	jwt.RegisteredClaims
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// POST /api/v1/users
// Register godoc
// @Summary Register a new user
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} models.UserRead
// @Failure 400 {object} utils.ErrorBody
// @Failure 409 {object} utils.ErrorBody
// @Router /api/v1/users [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if input.Email == "" || input.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var existing models.User
	err := h.db.Where("email = ?", input.Email).First(&existing).Error

	switch err {
	case nil: // email exists
		utils.JSONError(w, http.StatusConflict,
			fmt.Sprintf("User with email: %s already exists", input.Email))
		return

	case gorm.ErrRecordNotFound: // new user, create account
		hashedPassword, hashErr := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		newUser := models.User{
			Email:    input.Email,
			Password: string(hashedPassword),
		}

		if createErr := h.db.Create(&newUser).Error; createErr != nil {
			log.Printf("Failed to create user: %v", createErr)
			utils.JSONError(w, http.StatusInternalServerError, "Database insert failed")
			return
		}

		utils.JSONResponse(w, http.StatusCreated, newUser.Read())

	default: // some other DB error
		log.Printf("Database query failed: %v", err)
		utils.JSONError(w, http.StatusInternalServerError, "Database query failed")
	}
}

// POST /api/v1/login
// Login godoc
// @Summary Exchange credentials for an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 403 {object} utils.ErrorBody
// @Router /api/v1/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	err := h.db.Where("email = ?", input.Email).First(&user).Error
	switch err {
	case nil:
		// user found
	case gorm.ErrRecordNotFound:
		// Same message as a bad password so probing for accounts fails
		utils.JSONError(w, http.StatusForbidden, "Invalid Credentials")
		return
	default:
		log.Printf("Database query failed: %v", err)
		utils.JSONError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.JSONError(w, http.StatusForbidden, "Invalid Credentials")
		return
	}

	expiration := time.Now().Add(time.Duration(h.cfg.TokenExpireMinutes) * time.Minute)
	claims := &Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	utils.JSONResponse(w, http.StatusOK, TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
	})
}

// GET /api/v1/users
// ListUsers godoc
// @Summary List registered users
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserRead
// @Router /api/v1/users [get]
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.db.Find(&users).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		utils.JSONError(w, http.StatusInternalServerError, "Database query failed")
		return
	}

	out := make([]models.UserRead, 0, len(users))
	for _, u := range users {
		out = append(out, u.Read())
	}
	utils.JSONResponse(w, http.StatusOK, out)
}
