package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

// AuthController handles account registration and JWT issuance. Everything
// beyond identity (sessions, OAuth, password recovery) lives outside this
// service.
type AuthController struct {
	db     *gorm.DB
	engine *services.Engine
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB, engine *services.Engine) *AuthController {
	return &AuthController{db: db, engine: engine}
}

// Register creates a local account with a bcrypt hash. An optional referral
// code links the new user under their referrer exactly once and fires the
// referral signup reward, which propagates up the chain.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username     string `json:"username" binding:"required,min=3,max=64"`
		Email        string `json:"email"`
		Password     string `json:"password" binding:"required,min=6,max=64"`
		Confirm      string `json:"confirm" binding:"required"`
		ReferralCode string `json:"referral_code"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Password != req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40002, "passwords do not match")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	var referrer *models.User
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		var ref models.User
		if err := a.db.Where("referral_code = ?", code).First(&ref).Error; err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "unknown referral code")
			return
		}
		referrer = &ref
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		RegisterIP:   ctx.ClientIP(),
		ReferralCode: newReferralCode(),
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		// The edge is written once, at creation, and never mutated. A
		// self-referral cannot happen because the account does not exist
		// while its own code is being looked up.
		if referrer != nil && referrer.ID != user.ID {
			return tx.Create(&models.ReferralEdge{UserID: user.ID, ReferrerID: referrer.ID}).Error
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create account")
		return
	}

	if referrer != nil {
		// Best effort: a failed signup reward never fails registration.
		if _, err := a.engine.Execute(context.Background(), user.ID, services.ActionReferralSignup, nil); err != nil {
			utils.Sugar.Warnw("referral signup reward failed", "user_id", user.ID, "err", err)
		}
	}

	token, err := utils.GenerateToken(user.ID, user.Username, 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  publicUser(user),
	})
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  publicUser(user),
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid authorization header")
		return
	}
	tokenStr := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(tokenStr)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(72 * time.Hour)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}
	utils.BlacklistToken(tokenStr, expiresAt)

	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load user")
		return
	}

	utils.Success(ctx, gin.H{"user": publicUser(user), "is_admin": isAdmin(ctx)})
}

func publicUser(u models.User) gin.H {
	return gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"referral_code": u.ReferralCode,
		"created_at":    u.CreatedAt,
	}
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
