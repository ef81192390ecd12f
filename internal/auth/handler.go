package auth

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/airwave-live/backend/pkg/response"
	"github.com/airwave-live/backend/pkg/utils"
)

// Handler serves register and login.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Register creates an account and returns a token.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("lookup user", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}
	if existing != nil {
		response.Conflict(c, "email already registered")
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "registration failed")
		return
	}
	user, err := h.repo.Create(c.Request.Context(), req.Email, req.Username, hash)
	if err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}
	userID := strconv.FormatInt(user.ID, 10)
	token, err := h.jwt.Generate(userID, user.Email)
	if err != nil {
		response.Internal(c, "registration failed")
		return
	}
	response.Created(c, authResponse{Token: token, UserID: userID, Username: user.Username})
}

// Login verifies credentials and returns a token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("lookup user", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		response.Unauthorized(c, "invalid credentials")
		return
	}
	userID := strconv.FormatInt(user.ID, 10)
	token, err := h.jwt.Generate(userID, user.Email)
	if err != nil {
		response.Internal(c, "login failed")
		return
	}
	response.OK(c, authResponse{Token: token, UserID: userID, Username: user.Username})
}
