package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/gigshield/internal/auth"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/store"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phone_number"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	user := model.User{
		Email:        req.Email,
		DisplayName:  req.Name,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
	}
	if err := s.opts.Store.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			abort(c, http.StatusConflict, "Email already registered")
			return
		}
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondWithToken(c, http.StatusCreated, user)
	slog.Info("User registered", "uid", user.ID)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.opts.Store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		abort(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.respondWithToken(c, http.StatusOK, *user)
}

func (s *Server) respondWithToken(c *gin.Context, status int, user model.User) {
	token, err := s.opts.Issuer.Issue(user)
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(status, tokenResponse{Token: token, User: user})
}
