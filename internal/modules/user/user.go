// Package user handles accounts and login. Auth is deliberately thin:
// register, login with a bcrypt check, and a short-lived JWT.
package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/distill-app/core/internal/middleware"
	"github.com/distill-app/core/internal/models"
	jwtpkg "github.com/distill-app/core/internal/pkg/jwt"
	"github.com/distill-app/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

var errBadCredentials = errors.New("wrong username or password")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

type RegisterDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
	Mail     string `json:"mail"`
}

func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	s.db.Model(&models.UserModel{}).Where("username = ?", dto.Username).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := dto.Name
	if name == "" {
		name = dto.Username
	}
	u := models.UserModel{Username: dto.Username, Password: string(hash), Name: name, Mail: dto.Mail}
	if err := s.db.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Login verifies the password and issues a token.
func (s *Service) Login(username, password string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errBadCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, errBadCredentials
	}

	now := time.Now()
	s.db.Model(&u).Update("last_login_time", now)
	u.LastLoginTime = &now

	token, err := jwtpkg.Sign(u.ID, tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

func (s *Service) Get(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.GET("/me", authMW, h.me)
}

// POST /auth/register
func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		response.Conflict(c, err.Error())
		return
	}
	response.Created(c, u)
}

type loginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var dto loginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password)
	if err != nil {
		if errors.Is(err, errBadCredentials) {
			response.Unauthorized(c)
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"token": token, "user": u})
}

// GET /auth/me
func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Get(middleware.CurrentUserID(c))
	if err != nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u)
}
