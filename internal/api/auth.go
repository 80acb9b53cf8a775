package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/models"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authPayload is the body of a successful register or login.
type authPayload struct {
	Status string   `json:"status"`
	Data   authData `json:"data"`
}

type authData struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func handleRegister(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in credentials
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		if in.Username == "" || in.Email == "" || in.Password == "" {
			s.fail(c, badRequest("username, email and password are required"))
			return
		}
		email := strings.ToLower(strings.TrimSpace(in.Email))
		username := strings.TrimSpace(in.Username)
		if username == "" {
			s.fail(c, badRequest("username is required"))
			return
		}

		taken, err := exists(s.db, &models.User{}, "email = ?", email)
		if err != nil {
			s.fail(c, err)
			return
		}
		if taken {
			s.fail(c, badRequest("User already exists with this email"))
			return
		}
		taken, err = exists(s.db, &models.User{}, "username = ?", username)
		if err != nil {
			s.fail(c, err)
			return
		}
		if taken {
			s.fail(c, badRequest("Username already taken. Try another username"))
			return
		}

		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			s.fail(c, err)
			return
		}
		user := models.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Tags:         []string{},
			SocialLinks:  map[string]string{},
		}
		// A concurrent registration can still win the race for the email
		// or username; the unique index reports which.
		if err := s.db.Create(&user).Error; err != nil {
			s.fail(c, fmt.Errorf("api: create user: %w", err))
			return
		}
		s.respondWithToken(c, user)
	}
}

func handleLogin(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in credentials
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		if in.Email == "" || in.Password == "" {
			s.fail(c, badRequest("email and password are required"))
			return
		}

		var user models.User
		err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.fail(c, unauthorized("Invalid email or password"))
			return
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		if !auth.CheckPassword(user.PasswordHash, in.Password) {
			s.fail(c, unauthorized("Invalid email or password"))
			return
		}
		s.respondWithToken(c, user)
	}
}

func (s *Server) respondWithToken(c *gin.Context, user models.User) {
	token, _, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, authPayload{
		Status: "success",
		Data:   authData{User: user, Token: token},
	})
}

// handleLogout revokes the presented token and drops the user's in-memory
// call state. Saved practice history is kept.
func handleLogout(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		if err := s.revoked.Revoke(claims); err != nil {
			s.fail(c, err)
			return
		}
		s.calls.Reset(claims.UserID())
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Logged out successfully"})
	}
}

// exists reports whether any row of model matches the condition.
func exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := db.Model(model).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
