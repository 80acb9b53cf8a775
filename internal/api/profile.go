package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/models"
	"github.com/campusconnect/campus/internal/speech"
)

// profileUpdate lists the profile fields a user may change. Nil fields are
// left alone.
type profileUpdate struct {
	FullName        *string            `json:"fullName"`
	ProfileImageURL *string            `json:"profileImageUrl"`
	CollegeName     *string            `json:"collegeName"`
	Headline        *string            `json:"headline"`
	About           *string            `json:"about"`
	Tags            *[]string          `json:"tags"`
	SocialLinks     *map[string]string `json:"socialLinks"`
}

func loadProfile(db *gorm.DB, query string, arg any) (models.User, error) {
	var u models.User
	err := db.Preload("Education").Preload("Experience").Preload("Projects").
		Preload("Skills").Preload("Interests").
		Where(query, arg).First(&u).Error
	return u, err
}

func handleGetProfile(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := loadProfile(s.db, "id = ?", auth.UserID(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func handlePublicProfile(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := loadProfile(s.db, "username = ?", c.Param("username"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.fail(c, notFound("User not found"))
			return
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		u.Email = ""
		c.JSON(http.StatusOK, u)
	}
}

func handleUpdateProfile(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in profileUpdate
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		uid := auth.UserID(c)

		var u models.User
		if err := s.db.First(&u, "id = ?", uid).Error; err != nil {
			s.fail(c, err)
			return
		}
		if in.FullName != nil {
			u.FullName = strings.TrimSpace(*in.FullName)
		}
		if in.ProfileImageURL != nil {
			u.ProfileImageURL = strings.TrimSpace(*in.ProfileImageURL)
		}
		if in.CollegeName != nil {
			u.CollegeName = strings.TrimSpace(*in.CollegeName)
		}
		if in.Headline != nil {
			u.Headline = strings.TrimSpace(*in.Headline)
		}
		if in.About != nil {
			u.About = *in.About
		}
		if in.Tags != nil {
			u.Tags = *in.Tags
		}
		if in.SocialLinks != nil {
			u.SocialLinks = *in.SocialLinks
		}
		if err := s.db.Save(&u).Error; err != nil {
			s.fail(c, fmt.Errorf("api: update profile: %w", err))
			return
		}
		if err := refreshCompleteness(s.db, uid); err != nil {
			s.fail(c, err)
			return
		}
		u, err := loadProfile(s.db, "id = ?", uid)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func handlePreferences(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			TTSProvider string `json:"ttsProvider"`
		}
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		p := speech.Provider(strings.ToLower(strings.TrimSpace(in.TTSProvider)))
		if speech.NormalizeProvider(string(p)) != p {
			s.fail(c, badRequest("ttsProvider must be auto, elevenlabs, openai or browser"))
			return
		}
		err := s.db.Model(&models.User{}).Where("id = ?", auth.UserID(c)).Update("tts_provider", string(p)).Error
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ttsProvider": p})
	}
}

// karma is the engagement a user's posts have earned.
type karma struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Karma    int64 `json:"karma"`
}

func computeKarma(db *gorm.DB, uid string) (karma, error) {
	var k karma
	mine := db.Model(&models.Post{}).Select("id").Where("author_id = ?", uid)
	if err := db.Model(&models.PostLike{}).Where("post_id IN (?)", mine).Count(&k.Likes).Error; err != nil {
		return k, fmt.Errorf("api: count likes: %w", err)
	}
	if err := db.Model(&models.Comment{}).Where("post_id IN (?)", mine).Count(&k.Comments).Error; err != nil {
		return k, fmt.Errorf("api: count comments: %w", err)
	}
	k.Karma = k.Likes + k.Comments
	return k, nil
}

func handleKarma(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		k, err := computeKarma(s.db, auth.UserID(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, k)
	}
}

func handleProfileStats(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := auth.UserID(c)
		var stats struct {
			Posts   int64 `json:"posts"`
			Threads int64 `json:"threads"`
			Saved   int64 `json:"saved"`
			Karma   int64 `json:"karma"`
		}
		counts := []struct {
			model any
			where string
			dst   *int64
		}{
			{&models.Post{}, "author_id = ?", &stats.Posts},
			{&models.Thread{}, "author_id = ?", &stats.Threads},
			{&models.SavedPost{}, "user_id = ?", &stats.Saved},
		}
		for _, q := range counts {
			if err := s.db.Model(q.model).Where(q.where, uid).Count(q.dst).Error; err != nil {
				s.fail(c, err)
				return
			}
		}
		k, err := computeKarma(s.db, uid)
		if err != nil {
			s.fail(c, err)
			return
		}
		stats.Karma = k.Karma
		c.JSON(http.StatusOK, stats)
	}
}

// refreshCompleteness recomputes how much of the profile is filled in. Ten
// parts count equally: seven profile fields plus having any education,
// experience or skills.
func refreshCompleteness(db *gorm.DB, uid string) error {
	u, err := loadProfile(db, "id = ?", uid)
	if err != nil {
		return err
	}
	parts := []bool{
		u.FullName != "",
		u.ProfileImageURL != "",
		u.CollegeName != "",
		u.Headline != "",
		u.About != "",
		len(u.Tags) > 0,
		len(u.SocialLinks) > 0,
		len(u.Education) > 0,
		len(u.Experience) > 0,
		len(u.Skills) > 0,
	}
	filled := 0
	for _, ok := range parts {
		if ok {
			filled++
		}
	}
	pct := filled * 100 / len(parts)
	return db.Model(&models.User{}).Where("id = ?", uid).Update("profile_complete_percentage", pct).Error
}

// registerSubresource mounts list, create, update and delete routes for a
// profile section stored as rows of T.
func registerSubresource[T any](g *gin.RouterGroup, s *Server, name string, owner, idOf func(*T) *string) {
	label := strings.TrimSuffix(name, "s")

	load := func(c *gin.Context) (*T, bool) {
		row := new(T)
		err := s.db.Where("id = ?", c.Param("id")).First(row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.fail(c, notFound(fmt.Sprintf("%s not found", label)))
			return nil, false
		}
		if err != nil {
			s.fail(c, err)
			return nil, false
		}
		if *owner(row) != auth.UserID(c) {
			s.fail(c, forbidden("Not allowed"))
			return nil, false
		}
		return row, true
	}

	g.GET("/"+name, func(c *gin.Context) {
		rows := []T{}
		if err := s.db.Where("user_id = ?", auth.UserID(c)).Find(&rows).Error; err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	g.POST("/"+name, func(c *gin.Context) {
		row := new(T)
		if err := bind(c, row); err != nil {
			s.fail(c, err)
			return
		}
		uid := auth.UserID(c)
		*idOf(row) = ""
		*owner(row) = uid
		if err := s.db.Create(row).Error; err != nil {
			s.fail(c, err)
			return
		}
		if err := refreshCompleteness(s.db, uid); err != nil {
			log.Printf("api: profile completeness for %s: %v", uid, err)
		}
		c.JSON(http.StatusCreated, row)
	})

	g.PUT("/"+name+"/:id", func(c *gin.Context) {
		row, ok := load(c)
		if !ok {
			return
		}
		id, uid := *idOf(row), *owner(row)
		if err := bind(c, row); err != nil {
			s.fail(c, err)
			return
		}
		*idOf(row), *owner(row) = id, uid
		if err := s.db.Save(row).Error; err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, row)
	})

	g.DELETE("/"+name+"/:id", func(c *gin.Context) {
		row, ok := load(c)
		if !ok {
			return
		}
		if err := s.db.Delete(row).Error; err != nil {
			s.fail(c, err)
			return
		}
		if err := refreshCompleteness(s.db, auth.UserID(c)); err != nil {
			log.Printf("api: profile completeness for %s: %v", auth.UserID(c), err)
		}
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s deleted", label)})
	})
}
