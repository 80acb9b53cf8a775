package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/discussion"
	"github.com/campusconnect/campus/internal/models"
	"github.com/campusconnect/campus/internal/paginate"
)

// postView is a post as returned to clients.
type postView struct {
	models.Post
	Author       models.Author `json:"author"`
	Likes        []string      `json:"likes"`
	CommentCount int64         `json:"commentCount"`
	Saved        bool          `json:"saved"`
}

// viewPosts decorates posts with their author, likers, comment count and
// whether viewer saved them. Authors must be preloaded.
func viewPosts(db *gorm.DB, posts []models.Post, viewer string) ([]postView, error) {
	views := make([]postView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	var likes []models.PostLike
	if err := db.Where("post_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("api: load likes: %w", err)
	}
	likers := make(map[string][]string)
	for _, l := range likes {
		likers[l.PostID] = append(likers[l.PostID], l.UserID)
	}

	var counts []struct {
		PostID string
		N      int64
	}
	if err := db.Model(&models.Comment{}).Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).Group("post_id").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("api: count comments: %w", err)
	}
	commentCount := make(map[string]int64, len(counts))
	for _, c := range counts {
		commentCount[c.PostID] = c.N
	}

	var saved []string
	if err := db.Model(&models.SavedPost{}).Where("user_id = ? AND post_id IN ?", viewer, ids).
		Pluck("post_id", &saved).Error; err != nil {
		return nil, fmt.Errorf("api: load saved: %w", err)
	}
	savedSet := make(map[string]bool, len(saved))
	for _, id := range saved {
		savedSet[id] = true
	}

	for i, p := range posts {
		l := likers[p.ID]
		if l == nil {
			l = []string{}
		}
		views[i] = postView{
			Post:         p,
			Author:       models.AuthorOf(p.Author),
			Likes:        l,
			CommentCount: commentCount[p.ID],
			Saved:        savedSet[p.ID],
		}
	}
	return views, nil
}

func pageParams(c *gin.Context) paginate.Params {
	return paginate.Params{Limit: paginate.ParseLimit(c.Query("limit")), Cursor: c.Query("cursor")}
}

func handleAddPost(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Content     string `json:"content"`
			ImageURL    string `json:"imageUrl"`
			CollegeName string `json:"collegeName"`
		}
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		in.Content = strings.TrimSpace(in.Content)
		if in.Content == "" && in.ImageURL == "" {
			s.fail(c, badRequest("content or imageUrl is required"))
			return
		}

		var author models.User
		if err := s.db.First(&author, "id = ?", auth.UserID(c)).Error; err != nil {
			s.fail(c, err)
			return
		}
		post := models.Post{
			AuthorID:    author.ID,
			Content:     in.Content,
			ImageURL:    strings.TrimSpace(in.ImageURL),
			CollegeName: strings.TrimSpace(in.CollegeName),
		}
		if post.CollegeName == "" {
			post.CollegeName = author.CollegeName
		}
		if err := s.db.Create(&post).Error; err != nil {
			s.fail(c, fmt.Errorf("api: create post: %w", err))
			return
		}
		post.Author = author
		view := postView{Post: post, Author: models.AuthorOf(author), Likes: []string{}}
		s.feed.publish(view)
		c.JSON(http.StatusCreated, view)
	}
}

func handleListPosts(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := paginate.Find(s.db.Preload("Author"), pageParams(c), func(p models.Post) string { return p.ID })
		if err != nil {
			s.fail(c, err)
			return
		}
		views, err := viewPosts(s.db, page.Data, auth.UserID(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, paginate.Page[postView]{Data: views, NextCursor: page.NextCursor})
	}
}

func handleMyPosts(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := auth.UserID(c)
		var posts []models.Post
		if err := s.db.Preload("Author").Where("author_id = ?", uid).
			Order("created_at DESC").Find(&posts).Error; err != nil {
			s.fail(c, err)
			return
		}
		views, err := viewPosts(s.db, posts, uid)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func handleSavedPosts(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := auth.UserID(c)
		var saved []models.SavedPost
		if err := s.db.Preload("Post.Author").Where("user_id = ?", uid).
			Order("created_at DESC").Find(&saved).Error; err != nil {
			s.fail(c, err)
			return
		}
		posts := make([]models.Post, len(saved))
		for i, sp := range saved {
			posts[i] = sp.Post
		}
		views, err := viewPosts(s.db, posts, uid)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

// ownPost loads the post and checks that uid wrote it.
func ownPost(db *gorm.DB, id, uid string) (*models.Post, error) {
	var post models.Post
	err := db.First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Post not found")
	}
	if err != nil {
		return nil, err
	}
	if post.AuthorID != uid {
		return nil, forbidden("Not allowed")
	}
	return &post, nil
}

func handleDeletePost(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := ownPost(s.db, c.Param("postId"), auth.UserID(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.SavedPost{}).Error; err != nil {
				return err
			}
			return tx.Delete(post).Error
		})
		if err != nil {
			s.fail(c, fmt.Errorf("api: delete post %s: %w", post.ID, err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
	}
}

type postRef struct {
	PostID string `json:"postId"`
}

// requirePost reads {"postId"} and checks the post exists.
func requirePost(c *gin.Context, db *gorm.DB) (string, error) {
	var in postRef
	if err := bind(c, &in); err != nil {
		return "", err
	}
	if in.PostID == "" {
		return "", badRequest("postId is required")
	}
	ok, err := exists(db, &models.Post{}, "id = ?", in.PostID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", notFound("Post not found")
	}
	return in.PostID, nil
}

func handleLikePost(s *Server, like bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID, err := requirePost(c, s.db)
		if err != nil {
			s.fail(c, err)
			return
		}
		row := models.PostLike{UserID: auth.UserID(c), PostID: postID}
		if like {
			err = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		} else {
			err = s.db.Where("user_id = ? AND post_id = ?", row.UserID, postID).Delete(&models.PostLike{}).Error
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		msg := "Liked"
		if !like {
			msg = "Unliked"
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

func handleSavePost(s *Server, save bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID, err := requirePost(c, s.db)
		if err != nil {
			s.fail(c, err)
			return
		}
		row := models.SavedPost{UserID: auth.UserID(c), PostID: postID}
		if save {
			err = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		} else {
			err = s.db.Where("user_id = ? AND post_id = ?", row.UserID, postID).Delete(&models.SavedPost{}).Error
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		msg := "Post saved"
		if !save {
			msg = "Post unsaved"
		}
		c.JSON(http.StatusOK, gin.H{"message": msg, "saved": save})
	}
}

func handleAddComment(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			PostID   string  `json:"postId"`
			Content  string  `json:"content"`
			ParentID *string `json:"parentId"`
		}
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		in.Content = strings.TrimSpace(in.Content)
		if in.PostID == "" || in.Content == "" {
			s.fail(c, badRequest("postId and content are required"))
			return
		}
		ok, err := exists(s.db, &models.Post{}, "id = ?", in.PostID)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !ok {
			s.fail(c, notFound("Post not found"))
			return
		}
		comment := models.Comment{AuthorID: auth.UserID(c), PostID: &in.PostID, Content: in.Content}
		if err := s.attachParent(&comment, in.ParentID, "post_id = ?", in.PostID); err != nil {
			s.fail(c, err)
			return
		}
		node, err := s.createComment(&comment)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, node)
	}
}

// attachParent validates that parentID names a comment in the same post or
// thread (scope) and links comment to it.
func (s *Server) attachParent(comment *models.Comment, parentID *string, scope string, scopeID string) error {
	if parentID == nil || *parentID == "" {
		return nil
	}
	ok, err := exists(s.db, &models.Comment{}, "id = ? AND "+scope, *parentID, scopeID)
	if err != nil {
		return err
	}
	if !ok {
		return badRequest("Parent comment must belong to the same discussion")
	}
	comment.ParentID = parentID
	return nil
}

func (s *Server) createComment(comment *models.Comment) (*discussion.Node, error) {
	if err := s.db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("api: create comment: %w", err)
	}
	if err := s.db.First(&comment.Author, "id = ?", comment.AuthorID).Error; err != nil {
		return nil, err
	}
	return discussion.Nest([]models.Comment{*comment})[0], nil
}

// loadDiscussion returns every comment matching scope with authors loaded.
func loadDiscussion(db *gorm.DB, scope string, id string) ([]models.Comment, error) {
	var flat []models.Comment
	if err := db.Preload("Author").Where(scope, id).Find(&flat).Error; err != nil {
		return nil, fmt.Errorf("api: load comments: %w", err)
	}
	return flat, nil
}

func handlePostComments(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		flat, err := loadDiscussion(s.db, "post_id = ?", c.Param("postId"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, discussion.Nest(flat))
	}
}

// handleDeleteComment removes a comment the caller wrote together with all
// replies beneath it.
func handleDeleteComment(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var comment models.Comment
		err := s.db.First(&comment, "id = ?", c.Param("commentId")).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.fail(c, notFound("Comment not found"))
			return
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		if comment.AuthorID != auth.UserID(c) {
			s.fail(c, forbidden("Not allowed"))
			return
		}

		var siblings []models.Comment
		q := s.db.Select("id", "parent_id")
		switch {
		case comment.PostID != nil:
			q = q.Where("post_id = ?", *comment.PostID)
		case comment.ThreadID != nil:
			q = q.Where("thread_id = ?", *comment.ThreadID)
		default:
			q = q.Where("id = ?", comment.ID)
		}
		if err := q.Find(&siblings).Error; err != nil {
			s.fail(c, err)
			return
		}
		ids := append(discussion.Descendants(siblings, comment.ID), comment.ID)
		if err := s.db.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			s.fail(c, fmt.Errorf("api: delete comment %s: %w", comment.ID, err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comment deleted", "deleted": len(ids)})
	}
}
