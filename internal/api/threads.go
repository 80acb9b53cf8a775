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

// threadView is a thread with its author, vote tally and reply count.
type threadView struct {
	models.Thread
	Author models.Author `json:"author"`
	discussion.Tally
	ReplyCount int64 `json:"replyCount"`
}

// threadDetail adds the nested discussion.
type threadDetail struct {
	threadView
	Discussion []*discussion.Node `json:"discussion"`
}

func viewThreads(db *gorm.DB, threads []models.Thread) ([]threadView, error) {
	views := make([]threadView, len(threads))
	if len(threads) == 0 {
		return views, nil
	}
	ids := make([]string, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
	}

	var votes []models.ThreadVote
	if err := db.Where("thread_id IN ?", ids).Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("api: load votes: %w", err)
	}
	byThread := make(map[string][]models.ThreadVote)
	for _, v := range votes {
		byThread[v.ThreadID] = append(byThread[v.ThreadID], v)
	}

	var counts []struct {
		ThreadID string
		N        int64
	}
	if err := db.Model(&models.Comment{}).Select("thread_id, COUNT(*) AS n").
		Where("thread_id IN ?", ids).Group("thread_id").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("api: count replies: %w", err)
	}
	replies := make(map[string]int64, len(counts))
	for _, c := range counts {
		replies[c.ThreadID] = c.N
	}

	for i, t := range threads {
		if t.Tags == nil {
			t.Tags = []string{}
		}
		views[i] = threadView{
			Thread:     t,
			Author:     models.AuthorOf(t.Author),
			Tally:      discussion.TallyVotes(byThread[t.ID]),
			ReplyCount: replies[t.ID],
		}
	}
	return views, nil
}

func handleCreateThread(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Tags        []string `json:"tags"`
			CollegeName string   `json:"collegeName"`
		}
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		in.Title = strings.TrimSpace(in.Title)
		if in.Title == "" {
			s.fail(c, badRequest("title is required"))
			return
		}
		tags := make([]string, 0, len(in.Tags))
		for _, t := range in.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}

		var author models.User
		if err := s.db.First(&author, "id = ?", auth.UserID(c)).Error; err != nil {
			s.fail(c, err)
			return
		}
		thread := models.Thread{
			AuthorID:    author.ID,
			Title:       in.Title,
			Description: strings.TrimSpace(in.Description),
			Tags:        tags,
			CollegeName: strings.TrimSpace(in.CollegeName),
		}
		if thread.CollegeName == "" {
			thread.CollegeName = author.CollegeName
		}
		if err := s.db.Create(&thread).Error; err != nil {
			s.fail(c, fmt.Errorf("api: create thread: %w", err))
			return
		}
		thread.Author = author
		views, err := viewThreads(s.db, []models.Thread{thread})
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, views[0])
	}
}

func handleListThreads(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := paginate.Find(s.db.Preload("Author"), pageParams(c), func(t models.Thread) string { return t.ID })
		if err != nil {
			s.fail(c, err)
			return
		}
		views, err := viewThreads(s.db, page.Data)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, paginate.Page[threadView]{Data: views, NextCursor: page.NextCursor})
	}
}

func loadThread(db *gorm.DB, id string) (*models.Thread, error) {
	var thread models.Thread
	err := db.Preload("Author").First(&thread, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Thread not found")
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func handleGetThread(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		thread, err := loadThread(s.db, c.Param("threadId"))
		if err != nil {
			s.fail(c, err)
			return
		}
		views, err := viewThreads(s.db, []models.Thread{*thread})
		if err != nil {
			s.fail(c, err)
			return
		}
		flat, err := loadDiscussion(s.db, "thread_id = ?", thread.ID)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, threadDetail{threadView: views[0], Discussion: discussion.Nest(flat)})
	}
}

func handleThreadReply(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Content  string  `json:"content"`
			ParentID *string `json:"parentId"`
		}
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		in.Content = strings.TrimSpace(in.Content)
		if in.Content == "" {
			s.fail(c, badRequest("content is required"))
			return
		}
		thread, err := loadThread(s.db, c.Param("threadId"))
		if err != nil {
			s.fail(c, err)
			return
		}
		comment := models.Comment{AuthorID: auth.UserID(c), ThreadID: &thread.ID, Content: in.Content}
		if err := s.attachParent(&comment, in.ParentID, "thread_id = ?", thread.ID); err != nil {
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

// handleVoteThread records the caller's vote, replacing any earlier one.
func handleVoteThread(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			ThreadID string `json:"threadId"`
			Type     string `json:"type"`
		}
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		kind := strings.ToUpper(strings.TrimSpace(in.Type))
		if in.ThreadID == "" || (kind != models.VoteUp && kind != models.VoteDown) {
			s.fail(c, badRequest("threadId and type (UP or DOWN) are required"))
			return
		}
		if _, err := loadThread(s.db, in.ThreadID); err != nil {
			s.fail(c, err)
			return
		}

		vote, err := upsertVote(s.db, auth.UserID(c), in.ThreadID, kind)
		if err != nil {
			s.fail(c, err)
			return
		}
		var votes []models.ThreadVote
		if err := s.db.Where("thread_id = ?", in.ThreadID).Find(&votes).Error; err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"vote": vote, "tally": discussion.TallyVotes(votes)})
	}
}

// upsertVote keeps exactly one vote row per (user, thread).
func upsertVote(db *gorm.DB, userID, threadID, kind string) (models.ThreadVote, error) {
	vote := models.ThreadVote{UserID: userID, ThreadID: threadID, Type: kind}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "updated_at"}),
	}).Create(&vote).Error
	if err != nil {
		return vote, fmt.Errorf("api: vote on %s: %w", threadID, err)
	}
	// The insert may have been folded into an update of the existing row,
	// which keeps its own id.
	var stored models.ThreadVote
	if err := db.Where("user_id = ? AND thread_id = ?", userID, threadID).Take(&stored).Error; err != nil {
		return vote, err
	}
	return stored, nil
}

func handleSaveThread(s *Server, save bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			ThreadID string `json:"threadId"`
		}
		if err := bind(c, &in); err != nil {
			s.fail(c, err)
			return
		}
		if in.ThreadID == "" {
			s.fail(c, badRequest("threadId is required"))
			return
		}
		if _, err := loadThread(s.db, in.ThreadID); err != nil {
			s.fail(c, err)
			return
		}
		row := models.SavedThread{UserID: auth.UserID(c), ThreadID: in.ThreadID}
		var err error
		if save {
			err = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		} else {
			err = s.db.Where("user_id = ? AND thread_id = ?", row.UserID, row.ThreadID).Delete(&models.SavedThread{}).Error
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		if !save {
			c.JSON(http.StatusOK, gin.H{"message": "Thread removed from saved"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Thread saved successfully", "saved": row})
	}
}

func handleSavedThreads(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var saved []models.SavedThread
		if err := s.db.Preload("Thread.Author").Where("user_id = ?", auth.UserID(c)).
			Order("created_at DESC").Find(&saved).Error; err != nil {
			s.fail(c, err)
			return
		}
		threads := make([]models.Thread, len(saved))
		for i, st := range saved {
			threads[i] = st.Thread
		}
		views, err := viewThreads(s.db, threads)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func handleMyThreads(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var threads []models.Thread
		if err := s.db.Preload("Author").Where("author_id = ?", auth.UserID(c)).
			Order("created_at DESC").Find(&threads).Error; err != nil {
			s.fail(c, err)
			return
		}
		views, err := viewThreads(s.db, threads)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func handleDeleteThread(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		thread, err := loadThread(s.db, c.Param("threadId"))
		if err != nil {
			s.fail(c, err)
			return
		}
		if thread.AuthorID != auth.UserID(c) {
			s.fail(c, forbidden("Not allowed"))
			return
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			for _, m := range []any{&models.Comment{}, &models.ThreadVote{}, &models.SavedThread{}} {
				if err := tx.Where("thread_id = ?", thread.ID).Delete(m).Error; err != nil {
					return err
				}
			}
			return tx.Delete(&models.Thread{}, "id = ?", thread.ID).Error
		})
		if err != nil {
			s.fail(c, fmt.Errorf("api: delete thread %s: %w", thread.ID, err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Thread deleted successfully"})
	}
}
