package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/models"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, s *Server) {
	api := router.Group("/api")
	authed := auth.Middleware(s.issuer, s.revoked)

	// Auth.
	api.POST("/auth/register", handleRegister(s))
	api.POST("/auth/login", handleLogin(s))
	api.POST("/auth/logout", authed, handleLogout(s))

	// Profile.
	api.GET("/profile/public/:username", handlePublicProfile(s))
	profile := api.Group("/profile", authed)
	profile.GET("", handleGetProfile(s))
	profile.PUT("", handleUpdateProfile(s))
	profile.GET("/stats", handleProfileStats(s))
	profile.GET("/karma", handleKarma(s))
	profile.PUT("/preferences", handlePreferences(s))
	registerSubresource(profile, s, "education", func(e *models.Education) *string { return &e.UserID }, func(e *models.Education) *string { return &e.ID })
	registerSubresource(profile, s, "experience", func(e *models.Experience) *string { return &e.UserID }, func(e *models.Experience) *string { return &e.ID })
	registerSubresource(profile, s, "projects", func(p *models.Project) *string { return &p.UserID }, func(p *models.Project) *string { return &p.ID })
	registerSubresource(profile, s, "skills", func(k *models.Skill) *string { return &k.UserID }, func(k *models.Skill) *string { return &k.ID })
	registerSubresource(profile, s, "interests", func(i *models.Interest) *string { return &i.UserID }, func(i *models.Interest) *string { return &i.ID })

	// Posts.
	posts := api.Group("/posts", authed)
	posts.POST("/add", handleAddPost(s))
	posts.GET("/posts", handleListPosts(s))
	posts.GET("/mine", handleMyPosts(s))
	posts.GET("/saved", handleSavedPosts(s))
	posts.GET("/stream", handlePostStream(s))
	posts.DELETE("/:postId", handleDeletePost(s))
	posts.POST("/like", handleLikePost(s, true))
	posts.POST("/unlike", handleLikePost(s, false))
	posts.POST("/save", handleSavePost(s, true))
	posts.POST("/unsave", handleSavePost(s, false))
	posts.POST("/comment", handleAddComment(s))
	posts.GET("/comments/:postId", handlePostComments(s))
	posts.DELETE("/comment/:commentId", handleDeleteComment(s))

	// Threads. Browsing is public.
	api.GET("/threads", handleListThreads(s))
	threads := api.Group("/threads", authed)
	threads.POST("/create", handleCreateThread(s))
	threads.POST("/vote", handleVoteThread(s))
	threads.POST("/save", handleSaveThread(s, true))
	threads.POST("/unsave", handleSaveThread(s, false))
	threads.GET("/saved", handleSavedThreads(s))
	threads.GET("/mythreads", handleMyThreads(s))
	threads.POST("/:threadId/replies", handleThreadReply(s))
	threads.DELETE("/:threadId", handleDeleteThread(s))
	api.GET("/threads/:threadId", handleGetThread(s))

	// Assessments.
	api.POST("/assessments", authed, handleAddAssessment(s))
	api.GET("/assessments", authed, handleListAssessments(s))

	// Interviews.
	iv := api.Group("/interviews", authed)
	iv.POST("", handleAddInterview(s))
	iv.GET("", handleListInterviews(s))
	iv.POST("/sessions", handleStartSession(s))
	iv.GET("/sessions/active", handleActiveSession(s))
	iv.GET("/live/:id", handleLive(s))
	iv.GET("/history", handleHistory(s))
	iv.GET("/history/:id", handleHistoryRecord(s))
	iv.POST("/history/:id/analyze", handleAnalyze(s))
}
