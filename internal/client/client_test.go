package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusconnect/campus/internal/api"
	"github.com/campusconnect/campus/internal/config"
	"github.com/campusconnect/campus/internal/db"
)

// newServer runs the real API over a fresh SQLite database.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gdb, err := db.ConnectSQLite(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	cfg, err := config.Parse([]byte("env: test\n"))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	srv, err := api.New(api.StartOpts{DB: gdb, Config: cfg})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func signUp(t *testing.T, ts *httptest.Server, name string) (*Client, string) {
	t.Helper()
	c := New(ts.URL+"/api", "")
	sess, err := c.Register(context.Background(), name, name+"@campus.test", "hunter22")
	if err != nil {
		t.Fatalf("Register(%s): %v", name, err)
	}
	return c, sess.User.ID
}

func TestLoginAndLogout(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	signUp(t, ts, "ana")

	c := New(ts.URL+"/api/", "")
	if _, err := c.Login(ctx, "ana@campus.test", "wrong"); err == nil {
		t.Fatal("login with wrong password succeeded")
	} else {
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid email or password" {
			t.Errorf("error = %v", err)
		}
	}

	sess, err := c.Login(ctx, "ana@campus.test", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.Username != "ana" || c.Token() != sess.Token {
		t.Errorf("session = %+v", sess)
	}
	if _, err := c.Profile(ctx); err != nil {
		t.Errorf("Profile: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Token() != "" {
		t.Error("token kept after logout")
	}
}

func TestFeed_ShapeTranslation(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ana, anaID := signUp(t, ts, "ana")
	bo, boID := signUp(t, ts, "bo")

	created, err := ana.CreatePost(ctx, "hello campus", "")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if created.Caption != "hello campus" || created.UID != anaID {
		t.Errorf("created = %+v", created)
	}
	if created.Author.Name != "ana" || created.Author.Campus != "General" {
		t.Errorf("author = %+v, want username as name and General campus", created.Author)
	}

	if err := bo.Like(ctx, created.ID); err != nil {
		t.Fatalf("Like: %v", err)
	}
	root, err := bo.AddComment(ctx, created.ID, "", "nice")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := ana.AddComment(ctx, created.ID, root.ID, "thanks"); err != nil {
		t.Fatalf("reply: %v", err)
	}

	page, err := bo.Feed(ctx, "", 10)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(page.Posts) != 1 || page.HasMore {
		t.Fatalf("page = %+v", page)
	}
	p := page.Posts[0]
	if p.Likes != 1 || !p.LikedByUser(boID) || p.CommentsCount != 2 {
		t.Errorf("post = %+v", p)
	}

	comments, err := ana.Comments(ctx, created.ID)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 1 || len(comments[0].Replies) != 1 || comments[0].Replies[0].ParentID != root.ID {
		t.Errorf("comments = %+v", comments)
	}
}

func TestAllPosts_WalksEveryPage(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ana, _ := signUp(t, ts, "ana")
	for i := 0; i < 12; i++ {
		if _, err := ana.CreatePost(ctx, "post", ""); err != nil {
			t.Fatalf("CreatePost: %v", err)
		}
	}
	page, err := ana.Feed(ctx, "", 5)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !page.HasMore || len(page.Posts) != 5 {
		t.Errorf("first page = %d posts, hasMore %v", len(page.Posts), page.HasMore)
	}
	all, err := ana.AllPosts(ctx)
	if err != nil {
		t.Fatalf("AllPosts: %v", err)
	}
	if len(all) != 12 {
		t.Errorf("AllPosts = %d, want 12", len(all))
	}
}

func TestThreads_VotesBecomeScore(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ana, anaID := signUp(t, ts, "ana")
	bo, _ := signUp(t, ts, "bo")

	th, err := ana.CreateThread(ctx, "Best DSA book?", "", []string{"books", "dsa"})
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if th.Category != "books" {
		t.Errorf("category = %q, want first tag", th.Category)
	}
	ana.Vote(ctx, th.ID, "UP")
	bo.Vote(ctx, th.ID, "DOWN")
	bo.Vote(ctx, th.ID, "UP")
	reply, err := bo.Reply(ctx, th.ID, "", "CLRS")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	ana.Reply(ctx, th.ID, reply.ID, "too long")

	public := New(ts.URL+"/api", "")
	got, err := public.Thread(ctx, th.ID)
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if got.Votes != 2 || got.VoteOf(anaID) != "UP" || len(got.Downvotes) != 0 {
		t.Errorf("votes = %d up %v down %v", got.Votes, got.Upvotes, got.Downvotes)
	}
	if got.AnswersCount != 2 || len(got.Discussion) != 1 || len(got.Discussion[0].Replies) != 1 {
		t.Errorf("discussion = %+v", got.Discussion)
	}

	page, err := public.Threads(ctx, "", 10)
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	if len(page.Threads) != 1 || page.Threads[0].Votes != 2 {
		t.Errorf("threads = %+v", page.Threads)
	}
}

func TestNest_FlatPayload(t *testing.T) {
	flat := []Comment{
		{ID: "c", ParentID: "b", Content: "grandchild"},
		{ID: "a", Content: "root"},
		{ID: "b", ParentID: "a", Content: "child"},
		{ID: "x", ParentID: "gone", Content: "orphan"},
		{ID: "p", ParentID: "q"},
		{ID: "q", ParentID: "p"},
	}
	got := nest(flat)
	if len(got) != 3 {
		t.Fatalf("roots = %d, want 3", len(got))
	}
	if got[0].ID != "a" || got[0].Replies[0].ID != "b" || got[0].Replies[0].Replies[0].ID != "c" {
		t.Errorf("tree = %+v", got[0])
	}
	if got[1].ID != "x" {
		t.Errorf("orphan root = %s, want x", got[1].ID)
	}
	if got[2].ID != "p" || len(got[2].Replies) != 1 || got[2].Replies[0].ID != "q" {
		t.Errorf("cycle = %+v", got[2])
	}
}

func TestStreamPosts(t *testing.T) {
	ts := newServer(t)
	ana, _ := signUp(t, ts, "ana")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Post, 1)
	done := make(chan error, 1)
	go func() {
		done <- ana.StreamPosts(ctx, func(p Post) {
			select {
			case got <- p:
			default:
			}
		})
	}()

	// The subscription is registered once the stream handler runs; retry
	// until a post lands on it.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case p := <-got:
			if p.Caption != "live" {
				t.Errorf("streamed caption = %q", p.Caption)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("StreamPosts: %v", err)
			}
			return
		case <-tick.C:
			ana.CreatePost(context.Background(), "live", "")
		case <-deadline:
			t.Fatal("no post streamed")
		}
	}
}
