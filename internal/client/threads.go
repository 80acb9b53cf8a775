package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Thread is a discussion thread. Votes is upvotes minus downvotes.
type Thread struct {
	ID           string
	UID          string
	Title        string
	Description  string
	Tags         []string
	Category     string
	Campus       string
	CreatedAt    time.Time
	Author       Author
	Upvotes      []string
	Downvotes    []string
	Votes        int
	AnswersCount int
	Discussion   []Comment
}

// VoteOf returns "UP", "DOWN" or "" for uid's current vote.
func (t Thread) VoteOf(uid string) string {
	for _, id := range t.Upvotes {
		if id == uid {
			return "UP"
		}
	}
	for _, id := range t.Downvotes {
		if id == uid {
			return "DOWN"
		}
	}
	return ""
}

// ThreadPage is one page of threads.
type ThreadPage struct {
	Threads    []Thread
	NextCursor string
	HasMore    bool
}

type threadWire struct {
	ID          string        `json:"id"`
	AuthorID    string        `json:"authorId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	CollegeName string        `json:"collegeName"`
	CreatedAt   time.Time     `json:"createdAt"`
	Author      authorWire    `json:"author"`
	Upvotes     []string      `json:"upvotes"`
	Downvotes   []string      `json:"downvotes"`
	ReplyCount  int           `json:"replyCount"`
	Discussion  []commentWire `json:"discussion"`
}

func (w threadWire) toThread() Thread {
	t := Thread{
		ID:          w.ID,
		UID:         w.AuthorID,
		Title:       w.Title,
		Description: w.Description,
		Tags:        w.Tags,
		Category:    "General",
		Campus:      w.CollegeName,
		CreatedAt:   w.CreatedAt,
		Author:      w.Author.toAuthor(w.AuthorID),
		Upvotes:     w.Upvotes,
		Downvotes:   w.Downvotes,
		Discussion:  toComments(w.Discussion),
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if len(t.Tags) > 0 {
		t.Category = t.Tags[0]
	}
	if t.Campus == "" {
		t.Campus = "General"
	}
	if t.Upvotes == nil {
		t.Upvotes = []string{}
	}
	if t.Downvotes == nil {
		t.Downvotes = []string{}
	}
	t.Votes = len(t.Upvotes) - len(t.Downvotes)
	t.AnswersCount = w.ReplyCount
	if t.AnswersCount == 0 {
		t.AnswersCount = countComments(t.Discussion)
	}
	return t
}

func countComments(cs []Comment) int {
	n := len(cs)
	for _, c := range cs {
		n += countComments(c.Replies)
	}
	return n
}

// Threads returns the page of threads after cursor. It needs no sign-in.
func (c *Client) Threads(ctx context.Context, cursor string, limit int) (ThreadPage, error) {
	var page pageWire[threadWire]
	if err := c.do(ctx, http.MethodGet, pageQuery("/threads", cursor, limit), nil, &page); err != nil {
		return ThreadPage{}, err
	}
	out := ThreadPage{Threads: make([]Thread, len(page.Data))}
	for i, w := range page.Data {
		out.Threads[i] = w.toThread()
	}
	if page.NextCursor != nil {
		out.NextCursor = *page.NextCursor
		out.HasMore = out.NextCursor != ""
	}
	return out, nil
}

// Thread returns one thread with its discussion.
func (c *Client) Thread(ctx context.Context, id string) (Thread, error) {
	var w threadWire
	if err := c.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(id), nil, &w); err != nil {
		return Thread{}, err
	}
	return w.toThread(), nil
}

// CreateThread opens a thread.
func (c *Client) CreateThread(ctx context.Context, title, description string, tags []string) (Thread, error) {
	var w threadWire
	err := c.do(ctx, http.MethodPost, "/threads/create", map[string]any{
		"title":       title,
		"description": description,
		"tags":        tags,
	}, &w)
	if err != nil {
		return Thread{}, err
	}
	return w.toThread(), nil
}

// Reply answers a thread, or a reply in it when parentID is set.
func (c *Client) Reply(ctx context.Context, threadID, parentID, content string) (Comment, error) {
	body := map[string]string{"content": content}
	if parentID != "" {
		body["parentId"] = parentID
	}
	var w commentWire
	if err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/replies", body, &w); err != nil {
		return Comment{}, err
	}
	return w.toComment(), nil
}

// Vote casts kind, "UP" or "DOWN", replacing any earlier vote.
func (c *Client) Vote(ctx context.Context, threadID, kind string) error {
	return c.do(ctx, http.MethodPost, "/threads/vote", map[string]string{"threadId": threadID, "type": kind}, nil)
}

// SaveThread bookmarks a thread; UnsaveThread removes the bookmark.
func (c *Client) SaveThread(ctx context.Context, threadID string) error {
	return c.do(ctx, http.MethodPost, "/threads/save", map[string]string{"threadId": threadID}, nil)
}

func (c *Client) UnsaveThread(ctx context.Context, threadID string) error {
	return c.do(ctx, http.MethodPost, "/threads/unsave", map[string]string{"threadId": threadID}, nil)
}
