package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Author is a post or comment author as the UI shows it.
type Author struct {
	ID         string
	Username   string
	Name       string
	ProfilePic string
	Campus     string
}

// Post is a feed item. Caption is the server's content.
type Post struct {
	ID            string
	UID           string
	Caption       string
	ImageURL      string
	Likes         int
	LikedBy       []string
	CommentsCount int
	Saved         bool
	CreatedAt     time.Time
	Author        Author
}

// LikedByUser reports whether uid has liked the post.
func (p Post) LikedByUser(uid string) bool {
	for _, id := range p.LikedBy {
		if id == uid {
			return true
		}
	}
	return false
}

// Comment is one node of a discussion.
type Comment struct {
	ID        string
	ParentID  string
	UID       string
	Content   string
	CreatedAt time.Time
	Author    Author
	Replies   []Comment
}

// FeedPage is one page of the feed.
type FeedPage struct {
	Posts      []Post
	NextCursor string
	HasMore    bool
}

type authorWire struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"fullName"`
	ProfileImageURL string `json:"profileImageUrl"`
	CollegeName     string `json:"collegeName"`
}

func (a authorWire) toAuthor(fallbackID string) Author {
	out := Author{
		ID:         a.ID,
		Username:   a.Username,
		Name:       a.FullName,
		ProfilePic: a.ProfileImageURL,
		Campus:     a.CollegeName,
	}
	if out.ID == "" {
		out.ID = fallbackID
	}
	if out.Name == "" {
		out.Name = out.Username
	}
	if out.Name == "" {
		out.Name = "Anonymous"
	}
	if out.Campus == "" {
		out.Campus = "General"
	}
	return out
}

type postWire struct {
	ID           string     `json:"id"`
	AuthorID     string     `json:"authorId"`
	Content      string     `json:"content"`
	ImageURL     string     `json:"imageUrl"`
	CreatedAt    time.Time  `json:"createdAt"`
	Author       authorWire `json:"author"`
	Likes        []string   `json:"likes"`
	CommentCount int        `json:"commentCount"`
	Saved        bool       `json:"saved"`
}

func (w postWire) toPost() Post {
	liked := w.Likes
	if liked == nil {
		liked = []string{}
	}
	return Post{
		ID:            w.ID,
		UID:           w.AuthorID,
		Caption:       w.Content,
		ImageURL:      w.ImageURL,
		Likes:         len(liked),
		LikedBy:       liked,
		CommentsCount: w.CommentCount,
		Saved:         w.Saved,
		CreatedAt:     w.CreatedAt,
		Author:        w.Author.toAuthor(w.AuthorID),
	}
}

func toPosts(wires []postWire) []Post {
	out := make([]Post, len(wires))
	for i, w := range wires {
		out[i] = w.toPost()
	}
	return out
}

type commentWire struct {
	ID        string        `json:"id"`
	ParentID  *string       `json:"parentId"`
	AuthorID  string        `json:"authorId"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	Author    authorWire    `json:"author"`
	Replies   []commentWire `json:"replies"`
}

func (w commentWire) toComment() Comment {
	c := Comment{
		ID:        w.ID,
		UID:       w.AuthorID,
		Content:   w.Content,
		CreatedAt: w.CreatedAt,
		Author:    w.Author.toAuthor(w.AuthorID),
		Replies:   toComments(w.Replies),
	}
	if w.ParentID != nil {
		c.ParentID = *w.ParentID
	}
	return c
}

// toComments translates a discussion, nesting it when the server sent
// replies as flat siblings.
func toComments(wires []commentWire) []Comment {
	flat := make([]Comment, len(wires))
	for i, w := range wires {
		flat[i] = w.toComment()
	}
	return nest(flat)
}

// nest moves each comment whose parent is among comments under that
// parent, keeping order. Comments with an unknown parent stay at the top.
func nest(comments []Comment) []Comment {
	index := make(map[string]int, len(comments))
	for i, c := range comments {
		index[c.ID] = i
	}
	children := make(map[string][]Comment)
	roots := []Comment{}
	for _, c := range comments {
		if _, ok := index[c.ParentID]; ok && c.ParentID != c.ID {
			children[c.ParentID] = append(children[c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}
	visited := make(map[string]bool, len(comments))
	var attach func(c Comment) Comment
	attach = func(c Comment) Comment {
		visited[c.ID] = true
		for _, child := range children[c.ID] {
			if !visited[child.ID] {
				c.Replies = append(c.Replies, attach(child))
			}
		}
		if c.Replies == nil {
			c.Replies = []Comment{}
		}
		return c
	}
	for i := range roots {
		roots[i] = attach(roots[i])
	}
	// Parent cycles have no root; surface them at the top.
	for _, c := range comments {
		if !visited[c.ID] {
			roots = append(roots, attach(c))
		}
	}
	return roots
}

type pageWire[T any] struct {
	Data       []T     `json:"data"`
	NextCursor *string `json:"nextCursor"`
}

func pageQuery(path, cursor string, limit int) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Feed returns the page of posts after cursor.
func (c *Client) Feed(ctx context.Context, cursor string, limit int) (FeedPage, error) {
	var page pageWire[postWire]
	if err := c.do(ctx, http.MethodGet, pageQuery("/posts/posts", cursor, limit), nil, &page); err != nil {
		return FeedPage{}, err
	}
	out := FeedPage{Posts: toPosts(page.Data)}
	if page.NextCursor != nil {
		out.NextCursor = *page.NextCursor
		out.HasMore = out.NextCursor != ""
	}
	return out, nil
}

// AllPosts walks the whole feed. It stops if the server repeats a cursor.
func (c *Client) AllPosts(ctx context.Context) ([]Post, error) {
	var all []Post
	cursor := ""
	for {
		page, err := c.Feed(ctx, cursor, 50)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Posts...)
		if !page.HasMore || page.NextCursor == cursor {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// MyPosts returns the signed-in user's posts.
func (c *Client) MyPosts(ctx context.Context) ([]Post, error) {
	var wires []postWire
	if err := c.do(ctx, http.MethodGet, "/posts/mine", nil, &wires); err != nil {
		return nil, err
	}
	return toPosts(wires), nil
}

// SavedPosts returns the posts the user bookmarked.
func (c *Client) SavedPosts(ctx context.Context) ([]Post, error) {
	var wires []postWire
	if err := c.do(ctx, http.MethodGet, "/posts/saved", nil, &wires); err != nil {
		return nil, err
	}
	return toPosts(wires), nil
}

// CreatePost publishes caption with an optional image.
func (c *Client) CreatePost(ctx context.Context, caption, imageURL string) (Post, error) {
	var w postWire
	err := c.do(ctx, http.MethodPost, "/posts/add", map[string]string{"content": caption, "imageUrl": imageURL}, &w)
	if err != nil {
		return Post{}, err
	}
	return w.toPost(), nil
}

// DeletePost removes one of the user's posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil)
}

func (c *Client) postAction(ctx context.Context, action, postID string) error {
	return c.do(ctx, http.MethodPost, "/posts/"+action, map[string]string{"postId": postID}, nil)
}

// Like records the user's like. Unlike, Save and Unsave work the same way.
func (c *Client) Like(ctx context.Context, postID string) error {
	return c.postAction(ctx, "like", postID)
}

func (c *Client) Unlike(ctx context.Context, postID string) error {
	return c.postAction(ctx, "unlike", postID)
}

func (c *Client) Save(ctx context.Context, postID string) error {
	return c.postAction(ctx, "save", postID)
}

func (c *Client) Unsave(ctx context.Context, postID string) error {
	return c.postAction(ctx, "unsave", postID)
}

// Comments returns a post's discussion as a tree.
func (c *Client) Comments(ctx context.Context, postID string) ([]Comment, error) {
	var wires []commentWire
	if err := c.do(ctx, http.MethodGet, "/posts/comments/"+url.PathEscape(postID), nil, &wires); err != nil {
		return nil, err
	}
	return toComments(wires), nil
}

// AddComment comments on a post, replying to parentID when set.
func (c *Client) AddComment(ctx context.Context, postID, parentID, content string) (Comment, error) {
	body := map[string]string{"postId": postID, "content": content}
	if parentID != "" {
		body["parentId"] = parentID
	}
	var w commentWire
	if err := c.do(ctx, http.MethodPost, "/posts/comment", body, &w); err != nil {
		return Comment{}, err
	}
	return w.toComment(), nil
}

// DeleteComment removes a comment and its replies.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/comment/"+url.PathEscape(commentID), nil, nil)
}
