package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// ErrPending is returned when a toggle on the same item is still in flight.
var ErrPending = errors.New("client: request already pending")

// FeedState is what the feed screen shows.
type FeedState struct {
	Posts      []Post
	NextCursor string
}

// mapPost returns a copy of s with fn applied to post id.
func (s FeedState) mapPost(id string, fn func(Post) Post) FeedState {
	posts := make([]Post, len(s.Posts))
	copy(posts, s.Posts)
	for i, p := range posts {
		if p.ID == id {
			posts[i] = fn(p)
		}
	}
	s.Posts = posts
	return s
}

func withLike(uid string) func(Post) Post {
	return func(p Post) Post {
		if p.LikedByUser(uid) {
			return p
		}
		p.LikedBy = append(append([]string{}, p.LikedBy...), uid)
		p.Likes = len(p.LikedBy)
		return p
	}
}

func withoutLike(uid string) func(Post) Post {
	return func(p Post) Post {
		kept := make([]string, 0, len(p.LikedBy))
		for _, id := range p.LikedBy {
			if id != uid {
				kept = append(kept, id)
			}
		}
		p.LikedBy = kept
		p.Likes = len(kept)
		return p
	}
}

func withSaved(saved bool) func(Post) Post {
	return func(p Post) Post {
		p.Saved = saved
		return p
	}
}

func withComments(delta int) func(Post) Post {
	return func(p Post) Post {
		p.CommentsCount += delta
		if p.CommentsCount < 0 {
			p.CommentsCount = 0
		}
		return p
	}
}

// LikeAction adds uid's like to a post; its inverse takes it away.
// UnlikeAction is the reverse pair.
func LikeAction(postID, uid string) Action[FeedState] {
	return Action[FeedState]{
		Name:    "like " + postID,
		Forward: func(s FeedState) FeedState { return s.mapPost(postID, withLike(uid)) },
		Inverse: func(s FeedState) FeedState { return s.mapPost(postID, withoutLike(uid)) },
	}
}

func UnlikeAction(postID, uid string) Action[FeedState] {
	return Action[FeedState]{
		Name:    "unlike " + postID,
		Forward: func(s FeedState) FeedState { return s.mapPost(postID, withoutLike(uid)) },
		Inverse: func(s FeedState) FeedState { return s.mapPost(postID, withLike(uid)) },
	}
}

// SaveAction sets a post's bookmark to saved.
func SaveAction(postID string, saved bool) Action[FeedState] {
	name := "save "
	if !saved {
		name = "unsave "
	}
	return Action[FeedState]{
		Name:    name + postID,
		Forward: func(s FeedState) FeedState { return s.mapPost(postID, withSaved(saved)) },
		Inverse: func(s FeedState) FeedState { return s.mapPost(postID, withSaved(!saved)) },
	}
}

// CommentAction counts a new comment on a post.
func CommentAction(postID string) Action[FeedState] {
	return Action[FeedState]{
		Name:    "comment on " + postID,
		Forward: func(s FeedState) FeedState { return s.mapPost(postID, withComments(1)) },
		Inverse: func(s FeedState) FeedState { return s.mapPost(postID, withComments(-1)) },
	}
}

// FeedModel drives the feed screen for one signed-in user.
type FeedModel struct {
	*Reducer[FeedState]

	c   *Client
	uid string

	mu      sync.Mutex
	pending map[string]bool
}

// NewFeedModel returns an empty feed for user uid.
func NewFeedModel(c *Client, uid string) *FeedModel {
	return &FeedModel{
		Reducer: NewReducer(FeedState{Posts: []Post{}}),
		c:       c,
		uid:     uid,
		pending: make(map[string]bool),
	}
}

// Load replaces the feed with its first page.
func (f *FeedModel) Load(ctx context.Context, limit int) error {
	page, err := f.c.Feed(ctx, "", limit)
	if err != nil {
		return err
	}
	f.Update(func(FeedState) FeedState {
		return FeedState{Posts: page.Posts, NextCursor: page.NextCursor}
	})
	return nil
}

// More appends the next page. It reports false when there is none.
func (f *FeedModel) More(ctx context.Context, limit int) (bool, error) {
	cursor := f.State().NextCursor
	if cursor == "" {
		return false, nil
	}
	page, err := f.c.Feed(ctx, cursor, limit)
	if err != nil {
		return false, err
	}
	f.Update(func(s FeedState) FeedState {
		if s.NextCursor != cursor {
			return s
		}
		posts := append(append([]Post{}, s.Posts...), page.Posts...)
		return FeedState{Posts: posts, NextCursor: page.NextCursor}
	})
	return true, nil
}

func (f *FeedModel) claim(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending[key] {
		return false
	}
	f.pending[key] = true
	return true
}

func (f *FeedModel) release(key string) {
	f.mu.Lock()
	delete(f.pending, key)
	f.mu.Unlock()
}

func (f *FeedModel) post(id string) (Post, bool) {
	for _, p := range f.State().Posts {
		if p.ID == id {
			return p, true
		}
	}
	return Post{}, false
}

// ToggleLike likes or unlikes a post, showing the result before the server
// confirms it. It returns whether the post ends up liked.
func (f *FeedModel) ToggleLike(ctx context.Context, postID string) (bool, error) {
	p, ok := f.post(postID)
	if !ok {
		return false, fmt.Errorf("client: post %s not in feed", postID)
	}
	if !f.claim("like:" + postID) {
		return p.LikedByUser(f.uid), ErrPending
	}
	defer f.release("like:" + postID)

	if p.LikedByUser(f.uid) {
		err := f.Transition(ctx, UnlikeAction(postID, f.uid), func(ctx context.Context) error { return f.c.Unlike(ctx, postID) })
		return err != nil, err
	}
	err := f.Transition(ctx, LikeAction(postID, f.uid), func(ctx context.Context) error { return f.c.Like(ctx, postID) })
	return err == nil, err
}

// ToggleSave bookmarks or un-bookmarks a post. It returns whether the post
// ends up saved.
func (f *FeedModel) ToggleSave(ctx context.Context, postID string) (bool, error) {
	p, ok := f.post(postID)
	if !ok {
		return false, fmt.Errorf("client: post %s not in feed", postID)
	}
	if !f.claim("save:" + postID) {
		return p.Saved, ErrPending
	}
	defer f.release("save:" + postID)

	save := !p.Saved
	err := f.Transition(ctx, SaveAction(postID, save), func(ctx context.Context) error {
		if save {
			return f.c.Save(ctx, postID)
		}
		return f.c.Unsave(ctx, postID)
	})
	if err != nil {
		return p.Saved, err
	}
	return save, nil
}

// Comment posts a comment, counting it on the post straight away.
func (f *FeedModel) Comment(ctx context.Context, postID, parentID, content string) (Comment, error) {
	var created Comment
	err := f.Transition(ctx, CommentAction(postID), func(ctx context.Context) error {
		var err error
		created, err = f.c.AddComment(ctx, postID, parentID, content)
		return err
	})
	return created, err
}

// Prepend adds a post that arrived on the live stream, unless it is
// already shown.
func (f *FeedModel) Prepend(p Post) {
	f.Update(func(s FeedState) FeedState {
		for _, existing := range s.Posts {
			if existing.ID == p.ID {
				return s
			}
		}
		s.Posts = append([]Post{p}, s.Posts...)
		return s
	})
}

// StreamPosts follows the server's live feed and calls fn for each new
// post until ctx ends or the stream drops.
func (c *Client) StreamPosts(ctx context.Context, fn func(Post)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/posts/stream", nil)
	if err != nil {
		return fmt.Errorf("client: build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	// The stream outlives the per-request timeout.
	stream := &http.Client{Transport: c.http.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return fmt.Errorf("client: open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &Error{Method: http.MethodGet, Path: "/posts/stream", Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	event := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && event == "post":
			var w postWire
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &w); err != nil {
				return fmt.Errorf("client: decode streamed post: %w", err)
			}
			fn(w.toPost())
		case line == "":
			event = ""
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("client: read stream: %w", err)
	}
	return nil
}
