// Package discussion turns flat comment rows into reply trees and tallies
// thread votes.
package discussion

import (
	"sort"
	"time"

	"github.com/campusconnect/campus/internal/models"
)

// Node is a comment with its nested replies.
type Node struct {
	ID        string        `json:"id"`
	ParentID  *string       `json:"parentId"`
	AuthorID  string        `json:"authorId"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	Author    models.Author `json:"author"`
	Replies   []*Node       `json:"replies"`
}

// Nest builds the reply forest for flat. Siblings are ordered oldest first
// regardless of input order. A comment whose parent is absent becomes a root.
func Nest(flat []models.Comment) []*Node {
	sorted := make([]models.Comment, len(flat))
	copy(sorted, flat)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	byID := make(map[string]*Node, len(sorted))
	for _, c := range sorted {
		byID[c.ID] = &Node{
			ID:        c.ID,
			ParentID:  c.ParentID,
			AuthorID:  c.AuthorID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Author:    models.AuthorOf(c.Author),
			Replies:   []*Node{},
		}
	}

	roots := []*Node{}
	for _, c := range sorted {
		n := byID[c.ID]
		if c.ParentID != nil && *c.ParentID != c.ID {
			if parent, ok := byID[*c.ParentID]; ok && !reaches(byID, parent, c.ID) {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// reaches reports whether walking up from n hits id, which would close a cycle.
func reaches(byID map[string]*Node, n *Node, id string) bool {
	for steps := 0; n != nil && steps <= len(byID); steps++ {
		if n.ID == id {
			return true
		}
		if n.ParentID == nil {
			return false
		}
		n = byID[*n.ParentID]
	}
	return false
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	total := 0
	for _, n := range forest {
		total += 1 + Count(n.Replies)
	}
	return total
}

// Descendants returns the ids of every comment below rootID in flat,
// excluding rootID itself.
func Descendants(flat []models.Comment, rootID string) []string {
	children := make(map[string][]string)
	for _, c := range flat {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	var out []string
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// Tally summarizes a thread's votes.
type Tally struct {
	Upvotes   []string `json:"upvotes"`
	Downvotes []string `json:"downvotes"`
	Score     int      `json:"score"`
}

// TallyVotes splits votes by direction and computes up minus down.
func TallyVotes(votes []models.ThreadVote) Tally {
	t := Tally{Upvotes: []string{}, Downvotes: []string{}}
	for _, v := range votes {
		switch v.Type {
		case models.VoteUp:
			t.Upvotes = append(t.Upvotes, v.UserID)
		case models.VoteDown:
			t.Downvotes = append(t.Downvotes, v.UserID)
		}
	}
	t.Score = len(t.Upvotes) - len(t.Downvotes)
	return t
}
