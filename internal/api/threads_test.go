package api

import (
	"net/http"
	"testing"

	"pgregory.net/rapid"

	"github.com/campusconnect/campus/internal/discussion"
	"github.com/campusconnect/campus/internal/models"
	"github.com/campusconnect/campus/internal/paginate"
)

func (a *testAPI) createThread(token, title string) threadView {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/threads/create", token, map[string]any{
		"title": title,
		"tags":  []string{" go ", "", "interviews"},
	})
	if w.Code != http.StatusCreated {
		a.t.Fatalf("create thread: status %d: %s", w.Code, w.Body.String())
	}
	var tv threadView
	decodeInto(a.t, w, &tv)
	return tv
}

func TestCreateThread(t *testing.T) {
	a := newTestAPI(t)
	ana, uid := a.register("ana")

	tv := a.createThread(ana, "  Placement prep?  ")
	if tv.Title != "Placement prep?" || tv.AuthorID != uid || tv.Author.Username != "ana" {
		t.Errorf("thread = %+v", tv)
	}
	if len(tv.Tags) != 2 || tv.Tags[0] != "go" {
		t.Errorf("tags = %q, want trimmed and non-empty", tv.Tags)
	}
	if tv.Score != 0 || tv.ReplyCount != 0 {
		t.Errorf("fresh thread tally = %+v", tv.Tally)
	}

	w := a.do(http.MethodPost, "/api/threads/create", ana, map[string]string{"title": " "})
	if got := errorOf(t, w); w.Code != http.StatusBadRequest || got != "title is required" {
		t.Errorf("blank title = %d %q", w.Code, got)
	}
}

func TestThreads_PublicReads(t *testing.T) {
	a := newTestAPI(t)
	ana, _ := a.register("ana")
	tv := a.createThread(ana, "open question")

	w := a.do(http.MethodPost, "/api/threads/"+tv.ID+"/replies", ana, map[string]string{"content": "first!"})
	if w.Code != http.StatusCreated {
		t.Fatalf("reply status = %d: %s", w.Code, w.Body.String())
	}
	var first discussion.Node
	decodeInto(t, w, &first)
	a.do(http.MethodPost, "/api/threads/"+tv.ID+"/replies", ana, map[string]any{"content": "nested", "parentId": first.ID})

	var page paginate.Page[threadView]
	decodeInto(t, a.do(http.MethodGet, "/api/threads", "", nil), &page)
	if len(page.Data) != 1 || page.Data[0].ReplyCount != 2 {
		t.Errorf("public list = %+v", page.Data)
	}

	var detail threadDetail
	decodeInto(t, a.do(http.MethodGet, "/api/threads/"+tv.ID, "", nil), &detail)
	if len(detail.Discussion) != 1 || len(detail.Discussion[0].Replies) != 1 {
		t.Errorf("discussion = %+v", detail.Discussion)
	}

	if w := a.do(http.MethodGet, "/api/threads/nope", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing thread = %d, want 404", w.Code)
	}
	w = a.do(http.MethodPost, "/api/threads/"+tv.ID+"/replies", ana, map[string]string{"content": ""})
	if got := errorOf(t, w); got != "content is required" {
		t.Errorf("empty reply error = %q", got)
	}
}

// However many times users vote or change their minds, each keeps one vote
// row and the tally reflects only their latest choice.
func TestVoteThread_LastVoteWins(t *testing.T) {
	a := newTestAPI(t)
	author, _ := a.register("author")
	tv := a.createThread(author, "vote on me")

	type voter struct{ token, id string }
	voters := make([]voter, 3)
	for i, name := range []string{"ana", "bo", "cy"} {
		voters[i].token, voters[i].id = a.register(name)
	}

	rapid.Check(t, func(rt *rapid.T) {
		if err := a.db.Where("1 = 1").Delete(&models.ThreadVote{}).Error; err != nil {
			rt.Fatalf("clear votes: %v", err)
		}
		latest := map[string]string{}
		steps := rapid.IntRange(1, 15).Draw(rt, "steps")
		var tally discussion.Tally
		for i := 0; i < steps; i++ {
			v := voters[rapid.IntRange(0, len(voters)-1).Draw(rt, "voter")]
			kind := rapid.SampledFrom([]string{"UP", "DOWN", "up"}).Draw(rt, "type")
			w := a.do(http.MethodPost, "/api/threads/vote", v.token, map[string]string{"threadId": tv.ID, "type": kind})
			if w.Code != http.StatusOK {
				rt.Fatalf("vote status = %d: %s", w.Code, w.Body.String())
			}
			var out struct {
				Vote  models.ThreadVote `json:"vote"`
				Tally discussion.Tally  `json:"tally"`
			}
			decodeInto(t, w, &out)
			if out.Vote.UserID != v.id {
				rt.Fatalf("vote belongs to %s, want %s", out.Vote.UserID, v.id)
			}
			latest[v.id] = out.Vote.Type
			tally = out.Tally
		}

		var rows int64
		a.db.Model(&models.ThreadVote{}).Where("thread_id = ?", tv.ID).Count(&rows)
		if int(rows) != len(latest) {
			rt.Fatalf("%d vote rows for %d voters", rows, len(latest))
		}
		ups := 0
		for _, kind := range latest {
			if kind == models.VoteUp {
				ups++
			}
		}
		if len(tally.Upvotes) != ups || tally.Score != ups-(len(latest)-ups) {
			rt.Fatalf("tally = %+v, want %d up of %d", tally, ups, len(latest))
		}
	})
}

func TestVoteThread_ChangeOfMind(t *testing.T) {
	a := newTestAPI(t)
	author, _ := a.register("author")
	tv := a.createThread(author, "tabs or spaces")
	ana, uid := a.register("ana")

	vote := func(kind string) models.ThreadVote {
		t.Helper()
		w := a.do(http.MethodPost, "/api/threads/vote", ana, map[string]string{"threadId": tv.ID, "type": kind})
		if w.Code != http.StatusOK {
			t.Fatalf("vote %s: status %d: %s", kind, w.Code, w.Body.String())
		}
		var out struct {
			Vote models.ThreadVote `json:"vote"`
		}
		decodeInto(t, w, &out)
		return out.Vote
	}

	first := vote("UP")
	second := vote("DOWN")
	if second.ID != first.ID {
		t.Errorf("second vote id = %q, want the stored row %q", second.ID, first.ID)
	}
	if second.Type != models.VoteDown || second.UserID != uid {
		t.Errorf("second vote = %+v, want DOWN by %s", second, uid)
	}

	var rows []models.ThreadVote
	a.db.Where("thread_id = ?", tv.ID).Find(&rows)
	if len(rows) != 1 || rows[0].Type != models.VoteDown {
		t.Errorf("rows = %+v, want one DOWN vote", rows)
	}
}

func TestVoteThread_Validation(t *testing.T) {
	a := newTestAPI(t)
	ana, _ := a.register("ana")
	tv := a.createThread(ana, "t")

	w := a.do(http.MethodPost, "/api/threads/vote", ana, map[string]string{"threadId": tv.ID, "type": "SIDEWAYS"})
	if got := errorOf(t, w); w.Code != http.StatusBadRequest || got != "threadId and type (UP or DOWN) are required" {
		t.Errorf("bad type = %d %q", w.Code, got)
	}
	w = a.do(http.MethodPost, "/api/threads/vote", ana, map[string]string{"threadId": "nope", "type": "UP"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing thread = %d, want 404", w.Code)
	}
}

func TestSaveThread(t *testing.T) {
	a := newTestAPI(t)
	ana, _ := a.register("ana")
	tv := a.createThread(ana, "bookmark")

	for i := 0; i < 2; i++ {
		w := a.do(http.MethodPost, "/api/threads/save", ana, map[string]string{"threadId": tv.ID})
		var out map[string]any
		decodeInto(t, w, &out)
		if w.Code != http.StatusOK || out["message"] != "Thread saved successfully" {
			t.Errorf("save = %d %v", w.Code, out)
		}
	}
	var saved []threadView
	decodeInto(t, a.do(http.MethodGet, "/api/threads/saved", ana, nil), &saved)
	if len(saved) != 1 || saved[0].ID != tv.ID || saved[0].Author.Username != "ana" {
		t.Errorf("saved = %+v", saved)
	}

	w := a.do(http.MethodPost, "/api/threads/unsave", ana, map[string]string{"threadId": tv.ID})
	var out map[string]string
	decodeInto(t, w, &out)
	if out["message"] != "Thread removed from saved" {
		t.Errorf("unsave message = %q", out["message"])
	}
	decodeInto(t, a.do(http.MethodGet, "/api/threads/saved", ana, nil), &saved)
	if len(saved) != 0 {
		t.Errorf("saved after unsave = %d", len(saved))
	}
}

func TestDeleteThread(t *testing.T) {
	a := newTestAPI(t)
	ana, _ := a.register("ana")
	bo, _ := a.register("bo")
	tv := a.createThread(ana, "temporary")
	a.do(http.MethodPost, "/api/threads/vote", bo, map[string]string{"threadId": tv.ID, "type": "UP"})
	a.do(http.MethodPost, "/api/threads/save", bo, map[string]string{"threadId": tv.ID})
	a.do(http.MethodPost, "/api/threads/"+tv.ID+"/replies", bo, map[string]string{"content": "hi"})

	if w := a.do(http.MethodDelete, "/api/threads/"+tv.ID, bo, nil); w.Code != http.StatusForbidden {
		t.Errorf("delete by other = %d, want 403", w.Code)
	}
	w := a.do(http.MethodDelete, "/api/threads/"+tv.ID, ana, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", w.Code, w.Body.String())
	}

	for _, m := range []any{&models.ThreadVote{}, &models.SavedThread{}, &models.Comment{}} {
		var n int64
		a.db.Model(m).Where("thread_id = ?", tv.ID).Count(&n)
		if n != 0 {
			t.Errorf("%T rows left: %d", m, n)
		}
	}

	var mine []threadView
	decodeInto(t, a.do(http.MethodGet, "/api/threads/mythreads", ana, nil), &mine)
	if len(mine) != 0 {
		t.Errorf("mythreads after delete = %d", len(mine))
	}
}
