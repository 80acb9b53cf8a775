// Package feedview is an interactive terminal browser for the post feed.
// Likes and bookmarks show up the moment a key is pressed; the feed model
// rolls them back if the server refuses.
package feedview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/campusconnect/campus/internal/client"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	authorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("237"))

	likedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Feed is the data behind the browser. *client.FeedModel satisfies it.
type Feed interface {
	State() client.FeedState
	Subscribe() (<-chan client.FeedState, func())
	Load(ctx context.Context, limit int) error
	More(ctx context.Context, limit int) (bool, error)
	ToggleLike(ctx context.Context, postID string) (bool, error)
	ToggleSave(ctx context.Context, postID string) (bool, error)
}

type loadedMsg struct {
	err error
}

type stateMsg struct {
	state client.FeedState
}

type toggledMsg struct {
	postID string
	save   bool
	on     bool
	err    error
}

// Model is the bubbletea model for the feed browser.
type Model struct {
	ctx    context.Context
	feed   Feed
	uid    string
	limit  int
	states <-chan client.FeedState
	stop   func()

	posts   []client.Post
	more    bool
	cursor  int
	loading bool
	status  string
	errMsg  string
	spinner spinner.Model

	width  int
	height int
	now    func() time.Time
}

// New returns a browser over feed for user uid, fetching limit posts per
// page.
func New(ctx context.Context, feed Feed, uid string, limit int) Model {
	states, stop := feed.Subscribe()
	return Model{
		ctx:     ctx,
		feed:    feed,
		uid:     uid,
		limit:   limit,
		states:  states,
		stop:    stop,
		loading: true,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:   80,
		height:  24,
		now:     time.Now,
	}
}

// Run shows the browser on out until the user quits or ctx ends.
func Run(ctx context.Context, feed Feed, uid string, limit int, in io.Reader, out io.Writer) error {
	m := New(ctx, feed, uid, limit)
	defer m.stop()
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("feedview: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), waitState(m.states))
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.feed.Load(m.ctx, m.limit)}
	}
}

func (m Model) loadMore() tea.Cmd {
	return func() tea.Msg {
		_, err := m.feed.More(m.ctx, m.limit)
		return loadedMsg{err: err}
	}
}

func (m Model) toggle(postID string, save bool) tea.Cmd {
	return func() tea.Msg {
		var (
			on  bool
			err error
		)
		if save {
			on, err = m.feed.ToggleSave(m.ctx, postID)
		} else {
			on, err = m.feed.ToggleLike(m.ctx, postID)
		}
		return toggledMsg{postID: postID, save: save, on: on, err: err}
	}
}

// waitState delivers the next feed state, so optimistic changes render
// before their request returns.
func waitState(ch <-chan client.FeedState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg{state: s}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.apply(msg.state)
		return m, waitState(m.states)

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.apply(m.feed.State())
		return m, nil

	case toggledMsg:
		m.apply(m.feed.State())
		switch {
		case errors.Is(msg.err, client.ErrPending):
			m.errMsg = "still working on that post"
		case msg.err != nil:
			m.errMsg = msg.err.Error()
		default:
			m.errMsg = ""
			m.status = toggleStatus(msg)
		}
		return m, nil
	}
	return m, nil
}

func toggleStatus(msg toggledMsg) string {
	switch {
	case msg.save && msg.on:
		return "Saved"
	case msg.save:
		return "Removed from saved"
	case msg.on:
		return "Liked"
	default:
		return "Unliked"
	}
}

func (m *Model) apply(s client.FeedState) {
	m.posts = s.Posts
	m.more = s.NextCursor != ""
	if m.cursor >= len(m.posts) {
		m.cursor = len(m.posts) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (client.Post, bool) {
	if m.cursor < len(m.posts) {
		return m.posts[m.cursor], true
	}
	return client.Post{}, false
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
		return m, nil

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "l", "s":
		p, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.toggle(p.ID, msg.String() == "s")

	case "n":
		if !m.more || m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadMore())

	case "r":
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.cursor = 0
		return m, tea.Batch(m.spinner.Tick, m.load())
	}
	return m, nil
}

// Each post takes two lines plus a blank separator.
const linesPerPost = 3

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Width(m.width).Render("campus feed"))
	b.WriteString("\n\n")

	visible := (m.height - 5) / linesPerPost
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}

	if len(m.posts) == 0 && !m.loading {
		b.WriteString(dimStyle.Render("No posts yet."))
		b.WriteString("\n")
	}
	for i := start; i < len(m.posts) && i < start+visible; i++ {
		b.WriteString(m.renderPost(m.posts[i], i == m.cursor))
		b.WriteString("\n")
	}

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " loading\n")
	case m.more:
		b.WriteString(dimStyle.Render("n: load more") + "\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render("error: "+m.errMsg) + "\n")
	} else if m.status != "" {
		b.WriteString(dimStyle.Render(m.status) + "\n")
	}
	b.WriteString(hintStyle.Render("j/k move  l like  s save  n more  r reload  q quit"))
	return b.String()
}

func (m Model) renderPost(p client.Post, selected bool) string {
	head := authorStyle.Render("@"+p.Author.Username) + "  " + clip(p.Caption, m.width-len(p.Author.Username)-4)
	if selected {
		head = selectedStyle.Render("> ") + head
	} else {
		head = "  " + head
	}

	likes := fmt.Sprintf("%d likes", p.Likes)
	if p.LikedByUser(m.uid) {
		likes = likedStyle.Render(likes)
	}
	meta := []string{likes, fmt.Sprintf("%d comments", p.CommentsCount), age(p.CreatedAt, m.now())}
	if p.Saved {
		meta = append(meta, "saved")
	}
	return head + "\n    " + dimStyle.Render(strings.Join(meta, "  ")) + "\n"
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func age(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}
