package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusconnect/campus/internal/client"
	"github.com/campusconnect/campus/internal/feedview"
)

func newFeedCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		pages      int
		follow     bool
		browse     bool
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the campus post feed",
		Long: `Lists the newest posts, following the cursor for up to --pages pages.
With --follow, keeps printing posts as they are published. With
--interactive, opens a browser where posts can be liked and saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if browse {
				return runFeedBrowser(cmd, configPath, limit)
			}
			return runFeed(cmd, configPath, limit, pages, follow)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CampusConnect config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "posts per page")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new posts until interrupted")
	cmd.Flags().BoolVarP(&browse, "interactive", "i", false, "browse the feed interactively")
	return cmd
}

func runFeedBrowser(cmd *cobra.Command, configPath string, limit int) error {
	_, c, creds, err := signedIn(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := withInterrupt(cmd)
	defer cancel()
	return feedview.Run(ctx, client.NewFeedModel(c, creds.UserID), creds.UserID, limit, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runFeed(cmd *cobra.Command, configPath string, limit, pages int, follow bool) error {
	out := cmd.OutOrStdout()

	_, c, creds, err := signedIn(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := withInterrupt(cmd)
	defer cancel()

	m := client.NewFeedModel(c, creds.UserID)
	if err := m.Load(ctx, limit); err != nil {
		return err
	}
	for i := 1; i < pages; i++ {
		more, err := m.More(ctx, limit)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	state := m.State()
	printPosts(out, state.Posts, creds.UserID)
	if state.NextCursor != "" {
		fmt.Fprintln(out, "\nMore posts available: use --pages to fetch further.")
	}
	if !follow {
		return nil
	}

	fmt.Fprintln(out, "\nWaiting for new posts (Ctrl-C to stop)...")
	return c.StreamPosts(ctx, func(p client.Post) {
		m.Prepend(p)
		printPosts(out, []client.Post{p}, creds.UserID)
	})
}

func printPosts(out io.Writer, posts []client.Post, uid string) {
	if len(posts) == 0 {
		fmt.Fprintln(out, "No posts yet.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAUTHOR\tLIKES\tCOMMENTS\tPOSTED\tCAPTION")
	for _, p := range posts {
		likes := fmt.Sprintf("%d", p.Likes)
		if p.LikedByUser(uid) {
			likes += "*"
		}
		fmt.Fprintf(w, "%s\t@%s\t%s\t%d\t%s\t%s\n",
			p.ID, p.Author.Username, likes, p.CommentsCount, formatAge(p.CreatedAt, time.Now()), truncate(p.Caption, 60))
	}
	w.Flush()
}

func newLikeCmd() *cobra.Command {
	var (
		configPath string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like or unlike a post",
		Long: `Toggles your like on a post. With --save the bookmark is toggled
instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLike(cmd, configPath, args[0], save)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CampusConnect config file")
	cmd.Flags().BoolVar(&save, "save", false, "toggle the bookmark instead of the like")
	return cmd
}

func runLike(cmd *cobra.Command, configPath, postID string, save bool) error {
	out := cmd.OutOrStdout()

	_, c, creds, err := signedIn(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// The model only toggles posts it holds, so page until the post shows up.
	m := client.NewFeedModel(c, creds.UserID)
	if err := m.Load(ctx, 50); err != nil {
		return err
	}
	for !feedHas(m.State(), postID) {
		more, err := m.More(ctx, 50)
		if err != nil {
			return err
		}
		if !more {
			return fmt.Errorf("post %s not found", postID)
		}
	}

	if save {
		saved, err := m.ToggleSave(ctx, postID)
		if err != nil {
			return err
		}
		if saved {
			fmt.Fprintf(out, "Saved post %s\n", postID)
		} else {
			fmt.Fprintf(out, "Removed post %s from saved\n", postID)
		}
		return nil
	}

	liked, err := m.ToggleLike(ctx, postID)
	if errors.Is(err, client.ErrPending) {
		return fmt.Errorf("post %s: like already in progress", postID)
	}
	if err != nil {
		return err
	}
	verb := "Unliked"
	if liked {
		verb = "Liked"
	}
	for _, p := range m.State().Posts {
		if p.ID == postID {
			fmt.Fprintf(out, "%s post %s (%d likes)\n", verb, postID, p.Likes)
		}
	}
	return nil
}

func feedHas(s client.FeedState, postID string) bool {
	for _, p := range s.Posts {
		if p.ID == postID {
			return true
		}
	}
	return false
}

// formatAge renders how long ago t was, e.g. "5m" or "3d".
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
