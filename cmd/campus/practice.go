package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/history"
	"github.com/campusconnect/campus/internal/voice"
)

// localUser owns practice calls run in the terminal.
const localUser = "local"

const exitCommand = "/exit"

type practiceOpts struct {
	company    string
	role       string
	topics     []string
	difficulty string
	resume     string
	silence    time.Duration
	remote     bool
}

func newPracticeCmd() *cobra.Command {
	var (
		configPath string
		opts       practiceOpts
	)

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run a mock interview in the terminal",
		Long: `Runs a live mock interview against the configured AI interviewer.
Type your answers; a pause of --silence ends your turn. Type /exit to end
the call. The transcript is analyzed and kept in the local history.

With --remote the session is created on the server instead, ready to be
joined from the web app.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPractice(cmd, configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CampusConnect config file")
	cmd.Flags().StringVar(&opts.company, "company", "", "company you are interviewing with")
	cmd.Flags().StringVar(&opts.role, "role", "", "role you are interviewing for")
	cmd.Flags().StringSliceVar(&opts.topics, "topic", nil, "topic to cover (repeatable)")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "moderate", "basic, moderate or tough")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "short resume overview")
	cmd.Flags().DurationVar(&opts.silence, "silence", 2*time.Second, "pause that ends your turn")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "create the session on the server")
	return cmd
}

func (o practiceOpts) request() call.SetupRequest {
	return call.SetupRequest{
		Company:        o.company,
		Role:           o.role,
		Topics:         o.topics,
		Difficulty:     o.difficulty,
		ResumeOverview: o.resume,
	}
}

func runPractice(cmd *cobra.Command, configPath string, opts practiceOpts) error {
	if opts.remote {
		return runRemotePractice(cmd, configPath, opts)
	}
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ai, err := newInterviewer(cfg)
	if err != nil {
		return err
	}
	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer hist.Close()
	store := call.NewStore(hist)

	ctx, cancel := withInterrupt(cmd)
	defer cancel()

	fmt.Fprintln(out, "Preparing your interviewer...")
	sess, err := call.NewSetup(ai, store).Start(ctx, localUser, opts.request())
	if err != nil {
		return err
	}
	c := sess.Config
	fmt.Fprintf(out, "Interview for %s at %s (%s). Type your answers; %s ends the call.\n", c.Role, c.Company, c.Difficulty, exitCommand)

	mic := &terminalMic{}
	screen := newTerminalScreen()
	room, err := call.OpenRoom(store, localUser, sess.ID, ai, mic, terminalVoice{out: out}, screen, screen, call.RoomOptions{
		Voice: voice.Options{
			SilenceTimeout:  opts.silence,
			MaxUserResponse: cfg.MaxUserResponse(),
			RestartDelay:    cfg.RestartDelay(),
			WrapUpPrompt:    cfg.Voice.WrapUpPrompt,
		},
	})
	if err != nil {
		return err
	}
	room.SetMicOn(true)
	if err := room.Enter(ctx); err != nil {
		room.Close()
		return fmt.Errorf("start interview: %w", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for ended := false; !ended; {
		select {
		case line, ok := <-lines:
			switch {
			case !ok:
				lines = nil
				room.Exit()
			case strings.TrimSpace(line) == exitCommand:
				room.Exit()
			case strings.TrimSpace(line) == "":
			case !mic.hear(line):
				fmt.Fprint(out, "(the interviewer is still talking)\n> ")
			}
		case <-screen.done:
			ended = true
		case <-ctx.Done():
			room.Close()
			return nil
		}
	}

	fmt.Fprintf(out, "\n\nCall ended after %s. Analyzing your interview...\n", time.Duration(room.ElapsedSec())*time.Second)
	rec, err := call.NewAnalyst(ai, store, nil).Run(ctx, localUser, sess.ID)
	if err != nil {
		fmt.Fprintln(out, call.AnalysisFailedMessage)
		fmt.Fprintf(out, "Retry with: campus history %s --analyze\n", sess.ID)
		return err
	}
	printRecord(out, rec, false)
	return nil
}

func runRemotePractice(cmd *cobra.Command, configPath string, opts practiceOpts) error {
	out := cmd.OutOrStdout()

	_, c, _, err := signedIn(configPath)
	if err != nil {
		return err
	}
	sess, err := c.StartSession(cmd.Context(), opts.request())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Session %s is ready for %s at %s.\n", sess.ID, sess.Config.Role, sess.Config.Company)
	fmt.Fprintln(out, "Open the interview page in the web app to join the call.")
	return nil
}
