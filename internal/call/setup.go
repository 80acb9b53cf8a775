package call

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusconnect/campus/internal/interview"
)

// ErrInvalidSetup marks a setup form that cannot start a session.
var ErrInvalidSetup = errors.New("call: invalid setup")

// SetupRequest is the interview setup form.
type SetupRequest struct {
	Company        string   `json:"company"`
	Role           string   `json:"role"`
	Topics         []string `json:"topics"`
	Difficulty     string   `json:"difficulty"`
	ResumeOverview string   `json:"resumeOverview"`
}

// Setup turns a setup form into the user's active session.
type Setup struct {
	interviewer interview.Interviewer
	store       *Store
	now         func() time.Time
}

// NewSetup returns a Setup backed by interviewer and store.
func NewSetup(interviewer interview.Interviewer, store *Store) *Setup {
	return &Setup{interviewer: interviewer, store: store, now: time.Now}
}

// Start validates req, generates the interview prompt and stores a new
// in-progress session as the user's active one.
func (s *Setup) Start(ctx context.Context, userID string, req SetupRequest) (interview.Session, error) {
	company := strings.TrimSpace(req.Company)
	role := strings.TrimSpace(req.Role)
	if company == "" || role == "" {
		return interview.Session{}, fmt.Errorf("%w: company and role are required", ErrInvalidSetup)
	}
	cfg := interview.Config{
		Company:        company,
		Role:           role,
		Topics:         req.Topics,
		Difficulty:     req.Difficulty,
		ResumeOverview: strings.TrimSpace(req.ResumeOverview),
	}.WithDefaults()
	if strings.TrimSpace(req.ResumeOverview) == "" {
		cfg.ResumeOverview = ""
	}

	prompt, err := s.interviewer.GeneratePrompt(ctx, cfg)
	if err != nil {
		return interview.Session{}, fmt.Errorf("call: generate interview prompt: %w", err)
	}
	if strings.TrimSpace(prompt) == "" {
		return interview.Session{}, fmt.Errorf("call: generate interview prompt: empty prompt")
	}
	cfg.InterviewPrompt = prompt

	sess := interview.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Config:    cfg,
		Status:    interview.StatusInProgress,
		StartedAt: s.now(),
	}
	s.store.SetActive(sess)
	return sess, nil
}
