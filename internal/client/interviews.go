package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/models"
)

// StartSession submits the setup form and returns the new active session.
func (c *Client) StartSession(ctx context.Context, req call.SetupRequest) (interview.Session, error) {
	var sess interview.Session
	err := c.do(ctx, http.MethodPost, "/interviews/sessions", req, &sess)
	return sess, err
}

// ActiveSession returns the user's in-progress session.
func (c *Client) ActiveSession(ctx context.Context) (interview.Session, error) {
	var sess interview.Session
	err := c.do(ctx, http.MethodGet, "/interviews/sessions/active", nil, &sess)
	return sess, err
}

// History lists finished calls, newest first.
func (c *Client) History(ctx context.Context) ([]interview.HistoryRecord, error) {
	var list []interview.HistoryRecord
	err := c.do(ctx, http.MethodGet, "/interviews/history", nil, &list)
	return list, err
}

// HistoryRecord returns one finished call.
func (c *Client) HistoryRecord(ctx context.Context, id string) (interview.HistoryRecord, error) {
	var rec interview.HistoryRecord
	err := c.do(ctx, http.MethodGet, "/interviews/history/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

// Analyze retries analysis of a finished call.
func (c *Client) Analyze(ctx context.Context, id string) (interview.HistoryRecord, error) {
	var rec interview.HistoryRecord
	err := c.do(ctx, http.MethodPost, "/interviews/history/"+url.PathEscape(id)+"/analyze", nil, &rec)
	return rec, err
}

// Interviews lists the user's scored interviews.
func (c *Client) Interviews(ctx context.Context) ([]models.Interview, error) {
	var list []models.Interview
	err := c.do(ctx, http.MethodGet, "/interviews", nil, &list)
	return list, err
}

// Assessments lists the user's quiz results.
func (c *Client) Assessments(ctx context.Context) ([]models.Assessment, error) {
	var list []models.Assessment
	err := c.do(ctx, http.MethodGet, "/assessments", nil, &list)
	return list, err
}
