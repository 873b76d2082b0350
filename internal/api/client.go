// Package api issues the one-shot requests of the contest UI: the bulk
// balloon load, send/cancel mutations, member lookup and attendance submit.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/contestkit/balloonpad/internal/attend"
	"github.com/contestkit/balloonpad/internal/balloon"
)

// Client talks to the contest server. Timeouts are the transport's business;
// pass an http.Client with a Timeout set if one is wanted.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func New(base string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc, log: log}
}

type bulkResponse struct {
	Balloons []balloon.Record `json:"balloons"`
}

// LoadPending fetches the full current pending set. No retry; the caller
// decides whether to reload.
func (c *Client) LoadPending(ctx context.Context) ([]balloon.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/balloon", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk load: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("bulk load", resp)
	}

	var body bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("bulk load: decode: %w", err)
	}
	return body.Balloons, nil
}

type mutationRequest struct {
	Operation string `json:"operation"`
	ContestID int64  `json:"contest_id"`
	TeamID    int64  `json:"team_id"`
	ProblemID string `json:"problem_id"`
}

// PostAction issues exactly one send/cancel mutation for the given key.
func (c *Client) PostAction(ctx context.Context, op balloon.Operation, key balloon.Key) error {
	payload, err := json.Marshal(mutationRequest{
		Operation: string(op),
		ContestID: key.ContestID,
		TeamID:    key.TeamID,
		ProblemID: key.ProblemID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/balloon", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s balloon: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(string(op)+" balloon", resp)
	}
	return nil
}

// LookupMember verifies a student against the registry and returns the
// member record on a match.
func (c *Client) LookupMember(ctx context.Context, studentID, citizenID string) (attend.Member, error) {
	q := url.Values{}
	q.Set("student_id", studentID)
	q.Set("citizen_id_suffix", citizenID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/member?"+q.Encode(), nil)
	if err != nil {
		return attend.Member{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return attend.Member{}, fmt.Errorf("member lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return attend.Member{}, responseError("member lookup", resp)
	}

	var m attend.Member
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return attend.Member{}, fmt.Errorf("member lookup: decode: %w", err)
	}
	return m, nil
}

type attendResponse struct {
	Redirect string `json:"redirect"`
}

// SubmitAttend posts the attendance form and returns the redirect URL the
// caller should navigate to.
func (c *Client) SubmitAttend(ctx context.Context, sub attend.Submission) (string, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/attend", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("attend submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", responseError("attend submit", resp)
	}

	var body attendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("attend submit: decode: %w", err)
	}
	return body.Redirect, nil
}

type errorBody struct {
	Message string `json:"message"`
}

// responseError prefers the server-provided {message} body and falls back to
// the HTTP status.
func responseError(op string, resp *http.Response) error {
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("%s: %s", op, body.Message)
	}
	return fmt.Errorf("%s: %s", op, resp.Status)
}
