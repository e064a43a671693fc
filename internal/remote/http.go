package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPClient talks to the webapp's JSON API. Call Login before anything else.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	clock   clock.Clock
	logger  *slog.Logger

	token    string
	identity *Identity
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithClock sets the clock used to pace submission polling.
func WithClock(clk clock.Clock) Option {
	return func(c *HTTPClient) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient creates a client for the webapp at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		clock:   clock.NewRealClock(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Login authenticates and stores the session token.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (Identity, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return Identity{}, fmt.Errorf("login as %q: %w", username, err)
	}
	c.token = resp.Token
	c.identity = &resp.User
	c.logger.Debug("logged in", "user", resp.User.Username, "user_id", resp.User.ID)
	return resp.User, nil
}

func (c *HTTPClient) Identity(_ context.Context) (Identity, error) {
	if c.identity == nil {
		return Identity{}, fmt.Errorf("not logged in: %w", ErrAuthentication)
	}
	return *c.identity, nil
}

func (c *HTTPClient) RegisteredCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, &courses); err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return courses, nil
}

func (c *HTTPClient) ProblemsForCourse(ctx context.Context, course Course) ([]Problem, error) {
	var problems []Problem
	path := "/api/courses/" + strconv.FormatInt(course.ID, 10) + "/problems"
	if err := c.do(ctx, http.MethodGet, path, nil, &problems); err != nil {
		return nil, fmt.Errorf("listing problems for course %q: %w", course.Name, err)
	}
	return problems, nil
}

func (c *HTTPClient) SetActiveProblem(ctx context.Context, p Problem) error {
	if err := c.do(ctx, http.MethodPut, "/api/problem", SetProblemRequest{ProblemID: p.ID}, nil); err != nil {
		return fmt.Errorf("setting problem %q: %w", p.Name, err)
	}
	return nil
}

func (c *HTTPClient) SendChanges(ctx context.Context, batch []editseq.Change) error {
	if err := c.do(ctx, http.MethodPost, "/api/changes", ChangeBatch{Changes: batch}, nil); err != nil {
		return fmt.Errorf("sending %d changes: %w", len(batch), err)
	}
	return nil
}

// SubmitAndPoll submits text and polls until the grading result is ready.
// There is no client-side limit on how long grading may take; cancel ctx
// to give up.
func (c *HTTPClient) SubmitAndPoll(ctx context.Context, problemID int64, text string, pollInterval time.Duration) (*SubmissionResult, error) {
	var sub SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/submissions", SubmitRequest{ProblemID: problemID, Text: text}, &sub)
	if err != nil {
		return nil, submissionErr(err)
	}

	path := "/api/submissions/" + url.PathEscape(sub.SubmissionID)
	for attempt := 1; ; attempt++ {
		if err := clock.Sleep(ctx, c.clock, pollInterval); err != nil {
			return nil, err
		}

		status, body, err := c.send(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		switch status {
		case http.StatusOK:
			var result SubmissionResult
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("decoding submission result: %w", err)
			}
			c.logger.Debug("submission graded", "submission_id", sub.SubmissionID, "polls", attempt)
			return &result, nil
		case http.StatusAccepted:
			continue
		default:
			return nil, submissionErr(responseError(status, body))
		}
	}
}

// submissionErr turns generic API failures into SubmissionErrors and
// leaves the other error kinds alone.
func submissionErr(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &SubmissionError{Status: apiErr.Status, Reason: apiErr.Message}
	}
	return err
}

// do sends a JSON request and decodes a 2xx response into out (if non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	status, body, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return responseError(status, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, body, nil
}

func responseError(status int, body []byte) error {
	var e ErrorResponse
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthentication, msg)
	case http.StatusGone:
		return fmt.Errorf("%w: %s", ErrQuizEnded, msg)
	default:
		return &APIError{Status: status, Message: msg}
	}
}
