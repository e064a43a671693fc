package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler) (*HTTPClient, *clock.VirtualClock) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	vc := clock.NewVirtualClock(epoch)
	vc.SetAutoAdvance(true)
	c, err := NewHTTPClient(srv.URL+"/", WithClock(vc))
	require.NoError(t, err)
	return c, vc
}

func loginHandler(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "muffin" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: "tok", User: Identity{ID: 2, Username: req.Username}})
	})
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com")
	assert.Error(t, err)
}

func TestHTTPClient_LoginAndIdentity(t *testing.T) {
	mux := http.NewServeMux()
	loginHandler(mux)
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Identity(ctx)
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = c.Login(ctx, "user2", "wrong")
	assert.ErrorIs(t, err, ErrAuthentication)

	id, err := c.Login(ctx, "user2", "muffin")
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: 2, Username: "user2"}, id)

	got, err := c.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestHTTPClient_CatalogAndChanges(t *testing.T) {
	var sent ChangeBatch
	var active SetProblemRequest

	mux := http.NewServeMux()
	loginHandler(mux)
	mux.HandleFunc("GET /api/courses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []Course{{ID: 1, Name: "CS101"}})
	})
	mux.HandleFunc("GET /api/courses/1/problems", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []Problem{{ID: 9, CourseID: 1, Name: "sumOfThree"}})
	})
	mux.HandleFunc("PUT /api/problem", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&active)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/changes", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&sent)
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Login(ctx, "user2", "muffin")
	require.NoError(t, err)

	courses, err := c.RegisteredCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)

	problems, err := c.ProblemsForCourse(ctx, courses[0])
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "sumOfThree", problems[0].Name)

	require.NoError(t, c.SetActiveProblem(ctx, problems[0]))
	assert.Equal(t, int64(9), active.ProblemID)

	batch := []editseq.Change{{Kind: editseq.KindDelta, Timestamp: 5}, {Kind: editseq.KindDelta, Timestamp: 6}}
	require.NoError(t, c.SendChanges(ctx, batch))
	assert.Len(t, sent.Changes, 2)
}

func TestHTTPClient_SubmitAndPoll(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/submissions", func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, int64(9), req.ProblemID)
		assert.Equal(t, "int main() {}", req.Text)
		writeJSON(w, http.StatusAccepted, SubmitResponse{SubmissionID: "sub-1"})
	})
	mux.HandleFunc("GET /api/submissions/sub-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writeJSON(w, http.StatusAccepted, SubmissionStatus{SubmissionID: "sub-1", Status: "pending"})
			return
		}
		writeJSON(w, http.StatusOK, SubmissionResult{
			SubmissionID: "sub-1", Outcome: CompilationSuccess, TestsAttempted: 4, TestsPassed: 3,
		})
	})
	c, vc := newTestClient(t, mux)

	result, err := c.SubmitAndPoll(context.Background(), 9, "int main() {}", time.Second)
	require.NoError(t, err)
	assert.True(t, result.Compiled())
	assert.Equal(t, 3, result.TestsPassed)
	assert.Equal(t, int32(3), polls.Load())
	assert.Equal(t, 3*time.Second, vc.Since(epoch), "one poll interval per poll")
}

func TestHTTPClient_SubmitErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"quiz ended", http.StatusGone, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrQuizEnded)
			var subErr *SubmissionError
			assert.False(t, errors.As(err, &subErr), "quiz ended must stay distinct")
		}},
		{"rejected", http.StatusUnprocessableEntity, func(t *testing.T, err error) {
			var subErr *SubmissionError
			require.ErrorAs(t, err, &subErr)
			assert.Equal(t, http.StatusUnprocessableEntity, subErr.Status)
			assert.Equal(t, "no active problem", subErr.Reason)
		}},
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrAuthentication)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/submissions", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, ErrorResponse{Error: "no active problem"})
			})
			c, _ := newTestClient(t, mux)

			_, err := c.SubmitAndPoll(context.Background(), 1, "x", time.Second)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestHTTPClient_PollFailureIsSubmissionError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/submissions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, SubmitResponse{SubmissionID: "s"})
	})
	mux.HandleFunc("GET /api/submissions/s", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "grader crashed"})
	})
	c, _ := newTestClient(t, mux)

	_, err := c.SubmitAndPoll(context.Background(), 1, "x", time.Second)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "grader crashed", subErr.Reason)
}

func TestHTTPClient_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/changes", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c, _ := newTestClient(t, mux)

	err := c.SendChanges(context.Background(), nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
}
