package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/SmitUplenchwar2687/editplay/internal/recorder"
)

type sessionKey struct {
	userID    int64
	problemID int64
}

type session struct {
	username string
	exercise string
	rec      *recorder.Recorder
}

// sessions holds one recorder per (user, problem) pair.
type sessions struct {
	mu   sync.Mutex
	byID map[sessionKey]*session
}

func newSessions() *sessions {
	return &sessions{byID: make(map[sessionKey]*session)}
}

// get returns the session for key, creating it if needed. created is true
// for a new session.
func (ss *sessions) get(key sessionKey, username, exercise string) (s *session, created bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if s, ok := ss.byID[key]; ok {
		return s, false
	}
	s = &session{username: username, exercise: exercise, rec: recorder.New(exercise, nil)}
	ss.byID[key] = s
	return s, true
}

func (ss *sessions) list() []*session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	out := make([]*session, 0, len(ss.byID))
	for _, s := range ss.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].exercise != out[j].exercise {
			return out[i].exercise < out[j].exercise
		}
		return out[i].username < out[j].username
	})
	return out
}

// export writes every non-empty session to dir as <exercise>-<username>.json
// and returns the written paths.
func (ss *sessions) export(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating record dir: %w", err)
	}

	var paths []string
	for _, s := range ss.list() {
		if s.rec.Len() == 0 {
			continue
		}
		path := filepath.Join(dir, s.exercise+"-"+s.username+".json")
		if err := s.rec.ExportFile(path); err != nil {
			return paths, fmt.Errorf("exporting %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
