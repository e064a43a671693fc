package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
	"github.com/SmitUplenchwar2687/editplay/internal/remote"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type submission struct {
	problemID int64
	text      string
	poll      time.Duration
}

// fakeClient records every call. sendDelay advances the virtual clock on
// each send to simulate a slow network.
type fakeClient struct {
	identity remote.Identity
	courses  []remote.Course
	problems map[int64][]remote.Problem

	active      *remote.Problem
	sent        [][]editseq.Change
	sendTimes   []time.Time
	submissions []submission

	clock     *clock.VirtualClock
	sendDelay time.Duration
	identErr  error
	sendErr   error
	submitErr error
	failAfter int // fail sends after this many succeed, when sendErr is set
}

func newFakeClient(vc *clock.VirtualClock) *fakeClient {
	return &fakeClient{
		identity: remote.Identity{ID: 42, Username: "user2"},
		courses:  []remote.Course{{ID: 1, Name: "CS101"}, {ID: 2, Name: "CS201"}},
		problems: map[int64][]remote.Problem{
			1: {{ID: 10, CourseID: 1, Name: "helloWorld"}},
			2: {{ID: 20, CourseID: 2, Name: "sumOfThree"}, {ID: 21, CourseID: 2, Name: "sumOfThree"}},
		},
		clock: vc,
	}
}

func (f *fakeClient) Identity(context.Context) (remote.Identity, error) {
	if f.identErr != nil {
		return remote.Identity{}, f.identErr
	}
	return f.identity, nil
}

func (f *fakeClient) RegisteredCourses(context.Context) ([]remote.Course, error) {
	return f.courses, nil
}

func (f *fakeClient) ProblemsForCourse(_ context.Context, c remote.Course) ([]remote.Problem, error) {
	return f.problems[c.ID], nil
}

func (f *fakeClient) SetActiveProblem(_ context.Context, p remote.Problem) error {
	f.active = &p
	return nil
}

func (f *fakeClient) SendChanges(_ context.Context, batch []editseq.Change) error {
	if f.sendErr != nil && len(f.sent) >= f.failAfter {
		return f.sendErr
	}
	f.sent = append(f.sent, batch)
	f.sendTimes = append(f.sendTimes, f.clock.Now())
	if f.sendDelay > 0 {
		f.clock.Advance(f.sendDelay)
	}
	return nil
}

func (f *fakeClient) SubmitAndPoll(_ context.Context, problemID int64, text string, poll time.Duration) (*remote.SubmissionResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submissions = append(f.submissions, submission{problemID, text, poll})
	return &remote.SubmissionResult{Outcome: remote.CompilationSuccess, TestsAttempted: 2, TestsPassed: 2}, nil
}

func delta(ts int64) editseq.Change {
	return editseq.Change{Kind: editseq.KindDelta, Timestamp: ts, EventID: ts + 1000, UserID: 7}
}

func fullText(ts int64, text string) editseq.Change {
	return editseq.Change{Kind: editseq.KindFullText, Timestamp: ts, Text: text, EventID: ts + 1000, UserID: 7}
}

func newTestScheduler(t *testing.T, seq *editseq.EditSequence, opts ...Option) (*Scheduler, *fakeClient, *clock.VirtualClock) {
	t.Helper()
	vc := clock.NewVirtualClock(epoch)
	vc.SetAutoAdvance(true)
	fc := newFakeClient(vc)
	s := New(fc, seq, append([]Option{WithClock(vc)}, opts...)...)
	if err := s.Setup(context.Background()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return s, fc, vc
}

func timestamps(batch []editseq.Change) []int64 {
	out := make([]int64, len(batch))
	for i, c := range batch {
		out[i] = c.Timestamp
	}
	return out
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSetup_RewritesIdentityAndBindsProblem(t *testing.T) {
	orig := editseq.New("sumOfThree", []editseq.Change{delta(0), delta(10), fullText(20, "x")})
	s, fc, _ := newTestScheduler(t, orig)

	if fc.active == nil || fc.active.ID != 20 {
		t.Fatalf("active problem = %+v, want the first sumOfThree (id 20)", fc.active)
	}
	if s.Problem().ID != 20 {
		t.Errorf("Problem().ID = %d, want 20", s.Problem().ID)
	}

	if _, err := s.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, batch := range fc.sent {
		for _, c := range batch {
			if c.UserID != 42 || c.EventID != 0 || c.ProblemID != 20 {
				t.Errorf("sent change %+v, want user 42, event 0, problem 20", c)
			}
		}
	}

	for _, c := range orig.Changes() {
		if c.UserID != 7 || c.EventID == 0 {
			t.Errorf("original recording was modified: %+v", c)
		}
	}
}

func TestSetup_ExerciseNotFound(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fc := newFakeClient(vc)
	s := New(fc, editseq.New("noSuchExercise", []editseq.Change{delta(0)}), WithClock(vc))

	err := s.Setup(context.Background())
	var notFound *ExerciseNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Setup() error = %v, want ExerciseNotFoundError", err)
	}
	if notFound.Exercise != "noSuchExercise" {
		t.Errorf("Exercise = %q, want %q", notFound.Exercise, "noSuchExercise")
	}
	if fc.active != nil {
		t.Error("no problem should have been bound")
	}
	if _, err := s.Play(context.Background()); !errors.Is(err, ErrNotSetUp) {
		t.Errorf("Play() error = %v, want ErrNotSetUp", err)
	}
	if len(fc.sent) != 0 {
		t.Errorf("sent %d batches, want 0", len(fc.sent))
	}
}

func TestSetup_Preconditions(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)

	s := New(newFakeClient(vc), editseq.New("sumOfThree", nil), WithClock(vc))
	if err := s.Setup(context.Background()); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("Setup(empty) error = %v, want ErrEmptySequence", err)
	}

	s = New(newFakeClient(vc), editseq.New("sumOfThree", []editseq.Change{delta(0)}), WithSendBatchInterval(0))
	if err := s.Setup(context.Background()); err == nil {
		t.Error("Setup() with zero interval should fail")
	}

	for _, poll := range []time.Duration{0, -time.Second} {
		fc := newFakeClient(vc)
		s = New(fc, editseq.New("sumOfThree", []editseq.Change{delta(0)}), WithPollInterval(poll))
		if err := s.Setup(context.Background()); err == nil {
			t.Errorf("Setup() with poll interval %s should fail", poll)
		}
		if fc.active != nil {
			t.Errorf("Setup() with poll interval %s should fail before selecting a problem", poll)
		}
	}

	fc := newFakeClient(vc)
	fc.identErr = remote.ErrAuthentication
	s = New(fc, editseq.New("sumOfThree", []editseq.Change{delta(0)}))
	if err := s.Setup(context.Background()); !errors.Is(err, remote.ErrAuthentication) {
		t.Errorf("Setup() error = %v, want ErrAuthentication", err)
	}
}

func TestSetup_Twice(t *testing.T) {
	s, _, _ := newTestScheduler(t, editseq.New("sumOfThree", []editseq.Change{delta(0)}))

	if err := s.Setup(context.Background()); !errors.Is(err, ErrAlreadySetUp) {
		t.Errorf("second Setup() error = %v, want ErrAlreadySetUp", err)
	}
	if err := s.SetSendBatchInterval(time.Second); !errors.Is(err, ErrAlreadySetUp) {
		t.Errorf("SetSendBatchInterval() after Setup error = %v, want ErrAlreadySetUp", err)
	}
}

func TestPlay_NotSetUp(t *testing.T) {
	s := New(newFakeClient(clock.NewVirtualClock(epoch)), editseq.New("sumOfThree", []editseq.Change{delta(0)}))
	if _, err := s.Play(context.Background()); !errors.Is(err, ErrNotSetUp) {
		t.Errorf("Play() error = %v, want ErrNotSetUp", err)
	}
}

func TestPlay_MixedScenario(t *testing.T) {
	seq := editseq.New("sumOfThree", []editseq.Change{
		delta(0), delta(500), fullText(900, "int sum(int a, int b, int c) { return a+b+c; }"), delta(2500),
	})

	var onSend [][]editseq.Change
	var results []*remote.SubmissionResult
	s, fc, _ := newTestScheduler(t, seq,
		WithOnSend(func(b []editseq.Change) { onSend = append(onSend, b) }),
		WithOnSubmissionResult(func(r *remote.SubmissionResult) { results = append(results, r) }),
	)

	summary, err := s.Play(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := [][]int64{{0, 500}, {900}, {2500}}
	if len(fc.sent) != len(want) {
		t.Fatalf("sent %d batches, want %d", len(fc.sent), len(want))
	}
	for i, w := range want {
		if got := timestamps(fc.sent[i]); !equalInts(got, w) {
			t.Errorf("batch %d = %v, want %v", i, got, w)
		}
	}
	if len(onSend) != 3 {
		t.Errorf("onSend called %d times, want 3", len(onSend))
	}

	if len(fc.submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(fc.submissions))
	}
	sub := fc.submissions[0]
	if sub.problemID != 20 || sub.text != "int sum(int a, int b, int c) { return a+b+c; }" || sub.poll != DefaultPollInterval {
		t.Errorf("submission = %+v", sub)
	}
	if len(results) != 1 {
		t.Errorf("onSubmissionResult called %d times, want 1", len(results))
	}

	if summary.Batches != 3 || summary.ChangesSent != 4 || summary.Submissions != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Span != 2500*time.Millisecond {
		t.Errorf("Span = %v, want 2.5s", summary.Span)
	}
}

func TestPlay_SingleFullText(t *testing.T) {
	s, fc, _ := newTestScheduler(t, editseq.New("sumOfThree", []editseq.Change{fullText(0, "done")}))

	summary, err := s.Play(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.sent) != 1 || len(fc.sent[0]) != 1 || !fc.sent[0][0].IsFullText() {
		t.Fatalf("sent = %v, want one lone full-text batch", fc.sent)
	}
	if len(fc.submissions) != 1 || fc.submissions[0].text != "done" {
		t.Errorf("submissions = %+v, want one with text %q", fc.submissions, "done")
	}
	if summary.Windows != 1 {
		t.Errorf("Windows = %d, want 1", summary.Windows)
	}
}

func TestPlay_SubmitOnFullTextDisabled(t *testing.T) {
	seq := editseq.New("sumOfThree", []editseq.Change{delta(0), fullText(100, "a"), fullText(5000, "b")})
	s, fc, _ := newTestScheduler(t, seq, WithSubmitOnFullText(false))

	if _, err := s.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fc.submissions) != 0 {
		t.Errorf("submissions = %d, want 0", len(fc.submissions))
	}
	for i, batch := range fc.sent {
		for _, c := range batch {
			if c.IsFullText() && len(batch) != 1 {
				t.Errorf("batch %d mixes a full-text change with %d others", i, len(batch)-1)
			}
		}
	}
}

func TestPlay_AllDeltasTileWindows(t *testing.T) {
	// Three windows of 2000ms starting at 1000: [1000,3000) [3000,5000) [5000,7000).
	seq := editseq.New("sumOfThree", []editseq.Change{
		delta(1000), delta(1999), delta(2999), delta(3000), delta(4000), delta(6999),
	})
	s, fc, _ := newTestScheduler(t, seq)

	summary, err := s.Play(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := [][]int64{{1000, 1999, 2999}, {3000, 4000}, {6999}}
	if len(fc.sent) != len(want) {
		t.Fatalf("sent %d batches, want %d", len(fc.sent), len(want))
	}
	for i, w := range want {
		if got := timestamps(fc.sent[i]); !equalInts(got, w) {
			t.Errorf("batch %d = %v, want %v", i, got, w)
		}
	}
	if summary.Windows != 3 {
		t.Errorf("Windows = %d, want 3", summary.Windows)
	}
}

func TestPlay_EmptyWindowsStillPace(t *testing.T) {
	// A 9 second gap means four empty windows between the two changes.
	seq := editseq.New("sumOfThree", []editseq.Change{delta(0), delta(9000)})
	s, fc, vc := newTestScheduler(t, seq)

	summary, err := s.Play(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Windows != 5 || summary.Batches != 2 {
		t.Errorf("Windows = %d, Batches = %d; want 5 and 2", summary.Windows, summary.Batches)
	}
	if got := fc.sendTimes[1].Sub(fc.sendTimes[0]); got != 8*time.Second {
		t.Errorf("gap between sends = %v, want 8s", got)
	}
	if got := vc.Since(epoch); got != 10*time.Second {
		t.Errorf("playback took %v, want 10s", got)
	}
}

func TestPlay_PacesOnInterval(t *testing.T) {
	seq := editseq.New("sumOfThree", []editseq.Change{delta(0), delta(2000), delta(4000)})
	s, fc, _ := newTestScheduler(t, seq, WithSendBatchInterval(2*time.Second))

	if _, err := s.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i, at := range fc.sendTimes {
		want := epoch.Add(time.Duration(i+1) * 2 * time.Second)
		if !at.Equal(want) {
			t.Errorf("send %d at %v, want %v", i, at, want)
		}
	}
}

func TestPlay_CatchUpAfterSlowSend(t *testing.T) {
	seq := editseq.New("sumOfThree", []editseq.Change{delta(0), delta(2000), delta(4000)})
	s, fc, vc := newTestScheduler(t, seq)
	fc.sendDelay = 5 * time.Second

	var slept []time.Duration
	vc.OnAfter(func(d time.Duration) { slept = append(slept, d) })

	if _, err := s.Play(context.Background()); err != nil {
		t.Fatal(err)
	}

	// First send at 2s finishes at 7s, past the 4s deadline: the next send
	// goes 1ms later instead of bursting through the missed deadlines.
	want := []time.Time{
		epoch.Add(2 * time.Second),
		epoch.Add(7*time.Second + time.Millisecond),
		epoch.Add(12*time.Second + 2*time.Millisecond),
	}
	for i, w := range want {
		if !fc.sendTimes[i].Equal(w) {
			t.Errorf("send %d at %v, want %v", i, fc.sendTimes[i].Sub(epoch), w.Sub(epoch))
		}
	}
	for i, d := range slept[1:] {
		if d != time.Millisecond {
			t.Errorf("sleep %d = %v, want 1ms", i+1, d)
		}
	}
}

func TestPlay_Repeatable(t *testing.T) {
	seq := editseq.New("sumOfThree", []editseq.Change{delta(0), fullText(10, "x")})
	s, fc, _ := newTestScheduler(t, seq)

	for i := 0; i < 2; i++ {
		if _, err := s.Play(context.Background()); err != nil {
			t.Fatalf("Play() #%d error = %v", i+1, err)
		}
	}
	if len(fc.sent) != 4 || len(fc.submissions) != 2 {
		t.Errorf("sent %d batches and %d submissions, want 4 and 2", len(fc.sent), len(fc.submissions))
	}
}

func TestPlay_SendErrorAborts(t *testing.T) {
	seq := editseq.New("sumOfThree", []editseq.Change{delta(0), delta(3000), delta(6000)})
	s, fc, _ := newTestScheduler(t, seq)
	boom := errors.New("connection reset")
	fc.sendErr = boom
	fc.failAfter = 1

	summary, err := s.Play(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Play() error = %v, want %v", err, boom)
	}
	if len(fc.sent) != 1 || summary.Batches != 1 {
		t.Errorf("sent %d batches (summary %d), want 1", len(fc.sent), summary.Batches)
	}
}

func TestPlay_SubmissionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"quiz ended", remote.ErrQuizEnded},
		{"submission", &remote.SubmissionError{Status: 500, Reason: "grader crashed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := editseq.New("sumOfThree", []editseq.Change{fullText(0, "a"), delta(5000)})
			s, fc, _ := newTestScheduler(t, seq)
			fc.submitErr = tt.err

			_, err := s.Play(context.Background())
			if !errors.Is(err, tt.err) {
				t.Fatalf("Play() error = %v, want %v", err, tt.err)
			}
			if len(fc.sent) != 1 {
				t.Errorf("sent %d batches, want 1 (playback must stop)", len(fc.sent))
			}
		})
	}
}

func TestPlay_Interrupted(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fc := newFakeClient(vc)
	s := New(fc, editseq.New("sumOfThree", []editseq.Change{delta(0)}), WithClock(vc))
	if err := s.Setup(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Play(ctx)
	if !errors.Is(err, ErrInterrupted) || !errors.Is(err, context.Canceled) {
		t.Errorf("Play() error = %v, want ErrInterrupted wrapping context.Canceled", err)
	}
	if len(fc.sent) != 0 {
		t.Errorf("sent %d batches, want 0", len(fc.sent))
	}
}

func TestSetters(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	vc.SetAutoAdvance(true)
	fc := newFakeClient(vc)
	s := New(fc, editseq.New("sumOfThree", []editseq.Change{fullText(0, "a")}), WithClock(vc))

	var sends, results int
	for _, err := range []error{
		s.SetSendBatchInterval(500 * time.Millisecond),
		s.SetPollInterval(250 * time.Millisecond),
		s.SetSubmitOnFullText(true),
		s.SetOnSend(func([]editseq.Change) { sends++ }),
		s.SetOnSubmissionResult(func(*remote.SubmissionResult) { results++ }),
	} {
		if err != nil {
			t.Fatalf("setter error = %v", err)
		}
	}
	if err := s.Setup(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(context.Background()); err != nil {
		t.Fatal(err)
	}

	if sends != 1 || results != 1 {
		t.Errorf("callbacks ran %d/%d times, want 1/1", sends, results)
	}
	if fc.submissions[0].poll != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want 250ms", fc.submissions[0].poll)
	}
	if !fc.sendTimes[0].Equal(epoch.Add(500 * time.Millisecond)) {
		t.Errorf("first send at %v, want 500ms", fc.sendTimes[0].Sub(epoch))
	}
}
