package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/resume"
)

type fakeStore struct {
	mu sync.Mutex

	fetchResults []fetchOutcome
	saveResult   SaveResult
	saveErr      error
	gate         chan struct{}

	fetchCalls  int
	createCalls int
	updateCalls int
	lastCreds   Credentials
	lastSaved   resume.Document
}

type fetchOutcome struct {
	res FetchResult
	err error
}

type statusErr struct {
	code int
	msg  string
}

func (e statusErr) Error() string         { return fmt.Sprintf("status %d: %s", e.code, e.msg) }
func (e statusErr) ServerMessage() string { return e.msg }
func (e statusErr) StatusCode() int       { return e.code }
func (e statusErr) Unwrap() error {
	if e.code == 401 || e.code == 403 {
		return ErrAuthExpired
	}
	return ErrRemoteUnavailable
}

func (f *fakeStore) Fetch(_ context.Context, creds Credentials) (FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.lastCreds = creds
	if len(f.fetchResults) == 0 {
		return FetchResult{}, nil
	}
	out := f.fetchResults[0]
	if len(f.fetchResults) > 1 {
		f.fetchResults = f.fetchResults[1:]
	}
	return out.res, out.err
}

func (f *fakeStore) Create(ctx context.Context, creds Credentials, doc resume.Document) (SaveResult, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	return f.save(ctx, creds, doc)
}

func (f *fakeStore) Update(ctx context.Context, creds Credentials, doc resume.Document) (SaveResult, error) {
	f.mu.Lock()
	f.updateCalls++
	f.mu.Unlock()
	return f.save(ctx, creds, doc)
}

func (f *fakeStore) save(_ context.Context, creds Credentials, doc resume.Document) (SaveResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreds = creds
	f.lastSaved = doc
	return f.saveResult, f.saveErr
}

type recordingRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingRecorder) ObserveSync(op, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op+":"+status)
}

func newSync(store Store, creds CredentialProvider, opts ...Option) *Synchronizer {
	opts = append([]Option{WithLoadRetry(2, time.Millisecond)}, opts...)
	return New(store, creds, opts...)
}

func loggedIn() *MemoryCredentials {
	return NewMemoryCredentials(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})
}

func TestLoadNullResumeThenCreate(t *testing.T) {
	store := &fakeStore{fetchResults: []fetchOutcome{{res: FetchResult{}}}}
	s := newSync(store, loggedIn())

	res := s.Load(context.Background())
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, StateCreating, s.State())
	assert.Equal(t, resume.NewDocument(), s.Document())

	doc := s.Document()
	doc.PersonalInfo.Name = "Ada"
	res = s.Save(context.Background(), doc)
	require.True(t, res.OK())
	assert.Equal(t, MessageSaved, res.Message)
	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 0, store.updateCalls)
	assert.Equal(t, StateEditing, s.State())
	assert.Equal(t, "Ada", s.Document().PersonalInfo.Name)

	s.Save(context.Background(), doc)
	assert.Equal(t, 1, store.updateCalls)
}

func TestLoadExistingResume(t *testing.T) {
	existing := resume.NewDocument()
	existing.PersonalInfo.Name = "Grace"
	existing.Education = nil
	store := &fakeStore{fetchResults: []fetchOutcome{{res: FetchResult{Document: &existing}}}}
	s := newSync(store, loggedIn())

	res := s.Load(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, StateEditing, s.State())
	assert.Equal(t, "Grace", s.Document().PersonalInfo.Name)
	assert.NotNil(t, s.Document().Education)
	assert.Equal(t, "access-1", store.lastCreds.AccessToken)

	s.Save(context.Background(), s.Document())
	assert.Equal(t, 1, store.updateCalls)
	assert.Equal(t, 0, store.createCalls)
}

func TestLoadRetriesThenStartsFresh(t *testing.T) {
	store := &fakeStore{fetchResults: []fetchOutcome{
		{err: fmt.Errorf("dial: %w", ErrRemoteUnavailable)},
	}}
	s := newSync(store, loggedIn())

	res := s.Load(context.Background())
	assert.Equal(t, StatusUnavailable, res.Status)
	assert.Equal(t, StateCreating, s.State())
	assert.Equal(t, 3, store.fetchCalls)
	assert.Equal(t, resume.NewDocument(), s.Document())
	assert.False(t, s.Busy())
}

func TestLoadRecoversAfterTransientFailure(t *testing.T) {
	existing := resume.NewDocument()
	existing.PersonalInfo.Name = "Grace"
	store := &fakeStore{fetchResults: []fetchOutcome{
		{err: statusErr{code: 502, msg: "bad gateway"}},
		{res: FetchResult{Document: &existing}},
	}}
	s := newSync(store, loggedIn())

	res := s.Load(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, 2, store.fetchCalls)
}

func TestReloadFailureKeepsEditing(t *testing.T) {
	existing := resume.NewDocument()
	existing.PersonalInfo.Name = "Grace"
	store := &fakeStore{fetchResults: []fetchOutcome{
		{res: FetchResult{Document: &existing}},
		{err: statusErr{code: 503, msg: "unavailable"}},
	}}
	s := newSync(store, loggedIn())

	require.True(t, s.Load(context.Background()).OK())
	require.Equal(t, StateEditing, s.State())

	edited := s.Document()
	edited.PersonalInfo.Name = "Grace Hopper"
	s.SetDocument(edited)

	res := s.Load(context.Background())
	assert.Equal(t, StatusUnavailable, res.Status)
	assert.Equal(t, MessageReloadFailed, res.Message)
	assert.Equal(t, StateEditing, s.State())
	assert.Equal(t, "Grace Hopper", s.Document().PersonalInfo.Name)

	require.True(t, s.Save(context.Background(), s.Document()).OK())
	assert.Equal(t, 0, store.createCalls)
	assert.Equal(t, 1, store.updateCalls)
}

func TestReloadNotFoundKeepsEditing(t *testing.T) {
	existing := resume.NewDocument()
	store := &fakeStore{fetchResults: []fetchOutcome{
		{res: FetchResult{Document: &existing}},
		{res: FetchResult{}},
	}}
	s := newSync(store, loggedIn())

	require.True(t, s.Load(context.Background()).OK())
	res := s.Load(context.Background())
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, MessageReloadMissing, res.Message)
	assert.Equal(t, StateEditing, s.State())
}

func TestLoadDoesNotRetryClientErrors(t *testing.T) {
	store := &fakeStore{fetchResults: []fetchOutcome{{err: statusErr{code: 400, msg: "bad"}}}}
	s := newSync(store, loggedIn())

	res := s.Load(context.Background())
	assert.Equal(t, StatusUnavailable, res.Status)
	assert.Equal(t, 1, store.fetchCalls)
}

func TestLoadAuthExpiredClearsCredentials(t *testing.T) {
	creds := loggedIn()
	store := &fakeStore{fetchResults: []fetchOutcome{{err: statusErr{code: 401, msg: "unauthorized"}}}}
	s := newSync(store, creds)

	res := s.Load(context.Background())
	assert.Equal(t, StatusAuthExpired, res.Status)
	assert.Equal(t, 1, store.fetchCalls)
	_, ok := creds.Credentials()
	assert.False(t, ok)
}

func TestLoadWithoutCredentials(t *testing.T) {
	store := &fakeStore{}
	s := newSync(store, NewMemoryCredentials(Credentials{}))

	res := s.Load(context.Background())
	assert.Equal(t, StatusAuthExpired, res.Status)
	assert.Equal(t, 0, store.fetchCalls)
	assert.Equal(t, StateCreating, s.State())
}

func TestSaveHandsRefreshedCredentialToProvider(t *testing.T) {
	creds := loggedIn()
	store := &fakeStore{saveResult: SaveResult{Message: "Resume updated", AccessToken: "access-2"}}
	s := newSync(store, creds)

	res := s.Save(context.Background(), resume.NewDocument())
	require.True(t, res.OK())
	assert.Equal(t, "Resume updated", res.Message)
	assert.Equal(t, StateEditing, s.State())

	got, ok := creds.Credentials()
	require.True(t, ok)
	assert.Equal(t, "access-2", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
}

func TestSaveFailureKeepsDocument(t *testing.T) {
	store := &fakeStore{saveErr: statusErr{code: 500, msg: "database is down"}}
	s := newSync(store, loggedIn())

	doc := resume.NewDocument()
	doc.PersonalInfo.Name = "unsaved"
	res := s.Save(context.Background(), doc)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "database is down", res.Message)
	assert.Equal(t, StateCreating, s.State())
	assert.Empty(t, s.Document().PersonalInfo.Name)
	assert.Equal(t, 1, store.createCalls)

	store.saveErr = fmt.Errorf("dial: %w", ErrRemoteUnavailable)
	res = s.Save(context.Background(), doc)
	assert.Equal(t, MessageSaveFailed, res.Message)
	assert.Equal(t, 2, store.createCalls)
}

func TestSaveAuthExpired(t *testing.T) {
	creds := loggedIn()
	store := &fakeStore{saveErr: statusErr{code: 403, msg: "forbidden"}}
	s := newSync(store, creds)

	res := s.Save(context.Background(), resume.NewDocument())
	assert.Equal(t, StatusAuthExpired, res.Status)
	_, ok := creds.Credentials()
	assert.False(t, ok)
}

func TestSaveStripsVersions(t *testing.T) {
	store := &fakeStore{}
	s := newSync(store, loggedIn())

	doc := resume.NewDocument()
	doc.Versions = []resume.Version{{ID: "1", Name: "Version 1"}}
	s.Save(context.Background(), doc)

	assert.Empty(t, store.lastSaved.Versions)
	assert.Len(t, doc.Versions, 1)
}

func TestSecondSaveWhileInFlightIsRejected(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	rec := &recordingRecorder{}
	s := newSync(store, loggedIn(), WithRecorder(rec))

	done := make(chan Result, 1)
	go func() { done <- s.Save(context.Background(), resume.NewDocument()) }()

	require.Eventually(t, s.Busy, time.Second, time.Millisecond)

	res := s.Save(context.Background(), resume.NewDocument())
	assert.Equal(t, StatusBusy, res.Status)
	assert.Equal(t, StatusBusy, s.Load(context.Background()).Status)

	close(store.gate)
	first := <-done
	assert.True(t, first.OK())
	assert.Equal(t, 1, store.createCalls)
	assert.False(t, s.Busy())
	assert.Equal(t, []string{"save:ok"}, rec.ops)
}

func TestCloseDiscardsLateResponse(t *testing.T) {
	creds := loggedIn()
	store := &fakeStore{gate: make(chan struct{}), saveResult: SaveResult{AccessToken: "access-late"}}
	s := newSync(store, creds)

	done := make(chan Result, 1)
	doc := resume.NewDocument()
	doc.PersonalInfo.Name = "late"
	go func() { done <- s.Save(context.Background(), doc) }()

	require.Eventually(t, s.Busy, time.Second, time.Millisecond)
	s.Close()
	close(store.gate)

	res := <-done
	assert.Equal(t, StatusClosed, res.Status)
	assert.Equal(t, StateCreating, s.State())
	assert.Empty(t, s.Document().PersonalInfo.Name)
	got, _ := creds.Credentials()
	assert.Equal(t, "access-1", got.AccessToken)

	assert.Equal(t, StatusClosed, s.Save(context.Background(), doc).Status)
}

func TestFileCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	fc := NewFileCredentials(path)

	_, ok := fc.Credentials()
	assert.False(t, ok)
	assert.Error(t, fc.Refresh("x"))

	require.NoError(t, fc.Set(Credentials{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, fc.Refresh("b"))
	got, ok := fc.Credentials()
	require.True(t, ok)
	assert.Equal(t, Credentials{AccessToken: "b", RefreshToken: "r"}, got)

	require.NoError(t, fc.Clear())
	require.NoError(t, fc.Clear())
	_, ok = fc.Credentials()
	assert.False(t, ok)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(fmt.Errorf("x: %w", ErrRemoteUnavailable)))
	assert.True(t, retryable(statusErr{code: 503}))
	assert.False(t, retryable(statusErr{code: 404}))
	assert.False(t, retryable(statusErr{code: 401}))
	assert.False(t, retryable(errors.New("other")))
}
