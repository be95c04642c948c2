package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"mindtv/internal/classify"
	"mindtv/internal/export"
	"mindtv/internal/models"
	"mindtv/internal/service"

	"github.com/gin-gonic/gin"
)

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockAcquisition struct {
	session   models.Session
	startErr  error
	cancelErr error
	status    service.Status

	lastStart   service.StartParams
	startCalls  int
	cancelCalls int
}

func (m *mockAcquisition) Start(ctx context.Context, p service.StartParams) (models.Session, error) {
	m.startCalls++
	m.lastStart = p
	return m.session, m.startErr
}
func (m *mockAcquisition) Cancel(ctx context.Context) error {
	m.cancelCalls++
	return m.cancelErr
}
func (m *mockAcquisition) Status(ctx context.Context) service.Status {
	return m.status
}

type mockSessions struct {
	sessions  []models.Session
	samples   []models.Sample
	err       error
	lastLimit int
}

func (m *mockSessions) List(ctx context.Context, limit int) ([]models.Session, error) {
	m.lastLimit = limit
	return m.sessions, m.err
}
func (m *mockSessions) Get(ctx context.Context, id string) (models.Session, error) {
	if m.err != nil {
		return models.Session{}, m.err
	}
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Session{}, service.ErrSessionNotFound
}
func (m *mockSessions) Samples(ctx context.Context, id string) ([]models.Sample, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	return m.samples, nil
}
func (m *mockSessions) Export(ctx context.Context, id string, layout export.Layout, w io.Writer) error {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	return export.WriteCSV(w, m.samples, layout, sess.Content)
}

type mockClassification struct {
	res    classify.Result
	err    error
	ready  bool
	lastID string
}

func (m *mockClassification) Classify(ctx context.Context, id string) (classify.Result, error) {
	m.lastID = id
	return m.res, m.err
}
func (m *mockClassification) Ready() bool { return m.ready }

type mockEventLog struct {
	resp []models.RunEvent
	err  error
	last service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RunEvent, error) {
	m.last = f
	return m.resp, m.err
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// authedRequest builds a request carrying a bearer token.
func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
