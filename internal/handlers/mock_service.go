package handlers

import (
	"context"
	"net/http"
	"time"

	"meter_reading/internal/models"
	"meter_reading/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

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

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockDevices struct {
	device  *models.Device
	created bool
	err     error
	last    service.RegisterDeviceParams
}

func (m *mockDevices) Register(_ context.Context, p service.RegisterDeviceParams) (*models.Device, bool, error) {
	m.last = p
	return m.device, m.created, m.err
}

type mockConnectivity struct {
	err        error
	calls      int
	lastSerial string
	lastIP     string
	lastMeta   map[string]any
	lastTS     time.Time
}

func (m *mockConnectivity) Record(_ context.Context, serial string, ts time.Time, ip string, meta map[string]any) error {
	m.calls++
	m.lastSerial, m.lastTS, m.lastIP, m.lastMeta = serial, ts, ip, meta
	return m.err
}

func (m *mockConnectivity) IsRecentlyConnected(context.Context, int64, time.Duration) (models.ConnectivityStatus, error) {
	return models.ConnectivityStatus{}, m.err
}

type mockInstallations struct {
	session   *models.InstallationSession
	startErr  error
	lastStart service.StartParams

	outcome *service.RunOutcome
	runErr  error
	lastRun int64

	canceled  bool
	cancelErr error

	completeErr  error
	lastComplete service.CompleteParams

	// views are returned in order by Status; the last one repeats.
	views     []*service.SessionView
	statusErr error
	statusN   int
}

func (m *mockInstallations) Start(_ context.Context, p service.StartParams) (*models.InstallationSession, error) {
	m.lastStart = p
	return m.session, m.startErr
}

func (m *mockInstallations) RunValidation(_ context.Context, id int64) (*service.RunOutcome, error) {
	m.lastRun = id
	return m.outcome, m.runErr
}

func (m *mockInstallations) Cancel(context.Context, int64) (bool, error) {
	return m.canceled, m.cancelErr
}

func (m *mockInstallations) Complete(_ context.Context, id int64, p service.CompleteParams) (*models.InstallationSession, error) {
	m.lastComplete = p
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	st := models.StatusFailed
	if p.Confirmed {
		st = models.StatusCompleted
	}
	return &models.InstallationSession{ID: id, Status: st}, nil
}

func (m *mockInstallations) Status(context.Context, int64) (*service.SessionView, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	i := m.statusN
	if i >= len(m.views) {
		i = len(m.views) - 1
	}
	m.statusN++
	return m.views[i], nil
}

type mockReadings struct {
	out  models.ConsensusOutcome
	err  error
	last service.ExtractParams
}

func (m *mockReadings) Extract(_ context.Context, p service.ExtractParams) (models.ConsensusOutcome, error) {
	m.last = p
	return m.out, m.err
}

type mockEventLog struct {
	resp   []models.InstallationEvent
	err    error
	last   service.LogFilter
	called int
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.InstallationEvent, error) {
	m.called++
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
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
