package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"meter_reading/internal/capture"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
)

// In-memory repositories shared by the service tests.

type memDevices struct {
	mu      sync.Mutex
	byID    map[int64]*models.Device
	lastSee map[int64]time.Time
	nextID  int64
}

func newMemDevices() *memDevices {
	return &memDevices{byID: map[int64]*models.Device{}, lastSee: map[int64]time.Time{}}
}

func (m *memDevices) Create(_ context.Context, d models.Device) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	if d.Status == "" {
		d.Status = models.DeviceProvisioning
	}
	m.byID[d.ID] = &d
	return d.ID, nil
}

func (m *memDevices) GetBySerial(_ context.Context, serial string) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byID {
		if d.SerialNumber == serial {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDevices) GetByID(_ context.Context, id int64) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memDevices) UpdateStatus(_ context.Context, id int64, status models.DeviceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Status = status
	return nil
}

func (m *memDevices) Activate(_ context.Context, id, meterID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.byID[id]
	d.Status = models.DeviceActive
	d.MeterID = &meterID
	return nil
}

func (m *memDevices) ListStale(_ context.Context, status models.DeviceStatus, seenBefore time.Time) ([]models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Device
	for id := int64(1); id <= m.nextID; id++ {
		d, ok := m.byID[id]
		if !ok || d.Status != status {
			continue
		}
		if seen, ok := m.lastSee[id]; ok && !seen.Before(seenBefore) {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

type memMeters struct {
	mu     sync.Mutex
	byID   map[int64]*models.Meter
	nextID int64
}

func newMemMeters() *memMeters { return &memMeters{byID: map[int64]*models.Meter{}} }

func (m *memMeters) Create(_ context.Context, mt models.Meter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	mt.ID = m.nextID
	m.byID[mt.ID] = &mt
	return mt.ID, nil
}

func (m *memMeters) GetBySerial(_ context.Context, serial string) (*models.Meter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mt := range m.byID {
		if mt.SerialNumber == serial {
			cp := *mt
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memMeters) GetByID(_ context.Context, id int64) (*models.Meter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *mt
	return &cp, nil
}

func (m *memMeters) UpdateCalibration(_ context.Context, mt models.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.byID[mt.ID]
	cur.SerialNumber = mt.SerialNumber
	cur.MeterType = mt.MeterType
	cur.ExpectedReading = mt.ExpectedReading
	cur.CustomPrompt = mt.CustomPrompt
	return nil
}

type memSessions struct {
	mu      sync.Mutex
	byID    map[int64]*models.InstallationSession
	nextID  int64
	updates []models.SessionStatus

	// onGet runs after every Get, outside the lock, to interleave writers.
	onGet func(id int64)
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[int64]*models.InstallationSession{}}
}

func (m *memSessions) Create(_ context.Context, s models.InstallationSession) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.byID[s.ID] = &s
	return s.ID, nil
}

func (m *memSessions) Get(_ context.Context, id int64) (*models.InstallationSession, error) {
	m.mu.Lock()
	var cp *models.InstallationSession
	if s, ok := m.byID[id]; ok {
		c := *s
		cp = &c
	}
	hook := m.onGet
	m.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return cp, nil
}

func (m *memSessions) UpdateStatus(_ context.Context, id int64, status models.SessionStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.byID[id]
	s.Status = status
	if completedAt != nil {
		s.CompletedAt = completedAt
	}
	m.updates = append(m.updates, status)
	return nil
}

func (m *memSessions) Advance(_ context.Context, id int64, status models.SessionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || s.Status.IsTerminal() {
		return false, nil
	}
	s.Status = status
	m.updates = append(m.updates, status)
	return true, nil
}

// set overwrites the stored status, bypassing the service.
func (m *memSessions) set(id int64, status models.SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Status = status
}

func (m *memSessions) status(id int64) models.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Status
}

type memChecks struct {
	mu   sync.Mutex
	rows []models.ValidationCheckResult
}

func (m *memChecks) Append(_ context.Context, r models.ValidationCheckResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, r)
	return r.ID, nil
}

func (m *memChecks) ListBySession(_ context.Context, sessionID int64) ([]models.ValidationCheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ValidationCheckResult
	for _, r := range m.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memConnectivity struct {
	mu   sync.Mutex
	recs map[int64]models.ConnectivityRecord
	err  error
}

func newMemConnectivity() *memConnectivity {
	return &memConnectivity{recs: map[int64]models.ConnectivityRecord{}}
}

func (m *memConnectivity) Upsert(_ context.Context, r models.ConnectivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs[r.DeviceID] = r
	return nil
}

func (m *memConnectivity) Get(_ context.Context, deviceID int64) (*models.ConnectivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.recs[deviceID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type memRepos struct {
	*repository.Repository
	devices  *memDevices
	meters   *memMeters
	sessions *memSessions
	checks   *memChecks
	conn     *memConnectivity
	events   *fakeEventRepo
}

func newMemRepos() *memRepos {
	r := &memRepos{
		devices:  newMemDevices(),
		meters:   newMemMeters(),
		sessions: newMemSessions(),
		checks:   &memChecks{},
		conn:     newMemConnectivity(),
		events:   &fakeEventRepo{},
	}
	r.Repository = &repository.Repository{
		Auth:         &mockAuthRepo{},
		Devices:      r.devices,
		Meters:       r.meters,
		Sessions:     r.sessions,
		Checks:       r.checks,
		Connectivity: r.conn,
		Events:       r.events,
	}
	return r
}

// fakeSnapshots serves one image per device serial.
type fakeSnapshots struct {
	images map[string][]byte
	err    error
}

func (f *fakeSnapshots) Latest(serial string) (string, []byte, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	img, ok := f.images[serial]
	if !ok {
		return "", nil, capture.ErrNoSnapshot
	}
	return "/snapshots/" + serial + ".jpeg", img, nil
}

// fakeResolver returns a fixed outcome and remembers its inputs.
type fakeResolver struct {
	out       models.ConsensusOutcome
	gotHint   string
	gotPrompt string
	gotImage  []byte
	calls     int
	mu        sync.Mutex
}

func (f *fakeResolver) Resolve(_ context.Context, image []byte, hint, prompt string) models.ConsensusOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotImage, f.gotHint, f.gotPrompt = image, hint, prompt
	return f.out
}

var errBoom = errors.New("boom")
