package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meter_reading/internal/capture"
	"meter_reading/internal/lease"
	"meter_reading/internal/logger"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
	"meter_reading/internal/validation"
)

// SnapshotSource returns the latest captured image of a device. capture.Store
// satisfies it and returns capture.ErrNoSnapshot when nothing was captured.
type SnapshotSource interface {
	Latest(serial string) (string, []byte, error)
}

// PipelineRunner executes the validation checks. validation.Runner satisfies it.
type PipelineRunner interface {
	Run(ctx context.Context, t validation.Target, record validation.RecordFunc) (validation.Report, error)
}

// InstallationService drives installation sessions through the validation
// pipeline. At most one run per session is in flight.
type InstallationService struct {
	repos     *repository.Repository
	devices   *DeviceService
	runner    PipelineRunner
	leases    *lease.Manager
	snapshots SnapshotSource
	events    emitter
	log       *logger.Logger
}

func NewInstallationService(
	repos *repository.Repository,
	devices *DeviceService,
	runner PipelineRunner,
	leases *lease.Manager,
	snapshots SnapshotSource,
	log *logger.Logger,
) *InstallationService {
	log = orNop(log).Named("installations")
	return &InstallationService{
		repos:     repos,
		devices:   devices,
		runner:    runner,
		leases:    leases,
		snapshots: snapshots,
		events:    emitter{repo: repos.Events, log: log},
		log:       log,
	}
}

// Start opens a session. The meter is looked up by serial and created when
// missing; the device is registered when unknown.
func (s *InstallationService) Start(ctx context.Context, p StartParams) (*models.InstallationSession, error) {
	if strings.TrimSpace(p.MeterSerial) == "" || strings.TrimSpace(p.DeviceSerial) == "" {
		return nil, fmt.Errorf("%w: device and meter serial numbers are required", ErrInvalidInput)
	}
	meter, err := s.getOrCreateMeter(ctx, p)
	if err != nil {
		return nil, err
	}
	device, _, err := s.devices.Register(ctx, RegisterDeviceParams{
		SerialNumber:    p.DeviceSerial,
		OrganizationID:  p.OrganizationID,
		FirmwareVersion: p.FirmwareVersion,
	})
	if err != nil {
		return nil, err
	}

	sess := models.InstallationSession{
		Status:         models.StatusStarted,
		DeviceID:       device.ID,
		MeterID:        meter.ID,
		InstallerID:    p.InstallerID,
		OrganizationID: p.OrganizationID,
		StartedAt:      time.Now().UTC(),
	}
	id, err := s.repos.Sessions.Create(ctx, sess)
	if err != nil {
		return nil, err
	}
	sess.ID = id

	s.log.Infow("session_started", "session_id", id, "device_serial", device.SerialNumber, "meter_serial", meter.SerialNumber)
	s.events.emit(ctx, models.EventSessionStarted, id, device.SerialNumber,
		"Installation started for meter "+meter.SerialNumber,
		map[string]any{"meter_id": meter.ID, "installer_id": p.InstallerID})
	return &sess, nil
}

func (s *InstallationService) getOrCreateMeter(ctx context.Context, p StartParams) (*models.Meter, error) {
	serial := strings.TrimSpace(p.MeterSerial)
	m, err := s.repos.Meters.GetBySerial(ctx, serial)
	if err != nil || m != nil {
		return m, err
	}
	m = &models.Meter{
		SerialNumber:    serial,
		MeterType:       strings.TrimSpace(p.MeterType),
		Unit:            strings.TrimSpace(p.Unit),
		Location:        strings.TrimSpace(p.Location),
		OrganizationID:  p.OrganizationID,
		ExpectedReading: p.ExpectedReading,
	}
	id, err := s.repos.Meters.Create(ctx, *m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	return m, nil
}

// RunValidation executes the pipeline for a session. Every executed check is
// appended to the audit trail; re-runs append a new set. A canceled run returns
// the partial report together with ErrRunCanceled.
func (s *InstallationService) RunValidation(ctx context.Context, sessionID int64) (*RunOutcome, error) {
	l, err := s.leases.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	// Read under the lease so a concurrent Complete cannot be overwritten.
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return nil, ErrSessionTerminal
	}

	target, err := s.target(ctx, *sess)
	if err != nil {
		return nil, err
	}

	record := func(ctx context.Context, res models.ValidationCheckResult, status models.SessionStatus) error {
		if _, err := s.repos.Checks.Append(ctx, res); err != nil {
			return err
		}
		if status == sess.Status {
			return nil
		}
		ok, err := s.repos.Sessions.Advance(ctx, sessionID, status)
		if err != nil {
			return err
		}
		if !ok {
			// Closed by another writer (e.g. a second process without shared leases).
			return fmt.Errorf("%w: id %d closed during validation", ErrSessionTerminal, sessionID)
		}
		sess.Status = status
		return nil
	}

	rep, err := s.runner.Run(l.Ctx, target, record)
	out := &RunOutcome{SessionID: sessionID, Report: rep}

	// The lease context is canceled on exit; events must still be written.
	evCtx := context.WithoutCancel(ctx)
	switch {
	case errors.Is(err, ErrRunCanceled):
		s.log.Warnw("pipeline_canceled", "session_id", sessionID, "status", rep.Status)
		s.events.emit(evCtx, models.EventPipelineCanceled, sessionID, target.Device.SerialNumber,
			"Validation run canceled", map[string]any{"status": rep.Status})
		return out, err
	case err != nil:
		return nil, err
	}

	s.log.Infow("pipeline_finished", "session_id", sessionID, "status", rep.Status, "halted", rep.Halted)
	s.events.emit(evCtx, models.EventPipelineRun, sessionID, target.Device.SerialNumber,
		fmt.Sprintf("Validation run finished with status %s", rep.Status),
		map[string]any{"status": rep.Status, "halted": rep.Halted, "checks": summarize(rep)})
	return out, nil
}

func (s *InstallationService) target(ctx context.Context, sess models.InstallationSession) (validation.Target, error) {
	device, err := s.repos.Devices.GetByID(ctx, sess.DeviceID)
	if err != nil {
		return validation.Target{}, err
	}
	if device == nil {
		return validation.Target{}, fmt.Errorf("%w: id %d", ErrDeviceNotFound, sess.DeviceID)
	}
	meter, err := s.repos.Meters.GetByID(ctx, sess.MeterID)
	if err != nil {
		return validation.Target{}, err
	}
	if meter == nil {
		return validation.Target{}, fmt.Errorf("%w: id %d", ErrMeterNotFound, sess.MeterID)
	}

	t := validation.Target{Session: sess, Device: *device, Meter: *meter}
	path, img, err := s.snapshots.Latest(device.SerialNumber)
	switch {
	case errors.Is(err, capture.ErrNoSnapshot):
		s.log.Infow("no_snapshot", "device_serial", device.SerialNumber)
	case err != nil:
		return validation.Target{}, err
	default:
		t.Image, t.ImagePath = img, path
	}
	return t, nil
}

func summarize(rep validation.Report) map[string]string {
	out := make(map[string]string, len(rep.Checks))
	for _, c := range rep.Checks {
		out[string(c.CheckType)] = c.State
	}
	return out
}

// Cancel interrupts an in-flight run of the session. It reports whether a run
// was in flight.
func (s *InstallationService) Cancel(ctx context.Context, sessionID int64) (bool, error) {
	if _, err := s.session(ctx, sessionID); err != nil {
		return false, err
	}
	return s.leases.Cancel(sessionID), nil
}

// Complete closes the session on the installer's decision. Completion is an
// operator override and is accepted from any status except completed. It
// shares the run lease, so it fails with ErrPipelineBusy while a run is in flight.
func (s *InstallationService) Complete(ctx context.Context, sessionID int64, p CompleteParams) (*models.InstallationSession, error) {
	l, err := s.leases.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == models.StatusCompleted {
		return nil, ErrSessionTerminal
	}

	now := time.Now().UTC()
	device, err := s.repos.Devices.GetByID(ctx, sess.DeviceID)
	if err != nil {
		return nil, err
	}
	serial := ""
	if device != nil {
		serial = device.SerialNumber
	}

	if !p.Confirmed {
		if err := s.repos.Sessions.UpdateStatus(ctx, sessionID, models.StatusFailed, &now); err != nil {
			return nil, err
		}
		sess.Status, sess.CompletedAt = models.StatusFailed, &now
		s.log.Infow("session_failed", "session_id", sessionID)
		s.events.emit(ctx, models.EventSessionFailed, sessionID, serial, "Installer rejected the installation", nil)
		return sess, nil
	}

	if err := s.repos.Sessions.UpdateStatus(ctx, sessionID, models.StatusCompleted, &now); err != nil {
		return nil, err
	}
	sess.Status, sess.CompletedAt = models.StatusCompleted, &now
	if device != nil {
		if err := s.repos.Devices.Activate(ctx, device.ID, sess.MeterID); err != nil {
			return nil, err
		}
	}

	meta := map[string]any{"meter_id": sess.MeterID}
	if p.Calibration != nil {
		if err := s.calibrate(ctx, sess.MeterID, *p.Calibration, p); err != nil {
			return nil, err
		}
		meta["calibration"] = *p.Calibration
	}
	s.log.Infow("session_completed", "session_id", sessionID, "calibrated", p.Calibration != nil)
	s.events.emit(ctx, models.EventSessionCompleted, sessionID, serial, "Installation completed", meta)
	return sess, nil
}

func (s *InstallationService) calibrate(ctx context.Context, meterID int64, value float64, p CompleteParams) error {
	m, err := s.repos.Meters.GetByID(ctx, meterID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: id %d", ErrMeterNotFound, meterID)
	}
	if v := strings.TrimSpace(p.MeterSerial); v != "" {
		m.SerialNumber = v
	}
	if v := strings.TrimSpace(p.MeterType); v != "" {
		m.MeterType = v
	}
	m.ExpectedReading = &value
	m.CustomPrompt = CalibrationPrompt(m.MeterType, value)
	return s.repos.Meters.UpdateCalibration(ctx, *m)
}

// CalibrationPrompt is the per-meter prompt stored after calibration.
func CalibrationPrompt(meterType string, expected float64) string {
	return fmt.Sprintf("Read the numeric value from this %s meter. "+
		"Note: This specific meter usually shows values around %v. "+
		"Ensure the decimal point is correctly placed. Return ONLY the number.", meterType, expected)
}

// Status returns the session with its audit trail ordered by check time.
func (s *InstallationService) Status(ctx context.Context, sessionID int64) (*SessionView, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	checks, err := s.repos.Checks.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.CheckResults = checks
	return &SessionView{InstallationSession: *sess, PipelineRunning: s.leases.Held(sessionID)}, nil
}

func (s *InstallationService) session(ctx context.Context, id int64) (*models.InstallationSession, error) {
	sess, err := s.repos.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: id %d", ErrSessionNotFound, id)
	}
	return sess, nil
}
