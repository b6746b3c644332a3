package service

import (
	"context"
	"fmt"
	"time"

	"meter_reading/internal/config"
	"meter_reading/internal/lease"
	"meter_reading/internal/logger"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
	"meter_reading/internal/validation"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Devices provisions cameras.
type Devices interface {
	Register(ctx context.Context, p RegisterDeviceParams) (*models.Device, bool, error)
}

// Connectivity records heartbeats and answers liveness questions.
type Connectivity interface {
	Record(ctx context.Context, serial string, ts time.Time, ip string, metadata map[string]any) error
	IsRecentlyConnected(ctx context.Context, deviceID int64, window time.Duration) (models.ConnectivityStatus, error)
}

// Installations drives sessions through the validation pipeline.
type Installations interface {
	Start(ctx context.Context, p StartParams) (*models.InstallationSession, error)
	RunValidation(ctx context.Context, sessionID int64) (*RunOutcome, error)
	Cancel(ctx context.Context, sessionID int64) (bool, error)
	Complete(ctx context.Context, sessionID int64, p CompleteParams) (*models.InstallationSession, error)
	Status(ctx context.Context, sessionID int64) (*SessionView, error)
}

// Readings resolves ad-hoc readings.
type Readings interface {
	Extract(ctx context.Context, p ExtractParams) (models.ConsensusOutcome, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.InstallationEvent, error)
}

// Sweeper runs the background loop that marks silent devices offline.
// Stop via context cancellation in main() for graceful shutdown.
type Sweeper interface {
	Run(ctx context.Context, tick time.Duration)
}

type Service struct {
	Authorization
	Devices
	Connectivity
	Installations
	Readings
	EventLog
	Sweeper
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Repos     *repository.Repository
	Config    *config.Config
	Resolver  validation.Resolver
	Leases    *lease.Manager
	Snapshots SnapshotSource
	Log       *logger.Logger
}

// NewService wires the repository layer and the pipeline into concrete services.
func NewService(d Deps) (*Service, error) {
	cfg := d.Config
	monitor := NewMonitorService(d.Repos.Devices, d.Repos.Connectivity, d.Log)
	devices := NewDeviceService(d.Repos.Devices, d.Repos.Events, d.Log)

	fov, glare, err := validation.Strategies(cfg.Validation.Strategy)
	if err != nil {
		return nil, err
	}
	runner, err := validation.NewRunner(orNop(d.Log).Named("pipeline"),
		validation.ConnectionCheck{Monitor: monitor, Window: cfg.Connectivity.FreshnessWindow},
		fov,
		glare,
		validation.OCRCheck{Resolver: d.Resolver, Threshold: cfg.Validation.OCRConfidenceThreshold},
	)
	if err != nil {
		return nil, fmt.Errorf("build validation pipeline: %w", err)
	}

	return &Service{
		Authorization: NewAuthService(d.Repos.Auth, cfg.Auth.SigningKey, cfg.Auth.TokenTTL),
		Devices:       devices,
		Connectivity:  monitor,
		Installations: NewInstallationService(d.Repos, devices, runner, d.Leases, d.Snapshots, d.Log),
		Readings:      NewReadingService(d.Repos.Meters, d.Resolver, d.Log),
		EventLog:      NewEventLogService(d.Repos.Events),
		Sweeper:       NewSweeperService(d.Repos.Devices, d.Repos.Events, cfg.Connectivity.FreshnessWindow, d.Log),
	}, nil
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}
