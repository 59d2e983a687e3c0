package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/config"
	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/dlops-io/mega-pipeline-aws/internal/credentials"
	"github.com/dlops-io/mega-pipeline-aws/internal/notify"
	"github.com/dlops-io/mega-pipeline-aws/internal/objectstore"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	bootstrapLogFile = "megapipe-bootstrap.log"
	logFile          = "megapipe.log"

	logDirPermissions = 0o750
)

var errUnknownBackend = errors.New("unknown storage backend")

type commandContext struct {
	configFlag  *string
	workDirFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, workDirFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		workDirFlag: workDirFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})

	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	bootstrapLog, err := logger.New(os.TempDir(), bootstrapLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	defer func() { _ = bootstrapLog.Close() }()

	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}

	cfg, err := config.Load(path, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if c.workDirFlag != nil && strings.TrimSpace(*c.workDirFlag) != "" {
		cfg.Storage.WorkDir = strings.TrimSpace(*c.workDirFlag)
	}

	bootstrapLog.Info("Configuration loaded, work dir %s", cfg.Storage.WorkDir)

	return cfg, nil
}

// session holds the resources of one command invocation.
type session struct {
	cfg   *config.Config
	log   *logger.Logger
	runID string

	local *objectstore.LocalStore

	natsConn *nats.Conn
	remote   core.ArtifactStore
	notifier pipeline.ArtifactObserver
}

func (c *commandContext) openSession() (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(cfg.Paths.BaseLogsDir, logDirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", cfg.Paths.BaseLogsDir, err)
	}

	log, err := logger.New(cfg.Paths.BaseLogsDir, logFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	local, err := objectstore.NewLocalStore(cfg.Storage.WorkDir)
	if err != nil {
		_ = log.Close()

		return nil, err
	}

	return &session{
		cfg:      cfg,
		log:      log,
		runID:    uuid.NewString(),
		local:    local,
		natsConn: nil,
		remote:   nil,
		notifier: nil,
	}, nil
}

func (s *session) connectNATS() (*nats.Conn, error) {
	if s.natsConn != nil {
		return s.natsConn, nil
	}

	conn, err := nats.Connect(s.cfg.NATS.URL, nats.Name("megapipe-"+s.runID))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", s.cfg.NATS.URL, err)
	}

	s.natsConn = conn

	return conn, nil
}

// remoteStore opens the configured bucket on first use.
func (s *session) remoteStore(ctx context.Context) (core.ArtifactStore, error) {
	if s.remote != nil {
		return s.remote, nil
	}

	switch s.cfg.Storage.Backend {
	case config.BackendS3:
		awsConfig, err := credentials.AWSConfig(ctx, s.cfg.Storage.Region, s.cfg.Credentials.AWSCSV)
		if err != nil {
			return nil, err
		}

		store, err := objectstore.NewS3Store(
			objectstore.NewS3Client(awsConfig, s.cfg.Storage.Endpoint),
			s.cfg.Storage.Bucket,
		)
		if err != nil {
			return nil, err
		}

		s.remote = store
	case config.BackendNATS:
		conn, err := s.connectNATS()
		if err != nil {
			return nil, err
		}

		jetstreamContext, err := conn.JetStream()
		if err != nil {
			return nil, fmt.Errorf("failed to get JetStream context: %w", err)
		}

		store, err := objectstore.NewNatsObjectStore(jetstreamContext, s.cfg.NATS.ObjectStoreBucket)
		if err != nil {
			return nil, err
		}

		s.remote = store
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, s.cfg.Storage.Backend)
	}

	s.log.Info("Run %s: remote store %s ready", s.runID, s.cfg.Storage.Backend)

	return s.remote, nil
}

// uploadOptions attaches the artifact event publisher when NATS is configured.
func (s *session) uploadOptions() ([]pipeline.SyncOption, error) {
	if strings.TrimSpace(s.cfg.NATS.URL) == "" {
		return nil, nil
	}

	if s.notifier == nil {
		conn, err := s.connectNATS()
		if err != nil {
			return nil, err
		}

		publisher, err := notify.NewPublisher(conn, s.cfg.NATS.SubjectPrefix, s.runID, s.log)
		if err != nil {
			return nil, err
		}

		s.notifier = publisher
	}

	return []pipeline.SyncOption{pipeline.WithObserver(s.notifier)}, nil
}

func (s *session) close() {
	if s.natsConn != nil {
		s.natsConn.Close()
	}

	closeErr := s.log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
	}
}
