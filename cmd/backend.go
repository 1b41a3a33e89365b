package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/facepp"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/references"
)

// initStorage connects the configured storage backend and registers its
// repositories. The returned function closes the connection pool.
func initStorage(cfg *config.Config) (func(), error) {
	switch cfg.Database.Backend {
	case database.BackendPostgres:
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return func() { _ = pool.Close() }, nil
	case database.BackendMariaDB:
		fmt.Printf("Connecting to MariaDB database...\n")
		pool, err := mariadb.Initialize(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return func() { _ = pool.Close() }, nil
	case database.BackendMemory:
		fmt.Printf("Warning: DATABASE_URL not set, using in-memory storage (nothing is persisted)\n")
		mock.Register()
		return func() {}, nil
	default:
		return nil, fmt.Errorf("unknown DATABASE_BACKEND %q", cfg.Database.Backend)
	}
}

// newEmbedder creates the embedding service client.
func newEmbedder(cfg *config.Config) *embedder.Client {
	return embedder.NewClient(cfg.Embedding.URL, cfg.Embedding.Timeout)
}

// newReferenceStore opens the reference image store: the MinIO bucket when an
// endpoint is configured, the local directory otherwise.
func newReferenceStore(ctx context.Context, cfg *config.Config) (*references.CachedStore, error) {
	var store references.Store
	if cfg.MinIO.Endpoint != "" {
		minioStore, err := references.NewMinioStore(ctx, references.MinioConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Prefix:    cfg.MinIO.Prefix,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, err //nolint:wrapcheck // constructor error is descriptive
		}
		store = minioStore
	} else {
		dirStore, err := references.NewDirStore(cfg.References.Dir)
		if err != nil {
			return nil, err //nolint:wrapcheck // constructor error is descriptive
		}
		store = dirStore
	}
	return references.NewCachedStore(store, cfg.References.CacheSize) //nolint:wrapcheck // constructor error is descriptive
}

// newRemoteMatcher returns the Face++ fallback over refs, or nil when no
// credentials are configured.
func newRemoteMatcher(cfg *config.Config, refs recognition.ReferenceSource) (*recognition.RemoteMatcher, error) {
	if !cfg.FacePP.Enabled() {
		return nil, nil //nolint:nilnil // remote fallback is optional
	}
	client, err := facepp.NewClient(facepp.Config{
		URL:       cfg.FacePP.URL,
		APIKey:    cfg.FacePP.APIKey,
		APISecret: cfg.FacePP.APISecret,
		Timeout:   cfg.FacePP.Timeout,
		QPS:       cfg.FacePP.QPS,
		Burst:     cfg.FacePP.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Face++ client: %w", err)
	}
	return recognition.NewRemoteMatcher(client, refs, cfg.Recognition.RemoteThreshold), nil
}

// newRecorder returns the attendance recorder, publishing new records to MQTT
// when a broker is configured. The returned function disconnects the broker.
func newRecorder(cfg *config.Config, store database.AttendanceStore) (recognition.AttendanceRecorder, func(), error) {
	if cfg.MQTT.Broker == "" {
		return store, func() {}, nil
	}
	publisher, err := events.NewMQTTPublisher(events.MQTTConfig{
		Broker:   cfg.MQTT.Broker,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID,
		QoS:      byte(cfg.MQTT.QoS), //nolint:gosec // QoS is 0..2
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	fmt.Printf("Publishing attendance events to %s (topic %s)\n", cfg.MQTT.Broker, cfg.MQTT.Topic)
	return events.NewPublishingRecorder(store, publisher, cfg.MQTT.Topic), publisher.Close, nil
}

// newOrchestrator loads the identity index from the registered store and wires
// the full recognition pipeline, comparing remotely against refs. The returned
// function releases the event publisher.
func newOrchestrator(
	ctx context.Context, cfg *config.Config, refs recognition.ReferenceSource,
) (*recognition.Orchestrator, func(), error) {
	enrollments, err := database.GetEnrollmentStore(ctx)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // provider error is descriptive
	}
	attendance, err := database.GetAttendanceStore(ctx)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // provider error is descriptive
	}

	fmt.Printf("Building identity index...\n")
	idx, err := recognition.LoadIndex(ctx, enrollments)
	if err != nil {
		return nil, nil, fmt.Errorf("building identity index: %w", err)
	}
	fmt.Printf("Identity index ready with %d embeddings of %d identities\n", idx.Len(), len(idx.Identities()))

	remote, err := newRemoteMatcher(cfg, refs)
	if err != nil {
		return nil, nil, err
	}
	if remote != nil {
		fmt.Printf("Face++ fallback enabled (threshold %.1f)\n", remote.Threshold())
	}

	policy, err := recognition.ParseConfirmationPolicy(cfg.Recognition.ConfirmationPolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CONFIRMATION_POLICY: %w", err)
	}

	recorder, closeRecorder, err := newRecorder(cfg, attendance)
	if err != nil {
		return nil, nil, err
	}

	cfgOrch := recognition.OrchestratorConfig{
		Index:          recognition.NewIndexHolder(idx),
		Remote:         remote,
		Tracker:        recognition.NewTracker(cfg.Recognition.ConfirmFrames, policy, cfg.Recognition.ConfirmationWindow),
		Dedup:          recognition.NewDeduplicator(),
		Recorder:       recorder,
		MinFaceSize:    cfg.Recognition.MinFaceSize,
		LocalThreshold: cfg.Recognition.LocalThreshold,
		Cooldown:       cfg.Recognition.Cooldown,
	}
	orch, err := recognition.NewOrchestrator(cfgOrch)
	if err != nil {
		closeRecorder()
		if errors.Is(err, recognition.ErrEmptyEnrollment) {
			return nil, nil, errors.New("no identities enrolled: enroll someone first")
		}
		return nil, nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	return orch, closeRecorder, nil
}
