package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"idintake/internal/audit"
	"idintake/internal/challenge"
	"idintake/internal/credential"
	credentialhandler "idintake/internal/credential/handler"
	jwttoken "idintake/internal/jwt_token"
	"idintake/internal/platform/httpserver"
	"idintake/internal/platform/metrics"
	"idintake/internal/platform/postgres"
	"idintake/internal/platform/redis"
	httptransport "idintake/internal/transport/http"
	"idintake/internal/verification"
	verificationhandler "idintake/internal/verification/handler"
	verificationmetrics "idintake/internal/verification/metrics"
	"idintake/pkg/platform/httputil"
)

const (
	tokenIssuer   = "idintake"
	tokenAudience = "idintake-credential"
	auditBuffer   = 256
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal packages.
func runServe(ctx context.Context) error {
	reg := prometheus.DefaultRegisterer
	httputil.MaxBodyBytes = cfg.Server.MaxBodyBytes

	docs, err := newDocumentStack(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer closeWithTimeout(docs.Close)

	checks := map[string]httptransport.HealthCheck{}

	challenges, ledger, closeChallenges, err := newChallengeStore(ctx, checks)
	if err != nil {
		return err
	}
	defer closeChallenges()

	credentials, closeCredentials, err := newCredentialStore(ctx, checks)
	if err != nil {
		return err
	}
	defer closeCredentials()

	auditStore, closeAudit, err := newAuditStore(ctx, checks)
	if err != nil {
		return err
	}
	defer closeAudit()
	publisher := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(auditBuffer), audit.WithPublisherLogger(log))
	defer publisher.Close()

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience, cfg.Credential.TokenTTL)

	credentialSvc := credential.NewService(tokens, challenges, credentials, credential.Config{
		ChallengeTTL: cfg.Credential.ChallengeTTL,
		RPID:         cfg.Credential.RPID,
		RPName:       cfg.Credential.RPName,
	},
		credential.WithLogger(log),
		credential.WithMetrics(credential.NewMetrics(reg)),
		credential.WithAuditPublisher(publisher),
		credential.WithTokenLedger(ledger),
	)

	trustMode, err := verification.ParseTrustMode(cfg.Policy.TrustMode)
	if err != nil {
		return err
	}
	gateCfg := verification.DefaultGateConfig()
	gateCfg.MinimumAge = cfg.Policy.MinimumAge
	gateCfg.TrustMode = trustMode
	if trustMode == verification.TrustLenient {
		log.WarnContext(ctx, "lenient trust mode: client-claimed birth dates are accepted when server extraction fails")
	}

	verificationCfg := verification.DefaultConfig()
	verificationCfg.FaceMatchThreshold = cfg.Policy.FaceMatchThreshold
	verificationSvc := verification.NewService(verification.NewGate(gateCfg, log), docs.pipeline, tokens, verificationCfg,
		verification.WithRegistrar(credentialSvc),
		verification.WithAuditPublisher(publisher),
		verification.WithLogger(log),
		verification.WithMetrics(verificationmetrics.New(reg)),
	)

	if cfg.Server.InternalToken == "" {
		log.WarnContext(ctx, "INTERNAL_API_TOKEN is not set; /internal routes are unauthenticated")
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       metrics.New(),
		Verification:  verificationhandler.New(verificationSvc, log),
		Credential:    credentialhandler.New(credentialSvc, log),
		InternalToken: cfg.Server.InternalToken,
		HealthChecks:  checks,
	})

	srv := httpserver.New(cfg.Server, router)
	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "starting idintake", "addr", cfg.Server.Addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newChallengeStore(ctx context.Context, checks map[string]httptransport.HealthCheck) (credential.ChallengeStore, credential.TokenLedger, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	if client == nil {
		store := challenge.NewInMemoryStore()
		sweepCtx, cancel := context.WithCancel(context.Background())
		store.StartSweeper(sweepCtx, time.Minute, log)
		log.InfoContext(ctx, "using in-memory challenge store")
		return store, challenge.NewInMemoryTokenLedger(), cancel, nil
	}
	checks["redis"] = client.Health
	log.InfoContext(ctx, "using redis challenge store")
	return challenge.NewRedisStore(client.Client), challenge.NewRedisTokenLedger(client.Client), func() { _ = client.Close() }, nil
}

func newCredentialStore(ctx context.Context, checks map[string]httptransport.HealthCheck) (credential.Store, func(), error) {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		log.InfoContext(ctx, "using in-memory credential store")
		return credential.NewInMemoryStore(), func() {}, nil
	}
	store := credential.NewPostgres(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	checks["postgres"] = pingCheck(db)
	log.InfoContext(ctx, "using postgres credential store")
	return store, func() { _ = db.Close() }, nil
}

func newAuditStore(ctx context.Context, checks map[string]httptransport.HealthCheck) (audit.Store, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return audit.NewInMemoryStore(), func() {}, nil
	}
	client, err := audit.NewKafkaClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, err
	}
	topic := audit.TopicSpec{Name: cfg.Kafka.Topic, Partitions: cfg.Kafka.Partitions, ReplicationFactor: cfg.Kafka.ReplicationFactor}
	if err := audit.EnsureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, nil, err
	}
	checks["kafka"] = audit.BrokerCheck(client)
	log.InfoContext(ctx, "publishing audit events to kafka", "topic", cfg.Kafka.Topic)
	return audit.NewKafkaStore(client, cfg.Kafka.Topic), closeKafka(client), nil
}

func closeKafka(client *kgo.Client) func() {
	return func() { client.Close() }
}

func pingCheck(db *sql.DB) httptransport.HealthCheck {
	return db.PingContext
}

func closeWithTimeout(closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Error("shutdown step failed", "error", err)
	}
}
