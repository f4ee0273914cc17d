package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"credon/internal/admintoken"
	"credon/internal/agent"
	agentmetrics "credon/internal/agent/metrics"
	"credon/internal/audit"
	holderhandler "credon/internal/holder/handler"
	holderservice "credon/internal/holder/service"
	holderstore "credon/internal/holder/store"
	"credon/internal/lifecycle"
	lifecyclehandler "credon/internal/lifecycle/handler"
	lifecyclemetrics "credon/internal/lifecycle/metrics"
	"credon/internal/lifecycle/tracer"
	"credon/internal/lifecycle/workers/cleanup"
	"credon/internal/otp"
	"credon/internal/platform/config"
	"credon/internal/platform/database"
	"credon/internal/platform/health"
	"credon/internal/platform/httpserver"
	"credon/internal/platform/kafka/producer"
	"credon/internal/platform/logger"
	platformredis "credon/internal/platform/redis"
	proofconfighandler "credon/internal/proofconfig/handler"
	proofconfigstore "credon/internal/proofconfig/store"
	"credon/internal/revocation"
	httptransport "credon/internal/transport/http"
	"credon/internal/wallet"
	"credon/pkg/domain"
)

// main wires the agent clients, stores and lifecycle services together and
// runs the HTTP server plus background workers. Business logic lives in the
// internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing credon",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"issuer_agent", cfg.Agents.IssuerURL,
		"holder_agent", cfg.Agents.HolderURL,
		"verifier_agent", cfg.Agents.VerifierURL,
	)

	healthHandler := health.New(cfg.Environment)

	// Agent clients share one metrics registration, split by role label.
	agentMetrics := agentmetrics.New()
	issuerAgent := agent.New("issuer", cfg.Agents.IssuerURL, log, agent.WithMetrics(agentMetrics))
	holderAgent := agent.New("holder", cfg.Agents.HolderURL, log, agent.WithMetrics(agentMetrics))
	verifierAgent := agent.New("verifier", cfg.Agents.VerifierURL, log, agent.WithMetrics(agentMetrics))
	for _, c := range []*agent.Client{issuerAgent, holderAgent, verifierAgent} {
		registerAgentCheck(healthHandler, c)
	}

	// Stores run on postgres when a database is configured, otherwise they
	// fall back to in-memory twins for local development.
	var (
		holders     holderstore.Store      = holderstore.New()
		proofConfig proofconfigstore.Store = proofconfigstore.New()
	)
	if cfg.DatabaseURL != "" {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DatabaseURL
		pool, err := database.New(dbCfg)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		holders = holderstore.NewPostgres(pool.DB())
		proofConfig = proofconfigstore.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	// One-time codes live in redis when available so they survive restarts
	// and expire natively.
	var otpStore otp.Store
	var codePurger cleanup.CodePurger
	if cfg.RedisAddr != "" {
		rc, err := platformredis.New(cfg.RedisAddr)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		otpStore = otp.NewRedis(rc.Client)
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rc.Health(ctx)
		})
	} else {
		mem := otp.NewMemory()
		otpStore = mem
		codePurger = mem
	}

	var sender otp.Sender = logSender{log}
	if cfg.SMTPAddr != "" {
		sender = otp.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	}
	otpService := otp.New(otpStore, sender, cfg.OTPTTL, log)

	// Audit trail: primary in-memory store, optional kafka fan-out.
	auditOpts := []audit.Option{audit.WithAsyncBuffer(256)}
	if cfg.KafkaBrokers != "" {
		producerCfg := producer.DefaultConfig()
		producerCfg.Brokers = cfg.KafkaBrokers
		kafkaProducer, err := producer.New(producerCfg, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditOpts = append(auditOpts, audit.WithSink(audit.NewKafkaSink(kafkaProducer)))
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return kafkaProducer.Health(ctx)
		})
	}
	auditPub := audit.NewPublisher(audit.NewMemoryStore(), log, auditOpts...)
	defer auditPub.Close()

	lifecycleMetrics := lifecyclemetrics.New()
	spanTracer := tracer.NewOTel()

	orch := lifecycle.New(
		lifecycle.Config{
			VerifierLabel:     domain.Label(cfg.VerifierLabel),
			SchemaID:          domain.SchemaID(cfg.SchemaID),
			CredDefID:         domain.CredDefID(cfg.CredDefID),
			ProofPollInterval: cfg.Polling.ProofInterval,
			ProofPollTimeout:  cfg.Polling.ProofTimeout,
			CredExAttempts:    cfg.Polling.CredExAttempts,
			CredExDelay:       cfg.Polling.CredExDelay,
		},
		verifierAgent,
		issuerAgent,
		holders,
		proofConfig,
		auditPub,
		log,
		lifecycle.WithTracer(spanTracer),
		lifecycle.WithMetrics(lifecycleMetrics),
		lifecycle.WithOTP(otpService),
	)

	bootstrap := lifecycle.NewBootstrap(verifierAgent, holderAgent, spanTracer)
	bootstrap.SetRetry(cfg.Polling.ConnectAttempts, cfg.Polling.ConnectDelay)

	propagator := revocation.New(issuerAgent, cfg.WalletWebhookURL, log)

	holderService := holderservice.New(holders, log)
	walletCache := wallet.NewCache()

	tokens := admintoken.NewService(cfg.AdminSigningKey, 24*time.Hour)

	router := httptransport.NewRouter(httptransport.Handlers{
		Lifecycle:   lifecyclehandler.New(orch, bootstrap, otpService, log),
		Admin:       lifecyclehandler.NewAdmin(orch, propagator, issuerAgent, auditPub, log),
		Holders:     holderhandler.New(holderService, log),
		ProofConfig: proofconfighandler.New(proofConfig, log),
		Wallet:      wallet.NewHandler(walletCache, holderAgent, log),
		Health:      healthHandler,
	}, tokens, log)

	srv := httpserver.New(cfg.Addr, router)

	cleanupOpts := []cleanup.Option{
		cleanup.WithLogger(log),
		cleanup.WithInterval(cfg.CleanupInterval),
		cleanup.WithMetrics(lifecycleMetrics),
	}
	if codePurger != nil {
		cleanupOpts = append(cleanupOpts, cleanup.WithCodePurger(codePurger))
	}
	sweeper := cleanup.New(verifierAgent, issuerAgent, cleanupOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// logSender logs one-time codes instead of delivering them. Development only.
type logSender struct {
	logger *slog.Logger
}

func (s logSender) Send(_ context.Context, email, code string) error {
	s.logger.Info("one-time code issued", "email", email, "code", code)
	return nil
}

func registerAgentCheck(h *health.Handler, c *agent.Client) {
	h.RegisterCheck("agent_"+c.Role(), func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return c.Health(ctx)
	})
}
