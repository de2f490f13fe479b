// Package platform builds the clients and completion sinks both binaries
// share from configuration.
package platform

import (
	"context"
	"fmt"
	"time"

	"vendor-onboarding/internal/common/auth"
	"vendor-onboarding/internal/common/aws"
	"vendor-onboarding/internal/common/camunda"
	"vendor-onboarding/internal/common/config"
	"vendor-onboarding/internal/common/database"
	commonhttp "vendor-onboarding/internal/common/http"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/common/zoho"
	"vendor-onboarding/internal/completion"
	"vendor-onboarding/internal/host"
	"vendor-onboarding/internal/onboarding"
	"vendor-onboarding/internal/vendorapi"

	"go.opentelemetry.io/otel"
)

type Options struct {
	// Sinks restricts the completion sinks to these names. Nil means every
	// sink enabled in configuration.
	Sinks []string
	// ConnectRetries and ConnectDelay control start-up connection retries.
	ConnectRetries int
	ConnectDelay   time.Duration
}

// Platform holds the shared clients. Fields for services no enabled sink
// needs stay nil.
type Platform struct {
	Config     *config.Config
	HTTP       *commonhttp.Client
	VendorAPI  *vendorapi.Client
	Redis      *database.RedisClient
	Postgres   *database.PostgresClient
	Search     *database.ElasticsearchClient
	Zeebe      *camunda.Client
	Flags      *completion.FlagStore
	Dispatcher *completion.Dispatcher

	checks  []host.ReadinessCheck
	closers []func() error
	logger  logger.Logger
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Platform, error) {
	if opts.ConnectRetries == 0 {
		opts.ConnectRetries = 5
	}
	if opts.ConnectDelay == 0 {
		opts.ConnectDelay = 2 * time.Second
	}

	httpClient := commonhttp.NewClient(
		config.GetDuration(cfg.VendorAPI.Timeout),
		commonhttp.WithTracer(otel.Tracer("vendor-onboarding/http")),
	)
	p := &Platform{
		Config: cfg,
		HTTP:   httpClient,
		VendorAPI: vendorapi.NewClient(vendorapi.Config{
			BaseURL:         cfg.VendorAPI.BaseURL,
			Timeout:         config.GetDuration(cfg.VendorAPI.Timeout),
			FetchRetries:    cfg.VendorAPI.FetchRetries,
			ValidateSchemas: cfg.VendorAPI.ValidateSchemas,
		}, httpClient, log),
		Dispatcher: completion.NewDispatcher(log),
		logger:     log.WithFields(map[string]interface{}{"component": "platform"}),
	}

	for _, name := range p.selectedSinks(opts.Sinks) {
		sink, err := p.buildSink(ctx, name, opts)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("completion sink %s: %w", name, err)
		}
		p.Dispatcher.Register(sink, config.GetDuration(cfg.SinkTimeout(name)))
		p.logger.Info("completion sink enabled", map[string]interface{}{"sink": name})
	}
	return p, nil
}

func (p *Platform) selectedSinks(only []string) []string {
	allowed := map[string]bool{}
	for _, name := range only {
		allowed[name] = true
	}
	var names []string
	for _, name := range config.SinkNames {
		if !p.Config.SinkEnabled(name) {
			continue
		}
		if only != nil && !allowed[name] {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (p *Platform) buildSink(ctx context.Context, name string, opts Options) (completion.Sink, error) {
	cfg := p.Config
	connect := func(op string, fn func() error) error {
		return retryWithBackoff(ctx, fn, opts.ConnectRetries, opts.ConnectDelay, p.logger, op)
	}

	switch name {
	case config.SinkFlag:
		redis := database.NewRedis(cfg.Database.Redis)
		p.onClose(redis.Close)
		if err := connect("Redis connection", func() error { return redis.Ping(ctx) }); err != nil {
			return nil, err
		}
		p.Redis = redis
		p.Flags = completion.NewFlagStore(redis)
		p.checks = append(p.checks, host.ReadinessCheck{Name: "redis", Check: redis.Ping})
		return p.Flags, nil

	case config.SinkAudit:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		p.onClose(pg.Close)
		if err := connect("PostgreSQL connection", func() error { return pg.Ping(ctx) }); err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		p.Postgres = pg
		p.checks = append(p.checks, host.ReadinessCheck{Name: "postgres", Check: pg.Ping})
		return completion.NewAuditSink(pg), nil

	case config.SinkProcess:
		var zc *camunda.Client
		err := connect("Zeebe client initialization", func() error {
			var err error
			zc, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		p.onClose(zc.Close)
		p.Zeebe = zc
		p.checks = append(p.checks, host.ReadinessCheck{Name: "zeebe", Check: zc.HealthCheck})
		return completion.NewProcessSink(zc, cfg.Camunda.MessageName, config.GetDuration(cfg.Camunda.MessageTTL)), nil

	case config.SinkDirectory:
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		if err := connect("Elasticsearch connection", func() error { return es.Ping(ctx) }); err != nil {
			return nil, err
		}
		p.Search = es
		p.checks = append(p.checks, host.ReadinessCheck{Name: "elasticsearch", Check: es.Ping})
		return completion.NewDirectorySink(es), nil

	case config.SinkEmail:
		ses, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SES.FromEmail)
		if err != nil {
			return nil, err
		}
		return completion.NewEmailSink(ses, p.logger), nil

	case config.SinkEvents:
		sns, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.TopicARN)
		if err != nil {
			return nil, err
		}
		return completion.NewEventSink(sns), nil

	case config.SinkCRM:
		return completion.NewCRMSink(zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken, p.HTTP)), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

func (p *Platform) onClose(fn func() error) {
	p.closers = append(p.closers, fn)
}

// Verifier returns the token verifier selected by auth.mode.
func (p *Platform) Verifier() auth.Verifier {
	if p.Config.Auth.Mode == "keycloak" {
		kc := p.Config.Auth.Keycloak
		return auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret, p.HTTP)
	}
	return auth.NewJWTVerifier(p.Config.Auth.JWT.Secret, p.Config.Auth.JWT.Issuer)
}

// StoreFactory binds the shared vendor API client to one vendor's token.
func (p *Platform) StoreFactory() host.StoreFactory {
	return func(_ string, token func() string) onboarding.StepStore {
		return p.VendorAPI.WithTokenSource(token)
	}
}

// ReadinessChecks returns a probe per connected backing service.
func (p *Platform) ReadinessChecks() []host.ReadinessCheck {
	return append([]host.ReadinessCheck(nil), p.checks...)
}

// Close releases connections in reverse order of creation.
func (p *Platform) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			p.logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	p.closers = nil
}
