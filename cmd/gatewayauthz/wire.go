package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/cache"
	"github.com/jonwraymond/gatewayauthz/config"
	"github.com/jonwraymond/gatewayauthz/enrich"
	"github.com/jonwraymond/gatewayauthz/health"
	"github.com/jonwraymond/gatewayauthz/interceptor"
	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/permission"
	"github.com/jonwraymond/gatewayauthz/policyengine"
	"github.com/jonwraymond/gatewayauthz/policystore"
	"github.com/jonwraymond/gatewayauthz/server"
)

// app is a fully wired service.
type app struct {
	handler http.Handler
	logger  observe.Logger
	closers []func(context.Context) error
}

// Close releases every component, newest first.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// deps are the external clients build would otherwise create. Tests set them.
type deps struct {
	dynamo    policystore.DynamoAPI
	policy    policyengine.Authorizer
	keys      auth.KeyProvider
	observer  observe.Observer
	metrics   http.Handler
	loadAWSFn func(ctx context.Context, cfg *config.Config) (aws.Config, error)
}

func loadAWS(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func build(ctx context.Context, cfg *config.Config, d deps) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close(ctx)
		}
	}()

	obs := d.observer
	if obs == nil {
		if obs, err = observe.NewObserver(ctx, cfg.Observe); err != nil {
			return nil, fmt.Errorf("observer: %w", err)
		}
	}
	a.closers = append(a.closers, obs.Shutdown)
	a.logger = obs.Logger()
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}

	perms := permission.DefaultMap()
	if cfg.Permissions.File != "" {
		if perms, err = permission.LoadFile(cfg.Permissions.File); err != nil {
			return nil, err
		}
	}

	agg := health.NewAggregator()

	keys := d.keys
	if keys == nil {
		jwks := auth.NewJWKSKeyProvider(auth.JWKSConfig{URL: cfg.Auth.JWKSURL, CacheTTL: cfg.Auth.JWKSCacheTTL})
		agg.Register("jwks", health.NewJWKSChecker(jwks))
		keys = jwks
	}
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		ClientID:    cfg.Auth.ClientID,
		Issuer:      cfg.Auth.Issuer,
		TokenUse:    cfg.Auth.TokenUse,
		Algorithms:  cfg.Auth.Algorithms,
		TenantClaim: cfg.Auth.TenantClaim,
		RoleClaim:   cfg.Auth.RoleClaim,
		Leeway:      cfg.Auth.Leeway,
	}, keys)
	if err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}

	dynamo := d.dynamo
	needDynamo := cfg.PolicyStore.Backend == config.BackendDynamoDB ||
		cfg.Sharing.Backend == config.BackendDynamoDB ||
		cfg.Tenants.Backend == config.BackendDynamoDB
	if dynamo == nil && needDynamo {
		load := d.loadAWSFn
		if load == nil {
			load = loadAWS
		}
		awsCfg, err := load(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		dynamo = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.AWS.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			}
		})
	}

	store, err := buildStore(cfg, dynamo)
	if err != nil {
		return nil, err
	}
	if p, ok := store.(health.Pinger); ok {
		agg.Register("policy_store", health.NewPingChecker("policy_store", p))
	}

	reqCfg := interceptor.RequestConfig{
		Verifier:          verifier,
		Permissions:       perms,
		SystemTools:       cfg.Interceptor.SystemTools,
		NamespaceArgument: cfg.Interceptor.NamespaceArgument,
		ResourceArgument:  cfg.Interceptor.ResourceArgument,
		Middleware:        mw,
	}

	sharing, err := buildSharing(cfg, dynamo, a, agg)
	if err != nil {
		return nil, err
	}
	if sharing != nil {
		reqCfg.Sharing = sharing
	}

	tenants, err := buildTenants(cfg, dynamo, agg)
	if err != nil {
		return nil, err
	}
	respCfg := interceptor.ResponseConfig{
		Verifier:    verifier,
		Permissions: perms,
		Middleware:  mw,
	}
	if tenants != nil {
		reqCfg.Tenants = tenants
		respCfg.Tenants = tenants
	}

	if cfg.PolicyEngine.Enabled {
		authz := d.policy
		if authz == nil {
			client, err := policyengine.NewClientFromConfig(ctx, policyengine.ClientConfig{
				Endpoint:  cfg.PolicyEngine.Endpoint,
				GatewayID: cfg.PolicyEngine.GatewayID,
				Region:    cfg.PolicyEngineRegion(),
			})
			if err != nil {
				return nil, err
			}
			authz = client
		}
		reqCfg.Policy = policyengine.NewGate(authz, policyengine.Mode(cfg.PolicyEngine.Mode), a.logger)
	}

	reqIC, err := interceptor.NewRequestInterceptor(reqCfg)
	if err != nil {
		return nil, err
	}
	respIC, err := interceptor.NewResponseInterceptor(respCfg)
	if err != nil {
		return nil, err
	}

	enricher := enrich.NewEnricher(store,
		enrich.WithLogger(a.logger),
		enrich.WithLookupTimeout(cfg.PolicyStore.LookupTimeout),
	)

	metrics := d.metrics
	if metrics == nil && cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		metrics = promhttp.Handler()
	}

	srv, err := server.New(server.Config{
		Request:           reqIC,
		Response:          respIC,
		Trigger:           enricher,
		Health:            agg,
		Metrics:           metrics,
		InvocationTimeout: cfg.Server.InvocationTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		Logger:            a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.handler = srv.Handler()
	return a, nil
}

func buildStore(cfg *config.Config, dynamo policystore.DynamoAPI) (policystore.Store, error) {
	switch cfg.PolicyStore.Backend {
	case config.BackendMemory:
		recs := make([]*policystore.UserPolicyRecord, len(cfg.PolicyStore.Users))
		for i := range cfg.PolicyStore.Users {
			recs[i] = &cfg.PolicyStore.Users[i]
		}
		return policystore.NewMemoryStore(recs...)
	default:
		return policystore.NewDynamoStore(dynamo, policystore.DynamoConfig{
			Table:          cfg.PolicyStore.Table,
			TenantIndex:    cfg.PolicyStore.TenantIndex,
			ConsistentRead: cfg.PolicyStore.ConsistentRead,
		})
	}
}

// buildSharing returns nil when sharing checks are disabled.
func buildSharing(cfg *config.Config, dynamo policystore.DynamoAPI, a *app, agg *health.Aggregator) (policystore.SharingStore, error) {
	var base policystore.SharingStore
	switch cfg.Sharing.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		base = policystore.NewMemorySharing()
	default:
		ds, err := policystore.NewDynamoSharing(dynamo, cfg.Sharing.Table, nil)
		if err != nil {
			return nil, err
		}
		agg.RegisterOptional("sharing_store", health.NewPingChecker("sharing_store", ds))
		base = ds
	}

	policy := cache.DefaultPolicy().WithDefaultTTL(cfg.Sharing.CacheTTL)

	var c cache.Cache
	switch cfg.Sharing.Cache {
	case config.CacheNone:
		return base, nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCacheFromURL(cfg.Sharing.RedisURL, cache.WithKeyPrefix(cfg.Sharing.KeyPrefix))
		if err != nil {
			return nil, fmt.Errorf("sharing cache: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
		agg.RegisterOptional("sharing_cache", health.NewPingChecker("sharing_cache", rc))
		c = rc
	default:
		c = cache.NewMemoryCache()
	}
	return policystore.NewCachedSharing(base, cache.NewMemo(c, cache.NewCompositeKeyer("sharing"), policy)), nil
}

// buildTenants returns nil when the tenant status check is disabled.
func buildTenants(cfg *config.Config, dynamo policystore.DynamoAPI, agg *health.Aggregator) (policystore.TenantStore, error) {
	var base policystore.TenantStore
	switch cfg.Tenants.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		base = policystore.NewMemoryTenants(cfg.Tenants.Records...)
	default:
		dt, err := policystore.NewDynamoTenants(dynamo, cfg.Tenants.Table, nil)
		if err != nil {
			return nil, err
		}
		agg.RegisterOptional("tenant_store", health.NewPingChecker("tenant_store", dt))
		base = dt
	}
	if cfg.Tenants.Cache == config.CacheNone {
		return base, nil
	}
	policy := cache.DefaultPolicy().WithDefaultTTL(cfg.Tenants.CacheTTL)
	memo := cache.NewMemo(cache.NewMemoryCache(), cache.NewCompositeKeyer("tenant"), policy)
	return policystore.NewCachedTenants(base, memo), nil
}
