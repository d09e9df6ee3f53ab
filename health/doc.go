// Package health reports whether the interceptor service can make
// authorization decisions.
//
// Readiness depends on the dependencies every decision needs: a usable JWKS
// key set and a reachable policy store. Optional dependencies such as a shared
// Redis cache only degrade the service when they fail, since decisions stay
// correct without them.
//
//	agg := health.NewAggregator()
//	agg.Register("jwks", health.NewJWKSChecker(keys))
//	agg.Register("policystore", health.NewPingChecker("policystore", store))
//	agg.RegisterOptional("cache", health.NewPingChecker("cache", redisCache))
//	health.RegisterHandlers(mux, agg)
package health
