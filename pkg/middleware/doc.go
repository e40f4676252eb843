// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// AuthMiddleware accepts "Authorization: Bearer <token>" where the token is
// either a laman API token or, when OIDC is configured, an ID token from the
// configured issuer. The resolved auth.Principal is stored in the request
// context.
//
//	authMW := middleware.NewAuthMiddleware(tokenManager, false).WithOIDC(oidcAuth)
//	router.Use(authMW.Handler)
//
// RateLimitMiddleware limits requests per user, falling back to the client
// IP for anonymous callers. The Redis-backed DistributedRateLimiter shares a
// fixed window across instances; on Redis errors the middleware fails open
// onto an in-process token bucket.
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, middleware.GenerationRateLimitConfig(30), "ratelimit:generate")
//	generate.Use(middleware.NewRateLimitMiddleware(config, limiter, logger).Handler)
package middleware
