// Package api exposes laman over HTTP: plan listing, subscription
// management, page generation and editing, export and API tokens.
//
// All routes except /health-check and /plans require a bearer credential.
// Domain errors map to status codes in one place:
//
//	validation failure         422
//	generation limit reached   402 {error, limit, used, plan}
//	unknown plan               404
//	no active subscription     409
//	another user's page        403
//	rate limited               429
//
// The server is an http.Handler:
//
//	server := api.NewServer(api.Options{
//		Plans:         planStore,
//		Subscriptions: tracker,
//		Pages:         pageService,
//		Tokens:        tokenManager,
//		Auth:          middleware.NewAuthMiddleware(tokenManager, false),
//		Logger:        logger,
//	})
//	http.ListenAndServe(":8080", server)
package api
