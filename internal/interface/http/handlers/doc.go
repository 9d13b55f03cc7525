// Package handlers contains the reusable pieces of the HTTP API: the JSON
// envelope, caller authentication, per-caller rate limiting, access logging
// and health checks.
//
// # Authentication
//
// Every API request carries either a bearer JWT or a service key:
//
//	auth := handlers.NewAuthenticator(
//	    handlers.NewJWTVerifier(secret, issuer),
//	    handlers.NewAPIKeyAuth("X-API-Key", bcryptHashes),
//	    logger,
//	)
//	r.Use(auth.Middleware)
//
// Token claims are "sub" (the user id) and "role". A valid service key
// resolves to the system principal.
//
// # Health Checks
//
//	checker := handlers.NewCompositeHealthChecker(version)
//	checker.AddCheck("postgres", handlers.NewPingCheck(conn))
//	checker.AddOptionalCheck("renderer", handlers.NewExternalAPICheck(rendererClient))
//
// A failing optional check degrades health but leaves the service ready.
package handlers
