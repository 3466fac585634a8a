package api

import (
	"net/http"
)

// defaultMaxBodySize applies when the config leaves MAX_BODY_SIZE unset.
const defaultMaxBodySize = 1 << 20

// defaultRedactedHeaders lists header names whose values are masked in
// request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes registers the middleware chain and routes.
//
// Ordering:
//  1. Recoverer     - outermost, so every panic becomes a 500.
//  2. RequestID     - correlation ID for logs and outbound calls.
//  3. RequestLogger - one structured line per request.
//
// GET /health sits outside the POST guard. The notification routes accept
// any method at the router level and reject non-POST themselves so the 405
// body matches what the platform expects.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))

	s.router.Get("/health", s.HandleHealth)

	notifications := s.Notifications
	if notifications == nil {
		notifications = http.NotFoundHandler()
	}

	guarded := s.router.With(
		RequirePOST,
		LimitBody(s.maxBodySize()),
		s.DecompressBody,
	)
	guarded.Handle("/", notifications)
	guarded.Handle("/notifications", notifications)
}

func (s *Server) maxBodySize() int64 {
	if s.Config != nil && s.Config.Server.MaxBodySize > 0 {
		return s.Config.Server.MaxBodySize
	}
	return defaultMaxBodySize
}
