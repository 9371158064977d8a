package server

import (
	"github.com/vowgate/vowgate/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Health and version surfaces
	s.router.Get("/health", s.deps.Health.HealthHandler)
	s.router.Get("/health/live", s.deps.Health.LivenessHandler)
	s.router.Get("/health/ready", s.deps.Health.ReadinessHandler)
	s.router.Get("/version", handlers.VersionHandler)

	// Guest-facing API
	api := s.deps.API
	s.router.Post("/api/chat", api.ChatHandler)
	s.router.Post("/api/notify", api.NotifyHandler)
	s.router.Post("/api/telegram", api.TelegramHandler)
	s.router.Post("/api/discord", api.DiscordHandler)
	s.router.Post("/api/visit", api.VisitHandler)
	s.router.Get("/api/visit", api.VisitHandler)
	s.router.Post("/api/recaptcha", api.RecaptchaHandler)
}
