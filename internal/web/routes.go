package web

import (
	"github.com/go-chi/chi/v5"

	"gymgate/internal/web/handlers"
)

func (s *Server) setupRoutes(deps Deps) {
	// Create handlers
	membersHandler := handlers.NewMembersHandler(deps.Members, deps.Refresher)
	presenceHandler := handlers.NewPresenceHandler(deps.Events)
	statsHandler := handlers.NewStatsHandler(deps.Members, deps.Events)
	plansHandler := handlers.NewPlansHandler(s.config)
	liveHandler := handlers.NewLiveHandler(s.broadcaster)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Check-in paths only exist when a decision engine is attached.
		if deps.Engine != nil {
			checkinHandler := handlers.NewCheckinHandler(deps.Engine)
			r.Post("/checkins/face", checkinHandler.Face)
			r.Post("/checkins/token", checkinHandler.Token)
		}

		// Live attendance feed
		r.Get("/checkins/live", liveHandler.Events)

		// Members
		r.Get("/members", membersHandler.List)
		r.Post("/members/enroll", membersHandler.Enroll)
		r.Get("/members/{email}", membersHandler.Get)
		r.Put("/members/{email}/status", membersHandler.SetStatus)

		// Presence
		r.Get("/presence", presenceHandler.List)
		r.Post("/presence/close-day", presenceHandler.CloseDay)

		// Stats
		r.Get("/stats", statsHandler.Get)

		// Plans
		r.Get("/plans", plansHandler.List)
		r.Get("/plans/{id}", plansHandler.Get)
	})
}
