package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/handler/persona"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/handler/voice"
	middlewarePkg "github.com/lilhelper-coder/Asset-Architect-sub000/internal/middleware"
	personaModel "github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/persona"
	chatService "github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
	"github.com/lilhelper-coder/Asset-Architect-sub000/pkg/utils"
)

// Deps are the services the HTTP layer is wired to.
type Deps struct {
	Persona   personaModel.Persona
	Registry  *chatService.Registry
	Replier   voice.Replier
	AIEnabled bool
	Voice     voice.HandlerOptions
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.Voice.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})

	personaHandler := persona.New(deps.Persona)
	voiceHandler := voice.NewWebSocketHandler(deps.Registry, deps.Replier, deps.Persona, deps.Voice)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"sessions": deps.Registry.Count(),
				"ai":       deps.AIEnabled,
			})
		})

		personaHandler.RegisterRoutes(api)
		voiceHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
