package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/handler/chat"
	"github.com/rainit/rainit/backend/internal/handler/persona"
	"github.com/rainit/rainit/backend/internal/handler/stream"
	"github.com/rainit/rainit/backend/internal/handler/ws"
	middlewarePkg "github.com/rainit/rainit/backend/internal/middleware"
	personaModel "github.com/rainit/rainit/backend/internal/model/persona"
	"github.com/rainit/rainit/backend/internal/service/dialogue"
	"github.com/rainit/rainit/backend/pkg/utils"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Personas       personaModel.Store
	Coordinator    *dialogue.Coordinator
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services. Every route is served both
// at the root and under /api.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	personaHandler := persona.New(deps.Personas)
	chatHandler := chat.New(deps.Coordinator, deps.Logger)
	streamHandler := stream.New(deps.Coordinator, deps.Logger)
	wsHandler := ws.New(deps.Coordinator, deps.AllowedOrigins, deps.Logger)

	register := func(api chi.Router) {
		api.Get("/healthz", handleHealth)
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	}

	register(r)
	r.Route("/api", register)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
