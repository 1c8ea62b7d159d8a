package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"rivift-connect/internal/config"
	"rivift-connect/internal/security"
	"rivift-connect/internal/service"
	"rivift-connect/internal/store/sqlite"
	"rivift-connect/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services,
// and middleware. The websocket endpoint carries the live relay; the
// REST endpoints exist for registration, login and the pull-based
// reconciliation clients run after reconnecting.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	registry *ws.Registry,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	relRepo := sqlite.NewRelationshipRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(userRepo, relRepo, msgRepo)
	relSvc := service.NewRelationshipService(relRepo, msgRepo, userRepo)
	convSvc := service.NewConversationService(relRepo, msgRepo, cfg.HistoryPageSize)

	// Relay components
	fanout := ws.NewFanout(registry, log)
	relay := ws.NewRelay(fanout)

	// Request/response endpoints get a hard deadline. The websocket
	// route is mounted outside this group: its connections are
	// long-lived and a request timeout would expire the context every
	// relay operation runs under.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})

		r.Route("/api", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", handleRegister(authSvc))
				r.Post("/login", handleLogin(authSvc))
			})

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(tokenSvc, userRepo))

				r.Get("/sync", handleSync(userSvc, registry))
				r.Get("/users/{identity}", handleGetUser(userSvc))
				r.Put("/users/me", handleUpdateProfile(userSvc))
				r.Get("/conversations/{identity}/messages", handleHistory(convSvc))
			})
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(registry, fanout, relay, tokenSvc, userSvc, relSvc, convSvc, cfg.CORSOrigins, log))

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
