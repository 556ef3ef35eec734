package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkflow/server/internal/auth"
	"github.com/inkflow/server/internal/http/handlers"
	"github.com/inkflow/server/internal/middleware"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Signing     *handlers.SigningHandler
	Requests    *handlers.RequestHandler
	Health      *handlers.HealthHandler
	OwnerTokens *auth.OwnerTokenService
}

// NewRouter builds the chi router: open signer endpoints, bearer-protected
// owner endpoints, and an IP rate limit on OTP verification in front of the
// per-session attempt cap.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", deps.Health.Health)

	otpLimiter := middleware.NewLimiter(time.Minute, 20)

	r.Route("/signing", func(r chi.Router) {
		r.With(middleware.RequireOwner(deps.OwnerTokens)).
			Post("/create-signing-session", deps.Signing.CreateSigningSession)
		r.Post("/get-signing-session", deps.Signing.GetSigningSession)
		r.With(middleware.RateLimit(otpLimiter, middleware.ClientIPKey)).
			Post("/verify-signing-otp", deps.Signing.VerifySigningOTP)
		r.Post("/complete-signature", deps.Signing.CompleteSignature)
	})

	r.Route("/requests", func(r chi.Router) {
		r.Use(middleware.RequireOwner(deps.OwnerTokens))
		r.Post("/", deps.Requests.CreateRequest)
		r.Post("/{id}/fields", deps.Requests.AddField)
	})

	return r
}
