package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/pkg/httpx"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"

	_ "github.com/aussiebroadwan/sqrl/api/sqrl" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultCookieName is the session cookie set after an authenticated login.
const DefaultCookieName = "sqrl_session"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// CookieName is the session cookie. Empty disables cookies, so the
	// ticket is only returned in the login response body.
	CookieName string

	// Diagnostics exposes GET /sqrl/diag.
	Diagnostics bool

	Nuts            *service.NutRegistry
	LoginService    *service.LoginService
	AskService      *service.AskService
	IdentityService *service.IdentityService

	// KeyRotationService enables the /v1/admin/keys endpoints when set.
	KeyRotationService *service.KeyRotationService
}

func NewRouter(
	keys *jwtx.KeyManager,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		CookieName:   DefaultCookieName,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSQRL()
	r.registerIdentity()
	r.registerSession()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			SQRL Login Service API
//	@version		0.1.0
//	@description	Out-of-band public key login. A page asks for a nut, the client signs it with
//	@description	its identity key and the service answers with a decision and a session ticket.
//	@description
//	@description				Session tickets are EdDSA JWTs verifiable with the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/sqrl
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session ticket. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSQRL() {
	nutHandler := &NutHandler{Nuts: r.Nuts}

	// POST /sqrl/nut - lenient rate limit (every login page view asks for one)
	r.Mux.Handle("POST /sqrl/nut",
		httpx.Chain(nutHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	loginHandler := &LoginHandler{
		LoginService: r.LoginService,
		CookieName:   r.CookieName,
	}

	// POST /sqrl/login - moderate rate limit by IP
	r.Mux.Handle("POST /sqrl/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	askHandler := &AskHandler{AskService: r.AskService}

	// GET /sqrl/ask/{nut} - polled once per check interval, keyed by nut too
	r.Mux.Handle("GET /sqrl/ask/{nut}",
		httpx.Chain(http.HandlerFunc(askHandler.HandlePoll),
			httpx.RateLimitByIPAndPathValue(httpx.PublicLimit, "nut"),
		),
	)

	// POST /sqrl/ask/{nut} - moderate rate limit
	r.Mux.Handle("POST /sqrl/ask/{nut}",
		httpx.Chain(http.HandlerFunc(askHandler.HandleSubmit),
			httpx.RateLimitByIPAndPathValue(httpx.ModerateLimit, "nut"),
		),
	)

	if r.Diagnostics {
		r.Mux.Handle("GET /sqrl/diag",
			httpx.Chain(DiagnosticsHandler(r.Nuts),
				httpx.RateLimitByIP(httpx.LenientLimit),
			),
		)
	}
}

func (r *Router) registerIdentity() {
	h := &IdentityHandler{IdentityService: r.IdentityService}

	// POST /sqrl/identity/{cmd} - strict rate limit (account mutations)
	r.Mux.Handle("POST /sqrl/identity/{cmd}",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	secured := httpx.Chain(SessionHandler(),
		httpx.SessionMiddleware(r.keys.Verifier, r.CookieName),
		httpx.RateLimitBySubject(httpx.LenientLimit),
	)

	r.Mux.Handle("GET /v1/session", secured)

	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys.KeySet),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{IdentityService: r.IdentityService}

	admin := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.SessionMiddleware(r.keys.Verifier, r.CookieName),
			httpx.RequireRole(jwtx.RoleAdmin),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/admin/identities/{id}/lock", admin(h.HandleLock))
	r.Mux.Handle("POST /v1/admin/identities/{id}/unlock", admin(h.HandleUnlock))

	if r.KeyRotationService != nil {
		keys := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}
		r.Mux.Handle("GET /v1/admin/keys", admin(keys.HandleList))
		r.Mux.Handle("POST /v1/admin/keys/rotate", admin(keys.HandleRotate))
		r.Mux.Handle("POST /v1/admin/keys/{kid}/retire", admin(keys.HandleRetire))
	}
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys.KeySet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
