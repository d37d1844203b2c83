package main

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/Artisanstories/wholesale-management-app/internal/application"
	"github.com/Artisanstories/wholesale-management-app/internal/application/webhook_handlers"
	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	apiinfra "github.com/Artisanstories/wholesale-management-app/internal/infrastructure/api"
	appmetrics "github.com/Artisanstories/wholesale-management-app/internal/infrastructure/metrics"
	securitymiddleware "github.com/Artisanstories/wholesale-management-app/internal/infrastructure/middleware"
	"github.com/Artisanstories/wholesale-management-app/internal/infrastructure/repository"
	shopifyinfra "github.com/Artisanstories/wholesale-management-app/internal/infrastructure/shopify"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const callbackPath = "/auth/callback"

// shopCookieName persists the last authenticated shop so requests without
// a bearer token can still find the offline session.
const shopCookieName = "shopify_app_shop"

// bounceTemplate is the document the iframe receives from /auth/inline.
// A server redirect of the top window cannot be issued from a third-party
// iframe; only a script running inside it may ask the top window to
// navigate, so the page's sole job is that assignment.
var bounceTemplate = template.Must(template.New("bounce").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Redirecting…</title></head>
<body>
<script>
  var target = {{.Target}};
  try {
    if (window.top && window.top !== window.self) {
      window.top.location.href = target;
    } else {
      window.location.href = target;
    }
  } catch (e) {
    window.location.href = target;
  }
</script>
</body>
</html>
`))

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET environment variables are required")
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}
	appURL = strings.TrimSuffix(appURL, "/")

	scopes := splitScopes(os.Getenv("SCOPES"))
	if len(scopes) == 0 {
		scopes = []string{"read_products", "read_customers", "write_themes"}
	}

	webhookSecret := os.Getenv("SHOPIFY_WEBHOOK_SECRET")
	if webhookSecret == "" {
		// Webhooks registered through the admin are signed with the API
		// secret itself.
		webhookSecret = apiSecret
	}

	// Session persistence: durable MongoDB by default, in-process memory
	// for single-instance dev deployments.
	var (
		sessionRepo  ports.SessionRepository
		settingsRepo ports.SettingsRepository
		tagRuleRepo  ports.TagRuleRepository
	)
	if os.Getenv("SESSION_BACKEND") == "memory" {
		logger.Warn().Msg("Using in-memory session storage; sessions will not survive a restart")
		sessionRepo = repository.NewMemorySessionRepository()
		settingsRepo = repository.NewMemorySettingsRepository()
		tagRuleRepo = repository.NewMemoryTagRuleRepository()
	} else {
		mongoURI := os.Getenv("MONGODB_URI")
		if mongoURI == "" {
			mongoURI = "mongodb://localhost:27017"
		}
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		dbName := os.Getenv("MONGODB_DATABASE")
		if dbName == "" {
			dbName = "wholesale"
		}
		db := client.Database(dbName)
		sessionRepo = repository.NewMongoSessionRepository(db)
		settingsRepo = repository.NewMongoSettingsRepository(db)
		tagRuleRepo = repository.NewMongoTagRuleRepository(db)
	}

	// Nonce storage: Redis when available (multi-instance safe, native
	// TTL), in-process memory otherwise.
	var authRequestRepo ports.AuthRequestRepository
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		authRequestRepo = repository.NewRedisAuthRequestRepository(redisClient)
	} else {
		authRequestRepo = repository.NewMemoryAuthRequestRepository()
	}

	// Platform client and services
	platformClient := shopifyinfra.NewClient(apiKey, apiSecret, logger)
	shopResolver := application.NewShopResolver()
	authService := application.NewAuthService(sessionRepo, authRequestRepo, platformClient, scopes, appURL, logger)
	wholesaleService := application.NewWholesaleService(settingsRepo, tagRuleRepo, platformClient, logger)
	themeService := application.NewThemeService(platformClient, logger)

	// Webhook dispatcher
	webhookVerifier := shopifyinfra.NewWebhookVerifier(webhookSecret)
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, sessionRepo, settingsRepo, tagRuleRepo, themeService))

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := appmetrics.New(registry)

	// Request verification middleware
	tokenVerifier := shopifyinfra.NewSessionTokenVerifier(apiKey, apiSecret)
	verify := securitymiddleware.NewVerifyRequest(tokenVerifier, sessionRepo, shopResolver, metrics, logger)

	restHandler := apiinfra.NewHandler(wholesaleService, platformClient, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/begin", beginHandler(authService, metrics, logger))
	r.Get("/auth/inline", inlineBounceHandler(authService, shopResolver, logger))
	r.Get(callbackPath, callbackHandler(authService, metrics, logger))

	// Webhook endpoint
	r.Post("/webhooks/app_uninstalled", webhookHandler(webhookVerifier, webhookDispatcher, logger))

	// Protected API
	r.Group(func(r chi.Router) {
		r.Use(verify.Handler)
		r.Get("/session/ensure", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/api/settings", restHandler.GetSettings)
		r.Put("/api/settings", restHandler.PutSettings)
		r.Get("/api/tag-rules", restHandler.ListTagRules)
		r.Put("/api/tag-rules", restHandler.PutTagRule)
		r.Delete("/api/tag-rules", restHandler.DeleteTagRule)
		r.Get("/api/customers", restHandler.GetCustomers)
		r.Get("/api/wholesale/preview", restHandler.GetPreview)
		r.Get("/api/wholesale/export.csv", restHandler.ExportPreviewCSV)
		r.Post("/api/graphql", restHandler.GraphQLProxy)
	})

	// Embedded shell and static assets
	r.Get("/app", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./web/static/index.html")
	})
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir("./web/static"))))

	// Install entry: a top-level visit with ?shop= kicks off OAuth.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if shop := r.URL.Query().Get("shop"); shop != "" {
			http.Redirect(w, r, "/auth/begin?shop="+url.QueryEscape(shop), http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("Provide ?shop=your-store.myshopify.com to install."))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// beginHandler starts the OAuth handshake. This endpoint must be reached
// by a top-level navigation; the inline bounce page exists to get the
// browser here from inside the iframe.
func beginHandler(authService *application.AuthService, metrics *appmetrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		online := r.URL.Query().Get("online") == "1"

		authURL, err := authService.Begin(r.Context(), r.URL.Query().Get("shop"), callbackPath, online)
		if err != nil {
			logger.Error().Err(err).Msg("OAuth begin failed")
			http.Error(w, authErrorMessage(err), authErrorStatus(err))
			return
		}

		metrics.OAuthBegins.Inc()
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// inlineBounceHandler is the top-level-reachable page that breaks the
// browser out of the iframe. When a session already validates, it
// short-circuits straight back into the app without a new OAuth round
// trip.
func inlineBounceHandler(authService *application.AuthService, resolver *application.ShopResolver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop, ok := resolver.Resolve(r)
		if !ok {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		if authService.HasValidSession(r.Context(), shop) {
			http.Redirect(w, r, authService.EmbeddedAppURL(shop, r.URL.Query().Get("host")), http.StatusFound)
			return
		}

		target := "/auth/begin?shop=" + url.QueryEscape(shop)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := bounceTemplate.Execute(w, map[string]string{"Target": target}); err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to render bounce document")
		}
	}
}

// callbackHandler completes the OAuth handshake and sends the browser
// back into the embedded shell.
func callbackHandler(authService *application.AuthService, metrics *appmetrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		session, redirectTo, err := authService.Callback(r.Context(), application.CallbackParams{
			Shop:  query.Get("shop"),
			Code:  query.Get("code"),
			State: query.Get("state"),
			Host:  query.Get("host"),
		})
		if err != nil {
			metrics.OAuthCallbacks.WithLabelValues(outcomeLabel(err)).Inc()
			logger.Error().Err(err).Msg("OAuth callback failed")
			http.Error(w, authErrorMessage(err), authErrorStatus(err))
			return
		}

		metrics.OAuthCallbacks.WithLabelValues("success").Inc()

		http.SetCookie(w, &http.Cookie{
			Name:     shopCookieName,
			Value:    session.Shop,
			Path:     "/",
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteNoneMode,
		})
		http.Redirect(w, r, redirectTo, http.StatusFound)
	}
}

// webhookHandler verifies and dispatches platform webhook deliveries.
func webhookHandler(verifier *shopifyinfra.WebhookVerifier, dispatcher *application.WebhookDispatcher, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if err := verifier.Verify(payload, r.Header.Get("X-Shopify-Hmac-SHA256")); err != nil {
			logger.Warn().Err(err).Msg("Webhook signature verification failed")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			topic = "app/uninstalled"
		}

		event := &domain.WebhookEvent{
			Topic:    topic,
			Shop:     r.Header.Get("X-Shopify-Shop-Domain"),
			Payload:  payload,
			Verified: true,
		}

		if err := dispatcher.Dispatch(r.Context(), event); err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("Failed to dispatch webhook event")
			// 500 makes the platform retry the delivery.
			http.Error(w, "failed to process webhook", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func authErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrClientError):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrClientError):
		return "missing or malformed shop parameter"
	case errors.Is(err, domain.ErrAuthExpired):
		return "authorization request expired; restart installation"
	default:
		return "internal server error"
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrClientError):
		return "client_error"
	case errors.Is(err, domain.ErrAuthExpired):
		return "auth_expired"
	default:
		return "upstream_error"
	}
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, scope := range strings.Split(raw, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}
