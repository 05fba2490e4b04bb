package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/gridbridge/internal/authex"
	"github.com/dropDatabas3/gridbridge/internal/cache"
	memcache "github.com/dropDatabas3/gridbridge/internal/cache/memory"
	redcache "github.com/dropDatabas3/gridbridge/internal/cache/redis"
	"github.com/dropDatabas3/gridbridge/internal/capability"
	"github.com/dropDatabas3/gridbridge/internal/config"
	"github.com/dropDatabas3/gridbridge/internal/consent"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	adminctrl "github.com/dropDatabas3/gridbridge/internal/http/controllers/admin"
	loginctrl "github.com/dropDatabas3/gridbridge/internal/http/controllers/login"
	"github.com/dropDatabas3/gridbridge/internal/http/router"
	"github.com/dropDatabas3/gridbridge/internal/idp/oidc"
	"github.com/dropDatabas3/gridbridge/internal/legacy"
	"github.com/dropDatabas3/gridbridge/internal/metrics"
	"github.com/dropDatabas3/gridbridge/internal/negotiation"
	"github.com/dropDatabas3/gridbridge/internal/observability/logger"
	"github.com/dropDatabas3/gridbridge/internal/services"
	memstore "github.com/dropDatabas3/gridbridge/internal/store/adapters/memory"
	pgstore "github.com/dropDatabas3/gridbridge/internal/store/adapters/pg"
	"github.com/dropDatabas3/gridbridge/internal/store/core"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load(os.Getenv("GRIDBRIDGE_CONFIG"))
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "gridbridge",
	})
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Cache compartido: todo el estado efímero vive acá
	var store cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		store = redcache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB)
		log.Printf("🗄️  Cache: redis @ %s", cfg.Cache.Redis.Addr)
	default:
		store = memcache.New(config.ParseDuration(cfg.Cache.Memory.DefaultTTL, 10*time.Minute))
		log.Println("🗄️  Cache: memory")
	}

	// Repositorio de usuarios (allow-list + credenciales directas)
	var users core.UserRepository
	switch cfg.Storage.Driver {
	case "pg":
		users, err = pgstore.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("❌ postgres: %v", err)
		}
		log.Println("🐘 Storage: postgres")
	default:
		users = memstore.New()
		log.Println("⚠️  Storage: memory (solo desarrollo)")
	}

	caps := capability.NewStore(store, cfg.Server.PublicURL,
		config.ParseDuration(cfg.Capabilities.TTL, capability.DefaultTTL))
	cookies := consent.NewStore(store)

	// Registrar services en orden de configuración
	svcRegistry := services.NewRegistry()
	endpoints := make(map[types.ServiceID]authex.Endpoints)
	for _, sc := range cfg.Services {
		id := types.ServiceID(sc.Identifier)
		switch sc.Kind {
		case "local":
			svcRegistry.Register(id, services.LocalProvider{
				Store:    caps,
				Handlers: sc.Handlers,
				Order:    sc.Capabilities,
			})
		default:
			svcRegistry.Register(id, services.RemoteProvider{Capabilities: sc.Capabilities})
			endpoints[id] = authex.Endpoints{
				RequestURL:   sc.RequestURL,
				AuthorizeURL: sc.AuthorizeURL,
				AccessURL:    sc.AccessURL,
			}
		}
	}
	log.Printf("🔌 Services registrados: %d", len(cfg.Services))

	extTimeout := config.ParseDuration(cfg.Login.ExternalTimeout, 15*time.Second)
	authClient := authex.NewHTTPClient(endpoints, store, extTimeout)

	if cfg.OpenID.IssuerURL == "" {
		log.Fatal("❌ openid.issuer_url es requerido")
	}
	verifier, err := oidc.New(ctx, oidc.Config{
		IssuerURL:    cfg.OpenID.IssuerURL,
		ClientID:     cfg.OpenID.ClientID,
		ClientSecret: cfg.OpenID.ClientSecret,
		Timeout:      config.ParseDuration(cfg.OpenID.Timeout, 15*time.Second),
	}, store, cfg.Server.PublicURL+"/login/openid_callback")
	if err != nil {
		log.Fatalf("❌ oidc: %v", err)
	}

	responder := legacy.NewResponder(cfg.Login.Issuer, []byte(cfg.Login.Secret),
		config.ParseDuration(cfg.Login.SessionTokenTTL, 12*time.Hour))

	registry := negotiation.NewRegistry(store, svcRegistry)
	orch := negotiation.NewOrchestrator(negotiation.Deps{
		Registry:        registry,
		Cache:           store,
		Users:           users,
		Verifier:        verifier,
		AuthClient:      authClient,
		Cookies:         cookies,
		Responder:       responder,
		LoginURL:        cfg.Server.PublicURL + "/login/",
		CallbackURL:     cfg.Server.PublicURL + "/login",
		ExternalTimeout: extTimeout,
	})

	if err := metrics.RegisterNegotiation(nil); err != nil {
		log.Fatalf("❌ metrics: %v", err)
	}

	handler := router.New(router.Deps{
		Login: loginctrl.NewController(orch, loginctrl.CookieConfig{
			Domain:   cfg.Cookies.Domain,
			SameSite: cfg.Cookies.SameSite,
			Secure:   cfg.Cookies.Secure,
		}, cfg.Server.PublicURL),
		Caps:        loginctrl.NewCapsController(caps),
		Admin:       adminctrl.NewController(registry, caps),
		AdminAPIKey: cfg.Admin.APIKey,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("🚀 gridbridge listo en %s (public: %s)", cfg.Server.Addr, cfg.Server.PublicURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  shutdown: %v", err)
	}
	log.Println("👋 gridbridge detenido")
}
