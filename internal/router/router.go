package router

import (
	"context"
	"crypto/rand"
	"database/sql"
	"net/http"
	"time"

	_ "pet-health-api/docs"
	"pet-health-api/internal/adapters/auth/jwttoken"
	mem "pet-health-api/internal/adapters/storage/memory"
	pg "pet-health-api/internal/adapters/storage/postgres"
	"pet-health-api/internal/config"
	"pet-health-api/internal/domain/accessgrants"
	"pet-health-api/internal/domain/accounts"
	"pet-health-api/internal/domain/guard"
	"pet-health-api/internal/domain/pets"
	"pet-health-api/internal/domain/records"
	"pet-health-api/internal/middleware"
	"pet-health-api/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	jujuerrors "github.com/juju/errors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Logger logger.Logger // nil => nop

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Auth           config.AuthConfig
	BootstrapAdmin config.BootstrapAdminConfig
}

func NewRouter(opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	secret := []byte(opts.Auth.JWTSecret)
	if len(secret) == 0 {
		// Modo dev: los tokens dejan de valer al reiniciar.
		secret = make([]byte, config.MinJWTSecretLen)
		if _, err := rand.Read(secret); err != nil {
			return nil, jujuerrors.Annotate(err, "generating jwt secret")
		}
		log.Warn("auth.jwt_secret not set, using a random secret", nil)
	}

	tokens, err := jwttoken.New(jwttoken.Config{
		Secret: secret,
		Issuer: opts.Auth.Issuer,
		TTL:    opts.Auth.TokenTTL,
	})
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}

	var (
		accountRepo accounts.Repository
		petRepo     pets.Repository
		recordRepo  records.Repository
		grantsRepo  accessgrants.Repository
	)

	if opts.DB != nil {
		accountRepo = pg.NewAccountsRepo(opts.DB)
		petRepo = pg.NewPetsRepo(opts.DB)
		recordRepo = pg.NewRecordsRepo(opts.DB)
		grantsRepo = pg.NewAccessGrantsRepo(opts.DB)
	} else {
		accountRepo = mem.NewAccountRepo()
		petRepo = mem.NewPetRepo()
		recordRepo = mem.NewRecordRepo()
		grantsRepo = mem.NewAccessGrantsRepo()
	}

	bcryptCost := opts.Auth.BcryptCost
	if bcryptCost == 0 {
		bcryptCost = config.DefaultBcryptCost
	}

	// Services por módulo. accessgrants necesita pets (dueño) y accounts
	// (vet aprobado); el guard necesita accessgrants. Se cablea con interfaces.
	accountsSvc := accounts.NewService(accountRepo, tokens, bcryptCost)
	petsLookup := &petOwnerLookup{}
	grantsSvc := accessgrants.NewService(grantsRepo, petsLookup, accountsSvc)
	accessGuard := guard.New(grantsSvc)
	petsSvc := pets.NewService(petRepo, accessGuard)
	petsLookup.svc = petsSvc
	recordsSvc := records.NewService(recordRepo, petsSvc, accessGuard)

	if opts.BootstrapAdmin.Enabled() {
		if err := seedAdmin(accountsSvc, opts.BootstrapAdmin, log); err != nil {
			return nil, err
		}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover)

	r.Use(middleware.AuthContext(tokens))

	r.Get("/health", healthHandler(opts.DB))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Rutas por módulo
	accounts.RegisterRoutes(r, accountsSvc)
	pets.RegisterRoutes(r, petsSvc, grantsSvc)
	records.RegisterRoutes(r, recordsSvc)
	accessgrants.RegisterRoutes(r, grantsSvc)

	return r, nil
}

// petOwnerLookup rompe el ciclo de construcción pets -> guard -> accessgrants -> pets.
type petOwnerLookup struct {
	svc *pets.Service
}

func (l *petOwnerLookup) OwnerOf(ctx context.Context, petID string) (string, error) {
	return l.svc.OwnerOf(ctx, petID)
}

func seedAdmin(svc *accounts.Service, cfg config.BootstrapAdminConfig, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, created, err := svc.EnsureAdmin(ctx, cfg.Email, cfg.Password, cfg.Name)
	if err != nil {
		return jujuerrors.Annotate(err, "seeding bootstrap admin")
	}
	if created {
		log.Info("bootstrap admin created", map[string]any{"user_id": a.ID, "email": a.Email})
	}
	return nil
}

// healthHandler godoc
// @Summary Health check
// @Description Con Postgres configurado, también hace ping a la base.
// @Tags health
// @Produce plain
// @Success 200 {string} string "ok"
// @Failure 503 {string} string "database unavailable"
// @Router /health [get]
func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.FromContext(r.Context()).Error("health: database ping failed", map[string]any{"error": err})
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
