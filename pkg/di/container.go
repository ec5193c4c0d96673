package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/cache"
	"github.com/Victorkib/mentacare-backend-admin/internal/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/blob"
	"github.com/Victorkib/mentacare-backend-admin/internal/config"
	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/metrics"
	"github.com/Victorkib/mentacare-backend-admin/internal/service"
	"github.com/Victorkib/mentacare-backend-admin/internal/store"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web"
	authv1 "github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/auth"
	"github.com/Victorkib/mentacare-backend-admin/internal/transport/web/v1/health"
	"github.com/Victorkib/mentacare-backend-admin/repositorycache"
)

// revokedPrefix namespaces revoked token ids in Redis.
const revokedPrefix = "mentacare:revoked:"

// Container builds and owns every long-lived component of the service.
// Components are created once in NewContainer and shared by the getters.
type Container struct {
	cfg     *config.Config
	log     logr.Logger
	db      *bun.DB
	cache   cache.Store
	metrics *metrics.Metrics
	redis   redis.UniversalClient
	blob    blob.Storage

	blacklist auth.Blacklist
	admins    *service.AdminService
	auth      *service.AuthService
	patients  *service.PatientService
	therapist *service.TherapistService
	sessions  *service.SessionService

	checks []health.Check
}

// NewContainer wires the database, cache, token revocation store, object
// storage and services described by cfg. The caller owns the returned
// container and must Close it.
func NewContainer(ctx context.Context, cfg *config.Config, log logr.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: config is required")
	}
	c := &Container{cfg: cfg, log: log, metrics: metrics.New()}

	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	c.db = db
	c.checks = append(c.checks, health.Check{Name: "database", Pinger: health.PingFunc(db.PingContext)})

	base, err := cache.NewStore(CacheConfig(cfg))
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("di: cache: %w", err)
	}
	c.cache = cache.Instrumented(base, c.metrics)

	if cfg.RedisAddr != "" {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rb := auth.NewRedisBlacklist(c.redis, revokedPrefix)
		c.blacklist = rb
		c.checks = append(c.checks, health.Check{Name: "redis", Pinger: rb})
	} else {
		c.blacklist = auth.NewMemoryBlacklist()
	}

	if cfg.BlobEnabled() {
		s3, err := blob.NewS3(blob.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		if err := s3.EnsureBucket(ctx, cfg.S3Region); err != nil {
			_ = c.Close()
			return nil, err
		}
		c.blob = s3
	}

	c.buildServices()
	log.Info("container ready",
		"db_driver", cfg.DBDriver,
		"cache_backend", cfg.CacheBackend,
		"redis", c.redis != nil,
		"blob", c.blob != nil,
	)
	return c, nil
}

func (c *Container) buildServices() {
	deps := service.Deps{
		DB:    c.db,
		Cache: c.cache,
		Log:   c.log,
		Blob:  c.blob,
	}
	patients := store.NewPatientStore(c.db)
	therapists := store.NewTherapistStore(c.db)
	adminRepo := NewCachedRepository(c, store.NewAdminRepository(c.db), cache.RegionAdmins)

	hasher := auth.NewHasher()
	tokens := auth.NewManager(auth.TokenConfig{
		AccessSecret:  c.cfg.JWTAccessSecret,
		RefreshSecret: c.cfg.JWTRefreshSecret,
		Issuer:        c.cfg.JWTIssuer,
		AccessTTL:     c.cfg.AccessTokenTTL,
		RefreshTTL:    c.cfg.RefreshTokenTTL,
	})

	c.admins = service.NewAdminService(deps, adminRepo, hasher)
	c.auth = service.NewAuthService(deps, adminRepo, tokens, hasher, c.blacklist)
	c.patients = service.NewPatientService(deps, patients, therapists)
	c.therapist = service.NewTherapistService(deps, therapists, patients)
	c.sessions = service.NewSessionService(deps, store.NewSessionStore(c.db), patients, therapists, c.admins)
}

// CacheConfig maps service settings onto the cache store configuration.
func CacheConfig(cfg *config.Config) cache.Config {
	cc := cache.DefaultConfig()
	if cfg.CacheBackend != "" {
		cc.Backend = cache.Backend(cfg.CacheBackend)
	}
	if cfg.CacheCapacity > 0 {
		cc.Capacity = cfg.CacheCapacity
	}
	return cc
}

// Migrate creates the schema on the container's database.
func (c *Container) Migrate(ctx context.Context) error {
	return store.CreateSchema(ctx, c.db)
}

// Handler builds the HTTP handler serving the admin API.
func (c *Container) Handler() http.Handler {
	return web.NewRouter(web.Deps{
		Log:        c.log,
		Metrics:    c.metrics,
		Auth:       c.auth,
		Admins:     c.admins,
		Patients:   c.patients,
		Therapists: c.therapist,
		Sessions:   c.sessions,
		Checks:     c.checks,
		Cookies: authv1.CookieConfig{
			Secure: c.cfg.CookieSecure,
			Domain: c.cfg.CookieDomain,
		},
		ExposeInternalErrors: c.cfg.ExposeInternalErrors,
	})
}

// Server returns an HTTP server bound to the configured port.
func (c *Container) Server() *web.Server {
	return web.NewServer(c.log, c.cfg.AppPort, c.Handler())
}

// Bootstrap creates the first super admin. It refuses to run once any
// active super admin exists.
func (c *Container) Bootstrap(ctx context.Context, email, password, fullName string) (*domain.Admin, error) {
	n, err := store.CountActiveSuperAdmins(ctx, c.db)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, domain.Conflict("a super admin already exists", map[string]any{"superAdmins": n})
	}
	return c.admins.Create(ctx, service.AdminInput{
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     domain.RoleSuperAdmin,
	})
}

func (c *Container) Config() *config.Config {
	return c.cfg
}

func (c *Container) DB() *bun.DB {
	return c.db
}

func (c *Container) Cache() cache.Store {
	return c.cache
}

func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

func (c *Container) Blacklist() auth.Blacklist {
	return c.blacklist
}

func (c *Container) Checks() []health.Check {
	return c.checks
}

func (c *Container) Admins() *service.AdminService {
	return c.admins
}

func (c *Container) Auth() *service.AuthService {
	return c.auth
}

func (c *Container) Patients() *service.PatientService {
	return c.patients
}

func (c *Container) Therapists() *service.TherapistService {
	return c.therapist
}

func (c *Container) Sessions() *service.SessionService {
	return c.sessions
}

// Close releases the database and Redis connections.
func (c *Container) Close() error {
	var errs []error
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}

// NewCachedRepository wraps base so its reads go through the container's
// cache under namespace.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
func NewCachedRepository[T any](c *Container, base repository.Repository[T], namespace string) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, c.cache, repositorycache.WithNamespace(namespace))
}
