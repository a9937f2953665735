package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TooLazyToCreate/counseling-service/config"
	"github.com/TooLazyToCreate/counseling-service/internal/password"
	"github.com/TooLazyToCreate/counseling-service/internal/repository"
	"github.com/TooLazyToCreate/counseling-service/internal/service"
	"github.com/TooLazyToCreate/counseling-service/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type storage struct {
	users repository.UserRepository
	notes repository.NoteRepository
	close func() error
}

func Run(logger *zap.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			logger.Error("Connection to database was closed with error", zap.Error(err))
		}
	}()

	tokens := token.NewService(cfg.Secret(), cfg.TokenLifetime)
	authService, err := service.NewAuthService(logger, store.users, password.NewHasher(password.DefaultParams), tokens)
	if err != nil {
		return err
	}
	noteService := service.NewNoteService(logger, store.notes, store.users)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           NewRouter(logger, cfg, authService, noteService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Will serve on " + server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data will be lost on restart")
		mem := repository.NewInMemory()
		return &storage{users: mem.Users(), notes: mem.Notes(), close: func() error { return nil }}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseDsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("Connected to database")

	if err = repository.Migrate(ctx, logger, db); err != nil {
		db.Close()
		return nil, err
	}
	return &storage{
		users: repository.NewUserRepository(logger, db),
		notes: repository.NewNoteRepository(logger, db),
		close: db.Close,
	}, nil
}

func NewRouter(logger *zap.Logger, cfg *config.Config, authService *service.AuthService, noteService *service.NoteService) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	// RemoteAddr carries the client ip before proxies, without the port
	router.Use(middleware.RealIP)
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				r.RemoteAddr = host
			}
			next.ServeHTTP(w, r)
		})
	})
	router.Use(middleware.Recoverer)

	/* Request log in dev mode only; the Authorization header is never logged */
	if cfg.IsDev() {
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				started := time.Now()
				ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
				next.ServeHTTP(ww, r)
				logger.Debug("Request to "+r.URL.Path,
					zap.String("method", r.Method),
					zap.String("ip", r.RemoteAddr),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(started)))
			})
		})
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}))

	router.Get("/", handleRoot)
	router.Post("/register", authService.HandleRegister)
	router.Post("/login", authService.HandleLogin)

	router.Group(func(r chi.Router) {
		r.Use(authService.RequireUser)
		r.Get("/hello", authService.HandleHello)
		r.Route("/notes", func(r chi.Router) {
			r.Post("/", noteService.HandleCreate)
			r.Get("/", noteService.HandleList)
			r.Get("/{"+service.NoteIDParam+"}", noteService.HandleGet)
			r.Put("/{"+service.NoteIDParam+"}", noteService.HandleUpdate)
			r.Delete("/{"+service.NoteIDParam+"}", noteService.HandleDelete)
		})
	})

	return router
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"Hello":"World"}` + "\n"))
}
