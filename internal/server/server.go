package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"pharmacy-ledger/internal/config"
	"pharmacy-ledger/internal/events"
	"pharmacy-ledger/internal/events/kafka"
	"pharmacy-ledger/internal/handler"
	"pharmacy-ledger/internal/repository"
	"pharmacy-ledger/internal/service"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
	port   string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Successfully connected to database")

	// Unit of work over both ledger repositories
	store := repository.NewStore(db, logger)

	// Event publisher: noop unless brokers are configured
	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers)
		logger.Info("Kafka publisher enabled", "brokers", cfg.KafkaBrokers)
	}

	accountService := service.NewAccountService(store, logger)
	ledgerService := service.NewLedgerService(store, publisher, logger)
	transferService := service.NewTransferService(store, publisher, logger)

	accountHandler := handler.NewAccountHandler(accountService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	transferHandler := handler.NewTransferHandler(transferService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	// Account routes
	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.UpdateAccount).Methods("PATCH")

	// Ledger routes
	router.HandleFunc("/accounts/{account_id}/balance", ledgerHandler.GetBalance).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/transactions", ledgerHandler.ApplyTransaction).Methods("POST")
	router.HandleFunc("/accounts/{account_id}/transactions", ledgerHandler.History).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/summary", ledgerHandler.Summary).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/reconciliation", ledgerHandler.Reconcile).Methods("GET")

	// Transfer routes
	router.HandleFunc("/transfers", transferHandler.Transfer).Methods("POST")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router: router,
		db:     db,
		logger: logger,
	}, nil
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if s.db != nil {
		s.db.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment - keep output quiet
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
