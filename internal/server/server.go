package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bidwise/bidcore/internal/dependency"
	"github.com/bidwise/bidcore/pkg/logger"
	"github.com/bidwise/bidcore/pkg/utils"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	HTTPServer   *http.Server
	Dependencies *dependency.Dependencies
	Logger       *logger.Logger

	sweepInterval time.Duration
}

func New() *Server {
	log := logger.NewLogger()
	host := utils.GetEnv("SERVER_HOST", "0.0.0.0")
	port := utils.GetEnv("SERVER_PORT", "8080")

	serverAddr := fmt.Sprintf("%s:%s", host, port)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dependencies, err := dependency.NewDependencies(ctx, log)
	if err != nil {
		log.Errorw("[Dependency] failed to initialize", "error", err)
		panic(err)
	}

	serv := &Server{
		Dependencies:  dependencies,
		Logger:        log,
		sweepInterval: utils.GetDurationEnv("SWEEP_INTERVAL", 30*time.Second),
	}

	// builds router
	mux := serv.routes()
	serv.HTTPServer = &http.Server{
		Addr:         serverAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return serv
}

func (s *Server) Run() error {
	s.Logger.Infow("[SERVER] running", "address", s.HTTPServer.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Expired auctions get swept in the background for as long as the
	// server runs.
	go s.Dependencies.Services.Lifecycle.RunSweeper(ctx, s.sweepInterval)

	// Run Server in the background
	go func() {
		if err := s.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Errorw("[SERVER] failed to serve", "error", err)
		}
	}()

	// Listen for the interrupt signal
	<-ctx.Done()
	s.Logger.Infow("[SERVER] shutdown signal received")

	// create shutdown context with 30 - sec timeout
	shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop http server
	if err := s.HTTPServer.Shutdown(shutCtx); err != nil {
		s.Logger.Errorw("[SERVER] shutdown failed", "error", err)
		return err
	}

	// close publishers, cache and ledger
	if err := s.Dependencies.Close(); err != nil {
		s.Logger.Errorw("[Dependency] close failed", "error", err)
		return err
	}

	s.Logger.Infow("[SERVER] shutdown complete.")
	return nil
}
