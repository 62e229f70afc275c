package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exoplanet-backend/cmd"
	"exoplanet-backend/internal/api"
	"exoplanet-backend/internal/config"
	"exoplanet-backend/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func createRouter(predictor *core.Predictor) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		// Echo the caller's origin; a literal "*" is rejected by browsers on
		// credentialed requests.
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300, // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(api.Recoverer)
	// Requests are not timed out.

	api.NewPredictionService(predictor).AddRoutes(r)

	return r
}

func main() {
	log.Println("Starting prediction server...")

	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logs := cmd.InitLogging(cfg.Log)
	defer logs.Close()

	// The model is loaded before the listener binds, so the first request
	// already sees the final predictor state.
	predictor := cmd.InitializePredictor(context.Background(), cfg)
	defer func() {
		predictor.Release()
		if err := core.DestroyOnnxRuntime(); err != nil {
			slog.Error("error destroying onnx env", "error", err)
		}
	}()

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: createRouter(predictor),
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	slog.Info("prediction server listening", "addr", cfg.Addr(), "model_loaded", predictor.Ready())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.Addr(), err)
	}

	log.Println("Server stopped.")
}
