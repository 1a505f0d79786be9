package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/mind-engage/quizmaster/internal/api/http"
	auth "github.com/mind-engage/quizmaster/internal/auth/middleware"
	"github.com/mind-engage/quizmaster/internal/catalog"
	"github.com/mind-engage/quizmaster/internal/config"
	"github.com/mind-engage/quizmaster/internal/db"
	"github.com/mind-engage/quizmaster/internal/exam"
	"github.com/mind-engage/quizmaster/internal/progress"
	"github.com/mind-engage/quizmaster/internal/rbac"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	if err := api.EnsureAdmin(ctx, dbh, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("admin seed: %v", err)
	}

	// --- Stores and services ---
	catalogStore := catalog.NewSQLStore(dbh, cfg.DBDriver)
	progressStore := progress.NewSQLStore(dbh, cfg.DBDriver)
	examStore := exam.NewSQLStore(dbh, cfg.DBDriver)
	selector := &exam.Selector{
		Pool:    catalogStore,
		History: progressStore,
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	examSvc := exam.NewService(examStore, selector)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/signup", api.SignupHandler(dbh))
	r.Post("/auth/login", api.LoginHandler(dbh, authSvc))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Learner flow
		pr.With(rbac.Require("subject:list")).
			Get("/subjects", api.ListSubjectsHandler(catalogStore))
		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.CreateExamHandler(examSvc))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.ViewExamHandler(examSvc))
		pr.With(rbac.Require("exam:submit")).
			Post("/exams/{examID}/submit", api.SubmitExamHandler(examSvc))
		pr.With(rbac.Require("exam:result")).
			Get("/exams/{examID}/result", api.ExamResultHandler(examSvc))
		pr.With(rbac.Require("dashboard:view")).
			Get("/dashboard", api.DashboardHandler(catalogStore, progressStore))

		// Admin-only: catalog curation
		pr.With(rbac.Require("subject:manage")).
			Post("/subjects", api.CreateSubjectHandler(catalogStore))
		pr.With(rbac.Require("subject:manage")).
			Put("/subjects/{subjectID}", api.RenameSubjectHandler(catalogStore))
		pr.With(rbac.Require("subject:manage")).
			Delete("/subjects/{subjectID}", api.DeleteSubjectHandler(catalogStore))

		pr.With(rbac.Require("mcq:manage")).
			Get("/mcqs", api.ListMCQsHandler(catalogStore))
		pr.With(rbac.Require("mcq:manage")).
			Post("/mcqs", api.CreateMCQHandler(catalogStore))
		pr.With(rbac.Require("mcq:manage")).
			Put("/mcqs/{mcqID}", api.UpdateMCQHandler(catalogStore))
		pr.With(rbac.Require("mcq:manage")).
			Delete("/mcqs/{mcqID}", api.DeleteMCQHandler(catalogStore))
		pr.With(rbac.Require("mcq:manage")).
			Post("/mcqs/import", api.ImportMCQsHandler(catalogStore))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
