package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradeflow-api/internal/config"
	"github.com/noah-isme/gradeflow-api/internal/database"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/handler"
	"github.com/noah-isme/gradeflow-api/internal/middleware"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/observability"
	"github.com/noah-isme/gradeflow-api/internal/repository"
	"github.com/noah-isme/gradeflow-api/internal/router"
	"github.com/noah-isme/gradeflow-api/internal/service"
	cloud "github.com/noah-isme/gradeflow-api/pkg/cloudinary"
	"github.com/noah-isme/gradeflow-api/pkg/jobs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Question{},
		&models.Submission{},
		&models.Answer{},
		&models.Override{},
		&models.Grade{},
		&models.Appeal{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	queueCache := service.NewNoopQueueCache()
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		queueCache = service.NewRedisQueueCache(redisClient, cfg.GradingQueueCacheTTL, logger)
	}

	dispatcher := events.NewNoopDispatcher()
	if cfg.NATSURL != "" {
		natsConn, err := database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
		dispatcher = events.NewNATSDispatcher(natsConn, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db, true)
	answerRepo := repository.NewAnswerRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	appealRepo := repository.NewAppealRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	gradingDefaults := service.GradingDefaults{LatePenaltyPercent: cfg.LatePenaltyPercentDefault}
	submissionDefaults := service.SubmissionDefaults{AllowResubmit: cfg.AllowResubmitDefault}

	overrideService := service.NewOverrideService(overrideRepo, assignmentRepo, dispatcher, validate, logger)
	gradingService := service.NewGradingService(
		submissionRepo, answerRepo, questionRepo, assignmentRepo, gradeRepo, userRepo,
		queueCache, dispatcher, validate, gradingDefaults, logger,
	)

	// The queue handler is bound after the bulk service exists; jobs cannot
	// arrive before Start is called below.
	var bulkService service.BulkService
	queue := jobs.NewQueue("grading", func(ctx context.Context, job jobs.Job) error {
		err := bulkService.HandleJob(ctx, job)
		result := "ok"
		if err != nil {
			result = "error"
		}
		observability.JobsProcessed().WithLabelValues(job.Type, result).Inc()
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.JobWorkers,
		BufferSize: cfg.JobBufferSize,
		Logger:     logger,
	})
	bulkService = service.NewBulkService(
		submissionRepo, answerRepo, questionRepo, assignmentRepo, gradeRepo,
		gradingService, gradingDefaults, queue, dispatcher, validate, logger,
	)

	questionService := service.NewQuestionService(questionRepo, assignmentRepo, bulkService, dispatcher, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, questionRepo, submissionRepo, overrideService, dispatcher, validate, logger)
	submissionService := service.NewSubmissionService(
		submissionRepo, answerRepo, assignmentRepo, enrollmentRepo,
		questionService, overrideService, assignmentService, gradingService,
		uploader, service.NewNoopIndexer(), dispatcher, validate,
		submissionDefaults, logger,
	)
	appealService := service.NewAppealService(appealRepo, submissionRepo, uploader, dispatcher, validate, logger)
	retentionService := service.NewRetentionService(answerRepo, uploader, cfg.FileRetentionDays, logger)

	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	queue.Start(runCtx)
	defer queue.Stop()

	go runRetentionLoop(runCtx, retentionService, logger)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	questionHandler := handler.NewQuestionHandler(questionService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, bulkService, logger)
	overrideHandler := handler.NewOverrideHandler(overrideService, logger)
	appealHandler := handler.NewAppealHandler(appealService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		QuestionHandler:   questionHandler,
		SubmissionHandler: submissionHandler,
		GradingHandler:    gradingHandler,
		OverrideHandler:   overrideHandler,
		AppealHandler:     appealHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers)
}

// runRetentionLoop expires answer files past the retention window once a day.
func runRetentionLoop(ctx context.Context, retention service.RetentionService, logger zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := retention.CleanupExpiredFiles(ctx); err != nil {
				logger.Error().Err(err).Msg("file retention sweep failed")
			}
		}
	}
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
