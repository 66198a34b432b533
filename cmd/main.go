package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/Tamarin/config"
	"github.com/lshigami/Tamarin/database"
	_ "github.com/lshigami/Tamarin/docs" // Swagger docs
	"github.com/lshigami/Tamarin/internal/controller"
	"github.com/lshigami/Tamarin/internal/logger"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/lshigami/Tamarin/internal/repository"
	"github.com/lshigami/Tamarin/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Study Material Test Engine API
// @version 1.0
// @description Upload study materials, index them for semantic search, and generate and grade AI-assisted tests from them.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		fx.Provide(
			repository.NewMaterialRepository,
			repository.NewTestRepository,
			repository.NewQuestionRepository,
			repository.NewTestAttemptRepository,
			repository.NewAnswerRepository,
			repository.NewChunkRepository,
		),

		fx.Provide(
			service.NewFileStorageService,
			service.NewTextExtractor,
			service.NewEmbeddingService,
			service.NewVectorIndexService,
			service.NewGeminiLLMService,
			service.NewQuestionGeneratorService,
			service.NewAnswerEvaluatorService,
			func(
				cfg *config.Config,
				materialRepo repository.MaterialRepository,
				storage service.FileStorageService,
				extractor service.TextExtractor,
				vectorIndex service.VectorIndexService,
			) service.MaterialService {
				return service.NewMaterialService(materialRepo, storage, extractor, vectorIndex,
					cfg.Chunking.MaxChunkSize, cfg.Chunking.Overlap)
			},
			service.NewTestService,
		),

		fx.Provide(
			controller.NewMaterialController,
			controller.NewTestController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer wires the API routes and ties the HTTP server
// to the fx lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	materialCtrl *controller.MaterialController,
	testCtrl *controller.TestController,
) {
	api := router.Group("/api/v1")
	{
		materials := api.Group("/materials")
		materials.POST("", materialCtrl.UploadMaterial)
		materials.GET("", materialCtrl.ListMaterials)
		materials.GET("/:material_id", materialCtrl.GetMaterial)
		materials.DELETE("/:material_id", materialCtrl.DeleteMaterial)
		materials.POST("/:material_id/reprocess", materialCtrl.ReprocessMaterial)
		materials.POST("/:material_id/search", materialCtrl.SearchMaterial)

		tests := api.Group("/tests")
		tests.POST("", testCtrl.CreateTest)
		tests.GET("", testCtrl.ListTests)
		tests.GET("/:test_id", testCtrl.GetTest)
		tests.DELETE("/:test_id", testCtrl.DeleteTest)
		tests.POST("/:test_id/attempts", testCtrl.StartAttempt)
		tests.GET("/:test_id/attempts", testCtrl.ListAttempts)

		attempts := api.Group("/attempts")
		attempts.GET("/:attempt_id", testCtrl.GetAttempt)
		attempts.POST("/:attempt_id/answers", testCtrl.SubmitAnswer)
		attempts.POST("/:attempt_id/complete", testCtrl.CompleteAttempt)

		api.GET("/statistics", testCtrl.GetUserStatistics)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Test engine API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Material{},
		&model.Test{},
		&model.Question{},
		&model.Choice{},
		&model.TestAttempt{},
		&model.StudentAnswer{},
		&model.VectorCollection{},
		&model.DocumentChunk{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
