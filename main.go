package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"news-hand/config"
	"news-hand/models"
	"news-hand/providers"
	"news-hand/providers/huggingface"
	"news-hand/providers/newsdata"
	"news-hand/repository"
	"news-hand/services"
	"news-hand/storage"
)

// ingestRunTimeout begrenzt einen kompletten Ingest-Lauf über alle Topics.
const ingestRunTimeout = 2 * time.Minute

var (
	articlesStoredCounter  prometheus.Counter
	articlesUpdatedCounter prometheus.Counter
	biasScoresCounter      prometheus.Counter
)

func init() {
	articlesStoredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "news_articles_stored_total",
		Help: "Total number of new articles stored in the database.",
	})
	articlesUpdatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "news_articles_updated_total",
		Help: "Total number of existing articles refreshed by an ingest run.",
	})
	biasScoresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bias_scores_updated_total",
		Help: "Total number of bias scores written back to articles.",
	})
	prometheus.MustRegister(articlesStoredCounter, articlesUpdatedCounter, biasScoresCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Datenbank. TranslateError ist Pflicht: das Upsert-by-Link erkennt das
	// verlorene Rennen an gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to articles database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Article{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Services
	repo := repository.NewArticleRepository(db)

	store, err := storage.NewS3Store(context.Background(), cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	newsProviders := []providers.Provider{newsdata.NewFetcher(cfg, logging)}
	ingestService := services.NewIngestService(cfg, repo, store, logging, newsProviders)
	biasService := services.NewBiasService(cfg, repo, huggingface.NewClient(cfg, logging), logging)
	queryService := services.NewQueryService(cfg, repo, ingestService, biasService, logging)

	// Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupIngestRoutes(router, cfg, ingestService, logging)
	setupBiasRoutes(router, cfg, repo, biasService, logging)
	setupTopicRoutes(router, repo, logging)
	setupQueryRoutes(router, cfg, queryService, logging)

	// Cron: geplanter Refresh der konfigurierten Topics.
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled ingest job...")
		ctx, cancel := context.WithTimeout(context.Background(), ingestRunTimeout)
		defer cancel()

		results, err := ingestService.Run(ctx, cfg.TopicList())
		if err != nil {
			logging.Error("Cron ingest failed", zap.Error(err))
			return
		}
		stored, updated := countIngestTotals(results)
		articlesStoredCounter.Add(float64(stored))
		articlesUpdatedCounter.Add(float64(updated))
		logging.Info("Cron ingest completed", zap.Int("stored", stored), zap.Int("updated", updated))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func countIngestTotals(results map[string]models.TopicSummary) (stored, updated int) {
	for _, summary := range results {
		stored += summary.Stored
		updated += summary.Updated
	}
	return stored, updated
}

func setupIngestRoutes(router *gin.Engine, cfg *config.Config, ingestService *services.IngestService, log *zap.Logger) {
	router.GET("/fetch-news", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), ingestRunTimeout)
		defer cancel()

		results, err := ingestService.Run(ctx, cfg.TopicList())
		if err != nil {
			log.Error("Ingest run failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		stored, updated := countIngestTotals(results)
		articlesStoredCounter.Add(float64(stored))
		articlesUpdatedCounter.Add(float64(updated))

		c.JSON(http.StatusOK, gin.H{
			"message": "News fetched and stored successfully",
			"summary": results,
		})
	})
}

func setupBiasRoutes(router *gin.Engine, cfg *config.Config, repo *repository.ArticleRepository, biasService *services.BiasService, log *zap.Logger) {
	router.GET("/rank-biases", func(c *gin.Context) {
		if !repo.Available() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": repository.ErrDatabaseUnavailable.Error()})
			return
		}

		forceRefresh := false
		if forceParam := strings.TrimSpace(c.Query("force")); forceParam != "" {
			if parsed, err := strconv.ParseBool(forceParam); err == nil {
				forceRefresh = parsed
			}
		}

		limit := 0
		if limitParam := strings.TrimSpace(c.Query("limit")); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		if err := cfg.ValidateBias(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		articles, err := repo.FindForScoring(ctx, forceRefresh, limit)
		if err != nil {
			log.Error("Loading scoring candidates failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load articles: %v", err)})
			return
		}

		if len(articles) == 0 {
			c.JSON(http.StatusOK, gin.H{
				"message": "no articles available for scoring",
				"updated": 0,
				"failed":  0,
			})
			return
		}

		log.Info("Starting bias scoring run",
			zap.Int("articles", len(articles)),
			zap.Bool("force", forceRefresh),
			zap.Int("limit", limit))

		result, err := biasService.ProcessArticles(ctx, articles)
		if err != nil {
			log.Error("Bias scoring run failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to process bias scores: %v", err)})
			return
		}
		biasScoresCounter.Add(float64(result.Updated))

		c.JSON(http.StatusOK, gin.H{
			"message":      "bias scores processed",
			"updated":      result.Updated,
			"failed":       result.Failed,
			"total":        result.Total,
			"failed_items": result.Failures,
		})
	})
}

func setupTopicRoutes(router *gin.Engine, repo *repository.ArticleRepository, log *zap.Logger) {
	router.POST("/get-news-by-topic", func(c *gin.Context) {
		var req struct {
			Topics []string `json:"topics"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if len(req.Topics) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No topics provided"})
			return
		}
		if !repo.Available() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": repository.ErrDatabaseUnavailable.Error()})
			return
		}

		ctx := c.Request.Context()
		response := make(map[string][]models.Article)

		for _, topic := range req.Topics {
			tag := strings.TrimSpace(topic)
			if tag == "" {
				continue
			}

			articles, err := repo.FindByTag(ctx, tag, 0)
			if err != nil {
				log.Error("Topic lookup failed", zap.String("topic", tag), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to fetch articles for topic %s: %v", tag, err)})
				return
			}
			response[tag] = articles
		}

		c.JSON(http.StatusOK, gin.H{"topics": response})
	})
}

func setupQueryRoutes(router *gin.Engine, cfg *config.Config, queryService *services.QueryService, log *zap.Logger) {
	handler := func(c *gin.Context) {
		var payload struct {
			Query string `json:"query"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) && c.Request.Method != http.MethodGet {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		topic := strings.TrimSpace(c.Query("query"))
		if topic == "" {
			topic = strings.TrimSpace(payload.Query)
		}
		if topic == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
			return
		}

		if err := cfg.ValidateIngest(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load fetch configuration: %v", err)})
			return
		}
		if err := cfg.ValidateBias(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load bias configuration: %v", err)})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), ingestRunTimeout)
		defer cancel()

		articles, err := queryService.Run(ctx, topic)
		if err != nil {
			var incomplete *services.ScoringIncompleteError
			if errors.As(err, &incomplete) {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   incomplete.Error(),
					"details": incomplete.Failures,
				})
				return
			}
			log.Error("On-demand query failed", zap.String("topic", topic), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"topics": map[string][]models.Article{topic: articles},
		})
	}

	router.GET("/news-by-query", handler)
	router.POST("/news-by-query", handler)
}
