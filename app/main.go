package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	mysqlRepo "github.com/Guyuepp/card-gallery-likes/internal/repository/mysql"
	myRedisCache "github.com/Guyuepp/card-gallery-likes/internal/repository/redis"
	"github.com/Guyuepp/card-gallery-likes/internal/rest"
	"github.com/Guyuepp/card-gallery-likes/internal/rest/middleware"
	"github.com/Guyuepp/card-gallery-likes/internal/usecase/cardlike"
	"github.com/Guyuepp/card-gallery-likes/internal/workers"
)

const (
	defaultTimeout     = 30
	defaultAddress     = ":9090"
	defaultCacheDB     = 0
	dbMaxRetry         = 10
	dbRetryIntervalSec = 2
	workerFlushTimeout = 10 * time.Second
)

func init() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file loaded, using environment only")
	}
}

func envInt(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		logrus.Infof("failed to parse %s, using default %d", name, def)
		return def
	}
	return v
}

func main() {
	//prepare database
	dbHost := os.Getenv("DATABASE_HOST")
	dbPort := os.Getenv("DATABASE_PORT")
	dbUser := os.Getenv("DATABASE_USER")
	dbPass := os.Getenv("DATABASE_PASS")
	dbName := os.Getenv("DATABASE_NAME")
	connection := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", dbUser, dbPass, dbHost, dbPort, dbName)
	val := url.Values{}
	val.Add("parseTime", "1")
	val.Add("loc", "Local")
	dsn := fmt.Sprintf("%s?%s", connection, val.Encode())

	var (
		db  *gorm.DB
		err error
	)

	for i := range dbMaxRetry {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err != nil {
			logrus.Warnf("failed to open connection to database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
		} else {
			var sqlDB *sql.DB
			sqlDB, err = db.DB()
			if err != nil {
				logrus.Warnf("failed to get sql.DB from gorm.DB (attempt %d/%d): %v", i+1, dbMaxRetry, err)
				time.Sleep(dbRetryIntervalSec * time.Second)
				continue
			}
			err = sqlDB.Ping()
			if err == nil {
				break
			}
			logrus.Warnf("failed to ping database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
			_ = sqlDB.Close()
		}

		time.Sleep(dbRetryIntervalSec * time.Second)
	}

	if err != nil {
		logrus.Fatal("could not connect to database after retries: ", err)
	}

	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			logrus.Error("got error when getting sql.DB from gorm.DB: ", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			logrus.Error("got error when closing the DB connection: ", err)
		}
	}()

	// prepare cache
	cacheHost := os.Getenv("CACHE_HOST")
	cachePort := os.Getenv("CACHE_PORT")
	cachePass := os.Getenv("CACHE_PASS")
	client := redis.NewClient(&redis.Options{
		Addr:     cacheHost + ":" + cachePort,
		Password: cachePass,
		DB:       envInt("CACHE_DB", defaultCacheDB),
	})
	defer func() {
		if err := client.Close(); err != nil {
			logrus.Error("got error when closing the cache connection: ", err)
		}
	}()

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		logrus.Fatal("failed to open connection to cache: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Prepare Repository
	likeRepo := mysqlRepo.NewCardLikeRepository(db)
	likeCache := myRedisCache.NewCardLikeCache(client)
	likeEvents := myRedisCache.NewLikeEventBroker(client)
	if err := likeRepo.EnsureSchema(ctx); err != nil {
		// GetAll/Update retry the bootstrap on demand
		logrus.Warnf("failed to bootstrap card_likes schema: %v", err)
	}

	// Start worker
	eventWorker := workers.NewLikeEventWorker(likeCache)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go eventWorker.Start(workerCtx)

	// Build service Layer
	dailyLimit := envInt("DAILY_LIKE_LIMIT", 0)
	likeSvc := cardlike.NewService(likeRepo, likeCache, eventWorker, int64(dailyLimit))
	likeHandler := rest.NewCardLikeHandler(likeSvc, likeEvents)

	// prepare gin
	if err := rest.RegisterValidators(); err != nil {
		logrus.Fatal("failed to register validators: ", err)
	}
	route := gin.Default()
	route.Use(middleware.CORS())
	timeoutContext := time.Duration(envInt("CONTEXT_TIMEOUT", defaultTimeout)) * time.Second

	// Register routes
	route.GET("/metrics", gin.WrapH(promhttp.Handler()))

	streamCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()

	likes := route.Group("/api/likes")
	// SSE 连接不设超时, 关闭服务时主动断开
	likes.GET("/stream", middleware.CancelWith(streamCtx), likeHandler.Stream)

	timed := likes.Group("")
	timed.Use(middleware.SetRequestContextWithTimeout(timeoutContext))
	{
		timed.POST("/getAll", likeHandler.GetAll)
		timed.POST("/update", likeHandler.Update)
		timed.GET("/ranks", likeHandler.FetchRank)
	}

	// Start Server
	address := os.Getenv("SERVER_ADDRESS")
	if address == "" {
		address = defaultAddress
	}
	srv := &http.Server{
		Addr:    address,
		Handler: route,
	}
	srv.RegisterOnShutdown(stopStreams)
	go func() {
		logrus.Infof("Server is running on %s", address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("listen: %s", err) // nolint
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	logrus.Info("Waiting for worker to cleanup...")
	stopWorker()
	select {
	case <-eventWorker.Done():
	case <-time.After(workerFlushTimeout):
		logrus.Warn("like event worker did not finish in time")
	}

	logrus.Info("Server exiting")
}
