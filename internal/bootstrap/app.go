package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	appsvc "books-api/internal/app"
	"books-api/internal/cache"
	"books-api/internal/config"
	"books-api/internal/logger"
	"books-api/internal/model"
	mysqlClient "books-api/internal/platform/mysql"
	postgresClient "books-api/internal/platform/postgres"
	rabbitmqClient "books-api/internal/platform/rabbitmq"
	redisClient "books-api/internal/platform/redis"
	"books-api/internal/repository"
	"books-api/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Users          appsvc.UserStore
	Books          appsvc.BookStore
	BookCache      *cache.BookCache
	EventPublisher *rabbitmqClient.BookEventPublisher
	EventWorker    *worker.BookEventWorker

	StartedAt time.Time
	logCloser io.Closer
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, logCloser, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Dir:     cfg.Log.Dir,
		Service: cfg.App.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	a := &App{Config: cfg, Logger: log, logCloser: logCloser, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	log := a.Logger

	var eventStore worker.BookEventStore
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		a.Users = repository.NewMemoryUserRepository()
		a.Books = repository.NewMemoryBookRepository()
		eventStore = repository.NewMemoryBookEventRepository()
	default:
		db, err := openDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		a.DB = db
		if err := db.AutoMigrate(&model.User{}, &model.Book{}, &model.BookEvent{}); err != nil {
			return fmt.Errorf("auto migrate tables failed: %w", err)
		}
		a.Users = repository.NewUserRepository(db)
		a.Books = repository.NewBookRepository(db)
		eventStore = repository.NewBookEventRepository(db)
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		a.Redis = redisCli
		a.BookCache = cache.NewBookCache(redisCli, cfg.BookCacheTTL())
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.BookEventQueue)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		a.EventPublisher = rabbitmqClient.NewBookEventPublisher(mqConn, cfg.RabbitMQ.BookEventQueue)

		a.EventWorker = worker.NewBookEventWorker(mqConn, eventStore, cfg.RabbitMQ.BookEventQueue, log.WithField("component", "book-event-worker"))
		if err := a.EventWorker.Start(ctx); err != nil {
			return fmt.Errorf("start book event worker failed: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"driver":   cfg.Database.Driver,
		"redis":    cfg.Redis.Enabled,
		"rabbitmq": cfg.RabbitMQ.Enabled,
	}).Info("application initialised")
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		return mysqlClient.New(ctx, cfg.MySQLDSN(), log)
	case config.DriverPostgres:
		return postgresClient.New(ctx, cfg.Database.PostgresDSN, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
