package appcontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/config"
	"github.com/RoyceAzure/lab/assia/internal/infra/assistant"
	"github.com/RoyceAzure/lab/assia/internal/infra/catalog"
	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/RoyceAzure/lab/assia/internal/infra/producer"
	"github.com/RoyceAzure/lab/assia/internal/infra/ratelimit"
	"github.com/RoyceAzure/lab/assia/internal/infra/repository/kv"
	"github.com/RoyceAzure/lab/assia/internal/infra/repository/order_repo"
	"github.com/RoyceAzure/lab/assia/internal/service"
	"github.com/RoyceAzure/lab/assia/internal/storeprofile"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const startupTimeout = 10 * time.Second

type ApplicationContext struct {
	Cf      *config.Config
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics

	RedisClient *redis.Client
	DbConn      *gorm.DB
	Store       kv.IStore
	OrderRepo   order_repo.IOrderRepository
	Producer    producer.IOrderEventProducer
	RateLimiter ratelimit.ILimiter
	// 依來源 IP
	ClientRateLimiter ratelimit.ILimiter

	Profile   *storeprofile.Profile
	Catalog   catalog.ISearcher
	Assistant assistant.IAssistant

	Sessions        service.ISessionStore
	OrderService    service.IOrderService
	ChatService     service.IChatService
	CartService     service.ICartService
	CheckoutService service.ICheckoutService
	AdminService    service.IAdminService
}

func NewApplicationContext(cf *config.Config, logger *zerolog.Logger) (*ApplicationContext, error) {
	if cf == nil {
		return nil, fmt.Errorf("%w: config is nil", config.ErrInvalidConfig)
	}
	if logger == nil {
		panic("logger is nil")
	}
	app := ApplicationContext{
		Cf:     cf,
		Logger: logger,
	}
	logger.Info().
		Str("moduler_name", cf.ModulerName).
		Str("server_port", cf.ServerPort).
		Str("store_driver", cf.StoreDriver).
		Str("gemini_model", cf.GeminiModel).
		Str("catalog_base_url", cf.CatalogBaseURL).
		Bool("kafka_enabled", len(cf.KafkaBrokerList()) > 0).
		Msg("load config")

	err := app.Init()
	if err != nil {
		return nil, err
	}

	return &app, nil
}

func (app *ApplicationContext) Init() error {
	steps := []func() error{
		app.setUpMetrics,
		app.setUpStore,
		app.setUpRateLimiter,
		app.setUpOrderRepo,
		app.setUpProducer,
		app.setUpOrderService,
		app.setUpProfile,
		app.setUpCatalog,
		app.setUpAssistant,
		app.setUpSessionStore,
		app.setUpChatService,
		app.setUpCartService,
		app.setUpCheckoutService,
		app.setUpAdminService,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (app *ApplicationContext) setUpMetrics() error {
	app.Logger.Info().Msg("Start setup metrics")
	app.Metrics = metrics.New(app.Cf.ModulerName)
	app.Logger.Info().Msg("Finish setup metrics")
	return nil
}

// 依 STORE_DRIVER 選擇訂單保存位置
func (app *ApplicationContext) setUpStore() error {
	app.Logger.Info().Str("driver", app.Cf.StoreDriver).Msg("Start setup store")

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	switch app.Cf.StoreDriver {
	case config.StoreDriverRedis:
		app.RedisClient = kv.GetRedisClient(app.Cf.RedisAddr,
			kv.WithPassword(app.Cf.RedisPassword),
			kv.WithDB(app.Cf.RedisDB),
		)
		store := kv.NewRedisStore(app.RedisClient, app.Cf.ModulerName)
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		app.Store = store
	case config.StoreDriverPostgres:
		conn, err := kv.GetDbConn(app.Cf.DbName, app.Cf.DbHost, app.Cf.DbPort, app.Cf.DbUser, app.Cf.DbPas)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		app.DbConn = conn
		store := kv.NewDBStore(conn)
		if err := store.InitMigrate(); err != nil {
			return fmt.Errorf("failed to migrate postgres: %w", err)
		}
		app.Store = store
	case config.StoreDriverMemory:
		app.Logger.Warn().Msg("memory store in use, orders are lost on restart")
		app.Store = kv.NewMemoryStore()
	default:
		return fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, app.Cf.StoreDriver)
	}

	app.Logger.Info().Msg("Finish setup store")
	return nil
}

func (app *ApplicationContext) setUpRateLimiter() error {
	app.Logger.Info().Msg("Start setup rate limiter")
	sessionCfg := ratelimit.Config{
		Capacity: app.Cf.RateLimitCapacity,
		RatePS:   app.Cf.RateLimitRatePS,
	}
	clientCfg := ratelimit.Config{
		Capacity: app.Cf.RateLimitClientCapacity,
		RatePS:   app.Cf.RateLimitClientRatePS,
	}
	app.RateLimiter = app.newLimiter(&sessionCfg, "session")
	app.ClientRateLimiter = app.newLimiter(&clientCfg, "client")
	app.Logger.Info().
		Bool("session_enabled", sessionCfg.Enabled()).
		Bool("client_enabled", clientCfg.Enabled()).
		Msg("Finish setup rate limiter")
	return nil
}

// redis 模式下多個實例共用限流狀態
func (app *ApplicationContext) newLimiter(cfg *ratelimit.Config, scope string) ratelimit.ILimiter {
	switch {
	case !cfg.Enabled():
		return ratelimit.Unlimited{}
	case app.RedisClient != nil:
		return ratelimit.NewRedisTokenBucket(app.RedisClient, app.Cf.ModulerName+":"+scope, cfg, app.Logger)
	default:
		return ratelimit.NewTokenBucket(cfg)
	}
}

func (app *ApplicationContext) setUpOrderRepo() error {
	app.Logger.Info().Msg("Start setup order repo")
	app.OrderRepo = order_repo.NewOrderRepo(app.Store, app.Cf.OrdersKey)
	app.Logger.Info().Msg("Finish setup order repo")
	return nil
}

// 沒有設定 broker 時不發送事件
func (app *ApplicationContext) setUpProducer() error {
	app.Logger.Info().Msg("Start setup order event producer")
	brokers := app.Cf.KafkaBrokerList()
	if len(brokers) == 0 {
		app.Producer = producer.NoopProducer{}
	} else {
		app.Producer = producer.NewOrderEventProducer(producer.NewKafkaWriter(brokers, app.Cf.KafkaOrderTopic))
	}
	app.Logger.Info().Int("brokers", len(brokers)).Msg("Finish setup order event producer")
	return nil
}

// 啟動時從儲存載入訂單
func (app *ApplicationContext) setUpOrderService() error {
	app.Logger.Info().Msg("Start setup order service")
	fee, err := app.Cf.ShippingFeeAmount()
	if err != nil {
		return err
	}
	orderService := service.NewOrderService(app.OrderRepo, app.Logger,
		service.WithShippingFee(fee),
		service.WithOrderMetrics(app.Metrics),
		service.WithOrderProducer(app.Producer),
	)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := orderService.Load(ctx); err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	app.OrderService = orderService
	app.Logger.Info().Int("orders", len(orderService.List())).Msg("Finish setup order service")
	return nil
}

func (app *ApplicationContext) setUpProfile() error {
	app.Logger.Info().Msg("Start setup store profile")
	profile, err := storeprofile.Load(app.Cf.StoreProfilePath)
	if err != nil {
		return err
	}
	app.Profile = profile
	app.Logger.Info().Str("store_name", profile.StoreName).Msg("Finish setup store profile")
	return nil
}

func (app *ApplicationContext) setUpCatalog() error {
	app.Logger.Info().Msg("Start setup catalog client")
	app.Catalog = catalog.NewClient(app.Cf.CatalogBaseURL, app.Cf.CatalogConsumerKey, app.Cf.CatalogConsumerSecret, app.Logger,
		catalog.WithPageSize(app.Cf.CatalogPageSize),
		catalog.WithMetrics(app.Metrics),
	)
	app.Logger.Info().Msg("Finish setup catalog client")
	return nil
}

func (app *ApplicationContext) setUpAssistant() error {
	app.Logger.Info().Msg("Start setup assistant")
	if app.Cf.GeminiAPIKey == "" {
		app.Logger.Warn().Msg("GEMINI_API_KEY is empty, assistant replies will fail")
		app.Assistant = assistant.Unconfigured{}
		app.Logger.Info().Msg("Finish setup assistant")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	client, err := assistant.NewGeminiClient(ctx, app.Cf.GeminiAPIKey)
	if err != nil {
		return err
	}
	app.Assistant = assistant.NewGeminiAssistant(client.Models, app.Catalog, app.Profile.SystemInstruction, app.Logger,
		assistant.WithModel(app.Cf.GeminiModel),
		assistant.WithTemperature(float32(app.Cf.GeminiTemperature)),
	)
	app.Logger.Info().Msg("Finish setup assistant")
	return nil
}

func (app *ApplicationContext) setUpSessionStore() error {
	app.Logger.Info().Msg("Start setup session store")
	app.Sessions = service.NewSessionStore(app.Cf.CheckoutResetDelay())
	app.Logger.Info().Msg("Finish setup session store")
	return nil
}

func (app *ApplicationContext) setUpChatService() error {
	app.Logger.Info().Msg("Start setup chat service")
	app.ChatService = service.NewChatService(app.Sessions, app.Assistant, app.Profile, app.Logger,
		service.WithHistoryLimit(app.Cf.HistoryLimit),
		service.WithChatMetrics(app.Metrics),
	)
	app.Logger.Info().Msg("Finish setup chat service")
	return nil
}

func (app *ApplicationContext) setUpCartService() error {
	app.Logger.Info().Msg("Start setup cart service")
	fee, err := app.Cf.ShippingFeeAmount()
	if err != nil {
		return err
	}
	app.CartService = service.NewCartService(app.Sessions, fee)
	app.Logger.Info().Msg("Finish setup cart service")
	return nil
}

func (app *ApplicationContext) setUpCheckoutService() error {
	app.Logger.Info().Msg("Start setup checkout service")
	app.CheckoutService = service.NewCheckoutService(app.Sessions, app.OrderService)
	app.Logger.Info().Msg("Finish setup checkout service")
	return nil
}

func (app *ApplicationContext) setUpAdminService() error {
	app.Logger.Info().Msg("Start setup admin service")
	if app.Cf.AdminPassphrase == "" {
		app.Logger.Warn().Msg("ADMIN_PASSPHRASE is empty, admin routes are disabled")
	}
	app.AdminService = service.NewAdminService(app.Cf.AdminPassphrase)
	app.Logger.Info().Msg("Finish setup admin service")
	return nil
}

func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	app.Logger.Info().Msg("Start application shutdown")

	done := make(chan error, 1)
	go func() {
		var errs []error

		// 先等排隊中的訂單事件交給 producer，再關 producer 讓事件寫完
		if app.OrderService != nil {
			app.Logger.Info().Msg("Draining order events...")
			if err := app.OrderService.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("drain order events: %w", err))
			}
		}

		if app.Producer != nil {
			app.Logger.Info().Msg("Closing order event producer...")
			if err := app.Producer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close producer: %w", err))
			}
		}

		if app.RedisClient != nil {
			app.Logger.Info().Msg("Closing redis client...")
			if err := app.RedisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}

		if app.DbConn != nil {
			app.Logger.Info().Msg("Closing database connection...")
			if sqlDB, err := app.DbConn.DB(); err != nil {
				errs = append(errs, fmt.Errorf("get sql db: %w", err))
			} else if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}

		app.Logger.Info().Msg("Application shutdown complete")
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %v", ctx.Err())
	}
}
