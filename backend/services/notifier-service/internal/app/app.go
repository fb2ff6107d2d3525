package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"avacharge/backend/libs/db"
	libredis "avacharge/backend/libs/redis"
	"avacharge/backend/services/notifier-service/internal/clients"
	"avacharge/backend/services/notifier-service/internal/config"
	httpserver "avacharge/backend/services/notifier-service/internal/http"
	"avacharge/backend/services/notifier-service/internal/http/handlers"
	"avacharge/backend/services/notifier-service/internal/http/middleware"
	redisstore "avacharge/backend/services/notifier-service/internal/redis"
	"avacharge/backend/services/notifier-service/internal/repository"
	"avacharge/backend/services/notifier-service/internal/service"
	"avacharge/backend/services/notifier-service/internal/ws"
)

// App wires notifier-service dependencies.
type App struct {
	server      *httpserver.Server
	scheduler   *service.Scheduler
	notifier    *service.NotifierService
	stations    *redisstore.StationStore
	hub         *ws.Hub
	mirror      *clients.MQTTMirror
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Postgres and MQTT are optional.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	redisClient, err := libredis.NewRedisClient(libredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a := &App{
		redisClient: redisClient,
		stations:    redisstore.NewStationStore(redisClient, cfg.Redis.KeyPrefix, logger),
		hub:         ws.NewHub(),
		logger:      logger,
	}

	observers := []service.Observer{a.hub}
	var notificationLog *repository.NotificationLogRepository
	if cfg.Database.DSN != "" {
		sqlDB, err := db.NewPostgresDB(ctx, cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.db = sqlDB
		notificationLog = repository.NewNotificationLogRepository(sqlDB)
		if err := notificationLog.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("notification log schema: %w", err)
		}
		observers = append(observers, notificationLog)
	}
	if cfg.MQTT.Broker != "" {
		mirror, err := clients.NewMQTTMirror(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			// The mirror is best-effort; the service runs without it.
			logger.Warn("mqtt mirror disabled", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
		} else {
			a.mirror = mirror
			observers = append(observers, mirror)
		}
	}

	teams := clients.NewTeamsClient(clients.TeamsOptions{
		WebhookURL:    cfg.Webhook.URL,
		Timeout:       cfg.Webhook.Timeout,
		RatePerSecond: cfg.Webhook.RatePerSecond,
		Summary:       cfg.Webhook.Summary,
		ThemeColor:    cfg.Webhook.ThemeColor,
	}, nil, logger)

	lower, upper := cfg.EndingSoonWindow()
	a.notifier = service.NewNotifierService(a.stations, teams, service.Options{
		Window:           service.Window{Lower: lower, Upper: upper},
		StrictStatus:     cfg.Push.StrictStatus,
		ResetConcurrency: cfg.Reset.Concurrency,
		Observers:        observers,
	}, logger)

	a.scheduler, err = service.NewScheduler(a.notifier, service.ScheduleSpec{
		Poll:       cfg.Schedule.Poll,
		DailyReset: cfg.Schedule.DailyReset,
		Timezone:   cfg.Schedule.Timezone,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Reset.Secret == "" && cfg.Reset.SecretHash == "" {
		logger.Warn("no reset secret configured, /reset-daily will reject every request")
	}
	notifierHandler := handlers.NewNotifierHandler(a.notifier, service.NewResetGuard(cfg.Reset.Secret, cfg.Reset.SecretHash), logger)
	alerts := ws.NewServer(a.hub, cfg.PingInterval(), cfg.WriteTimeout(), cfg.WebSocket.AllowedOrigins, logger)

	routes := httpserver.Routes{
		Poll:       notifierHandler.HandlePoll,
		Push:       middleware.PushAuth(cfg.Push.JWTSecret)(http.HandlerFunc(notifierHandler.HandlePush)),
		ResetDaily: notifierHandler.HandleResetDaily,
		Alerts:     alerts.HandleWS,
		Health: handlers.NewHealthHandler(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	}
	if notificationLog != nil {
		routes.Notifications = handlers.NewNotificationsHandler(notificationLog)
	}

	a.server = httpserver.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes), logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)
	return a, nil
}

// Notifier exposes the service for one-shot CLI commands.
func (a *App) Notifier() *service.NotifierService {
	return a.notifier
}

// Run serves HTTP and runs the scheduler until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	g.Go(func() error {
		a.scheduler.Run(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.hub.CloseAll()
		return nil
	})
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

// ConnectStations opens only the station store, for commands that seed or inspect data.
func ConnectStations(cfg *config.Config, logger *zap.Logger) (*redisstore.StationStore, func(), error) {
	client, err := libredis.NewRedisClient(libredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	return redisstore.NewStationStore(client, cfg.Redis.KeyPrefix, logger), closeFn, nil
}
