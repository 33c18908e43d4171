// Package app assembles services, workers and the HTTP surface from a
// configuration and a set of repositories.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

// Options carries the optional collaborators.
type Options struct {
	// Publisher pushes live notifications; nil disables it.
	Publisher service.Publisher
	// Locker guards the sweep across processes; nil runs unguarded.
	Locker worker.Locker
	// Now overrides the clock for the time-sensitive services.
	Now func() time.Time
}

// Container holds the assembled application.
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Stores        repository.Stores
	Dispatcher    events.Dispatcher
	Notifications *service.NotificationService
	Relay         *service.OutboxRelay
	Expiry        *service.ExpiryService
	Tickets       *service.TicketService
	Inventory     *service.InventoryService
	Requisitions  *service.RequisitionService
	Auth          *service.AuthService
	Users         *service.UserService
	Scheduler     *worker.SweepScheduler
	OutboxWorker  *worker.OutboxWorker
}

// New wires every service and worker. Notification handlers are subscribed
// before it returns.
func New(cfg *config.Config, stores repository.Stores, logger *zap.Logger, opts Options) *Container {
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notifier := service.NewNotifier(stores.Notifications, opts.Publisher, logger.Named("notifier"))
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:       dispatcher,
		Notifier:         notifier,
		Roles:            stores.Users,
		UserRepo:         stores.Users,
		NotificationRepo: stores.Notifications,
		Logger:           logger.Named("notifications"),
		Now:              opts.Now,
	})
	notifications.RegisterHandlers()

	relay := service.NewOutboxRelay(stores.Outbox, dispatcher, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts, metrics, logger.Named("outbox"))
	expiry := service.NewExpiryService(service.ExpiryDependencies{
		TicketRepo: stores.Tickets,
		Relay:      relay,
		Lookahead:  cfg.Sweep.Lookahead(),
		Metrics:    metrics,
		Logger:     logger.Named("expiry"),
		Now:        opts.Now,
	})

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Metrics:       metrics,
		Stores:        stores,
		Dispatcher:    dispatcher,
		Notifications: notifications,
		Relay:         relay,
		Expiry:        expiry,
		Tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo: stores.Tickets,
			UserRepo:   stores.Users,
			Now:        opts.Now,
		}),
		Inventory: service.NewInventoryService(stores.Inventory),
		Requisitions: service.NewRequisitionService(service.RequisitionDependencies{
			RequisitionRepo: stores.Requisitions,
			InventoryRepo:   stores.Inventory,
			Now:             opts.Now,
		}),
		Auth:  service.NewAuthService(cfg.Auth, stores.Users),
		Users: service.NewUserService(stores.Users, cfg.Auth.BcryptCost),
		Scheduler: worker.NewSweepScheduler(expiry, opts.Locker, worker.SweepSchedulerConfig{
			Interval: cfg.Sweep.Interval(),
			LockKey:  cfg.Sweep.LockKey,
			LockTTL:  cfg.Sweep.LockTTL(),
		}, metrics, logger.Named("scheduler")),
		OutboxWorker: worker.NewOutboxWorker(relay, cfg.Outbox.PollInterval(), logger.Named("outbox")),
	}
}

// Bootstrap creates the configured Admin account when none exists yet.
func (c *Container) Bootstrap(ctx context.Context) error {
	boot := c.Config.Auth
	if boot.AdminEmail == "" {
		admins, err := c.Stores.Users.UsersWithRole(ctx, domain.RoleAdmin)
		if err == nil && len(admins) == 0 {
			c.Logger.Warn("no admin account exists; set ADMIN_EMAIL and ADMIN_PASSWORD to create one")
		}
		return err
	}
	user, created, err := c.Users.EnsureAdmin(ctx, service.UserCreateInput{
		Name:     boot.AdminName,
		Email:    boot.AdminEmail,
		Password: boot.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		c.Logger.Info("bootstrap admin created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	}
	return nil
}

// HTTP builds the fiber application with middlewares and routes.
func (c *Container) HTTP(checks ...handlers.DependencyCheck) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               c.Config.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, c.Logger, c.Metrics, c.Config.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(c.Config.App.Name, c.Config.App.Version, checks...),
		Users:          handlers.NewUsersHandler(c.Auth, c.Users),
		Tickets:        handlers.NewTicketsHandler(c.Tickets),
		Notifications:  handlers.NewNotificationsHandler(c.Notifications),
		Inventory:      handlers.NewInventoryHandler(c.Inventory, c.Requisitions),
		Admin:          handlers.NewAdminHandler(c.Scheduler, c.Relay, c.Metrics),
		AuthMiddleware: auth.NewAuthMiddleware(c.Auth.TokenManager(), c.Stores.Users),
	})
	return app
}
