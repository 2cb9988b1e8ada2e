// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/JonathanYesh279/tenuto-go/internal/application/services"
	domainservices "github.com/JonathanYesh279/tenuto-go/internal/domain/services"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/caching/manager"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/email"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/messaging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/performance"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/database"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/school"
	"github.com/JonathanYesh279/tenuto-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services
	DeletionService  *services.DeletionService
	IntegrityService *services.IntegrityService
	OrphanService    *services.OrphanService
	AuthService      *services.AuthService

	// Infrastructure
	DB           *database.DB
	CacheManager *manager.Manager
	Broadcaster  messaging.Broadcaster
	EventsHub    *messaging.EventsHub
	Logger       *logging.ChanneledLogger
	PerfTracker  *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, logger *logging.ChanneledLogger) (*Container, error) {
	perfTracker := performance.NewTracker(nil)
	cacheManager := manager.NewManager(logger)
	broadcaster := messaging.NewSSEBroadcaster(logger)
	eventsHub := messaging.NewEventsHub(cacheManager, logger)

	repo := school.NewRepository(db, logger)
	scanner := school.NewOrphanScanner(db, logger)
	checker := school.NewIntegrityChecker(db, logger)
	backups := school.NewBackupManager(db, config.BackupDirectory, logger)

	resolver := domainservices.NewDependencyResolver(repo, config.ResolverCacheEntries)
	analyzer := domainservices.NewImpactAnalyzer(domainservices.ImpactThresholds{
		CriticalCount: config.ImpactCriticalCount,
		HighCount:     config.ImpactHighCount,
		MediumCount:   config.ImpactMediumCount,
	})

	mailer, err := email.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email client: %w", err)
	}

	return &Container{
		DeletionService: services.NewDeletionService(
			repo, resolver, analyzer, cacheManager, broadcaster, perfTracker, logger),
		IntegrityService: services.NewIntegrityService(
			checker, backups, cacheManager, perfTracker, mailer, config.AlertEmailTo, logger),
		OrphanService: services.NewOrphanService(
			scanner, checker, resolver, cacheManager, perfTracker, logger),
		AuthService: services.NewAuthService(config.JWTSecret, config.AdminPasswordHash, logger),

		DB:           db,
		CacheManager: cacheManager,
		Broadcaster:  broadcaster,
		EventsHub:    eventsHub,
		Logger:       logger,
		PerfTracker:  perfTracker,
	}, nil
}
