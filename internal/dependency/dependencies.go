package dependency

import (
	"context"

	"github.com/bidwise/bidcore/internal/cache"
	"github.com/bidwise/bidcore/internal/events"
	"github.com/bidwise/bidcore/internal/handlers"
	"github.com/bidwise/bidcore/internal/ledger"
	"github.com/bidwise/bidcore/internal/service"
	"github.com/bidwise/bidcore/internal/storage"
	"github.com/bidwise/bidcore/pkg/config"
	"github.com/bidwise/bidcore/pkg/jwt"
	"github.com/bidwise/bidcore/pkg/logger"
	"github.com/bidwise/bidcore/pkg/utils"
)

// Dependencies holds all the intialized instances required by the application.
type Dependencies struct {
	Services         *service.Services
	Ledger           ledger.Ledger
	Cache            cache.Cacher
	Publisher        events.Publisher
	JWTManager       jwt.JWTManager
	BidHandler       *handlers.BidHandler
	ListingHandler   *handlers.ListingHandler
	LifecycleHandler *handlers.LifecycleHandler

	closers []func() error
}

// NewDependencies connects the backing stores and wires up all services.
// DB_DSN selects the Postgres ledger; without it the in-memory ledger
// runs, which suits local development only.
func NewDependencies(ctx context.Context, log *logger.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	dbDsn := utils.GetEnv("DB_DSN", "")
	if dbDsn != "" {
		if err := ledger.RunMigrations(ctx, dbDsn); err != nil {
			log.Errorw("[DB] migrations failed", "error", err)
			return nil, err
		}
		pg, err := ledger.NewPostgresLedger(ctx, dbDsn)
		if err != nil {
			log.Errorw("[DB] connection failed", "error", err)
			return nil, err
		}
		deps.Ledger = pg
		log.Infow("[DB] connected", "ledger", "postgres")
	} else {
		deps.Ledger = ledger.NewMemoryLedger()
		log.Warnw("[DB] no DB_DSN set, using in-memory ledger")
	}

	publishers := []events.Publisher{}
	if addr := utils.GetEnv("REDIS_ADDR", ""); addr != "" {
		redisPub, err := events.NewRedisPublisher(ctx)
		if err != nil {
			log.Errorw("[Events] redis publisher failed", "error", err)
			return nil, err
		}
		publishers = append(publishers, redisPub)
		deps.closers = append(deps.closers, redisPub.Close)

		redisCache, err := cache.NewRedisClient(ctx)
		if err != nil {
			log.Errorw("[Cache] failed to initialize", "error", err)
			return nil, err
		}
		deps.Cache = redisCache
		deps.closers = append(deps.closers, redisCache.Close)
		log.Infow("[Cache] connected")
	} else {
		deps.Cache = cache.NewNopCache()
	}
	if url := utils.GetEnv("NATS_URL", ""); url != "" {
		natsPub, err := events.NewNatsPublisher(ctx, url)
		if err != nil {
			log.Errorw("[Events] nats publisher failed", "error", err)
			return nil, err
		}
		publishers = append(publishers, natsPub)
		deps.closers = append(deps.closers, natsPub.Close)
	}

	switch len(publishers) {
	case 0:
		deps.Publisher = events.NopPublisher{}
		log.Warnw("[Events] no publisher configured, events are dropped")
	case 1:
		deps.Publisher = publishers[0]
	default:
		deps.Publisher = events.NewFanout(publishers...)
	}

	var store storage.Storager
	if endpoint := utils.GetEnv("MINIO_ENDPOINT", ""); endpoint != "" {
		minioStore, err := storage.NewMinioStorage()
		if err != nil {
			log.Errorw("[Storage] failed to initialize", "error", err)
			return nil, err
		}
		store = minioStore
		log.Infow("[Storage] connected", "endpoint", endpoint)
	} else {
		store = storage.NewNopStorage()
	}

	increment := utils.GetDecimalEnv("BID_INCREMENT", config.DefaultBidIncrement)

	services, err := service.NewServices(deps.Ledger, deps.Publisher, increment, log)
	if err != nil {
		log.Errorw("[Service] failed to initialize", "error", err)
		return nil, err
	}
	deps.Services = services

	jwtManager, err := jwt.NewJwtManager()
	if err != nil {
		log.Errorw("[JWT] failed to initialize", "error", err)
		return nil, err
	}
	deps.JWTManager = jwtManager

	bidHandler, err := handlers.NewBidHandler(services.Bids)
	if err != nil {
		log.Errorw("[Bid Handler] failed to initialize", "error", err)
		return nil, err
	}
	deps.BidHandler = bidHandler

	listingHandler, err := handlers.NewListingHandler(services.Listings, store, deps.Cache)
	if err != nil {
		log.Errorw("[Listing Handler] failed to initialize", "error", err)
		return nil, err
	}
	deps.ListingHandler = listingHandler

	lifecycleHandler, err := handlers.NewLifecycleHandler(services.Lifecycle)
	if err != nil {
		log.Errorw("[Lifecycle Handler] failed to initialize", "error", err)
		return nil, err
	}
	deps.LifecycleHandler = lifecycleHandler

	return deps, nil
}

// Close releases every connection the dependency graph owns, in reverse
// acquisition order.
func (d *Dependencies) Close() error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.Ledger.Close()
	return firstErr
}
