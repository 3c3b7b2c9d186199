package cached

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-rest-service/internal/adapter/cache"
	domain "user-rest-service/internal/domain/user"
	"user-rest-service/internal/usecase/user"
)

const loadTimeout = 5 * time.Second

func flightKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// CachedUserRepository implements user.Store with caching support.
// It wraps a persistent store (DB) and a cache implementation.
type CachedUserRepository struct {
	dbRepo user.Store
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
// A nil cache disables caching and every call goes to dbRepo.
func NewCachedUserRepository(dbRepo user.Store, cache cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// FindAll delegates to the DB repository.
func (r *CachedUserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.FindAll(ctx)
}

// FindByID retrieves a user by ID using Cache-Aside pattern.
// Concurrent misses for one id share a single store read. The shared read is
// detached from the caller's cancellation so one client going away cannot
// fail the others; each caller still stops waiting when its own ctx ends.
func (r *CachedUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
		} else if cachedUser != nil {
			r.log.Debug("user retrieved from cache", zap.Int64("id", id))
			return cachedUser, nil
		}
	}

	ch := r.group.DoChan(flightKey(id), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return r.load(loadCtx, id)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	u, _ := res.Val.(*domain.User)
	if u == nil {
		return nil, nil
	}
	// callers sharing a flight must not alias each other's result
	cp := *u
	return &cp, nil
}

// load reads the user from the store and fills the cache unless the user was
// invalidated while the read was running.
func (r *CachedUserRepository) load(ctx context.Context, id int64) (*domain.User, error) {
	var (
		version int64
		fill    = r.cache != nil
	)
	if fill {
		v, err := r.cache.Version(ctx, id)
		if err != nil {
			r.log.Warn("cache version error, skipping fill", zap.Int64("id", id), zap.Error(err))
			fill = false
		}
		version = v
	}

	u, err := r.dbRepo.FindByID(ctx, id)
	if err != nil || u == nil || !fill {
		return u, err
	}

	if _, err := r.cache.SetIfVersion(ctx, u, version); err != nil {
		r.log.Warn("failed to cache user", zap.Int64("id", id), zap.Error(err))
	}
	return u, nil
}

// FindByName delegates to the DB repository.
func (r *CachedUserRepository) FindByName(ctx context.Context, name string) (*domain.User, error) {
	return r.dbRepo.FindByName(ctx, name)
}

// FindByEmail delegates to the DB repository.
func (r *CachedUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.FindByEmail(ctx, email)
}

// ExistsByID delegates to the DB repository so guards never act on a stale entry.
func (r *CachedUserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.dbRepo.ExistsByID(ctx, id)
}

// Save writes the user to the DB and invalidates its cache entry.
func (r *CachedUserRepository) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	saved, err := r.dbRepo.Save(ctx, u)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, saved.ID, "save")
	return saved, nil
}

// DeleteByID deletes the user from the DB and invalidates its cache entry.
func (r *CachedUserRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.dbRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, id, "delete")
	return nil
}

// invalidate makes later reads start a fresh flight and evicts the entry.
func (r *CachedUserRepository) invalidate(ctx context.Context, id int64, op string) {
	r.group.Forget(flightKey(id))
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cache", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
	}
}
