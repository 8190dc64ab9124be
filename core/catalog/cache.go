package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/violation"
)

// API serves the reference vocabularies and degree templates.
type API interface {
	QueryRoles(ctx context.Context) (Labels, error)
	QueryActionCategories(ctx context.Context) (Labels, error)
	QuerySystemTriggers(ctx context.Context) (Labels, error)
	QueryNotificationTemplates(ctx context.Context) (Labels, error)
	// QueryViolationTypes & QueryProcedures return every degree when none is given.
	QueryViolationTypes(ctx context.Context, degrees ...violation.Degree) ([]ViolationType, error)
	QueryProcedures(ctx context.Context, degrees ...violation.Degree) ([]DegreeProcedure, error)
	QueryProceduresForViolation(ctx context.Context, degree violation.Degree, repetition int) ([]violation.ProcedureDefinition, error)
}

// Cache holds the catalogs, loaded lazily and reused.
// It is the only writer of catalog state.
type Cache struct {
	api    API
	logger core.Logger
	flight singleflight.Group

	mu                     sync.RWMutex
	loaded                 bool
	roles                  Labels
	actionCategories       Labels
	systemTriggers         Labels
	notificationTemplates  Labels
	violationTypesByDegree map[violation.Degree][]ViolationType
	proceduresByDegree     map[violation.Degree][]violation.ProcedureDefinition
}

func NewCache(api API, logger core.Logger) *Cache {
	return &Cache{
		api:                    api,
		logger:                 logger,
		roles:                  Labels{},
		actionCategories:       Labels{},
		systemTriggers:         Labels{},
		notificationTemplates:  Labels{},
		violationTypesByDegree: make(map[violation.Degree][]ViolationType),
		proceduresByDegree:     make(map[violation.Degree][]violation.ProcedureDefinition),
	}
}

func (c *Cache) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// LoadConfig loads the four label catalogs once. They are fetched concurrently and committed
// together; if any of them fails nothing is committed and a later call retries.
func (c *Cache) LoadConfig(ctx context.Context) error {
	if c.IsLoaded() {
		return nil
	}

	_, err, _ := c.flight.Do("config", func() (interface{}, error) {
		if c.IsLoaded() {
			return nil, nil
		}

		var roles, categories, triggers, tmpls Labels
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			roles, err = c.api.QueryRoles(gctx)
			return errors.Wrap(err, "loading roles")
		})
		g.Go(func() (err error) {
			categories, err = c.api.QueryActionCategories(gctx)
			return errors.Wrap(err, "loading action categories")
		})
		g.Go(func() (err error) {
			triggers, err = c.api.QuerySystemTriggers(gctx)
			return errors.Wrap(err, "loading system triggers")
		})
		g.Go(func() (err error) {
			tmpls, err = c.api.QueryNotificationTemplates(gctx)
			return errors.Wrap(err, "loading notification templates")
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.roles = roles.clone()
		c.actionCategories = categories.clone()
		c.systemTriggers = triggers.clone()
		c.notificationTemplates = tmpls.clone()
		c.loaded = true
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		c.logger.Error("loading catalog configuration", err)
		return err
	}
	return nil
}

// LoadViolationTypes fetches the violation types of the given degrees (all when none)
// and merges them into the cache, keeping the other degrees' entries.
func (c *Cache) LoadViolationTypes(ctx context.Context, degrees ...violation.Degree) error {
	types, err := c.api.QueryViolationTypes(ctx, degrees...)
	if err != nil {
		err = errors.Wrap(err, "loading violation types")
		c.logger.Error(err.Error(), err)
		return err
	}

	byDegree := make(map[violation.Degree][]ViolationType)
	for _, d := range degrees {
		byDegree[d] = []ViolationType{}
	}
	for _, t := range types {
		byDegree[t.Degree] = append(byDegree[t.Degree], t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for d, ts := range byDegree {
		c.violationTypesByDegree[d] = ts
	}
	return nil
}

// LoadProcedures fetches the procedure templates of the given degrees (all when none)
// and merges them into the cache, keeping the other degrees' entries.
func (c *Cache) LoadProcedures(ctx context.Context, degrees ...violation.Degree) error {
	procs, err := c.api.QueryProcedures(ctx, degrees...)
	if err != nil {
		err = errors.Wrap(err, "loading procedures")
		c.logger.Error(err.Error(), err)
		return err
	}

	byDegree := make(map[violation.Degree][]violation.ProcedureDefinition)
	for _, d := range degrees {
		byDegree[d] = []violation.ProcedureDefinition{}
	}
	for _, p := range procs {
		byDegree[p.Degree] = append(byDegree[p.Degree], p.ProcedureDefinition)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for d, defs := range byDegree {
		sort.SliceStable(defs, func(i, j int) bool { return defs[i].Step < defs[j].Step })
		c.proceduresByDegree[d] = defs
	}
	return nil
}

// GetProceduresForViolation looks up the procedure variant for the n-th repetition of a violation.
// It is not cached; failures are logged and reported as nil.
func (c *Cache) GetProceduresForViolation(ctx context.Context, degree violation.Degree, repetition int) []violation.ProcedureDefinition {
	defs, err := c.api.QueryProceduresForViolation(ctx, degree, repetition)
	if err != nil {
		c.logger.Warn("looking up procedures for violation", err, map[string]interface{}{
			"degree":     int(degree),
			"repetition": repetition,
		})
		return nil
	}
	return defs
}

// Accessors

func (c *Cache) ViolationTypesForDegree(degree violation.Degree) []ViolationType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ViolationType(nil), c.violationTypesByDegree[degree]...)
}

func (c *Cache) ProceduresForDegree(degree violation.Degree) []violation.ProcedureDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]violation.ProcedureDefinition(nil), c.proceduresByDegree[degree]...)
}

func (c *Cache) RoleLabel(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roles.label(key)
}

func (c *Cache) ActionCategoryLabel(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actionCategories.label(key)
}

func (c *Cache) SystemTriggerLabel(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.systemTriggers.label(key)
}

func (c *Cache) NotificationTemplateLabel(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notificationTemplates.label(key)
}
