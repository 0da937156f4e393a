// Package listing implements the product listing controller: the filter
// state, the fetch coordinator that keeps exactly one authoritative listing
// request per filter change, and the page window used for navigation.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shopassist/domain"
)

// State is a point-in-time snapshot of the controller.
type State struct {
	Criteria   domain.FilterCriteria
	Status     domain.Status
	Categories []string
	Brands     []string
	// OptionsLoaded is true once both option lists have been fetched or
	// have failed.
	OptionsLoaded bool
}

// Controller owns one FilterCriteria and its RequestStatus. It is safe for
// concurrent use. Each subscriber receives snapshots in order on its own
// goroutine, so a callback may call back into the controller.
type Controller struct {
	svc      domain.ListingService
	logger   *slog.Logger
	timeout  time.Duration
	defaults domain.FilterCriteria
	seeded   bool

	mu             sync.Mutex
	criteria       domain.FilterCriteria
	status         domain.Status
	seq            uint64
	categories     []string
	brands         []string
	optionsPending int
	optionsLoaded  bool
	changed        chan struct{}
	subs           map[int]*subscriber
	nextSub        int
	closed         bool

	optionsOnce sync.Once
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	subWG       sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithTimeout bounds each listing request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPerPage changes the default page size used at start and on Reset.
func WithPerPage(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.defaults.PerPage = n
		}
	}
}

// WithCriteria sets the criteria used by the first fetch. Reset still
// returns to the defaults.
func WithCriteria(criteria domain.FilterCriteria) Option {
	return func(c *Controller) {
		c.criteria = criteria.Clone()
		c.seeded = true
	}
}

// NewController returns an idle controller holding the default criteria.
// Nothing is fetched until Start or a mutation.
func NewController(svc domain.ListingService, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		svc:      svc,
		logger:   slog.Default(),
		timeout:  10 * time.Second,
		defaults: domain.DefaultCriteria(),
		status:   domain.Idle(),
		changed:  make(chan struct{}),
		subs:     make(map[int]*subscriber),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.seeded {
		c.criteria = c.defaults.Clone()
	}
	return c
}

// Start issues the first listing request and loads the filter options.
func (c *Controller) Start() {
	c.mu.Lock()
	c.dispatchLocked()
	c.publishLocked()
	c.mu.Unlock()
	c.LoadOptions()
}

// ApplyFilterPatch merges p into the criteria, resets the page to 1 and
// fetches the new listing.
func (c *Controller) ApplyFilterPatch(p domain.FilterPatch) domain.FilterCriteria {
	return c.replace(func(cur domain.FilterCriteria) domain.FilterCriteria {
		return cur.Apply(p)
	})
}

// SetPage moves to page without touching any filter. Out-of-range pages are
// sent to the service as-is.
func (c *Controller) SetPage(page int) domain.FilterCriteria {
	return c.replace(func(cur domain.FilterCriteria) domain.FilterCriteria {
		return cur.WithPage(page)
	})
}

// Reset restores the default criteria and fetches them.
func (c *Controller) Reset() domain.FilterCriteria {
	return c.replace(func(domain.FilterCriteria) domain.FilterCriteria {
		return c.defaults.Clone()
	})
}

// Refresh re-issues the current criteria, e.g. to retry after a failure.
func (c *Controller) Refresh() domain.FilterCriteria {
	return c.replace(func(cur domain.FilterCriteria) domain.FilterCriteria {
		return cur
	})
}

func (c *Controller) replace(next func(domain.FilterCriteria) domain.FilterCriteria) domain.FilterCriteria {
	c.mu.Lock()
	c.criteria = next(c.criteria.Clone())
	out := c.criteria.Clone()
	c.dispatchLocked()
	c.publishLocked()
	c.mu.Unlock()
	return out
}

// Criteria returns a copy of the current criteria.
func (c *Controller) Criteria() domain.FilterCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria.Clone()
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Window derives the page buttons from the last successful result. It is
// empty while loading or after a failure.
func (c *Controller) Window(size int) Window {
	st := c.State().Status
	if st.Kind != domain.StatusSuccess {
		return Window{Pages: []int{}}
	}
	return PageWindow(st.Result.CurrentPage, st.Result.TotalPages, size)
}

// Subscribe registers fn to receive a snapshot after every state change and
// returns a function that removes it. Snapshots already queued when
// unsubscribe is called are still delivered.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	s := newSubscriber(fn)
	c.subs[id] = s
	c.subWG.Add(1)
	go s.run(&c.subWG)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			s.stop()
		})
	}
}

// Wait blocks until the listing request for the latest criteria has
// completed and no option fetch is outstanding.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		if c.status.Kind != domain.StatusLoading && c.optionsPending == 0 {
			st := c.snapshotLocked()
			c.mu.Unlock()
			return st, nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// Close abandons in-flight requests and waits for their goroutines and for
// subscribers to drain. It must not be called from a subscriber callback.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	subs := c.subs
	c.subs = make(map[int]*subscriber)
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()

	for _, s := range subs {
		s.stop()
	}
	c.subWG.Wait()
}

// dispatchLocked stamps a new request and sets Loading before it is sent.
func (c *Controller) dispatchLocked() {
	if c.closed {
		return
	}
	c.seq++
	seq := c.seq
	criteria := c.criteria.Clone()
	c.status = domain.Loading()
	c.signalLocked()

	c.wg.Add(1)
	go c.fetch(seq, criteria)
}

func (c *Controller) fetch(seq uint64, criteria domain.FilterCriteria) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := Fetch(ctx, c.svc, criteria)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if seq != c.seq {
		latest := c.seq
		c.mu.Unlock()
		c.logger.Debug("discarding stale listing response", "seq", seq, "latest", latest, "error", err)
		return
	}
	if err != nil {
		c.status = domain.Failed(err)
		c.logger.Error("listing request failed",
			"seq", seq,
			"query", criteria.Query,
			"page", criteria.Page,
			"error", err,
		)
	} else {
		c.status = domain.Succeeded(res)
		c.logger.Debug("listing request done",
			"seq", seq,
			"items", len(res.Items),
			"current_page", res.CurrentPage,
			"total_pages", res.TotalPages,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	c.signalLocked()
	c.publishLocked()
	c.mu.Unlock()
}

// Fetch issues one listing request: a relevance search when the criteria
// carry a query, a plain filtered listing otherwise. A panicking service is
// reported as an error.
func Fetch(ctx context.Context, svc domain.ListingService, criteria domain.FilterCriteria) (res domain.ListingResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listing service panicked: %v", r)
		}
	}()
	if criteria.HasQuery() {
		return svc.Search(ctx, criteria)
	}
	return svc.List(ctx, criteria)
}

// LoadOptions fetches the category and brand lists concurrently. Only the
// first call has any effect. A failed list stays empty.
func (c *Controller) LoadOptions() {
	c.optionsOnce.Do(func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.optionsPending = 2
		c.mu.Unlock()

		c.wg.Add(2)
		go c.fetchOptions("categories", c.svc.Categories, func(v []string) { c.categories = v })
		go c.fetchOptions("brands", c.svc.Brands, func(v []string) { c.brands = v })
	})
}

func (c *Controller) fetchOptions(name string, get func(context.Context) ([]string, error), set func([]string)) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	values, err := func() (v []string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s fetch panicked: %v", name, r)
			}
		}()
		return get(ctx)
	}()
	if err != nil {
		c.logger.Warn("failed to fetch filter options", "options", name, "error", err)
		values = nil
	}
	if values == nil {
		values = []string{}
	}

	c.mu.Lock()
	set(values)
	c.optionsPending--
	if c.optionsPending == 0 {
		c.optionsLoaded = true
	}
	c.signalLocked()
	c.publishLocked()
	c.mu.Unlock()
}

// signalLocked wakes every Wait caller.
func (c *Controller) signalLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) snapshotLocked() State {
	return State{
		Criteria:      c.criteria.Clone(),
		Status:        c.status,
		Categories:    append([]string(nil), c.categories...),
		Brands:        append([]string(nil), c.brands...),
		OptionsLoaded: c.optionsLoaded,
	}
}

// publishLocked queues the current snapshot for every subscriber. Queuing
// under mu keeps each subscriber's view ordered.
func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	st := c.snapshotLocked()
	for _, s := range c.subs {
		s.push(st)
	}
}

// subscriber delivers snapshots to fn on its own goroutine.
type subscriber struct {
	fn   func(State)
	wake chan struct{}

	mu      sync.Mutex
	queue   []State
	stopped bool
}

func newSubscriber(fn func(State)) *subscriber {
	return &subscriber{fn: fn, wake: make(chan struct{}, 1)}
}

func (s *subscriber) push(st State) {
	s.mu.Lock()
	s.queue = append(s.queue, st)
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for range s.wake {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		stopped := s.stopped
		s.mu.Unlock()

		for _, st := range batch {
			s.fn(st)
		}
		if stopped {
			return
		}
	}
}
