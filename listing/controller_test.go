package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"shopassist/apiclient"
	"shopassist/domain"
	"shopassist/storefronttest"
)

func strPtr(s string) *string     { return &s }
func floatPtr(v float64) *float64 { return &v }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type call struct {
	method   string
	criteria domain.FilterCriteria
}

// scriptedService answers listing calls through a handler and records them.
type scriptedService struct {
	mu      sync.Mutex
	calls   []call
	handle  func(ctx context.Context, method string, c domain.FilterCriteria) (domain.ListingResult, error)
	cats    func(ctx context.Context) ([]string, error)
	brands  func(ctx context.Context) ([]string, error)
	options int
}

func (s *scriptedService) record(method string, c domain.FilterCriteria) {
	s.mu.Lock()
	s.calls = append(s.calls, call{method: method, criteria: c})
	s.mu.Unlock()
}

func (s *scriptedService) answer(ctx context.Context, method string, c domain.FilterCriteria) (domain.ListingResult, error) {
	s.record(method, c)
	if s.handle == nil {
		return domain.ListingResult{Items: []domain.Product{}, TotalPages: 1, CurrentPage: c.Page, PerPage: c.PerPage}, nil
	}
	return s.handle(ctx, method, c)
}

func (s *scriptedService) List(ctx context.Context, c domain.FilterCriteria) (domain.ListingResult, error) {
	return s.answer(ctx, "list", c)
}

func (s *scriptedService) Search(ctx context.Context, c domain.FilterCriteria) (domain.ListingResult, error) {
	return s.answer(ctx, "search", c)
}

func (s *scriptedService) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.options++
	s.mu.Unlock()
	if s.cats == nil {
		return []string{"Books", "Electronics"}, nil
	}
	return s.cats(ctx)
}

func (s *scriptedService) Brands(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.options++
	s.mu.Unlock()
	if s.brands == nil {
		return []string{"Apple", "Dell"}, nil
	}
	return s.brands(ctx)
}

func (s *scriptedService) recorded() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func newController(t *testing.T, svc domain.ListingService, opts ...Option) *Controller {
	t.Helper()
	c := NewController(svc, append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(c.Close)
	return c
}

func TestController_InitialState(t *testing.T) {
	c := newController(t, &scriptedService{})
	st := c.State()
	if st.Status.Kind != domain.StatusIdle {
		t.Fatalf("expected idle, got %v", st.Status.Kind)
	}
	if !reflect.DeepEqual(st.Criteria, domain.DefaultCriteria()) {
		t.Fatalf("expected default criteria, got %+v", st.Criteria)
	}
	if len(c.Window(WindowWide).Pages) != 0 {
		t.Fatal("idle controller should have an empty window")
	}
}

func TestController_OneRequestPerChange(t *testing.T) {
	svc := &scriptedService{}
	c := newController(t, svc)

	c.ApplyFilterPatch(domain.FilterPatch{Query: strPtr("laptop")})
	c.wg.Wait()
	c.ApplyFilterPatch(domain.FilterPatch{Query: strPtr("   ")})
	c.wg.Wait()
	c.SetPage(3)
	c.wg.Wait()

	calls := svc.recorded()
	if len(calls) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(calls))
	}
	if calls[0].method != "search" || calls[0].criteria.Query != "laptop" {
		t.Fatalf("non-blank query should search, got %+v", calls[0])
	}
	if calls[1].method != "search" || calls[1].criteria.Query != "   " {
		t.Fatalf("whitespace query is still a query and should search, got %+v", calls[1])
	}
	if calls[2].method != "search" || calls[2].criteria.Page != 3 {
		t.Fatalf("page change should keep filters and list page 3, got %+v", calls[2])
	}
}

func TestController_FilterChangesResetPage(t *testing.T) {
	c := newController(t, &scriptedService{})

	c.SetPage(4)
	if got := c.Criteria().Page; got != 4 {
		t.Fatalf("expected page 4, got %d", got)
	}
	patches := []domain.FilterPatch{
		{Category: strPtr("Books")},
		{Brand: strPtr("Penguin")},
		{MinPrice: floatPtr(10)},
		{ClearMinPrice: true},
		{Query: strPtr("")},
	}
	for i, p := range patches {
		c.SetPage(i + 2)
		if got := c.ApplyFilterPatch(p).Page; got != 1 {
			t.Fatalf("patch %d: expected page 1, got %d", i, got)
		}
	}
	st := c.Criteria()
	if st.Category != "Books" || st.Brand != "Penguin" || st.MinPrice != nil {
		t.Fatalf("patches were not merged: %+v", st)
	}
}

func TestController_LoadingIsSetBeforeDispatch(t *testing.T) {
	release := make(chan struct{})
	svc := &scriptedService{
		handle: func(ctx context.Context, _ string, c domain.FilterCriteria) (domain.ListingResult, error) {
			<-release
			return domain.ListingResult{Items: []domain.Product{}, TotalPages: 2, CurrentPage: c.Page}, nil
		},
	}
	c := newController(t, svc)

	c.SetPage(2)
	if kind := c.State().Status.Kind; kind != domain.StatusLoading {
		t.Fatalf("expected loading immediately after mutation, got %v", kind)
	}
	close(release)
	st, err := c.Wait(waitCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	if st.Status.Kind != domain.StatusSuccess || st.Status.Result.CurrentPage != 2 {
		t.Fatalf("unexpected status %+v", st.Status)
	}
}

func TestController_Supersession(t *testing.T) {
	gates := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}
	svc := &scriptedService{
		handle: func(ctx context.Context, _ string, c domain.FilterCriteria) (domain.ListingResult, error) {
			<-gates[c.Query]
			return domain.ListingResult{
				Items:       []domain.Product{{ID: 1, Name: c.Query}},
				Total:       1,
				TotalPages:  1,
				CurrentPage: 1,
			}, nil
		},
	}
	c := newController(t, svc)

	c.ApplyFilterPatch(domain.FilterPatch{Query: strPtr("A")})
	c.ApplyFilterPatch(domain.FilterPatch{Query: strPtr("B")})

	close(gates["B"])
	st, err := c.Wait(waitCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	if st.Status.Kind != domain.StatusSuccess || st.Status.Result.Items[0].Name != "B" {
		t.Fatalf("expected B's result, got %+v", st.Status)
	}

	close(gates["A"])
	c.wg.Wait()

	st = c.State()
	if st.Status.Result.Items[0].Name != "B" || st.Criteria.Query != "B" {
		t.Fatalf("late response for A overwrote B: %+v", st)
	}
}

func TestController_SupersededFailureIsIgnored(t *testing.T) {
	gateA := make(chan struct{})
	svc := &scriptedService{
		handle: func(ctx context.Context, _ string, c domain.FilterCriteria) (domain.ListingResult, error) {
			if c.Query == "A" {
				<-gateA
				return domain.ListingResult{}, errors.New("boom")
			}
			return domain.ListingResult{Items: []domain.Product{}, TotalPages: 0, CurrentPage: 1}, nil
		},
	}
	c := newController(t, svc)

	c.ApplyFilterPatch(domain.FilterPatch{Query: strPtr("A")})
	c.ApplyFilterPatch(domain.FilterPatch{Query: strPtr("B")})
	if _, err := c.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	close(gateA)
	c.wg.Wait()

	if kind := c.State().Status.Kind; kind != domain.StatusSuccess {
		t.Fatalf("stale failure should be discarded, got %v", kind)
	}
}

func TestController_Reset(t *testing.T) {
	svc := &scriptedService{}
	c := newController(t, svc)

	c.ApplyFilterPatch(domain.FilterPatch{
		Query:    strPtr("phone"),
		Category: strPtr("Electronics"),
		Brand:    strPtr("Samsung"),
		MinPrice: floatPtr(100),
		MaxPrice: floatPtr(900),
		PerPage:  func() *int { n := 24; return &n }(),
	})
	c.wg.Wait()
	c.SetPage(5)
	c.wg.Wait()
	got := c.Reset()

	if !reflect.DeepEqual(got, domain.DefaultCriteria()) {
		t.Fatalf("reset returned %+v", got)
	}
	if !reflect.DeepEqual(c.Criteria(), domain.DefaultCriteria()) {
		t.Fatalf("criteria after reset: %+v", c.Criteria())
	}
	c.wg.Wait()
	calls := svc.recorded()
	if len(calls) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(calls))
	}
	last := calls[2]
	if last.method != "list" || !reflect.DeepEqual(last.criteria, domain.DefaultCriteria()) {
		t.Fatalf("reset should list the defaults, got %+v", last)
	}
}

func TestController_ResetHonoursConfiguredPerPage(t *testing.T) {
	c := newController(t, &scriptedService{}, WithPerPage(24))
	c.ApplyFilterPatch(domain.FilterPatch{Brand: strPtr("Nike")})
	if got := c.Reset(); got.PerPage != 24 || got.Brand != "" || got.Page != 1 {
		t.Fatalf("unexpected criteria after reset: %+v", got)
	}
}

func TestController_FailureAndRefresh(t *testing.T) {
	var mu sync.Mutex
	fail := true
	svc := &scriptedService{
		handle: func(ctx context.Context, _ string, c domain.FilterCriteria) (domain.ListingResult, error) {
			mu.Lock()
			defer mu.Unlock()
			if fail {
				return domain.ListingResult{}, domain.NewStatusError("list products", 503, "Service Unavailable")
			}
			return domain.ListingResult{Items: []domain.Product{}, TotalPages: 1, CurrentPage: 1}, nil
		},
	}
	c := newController(t, svc)

	c.SetPage(2)
	st, err := c.Wait(waitCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	if st.Status.Kind != domain.StatusFailed || st.Status.Reason != domain.ReasonGeneric {
		t.Fatalf("expected failure with generic reason, got %+v", st.Status)
	}
	if len(c.Window(WindowWide).Pages) != 0 {
		t.Fatal("failed controller should have an empty window")
	}

	mu.Lock()
	fail = false
	mu.Unlock()
	if got := c.Refresh(); got.Page != 2 {
		t.Fatalf("refresh must keep the criteria, got page %d", got.Page)
	}
	st, _ = c.Wait(waitCtx(t))
	if st.Status.Kind != domain.StatusSuccess {
		t.Fatalf("expected success after refresh, got %+v", st.Status)
	}
}

func TestController_Timeout(t *testing.T) {
	svc := &scriptedService{
		handle: func(ctx context.Context, _ string, _ domain.FilterCriteria) (domain.ListingResult, error) {
			<-ctx.Done()
			return domain.ListingResult{}, ctx.Err()
		},
	}
	c := newController(t, svc, WithTimeout(20*time.Millisecond))

	c.Refresh()
	st, err := c.Wait(waitCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	if st.Status.Kind != domain.StatusFailed || st.Status.Reason != domain.ReasonTimeout {
		t.Fatalf("expected timeout failure, got %+v", st.Status)
	}
}

func TestController_PanickingServiceFails(t *testing.T) {
	svc := &scriptedService{
		handle: func(context.Context, string, domain.FilterCriteria) (domain.ListingResult, error) {
			panic("nil map")
		},
	}
	c := newController(t, svc)

	c.Refresh()
	st, _ := c.Wait(waitCtx(t))
	if st.Status.Kind != domain.StatusFailed || st.Status.Err == nil {
		t.Fatalf("expected failure, got %+v", st.Status)
	}
}

func TestController_OptionsFailureDoesNotFailListing(t *testing.T) {
	svc := &scriptedService{
		cats: func(context.Context) ([]string, error) {
			return nil, errors.New("categories down")
		},
	}
	c := newController(t, svc)

	c.Start()
	st, err := c.Wait(waitCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	if st.Status.Kind != domain.StatusSuccess {
		t.Fatalf("listing should succeed, got %+v", st.Status)
	}
	if !st.OptionsLoaded || len(st.Categories) != 0 {
		t.Fatalf("categories should be empty, got %v", st.Categories)
	}
	if !reflect.DeepEqual(st.Brands, []string{"Apple", "Dell"}) {
		t.Fatalf("brands should still load, got %v", st.Brands)
	}
}

func TestController_OptionsLoadedOnce(t *testing.T) {
	svc := &scriptedService{}
	c := newController(t, svc)

	c.Start()
	c.LoadOptions()
	c.ApplyFilterPatch(domain.FilterPatch{Brand: strPtr("Dell")})
	c.wg.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.options != 2 {
		t.Fatalf("expected one categories and one brands call, got %d", svc.options)
	}
}

func TestController_Subscribe(t *testing.T) {
	release := make(chan struct{})
	svc := &scriptedService{
		handle: func(ctx context.Context, _ string, c domain.FilterCriteria) (domain.ListingResult, error) {
			<-release
			return domain.ListingResult{Items: []domain.Product{}, TotalPages: 1, CurrentPage: 1}, nil
		},
	}
	c := newController(t, svc)

	var mu sync.Mutex
	var kinds []domain.StatusKind
	unsubscribe := c.Subscribe(func(st State) {
		mu.Lock()
		kinds = append(kinds, st.Status.Kind)
		mu.Unlock()
	})

	c.Refresh()
	close(release)
	c.wg.Wait()
	unsubscribe()
	c.subWG.Wait()
	c.Refresh()
	c.wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []domain.StatusKind{domain.StatusLoading, domain.StatusSuccess}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("got notifications %v, want %v", kinds, want)
	}
}

func TestController_SubscriberMayMutate(t *testing.T) {
	c := newController(t, &scriptedService{})

	reached := make(chan int, 1)
	var once sync.Once
	c.Subscribe(func(st State) {
		if st.Status.Kind != domain.StatusSuccess {
			return
		}
		switch st.Criteria.Page {
		case 1:
			once.Do(func() { c.SetPage(2) })
		case 2:
			select {
			case reached <- st.Status.Result.CurrentPage:
			default:
			}
		}
	})

	c.Refresh()
	select {
	case page := <-reached:
		if page != 2 {
			t.Fatalf("expected page 2, got %d", page)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber calling SetPage blocked the controller")
	}
}

func TestController_WaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	svc := &scriptedService{
		handle: func(ctx context.Context, _ string, _ domain.FilterCriteria) (domain.ListingResult, error) {
			select {
			case <-block:
			case <-ctx.Done():
			}
			return domain.ListingResult{}, ctx.Err()
		},
	}
	c := newController(t, svc)
	c.Refresh()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st, err := c.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) || st.Status.Kind != domain.StatusLoading {
		t.Fatalf("expected deadline while loading, got %v / %v", err, st.Status.Kind)
	}
}

func TestController_EndToEnd(t *testing.T) {
	srv := storefronttest.NewServer(storefronttest.SampleProducts(30))
	defer srv.Close()

	client := apiclient.New(srv.URL, 2*time.Second)
	c := newController(t, client, WithPerPage(2))

	c.ApplyFilterPatch(domain.FilterPatch{Query: strPtr("laptop")})
	st, err := c.Wait(waitCtx(t))
	if err != nil {
		t.Fatal(err)
	}
	res := st.Status.Result
	if st.Status.Kind != domain.StatusSuccess || len(res.Items) != 2 || res.TotalPages != 3 || res.CurrentPage != 1 {
		t.Fatalf("unexpected result: kind=%v items=%d pages=%d current=%d",
			st.Status.Kind, len(res.Items), res.TotalPages, res.CurrentPage)
	}
	if srv.Hits(storefronttest.RouteSearch) != 1 || srv.Hits(storefronttest.RouteList) != 0 {
		t.Fatal("a query should be served by exactly one search request")
	}

	w := c.Window(WindowWide)
	if !reflect.DeepEqual(w.Pages, []int{1, 2, 3}) || w.HasPrev || !w.HasNext {
		t.Fatalf("unexpected window %+v", w)
	}

	c.SetPage(3)
	st, _ = c.Wait(waitCtx(t))
	w = c.Window(WindowWide)
	if st.Status.Result.CurrentPage != 3 || !w.HasPrev || w.HasNext {
		t.Fatalf("unexpected last page state: current=%d window=%+v", st.Status.Result.CurrentPage, w)
	}
}

func TestController_WithCriteriaSeedsFirstFetch(t *testing.T) {
	svc := &scriptedService{}
	seed := domain.DefaultCriteria().Apply(domain.FilterPatch{Brand: strPtr("Sony")}).WithPage(3)
	c := newController(t, svc, WithCriteria(seed), WithPerPage(6))

	c.Refresh()
	c.wg.Wait()
	calls := svc.recorded()
	if len(calls) != 1 || calls[0].criteria.Page != 3 || calls[0].criteria.Brand != "Sony" {
		t.Fatalf("unexpected first request %+v", calls)
	}
	if got := c.Reset(); got.Brand != "" || got.PerPage != 6 {
		t.Fatalf("reset should use defaults, got %+v", got)
	}
}
