package advisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skufu/vitreos/internal/completion"
	"github.com/Skufu/vitreos/internal/profile"
	"github.com/Skufu/vitreos/internal/prompts"
	"github.com/Skufu/vitreos/internal/severity"
)

// DashboardEntries is how many history entries feed the insight prompt.
const DashboardEntries = 5

// DashboardPage is the navigation target that triggers a refresh.
const DashboardPage = "dash"

// Dashboard analyses the most recent history entries. With no history the
// current profile stands in as a single entry.
func (s *Service) Dashboard(ctx context.Context) (*DashboardResult, error) {
	tpl, snap, err := s.begin(prompts.Dashboard)
	if err != nil {
		return nil, err
	}

	entries := s.profile.History()
	if len(entries) > DashboardEntries {
		entries = entries[:DashboardEntries]
	}
	if len(entries) == 0 {
		entries = []profile.HistoryEntry{{Timestamp: time.Now(), Profile: snap}}
	}

	var wire dashboardWire
	if err := s.exchange(ctx, tpl, completion.Request{Context: dashboardContext(entries)}, &wire); err != nil {
		return nil, err
	}

	band := severity.BandFor(*wire.HealthScore)
	if wire.OverallHealth != "" && wire.OverallHealth != band.HealthLabel() {
		s.logger.Warn().
			Str("model", wire.OverallHealth).
			Str("derived", band.HealthLabel()).
			Float64("score", *wire.HealthScore).
			Msg("overall health label overridden by score band")
	}

	alerts := wire.Alerts
	if alerts == nil {
		alerts = []Alert{}
	}
	return &DashboardResult{
		OverallHealth:   band.HealthLabel(),
		HealthScore:     *wire.HealthScore,
		Band:            band,
		Insights:        orEmpty(wire.Insights),
		Recommendations: orEmpty(wire.Recommendations),
		Alerts:          alerts,
		Entries:         len(entries),
	}, nil
}

// RefreshState is the outcome of the most recent scheduled refresh.
type RefreshState struct {
	Result    *DashboardResult `json:"result,omitempty"`
	Err       error            `json:"-"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Pending   bool             `json:"pending"`
}

// Refresher runs dashboard insights shortly after the dashboard is opened.
// A new schedule replaces any pending one.
type Refresher struct {
	svc    *Service
	delay  time.Duration
	logger zerolog.Logger

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	state      RefreshState
	stopped    bool
	running    sync.WaitGroup
}

func NewRefresher(svc *Service, delay time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		svc:    svc,
		delay:  delay,
		logger: logger.With().Str("component", "dashboard-refresh").Logger(),
	}
}

// Navigate schedules a refresh when page is the dashboard and reports
// whether it did.
func (r *Refresher) Navigate(page string) bool {
	if page != DashboardPage {
		return false
	}
	r.Schedule()
	return true
}

// Schedule replaces any pending refresh with a new one. It is a no-op once
// Stop has been called.
func (r *Refresher) Schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	if r.timer != nil {
		r.timer.Stop()
	}
	r.generation++
	gen := r.generation
	r.state.Pending = true
	r.timer = time.AfterFunc(r.delay, func() { r.fire(gen) })
}

func (r *Refresher) fire(gen uint64) {
	r.mu.Lock()
	if r.stopped || gen != r.generation {
		r.mu.Unlock()
		return
	}
	r.running.Add(1)
	r.mu.Unlock()

	defer r.running.Done()
	r.run(gen)
}

func (r *Refresher) run(gen uint64) {
	res, err := r.svc.Dashboard(context.Background())

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.logger.Debug().Uint64("generation", gen).Msg("discarding superseded refresh")
		return
	}
	r.state = RefreshState{Result: res, Err: err, UpdatedAt: time.Now()}
	if err != nil {
		r.logger.Warn().Err(err).Msg("dashboard refresh failed")
	}
}

// Latest returns the cached refresh outcome.
func (r *Refresher) Latest() RefreshState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stop cancels any pending refresh and blocks until a refresh already in
// flight has returned.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.stopped = true
	r.generation++
	r.state.Pending = false
	r.mu.Unlock()

	r.running.Wait()
}
