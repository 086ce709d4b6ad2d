package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

const (
	AccountsRegistered = "accounts_registered"
	LoginsFailed       = "logins_failed"
	ListingsCreated    = "listings_created"
	FavoritesAdded     = "favorites_added"
)

// counters are the only names Incr accepts.
var counters = []string{AccountsRegistered, LoginsFailed, ListingsCreated, FavoritesAdded}

type StatsProvider interface {
	Incr(name string)
}

// StatsUpdater owns the estate counters. Increments are queued on
// updateChan and applied by a single goroutine started with Run.
type StatsUpdater struct {
	vars       *expvar.Map
	startTime  time.Time
	updateChan chan string
}

// NewStatsUpdater publishes the estate counters and serves them on
// /debug/vars. The expvar map is process-global, so it must be called once.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:       expvar.NewMap("estate-stats"),
		startTime:  time.Now(),
		updateChan: make(chan string, 512),
	}

	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(su.startTime).Milliseconds()
	}))
	for _, name := range counters {
		su.vars.Set(name, new(expvar.Int))
	}

	mux.HandleFunc("GET /debug/vars", su.serveCounters)
	return su
}

func (su *StatsUpdater) serveCounters(w http.ResponseWriter, r *http.Request) {
	snapshot := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		snapshot[kv.Key] = value
	})

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(snapshot)
}

// Incr queues a single increment of the named counter. Unknown names are
// dropped.
func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- name
}

func (su *StatsUpdater) Run() {
	go func() {
		for name := range su.updateChan {
			if counter, ok := su.vars.Get(name).(*expvar.Int); ok {
				counter.Add(1)
			}
		}
	}()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}
