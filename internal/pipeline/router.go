package pipeline

import (
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"onsetdetect/internal/config"
	"onsetdetect/internal/events"
	"onsetdetect/internal/model"
)

// Router shards ticks across a fixed pool of worker goroutines keyed by
// symbol hash, so that all ticks for a given symbol are processed in
// arrival order by exactly one goroutine while distinct symbols run in
// parallel. Follows cmd/orderflow/main.go's single-owner-goroutine
// pattern, generalized from one shared engine to N workers each owning
// a private set of per-symbol Pipelines.
type Router struct {
	cfg  config.Config
	sink *events.Sink
	log  zerolog.Logger

	workers []chan model.Tick
	wg      sync.WaitGroup
}

// NewRouter starts n worker goroutines and returns a Router ready to
// accept ticks. n should typically track available CPU parallelism.
func NewRouter(n int, cfg config.Config, sink *events.Sink, log zerolog.Logger) *Router {
	if n <= 0 {
		n = 1
	}
	r := &Router{cfg: cfg, sink: sink, log: log, workers: make([]chan model.Tick, n)}
	r.wg.Add(n)
	for i := 0; i < n; i++ {
		ch := make(chan model.Tick, 1024)
		r.workers[i] = ch
		go r.runWorker(ch)
	}
	return r
}

func (r *Router) runWorker(ch chan model.Tick) {
	defer r.wg.Done()
	pipelines := make(map[string]*Pipeline)
	for t := range ch {
		p, ok := pipelines[t.Symbol]
		if !ok {
			p = New(t.Symbol, r.cfg, r.log)
			pipelines[t.Symbol] = p
		}
		evs, err := p.Push(t)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", t.Symbol).Int64("ts", t.Ts).Msg("bad tick dropped")
			continue
		}
		if r.sink == nil {
			continue
		}
		for _, e := range evs {
			r.sink.Emit(e)
		}
	}
}

// Route delivers t to the worker owning its symbol. It blocks if that
// worker's queue is full, applying backpressure to the caller rather
// than drop or reorder ticks.
func (r *Router) Route(t model.Tick) {
	r.workers[r.shardFor(t.Symbol)] <- t
}

func (r *Router) shardFor(symbol string) int {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(len(r.workers)))
}

// Close signals every worker to drain and exit once their queues are
// empty. It does not wait for workers to finish — callers that need to
// block until every worker has stopped emitting (e.g. before closing a
// shared sink) must call Wait afterward.
func (r *Router) Close() {
	for _, ch := range r.workers {
		close(ch)
	}
}

// Wait blocks until every worker goroutine has drained its queue and
// exited. Callers must call Close first; Wait never returns otherwise.
func (r *Router) Wait() {
	r.wg.Wait()
}
