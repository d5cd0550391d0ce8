package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/pflow/internal/cachemanager"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/event"
	"github.com/zjrosen/pflow/internal/geometry"
	"github.com/zjrosen/pflow/internal/listmgr"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pubsub"
	"github.com/zjrosen/pflow/internal/status"
	"github.com/zjrosen/pflow/internal/tracing"
)

// Instance is one configured reconstruction pipeline. It is not safe for
// concurrent use; run one Instance per goroutine.
type Instance struct {
	cfg      Config
	registry *Registry

	hits     *HitManager
	tracks   *TrackManager
	clusters *ClusterManager

	nodes map[string]*node
	top   []*node

	geometry *geometry.Calculator
	tracer   trace.Tracer
	metrics  Metrics
	runID    string
}

// node is one algorithm instance in the algorithm tree.
type node struct {
	id        listmgr.ScopeID
	typ       string
	algo      Algorithm
	parent    *node
	depth     int
	daughters map[string]*node
	suspended map[string]*node
	recluster *reclusterState
	api       *API
}

// Option configures an Instance.
type Option func(*options)

type options struct {
	tracer    trace.Tracer
	metrics   Metrics
	publisher pubsub.Publisher[listmgr.Change]
	geometry  *geometry.Calculator
	runID     string
}

// WithTracer traces events and algorithm runs with t.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMetrics reports measurements to m.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithChangePublisher publishes list-manager changes of all three managers to p.
func WithChangePublisher(p pubsub.Publisher[listmgr.Change]) Option {
	return func(o *options) { o.publisher = p }
}

// WithGeometry assigns pseudo layers with c instead of the default geometry.
func WithGeometry(c *geometry.Calculator) Option {
	return func(o *options) { o.geometry = c }
}

// WithRunID tags spans with id instead of a random one.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// NewInstance validates cfg, creates the managers and initializes every
// configured algorithm.
func NewInstance(cfg Config, reg *Registry, opts ...Option) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if reg == nil {
		return nil, errors.New("nil algorithm registry")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("pflow")
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if o.geometry == nil {
		cache := cachemanager.NewInMemoryCacheManager[geometry.LayerKey, uint32](
			"pseudo-layers", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval)
		calc, err := geometry.NewCalculator(geometry.DefaultConfig(), cache)
		if err != nil {
			return nil, err
		}
		o.geometry = calc
	}

	mopts := []listmgr.Option{listmgr.WithRecorder(o.metrics)}
	if o.publisher != nil {
		mopts = append(mopts, listmgr.WithPublisher(o.publisher))
	}

	inst := &Instance{
		cfg:      cfg,
		registry: reg,
		hits:     listmgr.New[*content.CaloHit, content.CaloHitParameters]("calo_hits", content.NewCaloHit, mopts...),
		tracks:   listmgr.New[*content.Track, content.TrackParameters]("tracks", content.NewTrack, mopts...),
		clusters: listmgr.New[*content.Cluster, content.ClusterParameters]("clusters", content.NewCluster, mopts...),
		nodes:    make(map[string]*node),
		geometry: o.geometry,
		tracer:   o.tracer,
		metrics:  o.metrics,
		runID:    o.runID,
	}

	for _, ac := range cfg.Algorithms {
		n, err := inst.createAlgorithm(ac, nil)
		if err != nil {
			return nil, err
		}
		inst.top = append(inst.top, n)
	}
	log.Info(log.CatPipeline, "pipeline ready", "run", inst.runID, "algorithms", len(inst.nodes))
	return inst, nil
}

// RunID returns the identifier attached to this instance's spans.
func (i *Instance) RunID() string {
	return i.runID
}

// Algorithms returns the names of every algorithm instance, daughters
// included, in sorted order.
func (i *Instance) Algorithms() []string {
	names := make([]string, 0, len(i.nodes))
	for name := range i.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (i *Instance) lifecycles() []listmgr.Lifecycle {
	return []listmgr.Lifecycle{i.hits, i.tracks, i.clusters}
}

// createAlgorithm builds and initializes an algorithm instance under parent.
func (i *Instance) createAlgorithm(cfg AlgorithmConfig, parent *node) (*node, error) {
	if cfg.Type == "" {
		return nil, status.New(status.InvalidParameter, "CreateAlgorithm", "empty algorithm type")
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Type + "_" + uuid.NewString()[:8]
	}
	if _, dup := i.nodes[name]; dup {
		return nil, status.New(status.AlreadyPresent, "CreateAlgorithm", "algorithm %q", name)
	}
	algo, err := i.registry.New(cfg.Type)
	if err != nil {
		return nil, err
	}

	n := &node{
		id:        listmgr.ScopeID(name),
		typ:       cfg.Type,
		algo:      algo,
		parent:    parent,
		daughters: make(map[string]*node),
		suspended: make(map[string]*node),
	}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	n.api = i.newAPI(n)
	i.nodes[name] = n

	var errs []error
	for _, lc := range i.lifecycles() {
		errs = append(errs, lc.RegisterAlgorithm(n.id))
	}
	if err := errors.Join(errs...); err == nil {
		err = algo.Initialize(n.api, cfg)
		errs = append(errs, err)
	}
	errs = append(errs, i.exit(n, listmgr.Finished))
	if err := errors.Join(errs...); err != nil {
		i.forget(n)
		return nil, fmt.Errorf("initialize %s (%s): %w", name, cfg.Type, err)
	}

	if parent != nil {
		parent.daughters[name] = n
	}
	log.Debug(log.CatPipeline, "algorithm created", "name", name, "type", cfg.Type, "depth", n.depth)
	return n, nil
}

// forget removes n and any daughters it created from the instance.
func (i *Instance) forget(n *node) {
	for _, d := range n.daughters {
		i.forget(d)
	}
	delete(i.nodes, string(n.id))
}

func (i *Instance) enter(n *node) error {
	for _, lc := range i.lifecycles() {
		if err := lc.EnterScope(n.id); err != nil {
			return err
		}
	}
	return nil
}

func (i *Instance) exit(n *node, completion listmgr.Completion) error {
	var errs []error
	for _, lc := range i.lifecycles() {
		errs = append(errs, lc.ExitScope(n.id, completion))
	}
	return errors.Join(errs...)
}

// pendingDeletion returns how many unsaved objects leaving n's scope will
// destroy across all managers.
func (i *Instance) pendingDeletion(n *node) int {
	total := 0
	for _, lc := range i.lifecycles() {
		pending, err := lc.PendingDeletion(n.id)
		if err != nil || len(pending) == 0 {
			continue
		}
		log.Debug(log.CatScope, "unsaved objects pending deletion", "manager", lc.Name(), "scope", n.id, "objects", len(pending))
		total += len(pending)
	}
	return total
}

// runNode runs one algorithm inside its scope. Whatever Run returns, pending
// reclustering is ended and, on Finished, suspended daughter scopes are
// closed before the scope itself exits.
func (i *Instance) runNode(ctx context.Context, n *node, completion listmgr.Completion) (err error) {
	ctx, span := tracing.StartAlgorithm(ctx, i.tracer, n.typ, string(n.id), string(n.id), n.depth)
	span.SetAttributes(attribute.String(tracing.AttrCompletion, completion.String()))
	start := time.Now()
	defer func() {
		i.metrics.RecordAlgorithm(n.typ, time.Since(start))
		tracing.EndSpan(span, err)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := i.enter(n); err != nil {
		return err
	}

	runErr := n.algo.Run(ctx, n.api)

	var cleanupErr error
	if n.recluster != nil {
		log.Warn(log.CatPipeline, "reclustering not ended, keeping original clusters", "algorithm", n.id)
		cleanupErr = n.api.EndReclustering(n.recluster.original)
	}
	if completion == listmgr.Finished {
		cleanupErr = errors.Join(cleanupErr, i.finishSuspended(n))
	} else {
		span.AddEvent(tracing.EventScopeSuspended)
	}
	span.SetAttributes(attribute.Int(tracing.AttrPendingObjects, i.pendingDeletion(n)))
	exitErr := i.exit(n, completion)

	if err := errors.Join(runErr, cleanupErr, exitErr); err != nil {
		return fmt.Errorf("%s: %w", n.id, err)
	}
	return nil
}

// finishSuspended closes the scopes of n's suspended daughters, deepest first.
func (i *Instance) finishSuspended(n *node) error {
	names := make([]string, 0, len(n.suspended))
	for name := range n.suspended {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		d := n.suspended[name]
		errs = append(errs, i.finishSuspended(d), i.exit(d, listmgr.Finished))
		log.Debug(log.CatPipeline, "suspended daughter finished", "parent", n.id, "daughter", d.id)
	}
	clear(n.suspended)
	return errors.Join(errs...)
}

// reset clears every manager and all per-event algorithm state.
func (i *Instance) reset() {
	for _, lc := range i.lifecycles() {
		lc.ResetForNextEvent()
	}
	for _, n := range i.nodes {
		clear(n.suspended)
		n.recluster = nil
	}
}

// ProcessEvent runs every configured algorithm over ev. The managers are
// reset first, so the state of the previous event is gone. A fatal error
// aborts the event and resets the managers again; any other error stops the
// remaining algorithms and is returned together with the partial result.
func (i *Instance) ProcessEvent(ctx context.Context, ev event.Event) (res *Result, err error) {
	start := time.Now()
	outcome := OutcomeOK
	ctx, span := tracing.StartEvent(ctx, i.tracer, i.runID, ev.Index, len(ev.CaloHits), len(ev.Tracks))
	defer func() {
		i.metrics.RecordEvent(outcome, time.Since(start))
		i.metrics.RecordCache(i.geometry.Stats())
		tracing.EndSpan(span, err)
		log.Debug(log.CatPipeline, "event processed", "event", ev.Index, "outcome", outcome, "elapsed", time.Since(start))
	}()

	i.reset()
	if err := i.load(ctx, ev); err != nil {
		outcome = OutcomeFailed
		return nil, fmt.Errorf("event %d: %w", ev.Index, err)
	}

	for _, n := range i.top {
		if err := i.runNode(ctx, n, listmgr.Finished); err != nil {
			if status.IsFatal(err) {
				outcome = OutcomeAborted
				i.reset()
				log.ErrorErr(log.CatPipeline, "event aborted", err, "event", ev.Index, "algorithm", n.id)
				return nil, fmt.Errorf("event %d aborted: %w", ev.Index, err)
			}
			outcome = OutcomeFailed
			return i.result(ev.Index), fmt.Errorf("event %d: %w", ev.Index, err)
		}
	}
	return i.result(ev.Index), nil
}

// load creates the input lists, makes them current and fills them.
func (i *Instance) load(ctx context.Context, ev event.Event) error {
	if err := i.hits.CreateNamedList(i.cfg.InputCaloHitList); err != nil {
		return err
	}
	if err := i.hits.SetCurrent(i.cfg.InputCaloHitList); err != nil {
		return err
	}
	if err := i.tracks.CreateNamedList(i.cfg.InputTrackList); err != nil {
		return err
	}
	if err := i.tracks.SetCurrent(i.cfg.InputTrackList); err != nil {
		return err
	}

	for n, p := range ev.CaloHits {
		layer, err := i.geometry.PseudoLayer(ctx, p)
		if err != nil {
			return fmt.Errorf("calo hit %d: %w", n, err)
		}
		p.PseudoLayer = layer
		if _, err := i.hits.CreateObject(p); err != nil {
			return fmt.Errorf("calo hit %d: %w", n, err)
		}
	}
	for n, p := range ev.Tracks {
		if _, err := i.tracks.CreateObject(p); err != nil {
			return fmt.Errorf("track %d: %w", n, err)
		}
	}
	return nil
}
