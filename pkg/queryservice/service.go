// Package queryservice is the concurrency boundary described in the
// overlay's resource model: one immutable base graph and snap index
// shared read-only across many simultaneous routing requests, each of
// which builds and discards its own QueryGraph.
package queryservice

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kartaroute/querygraph/pkg/concurrent"
	"github.com/kartaroute/querygraph/pkg/geo"
	"github.com/kartaroute/querygraph/pkg/graph"
	"github.com/kartaroute/querygraph/pkg/querygraph"
	"github.com/kartaroute/querygraph/pkg/snap"
	"github.com/kartaroute/querygraph/pkg/util"
)

// Service resolves routing requests against one base graph and its snap
// index. Both are treated as immutable for the lifetime of the Service;
// nothing here mutates them.
type Service struct {
	base    graph.Graph
	index   *snap.Index
	log     *zap.Logger
	limiter *rate.Limiter
}

// New builds a Service. log may be nil, in which case logging is a no-op.
func New(base graph.Graph, index *snap.Index, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{base: base, index: index, log: log}
}

// SetRateLimit bounds how often Resolve may proceed past admission, at
// rps requests per second with the given burst allowance. This protects
// the shared snap index and base graph from a caller issuing far more
// concurrent requests than the deployment was sized for. It also applies
// to every request ResolveBatch runs, since each goes through Resolve;
// the worker count bounds concurrency separately.
func (s *Service) SetRateLimit(rps float64, burst int) {
	s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Request is one routing query: the waypoints to snap, in order, and how
// far to search around each before giving up.
type Request struct {
	Points         []graph.Coordinate
	SearchRadiusKm float64
}

// Result is what Resolve hands back: a QueryGraph ready for a routing
// algorithm, the raw snap results behind it, and those snapped points
// re-encoded as a polyline for logging or returning to a caller that
// only wants to render the snap, not route through it.
type Result struct {
	QueryGraph      *querygraph.QueryGraph
	SnapResults     []snap.QueryResult
	SnappedPolyline string
}

// Resolve snaps every point in req concurrently — the projections are
// independent of one another — then builds one QueryGraph from the
// resulting QueryResults. The first snap failure cancels the rest via
// ctx and is returned; partial results are discarded, since a
// QueryGraph missing a waypoint is not a valid basis for routing.
func (s *Service) Resolve(ctx context.Context, req Request) (Result, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Result{}, util.WrapErrorf(err, ErrResolveFailed, "rate limit wait")
		}
	}

	results := make([]snap.QueryResult, len(req.Points))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range req.Points {
		i, p := i, p
		g.Go(func() error {
			if util.StopConcurrentOperation(gctx) {
				return gctx.Err()
			}
			r, err := s.index.FindClosest(snap.Request{Lat: p.Lat, Lon: p.Lon, SearchRadiusKm: req.SearchRadiusKm})
			if err != nil {
				return util.WrapErrorf(err, ErrResolveFailed, "resolving waypoint %d (%f,%f)", i, p.Lat, p.Lon)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("snap resolution failed", zap.Error(err), zap.Int("points", len(req.Points)))
		return Result{}, err
	}

	qg, err := querygraph.Lookup(s.base, results)
	if err != nil {
		return Result{}, util.WrapErrorf(err, ErrResolveFailed, "building query graph from %d snaps", len(results))
	}

	snapped := make([]geo.Coordinate, len(results))
	for i, r := range results {
		snapped[i] = geo.Coordinate{Lat: r.SnappedPoint.Lat, Lon: r.SnappedPoint.Lon}
	}

	s.log.Debug("resolved query graph",
		zap.Int("waypoints", len(req.Points)),
		zap.Int("virtual_nodes", qg.Nodes()-s.base.Nodes()),
		zap.Int("virtual_edges", qg.Edges()-s.base.Edges()),
	)

	return Result{QueryGraph: qg, SnapResults: results, SnappedPolyline: geo.EncodePolyline(snapped)}, nil
}

// ResolveBatch fans a slice of independent Requests out across a fixed
// worker pool, the batch-job shape of the same sharing model Resolve
// exercises per-request: one base graph and snap index, many concurrent
// QueryGraph builds. A request that fails to resolve contributes a zero
// Result rather than aborting its siblings. Result order is not
// guaranteed to match reqs.
func (s *Service) ResolveBatch(reqs []Request, numWorkers int) []Result {
	numWorkers = util.MinInt(numWorkers, len(reqs))
	if numWorkers < 1 {
		numWorkers = 1
	}
	pool := concurrent.NewWorkerPool[Request, Result](numWorkers, len(reqs))
	pool.Start(func(req Request) Result {
		res, err := s.Resolve(context.Background(), req)
		if err != nil {
			s.log.Error("batch request failed", zap.Error(err))
			return Result{}
		}
		return res
	})
	for _, r := range reqs {
		pool.AddJob(r)
	}
	pool.Close()
	pool.Wait()

	out := make([]Result, 0, len(reqs))
	for res := range pool.CollectResults() {
		out = append(out, res)
	}
	return out
}
