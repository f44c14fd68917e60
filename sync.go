package transit

import (
	"context"
	"sync/atomic"
)

// Importer is the external collaborator that populates storage: the
// static schedule feed and the realtime delay feed. Both operations are
// idempotent.
type Importer interface {
	ImportStaticSchedule(ctx context.Context) error
	RefreshRealtimeDelays(ctx context.Context) error
}

// guard deduplicates a job process-wide. An overlapping run is a no-op,
// not queued.
type guard struct {
	busy atomic.Bool
}

func (g *guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *guard) Release() {
	g.busy.Store(false)
}

// Orchestrator runs the import, realtime refresh and shape rebuild jobs,
// holding at most one of each in flight. Triggering is the caller's
// concern; the orchestrator only guards and runs.
type Orchestrator struct {
	service  *Service
	importer Importer

	importGuard   guard
	realtimeGuard guard
	rebuildGuard  guard
	bootstrapped  atomic.Bool
}

func NewOrchestrator(service *Service, importer Importer) *Orchestrator {
	return &Orchestrator{
		service:  service,
		importer: importer,
	}
}

// Runs a static schedule import. Returns false without error when an
// import is already in flight.
func (o *Orchestrator) RunImport(ctx context.Context) (bool, error) {
	if !o.importGuard.TryAcquire() {
		return false, nil
	}
	defer o.importGuard.Release()

	return true, o.importer.ImportStaticSchedule(ctx)
}

// Runs a realtime delay refresh. Returns false without error when a
// refresh is already in flight.
func (o *Orchestrator) RunRealtimeRefresh(ctx context.Context) (bool, error) {
	if !o.realtimeGuard.TryAcquire() {
		return false, nil
	}
	defer o.realtimeGuard.Release()

	return true, o.importer.RefreshRealtimeDelays(ctx)
}

// Rebuilds the generated shape cache. Returns false without error when a
// rebuild is already in flight.
func (o *Orchestrator) RunShapeRebuild() (bool, error) {
	if !o.rebuildGuard.TryAcquire() {
		return false, nil
	}
	defer o.rebuildGuard.Release()

	_, err := o.service.RebuildShapes()
	return true, err
}

// Runs the initial import followed by a shape rebuild, at most once per
// orchestrator. Later calls return false without doing anything, even if
// the first run failed partway. Each job holds its regular guard, so a
// run already in flight elsewhere is skipped, never duplicated.
func (o *Orchestrator) Bootstrap(ctx context.Context) (bool, error) {
	if !o.bootstrapped.CompareAndSwap(false, true) {
		return false, nil
	}

	if _, err := o.RunImport(ctx); err != nil {
		return true, err
	}

	_, err := o.RunShapeRebuild()
	return true, err
}
