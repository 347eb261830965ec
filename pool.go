package vklife

import (
	"slices"
	"sync"
	"weak"

	"go.uber.org/zap"
)

// poolState tracks the sub-objects allocated from a command or descriptor
// pool and owns their release capability. Sub-objects reach it through a weak
// pointer; the pool's own record holds the only strong reference.
type poolState struct {
	mu      sync.Mutex
	tracked []*object
	log     *zap.Logger

	// individualFree is false for descriptor pools created without
	// DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT.
	individualFree bool
	free           func(handles []Handle) Result
}

func newPoolState(log *zap.Logger, individualFree bool, free func([]Handle) Result) *poolState {
	return &poolState{
		log:            log,
		individualFree: individualFree,
		free:           free,
	}
}

// allocate runs the native allocation under the pool lock and tracks the
// resulting objects. wrap builds the record for each returned handle.
func (p *poolState) allocate(alloc func() ([]Handle, Result), wrap func(Handle) *object) ([]*object, Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles, result := alloc()
	if result != SUCCESS {
		return nil, result
	}

	ref := weak.Make(p)
	objs := make([]*object, len(handles))
	for i, h := range handles {
		o := wrap(h)
		o.pooled = true
		o.pool = ref
		objs[i] = o
	}
	p.tracked = append(p.tracked, objs...)
	return objs, SUCCESS
}

// release frees the objects that still hold the release capability with one
// native call and stops tracking them. Objects already invalidated by a bulk
// operation are skipped.
func (p *poolState) release(objs []*object) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles := make([]Handle, 0, len(objs))
	for _, o := range objs {
		if !o.canRelease.CompareAndSwap(true, false) {
			continue
		}
		handles = append(handles, o.handle)
		p.tracked = slices.DeleteFunc(p.tracked, func(t *object) bool { return t == o })
	}

	if len(handles) == 0 || !p.individualFree {
		return SUCCESS
	}

	result := p.free(handles)
	if result != SUCCESS {
		p.log.Warn("individual free failed", zap.Int("count", len(handles)), zap.Error(result))
	}
	return result
}

// invalidate runs the native bulk operation, if any, then revokes the
// release capability of every tracked object and clears the list. The
// revocation happens even when bulk reports a failure: the native side owns
// the objects from this point on.
func (p *poolState) invalidate(op string, bulk func() Result) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := SUCCESS
	if bulk != nil {
		result = bulk()
	}

	for _, o := range p.tracked {
		o.revoke()
	}
	count := len(p.tracked)
	p.tracked = nil

	p.log.Debug("pool invalidated",
		zap.String("op", op),
		zap.Int("count", count),
		zap.Stringer("result", result),
	)
	return result
}

// len reports how many sub-objects are still tracked.
func (p *poolState) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracked)
}
