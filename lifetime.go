package vklife

import (
	"cmp"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"weak"

	"go.uber.org/zap"
)

// Destroyer is implemented by every wrapper that owns a native handle.
// Destroy is idempotent and never fails.
type Destroyer interface {
	Destroy()
}

// object is the release record behind every wrapper. Runtime cleanups get the
// record, never the wrapper, so a wrapper can be collected while its record
// still knows how to release the handle.
//
// destroyed is the disposal flag. canRelease is the capability to issue the
// individual native destroy; the owning context (device registry or pool)
// clears it when it invalidates the object in bulk.
type object struct {
	kind   ObjectType
	handle Handle
	log    *zap.Logger

	// release issues the native destroy through the owning context.
	// finalizing is true when the runtime cleanup of this object runs it.
	release func(finalizing bool)

	// owner is the registry of the device or instance that owns the object.
	// Nil for roots.
	owner *registry

	// pool is set for objects allocated from a pool. The pool owns the
	// release capability; the object only looks it up.
	pool   weak.Pointer[poolState]
	pooled bool

	// onRevoke propagates a revocation to objects this one owns.
	onRevoke func()

	destroyed  atomic.Bool
	canRelease atomic.Bool

	cleanup    runtime.Cleanup
	hasCleanup bool
}

func newObject(kind ObjectType, handle Handle, log *zap.Logger, release func(finalizing bool)) *object {
	o := &object{
		kind:    kind,
		handle:  handle,
		log:     log.With(zap.Stringer("type", kind), zap.Uint64("handle", uint64(handle))),
		release: release,
	}
	o.canRelease.Store(true)
	return o
}

// alive reports whether the handle may still be used.
func (o *object) alive() bool {
	return !o.destroyed.Load() && o.canRelease.Load()
}

// dispose runs the disposal contract: a no-op when already destroyed, no
// native call when the owning context revoked the release capability.
func (o *object) dispose(finalizing bool) {
	if !o.markDestroyed(finalizing) {
		return
	}

	switch {
	case o.pooled:
		if p := o.pool.Value(); p != nil {
			p.release([]*object{o})
		}
	case o.owner != nil:
		o.owner.release(o, finalizing)
	default:
		if o.canRelease.CompareAndSwap(true, false) {
			o.release(finalizing)
		}
	}

	o.log.Debug("destroyed")
}

// markDestroyed sets the disposal flag and reports whether this call set it.
// The runtime cleanup is stopped unless it is the caller.
func (o *object) markDestroyed(finalizing bool) bool {
	if !o.destroyed.CompareAndSwap(false, true) {
		return false
	}
	if o.hasCleanup && !finalizing {
		o.cleanup.Stop()
	}
	return true
}

func (o *object) finalize() {
	if !o.alive() {
		return
	}
	o.log.Warn("released by runtime cleanup; Destroy was never called")
	o.dispose(true)
}

// revoke clears the release capability without a native call.
func (o *object) revoke() bool {
	if !o.canRelease.CompareAndSwap(true, false) {
		return false
	}
	if o.onRevoke != nil {
		o.onRevoke()
	}
	return true
}

// watch registers the runtime cleanup safety net for w when enabled.
func watch[T any](w *T, o *object, enabled bool) {
	if !enabled {
		return
	}
	o.cleanup = runtime.AddCleanup(w, (*object).finalize, o)
	o.hasCleanup = true
}

// registry tracks the live children of an owning context in creation order.
type registry struct {
	mu      sync.Mutex
	next    uint64
	objects map[*object]uint64
}

func newRegistry() *registry {
	return &registry{objects: make(map[*object]uint64)}
}

func (r *registry) add(o *object) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.objects[o] = r.next
	o.owner = r
}

// release issues o's native destroy unless the owner already revoked it.
func (r *registry) release(o *object, finalizing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.canRelease.CompareAndSwap(true, false) {
		o.release(finalizing)
	}
	delete(r.objects, o)
}

// live returns the tracked objects, newest first.
func (r *registry) live() []*object {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked()
}

func (r *registry) sortedLocked() []*object {
	objs := make([]*object, 0, len(r.objects))
	for o := range r.objects {
		objs = append(objs, o)
	}
	slices.SortFunc(objs, func(a, b *object) int {
		return cmp.Compare(r.objects[b], r.objects[a])
	})
	return objs
}

// revokeAll invalidates every remaining child without native calls and
// returns them.
func (r *registry) revokeAll() []*object {
	r.mu.Lock()
	defer r.mu.Unlock()

	objs := r.sortedLocked()
	for _, o := range objs {
		o.revoke()
	}
	clear(r.objects)
	return objs
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

// releaseChildren runs when an owning context is destroyed with children
// still registered. It disposes them newest first, or only revokes them when
// release is false. From a runtime cleanup the children's own cleanups are
// left registered; they find the record destroyed and return.
func releaseChildren(r *registry, release, finalizing bool, log *zap.Logger) {
	live := r.live()
	if len(live) == 0 {
		return
	}

	log.Warn("destroyed with live children",
		zap.Int("count", len(live)),
		zap.Bool("release", release),
	)

	if !release {
		r.revokeAll()
		return
	}
	for _, o := range live {
		o.dispose(finalizing)
	}
}

// checkRef validates a wrapper referenced by an argument: nil is an invalid
// argument, a destroyed or invalidated object is ErrDestroyed.
func checkRef(op, arg string, o *object) error {
	if o == nil {
		return invalidArg(op, arg, "nil")
	}
	if !o.alive() {
		return ErrDestroyed
	}
	return nil
}

func infos(objs []*object) []ObjectInfo {
	out := make([]ObjectInfo, len(objs))
	for i, o := range objs {
		out[i] = ObjectInfo{Type: o.kind, Handle: o.handle}
	}
	return out
}
