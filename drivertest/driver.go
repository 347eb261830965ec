// Package drivertest provides an in-memory vklife.Driver for tests.
//
// The driver hands out unique non-zero handles, keeps host memory behind
// every DeviceMemory allocation, counts calls per entry point and tracks the
// set of live handles so that tests can assert nothing leaked and nothing was
// released twice. Failures are scripted per entry point with Fail and
// FailOnce.
package drivertest

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

// Object is a live native object known to the driver.
type Object struct {
	Type   vk.ObjectType
	Handle vk.Handle
	Parent vk.Handle
}

type failure struct {
	result vk.Result
	once   bool
}

type queueKey struct {
	device vk.Handle
	family uint32
	index  uint32
}

type descriptorPool struct {
	maxSets   uint32
	freeable  bool
	allocated uint32
}

// Driver is a goroutine-safe fake of the native function table.
type Driver struct {
	// Exported fields describe the single physical device and may be changed
	// before CreateInstance.
	ApiVersion       uint32
	Properties       vk.PhysicalDeviceProperties
	Features         vk.PhysicalDeviceFeatures
	MemoryProperties vk.PhysicalDeviceMemoryProperties
	QueueFamilies    []vk.QueueFamilyProperties

	// PartialPipelines is how many pipelines a failing CreateComputePipelines
	// call still creates.
	PartialPipelines int

	mu         sync.Mutex
	log        *zap.Logger
	next       vk.Handle
	calls      map[string]int
	failures   map[string]failure
	live       map[vk.Handle]Object
	memory     map[vk.Handle][]byte
	mapped     map[vk.Handle]bool
	signaled   map[vk.Handle]bool
	queues     map[queueKey]vk.Handle
	descPools  map[vk.Handle]*descriptorPool
	physical   map[vk.Handle]vk.Handle
	violations []string
}

// Option configures New.
type Option func(*Driver)

// WithLogger logs every violation at error level.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// New returns a driver exposing one discrete GPU with a device-local and a
// host-visible coherent memory type and one queue family supporting every
// queue capability.
func New(opts ...Option) *Driver {
	d := &Driver{
		ApiVersion: vk.ApiVersion_1_3,
		Properties: vk.PhysicalDeviceProperties{
			ApiVersion: vk.ApiVersion_1_3,
			VendorID:   0x1af4,
			DeviceID:   0x0001,
			DeviceType: vk.PHYSICAL_DEVICE_TYPE_DISCRETE_GPU,
			DeviceName: "drivertest",
			Limits: vk.PhysicalDeviceLimits{
				MaxComputeWorkGroupCount: [3]uint32{65535, 65535, 65535},
				MaxComputeWorkGroupSize:  [3]uint32{1024, 1024, 64},
				MaxPushConstantsSize:     128,
				MaxBoundDescriptorSets:   8,
				NonCoherentAtomSize:      64,
				SparseAddressSpaceSize:   1 << 40,
			},
		},
		Features: vk.PhysicalDeviceFeatures{
			SparseBinding:          true,
			SparseResidencyImage2D: true,
		},
		MemoryProperties: vk.PhysicalDeviceMemoryProperties{
			MemoryTypeCount: 2,
			MemoryHeapCount: 2,
		},
		QueueFamilies: []vk.QueueFamilyProperties{
			{
				QueueFlags: vk.QUEUE_GRAPHICS_BIT | vk.QUEUE_COMPUTE_BIT | vk.QUEUE_TRANSFER_BIT | vk.QUEUE_SPARSE_BINDING_BIT,
				QueueCount: 4,
				MinImageTransferGranularity: vk.Extent3D{
					Width:  1,
					Height: 1,
					Depth:  1,
				},
			},
		},
		log:       zap.NewNop(),
		next:      0x1000,
		calls:     make(map[string]int),
		failures:  make(map[string]failure),
		live:      make(map[vk.Handle]Object),
		memory:    make(map[vk.Handle][]byte),
		mapped:    make(map[vk.Handle]bool),
		signaled:  make(map[vk.Handle]bool),
		queues:    make(map[queueKey]vk.Handle),
		descPools: make(map[vk.Handle]*descriptorPool),
		physical:  make(map[vk.Handle]vk.Handle),
	}
	d.MemoryProperties.MemoryTypes[0] = vk.MemoryType{
		PropertyFlags: vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
		HeapIndex:     0,
	}
	d.MemoryProperties.MemoryTypes[1] = vk.MemoryType{
		PropertyFlags: vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT | vk.MEMORY_PROPERTY_HOST_COHERENT_BIT,
		HeapIndex:     1,
	}
	d.MemoryProperties.MemoryHeaps[0] = vk.MemoryHeap{Size: 8 << 30, Flags: 1}
	d.MemoryProperties.MemoryHeaps[1] = vk.MemoryHeap{Size: 16 << 30}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fail makes every later call to the named entry point return result.
func (d *Driver) Fail(name string, result vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[name] = failure{result: result}
}

// FailOnce makes the next call to the named entry point return result.
func (d *Driver) FailOnce(name string, result vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[name] = failure{result: result, once: true}
}

// Recover removes a scripted failure.
func (d *Driver) Recover(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.failures, name)
}

// Calls returns how many times the named entry point was called.
func (d *Driver) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// Live returns the live objects ordered by handle.
func (d *Driver) Live() []Object {
	d.mu.Lock()
	defer d.mu.Unlock()

	objs := make([]Object, 0, len(d.live))
	for _, o := range d.live {
		objs = append(objs, o)
	}
	slices.SortFunc(objs, func(a, b Object) int {
		return cmp.Compare(a.Handle, b.Handle)
	})
	return objs
}

// LiveCount returns how many live objects have the given type.
func (d *Driver) LiveCount(kind vk.ObjectType) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, o := range d.live {
		if o.Type == kind {
			n++
		}
	}
	return n
}

// IsLive reports whether h is a live object.
func (d *Driver) IsLive(h vk.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.live[h]
	return ok
}

// Violations returns the API misuse the driver observed: releasing unknown
// or already released handles, destroying a parent before its children,
// using released handles.
func (d *Driver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.violations)
}

// enter counts the call and returns the scripted failure for it, if any.
// d.mu must be held.
func (d *Driver) enter(name string) (vk.Result, bool) {
	d.calls[name]++

	f, ok := d.failures[name]
	if !ok {
		return vk.SUCCESS, false
	}
	if f.once {
		delete(d.failures, name)
	}
	return f.result, true
}

func (d *Driver) violate(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.violations = append(d.violations, msg)
	d.log.Error("driver violation", zap.String("violation", msg))
}

func (d *Driver) create(kind vk.ObjectType, parent vk.Handle) vk.Handle {
	d.next++
	h := d.next
	d.live[h] = Object{Type: kind, Handle: h, Parent: parent}
	return h
}

// destroy removes h from the live set. A null handle is a no-op, as in the
// native API.
func (d *Driver) destroy(kind vk.ObjectType, parent, h vk.Handle) {
	if h == vk.NULL_HANDLE {
		return
	}
	o, ok := d.live[h]
	if !ok {
		d.violate("destroy %s %#x: not live", kind, uint64(h))
		return
	}
	if o.Type != kind {
		d.violate("destroy %s %#x: handle is a %s", kind, uint64(h), o.Type)
		return
	}
	if parent != vk.NULL_HANDLE && o.Parent != parent {
		d.violate("destroy %s %#x: owned by %#x, not %#x", kind, uint64(h), uint64(o.Parent), uint64(parent))
	}
	if n := d.childrenLocked(h); n > 0 {
		d.violate("destroy %s %#x with %d live children", kind, uint64(h), n)
	}
	delete(d.live, h)
	delete(d.memory, h)
	delete(d.mapped, h)
	delete(d.signaled, h)
	delete(d.descPools, h)
}

func (d *Driver) childrenLocked(parent vk.Handle) int {
	n := 0
	for _, o := range d.live {
		if o.Parent == parent {
			n++
		}
	}
	return n
}

// freeChildren removes every live child of parent.
func (d *Driver) freeChildren(parent vk.Handle) {
	for h, o := range d.live {
		if o.Parent == parent {
			delete(d.live, h)
		}
	}
}

// use records a violation when h is not live.
func (d *Driver) use(op string, h vk.Handle) {
	if h == vk.NULL_HANDLE {
		return
	}
	if _, ok := d.live[h]; !ok {
		d.violate("%s: handle %#x is not live", op, uint64(h))
	}
}
