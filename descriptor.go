// descriptor.go
package vklife

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type DescriptorSetLayout struct {
	obj    *object
	device *Device
}

type DescriptorPool struct {
	obj    *object
	device *Device
	state  *poolState
	flags  DescriptorPoolCreateFlags
}

// DescriptorSet is allocated from a DescriptorPool, which owns its release.
type DescriptorSet struct {
	obj  *object
	pool *DescriptorPool
}

// Descriptor Set Layout
type DescriptorSetLayoutCreateInfo struct {
	Bindings []DescriptorSetLayoutBinding
}

type DescriptorSetLayoutBinding struct {
	Binding         uint32
	DescriptorType  DescriptorType
	DescriptorCount uint32
	StageFlags      ShaderStageFlags
}

type DescriptorType int32

const (
	DESCRIPTOR_TYPE_SAMPLER                DescriptorType = 0
	DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER DescriptorType = 1
	DESCRIPTOR_TYPE_SAMPLED_IMAGE          DescriptorType = 2
	DESCRIPTOR_TYPE_STORAGE_IMAGE          DescriptorType = 3
	DESCRIPTOR_TYPE_UNIFORM_BUFFER         DescriptorType = 6
	DESCRIPTOR_TYPE_STORAGE_BUFFER         DescriptorType = 7
)

func (t DescriptorType) isBuffer() bool {
	return t == DESCRIPTOR_TYPE_UNIFORM_BUFFER || t == DESCRIPTOR_TYPE_STORAGE_BUFFER
}

func (info *DescriptorSetLayoutCreateInfo) validate() error {
	var err error
	seen := make(map[uint32]bool, len(info.Bindings))
	for i, b := range info.Bindings {
		if seen[b.Binding] {
			err = multierr.Append(err, fmt.Errorf("Bindings[%d]: duplicate binding %d", i, b.Binding))
		}
		seen[b.Binding] = true
		if b.DescriptorCount > 0 && b.StageFlags == 0 {
			err = multierr.Append(err, fmt.Errorf("Bindings[%d]: no stages", i))
		}
	}
	return err
}

func (device *Device) CreateDescriptorSetLayout(createInfo *DescriptorSetLayoutCreateInfo) (*DescriptorSetLayout, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateDescriptorSetLayout", "createInfo", "nil")
	}
	if err := createInfo.validate(); err != nil {
		return nil, invalidArg("CreateDescriptorSetLayout", "createInfo", err.Error())
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateDescriptorSetLayout(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_DESCRIPTOR_SET_LAYOUT, result, "%d binding(s)", len(createInfo.Bindings))
	}

	layout := &DescriptorSetLayout{
		obj:    device.track(OBJECT_TYPE_DESCRIPTOR_SET_LAYOUT, handle, device.driver.DestroyDescriptorSetLayout),
		device: device,
	}
	watch(layout, layout.obj, device.config.Finalizers)
	return layout, nil
}

func (layout *DescriptorSetLayout) Handle() Handle {
	if layout == nil {
		return NULL_HANDLE
	}
	return layout.obj.handle
}

func (layout *DescriptorSetLayout) record() *object {
	if layout == nil {
		return nil
	}
	return layout.obj
}

func (layout *DescriptorSetLayout) Destroyed() bool {
	return !layout.obj.alive()
}

func (layout *DescriptorSetLayout) Destroy() {
	layout.obj.dispose(false)
}

// Descriptor Pool
type DescriptorPoolCreateFlags uint32

const (
	// DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT allows sets to be freed
	// individually. Without it sets are only released by Reset or Destroy.
	DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT DescriptorPoolCreateFlags = 0x00000001
)

type DescriptorPoolCreateInfo struct {
	Flags     DescriptorPoolCreateFlags
	MaxSets   uint32
	PoolSizes []DescriptorPoolSize
}

type DescriptorPoolSize struct {
	Type            DescriptorType
	DescriptorCount uint32
}

func (device *Device) CreateDescriptorPool(createInfo *DescriptorPoolCreateInfo) (*DescriptorPool, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateDescriptorPool", "createInfo", "nil")
	}
	if createInfo.MaxSets == 0 {
		return nil, invalidArg("CreateDescriptorPool", "createInfo.MaxSets", "zero")
	}
	if len(createInfo.PoolSizes) == 0 {
		return nil, invalidArg("CreateDescriptorPool", "createInfo.PoolSizes", "empty")
	}
	for i, size := range createInfo.PoolSizes {
		if size.DescriptorCount == 0 {
			return nil, invalidArg("CreateDescriptorPool", fmt.Sprintf("createInfo.PoolSizes[%d].DescriptorCount", i), "zero")
		}
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	drv := device.driver
	handle, result := drv.CreateDescriptorPool(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_DESCRIPTOR_POOL, result, "max %d set(s)", createInfo.MaxSets)
	}

	var state *poolState
	obj := device.track(OBJECT_TYPE_DESCRIPTOR_POOL, handle, func(dh, ph Handle) {
		state.invalidate("destroy", func() Result {
			drv.DestroyDescriptorPool(dh, ph)
			return SUCCESS
		})
	})
	dh := device.obj.handle
	state = newPoolState(obj.log, createInfo.Flags&DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT != 0, func(sets []Handle) Result {
		return drv.FreeDescriptorSets(dh, handle, sets)
	})
	obj.onRevoke = func() { state.invalidate("revoke", nil) }

	pool := &DescriptorPool{
		obj:    obj,
		device: device,
		state:  state,
		flags:  createInfo.Flags,
	}
	watch(pool, pool.obj, device.config.Finalizers)
	return pool, nil
}

func (pool *DescriptorPool) Handle() Handle {
	if pool == nil {
		return NULL_HANDLE
	}
	return pool.obj.handle
}

func (pool *DescriptorPool) Destroyed() bool {
	return !pool.obj.alive()
}

// Allocated reports how many sets are tracked by the pool.
func (pool *DescriptorPool) Allocated() int {
	return pool.state.len()
}

// Allocate allocates one set per layout.
func (pool *DescriptorPool) Allocate(layouts ...*DescriptorSetLayout) ([]*DescriptorSet, error) {
	if len(layouts) == 0 {
		return nil, invalidArg("DescriptorPool.Allocate", "layouts", "empty")
	}
	handles := make([]Handle, len(layouts))
	for i, layout := range layouts {
		if err := checkRef("DescriptorPool.Allocate", fmt.Sprintf("layouts[%d]", i), layout.record()); err != nil {
			return nil, err
		}
		handles[i] = layout.obj.handle
	}
	if !pool.device.usable(pool.obj) {
		return nil, ErrDestroyed
	}

	device := pool.device
	log := device.log.With(zap.Uint64("pool", uint64(pool.obj.handle)))
	objs, result := pool.state.allocate(
		func() ([]Handle, Result) {
			return device.driver.AllocateDescriptorSets(device.obj.handle, pool.obj.handle, handles)
		},
		func(h Handle) *object {
			return newObject(OBJECT_TYPE_DESCRIPTOR_SET, h, log, nil)
		},
	)
	if result != SUCCESS {
		return nil, &AllocationError{Object: OBJECT_TYPE_DESCRIPTOR_SET, Count: len(layouts), Result: result}
	}

	sets := make([]*DescriptorSet, len(objs))
	for i, o := range objs {
		set := &DescriptorSet{obj: o, pool: pool}
		watch(set, set.obj, device.config.Finalizers)
		sets[i] = set
	}
	return sets, nil
}

// Free releases sets individually. The pool must have been created with
// DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT. Sets already destroyed or
// invalidated by Reset are skipped.
func (pool *DescriptorPool) Free(sets ...*DescriptorSet) error {
	if pool.flags&DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT == 0 {
		return invalidArg("DescriptorPool.Free", "pool", "created without DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT")
	}
	for i, set := range sets {
		if set == nil {
			return invalidArg("DescriptorPool.Free", fmt.Sprintf("sets[%d]", i), "nil")
		}
		if set.pool != pool {
			return invalidArg("DescriptorPool.Free", fmt.Sprintf("sets[%d]", i), "allocated from another pool")
		}
	}
	if !pool.obj.alive() {
		return nil
	}

	objs := make([]*object, 0, len(sets))
	for _, set := range sets {
		if set.obj.markDestroyed(false) {
			objs = append(objs, set.obj)
		}
	}
	return check(pool.state.release(objs))
}

// Reset returns every set to the pool with one native call. Sets allocated
// before the reset become invalid and their Destroy is a no-op.
func (pool *DescriptorPool) Reset() error {
	if !pool.device.usable(pool.obj) {
		return ErrDestroyed
	}
	device := pool.device
	return check(pool.state.invalidate("reset", func() Result {
		return device.driver.ResetDescriptorPool(device.obj.handle, pool.obj.handle)
	}))
}

// Destroy destroys the pool and with it every set allocated from it.
func (pool *DescriptorPool) Destroy() {
	pool.obj.dispose(false)
}

func (set *DescriptorSet) Handle() Handle {
	if set == nil {
		return NULL_HANDLE
	}
	return set.obj.handle
}

func (set *DescriptorSet) record() *object {
	if set == nil {
		return nil
	}
	return set.obj
}

func (set *DescriptorSet) Pool() *DescriptorPool {
	return set.pool
}

// Destroyed reports whether the set was destroyed or invalidated by its pool.
func (set *DescriptorSet) Destroyed() bool {
	return !set.obj.alive()
}

// Destroy frees the set through its pool. It issues no native call when the
// pool was reset or destroyed since the allocation, or when the pool does not
// allow individual frees.
func (set *DescriptorSet) Destroy() {
	set.obj.dispose(false)
}

// Descriptor Set Updates
type WriteDescriptorSet struct {
	DstSet          *DescriptorSet
	DstBinding      uint32
	DstArrayElement uint32
	DescriptorType  DescriptorType
	ImageInfo       []DescriptorImageInfo
	BufferInfo      []DescriptorBufferInfo
}

type DescriptorImageInfo struct {
	Sampler     *Sampler
	ImageView   *ImageView
	ImageLayout ImageLayout
}

type DescriptorBufferInfo struct {
	Buffer *Buffer
	Offset uint64
	Range  uint64
}

func (write *WriteDescriptorSet) check(i int) error {
	const op = "Device.UpdateDescriptorSets"
	arg := fmt.Sprintf("writes[%d]", i)

	if err := checkRef(op, arg+".DstSet", write.DstSet.record()); err != nil {
		return err
	}

	if write.DescriptorType.isBuffer() {
		if len(write.BufferInfo) == 0 {
			return invalidArg(op, arg+".BufferInfo", "empty for a buffer descriptor")
		}
		for j, info := range write.BufferInfo {
			if err := checkRef(op, fmt.Sprintf("%s.BufferInfo[%d].Buffer", arg, j), info.Buffer.record()); err != nil {
				return err
			}
		}
		return nil
	}

	if len(write.ImageInfo) == 0 {
		return invalidArg(op, arg+".ImageInfo", "empty for an image descriptor")
	}
	for j, info := range write.ImageInfo {
		needSampler := write.DescriptorType == DESCRIPTOR_TYPE_SAMPLER || write.DescriptorType == DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER
		needView := write.DescriptorType != DESCRIPTOR_TYPE_SAMPLER
		if needSampler {
			if err := checkRef(op, fmt.Sprintf("%s.ImageInfo[%d].Sampler", arg, j), info.Sampler.record()); err != nil {
				return err
			}
		}
		if needView {
			if err := checkRef(op, fmt.Sprintf("%s.ImageInfo[%d].ImageView", arg, j), info.ImageView.record()); err != nil {
				return err
			}
		}
	}
	return nil
}

// UpdateDescriptorSets writes descriptors. Writing into a destroyed or
// invalidated set, or referencing a destroyed object, is ErrDestroyed.
func (device *Device) UpdateDescriptorSets(writes []WriteDescriptorSet) error {
	if len(writes) == 0 {
		return nil
	}
	for i := range writes {
		if err := writes[i].check(i); err != nil {
			return err
		}
	}
	if !device.obj.alive() {
		return ErrDestroyed
	}

	device.driver.UpdateDescriptorSets(device.obj.handle, writes)
	return nil
}
