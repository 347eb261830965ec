package drivertest

import (
	vk "github.com/NOT-REAL-GAMES/vklife"
)

// Command pools

func (d *Driver) CreateCommandPool(device vk.Handle, info *vk.CommandPoolCreateInfo) (vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("CreateCommandPool"); failed {
		return vk.NULL_HANDLE, r
	}
	if int(info.QueueFamilyIndex) >= len(d.QueueFamilies) {
		return vk.NULL_HANDLE, vk.INITIALIZATION_FAILED
	}
	d.use("CreateCommandPool", device)
	return d.create(vk.OBJECT_TYPE_COMMAND_POOL, device), vk.SUCCESS
}

// DestroyCommandPool frees every command buffer still allocated from the pool.
func (d *Driver) DestroyCommandPool(device, pool vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("DestroyCommandPool")
	if _, ok := d.live[pool]; ok {
		d.freeChildren(pool)
	}
	d.destroy(vk.OBJECT_TYPE_COMMAND_POOL, device, pool)
}

// ResetCommandPool returns the pool's buffers to the initial state. They stay
// allocated until freed or until the pool is destroyed.
func (d *Driver) ResetCommandPool(device, pool vk.Handle, flags vk.CommandPoolResetFlags) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("ResetCommandPool", pool)
	r, _ := d.enter("ResetCommandPool")
	return r
}

func (d *Driver) AllocateCommandBuffers(device, pool vk.Handle, level vk.CommandBufferLevel, count uint32) ([]vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("AllocateCommandBuffers"); failed {
		return nil, r
	}
	d.use("AllocateCommandBuffers", pool)
	handles := make([]vk.Handle, count)
	for i := range handles {
		handles[i] = d.create(vk.OBJECT_TYPE_COMMAND_BUFFER, pool)
	}
	return handles, vk.SUCCESS
}

func (d *Driver) FreeCommandBuffers(device, pool vk.Handle, buffers []vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("FreeCommandBuffers")
	d.use("FreeCommandBuffers", pool)
	for _, h := range buffers {
		d.destroy(vk.OBJECT_TYPE_COMMAND_BUFFER, pool, h)
	}
}

// Command buffers

func (d *Driver) BeginCommandBuffer(commandBuffer vk.Handle, info *vk.CommandBufferBeginInfo) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("BeginCommandBuffer", commandBuffer)
	r, _ := d.enter("BeginCommandBuffer")
	return r
}

func (d *Driver) EndCommandBuffer(commandBuffer vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("EndCommandBuffer", commandBuffer)
	r, _ := d.enter("EndCommandBuffer")
	return r
}

func (d *Driver) ResetCommandBuffer(commandBuffer vk.Handle, flags vk.CommandBufferResetFlags) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("ResetCommandBuffer", commandBuffer)
	r, _ := d.enter("ResetCommandBuffer")
	return r
}

// record implements the Cmd* entry points, which only check their handles.
func (d *Driver) record(name string, handles ...vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter(name)
	for _, h := range handles {
		d.use(name, h)
	}
}

func (d *Driver) CmdBindPipeline(commandBuffer vk.Handle, bindPoint vk.PipelineBindPoint, pipeline vk.Handle) {
	d.record("CmdBindPipeline", commandBuffer, pipeline)
}

func (d *Driver) CmdBindDescriptorSets(commandBuffer vk.Handle, bindPoint vk.PipelineBindPoint, layout vk.Handle, firstSet uint32, sets []vk.Handle, dynamicOffsets []uint32) {
	d.record("CmdBindDescriptorSets", append([]vk.Handle{commandBuffer, layout}, sets...)...)
}

func (d *Driver) CmdPushConstants(commandBuffer, layout vk.Handle, stageFlags vk.ShaderStageFlags, offset uint32, values []byte) {
	d.record("CmdPushConstants", commandBuffer, layout)
}

func (d *Driver) CmdDispatch(commandBuffer vk.Handle, groupCountX, groupCountY, groupCountZ uint32) {
	d.record("CmdDispatch", commandBuffer)
}

func (d *Driver) CmdCopyBuffer(commandBuffer, srcBuffer, dstBuffer vk.Handle, regions []vk.BufferCopy) {
	d.record("CmdCopyBuffer", commandBuffer, srcBuffer, dstBuffer)
}

func (d *Driver) CmdPipelineBarrier(commandBuffer vk.Handle, srcStageMask, dstStageMask vk.PipelineStageFlags, dependencyFlags vk.DependencyFlags, imageBarriers []vk.ImageMemoryBarrier) {
	handles := []vk.Handle{commandBuffer}
	for _, b := range imageBarriers {
		handles = append(handles, b.Image.Handle())
	}
	d.record("CmdPipelineBarrier", handles...)
}

func (d *Driver) CmdClearColorImage(commandBuffer, image vk.Handle, layout vk.ImageLayout, color vk.ClearColorValue, ranges []vk.ImageSubresourceRange) {
	d.record("CmdClearColorImage", commandBuffer, image)
}

// Descriptor pools

// CreateDescriptorPool enforces MaxSets: allocations past it fail with
// OUT_OF_POOL_MEMORY.
func (d *Driver) CreateDescriptorPool(device vk.Handle, info *vk.DescriptorPoolCreateInfo) (vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("CreateDescriptorPool"); failed {
		return vk.NULL_HANDLE, r
	}
	d.use("CreateDescriptorPool", device)
	h := d.create(vk.OBJECT_TYPE_DESCRIPTOR_POOL, device)
	d.descPools[h] = &descriptorPool{
		maxSets:  info.MaxSets,
		freeable: info.Flags&vk.DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT != 0,
	}
	return h, vk.SUCCESS
}

// DestroyDescriptorPool frees every set still allocated from the pool.
func (d *Driver) DestroyDescriptorPool(device, pool vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("DestroyDescriptorPool")
	if _, ok := d.live[pool]; ok {
		d.freeChildren(pool)
	}
	d.destroy(vk.OBJECT_TYPE_DESCRIPTOR_POOL, device, pool)
}

// ResetDescriptorPool frees every set allocated from the pool.
func (d *Driver) ResetDescriptorPool(device, pool vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("ResetDescriptorPool", pool)
	if r, failed := d.enter("ResetDescriptorPool"); failed {
		return r
	}
	d.freeChildren(pool)
	if p := d.descPools[pool]; p != nil {
		p.allocated = 0
	}
	return vk.SUCCESS
}

func (d *Driver) AllocateDescriptorSets(device, pool vk.Handle, layouts []vk.Handle) ([]vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("AllocateDescriptorSets"); failed {
		return nil, r
	}
	d.use("AllocateDescriptorSets", pool)
	for _, l := range layouts {
		d.use("AllocateDescriptorSets", l)
	}

	p := d.descPools[pool]
	if p == nil {
		return nil, vk.UNKNOWN
	}
	if p.allocated+uint32(len(layouts)) > p.maxSets {
		return nil, vk.OUT_OF_POOL_MEMORY
	}
	p.allocated += uint32(len(layouts))

	handles := make([]vk.Handle, len(layouts))
	for i := range handles {
		handles[i] = d.create(vk.OBJECT_TYPE_DESCRIPTOR_SET, pool)
	}
	return handles, vk.SUCCESS
}

func (d *Driver) FreeDescriptorSets(device, pool vk.Handle, sets []vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("FreeDescriptorSets"); failed {
		return r
	}
	p := d.descPools[pool]
	if p == nil {
		d.violate("FreeDescriptorSets: pool %#x is not live", uint64(pool))
		return vk.SUCCESS
	}
	if !p.freeable {
		d.violate("FreeDescriptorSets: pool %#x was created without FREE_DESCRIPTOR_SET_BIT", uint64(pool))
		return vk.SUCCESS
	}
	for _, h := range sets {
		if _, ok := d.live[h]; ok {
			p.allocated--
		}
		d.destroy(vk.OBJECT_TYPE_DESCRIPTOR_SET, pool, h)
	}
	return vk.SUCCESS
}

func (d *Driver) UpdateDescriptorSets(device vk.Handle, writes []vk.WriteDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("UpdateDescriptorSets")
	for _, w := range writes {
		d.use("UpdateDescriptorSets", w.DstSet.Handle())
		for _, info := range w.BufferInfo {
			d.use("UpdateDescriptorSets", info.Buffer.Handle())
		}
		for _, info := range w.ImageInfo {
			d.use("UpdateDescriptorSets", info.Sampler.Handle())
			d.use("UpdateDescriptorSets", info.ImageView.Handle())
		}
	}
}
