package drivertest

import (
	vk "github.com/NOT-REAL-GAMES/vklife"
)

var _ vk.Driver = (*Driver)(nil)

func (d *Driver) EnumerateInstanceVersion() (uint32, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("EnumerateInstanceVersion"); failed {
		return 0, r
	}
	return d.ApiVersion, vk.SUCCESS
}

// Instance

func (d *Driver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("CreateInstance"); failed {
		return vk.NULL_HANDLE, r
	}
	if app := info.ApplicationInfo; app != nil && app.ApiVersion > d.ApiVersion {
		return vk.NULL_HANDLE, vk.INCOMPATIBLE_DRIVER
	}

	instance := d.create(vk.OBJECT_TYPE_INSTANCE, vk.NULL_HANDLE)
	d.next++
	d.physical[d.next] = instance
	return instance, vk.SUCCESS
}

func (d *Driver) DestroyInstance(instance vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("DestroyInstance")
	d.destroy(vk.OBJECT_TYPE_INSTANCE, vk.NULL_HANDLE, instance)
	for pd, owner := range d.physical {
		if owner == instance {
			delete(d.physical, pd)
		}
	}
}

// EnumeratePhysicalDevices returns the instance's physical device. A
// scripted INCOMPLETE still returns it, as a truncated enumeration would.
func (d *Driver) EnumeratePhysicalDevices(instance vk.Handle) ([]vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("EnumeratePhysicalDevices", instance)
	var handles []vk.Handle
	for pd, owner := range d.physical {
		if owner == instance {
			handles = append(handles, pd)
		}
	}

	if r, failed := d.enter("EnumeratePhysicalDevices"); failed {
		if r == vk.INCOMPLETE {
			return handles, r
		}
		return nil, r
	}
	return handles, vk.SUCCESS
}

func (d *Driver) GetPhysicalDeviceProperties(physicalDevice vk.Handle) vk.PhysicalDeviceProperties {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetPhysicalDeviceProperties")
	return d.Properties
}

func (d *Driver) GetPhysicalDeviceFeatures(physicalDevice vk.Handle) vk.PhysicalDeviceFeatures {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetPhysicalDeviceFeatures")
	return d.Features
}

func (d *Driver) GetPhysicalDeviceMemoryProperties(physicalDevice vk.Handle) vk.PhysicalDeviceMemoryProperties {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetPhysicalDeviceMemoryProperties")
	return d.MemoryProperties
}

func (d *Driver) GetPhysicalDeviceQueueFamilyProperties(physicalDevice vk.Handle) []vk.QueueFamilyProperties {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetPhysicalDeviceQueueFamilyProperties")
	out := make([]vk.QueueFamilyProperties, len(d.QueueFamilies))
	copy(out, d.QueueFamilies)
	return out
}

// Device

func (d *Driver) CreateDevice(physicalDevice vk.Handle, info *vk.DeviceCreateInfo) (vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("CreateDevice"); failed {
		return vk.NULL_HANDLE, r
	}
	instance, ok := d.physical[physicalDevice]
	if !ok {
		d.violate("CreateDevice: unknown physical device %#x", uint64(physicalDevice))
		return vk.NULL_HANDLE, vk.INITIALIZATION_FAILED
	}
	if f := info.EnabledFeatures; f != nil && f.SparseBinding && !d.Features.SparseBinding {
		return vk.NULL_HANDLE, vk.FEATURE_NOT_PRESENT
	}
	for _, q := range info.QueueCreateInfos {
		if int(q.QueueFamilyIndex) >= len(d.QueueFamilies) {
			return vk.NULL_HANDLE, vk.INITIALIZATION_FAILED
		}
	}
	return d.create(vk.OBJECT_TYPE_DEVICE, instance), vk.SUCCESS
}

func (d *Driver) DestroyDevice(device vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("DestroyDevice")
	d.destroy(vk.OBJECT_TYPE_DEVICE, vk.NULL_HANDLE, device)
	for k := range d.queues {
		if k.device == device {
			delete(d.queues, k)
		}
	}
}

func (d *Driver) DeviceWaitIdle(device vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("DeviceWaitIdle", device)
	r, _ := d.enter("DeviceWaitIdle")
	return r
}

func (d *Driver) GetDeviceQueue(device vk.Handle, queueFamilyIndex, queueIndex uint32) vk.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetDeviceQueue")
	d.use("GetDeviceQueue", device)
	key := queueKey{device: device, family: queueFamilyIndex, index: queueIndex}
	if h, ok := d.queues[key]; ok {
		return h
	}
	d.next++
	d.queues[key] = d.next
	return d.next
}

// createChild implements every plain create entry point.
func (d *Driver) createChild(name string, kind vk.ObjectType, device vk.Handle) (vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter(name); failed {
		return vk.NULL_HANDLE, r
	}
	d.use(name, device)
	return d.create(kind, device), vk.SUCCESS
}

func (d *Driver) destroyChild(name string, kind vk.ObjectType, device, h vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter(name)
	d.destroy(kind, device, h)
}

// Buffers and memory

func (d *Driver) CreateBuffer(device vk.Handle, info *vk.BufferCreateInfo) (vk.Handle, vk.Result) {
	return d.createChild("CreateBuffer", vk.OBJECT_TYPE_BUFFER, device)
}

func (d *Driver) DestroyBuffer(device, buffer vk.Handle) {
	d.destroyChild("DestroyBuffer", vk.OBJECT_TYPE_BUFFER, device, buffer)
}

func (d *Driver) GetBufferMemoryRequirements(device, buffer vk.Handle) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetBufferMemoryRequirements")
	d.use("GetBufferMemoryRequirements", buffer)
	return vk.MemoryRequirements{
		Size:           4096,
		Alignment:      256,
		MemoryTypeBits: 0b11,
	}
}

func (d *Driver) BindBufferMemory(device, buffer, memory vk.Handle, offset uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("BindBufferMemory", buffer)
	d.use("BindBufferMemory", memory)
	r, _ := d.enter("BindBufferMemory")
	return r
}

func (d *Driver) AllocateMemory(device vk.Handle, info *vk.MemoryAllocateInfo) (vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("AllocateMemory"); failed {
		return vk.NULL_HANDLE, r
	}
	if info.MemoryTypeIndex >= d.MemoryProperties.MemoryTypeCount {
		return vk.NULL_HANDLE, vk.OUT_OF_DEVICE_MEMORY
	}
	d.use("AllocateMemory", device)
	h := d.create(vk.OBJECT_TYPE_DEVICE_MEMORY, device)
	if d.MemoryProperties.MemoryTypes[info.MemoryTypeIndex].PropertyFlags&vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT != 0 {
		d.memory[h] = make([]byte, info.AllocationSize)
	}
	return h, vk.SUCCESS
}

func (d *Driver) FreeMemory(device, memory vk.Handle) {
	d.destroyChild("FreeMemory", vk.OBJECT_TYPE_DEVICE_MEMORY, device, memory)
}

// MapMemory returns a window into the host copy of a host-visible allocation.
func (d *Driver) MapMemory(device, memory vk.Handle, offset, size uint64) ([]byte, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("MapMemory"); failed {
		return nil, r
	}
	d.use("MapMemory", memory)
	data, ok := d.memory[memory]
	if !ok || offset+size > uint64(len(data)) {
		return nil, vk.MEMORY_MAP_FAILED
	}
	if d.mapped[memory] {
		d.violate("MapMemory %#x: already mapped", uint64(memory))
		return nil, vk.MEMORY_MAP_FAILED
	}
	d.mapped[memory] = true
	return data[offset : offset+size : offset+size], vk.SUCCESS
}

func (d *Driver) UnmapMemory(device, memory vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("UnmapMemory")
	if !d.mapped[memory] {
		d.violate("UnmapMemory %#x: not mapped", uint64(memory))
	}
	delete(d.mapped, memory)
}

// Memory returns a copy of the host contents of a host-visible allocation.
func (d *Driver) Memory(memory vk.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.memory[memory]...)
}

// Images

func (d *Driver) CreateImage(device vk.Handle, info *vk.ImageCreateInfo) (vk.Handle, vk.Result) {
	if info.Format == vk.FORMAT_UNDEFINED {
		d.mu.Lock()
		d.enter("CreateImage")
		d.mu.Unlock()
		return vk.NULL_HANDLE, vk.FORMAT_NOT_SUPPORTED
	}
	return d.createChild("CreateImage", vk.OBJECT_TYPE_IMAGE, device)
}

func (d *Driver) DestroyImage(device, image vk.Handle) {
	d.destroyChild("DestroyImage", vk.OBJECT_TYPE_IMAGE, device, image)
}

func (d *Driver) GetImageMemoryRequirements(device, image vk.Handle) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetImageMemoryRequirements")
	d.use("GetImageMemoryRequirements", image)
	return vk.MemoryRequirements{
		Size:           1 << 16,
		Alignment:      1 << 12,
		MemoryTypeBits: 0b11,
	}
}

func (d *Driver) GetImageSparseMemoryRequirements(device, image vk.Handle) []vk.SparseImageMemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enter("GetImageSparseMemoryRequirements")
	d.use("GetImageSparseMemoryRequirements", image)
	return []vk.SparseImageMemoryRequirements{{
		FormatProperties: vk.SparseImageFormatProperties{
			AspectMask:       vk.IMAGE_ASPECT_COLOR_BIT,
			ImageGranularity: vk.Extent3D{Width: 128, Height: 128, Depth: 1},
		},
		ImageMipTailFirstLod: 1,
		ImageMipTailSize:     1 << 16,
	}}
}

func (d *Driver) BindImageMemory(device, image, memory vk.Handle, offset uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.use("BindImageMemory", image)
	d.use("BindImageMemory", memory)
	r, _ := d.enter("BindImageMemory")
	return r
}

func (d *Driver) CreateImageView(device vk.Handle, info *vk.ImageViewCreateInfo) (vk.Handle, vk.Result) {
	d.mu.Lock()
	d.use("CreateImageView", info.Image.Handle())
	d.mu.Unlock()
	return d.createChild("CreateImageView", vk.OBJECT_TYPE_IMAGE_VIEW, device)
}

func (d *Driver) DestroyImageView(device, imageView vk.Handle) {
	d.destroyChild("DestroyImageView", vk.OBJECT_TYPE_IMAGE_VIEW, device, imageView)
}

func (d *Driver) CreateSampler(device vk.Handle, info *vk.SamplerCreateInfo) (vk.Handle, vk.Result) {
	return d.createChild("CreateSampler", vk.OBJECT_TYPE_SAMPLER, device)
}

func (d *Driver) DestroySampler(device, sampler vk.Handle) {
	d.destroyChild("DestroySampler", vk.OBJECT_TYPE_SAMPLER, device, sampler)
}

// Shaders and pipelines

func (d *Driver) CreateShaderModule(device vk.Handle, info *vk.ShaderModuleCreateInfo) (vk.Handle, vk.Result) {
	return d.createChild("CreateShaderModule", vk.OBJECT_TYPE_SHADER_MODULE, device)
}

func (d *Driver) DestroyShaderModule(device, shaderModule vk.Handle) {
	d.destroyChild("DestroyShaderModule", vk.OBJECT_TYPE_SHADER_MODULE, device, shaderModule)
}

func (d *Driver) CreateDescriptorSetLayout(device vk.Handle, info *vk.DescriptorSetLayoutCreateInfo) (vk.Handle, vk.Result) {
	return d.createChild("CreateDescriptorSetLayout", vk.OBJECT_TYPE_DESCRIPTOR_SET_LAYOUT, device)
}

func (d *Driver) DestroyDescriptorSetLayout(device, layout vk.Handle) {
	d.destroyChild("DestroyDescriptorSetLayout", vk.OBJECT_TYPE_DESCRIPTOR_SET_LAYOUT, device, layout)
}

func (d *Driver) CreatePipelineLayout(device vk.Handle, info *vk.PipelineLayoutCreateInfo) (vk.Handle, vk.Result) {
	d.mu.Lock()
	for _, l := range info.SetLayouts {
		d.use("CreatePipelineLayout", l.Handle())
	}
	d.mu.Unlock()
	return d.createChild("CreatePipelineLayout", vk.OBJECT_TYPE_PIPELINE_LAYOUT, device)
}

func (d *Driver) DestroyPipelineLayout(device, layout vk.Handle) {
	d.destroyChild("DestroyPipelineLayout", vk.OBJECT_TYPE_PIPELINE_LAYOUT, device, layout)
}

// CreateComputePipelines creates one pipeline per info. A scripted failure
// still creates the first PartialPipelines of them and leaves the rest null.
func (d *Driver) CreateComputePipelines(device vk.Handle, infos []vk.ComputePipelineCreateInfo) ([]vk.Handle, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, info := range infos {
		d.use("CreateComputePipelines", info.Stage.Module.Handle())
		d.use("CreateComputePipelines", info.Layout.Handle())
	}

	handles := make([]vk.Handle, len(infos))
	r, failed := d.enter("CreateComputePipelines")
	for i := range handles {
		if failed && i >= d.PartialPipelines {
			break
		}
		handles[i] = d.create(vk.OBJECT_TYPE_PIPELINE, device)
	}
	if failed {
		return handles, r
	}
	return handles, vk.SUCCESS
}

func (d *Driver) DestroyPipeline(device, pipeline vk.Handle) {
	d.destroyChild("DestroyPipeline", vk.OBJECT_TYPE_PIPELINE, device, pipeline)
}

// Synchronization

func (d *Driver) CreateSemaphore(device vk.Handle, info *vk.SemaphoreCreateInfo) (vk.Handle, vk.Result) {
	return d.createChild("CreateSemaphore", vk.OBJECT_TYPE_SEMAPHORE, device)
}

func (d *Driver) DestroySemaphore(device, semaphore vk.Handle) {
	d.destroyChild("DestroySemaphore", vk.OBJECT_TYPE_SEMAPHORE, device, semaphore)
}

func (d *Driver) CreateFence(device vk.Handle, info *vk.FenceCreateInfo) (vk.Handle, vk.Result) {
	h, r := d.createChild("CreateFence", vk.OBJECT_TYPE_FENCE, device)
	if r == vk.SUCCESS && info.Flags&vk.FENCE_CREATE_SIGNALED_BIT != 0 {
		d.mu.Lock()
		d.signaled[h] = true
		d.mu.Unlock()
	}
	return h, r
}

func (d *Driver) DestroyFence(device, fence vk.Handle) {
	d.destroyChild("DestroyFence", vk.OBJECT_TYPE_FENCE, device, fence)
}

// Signal signals a fence as if the device finished the work it guards.
func (d *Driver) Signal(fence vk.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signaled[fence] = true
}

// GetFenceStatus returns SUCCESS for a signaled fence and NOT_READY otherwise.
func (d *Driver) GetFenceStatus(device, fence vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("GetFenceStatus"); failed {
		return r
	}
	d.use("GetFenceStatus", fence)
	if d.signaled[fence] {
		return vk.SUCCESS
	}
	return vk.NOT_READY
}

func (d *Driver) ResetFences(device vk.Handle, fences []vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("ResetFences"); failed {
		return r
	}
	for _, f := range fences {
		d.use("ResetFences", f)
		delete(d.signaled, f)
	}
	return vk.SUCCESS
}

// WaitForFences never blocks: unsignaled fences time out at once.
func (d *Driver) WaitForFences(device vk.Handle, fences []vk.Handle, waitAll bool, timeout uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("WaitForFences"); failed {
		return r
	}
	signaled := 0
	for _, f := range fences {
		d.use("WaitForFences", f)
		if d.signaled[f] {
			signaled++
		}
	}
	if signaled == len(fences) || (!waitAll && signaled > 0) {
		return vk.SUCCESS
	}
	return vk.TIMEOUT
}

// Queues

// QueueSubmit completes the submitted work at once and signals fence.
func (d *Driver) QueueSubmit(queue vk.Handle, submits []vk.SubmitInfo, fence vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("QueueSubmit"); failed {
		return r
	}
	for _, submit := range submits {
		for _, cmd := range submit.CommandBuffers {
			d.use("QueueSubmit", cmd.Handle())
		}
		for _, s := range submit.WaitSemaphores {
			d.use("QueueSubmit", s.Handle())
		}
		for _, s := range submit.SignalSemaphores {
			d.use("QueueSubmit", s.Handle())
		}
	}
	if fence != vk.NULL_HANDLE {
		d.use("QueueSubmit", fence)
		d.signaled[fence] = true
	}
	return vk.SUCCESS
}

func (d *Driver) QueueWaitIdle(queue vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, _ := d.enter("QueueWaitIdle")
	return r
}

func (d *Driver) QueueBindSparse(queue vk.Handle, bindInfos []vk.BindSparseInfo, fence vk.Handle) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, failed := d.enter("QueueBindSparse"); failed {
		return r
	}
	for _, info := range bindInfos {
		for _, b := range info.BufferBinds {
			d.use("QueueBindSparse", b.Buffer.Handle())
			for _, m := range b.Binds {
				d.use("QueueBindSparse", m.Memory.Handle())
			}
		}
		for _, b := range info.ImageBinds {
			d.use("QueueBindSparse", b.Image.Handle())
			for _, m := range b.Binds {
				d.use("QueueBindSparse", m.Memory.Handle())
			}
		}
	}
	if fence != vk.NULL_HANDLE {
		d.use("QueueBindSparse", fence)
		d.signaled[fence] = true
	}
	return vk.SUCCESS
}
