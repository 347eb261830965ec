package vklife

// Driver is the native function table every wrapper forwards to. The cgo
// implementation lives in vkdriver; drivertest provides an in-memory one.
//
// Methods mirror the native entry points one to one. They take raw handles
// and return raw statuses; ownership bookkeeping stays on the wrapper side.
// Info structs that reference other wrappers are passed through unchanged and
// implementations read the referenced handles with Handle().
type Driver interface {
	EnumerateInstanceVersion() (uint32, Result)
	CreateInstance(info *InstanceCreateInfo) (Handle, Result)
	DestroyInstance(instance Handle)
	EnumeratePhysicalDevices(instance Handle) ([]Handle, Result)
	GetPhysicalDeviceProperties(physicalDevice Handle) PhysicalDeviceProperties
	GetPhysicalDeviceFeatures(physicalDevice Handle) PhysicalDeviceFeatures
	GetPhysicalDeviceMemoryProperties(physicalDevice Handle) PhysicalDeviceMemoryProperties
	GetPhysicalDeviceQueueFamilyProperties(physicalDevice Handle) []QueueFamilyProperties

	CreateDevice(physicalDevice Handle, info *DeviceCreateInfo) (Handle, Result)
	DestroyDevice(device Handle)
	DeviceWaitIdle(device Handle) Result
	GetDeviceQueue(device Handle, queueFamilyIndex, queueIndex uint32) Handle

	CreateBuffer(device Handle, info *BufferCreateInfo) (Handle, Result)
	DestroyBuffer(device, buffer Handle)
	GetBufferMemoryRequirements(device, buffer Handle) MemoryRequirements
	BindBufferMemory(device, buffer, memory Handle, offset uint64) Result

	AllocateMemory(device Handle, info *MemoryAllocateInfo) (Handle, Result)
	FreeMemory(device, memory Handle)
	MapMemory(device, memory Handle, offset, size uint64) ([]byte, Result)
	UnmapMemory(device, memory Handle)

	CreateImage(device Handle, info *ImageCreateInfo) (Handle, Result)
	DestroyImage(device, image Handle)
	GetImageMemoryRequirements(device, image Handle) MemoryRequirements
	GetImageSparseMemoryRequirements(device, image Handle) []SparseImageMemoryRequirements
	BindImageMemory(device, image, memory Handle, offset uint64) Result

	CreateImageView(device Handle, info *ImageViewCreateInfo) (Handle, Result)
	DestroyImageView(device, imageView Handle)

	CreateSampler(device Handle, info *SamplerCreateInfo) (Handle, Result)
	DestroySampler(device, sampler Handle)

	CreateShaderModule(device Handle, info *ShaderModuleCreateInfo) (Handle, Result)
	DestroyShaderModule(device, shaderModule Handle)

	CreateDescriptorSetLayout(device Handle, info *DescriptorSetLayoutCreateInfo) (Handle, Result)
	DestroyDescriptorSetLayout(device, layout Handle)

	CreatePipelineLayout(device Handle, info *PipelineLayoutCreateInfo) (Handle, Result)
	DestroyPipelineLayout(device, layout Handle)

	// CreateComputePipelines returns one handle per info. On failure the
	// slice may still hold valid handles for the pipelines that were created.
	CreateComputePipelines(device Handle, infos []ComputePipelineCreateInfo) ([]Handle, Result)
	DestroyPipeline(device, pipeline Handle)

	CreateSemaphore(device Handle, info *SemaphoreCreateInfo) (Handle, Result)
	DestroySemaphore(device, semaphore Handle)

	CreateFence(device Handle, info *FenceCreateInfo) (Handle, Result)
	DestroyFence(device, fence Handle)
	GetFenceStatus(device, fence Handle) Result
	ResetFences(device Handle, fences []Handle) Result
	WaitForFences(device Handle, fences []Handle, waitAll bool, timeout uint64) Result

	QueueSubmit(queue Handle, submits []SubmitInfo, fence Handle) Result
	QueueWaitIdle(queue Handle) Result
	QueueBindSparse(queue Handle, bindInfos []BindSparseInfo, fence Handle) Result

	CreateCommandPool(device Handle, info *CommandPoolCreateInfo) (Handle, Result)
	DestroyCommandPool(device, pool Handle)
	ResetCommandPool(device, pool Handle, flags CommandPoolResetFlags) Result
	AllocateCommandBuffers(device, pool Handle, level CommandBufferLevel, count uint32) ([]Handle, Result)
	FreeCommandBuffers(device, pool Handle, buffers []Handle)

	BeginCommandBuffer(commandBuffer Handle, info *CommandBufferBeginInfo) Result
	EndCommandBuffer(commandBuffer Handle) Result
	ResetCommandBuffer(commandBuffer Handle, flags CommandBufferResetFlags) Result
	CmdBindPipeline(commandBuffer Handle, bindPoint PipelineBindPoint, pipeline Handle)
	CmdBindDescriptorSets(commandBuffer Handle, bindPoint PipelineBindPoint, layout Handle, firstSet uint32, sets []Handle, dynamicOffsets []uint32)
	CmdPushConstants(commandBuffer, layout Handle, stageFlags ShaderStageFlags, offset uint32, values []byte)
	CmdDispatch(commandBuffer Handle, groupCountX, groupCountY, groupCountZ uint32)
	CmdCopyBuffer(commandBuffer, srcBuffer, dstBuffer Handle, regions []BufferCopy)
	CmdPipelineBarrier(commandBuffer Handle, srcStageMask, dstStageMask PipelineStageFlags, dependencyFlags DependencyFlags, imageBarriers []ImageMemoryBarrier)
	CmdClearColorImage(commandBuffer, image Handle, layout ImageLayout, color ClearColorValue, ranges []ImageSubresourceRange)

	CreateDescriptorPool(device Handle, info *DescriptorPoolCreateInfo) (Handle, Result)
	DestroyDescriptorPool(device, pool Handle)
	ResetDescriptorPool(device, pool Handle) Result
	AllocateDescriptorSets(device, pool Handle, layouts []Handle) ([]Handle, Result)
	FreeDescriptorSets(device, pool Handle, sets []Handle) Result
	UpdateDescriptorSets(device Handle, writes []WriteDescriptorSet)
}
