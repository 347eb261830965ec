//go:build vulkan

package vkdriver

// #include <vulkan/vulkan.h>
import "C"
import (
	"unsafe"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

func dev(h vk.Handle) C.VkDevice {
	return C.VkDevice(ptr(h))
}

// Buffers and memory

func (d *Driver) CreateBuffer(device vk.Handle, info *vk.BufferCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkBufferCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO
	cInfo.size = C.VkDeviceSize(info.Size)
	cInfo.usage = C.VkBufferUsageFlags(info.Usage)
	cInfo.sharingMode = C.VkSharingMode(info.SharingMode)

	var buffer C.VkBuffer
	result := vk.Result(C.vkCreateBuffer(dev(device), cInfo, nil, &buffer))
	return handle(unsafe.Pointer(buffer)), result
}

func (d *Driver) DestroyBuffer(device, buffer vk.Handle) {
	C.vkDestroyBuffer(dev(device), C.VkBuffer(ptr(buffer)), nil)
}

func (d *Driver) GetBufferMemoryRequirements(device, buffer vk.Handle) vk.MemoryRequirements {
	var memReqs C.VkMemoryRequirements
	C.vkGetBufferMemoryRequirements(dev(device), C.VkBuffer(ptr(buffer)), &memReqs)

	return vk.MemoryRequirements{
		Size:           uint64(memReqs.size),
		Alignment:      uint64(memReqs.alignment),
		MemoryTypeBits: uint32(memReqs.memoryTypeBits),
	}
}

func (d *Driver) BindBufferMemory(device, buffer, memory vk.Handle, offset uint64) vk.Result {
	return vk.Result(C.vkBindBufferMemory(dev(device), C.VkBuffer(ptr(buffer)), C.VkDeviceMemory(ptr(memory)), C.VkDeviceSize(offset)))
}

func (d *Driver) AllocateMemory(device vk.Handle, info *vk.MemoryAllocateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkMemoryAllocateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO
	cInfo.allocationSize = C.VkDeviceSize(info.AllocationSize)
	cInfo.memoryTypeIndex = C.uint32_t(info.MemoryTypeIndex)

	var memory C.VkDeviceMemory
	result := vk.Result(C.vkAllocateMemory(dev(device), cInfo, nil, &memory))
	return handle(unsafe.Pointer(memory)), result
}

func (d *Driver) FreeMemory(device, memory vk.Handle) {
	C.vkFreeMemory(dev(device), C.VkDeviceMemory(ptr(memory)), nil)
}

func (d *Driver) MapMemory(device, memory vk.Handle, offset, size uint64) ([]byte, vk.Result) {
	var data unsafe.Pointer
	result := vk.Result(C.vkMapMemory(dev(device), C.VkDeviceMemory(ptr(memory)), C.VkDeviceSize(offset), C.VkDeviceSize(size), 0, &data))
	if result != vk.SUCCESS {
		return nil, result
	}
	return unsafe.Slice((*byte)(data), size), vk.SUCCESS
}

func (d *Driver) UnmapMemory(device, memory vk.Handle) {
	C.vkUnmapMemory(dev(device), C.VkDeviceMemory(ptr(memory)))
}

// Images

func (d *Driver) CreateImage(device vk.Handle, info *vk.ImageCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkImageCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_IMAGE_CREATE_INFO
	cInfo.flags = C.VkImageCreateFlags(info.Flags)
	cInfo.imageType = C.VkImageType(info.ImageType)
	cInfo.format = C.VkFormat(info.Format)
	cInfo.extent.width = C.uint32_t(info.Extent.Width)
	cInfo.extent.height = C.uint32_t(info.Extent.Height)
	cInfo.extent.depth = C.uint32_t(info.Extent.Depth)
	cInfo.mipLevels = C.uint32_t(info.MipLevels)
	cInfo.arrayLayers = C.uint32_t(info.ArrayLayers)
	cInfo.samples = C.VkSampleCountFlagBits(info.Samples)
	cInfo.tiling = C.VkImageTiling(info.Tiling)
	cInfo.usage = C.VkImageUsageFlags(info.Usage)
	cInfo.sharingMode = C.VkSharingMode(info.SharingMode)
	cInfo.initialLayout = C.VkImageLayout(info.InitialLayout)

	var image C.VkImage
	result := vk.Result(C.vkCreateImage(dev(device), cInfo, nil, &image))
	return handle(unsafe.Pointer(image)), result
}

func (d *Driver) DestroyImage(device, image vk.Handle) {
	C.vkDestroyImage(dev(device), C.VkImage(ptr(image)), nil)
}

func (d *Driver) GetImageMemoryRequirements(device, image vk.Handle) vk.MemoryRequirements {
	var memReqs C.VkMemoryRequirements
	C.vkGetImageMemoryRequirements(dev(device), C.VkImage(ptr(image)), &memReqs)

	return vk.MemoryRequirements{
		Size:           uint64(memReqs.size),
		Alignment:      uint64(memReqs.alignment),
		MemoryTypeBits: uint32(memReqs.memoryTypeBits),
	}
}

func (d *Driver) GetImageSparseMemoryRequirements(device, image vk.Handle) []vk.SparseImageMemoryRequirements {
	var count C.uint32_t
	C.vkGetImageSparseMemoryRequirements(dev(device), C.VkImage(ptr(image)), &count, nil)
	if count == 0 {
		return nil
	}

	cReqs := make([]C.VkSparseImageMemoryRequirements, count)
	C.vkGetImageSparseMemoryRequirements(dev(device), C.VkImage(ptr(image)), &count, &cReqs[0])

	reqs := make([]vk.SparseImageMemoryRequirements, count)
	for i, r := range cReqs {
		reqs[i] = vk.SparseImageMemoryRequirements{
			FormatProperties: vk.SparseImageFormatProperties{
				AspectMask: vk.ImageAspectFlags(r.formatProperties.aspectMask),
				ImageGranularity: vk.Extent3D{
					Width:  uint32(r.formatProperties.imageGranularity.width),
					Height: uint32(r.formatProperties.imageGranularity.height),
					Depth:  uint32(r.formatProperties.imageGranularity.depth),
				},
				Flags: vk.SparseImageFormatFlags(r.formatProperties.flags),
			},
			ImageMipTailFirstLod: uint32(r.imageMipTailFirstLod),
			ImageMipTailSize:     uint64(r.imageMipTailSize),
			ImageMipTailOffset:   uint64(r.imageMipTailOffset),
			ImageMipTailStride:   uint64(r.imageMipTailStride),
		}
	}
	return reqs
}

func (d *Driver) BindImageMemory(device, image, memory vk.Handle, offset uint64) vk.Result {
	return vk.Result(C.vkBindImageMemory(dev(device), C.VkImage(ptr(image)), C.VkDeviceMemory(ptr(memory)), C.VkDeviceSize(offset)))
}

func subresourceRange(r vk.ImageSubresourceRange) C.VkImageSubresourceRange {
	return C.VkImageSubresourceRange{
		aspectMask:     C.VkImageAspectFlags(r.AspectMask),
		baseMipLevel:   C.uint32_t(r.BaseMipLevel),
		levelCount:     C.uint32_t(r.LevelCount),
		baseArrayLayer: C.uint32_t(r.BaseArrayLayer),
		layerCount:     C.uint32_t(r.LayerCount),
	}
}

func (d *Driver) CreateImageView(device vk.Handle, info *vk.ImageViewCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkImageViewCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_IMAGE_VIEW_CREATE_INFO
	cInfo.image = C.VkImage(ptr(info.Image.Handle()))
	cInfo.viewType = C.VkImageViewType(info.ViewType)
	cInfo.format = C.VkFormat(info.Format)
	cInfo.components.r = C.VkComponentSwizzle(info.Components.R)
	cInfo.components.g = C.VkComponentSwizzle(info.Components.G)
	cInfo.components.b = C.VkComponentSwizzle(info.Components.B)
	cInfo.components.a = C.VkComponentSwizzle(info.Components.A)
	cInfo.subresourceRange = subresourceRange(info.SubresourceRange)

	var view C.VkImageView
	result := vk.Result(C.vkCreateImageView(dev(device), cInfo, nil, &view))
	return handle(unsafe.Pointer(view)), result
}

func (d *Driver) DestroyImageView(device, imageView vk.Handle) {
	C.vkDestroyImageView(dev(device), C.VkImageView(ptr(imageView)), nil)
}

func (d *Driver) CreateSampler(device vk.Handle, info *vk.SamplerCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkSamplerCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_SAMPLER_CREATE_INFO
	cInfo.magFilter = C.VkFilter(info.MagFilter)
	cInfo.minFilter = C.VkFilter(info.MinFilter)
	cInfo.mipmapMode = C.VkSamplerMipmapMode(info.MipmapMode)
	cInfo.addressModeU = C.VkSamplerAddressMode(info.AddressModeU)
	cInfo.addressModeV = C.VkSamplerAddressMode(info.AddressModeV)
	cInfo.addressModeW = C.VkSamplerAddressMode(info.AddressModeW)
	cInfo.mipLodBias = C.float(info.MipLodBias)
	cInfo.anisotropyEnable = cbool(info.AnisotropyEnable)
	cInfo.maxAnisotropy = C.float(info.MaxAnisotropy)
	cInfo.minLod = C.float(info.MinLod)
	cInfo.maxLod = C.float(info.MaxLod)
	cInfo.borderColor = C.VkBorderColor(info.BorderColor)

	var sampler C.VkSampler
	result := vk.Result(C.vkCreateSampler(dev(device), cInfo, nil, &sampler))
	return handle(unsafe.Pointer(sampler)), result
}

func (d *Driver) DestroySampler(device, sampler vk.Handle) {
	C.vkDestroySampler(dev(device), C.VkSampler(ptr(sampler)), nil)
}

// Shaders and pipelines

func (d *Driver) CreateShaderModule(device vk.Handle, info *vk.ShaderModuleCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	code := newSlice[byte](&a, len(info.Code))
	copy(code, info.Code)

	cInfo := newStruct[C.VkShaderModuleCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_SHADER_MODULE_CREATE_INFO
	cInfo.codeSize = C.size_t(len(code))
	cInfo.pCode = (*C.uint32_t)(unsafe.Pointer(first(code)))

	var module C.VkShaderModule
	result := vk.Result(C.vkCreateShaderModule(dev(device), cInfo, nil, &module))
	return handle(unsafe.Pointer(module)), result
}

func (d *Driver) DestroyShaderModule(device, shaderModule vk.Handle) {
	C.vkDestroyShaderModule(dev(device), C.VkShaderModule(ptr(shaderModule)), nil)
}

func (d *Driver) CreateDescriptorSetLayout(device vk.Handle, info *vk.DescriptorSetLayoutCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	bindings := newSlice[C.VkDescriptorSetLayoutBinding](&a, len(info.Bindings))
	for i, b := range info.Bindings {
		bindings[i].binding = C.uint32_t(b.Binding)
		bindings[i].descriptorType = C.VkDescriptorType(b.DescriptorType)
		bindings[i].descriptorCount = C.uint32_t(b.DescriptorCount)
		bindings[i].stageFlags = C.VkShaderStageFlags(b.StageFlags)
	}

	cInfo := newStruct[C.VkDescriptorSetLayoutCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO
	cInfo.bindingCount = C.uint32_t(len(bindings))
	cInfo.pBindings = first(bindings)

	var layout C.VkDescriptorSetLayout
	result := vk.Result(C.vkCreateDescriptorSetLayout(dev(device), cInfo, nil, &layout))
	return handle(unsafe.Pointer(layout)), result
}

func (d *Driver) DestroyDescriptorSetLayout(device, layout vk.Handle) {
	C.vkDestroyDescriptorSetLayout(dev(device), C.VkDescriptorSetLayout(ptr(layout)), nil)
}

func (d *Driver) CreatePipelineLayout(device vk.Handle, info *vk.PipelineLayoutCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	setLayouts := newSlice[C.VkDescriptorSetLayout](&a, len(info.SetLayouts))
	for i, l := range info.SetLayouts {
		setLayouts[i] = C.VkDescriptorSetLayout(ptr(l.Handle()))
	}
	ranges := newSlice[C.VkPushConstantRange](&a, len(info.PushConstantRanges))
	for i, r := range info.PushConstantRanges {
		ranges[i].stageFlags = C.VkShaderStageFlags(r.StageFlags)
		ranges[i].offset = C.uint32_t(r.Offset)
		ranges[i].size = C.uint32_t(r.Size)
	}

	cInfo := newStruct[C.VkPipelineLayoutCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO
	cInfo.setLayoutCount = C.uint32_t(len(setLayouts))
	cInfo.pSetLayouts = first(setLayouts)
	cInfo.pushConstantRangeCount = C.uint32_t(len(ranges))
	cInfo.pPushConstantRanges = first(ranges)

	var layout C.VkPipelineLayout
	result := vk.Result(C.vkCreatePipelineLayout(dev(device), cInfo, nil, &layout))
	return handle(unsafe.Pointer(layout)), result
}

func (d *Driver) DestroyPipelineLayout(device, layout vk.Handle) {
	C.vkDestroyPipelineLayout(dev(device), C.VkPipelineLayout(ptr(layout)), nil)
}

func (d *Driver) CreateComputePipelines(device vk.Handle, infos []vk.ComputePipelineCreateInfo) ([]vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfos := newSlice[C.VkComputePipelineCreateInfo](&a, len(infos))
	for i, info := range infos {
		cInfos[i].sType = C.VK_STRUCTURE_TYPE_COMPUTE_PIPELINE_CREATE_INFO
		cInfos[i].stage.sType = C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO
		cInfos[i].stage.stage = C.VkShaderStageFlagBits(info.Stage.Stage)
		cInfos[i].stage.module = C.VkShaderModule(ptr(info.Stage.Module.Handle()))
		cInfos[i].stage.pName = a.cstring(info.Stage.Name)
		cInfos[i].layout = C.VkPipelineLayout(ptr(info.Layout.Handle()))
		cInfos[i].basePipelineIndex = -1
	}

	pipelines := newSlice[C.VkPipeline](&a, len(infos))
	result := vk.Result(C.vkCreateComputePipelines(dev(device), nil, C.uint32_t(len(cInfos)), first(cInfos), nil, first(pipelines)))

	handles := make([]vk.Handle, len(pipelines))
	for i, p := range pipelines {
		handles[i] = handle(unsafe.Pointer(p))
	}
	return handles, result
}

func (d *Driver) DestroyPipeline(device, pipeline vk.Handle) {
	C.vkDestroyPipeline(dev(device), C.VkPipeline(ptr(pipeline)), nil)
}

// Synchronization

func (d *Driver) CreateSemaphore(device vk.Handle, info *vk.SemaphoreCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkSemaphoreCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_SEMAPHORE_CREATE_INFO
	cInfo.flags = C.VkSemaphoreCreateFlags(info.Flags)

	var semaphore C.VkSemaphore
	result := vk.Result(C.vkCreateSemaphore(dev(device), cInfo, nil, &semaphore))
	return handle(unsafe.Pointer(semaphore)), result
}

func (d *Driver) DestroySemaphore(device, semaphore vk.Handle) {
	C.vkDestroySemaphore(dev(device), C.VkSemaphore(ptr(semaphore)), nil)
}

func (d *Driver) CreateFence(device vk.Handle, info *vk.FenceCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkFenceCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO
	cInfo.flags = C.VkFenceCreateFlags(info.Flags)

	var fence C.VkFence
	result := vk.Result(C.vkCreateFence(dev(device), cInfo, nil, &fence))
	return handle(unsafe.Pointer(fence)), result
}

func (d *Driver) DestroyFence(device, fence vk.Handle) {
	C.vkDestroyFence(dev(device), C.VkFence(ptr(fence)), nil)
}

func (d *Driver) GetFenceStatus(device, fence vk.Handle) vk.Result {
	return vk.Result(C.vkGetFenceStatus(dev(device), C.VkFence(ptr(fence))))
}

func fences(a *arena, handles []vk.Handle) []C.VkFence {
	out := newSlice[C.VkFence](a, len(handles))
	for i, h := range handles {
		out[i] = C.VkFence(ptr(h))
	}
	return out
}

func (d *Driver) ResetFences(device vk.Handle, handles []vk.Handle) vk.Result {
	var a arena
	defer a.free()

	cFences := fences(&a, handles)
	return vk.Result(C.vkResetFences(dev(device), C.uint32_t(len(cFences)), first(cFences)))
}

func (d *Driver) WaitForFences(device vk.Handle, handles []vk.Handle, waitAll bool, timeout uint64) vk.Result {
	var a arena
	defer a.free()

	cFences := fences(&a, handles)
	return vk.Result(C.vkWaitForFences(dev(device), C.uint32_t(len(cFences)), first(cFences), cbool(waitAll), C.uint64_t(timeout)))
}

func semaphores(a *arena, sems []*vk.Semaphore) []C.VkSemaphore {
	out := newSlice[C.VkSemaphore](a, len(sems))
	for i, s := range sems {
		out[i] = C.VkSemaphore(ptr(s.Handle()))
	}
	return out
}

// Queues

func (d *Driver) QueueSubmit(queue vk.Handle, submits []vk.SubmitInfo, fence vk.Handle) vk.Result {
	var a arena
	defer a.free()

	cSubmits := newSlice[C.VkSubmitInfo](&a, len(submits))
	for i, submit := range submits {
		cSubmits[i].sType = C.VK_STRUCTURE_TYPE_SUBMIT_INFO

		waits := semaphores(&a, submit.WaitSemaphores)
		stages := newSlice[C.VkPipelineStageFlags](&a, len(submit.WaitDstStageMask))
		for j, s := range submit.WaitDstStageMask {
			stages[j] = C.VkPipelineStageFlags(s)
		}
		cSubmits[i].waitSemaphoreCount = C.uint32_t(len(waits))
		cSubmits[i].pWaitSemaphores = first(waits)
		cSubmits[i].pWaitDstStageMask = first(stages)

		cmds := newSlice[C.VkCommandBuffer](&a, len(submit.CommandBuffers))
		for j, cmd := range submit.CommandBuffers {
			cmds[j] = C.VkCommandBuffer(ptr(cmd.Handle()))
		}
		cSubmits[i].commandBufferCount = C.uint32_t(len(cmds))
		cSubmits[i].pCommandBuffers = first(cmds)

		signals := semaphores(&a, submit.SignalSemaphores)
		cSubmits[i].signalSemaphoreCount = C.uint32_t(len(signals))
		cSubmits[i].pSignalSemaphores = first(signals)
	}

	return vk.Result(C.vkQueueSubmit(C.VkQueue(ptr(queue)), C.uint32_t(len(cSubmits)), first(cSubmits), C.VkFence(ptr(fence))))
}

func (d *Driver) QueueWaitIdle(queue vk.Handle) vk.Result {
	return vk.Result(C.vkQueueWaitIdle(C.VkQueue(ptr(queue))))
}

func (d *Driver) QueueBindSparse(queue vk.Handle, bindInfos []vk.BindSparseInfo, fence vk.Handle) vk.Result {
	var a arena
	defer a.free()

	cInfos := newSlice[C.VkBindSparseInfo](&a, len(bindInfos))
	for i, info := range bindInfos {
		cInfos[i].sType = C.VK_STRUCTURE_TYPE_BIND_SPARSE_INFO

		waits := semaphores(&a, info.WaitSemaphores)
		cInfos[i].waitSemaphoreCount = C.uint32_t(len(waits))
		cInfos[i].pWaitSemaphores = first(waits)

		bufferBinds := newSlice[C.VkSparseBufferMemoryBindInfo](&a, len(info.BufferBinds))
		for j, bb := range info.BufferBinds {
			binds := newSlice[C.VkSparseMemoryBind](&a, len(bb.Binds))
			for k, b := range bb.Binds {
				binds[k].resourceOffset = C.VkDeviceSize(b.ResourceOffset)
				binds[k].size = C.VkDeviceSize(b.Size)
				binds[k].memory = C.VkDeviceMemory(ptr(b.Memory.Handle()))
				binds[k].memoryOffset = C.VkDeviceSize(b.MemoryOffset)
			}
			bufferBinds[j].buffer = C.VkBuffer(ptr(bb.Buffer.Handle()))
			bufferBinds[j].bindCount = C.uint32_t(len(binds))
			bufferBinds[j].pBinds = first(binds)
		}
		cInfos[i].bufferBindCount = C.uint32_t(len(bufferBinds))
		cInfos[i].pBufferBinds = first(bufferBinds)

		imageBinds := newSlice[C.VkSparseImageMemoryBindInfo](&a, len(info.ImageBinds))
		for j, ib := range info.ImageBinds {
			binds := newSlice[C.VkSparseImageMemoryBind](&a, len(ib.Binds))
			for k, b := range ib.Binds {
				binds[k].subresource.aspectMask = C.VkImageAspectFlags(b.Subresource.AspectMask)
				binds[k].subresource.mipLevel = C.uint32_t(b.Subresource.MipLevel)
				binds[k].subresource.arrayLayer = C.uint32_t(b.Subresource.ArrayLayer)
				binds[k].offset.x = C.int32_t(b.Offset.X)
				binds[k].offset.y = C.int32_t(b.Offset.Y)
				binds[k].offset.z = C.int32_t(b.Offset.Z)
				binds[k].extent.width = C.uint32_t(b.Extent.Width)
				binds[k].extent.height = C.uint32_t(b.Extent.Height)
				binds[k].extent.depth = C.uint32_t(b.Extent.Depth)
				binds[k].memory = C.VkDeviceMemory(ptr(b.Memory.Handle()))
				binds[k].memoryOffset = C.VkDeviceSize(b.MemoryOffset)
			}
			imageBinds[j].image = C.VkImage(ptr(ib.Image.Handle()))
			imageBinds[j].bindCount = C.uint32_t(len(binds))
			imageBinds[j].pBinds = first(binds)
		}
		cInfos[i].imageBindCount = C.uint32_t(len(imageBinds))
		cInfos[i].pImageBinds = first(imageBinds)

		signals := semaphores(&a, info.SignalSemaphores)
		cInfos[i].signalSemaphoreCount = C.uint32_t(len(signals))
		cInfos[i].pSignalSemaphores = first(signals)
	}

	return vk.Result(C.vkQueueBindSparse(C.VkQueue(ptr(queue)), C.uint32_t(len(cInfos)), first(cInfos), C.VkFence(ptr(fence))))
}
