//go:build vulkan

package vkdriver

// #include <vulkan/vulkan.h>
import "C"
import (
	"unsafe"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

func cmdBuf(h vk.Handle) C.VkCommandBuffer {
	return C.VkCommandBuffer(ptr(h))
}

// Command pools

func (d *Driver) CreateCommandPool(device vk.Handle, info *vk.CommandPoolCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkCommandPoolCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO
	cInfo.flags = C.VkCommandPoolCreateFlags(info.Flags)
	cInfo.queueFamilyIndex = C.uint32_t(info.QueueFamilyIndex)

	var pool C.VkCommandPool
	result := vk.Result(C.vkCreateCommandPool(dev(device), cInfo, nil, &pool))
	return handle(unsafe.Pointer(pool)), result
}

func (d *Driver) DestroyCommandPool(device, pool vk.Handle) {
	C.vkDestroyCommandPool(dev(device), C.VkCommandPool(ptr(pool)), nil)
}

func (d *Driver) ResetCommandPool(device, pool vk.Handle, flags vk.CommandPoolResetFlags) vk.Result {
	return vk.Result(C.vkResetCommandPool(dev(device), C.VkCommandPool(ptr(pool)), C.VkCommandPoolResetFlags(flags)))
}

func (d *Driver) AllocateCommandBuffers(device, pool vk.Handle, level vk.CommandBufferLevel, count uint32) ([]vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkCommandBufferAllocateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO
	cInfo.commandPool = C.VkCommandPool(ptr(pool))
	cInfo.level = C.VkCommandBufferLevel(level)
	cInfo.commandBufferCount = C.uint32_t(count)

	buffers := newSlice[C.VkCommandBuffer](&a, int(count))
	result := vk.Result(C.vkAllocateCommandBuffers(dev(device), cInfo, first(buffers)))
	if result != vk.SUCCESS {
		return nil, result
	}

	handles := make([]vk.Handle, count)
	for i, b := range buffers {
		handles[i] = handle(unsafe.Pointer(b))
	}
	return handles, vk.SUCCESS
}

func (d *Driver) FreeCommandBuffers(device, pool vk.Handle, buffers []vk.Handle) {
	var a arena
	defer a.free()

	cBuffers := newSlice[C.VkCommandBuffer](&a, len(buffers))
	for i, b := range buffers {
		cBuffers[i] = cmdBuf(b)
	}
	C.vkFreeCommandBuffers(dev(device), C.VkCommandPool(ptr(pool)), C.uint32_t(len(cBuffers)), first(cBuffers))
}

// Command buffers

func (d *Driver) BeginCommandBuffer(commandBuffer vk.Handle, info *vk.CommandBufferBeginInfo) vk.Result {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkCommandBufferBeginInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO
	cInfo.flags = C.VkCommandBufferUsageFlags(info.Flags)

	return vk.Result(C.vkBeginCommandBuffer(cmdBuf(commandBuffer), cInfo))
}

func (d *Driver) EndCommandBuffer(commandBuffer vk.Handle) vk.Result {
	return vk.Result(C.vkEndCommandBuffer(cmdBuf(commandBuffer)))
}

func (d *Driver) ResetCommandBuffer(commandBuffer vk.Handle, flags vk.CommandBufferResetFlags) vk.Result {
	return vk.Result(C.vkResetCommandBuffer(cmdBuf(commandBuffer), C.VkCommandBufferResetFlags(flags)))
}

func (d *Driver) CmdBindPipeline(commandBuffer vk.Handle, bindPoint vk.PipelineBindPoint, pipeline vk.Handle) {
	C.vkCmdBindPipeline(cmdBuf(commandBuffer), C.VkPipelineBindPoint(bindPoint), C.VkPipeline(ptr(pipeline)))
}

func (d *Driver) CmdBindDescriptorSets(commandBuffer vk.Handle, bindPoint vk.PipelineBindPoint, layout vk.Handle, firstSet uint32, sets []vk.Handle, dynamicOffsets []uint32) {
	var a arena
	defer a.free()

	cSets := newSlice[C.VkDescriptorSet](&a, len(sets))
	for i, s := range sets {
		cSets[i] = C.VkDescriptorSet(ptr(s))
	}
	cOffsets := newSlice[C.uint32_t](&a, len(dynamicOffsets))
	for i, o := range dynamicOffsets {
		cOffsets[i] = C.uint32_t(o)
	}

	C.vkCmdBindDescriptorSets(
		cmdBuf(commandBuffer),
		C.VkPipelineBindPoint(bindPoint),
		C.VkPipelineLayout(ptr(layout)),
		C.uint32_t(firstSet),
		C.uint32_t(len(cSets)),
		first(cSets),
		C.uint32_t(len(cOffsets)),
		first(cOffsets),
	)
}

func (d *Driver) CmdPushConstants(commandBuffer, layout vk.Handle, stageFlags vk.ShaderStageFlags, offset uint32, values []byte) {
	C.vkCmdPushConstants(
		cmdBuf(commandBuffer),
		C.VkPipelineLayout(ptr(layout)),
		C.VkShaderStageFlags(stageFlags),
		C.uint32_t(offset),
		C.uint32_t(len(values)),
		unsafe.Pointer(&values[0]),
	)
}

func (d *Driver) CmdDispatch(commandBuffer vk.Handle, groupCountX, groupCountY, groupCountZ uint32) {
	C.vkCmdDispatch(cmdBuf(commandBuffer), C.uint32_t(groupCountX), C.uint32_t(groupCountY), C.uint32_t(groupCountZ))
}

func (d *Driver) CmdCopyBuffer(commandBuffer, srcBuffer, dstBuffer vk.Handle, regions []vk.BufferCopy) {
	var a arena
	defer a.free()

	cRegions := newSlice[C.VkBufferCopy](&a, len(regions))
	for i, r := range regions {
		cRegions[i].srcOffset = C.VkDeviceSize(r.SrcOffset)
		cRegions[i].dstOffset = C.VkDeviceSize(r.DstOffset)
		cRegions[i].size = C.VkDeviceSize(r.Size)
	}
	C.vkCmdCopyBuffer(cmdBuf(commandBuffer), C.VkBuffer(ptr(srcBuffer)), C.VkBuffer(ptr(dstBuffer)), C.uint32_t(len(cRegions)), first(cRegions))
}

func (d *Driver) CmdPipelineBarrier(commandBuffer vk.Handle, srcStageMask, dstStageMask vk.PipelineStageFlags, dependencyFlags vk.DependencyFlags, imageBarriers []vk.ImageMemoryBarrier) {
	var a arena
	defer a.free()

	cBarriers := newSlice[C.VkImageMemoryBarrier](&a, len(imageBarriers))
	for i, b := range imageBarriers {
		cBarriers[i].sType = C.VK_STRUCTURE_TYPE_IMAGE_MEMORY_BARRIER
		cBarriers[i].srcAccessMask = C.VkAccessFlags(b.SrcAccessMask)
		cBarriers[i].dstAccessMask = C.VkAccessFlags(b.DstAccessMask)
		cBarriers[i].oldLayout = C.VkImageLayout(b.OldLayout)
		cBarriers[i].newLayout = C.VkImageLayout(b.NewLayout)
		cBarriers[i].srcQueueFamilyIndex = C.uint32_t(b.SrcQueueFamilyIndex)
		cBarriers[i].dstQueueFamilyIndex = C.uint32_t(b.DstQueueFamilyIndex)
		cBarriers[i].image = C.VkImage(ptr(b.Image.Handle()))
		cBarriers[i].subresourceRange = subresourceRange(b.SubresourceRange)
	}

	C.vkCmdPipelineBarrier(
		cmdBuf(commandBuffer),
		C.VkPipelineStageFlags(srcStageMask),
		C.VkPipelineStageFlags(dstStageMask),
		C.VkDependencyFlags(dependencyFlags),
		0, nil,
		0, nil,
		C.uint32_t(len(cBarriers)), first(cBarriers),
	)
}

func (d *Driver) CmdClearColorImage(commandBuffer, image vk.Handle, layout vk.ImageLayout, color vk.ClearColorValue, ranges []vk.ImageSubresourceRange) {
	var a arena
	defer a.free()

	// VkClearColorValue is a union; cgo exposes it as raw bytes.
	cColor := newStruct[C.VkClearColorValue](&a)
	*(*[4]float32)(unsafe.Pointer(cColor)) = color.Float32

	cRanges := newSlice[C.VkImageSubresourceRange](&a, len(ranges))
	for i, r := range ranges {
		cRanges[i] = subresourceRange(r)
	}
	C.vkCmdClearColorImage(cmdBuf(commandBuffer), C.VkImage(ptr(image)), C.VkImageLayout(layout), cColor, C.uint32_t(len(cRanges)), first(cRanges))
}

// Descriptor pools

func (d *Driver) CreateDescriptorPool(device vk.Handle, info *vk.DescriptorPoolCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	sizes := newSlice[C.VkDescriptorPoolSize](&a, len(info.PoolSizes))
	for i, s := range info.PoolSizes {
		sizes[i]._type = C.VkDescriptorType(s.Type)
		sizes[i].descriptorCount = C.uint32_t(s.DescriptorCount)
	}

	cInfo := newStruct[C.VkDescriptorPoolCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO
	cInfo.flags = C.VkDescriptorPoolCreateFlags(info.Flags)
	cInfo.maxSets = C.uint32_t(info.MaxSets)
	cInfo.poolSizeCount = C.uint32_t(len(sizes))
	cInfo.pPoolSizes = first(sizes)

	var pool C.VkDescriptorPool
	result := vk.Result(C.vkCreateDescriptorPool(dev(device), cInfo, nil, &pool))
	return handle(unsafe.Pointer(pool)), result
}

func (d *Driver) DestroyDescriptorPool(device, pool vk.Handle) {
	C.vkDestroyDescriptorPool(dev(device), C.VkDescriptorPool(ptr(pool)), nil)
}

func (d *Driver) ResetDescriptorPool(device, pool vk.Handle) vk.Result {
	return vk.Result(C.vkResetDescriptorPool(dev(device), C.VkDescriptorPool(ptr(pool)), 0))
}

func (d *Driver) AllocateDescriptorSets(device, pool vk.Handle, layouts []vk.Handle) ([]vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cLayouts := newSlice[C.VkDescriptorSetLayout](&a, len(layouts))
	for i, l := range layouts {
		cLayouts[i] = C.VkDescriptorSetLayout(ptr(l))
	}

	cInfo := newStruct[C.VkDescriptorSetAllocateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO
	cInfo.descriptorPool = C.VkDescriptorPool(ptr(pool))
	cInfo.descriptorSetCount = C.uint32_t(len(cLayouts))
	cInfo.pSetLayouts = first(cLayouts)

	sets := newSlice[C.VkDescriptorSet](&a, len(layouts))
	result := vk.Result(C.vkAllocateDescriptorSets(dev(device), cInfo, first(sets)))
	if result != vk.SUCCESS {
		return nil, result
	}

	handles := make([]vk.Handle, len(sets))
	for i, s := range sets {
		handles[i] = handle(unsafe.Pointer(s))
	}
	return handles, vk.SUCCESS
}

func (d *Driver) FreeDescriptorSets(device, pool vk.Handle, sets []vk.Handle) vk.Result {
	var a arena
	defer a.free()

	cSets := newSlice[C.VkDescriptorSet](&a, len(sets))
	for i, s := range sets {
		cSets[i] = C.VkDescriptorSet(ptr(s))
	}
	return vk.Result(C.vkFreeDescriptorSets(dev(device), C.VkDescriptorPool(ptr(pool)), C.uint32_t(len(cSets)), first(cSets)))
}

func (d *Driver) UpdateDescriptorSets(device vk.Handle, writes []vk.WriteDescriptorSet) {
	var a arena
	defer a.free()

	cWrites := newSlice[C.VkWriteDescriptorSet](&a, len(writes))
	for i, write := range writes {
		cWrites[i].sType = C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET
		cWrites[i].dstSet = C.VkDescriptorSet(ptr(write.DstSet.Handle()))
		cWrites[i].dstBinding = C.uint32_t(write.DstBinding)
		cWrites[i].dstArrayElement = C.uint32_t(write.DstArrayElement)
		cWrites[i].descriptorType = C.VkDescriptorType(write.DescriptorType)

		if len(write.ImageInfo) > 0 {
			imgInfo := newSlice[C.VkDescriptorImageInfo](&a, len(write.ImageInfo))
			for j, info := range write.ImageInfo {
				imgInfo[j].sampler = C.VkSampler(ptr(info.Sampler.Handle()))
				imgInfo[j].imageView = C.VkImageView(ptr(info.ImageView.Handle()))
				imgInfo[j].imageLayout = C.VkImageLayout(info.ImageLayout)
			}
			cWrites[i].descriptorCount = C.uint32_t(len(imgInfo))
			cWrites[i].pImageInfo = first(imgInfo)
		}

		if len(write.BufferInfo) > 0 {
			bufInfo := newSlice[C.VkDescriptorBufferInfo](&a, len(write.BufferInfo))
			for j, info := range write.BufferInfo {
				bufInfo[j].buffer = C.VkBuffer(ptr(info.Buffer.Handle()))
				bufInfo[j].offset = C.VkDeviceSize(info.Offset)
				bufInfo[j]._range = C.VkDeviceSize(info.Range)
			}
			cWrites[i].descriptorCount = C.uint32_t(len(bufInfo))
			cWrites[i].pBufferInfo = first(bufInfo)
		}
	}

	C.vkUpdateDescriptorSets(dev(device), C.uint32_t(len(cWrites)), first(cWrites), 0, nil)
}
