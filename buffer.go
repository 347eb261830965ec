package vklife

import (
	"fmt"

	"go.uber.org/zap"
)

type Buffer struct {
	obj    *object
	device *Device
	size   uint64
}

type DeviceMemory struct {
	obj    *object
	device *Device
	size   uint64
	mapped []byte
}

type BufferCreateInfo struct {
	Size        uint64
	Usage       BufferUsageFlags
	SharingMode SharingMode
}

type BufferUsageFlags uint32

const (
	BUFFER_USAGE_TRANSFER_SRC_BIT   BufferUsageFlags = 0x00000001
	BUFFER_USAGE_TRANSFER_DST_BIT   BufferUsageFlags = 0x00000002
	BUFFER_USAGE_UNIFORM_BUFFER_BIT BufferUsageFlags = 0x00000010
	BUFFER_USAGE_STORAGE_BUFFER_BIT BufferUsageFlags = 0x00000020
	BUFFER_USAGE_INDEX_BUFFER_BIT   BufferUsageFlags = 0x00000040
	BUFFER_USAGE_VERTEX_BUFFER_BIT  BufferUsageFlags = 0x00000080
)

type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

type MemoryPropertyFlags uint32

const (
	MEMORY_PROPERTY_DEVICE_LOCAL_BIT  MemoryPropertyFlags = 0x00000001
	MEMORY_PROPERTY_HOST_VISIBLE_BIT  MemoryPropertyFlags = 0x00000002
	MEMORY_PROPERTY_HOST_COHERENT_BIT MemoryPropertyFlags = 0x00000004
	MEMORY_PROPERTY_HOST_CACHED_BIT   MemoryPropertyFlags = 0x00000008
)

type MemoryAllocateInfo struct {
	AllocationSize  uint64
	MemoryTypeIndex uint32
}

// WHOLE_SIZE maps or binds from offset to the end of the allocation.
const WHOLE_SIZE uint64 = ^uint64(0)

func (device *Device) CreateBuffer(createInfo *BufferCreateInfo) (*Buffer, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateBuffer", "createInfo", "nil")
	}
	if createInfo.Size == 0 {
		return nil, invalidArg("CreateBuffer", "createInfo.Size", "zero")
	}
	if createInfo.Usage == 0 {
		return nil, invalidArg("CreateBuffer", "createInfo.Usage", "zero")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateBuffer(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_BUFFER, result, "size %d", createInfo.Size)
	}

	buffer := &Buffer{
		obj:    device.track(OBJECT_TYPE_BUFFER, handle, device.driver.DestroyBuffer),
		device: device,
		size:   createInfo.Size,
	}
	watch(buffer, buffer.obj, device.config.Finalizers)
	return buffer, nil
}

func (buffer *Buffer) Handle() Handle {
	if buffer == nil {
		return NULL_HANDLE
	}
	return buffer.obj.handle
}

func (buffer *Buffer) record() *object {
	if buffer == nil {
		return nil
	}
	return buffer.obj
}

func (buffer *Buffer) Size() uint64 {
	return buffer.size
}

func (buffer *Buffer) Destroyed() bool {
	return !buffer.obj.alive()
}

func (buffer *Buffer) Destroy() {
	buffer.obj.dispose(false)
}

func (buffer *Buffer) MemoryRequirements() (MemoryRequirements, error) {
	if !buffer.device.usable(buffer.obj) {
		return MemoryRequirements{}, ErrDestroyed
	}
	return buffer.device.driver.GetBufferMemoryRequirements(buffer.device.obj.handle, buffer.obj.handle), nil
}

func (buffer *Buffer) BindMemory(memory *DeviceMemory, offset uint64) error {
	if memory == nil {
		return invalidArg("Buffer.BindMemory", "memory", "nil")
	}
	if !buffer.device.usable(buffer.obj) || !memory.obj.alive() {
		return ErrDestroyed
	}
	return check(buffer.device.driver.BindBufferMemory(buffer.device.obj.handle, buffer.obj.handle, memory.obj.handle, offset))
}

func (device *Device) AllocateMemory(allocInfo *MemoryAllocateInfo) (*DeviceMemory, error) {
	if allocInfo == nil {
		return nil, invalidArg("AllocateMemory", "allocInfo", "nil")
	}
	if allocInfo.AllocationSize == 0 {
		return nil, invalidArg("AllocateMemory", "allocInfo.AllocationSize", "zero")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.AllocateMemory(device.obj.handle, allocInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_DEVICE_MEMORY, result, "%d bytes of memory type %d", allocInfo.AllocationSize, allocInfo.MemoryTypeIndex)
	}

	memory := &DeviceMemory{
		obj:    device.track(OBJECT_TYPE_DEVICE_MEMORY, handle, device.driver.FreeMemory),
		device: device,
		size:   allocInfo.AllocationSize,
	}
	watch(memory, memory.obj, device.config.Finalizers)
	return memory, nil
}

func (memory *DeviceMemory) Handle() Handle {
	if memory == nil {
		return NULL_HANDLE
	}
	return memory.obj.handle
}

func (memory *DeviceMemory) record() *object {
	if memory == nil {
		return nil
	}
	return memory.obj
}

func (memory *DeviceMemory) Size() uint64 {
	return memory.size
}

func (memory *DeviceMemory) Destroyed() bool {
	return !memory.obj.alive()
}

// Destroy frees the allocation. Freeing implicitly unmaps it.
func (memory *DeviceMemory) Destroy() {
	memory.obj.dispose(false)
	memory.mapped = nil
}

// Map maps size bytes starting at offset. The returned slice aliases the
// mapping and is only valid until Unmap or Destroy.
func (memory *DeviceMemory) Map(offset, size uint64) ([]byte, error) {
	if size == WHOLE_SIZE {
		if offset > memory.size {
			return nil, invalidArg("DeviceMemory.Map", "offset", "past the end of the allocation")
		}
		size = memory.size - offset
	}
	if size == 0 || offset+size > memory.size || offset+size < offset {
		return nil, invalidArg("DeviceMemory.Map", "size", "range outside the allocation")
	}
	if memory.mapped != nil {
		return nil, invalidArg("DeviceMemory.Map", "memory", "already mapped")
	}
	if !memory.device.usable(memory.obj) {
		return nil, ErrDestroyed
	}

	data, result := memory.device.driver.MapMemory(memory.device.obj.handle, memory.obj.handle, offset, size)
	if result != SUCCESS {
		return nil, result
	}
	memory.mapped = data
	return data, nil
}

func (memory *DeviceMemory) Unmap() {
	if memory.mapped == nil {
		return
	}
	memory.mapped = nil
	if !memory.device.usable(memory.obj) {
		return
	}
	memory.device.driver.UnmapMemory(memory.device.obj.handle, memory.obj.handle)
}

// Upload copies data to the start of the allocation through a temporary
// mapping. The memory must be host visible.
func (memory *DeviceMemory) Upload(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	dst, err := memory.Map(0, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	memory.Unmap()

	memory.obj.log.Debug("uploaded", zap.Int("bytes", len(data)))
	return nil
}

type PhysicalDeviceMemoryProperties struct {
	MemoryTypeCount uint32
	MemoryTypes     [32]MemoryType
	MemoryHeapCount uint32
	MemoryHeaps     [16]MemoryHeap
}

type MemoryType struct {
	PropertyFlags MemoryPropertyFlags
	HeapIndex     uint32
}

type MemoryHeap struct {
	Size  uint64
	Flags uint32
}

func (physicalDevice PhysicalDevice) GetMemoryProperties() PhysicalDeviceMemoryProperties {
	return physicalDevice.instance.driver.GetPhysicalDeviceMemoryProperties(physicalDevice.handle)
}

// Helper to find suitable memory type
func FindMemoryType(memProperties PhysicalDeviceMemoryProperties, typeFilter uint32, properties MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < memProperties.MemoryTypeCount; i++ {
		if (typeFilter&(1<<i)) != 0 && (memProperties.MemoryTypes[i].PropertyFlags&properties) == properties {
			return i, true
		}
	}
	return 0, false
}

// CreateBufferWithMemory creates a buffer, allocates memory with the given
// properties for it and binds the two. Nothing is left allocated on failure.
func (device *Device) CreateBufferWithMemory(
	size uint64,
	usage BufferUsageFlags,
	properties MemoryPropertyFlags,
) (*Buffer, *DeviceMemory, error) {

	buffer, err := device.CreateBuffer(&BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: SHARING_MODE_EXCLUSIVE,
	})
	if err != nil {
		return nil, nil, err
	}

	memReqs, err := buffer.MemoryRequirements()
	if err != nil {
		buffer.Destroy()
		return nil, nil, err
	}

	memProps := device.physical.GetMemoryProperties()
	memTypeIndex, found := FindMemoryType(memProps, memReqs.MemoryTypeBits, properties)
	if !found {
		buffer.Destroy()
		return nil, nil, invalidArg("CreateBufferWithMemory", "properties", fmt.Sprintf("no memory type with properties %#x", uint32(properties)))
	}

	memory, err := device.AllocateMemory(&MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memTypeIndex,
	})
	if err != nil {
		buffer.Destroy()
		return nil, nil, err
	}

	if err := buffer.BindMemory(memory, 0); err != nil {
		memory.Destroy()
		buffer.Destroy()
		return nil, nil, err
	}

	return buffer, memory, nil
}
