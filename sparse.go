// sparse.go - sparse binding operations
package vklife

import "fmt"

// SparseImageMemoryRequirements describes sparse memory requirements for an image
type SparseImageMemoryRequirements struct {
	FormatProperties     SparseImageFormatProperties
	ImageMipTailFirstLod uint32
	ImageMipTailSize     uint64
	ImageMipTailOffset   uint64
	ImageMipTailStride   uint64
}

// SparseImageFormatProperties describes sparse image format properties
type SparseImageFormatProperties struct {
	AspectMask       ImageAspectFlags
	ImageGranularity Extent3D
	Flags            SparseImageFormatFlags
}

type SparseImageFormatFlags uint32

const (
	SPARSE_IMAGE_FORMAT_SINGLE_MIPTAIL_BIT         SparseImageFormatFlags = 0x00000001
	SPARSE_IMAGE_FORMAT_ALIGNED_MIP_SIZE_BIT       SparseImageFormatFlags = 0x00000002
	SPARSE_IMAGE_FORMAT_NONSTANDARD_BLOCK_SIZE_BIT SparseImageFormatFlags = 0x00000004
)

// SparseMemoryRequirements queries the sparse memory requirements of an image
// created with IMAGE_CREATE_SPARSE_RESIDENCY_BIT.
func (image *Image) SparseMemoryRequirements() ([]SparseImageMemoryRequirements, error) {
	if image.info.Flags&IMAGE_CREATE_SPARSE_RESIDENCY_BIT == 0 {
		return nil, invalidArg("Image.SparseMemoryRequirements", "image", "not created with sparse residency")
	}
	if !image.device.usable(image.obj) {
		return nil, ErrDestroyed
	}
	return image.device.driver.GetImageSparseMemoryRequirements(image.device.obj.handle, image.obj.handle), nil
}

// SparseMemoryBind binds a range of an opaque sparse resource. A nil Memory
// unbinds the range.
type SparseMemoryBind struct {
	ResourceOffset uint64
	Size           uint64
	Memory         *DeviceMemory
	MemoryOffset   uint64
}

type SparseBufferMemoryBindInfo struct {
	Buffer *Buffer
	Binds  []SparseMemoryBind
}

// SparseImageMemoryBind describes a sparse image memory binding operation.
// A nil Memory unbinds the region.
type SparseImageMemoryBind struct {
	Subresource  ImageSubresource
	Offset       Offset3D
	Extent       Extent3D
	Memory       *DeviceMemory
	MemoryOffset uint64
}

// ImageSubresource specifies an image subresource
type ImageSubresource struct {
	AspectMask ImageAspectFlags
	MipLevel   uint32
	ArrayLayer uint32
}

// SparseImageMemoryBindInfo contains sparse image memory bindings
type SparseImageMemoryBindInfo struct {
	Image *Image
	Binds []SparseImageMemoryBind
}

// BindSparseInfo describes a sparse binding operation
type BindSparseInfo struct {
	WaitSemaphores   []*Semaphore
	BufferBinds      []SparseBufferMemoryBindInfo
	ImageBinds       []SparseImageMemoryBindInfo
	SignalSemaphores []*Semaphore
}

func (info *BindSparseInfo) check(i int) error {
	for _, s := range info.WaitSemaphores {
		if err := checkRef("Queue.BindSparse", fmt.Sprintf("bindInfos[%d].WaitSemaphores", i), s.record()); err != nil {
			return err
		}
	}
	for _, s := range info.SignalSemaphores {
		if err := checkRef("Queue.BindSparse", fmt.Sprintf("bindInfos[%d].SignalSemaphores", i), s.record()); err != nil {
			return err
		}
	}
	for j, bind := range info.BufferBinds {
		arg := fmt.Sprintf("bindInfos[%d].BufferBinds[%d]", i, j)
		if err := checkRef("Queue.BindSparse", arg+".Buffer", bind.Buffer.record()); err != nil {
			return err
		}
		for _, b := range bind.Binds {
			if b.Memory != nil && !b.Memory.obj.alive() {
				return ErrDestroyed
			}
		}
	}
	for j, bind := range info.ImageBinds {
		arg := fmt.Sprintf("bindInfos[%d].ImageBinds[%d]", i, j)
		if err := checkRef("Queue.BindSparse", arg+".Image", bind.Image.record()); err != nil {
			return err
		}
		if bind.Image.info.Flags&IMAGE_CREATE_SPARSE_RESIDENCY_BIT == 0 {
			return invalidArg("Queue.BindSparse", arg+".Image", "not created with sparse residency")
		}
		for _, b := range bind.Binds {
			if b.Memory != nil && !b.Memory.obj.alive() {
				return ErrDestroyed
			}
		}
	}
	return nil
}

// BindSparse binds device memory to sparse resources. fence may be nil.
func (queue *Queue) BindSparse(bindInfos []BindSparseInfo, fence *Fence) error {
	if len(bindInfos) == 0 && fence == nil {
		return nil
	}
	for i := range bindInfos {
		if err := bindInfos[i].check(i); err != nil {
			return err
		}
	}
	if fence != nil && !fence.obj.alive() {
		return ErrDestroyed
	}
	if !queue.usable() {
		return ErrDestroyed
	}

	return check(queue.device.driver.QueueBindSparse(queue.handle, bindInfos, fence.Handle()))
}
