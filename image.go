package vklife

import "fmt"

type Image struct {
	obj    *object
	device *Device
	info   ImageCreateInfo
}

type Sampler struct {
	obj    *object
	device *Device
}

type ImageCreateInfo struct {
	Flags         ImageCreateFlags
	ImageType     ImageType
	Format        Format
	Extent        Extent3D
	MipLevels     uint32
	ArrayLayers   uint32
	Samples       SampleCountFlags
	Tiling        ImageTiling
	Usage         ImageUsageFlags
	SharingMode   SharingMode
	InitialLayout ImageLayout
}

type ImageCreateFlags uint32

const (
	IMAGE_CREATE_SPARSE_BINDING_BIT   ImageCreateFlags = 0x00000001
	IMAGE_CREATE_SPARSE_RESIDENCY_BIT ImageCreateFlags = 0x00000002
	IMAGE_CREATE_SPARSE_ALIASED_BIT   ImageCreateFlags = 0x00000004
	IMAGE_CREATE_MUTABLE_FORMAT_BIT   ImageCreateFlags = 0x00000008
)

type ImageType int32

const (
	IMAGE_TYPE_1D ImageType = 0
	IMAGE_TYPE_2D ImageType = 1
	IMAGE_TYPE_3D ImageType = 2
)

type ImageTiling int32

const (
	IMAGE_TILING_OPTIMAL ImageTiling = 0
	IMAGE_TILING_LINEAR  ImageTiling = 1
)

type SampleCountFlags uint32

const (
	SAMPLE_COUNT_1_BIT SampleCountFlags = 0x00000001
	SAMPLE_COUNT_4_BIT SampleCountFlags = 0x00000004
)

type ImageUsageFlags uint32

const (
	IMAGE_USAGE_TRANSFER_SRC_BIT     ImageUsageFlags = 0x00000001
	IMAGE_USAGE_TRANSFER_DST_BIT     ImageUsageFlags = 0x00000002
	IMAGE_USAGE_SAMPLED_BIT          ImageUsageFlags = 0x00000004
	IMAGE_USAGE_STORAGE_BIT          ImageUsageFlags = 0x00000008
	IMAGE_USAGE_COLOR_ATTACHMENT_BIT ImageUsageFlags = 0x00000010
)

type ImageLayout int32

const (
	IMAGE_LAYOUT_UNDEFINED                ImageLayout = 0
	IMAGE_LAYOUT_GENERAL                  ImageLayout = 1
	IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL ImageLayout = 2
	IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL ImageLayout = 5
	IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL     ImageLayout = 6
	IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL     ImageLayout = 7
)

func (device *Device) CreateImage(createInfo *ImageCreateInfo) (*Image, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateImage", "createInfo", "nil")
	}
	if e := createInfo.Extent; e.Width == 0 || e.Height == 0 || e.Depth == 0 {
		return nil, invalidArg("CreateImage", "createInfo.Extent", "zero dimension")
	}
	if createInfo.MipLevels == 0 || createInfo.ArrayLayers == 0 {
		return nil, invalidArg("CreateImage", "createInfo", "MipLevels and ArrayLayers must be at least 1")
	}
	if createInfo.Samples == 0 {
		return nil, invalidArg("CreateImage", "createInfo.Samples", "zero")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateImage(device.obj.handle, createInfo)
	if result != SUCCESS {
		e := createInfo.Extent
		return nil, creationError(OBJECT_TYPE_IMAGE, result, "%dx%dx%d format %d", e.Width, e.Height, e.Depth, createInfo.Format)
	}

	image := &Image{
		obj:    device.track(OBJECT_TYPE_IMAGE, handle, device.driver.DestroyImage),
		device: device,
		info:   *createInfo,
	}
	watch(image, image.obj, device.config.Finalizers)
	return image, nil
}

func (image *Image) Handle() Handle {
	if image == nil {
		return NULL_HANDLE
	}
	return image.obj.handle
}

func (image *Image) record() *object {
	if image == nil {
		return nil
	}
	return image.obj
}

func (image *Image) Format() Format {
	return image.info.Format
}

func (image *Image) Extent() Extent3D {
	return image.info.Extent
}

func (image *Image) Destroyed() bool {
	return !image.obj.alive()
}

func (image *Image) Destroy() {
	image.obj.dispose(false)
}

func (image *Image) MemoryRequirements() (MemoryRequirements, error) {
	if !image.device.usable(image.obj) {
		return MemoryRequirements{}, ErrDestroyed
	}
	return image.device.driver.GetImageMemoryRequirements(image.device.obj.handle, image.obj.handle), nil
}

func (image *Image) BindMemory(memory *DeviceMemory, offset uint64) error {
	if memory == nil {
		return invalidArg("Image.BindMemory", "memory", "nil")
	}
	if image.info.Flags&IMAGE_CREATE_SPARSE_BINDING_BIT != 0 {
		return invalidArg("Image.BindMemory", "image", "sparse images are bound through Queue.BindSparse")
	}
	if !image.device.usable(image.obj) || !memory.obj.alive() {
		return ErrDestroyed
	}
	return check(image.device.driver.BindImageMemory(image.device.obj.handle, image.obj.handle, memory.obj.handle, offset))
}

// CreateImageWithMemory creates a single-level 2D image with bound memory.
// Nothing is left allocated on failure.
func (device *Device) CreateImageWithMemory(
	width, height uint32,
	format Format,
	tiling ImageTiling,
	usage ImageUsageFlags,
	properties MemoryPropertyFlags,
) (*Image, *DeviceMemory, error) {

	image, err := device.CreateImage(&ImageCreateInfo{
		ImageType: IMAGE_TYPE_2D,
		Format:    format,
		Extent: Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       SAMPLE_COUNT_1_BIT,
		Tiling:        tiling,
		Usage:         usage,
		SharingMode:   SHARING_MODE_EXCLUSIVE,
		InitialLayout: IMAGE_LAYOUT_UNDEFINED,
	})
	if err != nil {
		return nil, nil, err
	}

	memReqs, err := image.MemoryRequirements()
	if err != nil {
		image.Destroy()
		return nil, nil, err
	}

	memTypeIndex, found := FindMemoryType(device.physical.GetMemoryProperties(), memReqs.MemoryTypeBits, properties)
	if !found {
		image.Destroy()
		return nil, nil, invalidArg("CreateImageWithMemory", "properties", fmt.Sprintf("no memory type with properties %#x", uint32(properties)))
	}

	memory, err := device.AllocateMemory(&MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memTypeIndex,
	})
	if err != nil {
		image.Destroy()
		return nil, nil, err
	}

	if err := image.BindMemory(memory, 0); err != nil {
		memory.Destroy()
		image.Destroy()
		return nil, nil, err
	}

	return image, memory, nil
}

type SamplerCreateInfo struct {
	MagFilter        Filter
	MinFilter        Filter
	MipmapMode       SamplerMipmapMode
	AddressModeU     SamplerAddressMode
	AddressModeV     SamplerAddressMode
	AddressModeW     SamplerAddressMode
	MipLodBias       float32
	AnisotropyEnable bool
	MaxAnisotropy    float32
	MinLod           float32
	MaxLod           float32
	BorderColor      BorderColor
}

type Filter int32
type SamplerMipmapMode int32
type SamplerAddressMode int32
type BorderColor int32

const (
	FILTER_NEAREST Filter = 0
	FILTER_LINEAR  Filter = 1

	SAMPLER_MIPMAP_MODE_NEAREST SamplerMipmapMode = 0
	SAMPLER_MIPMAP_MODE_LINEAR  SamplerMipmapMode = 1

	SAMPLER_ADDRESS_MODE_REPEAT          SamplerAddressMode = 0
	SAMPLER_ADDRESS_MODE_MIRRORED_REPEAT SamplerAddressMode = 1
	SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE   SamplerAddressMode = 2
	SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER SamplerAddressMode = 3

	BORDER_COLOR_FLOAT_TRANSPARENT_BLACK BorderColor = 0
	BORDER_COLOR_FLOAT_OPAQUE_BLACK      BorderColor = 2
	BORDER_COLOR_FLOAT_OPAQUE_WHITE      BorderColor = 4
)

func (device *Device) CreateSampler(createInfo *SamplerCreateInfo) (*Sampler, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateSampler", "createInfo", "nil")
	}
	if createInfo.AnisotropyEnable && createInfo.MaxAnisotropy < 1 {
		return nil, invalidArg("CreateSampler", "createInfo.MaxAnisotropy", "must be at least 1 when anisotropy is enabled")
	}
	if createInfo.MaxLod < createInfo.MinLod {
		return nil, invalidArg("CreateSampler", "createInfo.MaxLod", "less than MinLod")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateSampler(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_SAMPLER, result, "")
	}

	sampler := &Sampler{
		obj:    device.track(OBJECT_TYPE_SAMPLER, handle, device.driver.DestroySampler),
		device: device,
	}
	watch(sampler, sampler.obj, device.config.Finalizers)
	return sampler, nil
}

func (sampler *Sampler) Handle() Handle {
	if sampler == nil {
		return NULL_HANDLE
	}
	return sampler.obj.handle
}

func (sampler *Sampler) record() *object {
	if sampler == nil {
		return nil
	}
	return sampler.obj
}

func (sampler *Sampler) Destroyed() bool {
	return !sampler.obj.alive()
}

func (sampler *Sampler) Destroy() {
	sampler.obj.dispose(false)
}
