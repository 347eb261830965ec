package vklife

type ImageView struct {
	obj    *object
	device *Device
	image  *Image
}

type ImageViewType int32

const (
	IMAGE_VIEW_TYPE_1D       ImageViewType = 0
	IMAGE_VIEW_TYPE_2D       ImageViewType = 1
	IMAGE_VIEW_TYPE_3D       ImageViewType = 2
	IMAGE_VIEW_TYPE_CUBE     ImageViewType = 3
	IMAGE_VIEW_TYPE_2D_ARRAY ImageViewType = 5
)

type ComponentSwizzle int32

const (
	COMPONENT_SWIZZLE_IDENTITY ComponentSwizzle = 0
	COMPONENT_SWIZZLE_ZERO     ComponentSwizzle = 1
	COMPONENT_SWIZZLE_ONE      ComponentSwizzle = 2
	COMPONENT_SWIZZLE_R        ComponentSwizzle = 3
	COMPONENT_SWIZZLE_G        ComponentSwizzle = 4
	COMPONENT_SWIZZLE_B        ComponentSwizzle = 5
	COMPONENT_SWIZZLE_A        ComponentSwizzle = 6
)

type ComponentMapping struct {
	R ComponentSwizzle
	G ComponentSwizzle
	B ComponentSwizzle
	A ComponentSwizzle
}

type ImageAspectFlags uint32

const (
	IMAGE_ASPECT_COLOR_BIT    ImageAspectFlags = 0x00000001
	IMAGE_ASPECT_DEPTH_BIT    ImageAspectFlags = 0x00000002
	IMAGE_ASPECT_STENCIL_BIT  ImageAspectFlags = 0x00000004
	IMAGE_ASPECT_METADATA_BIT ImageAspectFlags = 0x00000008
)

type ImageSubresourceRange struct {
	AspectMask     ImageAspectFlags
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

type ImageViewCreateInfo struct {
	Image            *Image
	ViewType         ImageViewType
	Format           Format
	Components       ComponentMapping
	SubresourceRange ImageSubresourceRange
}

func (device *Device) CreateImageView(createInfo *ImageViewCreateInfo) (*ImageView, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateImageView", "createInfo", "nil")
	}
	if createInfo.Image == nil {
		return nil, invalidArg("CreateImageView", "createInfo.Image", "nil")
	}
	if createInfo.Image.device != device {
		return nil, invalidArg("CreateImageView", "createInfo.Image", "created on another device")
	}
	r := createInfo.SubresourceRange
	if r.AspectMask == 0 || r.LevelCount == 0 || r.LayerCount == 0 {
		return nil, invalidArg("CreateImageView", "createInfo.SubresourceRange", "empty range")
	}
	if !device.usable(createInfo.Image.obj) {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateImageView(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_IMAGE_VIEW, result, "view of image %#x", uint64(createInfo.Image.obj.handle))
	}

	view := &ImageView{
		obj:    device.track(OBJECT_TYPE_IMAGE_VIEW, handle, device.driver.DestroyImageView),
		device: device,
		image:  createInfo.Image,
	}
	watch(view, view.obj, device.config.Finalizers)
	return view, nil
}

// CreateImageViewForTexture creates a single-level 2D color view of image.
func (device *Device) CreateImageViewForTexture(image *Image, format Format) (*ImageView, error) {
	return device.CreateImageView(&ImageViewCreateInfo{
		Image:    image,
		ViewType: IMAGE_VIEW_TYPE_2D,
		Format:   format,
		Components: ComponentMapping{
			R: COMPONENT_SWIZZLE_IDENTITY,
			G: COMPONENT_SWIZZLE_IDENTITY,
			B: COMPONENT_SWIZZLE_IDENTITY,
			A: COMPONENT_SWIZZLE_IDENTITY,
		},
		SubresourceRange: ImageSubresourceRange{
			AspectMask:     IMAGE_ASPECT_COLOR_BIT,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
}

func (imageView *ImageView) Handle() Handle {
	if imageView == nil {
		return NULL_HANDLE
	}
	return imageView.obj.handle
}

func (imageView *ImageView) record() *object {
	if imageView == nil {
		return nil
	}
	return imageView.obj
}

// Image returns the image the view was created from.
func (imageView *ImageView) Image() *Image {
	return imageView.image
}

func (imageView *ImageView) Destroyed() bool {
	return !imageView.obj.alive()
}

func (imageView *ImageView) Destroy() {
	imageView.obj.dispose(false)
}
