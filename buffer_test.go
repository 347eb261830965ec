package vklife_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

func TestCreateBufferWithMemoryAndUpload(t *testing.T) {
	// Given a host-visible buffer with bound memory
	drv, device := newDevice(t)
	buffer, memory, err := device.CreateBufferWithMemory(
		256,
		vk.BUFFER_USAGE_TRANSFER_SRC_BIT,
		vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT|vk.MEMORY_PROPERTY_HOST_COHERENT_BIT,
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), buffer.Size())
	assert.GreaterOrEqual(t, memory.Size(), buffer.Size())

	// When data is uploaded
	payload := []byte("vklife upload")
	require.NoError(t, memory.Upload(payload))

	// Then the allocation holds it and the mapping was released
	assert.Equal(t, payload, drv.Memory(memory.Handle())[:len(payload)])
	data, err := memory.Map(0, vk.WHOLE_SIZE)
	require.NoError(t, err)
	assert.Len(t, data, int(memory.Size()))
	memory.Unmap()
	memory.Unmap()

	buffer.Destroy()
	memory.Destroy()
	drv.AssertNoViolations(t)
}

func TestMapRejectsBadRanges(t *testing.T) {
	drv, device := newDevice(t)
	_, memory, err := device.CreateBufferWithMemory(
		64,
		vk.BUFFER_USAGE_TRANSFER_SRC_BIT,
		vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT,
	)
	require.NoError(t, err)

	var invalid *vk.InvalidArgumentError
	_, err = memory.Map(memory.Size(), 1)
	assert.ErrorAs(t, err, &invalid)
	_, err = memory.Map(0, 0)
	assert.ErrorAs(t, err, &invalid)

	_, err = memory.Map(0, 16)
	require.NoError(t, err)
	_, err = memory.Map(0, 16)
	assert.ErrorAs(t, err, &invalid, "double map")
	assert.Equal(t, 1, drv.Calls("MapMemory"))

	// Destroying mapped memory unmaps it implicitly.
	memory.Destroy()
	_, err = memory.Map(0, 16)
	assert.ErrorIs(t, err, vk.ErrDestroyed)
	drv.AssertNoViolations(t)
}

func TestCreateBufferWithMemoryCleansUp(t *testing.T) {
	// Given a driver whose allocations fail
	drv, device := newDevice(t)
	drv.FailOnce("AllocateMemory", vk.OUT_OF_DEVICE_MEMORY)

	// When a buffer with memory is requested
	_, _, err := device.CreateBufferWithMemory(
		64,
		vk.BUFFER_USAGE_STORAGE_BUFFER_BIT,
		vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
	)

	// Then the buffer created first was destroyed again
	assert.ErrorIs(t, err, vk.OUT_OF_DEVICE_MEMORY)
	assert.Equal(t, 1, drv.Calls("DestroyBuffer"))
	assert.Empty(t, device.LiveObjects())
	drv.AssertNoViolations(t)
}

func TestCreateWithMemoryNoMatchingType(t *testing.T) {
	// Neither fake memory type is host cached.
	tests := []struct {
		name   string
		create func(device *vk.Device) error
	}{
		{
			name: "buffer",
			create: func(device *vk.Device) error {
				_, _, err := device.CreateBufferWithMemory(64, vk.BUFFER_USAGE_STORAGE_BUFFER_BIT, vk.MEMORY_PROPERTY_HOST_CACHED_BIT)
				return err
			},
		},
		{
			name: "image",
			create: func(device *vk.Device) error {
				_, _, err := device.CreateImageWithMemory(16, 16, vk.FORMAT_R8G8B8A8_UNORM, vk.IMAGE_TILING_OPTIMAL,
					vk.IMAGE_USAGE_SAMPLED_BIT, vk.MEMORY_PROPERTY_HOST_CACHED_BIT)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv, device := newDevice(t)

			err := tt.create(device)

			var invalid *vk.InvalidArgumentError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "properties", invalid.Arg)
			var createErr *vk.CreationError
			assert.False(t, errors.As(err, &createErr), "no native call reported a status")
			assert.Zero(t, drv.Calls("AllocateMemory"))
			assert.Empty(t, device.LiveObjects())
			drv.AssertNoViolations(t)
		})
	}
}

func TestImageWithViewAndSampler(t *testing.T) {
	drv, device := newDevice(t)
	image, memory, err := device.CreateImageWithMemory(
		64, 64,
		vk.FORMAT_R8G8B8A8_UNORM,
		vk.IMAGE_TILING_OPTIMAL,
		vk.IMAGE_USAGE_SAMPLED_BIT|vk.IMAGE_USAGE_TRANSFER_DST_BIT,
		vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
	)
	require.NoError(t, err)
	assert.Equal(t, vk.Extent3D{Width: 64, Height: 64, Depth: 1}, image.Extent())

	view, err := device.CreateImageViewForTexture(image, image.Format())
	require.NoError(t, err)
	assert.Same(t, image, view.Image())

	sampler, err := device.CreateSampler(&vk.SamplerCreateInfo{
		MagFilter:    vk.FILTER_LINEAR,
		MinFilter:    vk.FILTER_LINEAR,
		AddressModeU: vk.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE,
		AddressModeV: vk.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE,
		AddressModeW: vk.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE,
		MaxLod:       1,
	})
	require.NoError(t, err)

	_, err = image.SparseMemoryRequirements()
	var invalid *vk.InvalidArgumentError
	assert.ErrorAs(t, err, &invalid, "image is not sparse")

	for _, d := range []vk.Destroyer{sampler, view, image, memory} {
		d.Destroy()
	}
	assert.Empty(t, device.LiveObjects())
	drv.AssertNoViolations(t)
}

func TestCreateImageUnsupportedFormat(t *testing.T) {
	_, device := newDevice(t)

	_, _, err := device.CreateImageWithMemory(
		16, 16,
		vk.FORMAT_UNDEFINED,
		vk.IMAGE_TILING_OPTIMAL,
		vk.IMAGE_USAGE_SAMPLED_BIT,
		vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
	)
	assert.ErrorIs(t, err, vk.FORMAT_NOT_SUPPORTED)
	assert.Empty(t, device.LiveObjects())
}

func TestSparseBinding(t *testing.T) {
	drv, device := newDevice(t)
	image, err := device.CreateImage(&vk.ImageCreateInfo{
		Flags:       vk.IMAGE_CREATE_SPARSE_BINDING_BIT | vk.IMAGE_CREATE_SPARSE_RESIDENCY_BIT,
		ImageType:   vk.IMAGE_TYPE_2D,
		Format:      vk.FORMAT_R8G8B8A8_UNORM,
		Extent:      vk.Extent3D{Width: 256, Height: 256, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SAMPLE_COUNT_1_BIT,
		Usage:       vk.IMAGE_USAGE_SAMPLED_BIT,
	})
	require.NoError(t, err)

	reqs, err := image.SparseMemoryRequirements()
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	granularity := reqs[0].FormatProperties.ImageGranularity

	memory, err := device.AllocateMemory(&vk.MemoryAllocateInfo{AllocationSize: 1 << 16})
	require.NoError(t, err)
	fence, err := device.CreateFence(&vk.FenceCreateInfo{})
	require.NoError(t, err)

	queue := device.GetQueue(0, 0)
	require.NoError(t, queue.BindSparse([]vk.BindSparseInfo{{
		ImageBinds: []vk.SparseImageMemoryBindInfo{{
			Image: image,
			Binds: []vk.SparseImageMemoryBind{{
				Subresource: vk.ImageSubresource{AspectMask: vk.IMAGE_ASPECT_COLOR_BIT},
				Extent:      granularity,
				Memory:      memory,
			}},
		}},
	}}, fence))

	signaled, err := fence.Status()
	require.NoError(t, err)
	assert.True(t, signaled)

	memory.Destroy()
	err = queue.BindSparse([]vk.BindSparseInfo{{
		ImageBinds: []vk.SparseImageMemoryBindInfo{{
			Image: image,
			Binds: []vk.SparseImageMemoryBind{{Extent: granularity, Memory: memory}},
		}},
	}}, nil)
	assert.ErrorIs(t, err, vk.ErrDestroyed)
	assert.Equal(t, 1, drv.Calls("QueueBindSparse"))
	drv.AssertNoViolations(t)
}
