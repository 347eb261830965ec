package vklife_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	vk "github.com/NOT-REAL-GAMES/vklife"
	"github.com/NOT-REAL-GAMES/vklife/drivertest"
)

// newInstance creates an instance on a fresh fake driver and destroys it when
// the test ends.
func newInstance(t *testing.T, opts ...vk.Option) (*drivertest.Driver, *vk.Instance) {
	t.Helper()

	drv := drivertest.New()
	instance, err := vk.CreateInstance(drv, &vk.InstanceCreateInfo{
		ApplicationInfo: &vk.ApplicationInfo{
			ApplicationName: t.Name(),
			ApiVersion:      vk.ApiVersion_1_3,
		},
	}, opts...)
	require.NoError(t, err, "failed to create instance")
	t.Cleanup(instance.Destroy)
	return drv, instance
}

// newDevice creates a device with one compute queue.
func newDevice(t *testing.T, opts ...vk.Option) (*drivertest.Driver, *vk.Device) {
	t.Helper()

	drv, instance := newInstance(t, opts...)
	physical, err := instance.EnumeratePhysicalDevices()
	require.NoError(t, err, "failed to enumerate physical devices")
	require.Len(t, physical, 1)

	family, ok := physical[0].FindQueueFamily(vk.QUEUE_COMPUTE_BIT)
	require.True(t, ok, "no compute queue family")

	device, err := physical[0].CreateDevice(&vk.DeviceCreateInfo{
		QueueCreateInfos: []vk.DeviceQueueCreateInfo{
			{QueueFamilyIndex: family, QueuePriorities: []float32{1.0}},
		},
	})
	require.NoError(t, err, "failed to create device")
	t.Cleanup(device.Destroy)
	return drv, device
}

func newBuffer(t *testing.T, device *vk.Device) *vk.Buffer {
	t.Helper()

	buffer, err := device.CreateBuffer(&vk.BufferCreateInfo{
		Size:  1024,
		Usage: vk.BUFFER_USAGE_STORAGE_BUFFER_BIT,
	})
	require.NoError(t, err, "failed to create buffer")
	return buffer
}

func newCommandPool(t *testing.T, device *vk.Device, flags vk.CommandPoolCreateFlags) *vk.CommandPool {
	t.Helper()

	pool, err := device.CreateCommandPool(&vk.CommandPoolCreateInfo{
		Flags:            flags,
		QueueFamilyIndex: 0,
	})
	require.NoError(t, err, "failed to create command pool")
	return pool
}

// spirv returns the smallest code blob that passes the SPIR-V header check.
func spirv() []byte {
	return []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
}
