package drivertest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	vk "github.com/NOT-REAL-GAMES/vklife"
	"github.com/NOT-REAL-GAMES/vklife/drivertest"
)

func newDevice(t *testing.T, d *drivertest.Driver) (vk.Handle, vk.Handle) {
	t.Helper()

	instance, r := d.CreateInstance(&vk.InstanceCreateInfo{})
	require.Equal(t, vk.SUCCESS, r)

	physical, r := d.EnumeratePhysicalDevices(instance)
	require.Equal(t, vk.SUCCESS, r)
	require.Len(t, physical, 1)

	device, r := d.CreateDevice(physical[0], &vk.DeviceCreateInfo{
		QueueCreateInfos: []vk.DeviceQueueCreateInfo{
			{QueueFamilyIndex: 0, QueuePriorities: []float32{1}},
		},
	})
	require.Equal(t, vk.SUCCESS, r)
	return instance, device
}

func TestLiveTracking(t *testing.T) {
	d := drivertest.New()
	instance, device := newDevice(t, d)

	buffer, r := d.CreateBuffer(device, &vk.BufferCreateInfo{Size: 16})
	require.Equal(t, vk.SUCCESS, r)
	assert.True(t, d.IsLive(buffer))
	assert.Equal(t, 1, d.LiveCount(vk.OBJECT_TYPE_BUFFER))

	d.DestroyBuffer(device, buffer)
	assert.False(t, d.IsLive(buffer))
	assert.Equal(t, 1, d.Calls("DestroyBuffer"))

	d.DestroyDevice(device)
	d.DestroyInstance(instance)
	d.AssertNoLeaks(t)
}

func TestViolations(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	d := drivertest.New(drivertest.WithLogger(zap.New(core)))
	instance, device := newDevice(t, d)

	buffer, r := d.CreateBuffer(device, &vk.BufferCreateInfo{Size: 16})
	require.Equal(t, vk.SUCCESS, r)

	t.Run("parent before child", func(t *testing.T) {
		d.DestroyDevice(device)
		require.Len(t, d.Violations(), 1)
		assert.Contains(t, d.Violations()[0], "live children")
	})

	t.Run("double destroy", func(t *testing.T) {
		d.DestroyDevice(device)
		require.Len(t, d.Violations(), 2)
		assert.Contains(t, d.Violations()[1], "not live")
	})

	t.Run("null handle", func(t *testing.T) {
		d.DestroyBuffer(device, vk.NULL_HANDLE)
		assert.Len(t, d.Violations(), 2)
	})

	d.DestroyBuffer(vk.NULL_HANDLE, buffer)
	d.DestroyInstance(instance)
	assert.Empty(t, d.Live())
	assert.Equal(t, 2, logs.FilterMessage("driver violation").Len())
}

func TestScriptedFailures(t *testing.T) {
	d := drivertest.New()
	_, device := newDevice(t, d)

	t.Run("fail once", func(t *testing.T) {
		d.FailOnce("CreateBuffer", vk.OUT_OF_DEVICE_MEMORY)

		h, r := d.CreateBuffer(device, &vk.BufferCreateInfo{Size: 16})
		assert.Equal(t, vk.OUT_OF_DEVICE_MEMORY, r)
		assert.Equal(t, vk.NULL_HANDLE, h)

		h, r = d.CreateBuffer(device, &vk.BufferCreateInfo{Size: 16})
		assert.Equal(t, vk.SUCCESS, r)
		d.DestroyBuffer(device, h)
	})

	t.Run("fail until recovered", func(t *testing.T) {
		d.Fail("CreateFence", vk.OUT_OF_HOST_MEMORY)
		for range 3 {
			_, r := d.CreateFence(device, &vk.FenceCreateInfo{})
			assert.Equal(t, vk.OUT_OF_HOST_MEMORY, r)
		}

		d.Recover("CreateFence")
		h, r := d.CreateFence(device, &vk.FenceCreateInfo{})
		require.Equal(t, vk.SUCCESS, r)
		d.DestroyFence(device, h)
		assert.Equal(t, 4, d.Calls("CreateFence"))
	})

	assert.Zero(t, d.LiveCount(vk.OBJECT_TYPE_BUFFER))
	assert.Zero(t, d.LiveCount(vk.OBJECT_TYPE_FENCE))
	d.AssertNoViolations(t)
}

func TestHostMemory(t *testing.T) {
	d := drivertest.New()
	_, device := newDevice(t, d)

	memory, r := d.AllocateMemory(device, &vk.MemoryAllocateInfo{AllocationSize: 64, MemoryTypeIndex: 1})
	require.Equal(t, vk.SUCCESS, r)

	data, r := d.MapMemory(device, memory, 8, 4)
	require.Equal(t, vk.SUCCESS, r)
	copy(data, []byte{1, 2, 3, 4})
	d.UnmapMemory(device, memory)

	assert.Equal(t, []byte{1, 2, 3, 4}, d.Memory(memory)[8:12])

	local, r := d.AllocateMemory(device, &vk.MemoryAllocateInfo{AllocationSize: 64, MemoryTypeIndex: 0})
	require.Equal(t, vk.SUCCESS, r)
	_, r = d.MapMemory(device, local, 0, 4)
	assert.Equal(t, vk.MEMORY_MAP_FAILED, r, "device-local memory is not mappable")

	d.FreeMemory(device, memory)
	d.FreeMemory(device, local)
	d.AssertNoViolations(t)
}
