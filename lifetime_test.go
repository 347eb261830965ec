package vklife_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

func TestDestroyIsIdempotent(t *testing.T) {
	// Given a live buffer
	drv, device := newDevice(t)
	buffer := newBuffer(t, device)
	require.False(t, buffer.Destroyed())

	// When it is destroyed twice
	buffer.Destroy()
	buffer.Destroy()

	// Then the native destroy ran once
	assert.True(t, buffer.Destroyed())
	assert.Equal(t, 1, drv.Calls("DestroyBuffer"))
	assert.False(t, drv.IsLive(buffer.Handle()))
	drv.AssertNoViolations(t)
}

func TestConcurrentDestroyReleasesOnce(t *testing.T) {
	// Given a live fence shared by several goroutines
	drv, device := newDevice(t)
	fence, err := device.CreateFence(&vk.FenceCreateInfo{})
	require.NoError(t, err)

	// When all of them destroy it at once
	var wg sync.WaitGroup
	for range 16 {
		wg.Go(fence.Destroy)
	}
	wg.Wait()

	// Then exactly one native destroy happened
	assert.Equal(t, 1, drv.Calls("DestroyFence"))
	drv.AssertNoViolations(t)
}

func TestUseAfterDestroy(t *testing.T) {
	drv, device := newDevice(t)
	buffer := newBuffer(t, device)
	buffer.Destroy()

	_, err := buffer.MemoryRequirements()
	assert.ErrorIs(t, err, vk.ErrDestroyed)
	assert.Zero(t, drv.Calls("GetBufferMemoryRequirements"))
}

// dropBuffer creates a buffer and lets the wrapper become unreachable.
//
//go:noinline
func dropBuffer(t *testing.T, device *vk.Device) vk.Handle {
	return newBuffer(t, device).Handle()
}

func TestRuntimeCleanupReleasesUnreachableObject(t *testing.T) {
	// Given a buffer that was never destroyed and is no longer referenced
	core, logs := observer.New(zap.WarnLevel)
	drv, device := newDevice(t, vk.WithLogger(zap.New(core)))
	handle := dropBuffer(t, device)
	require.True(t, drv.IsLive(handle))

	// When the garbage collector runs
	// Then the runtime cleanup releases it and warns about the missing Destroy
	assert.Eventually(t, func() bool {
		runtime.GC()
		return !drv.IsLive(handle)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, drv.Calls("DestroyBuffer"))
	assert.Equal(t, 1, logs.FilterMessageSnippet("runtime cleanup").Len())
	assert.Empty(t, device.LiveObjects())
	drv.AssertNoViolations(t)
}

// dropDevice creates a device with one buffer and lets both wrappers become
// unreachable without Destroy.
//
//go:noinline
func dropDevice(t *testing.T, instance *vk.Instance) (vk.Handle, vk.Handle) {
	physical, err := instance.EnumeratePhysicalDevices()
	require.NoError(t, err)
	device, err := physical[0].CreateDevice(&vk.DeviceCreateInfo{
		QueueCreateInfos: []vk.DeviceQueueCreateInfo{
			{QueueFamilyIndex: 0, QueuePriorities: []float32{1.0}},
		},
	})
	require.NoError(t, err)
	return device.Handle(), newBuffer(t, device).Handle()
}

func TestRuntimeCleanupOfDeviceWithChildren(t *testing.T) {
	// Given a device and its buffer that were never destroyed
	core, logs := observer.New(zap.WarnLevel)
	drv, instance := newInstance(t, vk.WithLogger(zap.New(core)))
	device, buffer := dropDevice(t, instance)
	require.True(t, drv.IsLive(device))
	require.True(t, drv.IsLive(buffer))

	// When the garbage collector runs
	assert.Eventually(t, func() bool {
		runtime.GC()
		return !drv.IsLive(device) && !drv.IsLive(buffer)
	}, 5*time.Second, 10*time.Millisecond)

	// Then the buffer is released once and before its device, whichever
	// cleanup runs first
	assert.Equal(t, 1, drv.Calls("DestroyBuffer"))
	assert.Equal(t, 1, drv.Calls("DestroyDevice"))
	assert.GreaterOrEqual(t, logs.FilterMessageSnippet("runtime cleanup").Len(), 1)
	drv.AssertNoViolations(t)

	// And the buffer's own cleanup, if still pending, does nothing more
	for range 3 {
		runtime.GC()
	}
	assert.Equal(t, 1, drv.Calls("DestroyBuffer"))
}

func TestRuntimeCleanupCanBeDisabled(t *testing.T) {
	// Given finalizers turned off
	drv, device := newDevice(t, vk.WithFinalizers(false))
	handle := dropBuffer(t, device)

	// When the garbage collector runs
	for range 3 {
		runtime.GC()
	}

	// Then the buffer stays alive until its device is destroyed
	assert.True(t, drv.IsLive(handle))
	device.Destroy()
	assert.False(t, drv.IsLive(handle))
	drv.AssertNoViolations(t)
}

func TestExplicitDestroyStopsRuntimeCleanup(t *testing.T) {
	drv, device := newDevice(t)
	buffer := newBuffer(t, device)
	buffer.Destroy()

	for range 3 {
		runtime.GC()
	}
	assert.Equal(t, 1, drv.Calls("DestroyBuffer"))
}

func TestDeviceDestroyReleasesChildren(t *testing.T) {
	// Given a device with several live children
	drv, device := newDevice(t)
	buffer := newBuffer(t, device)
	fence, err := device.CreateFence(&vk.FenceCreateInfo{})
	require.NoError(t, err)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 2)
	require.NoError(t, err)

	// When the device is destroyed
	device.Destroy()

	// Then every child was released once and is reported destroyed
	assert.True(t, device.Destroyed())
	assert.True(t, buffer.Destroyed())
	assert.True(t, fence.Destroyed())
	assert.True(t, pool.Destroyed())
	assert.True(t, buffers[0].Destroyed())
	assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_BUFFER))
	assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_COMMAND_BUFFER))
	assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_DEVICE))

	// And destroying the children afterwards issues no native call
	buffer.Destroy()
	buffers[0].Destroy()
	assert.Equal(t, 1, drv.Calls("DestroyBuffer"))
	assert.Zero(t, drv.Calls("FreeCommandBuffers"))
	drv.AssertNoViolations(t)
}

func TestDeviceDestroyRevokesChildren(t *testing.T) {
	// Given a device that does not release leaked children
	cfg := vk.DefaultConfig()
	cfg.ReleaseChildren = false
	drv, device := newDevice(t, vk.WithConfig(cfg))
	buffer := newBuffer(t, device)

	// When the device is destroyed with the buffer still alive
	device.Destroy()

	// Then the buffer is invalidated without a native call
	assert.True(t, buffer.Destroyed())
	buffer.Destroy()
	assert.Zero(t, drv.Calls("DestroyBuffer"))

	// And the driver saw the device go away under a live child
	violations := drv.Violations()
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "live children")
}

func TestInstanceDestroyReleasesDevices(t *testing.T) {
	// Given an instance with a device that owns a buffer
	drv, instance := newInstance(t)
	physical, err := instance.EnumeratePhysicalDevices()
	require.NoError(t, err)
	device, err := physical[0].CreateDevice(&vk.DeviceCreateInfo{
		QueueCreateInfos: []vk.DeviceQueueCreateInfo{
			{QueueFamilyIndex: 0, QueuePriorities: []float32{1.0}},
		},
	})
	require.NoError(t, err)
	buffer := newBuffer(t, device)

	// When the instance is destroyed first
	instance.Destroy()

	// Then the whole tree was released children first
	assert.True(t, device.Destroyed())
	assert.True(t, buffer.Destroyed())
	assert.Empty(t, drv.Live())
	drv.AssertNoLeaks(t)

	_, err = device.CreateFence(&vk.FenceCreateInfo{})
	assert.ErrorIs(t, err, vk.ErrDestroyed)
}

func TestLiveObjectsNewestFirst(t *testing.T) {
	_, device := newDevice(t)
	first := newBuffer(t, device)
	second, err := device.CreateSemaphore(&vk.SemaphoreCreateInfo{})
	require.NoError(t, err)

	live := device.LiveObjects()
	require.Len(t, live, 2)
	assert.Equal(t, vk.ObjectInfo{Type: vk.OBJECT_TYPE_SEMAPHORE, Handle: second.Handle()}, live[0])
	assert.Equal(t, vk.ObjectInfo{Type: vk.OBJECT_TYPE_BUFFER, Handle: first.Handle()}, live[1])

	first.Destroy()
	assert.Len(t, device.LiveObjects(), 1)
}
