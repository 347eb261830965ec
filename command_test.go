package vklife_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

func TestCommandPoolResetInvalidatesBuffers(t *testing.T) {
	// Given three command buffers from one pool
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 3)
	require.NoError(t, err)
	require.Len(t, buffers, 3)
	require.Equal(t, 3, pool.Allocated())

	// When one is destroyed, the pool is reset and the other two are destroyed
	buffers[0].Destroy()
	require.NoError(t, pool.Reset(0))
	buffers[1].Destroy()
	buffers[2].Destroy()

	// Then only the first destroy and the reset reached the driver
	assert.Equal(t, 1, drv.Calls("FreeCommandBuffers"))
	assert.Equal(t, 1, drv.Calls("ResetCommandPool"))
	assert.Zero(t, pool.Allocated())
	for _, cmd := range buffers {
		assert.True(t, cmd.Destroyed())
	}

	// And destroying the pool frees what the reset left behind
	pool.Destroy()
	assert.Equal(t, 1, drv.Calls("FreeCommandBuffers"))
	assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_COMMAND_BUFFER))
	drv.AssertNoViolations(t)
}

func TestCommandPoolFreeBatchesOneCall(t *testing.T) {
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_SECONDARY, 4)
	require.NoError(t, err)

	buffers[3].Destroy()
	require.NoError(t, pool.Free(buffers...))

	assert.Equal(t, 2, drv.Calls("FreeCommandBuffers"))
	assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_COMMAND_BUFFER))
	assert.Zero(t, pool.Allocated())
	drv.AssertNoViolations(t)
}

func TestCommandPoolFreeRejectsForeignBuffers(t *testing.T) {
	drv, device := newDevice(t)
	a := newCommandPool(t, device, 0)
	b := newCommandPool(t, device, 0)
	buffers, err := b.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)

	var invalid *vk.InvalidArgumentError
	require.ErrorAs(t, a.Free(buffers[0]), &invalid)
	assert.Zero(t, drv.Calls("FreeCommandBuffers"))
	assert.False(t, buffers[0].Destroyed())
}

func TestCommandPoolDestroyInvalidatesBuffers(t *testing.T) {
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 2)
	require.NoError(t, err)

	pool.Destroy()
	pool.Destroy()

	assert.Equal(t, 1, drv.Calls("DestroyCommandPool"))
	assert.True(t, buffers[0].Destroyed())
	buffers[0].Destroy()
	assert.Zero(t, drv.Calls("FreeCommandBuffers"))
	assert.ErrorIs(t, buffers[1].Begin(&vk.CommandBufferBeginInfo{}), vk.ErrDestroyed)

	_, err = pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	assert.ErrorIs(t, err, vk.ErrDestroyed)
	drv.AssertNoViolations(t)
}

func TestCommandPoolAllocateFailure(t *testing.T) {
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	drv.FailOnce("AllocateCommandBuffers", vk.OUT_OF_DEVICE_MEMORY)

	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 2)
	assert.Nil(t, buffers)

	var allocErr *vk.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, vk.OBJECT_TYPE_COMMAND_BUFFER, allocErr.Object)
	assert.Equal(t, 2, allocErr.Count)
	assert.ErrorIs(t, err, vk.OUT_OF_DEVICE_MEMORY)
	assert.Zero(t, pool.Allocated())
}

func TestRecordingErrorIsSticky(t *testing.T) {
	// Given a command buffer in the recording state
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	cmd := buffers[0]
	require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))

	// When a command with a bad argument is recorded between valid ones
	cmd.Dispatch(1, 1, 1)
	cmd.CopyBuffer(nil, nil, []vk.BufferCopy{{Size: 4}})
	cmd.Dispatch(2, 2, 2)

	// Then the first error is returned by End and later commands were dropped
	var invalid *vk.InvalidArgumentError
	require.ErrorAs(t, cmd.Err(), &invalid)
	assert.Equal(t, "CommandBuffer.CopyBuffer", invalid.Op)
	assert.Equal(t, 1, drv.Calls("CmdDispatch"))
	assert.Zero(t, drv.Calls("CmdCopyBuffer"))

	err = cmd.End()
	assert.ErrorAs(t, err, &invalid)
	assert.NoError(t, cmd.Err())

	// And the buffer can be recorded again from the initial state
	require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))
	cmd.Dispatch(1, 1, 1)
	assert.NoError(t, cmd.End())
}

func TestRecordingOutsideBeginFails(t *testing.T) {
	_, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)

	buffers[0].Dispatch(1, 1, 1)
	var invalid *vk.InvalidArgumentError
	assert.ErrorAs(t, buffers[0].Err(), &invalid)
	assert.ErrorAs(t, buffers[0].End(), &invalid)
}

func TestRerecordRequiresResetFlag(t *testing.T) {
	_, device := newDevice(t)

	plain := newCommandPool(t, device, 0)
	buffers, err := plain.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	cmd := buffers[0]
	require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))
	require.NoError(t, cmd.End())

	var invalid *vk.InvalidArgumentError
	assert.ErrorAs(t, cmd.Begin(&vk.CommandBufferBeginInfo{}), &invalid)
	assert.ErrorAs(t, cmd.Reset(0), &invalid)

	resettable := newCommandPool(t, device, vk.COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT)
	buffers, err = resettable.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	cmd = buffers[0]
	require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))
	require.NoError(t, cmd.End())
	assert.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))
	assert.NoError(t, cmd.End())
	assert.NoError(t, cmd.Reset(vk.COMMAND_BUFFER_RESET_RELEASE_RESOURCES_BIT))
}

func TestSubmitAndWait(t *testing.T) {
	// Given a recorded command buffer and an unsignaled fence
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	cmd := buffers[0]
	require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{Flags: vk.COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT}))
	cmd.Dispatch(8, 8, 1)
	require.NoError(t, cmd.End())

	fence, err := device.CreateFence(&vk.FenceCreateInfo{})
	require.NoError(t, err)

	// When it is submitted
	queue := device.GetQueue(0, 0)
	require.NoError(t, queue.Submit([]vk.SubmitInfo{{CommandBuffers: []*vk.CommandBuffer{cmd}}}, fence))

	// Then the fence is signaled
	done, err := device.WaitForFences([]*vk.Fence{fence}, true, 1_000_000)
	require.NoError(t, err)
	assert.True(t, done)
	require.NoError(t, queue.WaitIdle())
	drv.AssertNoViolations(t)
}

func TestSubmitRejectsInvalidatedBuffers(t *testing.T) {
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 2)
	require.NoError(t, err)
	for _, cmd := range buffers {
		require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))
		require.NoError(t, cmd.End())
	}
	require.NoError(t, pool.Reset(0))

	queue := device.GetQueue(0, 0)
	err = queue.Submit([]vk.SubmitInfo{{CommandBuffers: buffers}}, nil)
	assert.True(t, errors.Is(err, vk.ErrDestroyed))
	assert.Zero(t, drv.Calls("QueueSubmit"))
}

func TestSubmitRejectsUnrecordedBuffers(t *testing.T) {
	drv, device := newDevice(t)
	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)

	var invalid *vk.InvalidArgumentError
	err = device.GetQueue(0, 0).Submit([]vk.SubmitInfo{{CommandBuffers: buffers}}, nil)
	assert.ErrorAs(t, err, &invalid)
	assert.Zero(t, drv.Calls("QueueSubmit"))
}
