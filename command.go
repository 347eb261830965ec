// command.go
package vklife

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

type CommandPool struct {
	obj    *object
	device *Device
	state  *poolState
	flags  CommandPoolCreateFlags
}

// CommandBuffer is allocated from a CommandPool, which owns its release.
//
// Recording commands do not return errors. The first failure is kept and
// returned by End, and later commands are dropped until the next Begin.
type CommandBuffer struct {
	obj   *object
	pool  *CommandPool
	level CommandBufferLevel
	st    atomic.Int32
	err   error
}

type CommandPoolCreateInfo struct {
	Flags            CommandPoolCreateFlags
	QueueFamilyIndex uint32
}

type CommandPoolCreateFlags uint32

const (
	COMMAND_POOL_CREATE_TRANSIENT_BIT            CommandPoolCreateFlags = 0x00000001
	COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT CommandPoolCreateFlags = 0x00000002
)

type CommandPoolResetFlags uint32

const (
	COMMAND_POOL_RESET_RELEASE_RESOURCES_BIT CommandPoolResetFlags = 0x00000001
)

type CommandBufferLevel int32

const (
	COMMAND_BUFFER_LEVEL_PRIMARY   CommandBufferLevel = 0
	COMMAND_BUFFER_LEVEL_SECONDARY CommandBufferLevel = 1
)

type CommandBufferBeginInfo struct {
	Flags CommandBufferUsageFlags
}

type CommandBufferUsageFlags uint32

const (
	COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT  CommandBufferUsageFlags = 0x00000001
	COMMAND_BUFFER_USAGE_SIMULTANEOUS_USE_BIT CommandBufferUsageFlags = 0x00000004
)

type CommandBufferResetFlags uint32

const (
	COMMAND_BUFFER_RESET_RELEASE_RESOURCES_BIT CommandBufferResetFlags = 0x00000001
)

type PipelineBindPoint int32

const (
	PIPELINE_BIND_POINT_GRAPHICS PipelineBindPoint = 0
	PIPELINE_BIND_POINT_COMPUTE  PipelineBindPoint = 1
)

const (
	commandBufferInitial int32 = iota
	commandBufferRecording
	commandBufferExecutable
)

// Command Pool
func (device *Device) CreateCommandPool(createInfo *CommandPoolCreateInfo) (*CommandPool, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateCommandPool", "createInfo", "nil")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	drv := device.driver
	handle, result := drv.CreateCommandPool(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_COMMAND_POOL, result, "queue family %d", createInfo.QueueFamilyIndex)
	}

	var state *poolState
	obj := device.track(OBJECT_TYPE_COMMAND_POOL, handle, func(dh, ph Handle) {
		state.invalidate("destroy", func() Result {
			drv.DestroyCommandPool(dh, ph)
			return SUCCESS
		})
	})
	dh := device.obj.handle
	state = newPoolState(obj.log, true, func(buffers []Handle) Result {
		drv.FreeCommandBuffers(dh, handle, buffers)
		return SUCCESS
	})
	obj.onRevoke = func() { state.invalidate("revoke", nil) }

	pool := &CommandPool{
		obj:    obj,
		device: device,
		state:  state,
		flags:  createInfo.Flags,
	}
	watch(pool, pool.obj, device.config.Finalizers)
	return pool, nil
}

func (pool *CommandPool) Handle() Handle {
	if pool == nil {
		return NULL_HANDLE
	}
	return pool.obj.handle
}

func (pool *CommandPool) Destroyed() bool {
	return !pool.obj.alive()
}

// Allocated reports how many command buffers are tracked by the pool.
func (pool *CommandPool) Allocated() int {
	return pool.state.len()
}

// Command Buffer Allocation
func (pool *CommandPool) Allocate(level CommandBufferLevel, count uint32) ([]*CommandBuffer, error) {
	if count == 0 {
		return nil, invalidArg("CommandPool.Allocate", "count", "zero")
	}
	if level != COMMAND_BUFFER_LEVEL_PRIMARY && level != COMMAND_BUFFER_LEVEL_SECONDARY {
		return nil, invalidArg("CommandPool.Allocate", "level", fmt.Sprintf("unknown level %d", level))
	}
	if !pool.device.usable(pool.obj) {
		return nil, ErrDestroyed
	}

	device := pool.device
	log := device.log.With(zap.Uint64("pool", uint64(pool.obj.handle)))
	objs, result := pool.state.allocate(
		func() ([]Handle, Result) {
			return device.driver.AllocateCommandBuffers(device.obj.handle, pool.obj.handle, level, count)
		},
		func(h Handle) *object {
			return newObject(OBJECT_TYPE_COMMAND_BUFFER, h, log, nil)
		},
	)
	if result != SUCCESS {
		return nil, &AllocationError{Object: OBJECT_TYPE_COMMAND_BUFFER, Count: int(count), Result: result}
	}

	buffers := make([]*CommandBuffer, len(objs))
	for i, o := range objs {
		cmd := &CommandBuffer{obj: o, pool: pool, level: level}
		watch(cmd, cmd.obj, device.config.Finalizers)
		buffers[i] = cmd
	}
	return buffers, nil
}

// Free releases command buffers individually with one native call. Buffers
// already destroyed or invalidated by Reset are skipped.
func (pool *CommandPool) Free(buffers ...*CommandBuffer) error {
	for i, cmd := range buffers {
		if cmd == nil {
			return invalidArg("CommandPool.Free", fmt.Sprintf("buffers[%d]", i), "nil")
		}
		if cmd.pool != pool {
			return invalidArg("CommandPool.Free", fmt.Sprintf("buffers[%d]", i), "allocated from another pool")
		}
	}
	if !pool.obj.alive() {
		return nil
	}

	objs := make([]*object, 0, len(buffers))
	for _, cmd := range buffers {
		if cmd.obj.markDestroyed(false) {
			objs = append(objs, cmd.obj)
		}
	}
	return check(pool.state.release(objs))
}

// Reset resets the pool with one native call. Command buffers allocated
// before the reset are invalidated: using them returns ErrDestroyed and their
// Destroy is a no-op. Their native storage is reclaimed when the pool is
// destroyed; use CommandBuffer.Reset to re-record a buffer instead.
func (pool *CommandPool) Reset(flags CommandPoolResetFlags) error {
	if !pool.device.usable(pool.obj) {
		return ErrDestroyed
	}
	device := pool.device
	return check(pool.state.invalidate("reset", func() Result {
		return device.driver.ResetCommandPool(device.obj.handle, pool.obj.handle, flags)
	}))
}

// Destroy destroys the pool and with it every command buffer allocated from it.
func (pool *CommandPool) Destroy() {
	pool.obj.dispose(false)
}

func (cmd *CommandBuffer) Handle() Handle {
	if cmd == nil {
		return NULL_HANDLE
	}
	return cmd.obj.handle
}

func (cmd *CommandBuffer) record() *object {
	if cmd == nil {
		return nil
	}
	return cmd.obj
}

func (cmd *CommandBuffer) Pool() *CommandPool {
	return cmd.pool
}

func (cmd *CommandBuffer) Level() CommandBufferLevel {
	return cmd.level
}

// Destroyed reports whether the buffer was destroyed or invalidated by its pool.
func (cmd *CommandBuffer) Destroyed() bool {
	return !cmd.obj.alive()
}

// Destroy frees the buffer through its pool. It issues no native call when
// the pool was reset or destroyed since the allocation.
func (cmd *CommandBuffer) Destroy() {
	cmd.obj.dispose(false)
}

func (cmd *CommandBuffer) state() int32 {
	return cmd.st.Load()
}

func (cmd *CommandBuffer) usable() bool {
	return cmd.pool.device.usable(cmd.obj) && cmd.pool.obj.alive()
}

func (cmd *CommandBuffer) Begin(beginInfo *CommandBufferBeginInfo) error {
	if beginInfo == nil {
		return invalidArg("CommandBuffer.Begin", "beginInfo", "nil")
	}
	if !cmd.usable() {
		return ErrDestroyed
	}
	switch cmd.state() {
	case commandBufferRecording:
		return invalidArg("CommandBuffer.Begin", "commandBuffer", "already recording")
	case commandBufferExecutable:
		if cmd.pool.flags&COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT == 0 {
			return invalidArg("CommandBuffer.Begin", "commandBuffer", "re-recording requires COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT")
		}
	}

	if err := check(cmd.pool.device.driver.BeginCommandBuffer(cmd.obj.handle, beginInfo)); err != nil {
		return err
	}
	cmd.err = nil
	cmd.st.Store(commandBufferRecording)
	return nil
}

// End finishes recording and returns the first error of any command recorded
// since Begin.
func (cmd *CommandBuffer) End() error {
	if !cmd.usable() {
		return ErrDestroyed
	}
	if cmd.state() != commandBufferRecording {
		return invalidArg("CommandBuffer.End", "commandBuffer", "not recording")
	}

	result := cmd.pool.device.driver.EndCommandBuffer(cmd.obj.handle)
	if err := cmd.err; err != nil {
		cmd.err = nil
		cmd.st.Store(commandBufferInitial)
		return err
	}
	if result != SUCCESS {
		cmd.st.Store(commandBufferInitial)
		return result
	}
	cmd.st.Store(commandBufferExecutable)
	return nil
}

// Reset returns the buffer to the initial state. The pool must have been
// created with COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT.
func (cmd *CommandBuffer) Reset(flags CommandBufferResetFlags) error {
	if cmd.pool.flags&COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT == 0 {
		return invalidArg("CommandBuffer.Reset", "commandBuffer", "pool created without COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT")
	}
	if !cmd.usable() {
		return ErrDestroyed
	}
	if err := check(cmd.pool.device.driver.ResetCommandBuffer(cmd.obj.handle, flags)); err != nil {
		return err
	}
	cmd.err = nil
	cmd.st.Store(commandBufferInitial)
	return nil
}

// recording reports whether a command may be recorded now, keeping the
// reason in cmd.err when it may not.
func (cmd *CommandBuffer) recording(op string) bool {
	if cmd.err != nil {
		return false
	}
	if !cmd.usable() {
		cmd.err = ErrDestroyed
		return false
	}
	if cmd.state() != commandBufferRecording {
		cmd.err = invalidArg(op, "commandBuffer", "not recording")
		return false
	}
	return true
}

func (cmd *CommandBuffer) fail(err error) {
	if cmd.err == nil {
		cmd.err = err
	}
}

// Err returns the first recording error since Begin.
func (cmd *CommandBuffer) Err() error {
	return cmd.err
}

func (cmd *CommandBuffer) BindPipeline(bindPoint PipelineBindPoint, pipeline *Pipeline) {
	if !cmd.recording("CommandBuffer.BindPipeline") {
		return
	}
	if err := checkRef("CommandBuffer.BindPipeline", "pipeline", pipeline.record()); err != nil {
		cmd.fail(err)
		return
	}
	if pipeline.bindPoint != bindPoint {
		cmd.fail(invalidArg("CommandBuffer.BindPipeline", "bindPoint", "does not match the pipeline"))
		return
	}
	cmd.pool.device.driver.CmdBindPipeline(cmd.obj.handle, bindPoint, pipeline.obj.handle)
}

// Descriptor Set Binding
func (cmd *CommandBuffer) BindDescriptorSets(
	pipelineBindPoint PipelineBindPoint,
	layout *PipelineLayout,
	firstSet uint32,
	descriptorSets []*DescriptorSet,
	dynamicOffsets []uint32,
) {
	const op = "CommandBuffer.BindDescriptorSets"
	if !cmd.recording(op) {
		return
	}
	if err := checkRef(op, "layout", layout.record()); err != nil {
		cmd.fail(err)
		return
	}

	sets := make([]Handle, len(descriptorSets))
	for i, set := range descriptorSets {
		if err := checkRef(op, fmt.Sprintf("descriptorSets[%d]", i), set.record()); err != nil {
			cmd.fail(err)
			return
		}
		sets[i] = set.obj.handle
	}

	cmd.pool.device.driver.CmdBindDescriptorSets(cmd.obj.handle, pipelineBindPoint, layout.obj.handle, firstSet, sets, dynamicOffsets)
}

// PushConstants updates push constant values
func (cmd *CommandBuffer) PushConstants(
	layout *PipelineLayout,
	stageFlags ShaderStageFlags,
	offset uint32,
	values []byte,
) {
	const op = "CommandBuffer.PushConstants"
	if !cmd.recording(op) {
		return
	}
	if err := checkRef(op, "layout", layout.record()); err != nil {
		cmd.fail(err)
		return
	}
	if len(values) == 0 || len(values)%4 != 0 || offset%4 != 0 {
		cmd.fail(invalidArg(op, "values", "offset and size must be non-empty multiples of 4"))
		return
	}
	cmd.pool.device.driver.CmdPushConstants(cmd.obj.handle, layout.obj.handle, stageFlags, offset, values)
}

func (cmd *CommandBuffer) Dispatch(groupCountX, groupCountY, groupCountZ uint32) {
	if !cmd.recording("CommandBuffer.Dispatch") {
		return
	}
	cmd.pool.device.driver.CmdDispatch(cmd.obj.handle, groupCountX, groupCountY, groupCountZ)
}

// BufferCopy describes a buffer copy region
type BufferCopy struct {
	SrcOffset uint64 // Starting offset in source buffer
	DstOffset uint64 // Starting offset in destination buffer
	Size      uint64 // Number of bytes to copy
}

func (cmd *CommandBuffer) CopyBuffer(srcBuffer, dstBuffer *Buffer, regions []BufferCopy) {
	const op = "CommandBuffer.CopyBuffer"
	if !cmd.recording(op) {
		return
	}
	if err := checkRef(op, "srcBuffer", srcBuffer.record()); err != nil {
		cmd.fail(err)
		return
	}
	if err := checkRef(op, "dstBuffer", dstBuffer.record()); err != nil {
		cmd.fail(err)
		return
	}
	if len(regions) == 0 {
		cmd.fail(invalidArg(op, "regions", "empty"))
		return
	}
	for i, r := range regions {
		if r.Size == 0 || r.SrcOffset+r.Size > srcBuffer.size || r.DstOffset+r.Size > dstBuffer.size {
			cmd.fail(invalidArg(op, fmt.Sprintf("regions[%d]", i), "outside the buffers"))
			return
		}
	}
	cmd.pool.device.driver.CmdCopyBuffer(cmd.obj.handle, srcBuffer.obj.handle, dstBuffer.obj.handle, regions)
}

// QUEUE_FAMILY_IGNORED leaves queue family ownership unchanged in a barrier.
const QUEUE_FAMILY_IGNORED uint32 = ^uint32(0)

// Image Layout Transition
type ImageMemoryBarrier struct {
	SrcAccessMask       AccessFlags
	DstAccessMask       AccessFlags
	OldLayout           ImageLayout
	NewLayout           ImageLayout
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Image               *Image
	SubresourceRange    ImageSubresourceRange
}

type AccessFlags uint32
type PipelineStageFlags uint32
type DependencyFlags uint32

const (
	ACCESS_NONE               AccessFlags = 0
	ACCESS_SHADER_READ_BIT    AccessFlags = 0x00000020
	ACCESS_SHADER_WRITE_BIT   AccessFlags = 0x00000040
	ACCESS_TRANSFER_READ_BIT  AccessFlags = 0x00000800
	ACCESS_TRANSFER_WRITE_BIT AccessFlags = 0x00001000
	ACCESS_HOST_READ_BIT      AccessFlags = 0x00002000
	ACCESS_HOST_WRITE_BIT     AccessFlags = 0x00004000

	PIPELINE_STAGE_TOP_OF_PIPE_BIT    PipelineStageFlags = 0x00000001
	PIPELINE_STAGE_COMPUTE_SHADER_BIT PipelineStageFlags = 0x00000800
	PIPELINE_STAGE_TRANSFER_BIT       PipelineStageFlags = 0x00001000
	PIPELINE_STAGE_BOTTOM_OF_PIPE_BIT PipelineStageFlags = 0x00002000
	PIPELINE_STAGE_HOST_BIT           PipelineStageFlags = 0x00004000
	PIPELINE_STAGE_ALL_COMMANDS_BIT   PipelineStageFlags = 0x00010000

	DEPENDENCY_BY_REGION_BIT DependencyFlags = 0x00000001
)

func (cmd *CommandBuffer) PipelineBarrier(
	srcStageMask, dstStageMask PipelineStageFlags,
	dependencyFlags DependencyFlags,
	imageMemoryBarriers []ImageMemoryBarrier,
) {
	const op = "CommandBuffer.PipelineBarrier"
	if !cmd.recording(op) {
		return
	}
	if srcStageMask == 0 || dstStageMask == 0 {
		cmd.fail(invalidArg(op, "stageMask", "zero"))
		return
	}
	for i, barrier := range imageMemoryBarriers {
		if err := checkRef(op, fmt.Sprintf("imageMemoryBarriers[%d].Image", i), barrier.Image.record()); err != nil {
			cmd.fail(err)
			return
		}
	}
	cmd.pool.device.driver.CmdPipelineBarrier(cmd.obj.handle, srcStageMask, dstStageMask, dependencyFlags, imageMemoryBarriers)
}
