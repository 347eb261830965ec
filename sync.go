// sync.go
package vklife

import (
	"fmt"
)

type Semaphore struct {
	obj    *object
	device *Device
}

type Fence struct {
	obj    *object
	device *Device
}

// Queue is owned by its device and has no Destroy.
type Queue struct {
	handle      Handle
	device      *Device
	familyIndex uint32
}

type SemaphoreCreateInfo struct {
	Flags uint32
}

type FenceCreateInfo struct {
	Flags FenceCreateFlags
}

type FenceCreateFlags uint32

const (
	FENCE_CREATE_SIGNALED_BIT FenceCreateFlags = 0x00000001
)

// Semaphore
func (device *Device) CreateSemaphore(createInfo *SemaphoreCreateInfo) (*Semaphore, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateSemaphore", "createInfo", "nil")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateSemaphore(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_SEMAPHORE, result, "")
	}

	semaphore := &Semaphore{
		obj:    device.track(OBJECT_TYPE_SEMAPHORE, handle, device.driver.DestroySemaphore),
		device: device,
	}
	watch(semaphore, semaphore.obj, device.config.Finalizers)
	return semaphore, nil
}

func (semaphore *Semaphore) Handle() Handle {
	if semaphore == nil {
		return NULL_HANDLE
	}
	return semaphore.obj.handle
}

func (semaphore *Semaphore) record() *object {
	if semaphore == nil {
		return nil
	}
	return semaphore.obj
}

func (semaphore *Semaphore) Destroyed() bool {
	return !semaphore.obj.alive()
}

func (semaphore *Semaphore) Destroy() {
	semaphore.obj.dispose(false)
}

// Fence
func (device *Device) CreateFence(createInfo *FenceCreateInfo) (*Fence, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateFence", "createInfo", "nil")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateFence(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_FENCE, result, "flags %#x", uint32(createInfo.Flags))
	}

	fence := &Fence{
		obj:    device.track(OBJECT_TYPE_FENCE, handle, device.driver.DestroyFence),
		device: device,
	}
	watch(fence, fence.obj, device.config.Finalizers)
	return fence, nil
}

func (fence *Fence) Handle() Handle {
	if fence == nil {
		return NULL_HANDLE
	}
	return fence.obj.handle
}

func (fence *Fence) record() *object {
	if fence == nil {
		return nil
	}
	return fence.obj
}

func (fence *Fence) Destroyed() bool {
	return !fence.obj.alive()
}

func (fence *Fence) Destroy() {
	fence.obj.dispose(false)
}

// Status reports whether the fence is signaled. NOT_READY is reported as
// false, not as an error.
func (fence *Fence) Status() (bool, error) {
	if !fence.device.usable(fence.obj) {
		return false, ErrDestroyed
	}

	switch result := fence.device.driver.GetFenceStatus(fence.device.obj.handle, fence.obj.handle); result {
	case SUCCESS:
		return true, nil
	case NOT_READY:
		return false, nil
	default:
		return false, result
	}
}

func (fence *Fence) Reset() error {
	return fence.device.ResetFences(fence)
}

func fenceHandles(op string, fences []*Fence) ([]Handle, error) {
	handles := make([]Handle, len(fences))
	for i, fence := range fences {
		if err := checkRef(op, fmt.Sprintf("fences[%d]", i), fence.record()); err != nil {
			return nil, err
		}
		handles[i] = fence.obj.handle
	}
	return handles, nil
}

// WaitForFences waits until one or all fences are signaled or timeout
// nanoseconds pass. A timeout is reported as false, not as an error.
func (device *Device) WaitForFences(fences []*Fence, waitAll bool, timeout uint64) (bool, error) {
	if len(fences) == 0 {
		return true, nil
	}
	handles, err := fenceHandles("Device.WaitForFences", fences)
	if err != nil {
		return false, err
	}
	if !device.obj.alive() {
		return false, ErrDestroyed
	}

	switch result := device.driver.WaitForFences(device.obj.handle, handles, waitAll, timeout); result {
	case SUCCESS:
		return true, nil
	case TIMEOUT:
		return false, nil
	default:
		return false, result
	}
}

func (device *Device) ResetFences(fences ...*Fence) error {
	if len(fences) == 0 {
		return nil
	}
	handles, err := fenceHandles("Device.ResetFences", fences)
	if err != nil {
		return err
	}
	if !device.obj.alive() {
		return ErrDestroyed
	}

	return check(device.driver.ResetFences(device.obj.handle, handles))
}

// Queue Operations
type SubmitInfo struct {
	WaitSemaphores   []*Semaphore
	WaitDstStageMask []PipelineStageFlags
	CommandBuffers   []*CommandBuffer
	SignalSemaphores []*Semaphore
}

func (info *SubmitInfo) check(i int) error {
	const op = "Queue.Submit"

	if len(info.WaitDstStageMask) != len(info.WaitSemaphores) {
		return invalidArg(op, fmt.Sprintf("submits[%d].WaitDstStageMask", i), "length differs from WaitSemaphores")
	}
	for j, s := range info.WaitSemaphores {
		if err := checkRef(op, fmt.Sprintf("submits[%d].WaitSemaphores[%d]", i, j), s.record()); err != nil {
			return err
		}
	}
	for j, s := range info.SignalSemaphores {
		if err := checkRef(op, fmt.Sprintf("submits[%d].SignalSemaphores[%d]", i, j), s.record()); err != nil {
			return err
		}
	}
	for j, cmd := range info.CommandBuffers {
		arg := fmt.Sprintf("submits[%d].CommandBuffers[%d]", i, j)
		if err := checkRef(op, arg, cmd.record()); err != nil {
			return err
		}
		if cmd.state() != commandBufferExecutable {
			return invalidArg(op, arg, "not in the executable state")
		}
	}
	return nil
}

func (queue *Queue) Handle() Handle {
	if queue == nil {
		return NULL_HANDLE
	}
	return queue.handle
}

func (queue *Queue) FamilyIndex() uint32 {
	return queue.familyIndex
}

func (queue *Queue) usable() bool {
	return queue.handle != NULL_HANDLE && queue.device.obj.alive()
}

// Submit submits command buffers. fence may be nil. A command buffer that was
// destroyed or invalidated by its pool is ErrDestroyed.
func (queue *Queue) Submit(submits []SubmitInfo, fence *Fence) error {
	if len(submits) == 0 && fence == nil {
		return nil
	}
	for i := range submits {
		if err := submits[i].check(i); err != nil {
			return err
		}
	}
	if fence != nil && !fence.obj.alive() {
		return ErrDestroyed
	}
	if !queue.usable() {
		return ErrDestroyed
	}

	return check(queue.device.driver.QueueSubmit(queue.handle, submits, fence.Handle()))
}

func (queue *Queue) WaitIdle() error {
	if !queue.usable() {
		return ErrDestroyed
	}
	return check(queue.device.driver.QueueWaitIdle(queue.handle))
}
