//go:build vulkan

package vkdriver

// #cgo windows LDFLAGS: -lvulkan-1
// #cgo linux LDFLAGS: -lvulkan
// #cgo darwin LDFLAGS: -lvulkan
// #include <vulkan/vulkan.h>
// #include <stdlib.h>
// #include <string.h>
import "C"
import (
	"unsafe"

	"go.uber.org/zap"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

var _ vk.Driver = (*Driver)(nil)

// Driver forwards every call to the Vulkan loader. It holds no state of its
// own and is safe for concurrent use as far as the native API is.
type Driver struct {
	log *zap.Logger
}

// Option configures New.
type Option func(*Driver)

// WithLogger sets the logger for native failures.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

func New(opts ...Option) *Driver {
	d := &Driver{log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// arena collects C allocations made while marshalling one call.
type arena struct {
	allocs []unsafe.Pointer
}

func (a *arena) alloc(size uintptr) unsafe.Pointer {
	p := C.calloc(1, C.size_t(size))
	a.allocs = append(a.allocs, p)
	return p
}

func (a *arena) cstring(s string) *C.char {
	p := C.CString(s)
	a.allocs = append(a.allocs, unsafe.Pointer(p))
	return p
}

func (a *arena) cstrings(ss []string) **C.char {
	out := newSlice[*C.char](a, len(ss))
	for i, s := range ss {
		out[i] = a.cstring(s)
	}
	return first(out)
}

func (a *arena) free() {
	for _, p := range a.allocs {
		C.free(p)
	}
	a.allocs = nil
}

func newStruct[T any](a *arena) *T {
	var zero T
	return (*T)(a.alloc(unsafe.Sizeof(zero)))
}

func newSlice[T any](a *arena, n int) []T {
	if n == 0 {
		return nil
	}
	var zero T
	p := a.alloc(unsafe.Sizeof(zero) * uintptr(n))
	return unsafe.Slice((*T)(p), n)
}

func first[T any](s []T) *T {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// Native handles are pointers on 64-bit targets; vklife carries them as
// integers.
func handle(p unsafe.Pointer) vk.Handle {
	return vk.Handle(uintptr(p))
}

func ptr(h vk.Handle) unsafe.Pointer {
	return unsafe.Pointer(uintptr(h))
}

func cbool(b bool) C.VkBool32 {
	if b {
		return C.VK_TRUE
	}
	return C.VK_FALSE
}

func (d *Driver) EnumerateInstanceVersion() (uint32, vk.Result) {
	var version C.uint32_t
	result := vk.Result(C.vkEnumerateInstanceVersion(&version))
	return uint32(version), result
}

// Instance

func (d *Driver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkInstanceCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO
	cInfo.pNext = nil

	if app := info.ApplicationInfo; app != nil {
		cApp := newStruct[C.VkApplicationInfo](&a)
		cApp.sType = C.VK_STRUCTURE_TYPE_APPLICATION_INFO
		if app.ApplicationName != "" {
			cApp.pApplicationName = a.cstring(app.ApplicationName)
		}
		cApp.applicationVersion = C.uint32_t(app.ApplicationVersion)
		if app.EngineName != "" {
			cApp.pEngineName = a.cstring(app.EngineName)
		}
		cApp.engineVersion = C.uint32_t(app.EngineVersion)
		cApp.apiVersion = C.uint32_t(app.ApiVersion)
		cInfo.pApplicationInfo = cApp
	}

	cInfo.enabledLayerCount = C.uint32_t(len(info.EnabledLayerNames))
	cInfo.ppEnabledLayerNames = a.cstrings(info.EnabledLayerNames)
	cInfo.enabledExtensionCount = C.uint32_t(len(info.EnabledExtensionNames))
	cInfo.ppEnabledExtensionNames = a.cstrings(info.EnabledExtensionNames)

	var instance C.VkInstance
	result := vk.Result(C.vkCreateInstance(cInfo, nil, &instance))
	if result != vk.SUCCESS {
		d.log.Debug("vkCreateInstance failed", zap.Stringer("result", result))
		return vk.NULL_HANDLE, result
	}
	return handle(unsafe.Pointer(instance)), vk.SUCCESS
}

func (d *Driver) DestroyInstance(instance vk.Handle) {
	C.vkDestroyInstance(C.VkInstance(ptr(instance)), nil)
}

func (d *Driver) EnumeratePhysicalDevices(instance vk.Handle) ([]vk.Handle, vk.Result) {
	cInstance := C.VkInstance(ptr(instance))

	var count C.uint32_t
	result := vk.Result(C.vkEnumeratePhysicalDevices(cInstance, &count, nil))
	if result != vk.SUCCESS || count == 0 {
		return nil, result
	}

	devices := make([]C.VkPhysicalDevice, count)
	result = vk.Result(C.vkEnumeratePhysicalDevices(cInstance, &count, &devices[0]))
	if result != vk.SUCCESS && result != vk.INCOMPLETE {
		return nil, result
	}

	handles := make([]vk.Handle, count)
	for i := range handles {
		handles[i] = handle(unsafe.Pointer(devices[i]))
	}
	return handles, result
}

func (d *Driver) GetPhysicalDeviceProperties(physicalDevice vk.Handle) vk.PhysicalDeviceProperties {
	var props C.VkPhysicalDeviceProperties
	C.vkGetPhysicalDeviceProperties(C.VkPhysicalDevice(ptr(physicalDevice)), &props)

	limits := props.limits
	return vk.PhysicalDeviceProperties{
		ApiVersion:    uint32(props.apiVersion),
		DriverVersion: uint32(props.driverVersion),
		VendorID:      uint32(props.vendorID),
		DeviceID:      uint32(props.deviceID),
		DeviceType:    vk.PhysicalDeviceType(props.deviceType),
		DeviceName:    C.GoString(&props.deviceName[0]),
		Limits: vk.PhysicalDeviceLimits{
			MaxComputeWorkGroupCount: [3]uint32{
				uint32(limits.maxComputeWorkGroupCount[0]),
				uint32(limits.maxComputeWorkGroupCount[1]),
				uint32(limits.maxComputeWorkGroupCount[2]),
			},
			MaxComputeWorkGroupSize: [3]uint32{
				uint32(limits.maxComputeWorkGroupSize[0]),
				uint32(limits.maxComputeWorkGroupSize[1]),
				uint32(limits.maxComputeWorkGroupSize[2]),
			},
			MaxPushConstantsSize:   uint32(limits.maxPushConstantsSize),
			MaxBoundDescriptorSets: uint32(limits.maxBoundDescriptorSets),
			NonCoherentAtomSize:    uint64(limits.nonCoherentAtomSize),
			SparseAddressSpaceSize: uint64(limits.sparseAddressSpaceSize),
		},
	}
}

func (d *Driver) GetPhysicalDeviceFeatures(physicalDevice vk.Handle) vk.PhysicalDeviceFeatures {
	var cFeatures C.VkPhysicalDeviceFeatures
	C.vkGetPhysicalDeviceFeatures(C.VkPhysicalDevice(ptr(physicalDevice)), &cFeatures)

	return vk.PhysicalDeviceFeatures{
		SparseBinding:          cFeatures.sparseBinding == C.VK_TRUE,
		SparseResidencyImage2D: cFeatures.sparseResidencyImage2D == C.VK_TRUE,
	}
}

func (d *Driver) GetPhysicalDeviceMemoryProperties(physicalDevice vk.Handle) vk.PhysicalDeviceMemoryProperties {
	var cProps C.VkPhysicalDeviceMemoryProperties
	C.vkGetPhysicalDeviceMemoryProperties(C.VkPhysicalDevice(ptr(physicalDevice)), &cProps)

	props := vk.PhysicalDeviceMemoryProperties{
		MemoryTypeCount: uint32(cProps.memoryTypeCount),
		MemoryHeapCount: uint32(cProps.memoryHeapCount),
	}
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i] = vk.MemoryType{
			PropertyFlags: vk.MemoryPropertyFlags(cProps.memoryTypes[i].propertyFlags),
			HeapIndex:     uint32(cProps.memoryTypes[i].heapIndex),
		}
	}
	for i := uint32(0); i < props.MemoryHeapCount; i++ {
		props.MemoryHeaps[i] = vk.MemoryHeap{
			Size:  uint64(cProps.memoryHeaps[i].size),
			Flags: uint32(cProps.memoryHeaps[i].flags),
		}
	}
	return props
}

func (d *Driver) GetPhysicalDeviceQueueFamilyProperties(physicalDevice vk.Handle) []vk.QueueFamilyProperties {
	cDevice := C.VkPhysicalDevice(ptr(physicalDevice))

	var count C.uint32_t
	C.vkGetPhysicalDeviceQueueFamilyProperties(cDevice, &count, nil)
	if count == 0 {
		return nil
	}

	props := make([]C.VkQueueFamilyProperties, count)
	C.vkGetPhysicalDeviceQueueFamilyProperties(cDevice, &count, &props[0])

	goProps := make([]vk.QueueFamilyProperties, count)
	for i := range goProps {
		goProps[i] = vk.QueueFamilyProperties{
			QueueFlags:         vk.QueueFlags(props[i].queueFlags),
			QueueCount:         uint32(props[i].queueCount),
			TimestampValidBits: uint32(props[i].timestampValidBits),
			MinImageTransferGranularity: vk.Extent3D{
				Width:  uint32(props[i].minImageTransferGranularity.width),
				Height: uint32(props[i].minImageTransferGranularity.height),
				Depth:  uint32(props[i].minImageTransferGranularity.depth),
			},
		}
	}
	return goProps
}

// Device

func (d *Driver) CreateDevice(physicalDevice vk.Handle, info *vk.DeviceCreateInfo) (vk.Handle, vk.Result) {
	var a arena
	defer a.free()

	cInfo := newStruct[C.VkDeviceCreateInfo](&a)
	cInfo.sType = C.VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO

	queues := newSlice[C.VkDeviceQueueCreateInfo](&a, len(info.QueueCreateInfos))
	for i, q := range info.QueueCreateInfos {
		priorities := newSlice[C.float](&a, len(q.QueuePriorities))
		for j, p := range q.QueuePriorities {
			priorities[j] = C.float(p)
		}
		queues[i].sType = C.VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO
		queues[i].queueFamilyIndex = C.uint32_t(q.QueueFamilyIndex)
		queues[i].queueCount = C.uint32_t(len(q.QueuePriorities))
		queues[i].pQueuePriorities = first(priorities)
	}
	cInfo.queueCreateInfoCount = C.uint32_t(len(queues))
	cInfo.pQueueCreateInfos = first(queues)

	cInfo.enabledLayerCount = C.uint32_t(len(info.EnabledLayerNames))
	cInfo.ppEnabledLayerNames = a.cstrings(info.EnabledLayerNames)
	cInfo.enabledExtensionCount = C.uint32_t(len(info.EnabledExtensionNames))
	cInfo.ppEnabledExtensionNames = a.cstrings(info.EnabledExtensionNames)

	if f := info.EnabledFeatures; f != nil {
		cFeatures := newStruct[C.VkPhysicalDeviceFeatures](&a)
		cFeatures.sparseBinding = cbool(f.SparseBinding)
		cFeatures.sparseResidencyImage2D = cbool(f.SparseResidencyImage2D)
		cInfo.pEnabledFeatures = cFeatures
	}

	if f := info.Vulkan12Features; f != nil {
		features12 := newStruct[C.VkPhysicalDeviceVulkan12Features](&a)
		features12.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_2_FEATURES
		features12.descriptorIndexing = cbool(f.DescriptorIndexing)
		features12.shaderSampledImageArrayNonUniformIndexing = cbool(f.ShaderSampledImageArrayNonUniformIndexing)
		features12.descriptorBindingPartiallyBound = cbool(f.DescriptorBindingPartiallyBound)
		features12.descriptorBindingSampledImageUpdateAfterBind = cbool(f.DescriptorBindingUpdateAfterBind)
		features12.runtimeDescriptorArray = cbool(f.RuntimeDescriptorArray)
		cInfo.pNext = unsafe.Pointer(features12)
	}

	var device C.VkDevice
	result := vk.Result(C.vkCreateDevice(C.VkPhysicalDevice(ptr(physicalDevice)), cInfo, nil, &device))
	if result != vk.SUCCESS {
		d.log.Debug("vkCreateDevice failed", zap.Stringer("result", result))
		return vk.NULL_HANDLE, result
	}
	return handle(unsafe.Pointer(device)), vk.SUCCESS
}

func (d *Driver) DestroyDevice(device vk.Handle) {
	C.vkDestroyDevice(C.VkDevice(ptr(device)), nil)
}

func (d *Driver) DeviceWaitIdle(device vk.Handle) vk.Result {
	return vk.Result(C.vkDeviceWaitIdle(C.VkDevice(ptr(device))))
}

func (d *Driver) GetDeviceQueue(device vk.Handle, queueFamilyIndex, queueIndex uint32) vk.Handle {
	var queue C.VkQueue
	C.vkGetDeviceQueue(C.VkDevice(ptr(device)), C.uint32_t(queueFamilyIndex), C.uint32_t(queueIndex), &queue)
	return handle(unsafe.Pointer(queue))
}
