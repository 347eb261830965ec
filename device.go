package vklife

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type QueueFlags uint32

const (
	QUEUE_GRAPHICS_BIT       QueueFlags = 0x00000001
	QUEUE_COMPUTE_BIT        QueueFlags = 0x00000002
	QUEUE_TRANSFER_BIT       QueueFlags = 0x00000004
	QUEUE_SPARSE_BINDING_BIT QueueFlags = 0x00000008
)

type QueueFamilyProperties struct {
	QueueFlags                  QueueFlags
	QueueCount                  uint32
	TimestampValidBits          uint32
	MinImageTransferGranularity Extent3D
}

type PhysicalDeviceType int32

const (
	PHYSICAL_DEVICE_TYPE_OTHER          PhysicalDeviceType = 0
	PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU PhysicalDeviceType = 1
	PHYSICAL_DEVICE_TYPE_DISCRETE_GPU   PhysicalDeviceType = 2
	PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU    PhysicalDeviceType = 3
	PHYSICAL_DEVICE_TYPE_CPU            PhysicalDeviceType = 4
)

type PhysicalDeviceLimits struct {
	MaxComputeWorkGroupCount [3]uint32
	MaxComputeWorkGroupSize  [3]uint32
	MaxPushConstantsSize     uint32
	MaxBoundDescriptorSets   uint32
	NonCoherentAtomSize      uint64
	SparseAddressSpaceSize   uint64
}

type PhysicalDeviceProperties struct {
	ApiVersion    uint32
	DriverVersion uint32
	VendorID      uint32
	DeviceID      uint32
	DeviceType    PhysicalDeviceType
	DeviceName    string
	Limits        PhysicalDeviceLimits
}

type PhysicalDeviceFeatures struct {
	SparseBinding          bool
	SparseResidencyImage2D bool
}

type PhysicalDeviceVulkan12Features struct {
	DescriptorIndexing                        bool
	ShaderSampledImageArrayNonUniformIndexing bool
	DescriptorBindingPartiallyBound           bool
	DescriptorBindingUpdateAfterBind          bool
	RuntimeDescriptorArray                    bool
}

// PhysicalDevice is owned by its instance and is never destroyed.
type PhysicalDevice struct {
	instance *Instance
	handle   Handle
}

func (physicalDevice PhysicalDevice) Handle() Handle {
	return physicalDevice.handle
}

func (physicalDevice PhysicalDevice) GetProperties() PhysicalDeviceProperties {
	return physicalDevice.instance.driver.GetPhysicalDeviceProperties(physicalDevice.handle)
}

func (physicalDevice PhysicalDevice) GetFeatures() PhysicalDeviceFeatures {
	return physicalDevice.instance.driver.GetPhysicalDeviceFeatures(physicalDevice.handle)
}

func (physicalDevice PhysicalDevice) GetQueueFamilyProperties() []QueueFamilyProperties {
	return physicalDevice.instance.driver.GetPhysicalDeviceQueueFamilyProperties(physicalDevice.handle)
}

// FindQueueFamily returns the first queue family that supports all of flags.
func (physicalDevice PhysicalDevice) FindQueueFamily(flags QueueFlags) (uint32, bool) {
	for i, family := range physicalDevice.GetQueueFamilyProperties() {
		if family.QueueCount > 0 && family.QueueFlags&flags == flags {
			return uint32(i), true
		}
	}
	return 0, false
}

type DeviceQueueCreateInfo struct {
	QueueFamilyIndex uint32
	QueuePriorities  []float32
}

type DeviceCreateInfo struct {
	QueueCreateInfos      []DeviceQueueCreateInfo
	EnabledLayerNames     []string
	EnabledExtensionNames []string
	EnabledFeatures       *PhysicalDeviceFeatures
	Vulkan12Features      *PhysicalDeviceVulkan12Features
}

func (info *DeviceCreateInfo) validate() error {
	var err error
	if len(info.QueueCreateInfos) == 0 {
		err = multierr.Append(err, errors.New("no queue create infos"))
	}
	for i, q := range info.QueueCreateInfos {
		if len(q.QueuePriorities) == 0 {
			err = multierr.Append(err, fmt.Errorf("queue create info %d: no priorities", i))
		}
		for _, p := range q.QueuePriorities {
			if p < 0 || p > 1 {
				err = multierr.Append(err, fmt.Errorf("queue create info %d: priority %v outside [0, 1]", i, p))
				break
			}
		}
	}
	return err
}

// Device is the owning context of every non-pooled object created from it.
type Device struct {
	obj      *object
	id       uuid.UUID
	driver   Driver
	physical PhysicalDevice
	config   Config
	log      *zap.Logger
	children *registry
}

func (physicalDevice PhysicalDevice) CreateDevice(createInfo *DeviceCreateInfo) (*Device, error) {
	instance := physicalDevice.instance
	if instance == nil || physicalDevice.handle == NULL_HANDLE {
		return nil, invalidArg("CreateDevice", "physicalDevice", "zero value")
	}
	if createInfo == nil {
		return nil, invalidArg("CreateDevice", "createInfo", "nil")
	}
	if err := createInfo.validate(); err != nil {
		return nil, invalidArg("CreateDevice", "createInfo", err.Error())
	}
	if !instance.obj.alive() {
		return nil, ErrDestroyed
	}

	drv := instance.driver
	handle, result := drv.CreateDevice(physicalDevice.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_DEVICE, result, "%d queue create info(s)", len(createInfo.QueueCreateInfos))
	}

	id := uuid.New()
	log := instance.log.With(zap.Stringer("device", id))
	children := newRegistry()
	release := instance.config.ReleaseChildren

	device := &Device{
		id:       id,
		driver:   drv,
		physical: physicalDevice,
		config:   instance.config,
		log:      log,
		children: children,
	}
	device.obj = newObject(OBJECT_TYPE_DEVICE, handle, log, func(finalizing bool) {
		releaseChildren(children, release, finalizing, log)
		drv.DestroyDevice(handle)
	})
	device.obj.onRevoke = func() { children.revokeAll() }
	instance.devices.add(device.obj)
	watch(device, device.obj, instance.config.Finalizers)

	device.obj.log.Debug("created")
	return device, nil
}

func (device *Device) Handle() Handle {
	if device == nil {
		return NULL_HANDLE
	}
	return device.obj.handle
}

// ID identifies the device in log output.
func (device *Device) ID() uuid.UUID {
	return device.id
}

func (device *Device) PhysicalDevice() PhysicalDevice {
	return device.physical
}

func (device *Device) Destroyed() bool {
	return !device.obj.alive()
}

// Destroy destroys the device. Children still alive are released newest
// first when Config.ReleaseChildren is set, and only revoked otherwise.
func (device *Device) Destroy() {
	device.obj.dispose(false)
}

// LiveObjects lists the children that were not destroyed yet, newest first.
// Objects allocated from pools are reported through their pool.
func (device *Device) LiveObjects() []ObjectInfo {
	return infos(device.children.live())
}

func (device *Device) WaitIdle() error {
	if !device.obj.alive() {
		return ErrDestroyed
	}
	return check(device.driver.DeviceWaitIdle(device.obj.handle))
}

// GetQueue returns a queue of the device. Queues are owned by the device and
// have no Destroy.
func (device *Device) GetQueue(queueFamilyIndex, queueIndex uint32) *Queue {
	var handle Handle
	if device.obj.alive() {
		handle = device.driver.GetDeviceQueue(device.obj.handle, queueFamilyIndex, queueIndex)
	}
	return &Queue{
		handle:      handle,
		device:      device,
		familyIndex: queueFamilyIndex,
	}
}

// track registers a child record whose release calls destroy with the device
// handle. The release closure must not capture the Device: the device's own
// cleanup argument reaches every child record.
func (device *Device) track(kind ObjectType, handle Handle, destroy func(device, handle Handle)) *object {
	dh := device.obj.handle
	o := newObject(kind, handle, device.log, func(bool) {
		destroy(dh, handle)
	})
	device.children.add(o)
	o.log.Debug("created")
	return o
}

// usable reports whether both the device and obj accept new work.
func (device *Device) usable(obj *object) bool {
	return device.obj.alive() && obj.alive()
}
