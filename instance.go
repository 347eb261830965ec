package vklife

import (
	"go.uber.org/zap"
)

const (
	ApiVersion_1_0 uint32 = 1<<22 | 0<<12
	ApiVersion_1_1 uint32 = 1<<22 | 1<<12
	ApiVersion_1_2 uint32 = 1<<22 | 2<<12
	ApiVersion_1_3 uint32 = 1<<22 | 3<<12
	ApiVersion_1_4 uint32 = 1<<22 | 4<<12
)

func MakeApiVersion(variant, major, minor, patch uint32) uint32 {
	return variant<<29 | major<<22 | minor<<12 | patch
}

func ApiVersionVariant(version uint32) uint32 {
	return version >> 29
}

func ApiVersionMajor(version uint32) uint32 {
	return (version >> 22) & 0x7F
}

func ApiVersionMinor(version uint32) uint32 {
	return (version >> 12) & 0x3FF
}

func ApiVersionPatch(version uint32) uint32 {
	return version & 0xFFF
}

// EnumerateInstanceVersion returns the highest API version the loader behind
// drv supports.
func EnumerateInstanceVersion(drv Driver) (uint32, error) {
	if drv == nil {
		return 0, invalidArg("EnumerateInstanceVersion", "driver", "nil")
	}

	version, result := drv.EnumerateInstanceVersion()
	if result != SUCCESS {
		return 0, result
	}
	return version, nil
}

type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	ApiVersion         uint32
}

type InstanceCreateInfo struct {
	ApplicationInfo       *ApplicationInfo
	EnabledLayerNames     []string
	EnabledExtensionNames []string
}

// Instance is the root of the object tree. Devices created from it are
// registered as its children.
type Instance struct {
	obj     *object
	driver  Driver
	config  Config
	log     *zap.Logger
	devices *registry
}

// CreateInstance creates a native instance through drv. The options apply to
// the instance and every object created from it.
func CreateInstance(drv Driver, createInfo *InstanceCreateInfo, opts ...Option) (*Instance, error) {
	if drv == nil {
		return nil, invalidArg("CreateInstance", "driver", "nil")
	}
	if createInfo == nil {
		return nil, invalidArg("CreateInstance", "createInfo", "nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, invalidArg("CreateInstance", "config", err.Error())
	}

	log := o.logger
	if log == nil {
		var err error
		if log, err = o.config.logger(); err != nil {
			return nil, invalidArg("CreateInstance", "config", err.Error())
		}
	}

	handle, result := drv.CreateInstance(createInfo)
	if result != SUCCESS {
		name := ""
		if createInfo.ApplicationInfo != nil {
			name = createInfo.ApplicationInfo.ApplicationName
		}
		return nil, creationError(OBJECT_TYPE_INSTANCE, result, "application %q", name)
	}

	devices := newRegistry()
	release := o.config.ReleaseChildren
	instance := &Instance{
		driver:  drv,
		config:  o.config,
		log:     log,
		devices: devices,
	}
	instance.obj = newObject(OBJECT_TYPE_INSTANCE, handle, log, func(finalizing bool) {
		releaseChildren(devices, release, finalizing, log)
		drv.DestroyInstance(handle)
	})
	instance.obj.onRevoke = func() { devices.revokeAll() }
	watch(instance, instance.obj, o.config.Finalizers)

	instance.obj.log.Debug("created")
	return instance, nil
}

func (instance *Instance) Handle() Handle {
	if instance == nil {
		return NULL_HANDLE
	}
	return instance.obj.handle
}

func (instance *Instance) Destroyed() bool {
	return !instance.obj.alive()
}

// Destroy destroys the instance. Devices still alive are released first
// when Config.ReleaseChildren is set.
func (instance *Instance) Destroy() {
	instance.obj.dispose(false)
}

// Config returns the configuration the instance was created with.
func (instance *Instance) Config() Config {
	return instance.config
}

// EnumeratePhysicalDevices lists the physical devices. INCOMPLETE is not an
// error: the devices returned so far are still valid.
func (instance *Instance) EnumeratePhysicalDevices() ([]PhysicalDevice, error) {
	if !instance.obj.alive() {
		return nil, ErrDestroyed
	}

	handles, result := instance.driver.EnumeratePhysicalDevices(instance.obj.handle)
	switch result {
	case SUCCESS:
	case INCOMPLETE:
		instance.log.Debug("physical device enumeration incomplete", zap.Int("count", len(handles)))
	default:
		return nil, result
	}

	devices := make([]PhysicalDevice, len(handles))
	for i, h := range handles {
		devices[i] = PhysicalDevice{instance: instance, handle: h}
	}
	return devices, nil
}
