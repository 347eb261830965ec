package vklife

import "fmt"

// Handle is an opaque native object identifier. Zero is VK_NULL_HANDLE.
type Handle uint64

// NULL_HANDLE is the null native handle.
const NULL_HANDLE Handle = 0

type Result int32

const (
	SUCCESS                        Result = 0
	NOT_READY                      Result = 1
	TIMEOUT                        Result = 2
	EVENT_SET                      Result = 3
	EVENT_RESET                    Result = 4
	INCOMPLETE                     Result = 5
	OUT_OF_HOST_MEMORY             Result = -1
	OUT_OF_DEVICE_MEMORY           Result = -2
	INITIALIZATION_FAILED          Result = -3
	DEVICE_LOST                    Result = -4
	MEMORY_MAP_FAILED              Result = -5
	LAYER_NOT_PRESENT              Result = -6
	EXTENSION_NOT_PRESENT          Result = -7
	FEATURE_NOT_PRESENT            Result = -8
	INCOMPATIBLE_DRIVER            Result = -9
	TOO_MANY_OBJECTS               Result = -10
	FORMAT_NOT_SUPPORTED           Result = -11
	FRAGMENTED_POOL                Result = -12
	UNKNOWN                        Result = -13
	OUT_OF_POOL_MEMORY             Result = -1000069000
	INVALID_EXTERNAL_HANDLE        Result = -1000072003
	FRAGMENTATION                  Result = -1000161000
	INVALID_OPAQUE_CAPTURE_ADDRESS Result = -1000257000
	PIPELINE_COMPILE_REQUIRED      Result = 1000297000
	SUBOPTIMAL                     Result = 1000001003
	OUT_OF_DATE                    Result = -1000001004
	VALIDATION_FAILED              Result = -1000011001
	INVALID_SHADER                 Result = -1000012000
)

var resultNames = map[Result]string{
	SUCCESS:                        "SUCCESS",
	NOT_READY:                      "NOT READY",
	TIMEOUT:                        "TIMEOUT",
	EVENT_SET:                      "EVENT SET",
	EVENT_RESET:                    "EVENT RESET",
	INCOMPLETE:                     "INCOMPLETE",
	OUT_OF_HOST_MEMORY:             "OUT OF HOST MEMORY",
	OUT_OF_DEVICE_MEMORY:           "OUT OF DEVICE MEMORY",
	INITIALIZATION_FAILED:          "INITIALIZATION FAILED",
	DEVICE_LOST:                    "DEVICE LOST",
	MEMORY_MAP_FAILED:              "MEMORY MAP FAILED",
	LAYER_NOT_PRESENT:              "LAYER NOT PRESENT",
	EXTENSION_NOT_PRESENT:          "EXTENSION NOT PRESENT",
	FEATURE_NOT_PRESENT:            "FEATURE NOT PRESENT",
	INCOMPATIBLE_DRIVER:            "INCOMPATIBLE DRIVER",
	TOO_MANY_OBJECTS:               "TOO MANY OBJECTS",
	FORMAT_NOT_SUPPORTED:           "FORMAT NOT SUPPORTED",
	FRAGMENTED_POOL:                "FRAGMENTED POOL",
	UNKNOWN:                        "UNKNOWN",
	OUT_OF_POOL_MEMORY:             "OUT OF POOL MEMORY",
	INVALID_EXTERNAL_HANDLE:        "INVALID EXTERNAL HANDLE",
	FRAGMENTATION:                  "FRAGMENTATION",
	INVALID_OPAQUE_CAPTURE_ADDRESS: "INVALID OPAQUE CAPTURE ADDRESS",
	PIPELINE_COMPILE_REQUIRED:      "PIPELINE COMPILE REQUIRED",
	SUBOPTIMAL:                     "SUBOPTIMAL",
	OUT_OF_DATE:                    "OUT OF DATE",
	VALIDATION_FAILED:              "VALIDATION FAILED",
	INVALID_SHADER:                 "INVALID SHADER",
}

func (r Result) Error() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("VkResult(%d)", int32(r))
}

func (r Result) String() string {
	return r.Error()
}

// IsError reports whether r is a negative (error) status. Positive statuses
// such as TIMEOUT or SUBOPTIMAL are not errors by themselves; each operation
// decides how to treat them.
func (r Result) IsError() bool {
	return r < 0
}

// ObjectType identifies the kind of native object behind a Handle.
type ObjectType int32

const (
	OBJECT_TYPE_UNKNOWN               ObjectType = 0
	OBJECT_TYPE_INSTANCE              ObjectType = 1
	OBJECT_TYPE_PHYSICAL_DEVICE       ObjectType = 2
	OBJECT_TYPE_DEVICE                ObjectType = 3
	OBJECT_TYPE_QUEUE                 ObjectType = 4
	OBJECT_TYPE_SEMAPHORE             ObjectType = 5
	OBJECT_TYPE_COMMAND_BUFFER        ObjectType = 6
	OBJECT_TYPE_FENCE                 ObjectType = 7
	OBJECT_TYPE_DEVICE_MEMORY         ObjectType = 8
	OBJECT_TYPE_BUFFER                ObjectType = 9
	OBJECT_TYPE_IMAGE                 ObjectType = 10
	OBJECT_TYPE_IMAGE_VIEW            ObjectType = 14
	OBJECT_TYPE_SHADER_MODULE         ObjectType = 15
	OBJECT_TYPE_PIPELINE_LAYOUT       ObjectType = 17
	OBJECT_TYPE_PIPELINE              ObjectType = 19
	OBJECT_TYPE_DESCRIPTOR_SET_LAYOUT ObjectType = 20
	OBJECT_TYPE_SAMPLER               ObjectType = 21
	OBJECT_TYPE_DESCRIPTOR_POOL       ObjectType = 22
	OBJECT_TYPE_DESCRIPTOR_SET        ObjectType = 23
	OBJECT_TYPE_COMMAND_POOL          ObjectType = 25
)

var objectTypeNames = map[ObjectType]string{
	OBJECT_TYPE_UNKNOWN:               "unknown",
	OBJECT_TYPE_INSTANCE:              "instance",
	OBJECT_TYPE_PHYSICAL_DEVICE:       "physical device",
	OBJECT_TYPE_DEVICE:                "device",
	OBJECT_TYPE_QUEUE:                 "queue",
	OBJECT_TYPE_SEMAPHORE:             "semaphore",
	OBJECT_TYPE_COMMAND_BUFFER:        "command buffer",
	OBJECT_TYPE_FENCE:                 "fence",
	OBJECT_TYPE_DEVICE_MEMORY:         "device memory",
	OBJECT_TYPE_BUFFER:                "buffer",
	OBJECT_TYPE_IMAGE:                 "image",
	OBJECT_TYPE_IMAGE_VIEW:            "image view",
	OBJECT_TYPE_SHADER_MODULE:         "shader module",
	OBJECT_TYPE_PIPELINE_LAYOUT:       "pipeline layout",
	OBJECT_TYPE_PIPELINE:              "pipeline",
	OBJECT_TYPE_DESCRIPTOR_SET_LAYOUT: "descriptor set layout",
	OBJECT_TYPE_SAMPLER:               "sampler",
	OBJECT_TYPE_DESCRIPTOR_POOL:       "descriptor pool",
	OBJECT_TYPE_DESCRIPTOR_SET:        "descriptor set",
	OBJECT_TYPE_COMMAND_POOL:          "command pool",
}

func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("VkObjectType(%d)", int32(t))
}

// ObjectInfo describes a live object owned by a Device.
type ObjectInfo struct {
	Type   ObjectType
	Handle Handle
}

type Extent2D struct {
	Width  uint32
	Height uint32
}

type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

type Offset3D struct {
	X int32
	Y int32
	Z int32
}

type Format int32

const (
	FORMAT_UNDEFINED      Format = 0
	FORMAT_R8G8B8A8_UNORM Format = 37
	FORMAT_R8G8B8A8_SRGB  Format = 43
	FORMAT_B8G8R8A8_UNORM Format = 44
	FORMAT_B8G8R8A8_SRGB  Format = 50
	FORMAT_D32_SFLOAT     Format = 126
)

type SharingMode int32

const (
	SHARING_MODE_EXCLUSIVE  SharingMode = 0
	SHARING_MODE_CONCURRENT SharingMode = 1
)

type ShaderStageFlags uint32

const (
	SHADER_STAGE_VERTEX_BIT   ShaderStageFlags = 0x00000001
	SHADER_STAGE_FRAGMENT_BIT ShaderStageFlags = 0x00000010
	SHADER_STAGE_COMPUTE_BIT  ShaderStageFlags = 0x00000020
	SHADER_STAGE_ALL_GRAPHICS ShaderStageFlags = 0x0000001F
	SHADER_STAGE_ALL          ShaderStageFlags = 0x7FFFFFFF
)
