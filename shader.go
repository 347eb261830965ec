package vklife

import "encoding/binary"

// SPIRV_MAGIC is the first word of every SPIR-V module.
const SPIRV_MAGIC uint32 = 0x07230203

type ShaderModule struct {
	obj    *object
	device *Device
}

type ShaderModuleCreateInfo struct {
	Code []byte
}

func (device *Device) CreateShaderModule(createInfo *ShaderModuleCreateInfo) (*ShaderModule, error) {
	if createInfo == nil {
		return nil, invalidArg("CreateShaderModule", "createInfo", "nil")
	}
	if len(createInfo.Code) == 0 {
		return nil, invalidArg("CreateShaderModule", "createInfo.Code", "empty")
	}
	if len(createInfo.Code)%4 != 0 {
		return nil, invalidArg("CreateShaderModule", "createInfo.Code", "size is not a multiple of 4")
	}
	if binary.LittleEndian.Uint32(createInfo.Code) != SPIRV_MAGIC {
		return nil, invalidArg("CreateShaderModule", "createInfo.Code", "missing SPIR-V magic number")
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreateShaderModule(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_SHADER_MODULE, result, "%d bytes of SPIR-V", len(createInfo.Code))
	}

	module := &ShaderModule{
		obj:    device.track(OBJECT_TYPE_SHADER_MODULE, handle, device.driver.DestroyShaderModule),
		device: device,
	}
	watch(module, module.obj, device.config.Finalizers)
	return module, nil
}

func (shaderModule *ShaderModule) Handle() Handle {
	if shaderModule == nil {
		return NULL_HANDLE
	}
	return shaderModule.obj.handle
}

func (shaderModule *ShaderModule) Destroyed() bool {
	return !shaderModule.obj.alive()
}

// Destroy destroys the module. Pipelines already created from it stay valid.
func (shaderModule *ShaderModule) Destroy() {
	shaderModule.obj.dispose(false)
}
