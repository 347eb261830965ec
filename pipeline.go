package vklife

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type PipelineLayout struct {
	obj    *object
	device *Device
}

type Pipeline struct {
	obj       *object
	device    *Device
	bindPoint PipelineBindPoint
}

type PushConstantRange struct {
	StageFlags ShaderStageFlags
	Offset     uint32
	Size       uint32
}

type PipelineLayoutCreateInfo struct {
	SetLayouts         []*DescriptorSetLayout
	PushConstantRanges []PushConstantRange
}

func (info *PipelineLayoutCreateInfo) validate() error {
	var err error
	for i, layout := range info.SetLayouts {
		if layout == nil {
			err = multierr.Append(err, fmt.Errorf("SetLayouts[%d] is nil", i))
		}
	}
	for i, r := range info.PushConstantRanges {
		if r.StageFlags == 0 {
			err = multierr.Append(err, fmt.Errorf("PushConstantRanges[%d]: no stages", i))
		}
		if r.Size == 0 || r.Size%4 != 0 || r.Offset%4 != 0 {
			err = multierr.Append(err, fmt.Errorf("PushConstantRanges[%d]: offset %d size %d not a non-empty multiple of 4", i, r.Offset, r.Size))
		}
	}
	return err
}

// Pipeline Layout
func (device *Device) CreatePipelineLayout(createInfo *PipelineLayoutCreateInfo) (*PipelineLayout, error) {
	if createInfo == nil {
		return nil, invalidArg("CreatePipelineLayout", "createInfo", "nil")
	}
	if err := createInfo.validate(); err != nil {
		return nil, invalidArg("CreatePipelineLayout", "createInfo", err.Error())
	}
	for _, layout := range createInfo.SetLayouts {
		if !layout.obj.alive() {
			return nil, ErrDestroyed
		}
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handle, result := device.driver.CreatePipelineLayout(device.obj.handle, createInfo)
	if result != SUCCESS {
		return nil, creationError(OBJECT_TYPE_PIPELINE_LAYOUT, result, "%d set layout(s)", len(createInfo.SetLayouts))
	}

	layout := &PipelineLayout{
		obj:    device.track(OBJECT_TYPE_PIPELINE_LAYOUT, handle, device.driver.DestroyPipelineLayout),
		device: device,
	}
	watch(layout, layout.obj, device.config.Finalizers)
	return layout, nil
}

func (layout *PipelineLayout) Handle() Handle {
	if layout == nil {
		return NULL_HANDLE
	}
	return layout.obj.handle
}

func (layout *PipelineLayout) record() *object {
	if layout == nil {
		return nil
	}
	return layout.obj
}

func (layout *PipelineLayout) Destroyed() bool {
	return !layout.obj.alive()
}

func (layout *PipelineLayout) Destroy() {
	layout.obj.dispose(false)
}

type PipelineShaderStageCreateInfo struct {
	Stage  ShaderStageFlags
	Module *ShaderModule
	Name   string
}

type ComputePipelineCreateInfo struct {
	Stage  PipelineShaderStageCreateInfo
	Layout *PipelineLayout
}

func (info *ComputePipelineCreateInfo) validate(i int) error {
	var err error
	if info.Stage.Stage != SHADER_STAGE_COMPUTE_BIT {
		err = multierr.Append(err, fmt.Errorf("createInfos[%d].Stage.Stage is not SHADER_STAGE_COMPUTE_BIT", i))
	}
	if info.Stage.Module == nil {
		err = multierr.Append(err, fmt.Errorf("createInfos[%d].Stage.Module is nil", i))
	}
	if info.Stage.Name == "" {
		err = multierr.Append(err, fmt.Errorf("createInfos[%d].Stage.Name is empty", i))
	}
	if info.Layout == nil {
		err = multierr.Append(err, fmt.Errorf("createInfos[%d].Layout is nil", i))
	}
	return err
}

// CreateComputePipelines creates one pipeline per create info in a single
// native call. When the call fails, every pipeline it did create is destroyed
// before the error is returned.
func (device *Device) CreateComputePipelines(createInfos []ComputePipelineCreateInfo) ([]*Pipeline, error) {
	if len(createInfos) == 0 {
		return nil, invalidArg("CreateComputePipelines", "createInfos", "empty")
	}
	var err error
	for i := range createInfos {
		err = multierr.Append(err, createInfos[i].validate(i))
	}
	if err != nil {
		return nil, invalidArg("CreateComputePipelines", "createInfos", err.Error())
	}
	for _, info := range createInfos {
		if !info.Stage.Module.obj.alive() || !info.Layout.obj.alive() {
			return nil, ErrDestroyed
		}
	}
	if !device.obj.alive() {
		return nil, ErrDestroyed
	}

	handles, result := device.driver.CreateComputePipelines(device.obj.handle, createInfos)
	if result != SUCCESS {
		destroyed := 0
		for _, h := range handles {
			if h != NULL_HANDLE {
				device.driver.DestroyPipeline(device.obj.handle, h)
				destroyed++
			}
		}
		if destroyed > 0 {
			device.log.Debug("destroyed partially created pipelines", zap.Int("count", destroyed))
		}
		return nil, creationError(OBJECT_TYPE_PIPELINE, result, "%d compute pipeline(s)", len(createInfos))
	}

	pipelines := make([]*Pipeline, len(handles))
	for i, h := range handles {
		pipeline := &Pipeline{
			obj:       device.track(OBJECT_TYPE_PIPELINE, h, device.driver.DestroyPipeline),
			device:    device,
			bindPoint: PIPELINE_BIND_POINT_COMPUTE,
		}
		watch(pipeline, pipeline.obj, device.config.Finalizers)
		pipelines[i] = pipeline
	}
	return pipelines, nil
}

func (pipeline *Pipeline) Handle() Handle {
	if pipeline == nil {
		return NULL_HANDLE
	}
	return pipeline.obj.handle
}

func (pipeline *Pipeline) record() *object {
	if pipeline == nil {
		return nil
	}
	return pipeline.obj
}

func (pipeline *Pipeline) BindPoint() PipelineBindPoint {
	return pipeline.bindPoint
}

func (pipeline *Pipeline) Destroyed() bool {
	return !pipeline.obj.alive()
}

func (pipeline *Pipeline) Destroy() {
	pipeline.obj.dispose(false)
}
