package vklife_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

func newComputeInfo(t *testing.T, device *vk.Device) vk.ComputePipelineCreateInfo {
	t.Helper()

	module, err := device.CreateShaderModule(&vk.ShaderModuleCreateInfo{Code: spirv()})
	require.NoError(t, err)
	layout, err := device.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SetLayouts: []*vk.DescriptorSetLayout{newSetLayout(t, device)},
		PushConstantRanges: []vk.PushConstantRange{
			{StageFlags: vk.SHADER_STAGE_COMPUTE_BIT, Offset: 0, Size: 16},
		},
	})
	require.NoError(t, err)

	return vk.ComputePipelineCreateInfo{
		Stage: vk.PipelineShaderStageCreateInfo{
			Stage:  vk.SHADER_STAGE_COMPUTE_BIT,
			Module: module,
			Name:   "main",
		},
		Layout: layout,
	}
}

func TestCreateComputePipelines(t *testing.T) {
	drv, device := newDevice(t)
	info := newComputeInfo(t, device)

	pipelines, err := device.CreateComputePipelines([]vk.ComputePipelineCreateInfo{info, info})
	require.NoError(t, err)
	require.Len(t, pipelines, 2)
	assert.NotEqual(t, pipelines[0].Handle(), pipelines[1].Handle())
	assert.Equal(t, vk.PIPELINE_BIND_POINT_COMPUTE, pipelines[0].BindPoint())

	// Pipelines outlive the shader module they were built from.
	info.Stage.Module.Destroy()
	assert.False(t, pipelines[0].Destroyed())

	for _, p := range pipelines {
		p.Destroy()
	}
	assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_PIPELINE))
	drv.AssertNoViolations(t)
}

func TestCreateComputePipelinesDestroysPartialResults(t *testing.T) {
	// Given a driver that creates only the first of three pipelines
	drv, device := newDevice(t)
	info := newComputeInfo(t, device)
	drv.PartialPipelines = 1
	drv.FailOnce("CreateComputePipelines", vk.OUT_OF_HOST_MEMORY)

	// When the batch is created
	pipelines, err := device.CreateComputePipelines([]vk.ComputePipelineCreateInfo{info, info, info})

	// Then the pipeline that was created is destroyed before returning
	assert.Nil(t, pipelines)
	var createErr *vk.CreationError
	require.ErrorAs(t, err, &createErr)
	assert.Equal(t, vk.OBJECT_TYPE_PIPELINE, createErr.Object)
	assert.Equal(t, 1, drv.Calls("DestroyPipeline"))
	assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_PIPELINE))
	drv.AssertNoViolations(t)
}

func TestCreatePipelineLayoutValidation(t *testing.T) {
	drv, device := newDevice(t)

	_, err := device.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SetLayouts: []*vk.DescriptorSetLayout{nil},
		PushConstantRanges: []vk.PushConstantRange{
			{StageFlags: vk.SHADER_STAGE_COMPUTE_BIT, Size: 6},
		},
	})
	var invalid *vk.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "SetLayouts[0] is nil")
	assert.Contains(t, invalid.Reason, "multiple of 4")
	assert.Zero(t, drv.Calls("CreatePipelineLayout"))

	layout := newSetLayout(t, device)
	layout.Destroy()
	_, err = device.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SetLayouts: []*vk.DescriptorSetLayout{layout},
	})
	assert.ErrorIs(t, err, vk.ErrDestroyed)
}

func TestRecordComputeDispatch(t *testing.T) {
	drv, device := newDevice(t)
	info := newComputeInfo(t, device)
	pipelines, err := device.CreateComputePipelines([]vk.ComputePipelineCreateInfo{info})
	require.NoError(t, err)

	setLayout := newSetLayout(t, device)
	descPool := newDescriptorPool(t, device, 0, 1)
	sets, err := descPool.Allocate(setLayout)
	require.NoError(t, err)

	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	cmd := buffers[0]

	require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))
	cmd.BindPipeline(vk.PIPELINE_BIND_POINT_COMPUTE, pipelines[0])
	cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_COMPUTE, info.Layout, 0, sets, nil)
	cmd.PushConstants(info.Layout, vk.SHADER_STAGE_COMPUTE_BIT, 0, make([]byte, 16))
	cmd.Dispatch(4, 4, 1)
	require.NoError(t, cmd.End())

	for _, name := range []string{"CmdBindPipeline", "CmdBindDescriptorSets", "CmdPushConstants", "CmdDispatch"} {
		assert.Equal(t, 1, drv.Calls(name), name)
	}

	drv.AssertNoViolations(t)
}

func TestBindPipelineChecksBindPoint(t *testing.T) {
	drv, device := newDevice(t)
	info := newComputeInfo(t, device)
	pipelines, err := device.CreateComputePipelines([]vk.ComputePipelineCreateInfo{info})
	require.NoError(t, err)

	pool := newCommandPool(t, device, 0)
	buffers, err := pool.Allocate(vk.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	cmd := buffers[0]

	require.NoError(t, cmd.Begin(&vk.CommandBufferBeginInfo{}))
	cmd.BindPipeline(vk.PIPELINE_BIND_POINT_GRAPHICS, pipelines[0])

	var invalid *vk.InvalidArgumentError
	assert.ErrorAs(t, cmd.End(), &invalid)
	assert.Zero(t, drv.Calls("CmdBindPipeline"))
}
