package vklife

import "fmt"

type ClearColorValue struct {
	Float32 [4]float32
}

// ClearColorImage fills an image with a constant color value
func (cmd *CommandBuffer) ClearColorImage(
	image *Image,
	imageLayout ImageLayout,
	color ClearColorValue,
	ranges []ImageSubresourceRange,
) {
	const op = "CommandBuffer.ClearColorImage"
	if !cmd.recording(op) {
		return
	}
	if err := checkRef(op, "image", image.record()); err != nil {
		cmd.fail(err)
		return
	}
	if imageLayout != IMAGE_LAYOUT_GENERAL && imageLayout != IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL {
		cmd.fail(invalidArg(op, "imageLayout", "must be GENERAL or TRANSFER_DST_OPTIMAL"))
		return
	}
	if len(ranges) == 0 {
		cmd.fail(invalidArg(op, "ranges", "empty"))
		return
	}
	for i, r := range ranges {
		if r.AspectMask != IMAGE_ASPECT_COLOR_BIT {
			cmd.fail(invalidArg(op, fmt.Sprintf("ranges[%d].AspectMask", i), "must be IMAGE_ASPECT_COLOR_BIT"))
			return
		}
	}
	cmd.pool.device.driver.CmdClearColorImage(cmd.obj.handle, image.obj.handle, imageLayout, color, ranges)
}
