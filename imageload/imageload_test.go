package imageload_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	vk "github.com/NOT-REAL-GAMES/vklife"
	"github.com/NOT-REAL-GAMES/vklife/drivertest"
	"github.com/NOT-REAL-GAMES/vklife/imageload"
)

// gradient returns an opaque image whose red and green channels encode the
// pixel position.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: 255})
		}
	}
	return img
}

func encode(t *testing.T, enc func(io.Writer, image.Image) error, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, enc(&buf, img))
	return buf.Bytes()
}

func newDevice(t *testing.T) (*drivertest.Driver, *vk.Device) {
	t.Helper()

	drv := drivertest.New()
	instance, err := vk.CreateInstance(drv, &vk.InstanceCreateInfo{})
	require.NoError(t, err)
	t.Cleanup(instance.Destroy)

	physical, err := instance.EnumeratePhysicalDevices()
	require.NoError(t, err)
	require.NotEmpty(t, physical)

	device, err := physical[0].CreateDevice(&vk.DeviceCreateInfo{
		QueueCreateInfos: []vk.DeviceQueueCreateInfo{
			{QueueFamilyIndex: 0, QueuePriorities: []float32{1}},
		},
	})
	require.NoError(t, err)
	t.Cleanup(device.Destroy)
	return drv, device
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		enc  func(io.Writer, image.Image) error
	}{
		{name: "png", enc: png.Encode},
		{name: "bmp", enc: bmp.Encode},
		{name: "tiff", enc: func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encode(t, tt.enc, gradient(4, 3))

			px, err := imageload.Decode(bytes.NewReader(data))
			require.NoError(t, err)

			assert.Equal(t, uint32(4), px.Width)
			assert.Equal(t, uint32(3), px.Height)
			assert.Equal(t, vk.FORMAT_R8G8B8A8_UNORM, px.Format())
			assert.Equal(t, vk.Extent3D{Width: 4, Height: 3, Depth: 1}, px.Extent())
			require.Len(t, px.Data, int(px.Size()))

			assert.Equal(t, []byte{0, 0, 7, 255}, px.Data[0:4])
			last := len(px.Data) - 4
			assert.Equal(t, []byte{30, 20, 7, 255}, px.Data[last:])
		})
	}
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	_, err := imageload.Decode(strings.NewReader("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestDecodeMaxExtent(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		limit         uint32
		wantW, wantH  uint32
	}{
		{name: "landscape", width: 200, height: 100, limit: 50, wantW: 50, wantH: 25},
		{name: "portrait", width: 100, height: 200, limit: 50, wantW: 25, wantH: 50},
		{name: "thin", width: 400, height: 2, limit: 100, wantW: 100, wantH: 1},
		{name: "within limit", width: 20, height: 10, limit: 50, wantW: 20, wantH: 10},
		{name: "no limit", width: 200, height: 100, wantW: 200, wantH: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encode(t, png.Encode, gradient(tt.width, tt.height))

			px, err := imageload.DecodeWithOptions(bytes.NewReader(data), imageload.DecodeOptions{MaxExtent: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, px.Width)
			assert.Equal(t, tt.wantH, px.Height)
			assert.Len(t, px.Data, int(tt.wantW*tt.wantH*4))
		})
	}
}

func TestDecodeAll(t *testing.T) {
	var readers []io.Reader
	for i := 1; i <= 5; i++ {
		readers = append(readers, bytes.NewReader(encode(t, png.Encode, gradient(i, 2))))
	}

	pixels, err := imageload.DecodeAll(context.Background(), readers, imageload.DecodeOptions{}, 2)
	require.NoError(t, err)
	require.Len(t, pixels, 5)
	for i, px := range pixels {
		assert.Equal(t, uint32(i+1), px.Width, "results keep input order")
	}
}

func TestDecodeAllFailure(t *testing.T) {
	readers := []io.Reader{
		bytes.NewReader(encode(t, png.Encode, gradient(2, 2))),
		strings.NewReader("broken"),
	}

	_, err := imageload.DecodeAll(context.Background(), readers, imageload.DecodeOptions{}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")
	assert.ErrorIs(t, err, image.ErrFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = imageload.DecodeAll(ctx, readers[:1], imageload.DecodeOptions{}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStagingBuffer(t *testing.T) {
	drv, device := newDevice(t)

	px, err := imageload.Decode(bytes.NewReader(encode(t, png.Encode, gradient(16, 16))))
	require.NoError(t, err)

	buffer, memory, err := imageload.NewStagingBuffer(device, px)
	require.NoError(t, err)
	defer buffer.Destroy()
	defer memory.Destroy()

	assert.Equal(t, px.Data, drv.Memory(memory.Handle())[:px.Size()])
	drv.AssertNoViolations(t)
}

func TestNewStagingBufferErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, device := newDevice(t)

		_, _, err := imageload.NewStagingBuffer(device, &imageload.Pixels{})
		assert.ErrorIs(t, err, imageload.ErrEmpty)
	})

	t.Run("allocation smaller than pixels", func(t *testing.T) {
		// The fake driver always reports 4096 byte buffer requirements.
		drv, device := newDevice(t)
		px := &imageload.Pixels{Width: 64, Height: 64, Data: make([]byte, 64*64*4)}

		_, _, err := imageload.NewStagingBuffer(device, px)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "do not fit")
		assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_BUFFER))
		assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_DEVICE_MEMORY))
	})

	t.Run("allocation failure", func(t *testing.T) {
		drv, device := newDevice(t)
		drv.FailOnce("AllocateMemory", vk.OUT_OF_DEVICE_MEMORY)
		px := &imageload.Pixels{Width: 2, Height: 2, Data: make([]byte, 16)}

		_, _, err := imageload.NewStagingBuffer(device, px)
		var creation *vk.CreationError
		require.ErrorAs(t, err, &creation)
		assert.Equal(t, vk.OBJECT_TYPE_DEVICE_MEMORY, creation.Object)
		assert.ErrorIs(t, err, vk.OUT_OF_DEVICE_MEMORY)
		assert.Zero(t, drv.LiveCount(vk.OBJECT_TYPE_BUFFER))
	})
}
