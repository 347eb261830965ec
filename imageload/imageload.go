// Package imageload decodes images into tightly packed RGBA8 pixels and
// uploads them into host-visible device memory.
//
// PNG, JPEG, GIF, BMP, TIFF and WebP are registered with the image package.
package imageload

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

// ErrEmpty is returned for images without pixels.
var ErrEmpty = errors.New("imageload: empty image")

// Pixels is a decoded image in FORMAT_R8G8B8A8_UNORM layout, rows packed
// without padding.
type Pixels struct {
	Width  uint32
	Height uint32
	Data   []byte
}

func (px *Pixels) Format() vk.Format {
	return vk.FORMAT_R8G8B8A8_UNORM
}

func (px *Pixels) Extent() vk.Extent3D {
	return vk.Extent3D{Width: px.Width, Height: px.Height, Depth: 1}
}

// Size is the byte size of Data.
func (px *Pixels) Size() uint64 {
	return uint64(px.Width) * uint64(px.Height) * 4
}

// DecodeOptions controls Decode. The zero value decodes at full size.
type DecodeOptions struct {
	// MaxExtent bounds the larger side of the result. Bigger images are
	// downsampled preserving the aspect ratio. Zero means no limit.
	MaxExtent uint32
}

// Decode reads an image in any registered format.
func Decode(r io.Reader) (*Pixels, error) {
	return DecodeWithOptions(r, DecodeOptions{})
}

func DecodeWithOptions(r io.Reader, opts DecodeOptions) (*Pixels, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imageload: decode: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, ErrEmpty
	}

	w, h := fit(bounds.Dx(), bounds.Dy(), int(opts.MaxExtent))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	}

	vk.Logger().Debug("decoded image",
		zap.String("format", format),
		zap.Int("srcWidth", bounds.Dx()),
		zap.Int("srcHeight", bounds.Dy()),
		zap.Int("width", w),
		zap.Int("height", h),
	)

	return &Pixels{
		Width:  uint32(w),
		Height: uint32(h),
		Data:   dst.Pix,
	}, nil
}

// DecodeAll decodes every reader concurrently, at most limit at a time, and
// returns the results in input order. A limit of zero or less means one
// goroutine per reader. The first error cancels the remaining decodes.
func DecodeAll(ctx context.Context, readers []io.Reader, opts DecodeOptions, limit int) ([]*Pixels, error) {
	out := make([]*Pixels, len(readers))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, r := range readers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			px, err := DecodeWithOptions(r, opts)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			out[i] = px
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fit scales w and h down so that neither exceeds limit.
func fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// Upload copies px into the start of memory, which must be host visible and
// at least px.Size() bytes.
func Upload(memory *vk.DeviceMemory, px *Pixels) error {
	if memory == nil || px == nil {
		return errors.New("imageload: nil memory or pixels")
	}
	if px.Size() > memory.Size() {
		return fmt.Errorf("imageload: %d bytes do not fit in %d byte allocation", px.Size(), memory.Size())
	}
	return memory.Upload(px.Data)
}

// NewStagingBuffer creates a host-visible transfer source buffer holding px.
// Nothing stays allocated when an error is returned.
func NewStagingBuffer(device *vk.Device, px *Pixels) (*vk.Buffer, *vk.DeviceMemory, error) {
	if px == nil || px.Size() == 0 {
		return nil, nil, ErrEmpty
	}

	buffer, memory, err := device.CreateBufferWithMemory(
		px.Size(),
		vk.BUFFER_USAGE_TRANSFER_SRC_BIT,
		vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT|vk.MEMORY_PROPERTY_HOST_COHERENT_BIT,
	)
	if err != nil {
		return nil, nil, err
	}

	if err := Upload(memory, px); err != nil {
		buffer.Destroy()
		memory.Destroy()
		return nil, nil, err
	}
	return buffer, memory, nil
}
