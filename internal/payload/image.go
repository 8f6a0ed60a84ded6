package payload

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// FileImageReader decodes PNG, JPEG and GIF files relative to Root.
//
// Grayscale images produce one channel, opaque colour images three (RGB)
// and images with any transparency four (RGBA). Values are scaled to [0, 1].
type FileImageReader struct {
	Root string
}

// NewImageReader returns a reader resolving paths against root.
func NewImageReader(root string) *FileImageReader {
	return &FileImageReader{Root: root}
}

// Read decodes the image at path into a channel-first tensor.
func (r *FileImageReader) Read(path string) (*Tensor, error) {
	p, err := resolve(r.Root, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return ToTensor(img), nil
}

// ToTensor converts a decoded image to a channel-first tensor.
func ToTensor(img image.Image) *Tensor {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		t := NewTensor(1, h, w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				t.Set(0, y, x, float32(g.Y)/0xffff)
			}
		}
		return t
	}

	channels := 3
	if !opaque(img) {
		channels = 4
	}
	t := NewTensor(channels, h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			t.Set(0, y, x, float32(c.R)/0xffff)
			t.Set(1, y, x, float32(c.G)/0xffff)
			t.Set(2, y, x, float32(c.B)/0xffff)
			if channels == 4 {
				t.Set(3, y, x, float32(c.A)/0xffff)
			}
		}
	}
	return t
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
