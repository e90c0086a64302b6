// Package raster turns image files into niim rasters.
package raster

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"

	"github.com/mzyy94/niimprint/internal/niim"
)

// Decode reads a PNG, JPEG or BMP image. A positive width scales the
// image to that many dots, keeping the aspect ratio.
func Decode(r io.Reader, width int) (*niim.Raster, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", niim.ErrInvalidArgument, err)
	}
	if width > 0 && width != img.Bounds().Dx() {
		img = Scale(img, width)
	}
	return FromImage(img), nil
}

// Load decodes the image file at path.
func Load(path string, width int) (*niim.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, width)
}

// Scale resizes img to width, keeping the aspect ratio.
func Scale(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := max(1, (b.Dy()*width+b.Dx()/2)/b.Dx())
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// FromImage copies img into a non-premultiplied RGBA raster.
func FromImage(img image.Image) *niim.Raster {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) || nrgba.Stride != 4*b.Dx() {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return &niim.Raster{Pix: nrgba.Pix, Width: b.Dx(), Height: b.Dy()}
}
