// Package preview renders print jobs as the printer would receive them.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/mzyy94/niimprint/internal/niim"
)

// DefaultDPI is the head resolution of most Niimbot models.
const DefaultDPI = 203

// Bitmap encodes r into printer lines and decodes them back into a 1-bit
// paletted image, so the result shows exactly the dots that will print.
func Bitmap(r *niim.Raster) (*image.Paletted, error) {
	enc, err := niim.NewLineEncoder(r)
	if err != nil {
		return nil, err
	}
	dst := image.NewPaletted(image.Rect(0, 0, r.Width, r.Height), color.Palette{color.White, color.Black})
	for line := range enc.Lines() {
		row, bits, err := niim.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("decode line: %w", err)
		}
		dstRow := dst.Pix[row*dst.Stride : row*dst.Stride+r.Width]
		for x := range dstRow {
			if bits[x/8]&(0x80>>(x%8)) != 0 {
				dstRow[x] = 1 // black
			}
		}
	}
	return dst, nil
}

// WritePDF renders r to a PDF file.
func WritePDF(r *niim.Raster, dpi int, outputPath string) error {
	data, err := GeneratePDF(r, dpi)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}

// GeneratePDF renders r as a one-page PDF sized to the label at dpi.
func GeneratePDF(r *niim.Raster, dpi int) ([]byte, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	bmp, err := Bitmap(r)
	if err != nil {
		return nil, err
	}
	var img bytes.Buffer
	if err := png.Encode(&img, bmp); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}

	widthMM := float64(r.Width) / float64(dpi) * 25.4
	heightMM := float64(r.Height) / float64(dpi) * 25.4

	pdf := fpdf.New("P", "mm", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: widthMM, Ht: heightMM})
	pdf.RegisterImageOptionsReader("label", fpdf.ImageOptions{ImageType: "PNG"}, &img)
	pdf.ImageOptions("label", 0, 0, widthMM, heightMM, false, fpdf.ImageOptions{}, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return out.Bytes(), nil
}
