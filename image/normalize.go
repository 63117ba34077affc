package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"

	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

// ErrInvalidImage is returned when the uploaded bytes do not decode as a
// raster image. Callers treat it as a client error, not a retryable one.
var ErrInvalidImage = errors.New("invalid image")

// GetImageOrientation extracts the EXIF orientation from JPEG data using goexif library
func GetImageOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1 // Default orientation if no EXIF data or error
	}

	orientation, err := x.Get(exif.Orientation)
	if err != nil {
		return 1 // Default orientation if orientation tag not found
	}

	orientVal, err := orientation.Int(0)
	if err != nil {
		return 1 // Default orientation if value cannot be read
	}

	return orientVal
}

// CorrectImageOrientation applies the correct orientation to the image
func CorrectImageOrientation(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch orientation {
	case 2: // Flip horizontal
		newImg := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(width-1-x, y, img.At(x, y))
			}
		}
		return newImg
	case 3: // Rotate 180
		newImg := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(width-1-x, height-1-y, img.At(x, y))
			}
		}
		return newImg
	case 4: // Flip vertical
		newImg := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(x, height-1-y, img.At(x, y))
			}
		}
		return newImg
	case 6: // Rotate 90 clockwise
		newImg := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(height-1-y, x, img.At(x, y))
			}
		}
		return newImg
	case 8: // Rotate 90 counter-clockwise
		newImg := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				newImg.Set(y, width-1-x, img.At(x, y))
			}
		}
		return newImg
	default: // Orientation 1 or unknown
		return img
	}
}

// Normalize decodes an uploaded image and re-encodes it as a baseline JPEG
// for the inference call. The raster is converted to RGB and, when the JPEG
// carries an EXIF orientation tag, rotated upright. The pixel grid is never
// resampled.
func Normalize(imageData []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	orientation := GetImageOrientation(imageData)
	if orientation != 1 {
		img = CorrectImageOrientation(img, orientation)
		log.Infof("Applied orientation correction: %d", orientation)
	}

	// Flatten to RGB regardless of the source color model (gray, paletted,
	// CMYK, NRGBA) so the wire payload is always a plain color JPEG.
	bounds := img.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgb, rgb.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	log.Debugf("Image normalized: %s %dx%d, %d bytes -> %d bytes",
		format, bounds.Dx(), bounds.Dy(), len(imageData), buf.Len())

	return buf.Bytes(), nil
}
