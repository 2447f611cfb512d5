package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"

	"github.com/go-vgo/robotgo"
	"github.com/otiai10/gosseract"
)

// OCRManager captures a screen region and extracts its text. Captures
// are serialized; areas share one tesseract client.
type OCRManager struct {
	language string
	scale    float64
	invert   bool
	log      *LogManager

	mutex  sync.Mutex
	client *gosseract.Client
}

// NewOCRManager creates an OCR manager from the configuration
func NewOCRManager(config *Config, log *LogManager) (*OCRManager, error) {
	if config.OCR.TesseractPath != "" {
		os.Setenv("TESSDATA_PREFIX", config.OCR.TesseractPath)
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(config.OCR.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language %q: %v", config.OCR.Language, err)
	}

	return &OCRManager{
		language: config.OCR.Language,
		scale:    config.OCR.Scale,
		invert:   config.OCR.Invert,
		log:      log,
		client:   client,
	}, nil
}

// ReadRegion captures the given screen rectangle and returns the
// recognized text, cleaned for speech
func (om *OCRManager) ReadRegion(x, y, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid capture region %dx%d", width, height)
	}

	img, err := robotgo.CaptureImg(x, y, width, height)
	if err != nil {
		return "", fmt.Errorf("screen capture failed: %v", err)
	}

	img = om.preprocess(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode capture: %v", err)
	}

	om.mutex.Lock()
	defer om.mutex.Unlock()

	if err := om.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to load capture into tesseract: %v", err)
	}

	text, err := om.client.Text()
	if err != nil {
		return "", fmt.Errorf("text recognition failed: %v", err)
	}

	return cleanOCRText(text), nil
}

// Close releases the tesseract client
func (om *OCRManager) Close() {
	om.mutex.Lock()
	defer om.mutex.Unlock()

	if om.client != nil {
		om.client.Close()
		om.client = nil
	}
}

// preprocess applies the configured scaling and inversion. Game text is
// often small and light-on-dark; both transforms raise recognition
// quality considerably.
func (om *OCRManager) preprocess(img image.Image) image.Image {
	if om.scale > 1.0 {
		img = scaleImage(img, om.scale)
	}
	if om.invert {
		img = invertImage(img)
	}
	return img
}

// scaleImage enlarges img by factor using nearest-neighbor sampling
func scaleImage(img image.Image, factor float64) image.Image {
	bounds := img.Bounds()
	width := int(float64(bounds.Dx()) * factor)
	height := int(float64(bounds.Dy()) * factor)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + int(float64(y)/factor)
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + int(float64(x)/factor)
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// invertImage flips every pixel so light-on-dark text becomes
// dark-on-light, which tesseract reads more reliably
func invertImage(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA64{
				R: uint16(0xFFFF - r),
				G: uint16(0xFFFF - g),
				B: uint16(0xFFFF - b),
				A: uint16(a),
			})
		}
	}
	return dst
}

// cleanOCRText normalizes recognized text into a single speakable line
func cleanOCRText(text string) string {
	lines := strings.Split(text, "\n")
	var parts []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
