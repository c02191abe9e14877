package extract

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func solid(r image.Rectangle, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(r)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// imagePixels serves the same image for both access paths.
type imagePixels struct {
	img image.Image
	err error
}

func (p imagePixels) Composite() (image.Image, error) { return p.img, p.err }
func (p imagePixels) Raster() (image.Image, error)    { return p.img, p.err }

// panicPixels simulates a reader that blows up mid-render.
type panicPixels struct{}

func (panicPixels) Composite() (image.Image, error) { panic("corrupt layer") }
func (panicPixels) Raster() (image.Image, error)    { panic("corrupt layer") }

func layer(name string, r image.Rectangle, c color.NRGBA) *Node {
	return &Node{
		Name:      name,
		Visible:   true,
		Opacity:   255,
		BlendMode: "normal",
		Rect:      r,
		Pixels:    imagePixels{img: solid(r, c)},
	}
}

func group(name string, children ...*Node) *Node {
	return &Node{Name: name, Group: true, Visible: true, Opacity: 255, BlendMode: "pass through", Children: children}
}

// oraFixture is the stack.xml of the test document, listed top to bottom.
const oraFixture = `<?xml version="1.0" encoding="UTF-8"?>
<image version="0.0.3" w="8" h="8">
  <stack>
    <stack name="口">
      <layer name="*あは" src="data/aha.png" x="3" y="4" visibility="hidden"/>
      <layer name="*ほう" src="data/hou.png" x="3" y="4" opacity="0.5"/>
    </stack>
    <layer name="!base body" src="data/body.png" x="2" y="2"/>
    <layer name="empty" src="data/empty.png" x="0" y="0"/>
  </stack>
</image>
`

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type archiveFile struct {
	name string
	data []byte
}

// writeORA writes the fixture document and returns its path.
func writeORA(t *testing.T) string {
	t.Helper()
	return writeArchive(t, oraFixture, []archiveFile{
		{"data/aha.png", encodePNG(t, solid(image.Rect(0, 0, 2, 1), green))},
		{"data/hou.png", encodePNG(t, solid(image.Rect(0, 0, 2, 1), blue))},
		{"data/body.png", encodePNG(t, solid(image.Rect(0, 0, 4, 4), red))},
		{"data/empty.png", encodePNG(t, image.NewNRGBA(image.Rect(0, 0, 8, 8)))},
	})
}

// writeArchive writes an ORA container holding stack and files.
func writeArchive(t *testing.T, stack string, files []archiveFile) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files = append([]archiveFile{
		{"mimetype", []byte(oraMimeType)},
		{"stack.xml", []byte(stack)},
	}, files...)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: zip.Store})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "fixture.ora")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
