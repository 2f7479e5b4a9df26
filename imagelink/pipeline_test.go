package imagelink

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/greut/imagelink/raster"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()

	images := t.TempDir()

	halves := createImage(100, 50, red)
	for y := 0; y < 50; y++ {
		for x := 50; x < 100; x++ {
			halves.Set(x, y, blue)
		}
	}

	writeImage(t, images, "photo.jpg", createImage(100, 50, color.White))
	writeImage(t, images, "photo.png", createImage(100, 50, color.White))
	writeImage(t, images, "halves.png", halves)
	writeImage(t, images, "blue.png", createImage(200, 100, blue))
	writeImage(t, images, "clear.png", createImage(10, 10, color.Transparent))
	writeImage(t, images, "mark.png", createImage(30, 30, red))
	writeImage(t, images, "anim.gif", createImage(40, 20, color.White))
	writeFile(t, images, "broken.jpg", []byte("garbage"))

	// png bytes behind a jpeg extension
	writeImage(t, images, "disguised.png", createImage(10, 10, red))
	data, err := os.ReadFile(filepath.Join(images, "disguised.png"))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, images, "disguised.jpg", data)

	return NewRenderer(images, raster.NewImaging())
}

func render(t *testing.T, rd *Renderer, source string) (*Rendered, image.Image) {
	t.Helper()

	r, err := NewRequest(source)
	if err != nil {
		t.Fatal(err)
	}

	rendered, err := rd.Render(context.Background(), r)
	if err != nil {
		t.Fatalf("Render(%#v): %s", source, err)
	}

	img, _, err := image.Decode(bytes.NewReader(rendered.Buffer))
	if err != nil {
		t.Fatalf("Render(%#v) is not an image: %s", source, err)
	}
	return rendered, img
}

func TestRenderSizes(t *testing.T) {
	rd := newRenderer(t)

	var tests = []struct {
		source      string
		width       int
		height      int
		contentType string
	}{
		{"photo__w:40.jpg", 40, 20, "image/jpeg"},
		{"photo__h:10.jpg", 20, 10, "image/jpeg"},
		{"photo__w:30-h:30.png", 30, 30, "image/png"},
		{"photo__w:30-h:30-s:c.png", 30, 30, "image/png"},
		{"photo__w:30-h:60-s:c-a:tl.jpg", 30, 60, "image/jpeg"},
		{"photo__w:100-r:90.png", 50, 100, "image/png"},
		{"photo__w:40-q:10.jpg", 40, 20, "image/jpeg"},
		{"anim__w:20.gif", 20, 10, "image/gif"},
	}

	for _, test := range tests {
		rendered, img := render(t, rd, test.source)

		if size := img.Bounds().Size(); size.X != test.width || size.Y != test.height {
			t.Errorf("size of %#v: got %v want %dx%d", test.source, size, test.width, test.height)
		}
		if rendered.Size != (Size{test.width, test.height}) {
			t.Errorf("reported size of %#v: got %v want %dx%d", test.source, rendered.Size, test.width, test.height)
		}
		if rendered.ContentType != test.contentType {
			t.Errorf("content type of %#v: got %#v want %#v", test.source, rendered.ContentType, test.contentType)
		}
		if rendered.ModTime.IsZero() {
			t.Errorf("%#v has no modification time", test.source)
		}
	}
}

func TestRenderCutAlign(t *testing.T) {
	rd := newRenderer(t)

	var tests = []struct {
		source string
		color  color.NRGBA
	}{
		{"halves__w:50-h:50-s:c-a:tl.png", red},
		{"halves__w:50-h:50-s:c-a:ml.png", red},
		{"halves__w:50-h:50-s:c-a:tr.png", blue},
		{"halves__w:50-h:50-s:c-a:br.png", blue},
	}

	for _, test := range tests {
		_, img := render(t, rd, test.source)

		c := color.NRGBAModel.Convert(img.At(25, 25)).(color.NRGBA)
		if c != test.color {
			t.Errorf("center of %#v: got %v want %v", test.source, c, test.color)
		}
	}
}

func TestRenderKeepsAlpha(t *testing.T) {
	rd := newRenderer(t)

	_, img := render(t, rd, "clear__w:10.png")
	if _, _, _, a := img.At(5, 5).RGBA(); a != 0 {
		t.Errorf("png transparency was lost: got alpha %v", a)
	}

	_, img = render(t, rd, "photo__w:100-r:45.png")
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("png corners should be transparent after rotation: got alpha %v", a)
	}

	_, img = render(t, rd, "photo__w:100-r:45.jpg")
	if r, g, b, _ := img.At(0, 0).RGBA(); r > 0x1000 || g > 0x1000 || b > 0x1000 {
		t.Errorf("jpeg corners should be black after rotation: got %v %v %v", r, g, b)
	}
}

func TestRenderWatermark(t *testing.T) {
	rd := newRenderer(t)

	r, err := NewRequest("blue__w:200.png")
	if err != nil {
		t.Fatal(err)
	}
	r = r.WithWatermark(Watermark{Enabled: true, Source: "mark.png"})

	rendered, err := rd.Render(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}

	img, _, err := image.Decode(bytes.NewReader(rendered.Buffer))
	if err != nil {
		t.Fatal(err)
	}

	// a 67x67 watermark 5 pixels away from the bottom right corner
	var tests = []struct {
		x, y  int
		color color.NRGBA
	}{
		{10, 10, blue},
		{161, 61, red},
		{130, 30, red},
		{193, 93, red},
		{196, 96, blue},
		{125, 61, blue},
	}

	for _, test := range tests {
		c := color.NRGBAModel.Convert(img.At(test.x, test.y)).(color.NRGBA)
		if c != test.color {
			t.Errorf("pixel %d,%d: got %v want %v", test.x, test.y, c, test.color)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	rd := newRenderer(t)

	var tests = []struct {
		source    string
		watermark Watermark
		err       error
	}{
		{"missing__w:10.jpg", Watermark{}, ErrSourceNotFound},
		{"photo.jpg", Watermark{}, ErrMissingDimension},
		{"photo__w:10-s:c.jpg", Watermark{}, ErrMissingDimension},
		{"broken__w:10.jpg", Watermark{}, ErrDecode},
		{"disguised__w:10.jpg", Watermark{}, ErrDecode},
		{"broken__w:10-h:10-s:c-a:zz.jpg", Watermark{}, ErrInvalidAlign},
		{"photo__w:10-q:200.jpg", Watermark{}, ErrInvalidOption},
		{"photo__w:100000-h:100000.png", Watermark{}, ErrInvalidOption},
		{"photo__w:3000000000-h:3000000000.png", Watermark{}, ErrInvalidOption},
		{"photo__w:9000000000000000000.png", Watermark{}, ErrInvalidOption},
		{"photo__h:9000.jpg", Watermark{}, ErrInvalidOption},
		{"photo__w:10.jpg", Watermark{Enabled: true}, ErrWatermarkSourceMissing},
		{"photo__w:10.jpg", Watermark{Enabled: true, Source: "nothing.png"}, ErrSourceNotFound},
	}

	for _, test := range tests {
		r, err := NewRequest(test.source)
		if err != nil {
			t.Fatal(err)
		}

		rendered, err := rd.Render(context.Background(), r.WithWatermark(test.watermark))
		if !errors.Is(err, test.err) {
			t.Errorf("Render(%#v): got %v want %v", test.source, err, test.err)
		}
		if rendered != nil {
			t.Errorf("Render(%#v) returned an image along with an error", test.source)
		}
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	rd := newRenderer(t)

	first, _ := render(t, rd, "halves__w:40-h:40-s:c-a:br.png")
	second, _ := render(t, rd, "halves__w:40-h:40-s:c-a:br.png")

	if !bytes.Equal(first.Buffer, second.Buffer) {
		t.Errorf("rendering twice gave different images")
	}
}

func TestRenderCancelled(t *testing.T) {
	rd := newRenderer(t)

	r, err := NewRequest("photo__w:10.jpg")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rd.Render(ctx, r); !errors.Is(err, context.Canceled) {
		t.Errorf("Render with a cancelled context: got %v want %v", err, context.Canceled)
	}
}

func TestDimensions(t *testing.T) {
	rd := newRenderer(t)

	r, err := NewRequest("photo__w:10.jpg")
	if err != nil {
		t.Fatal(err)
	}

	size, modTime, err := rd.Dimensions(r)
	if err != nil {
		t.Fatal(err)
	}
	if size != (Size{100, 50}) {
		t.Errorf("Dimensions: got %v want 100x50", size)
	}
	if modTime.IsZero() {
		t.Errorf("Dimensions has no modification time")
	}

	r, _ = NewRequest("broken.jpg")
	if _, _, err := rd.Dimensions(r); !errors.Is(err, ErrDecode) {
		t.Errorf("Dimensions of a broken file: got %v want %v", err, ErrDecode)
	}
}

func TestRenderLimits(t *testing.T) {
	rd := newRenderer(t)
	rd.Limits = Limits{MaxWidth: 100, MaxHeight: 100, MaxArea: 5000}

	var tests = []struct {
		source string
		err    error
	}{
		{"photo__w:80.png", nil},
		{"photo__w:100-h:50.png", nil},
		{"photo__w:101.png", ErrInvalidOption},
		{"photo__h:60.png", ErrInvalidOption},
		{"photo__w:80-h:80.png", ErrInvalidOption},
		{"photo__w:60-h:60-s:c.png", ErrInvalidOption},
		{"photo__w:40-h:40-s:c.png", nil},
	}

	for _, test := range tests {
		r, err := NewRequest(test.source)
		if err != nil {
			t.Fatal(err)
		}

		_, err = rd.Render(context.Background(), r)
		if test.err == nil && err != nil {
			t.Errorf("Render(%#v): unexpected error %s", test.source, err)
		} else if !errors.Is(err, test.err) {
			t.Errorf("Render(%#v): got %v want %v", test.source, err, test.err)
		}
	}
}

func TestLimitsCheck(t *testing.T) {
	var tests = []struct {
		limits        Limits
		width, height int
		fails         bool
	}{
		{Limits{}, DefaultMaxWidth, 1, false},
		{Limits{}, DefaultMaxWidth + 1, 1, true},
		{Limits{}, 1, DefaultMaxHeight + 1, true},
		{Limits{}, DefaultMaxWidth, DefaultMaxHeight, true},
		{Limits{}, 9000000000000000000, 9000000000000000000, true},
		{Limits{MaxWidth: 10, MaxHeight: 10, MaxArea: 50}, 10, 5, false},
		{Limits{MaxWidth: 10, MaxHeight: 10, MaxArea: 50}, 10, 6, true},
	}

	for _, test := range tests {
		err := test.limits.Check(test.width, test.height)
		if test.fails && !errors.Is(err, ErrInvalidOption) {
			t.Errorf("Check(%d, %d) with %v: got %v want %v", test.width, test.height, test.limits, err, ErrInvalidOption)
		} else if !test.fails && err != nil {
			t.Errorf("Check(%d, %d) with %v: unexpected error %s", test.width, test.height, test.limits, err)
		}
	}
}
