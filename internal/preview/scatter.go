package preview

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"produce-sorter/internal/clustering"
	"produce-sorter/internal/logger"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Feature vector layout: Hu_1, normalized G, normalized B.
const (
	axisSize  = 0
	axisX     = 1
	axisY     = 2
	margin    = 40
	minRadius = 2
	maxRadius = 8
)

// ImageWriter persists rendered frames.
type ImageWriter interface {
	PathFor(dir, stem string) string
	SaveImage(path string, img image.Image) error
}

// ScatterSink renders every iteration as a G vs B scatter plot, marker size
// following Hu_1, and writes it to dir.
type ScatterSink struct {
	dir    string
	width  int
	height int
	writer ImageWriter
	logger logger.Logger
}

func NewScatterSink(dir string, writer ImageWriter, log logger.Logger) *ScatterSink {
	return &ScatterSink{
		dir:    dir,
		width:  640,
		height: 640,
		writer: writer,
		logger: log,
	}
}

func (s *ScatterSink) Observe(snap clustering.Snapshot) {
	img := s.Render(snap)
	path := s.writer.PathFor(s.dir, fmt.Sprintf("attempt%02d_iter%02d", snap.Attempt, snap.Iteration))

	if err := s.writer.SaveImage(path, img); err != nil {
		s.logger.Warning("Preview", "failed to write frame", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	s.logger.Debug("Preview", "frame written", map[string]interface{}{
		"path": path,
	})
}

// Render draws one snapshot.
func (s *ScatterSink) Render(snap clustering.Snapshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	s.drawAxes(img)

	palette := Palette(len(snap.Centroids))
	lo, hi := sizeRange(snap)

	for i, pt := range snap.Points {
		if len(pt) <= axisY || i >= len(snap.Assignments) {
			continue
		}
		c := snap.Assignments[i]
		if c < 0 || c >= len(palette) {
			continue
		}
		r := minRadius + int(math.Round(normalize(pt[axisSize], lo, hi)*(maxRadius-minRadius)))
		fillCircle(img, s.project(pt[axisX], pt[axisY]), r, palette[c])
	}

	for i, c := range snap.Centroids {
		if len(c) <= axisY {
			continue
		}
		drawCross(img, s.project(c[axisX], c[axisY]), 7, color.Black)
		drawCross(img, s.project(c[axisX], c[axisY]), 5, palette[i])
	}

	s.drawLegend(img, snap, palette)

	return img
}

// project maps normalized G and B onto the plot area, B growing upwards.
func (s *ScatterSink) project(x, y float64) image.Point {
	w := float64(s.width - 2*margin)
	h := float64(s.height - 2*margin)
	return image.Point{
		X: margin + int(math.Round(clamp01(x)*w)),
		Y: s.height - margin - int(math.Round(clamp01(y)*h)),
	}
}

func (s *ScatterSink) drawAxes(img *image.RGBA) {
	origin := s.project(0, 0)
	end := s.project(1, 1)
	gray := color.RGBA{R: 120, G: 120, B: 120, A: 255}

	for x := origin.X; x <= end.X; x++ {
		img.Set(x, origin.Y, gray)
	}
	for y := end.Y; y <= origin.Y; y++ {
		img.Set(origin.X, y, gray)
	}

	drawText(img, "G", end.X-8, origin.Y+20, color.Black)
	drawText(img, "B", origin.X-20, end.Y+10, color.Black)
}

func (s *ScatterSink) drawLegend(img *image.RGBA, snap clustering.Snapshot, palette []colorful.Color) {
	drawText(img, fmt.Sprintf("attempt %d  iteration %d", snap.Attempt, snap.Iteration), margin, 20, color.Black)

	x := s.width - margin - 120
	for i := range palette {
		label := clustering.DefaultLabel(i)
		if i < len(snap.Labels) && snap.Labels[i] != "" {
			label = snap.Labels[i]
		}
		y := margin + i*16
		draw.Draw(img, image.Rect(x, y-9, x+10, y+1), image.NewUniform(palette[i]), image.Point{}, draw.Src)
		drawText(img, label, x+14, y, color.Black)
	}
}

func drawText(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func fillCircle(img *image.RGBA, center image.Point, r int, c color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.Set(center.X+dx, center.Y+dy, c)
			}
		}
	}
}

func drawCross(img *image.RGBA, center image.Point, arm int, c color.Color) {
	for d := -arm; d <= arm; d++ {
		img.Set(center.X+d, center.Y+d, c)
		img.Set(center.X+d, center.Y-d, c)
	}
}

func sizeRange(snap clustering.Snapshot) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pt := range snap.Points {
		if len(pt) == 0 {
			continue
		}
		lo = math.Min(lo, pt[axisSize])
		hi = math.Max(hi, pt[axisSize])
	}
	return lo, hi
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
