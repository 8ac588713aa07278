// Package tagging converts pointer positions on rendered media into
// product tag coordinates and validates tags before they are stored.
package tagging

import (
	"fmt"
	"math"
	"strings"

	"cliqd/internal/models"

	"github.com/google/uuid"
)

// Popup clamps keep the product popup inside the media box.
const (
	PopupMaxX    = 65.0
	PopupYOffset = 6.0
	PopupMaxY    = 78.0
)

// Rect is the rendered box of a media element in client coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Point is a position in percent of the media box.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ErrEmptyRect is returned when the media box has no area.
var ErrEmptyRect = models.NewValidationError("media element has no rendered size")

// PlaceFromPointer converts a pointer position into percentages of r,
// rounded to one decimal and clamped to [0, 100].
func PlaceFromPointer(clientX, clientY float64, r Rect) (Point, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return Point{}, ErrEmptyRect
	}
	x := (clientX - r.Left) / r.Width * 100
	y := (clientY - r.Top) / r.Height * 100
	return Point{X: clampPercent(Round1(x)), Y: clampPercent(Round1(y))}, nil
}

// Round1 rounds v to one decimal place, half away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// PopupAnchor returns where the product popup for tag is drawn.
func PopupAnchor(tag models.ProductTag) Point {
	return Point{
		X: math.Min(tag.X, PopupMaxX),
		Y: math.Min(tag.Y+PopupYOffset, PopupMaxY),
	}
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// ValidateTag checks a single tag's name and coordinates.
func ValidateTag(tag models.ProductTag) error {
	if strings.TrimSpace(tag.ProductName) == "" {
		return models.NewValidationError("product name is required")
	}
	if !inRange(tag.X) || !inRange(tag.Y) {
		return models.NewValidationError(fmt.Sprintf("tag %q must be placed within 0-100%%", tag.ProductName))
	}
	return nil
}

// NormalizeTags validates tags, assigns ids to tags without one and
// rejects duplicate ids. The input is not modified.
func NormalizeTags(tags []models.ProductTag) ([]models.ProductTag, error) {
	out := make([]models.ProductTag, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if err := ValidateTag(tag); err != nil {
			return nil, err
		}
		if tag.ID == "" {
			tag.ID = uuid.NewString()
		}
		if seen[tag.ID] {
			return nil, models.NewValidationError(fmt.Sprintf("duplicate tag id %q", tag.ID))
		}
		seen[tag.ID] = true
		out = append(out, tag)
	}
	return out, nil
}
