package tagging

import (
	"strings"

	"cliqd/internal/catalog"
	"cliqd/internal/models"

	"github.com/google/uuid"
)

// DefaultLink is stored when a tag is added without a purchase link.
const DefaultLink = "#"

var (
	// ErrVideoTagging is returned when placing a tag on video media.
	ErrVideoTagging = models.NewValidationError("products can only be tagged on images")
	// ErrNoPendingPoint is returned when a product is added before a point is chosen.
	ErrNoPendingPoint = models.NewValidationError("choose a point on the image first")
)

// Draft is the tag authoring state of a post before it is submitted.
type Draft struct {
	media   models.MediaKind
	pending *Point
	tags    []models.ProductTag
}

// NewDraft starts a draft for media of the given kind.
func NewDraft(media models.MediaKind) *Draft {
	return &Draft{media: media}
}

// Media returns the media kind of the draft.
func (d *Draft) Media() models.MediaKind {
	return d.media
}

// Place records the point the next tag will be attached to.
func (d *Draft) Place(p Point) error {
	if d.media == models.MediaVideo {
		return ErrVideoTagging
	}
	if !inRange(p.X) || !inRange(p.Y) {
		return models.NewValidationError("point must be within 0-100%")
	}
	d.pending = &p
	return nil
}

// PlaceFromPointer converts a pointer position and records it.
func (d *Draft) PlaceFromPointer(clientX, clientY float64, r Rect) (Point, error) {
	if d.media == models.MediaVideo {
		return Point{}, ErrVideoTagging
	}
	p, err := PlaceFromPointer(clientX, clientY, r)
	if err != nil {
		return Point{}, err
	}
	return p, d.Place(p)
}

// Pending returns the chosen point, if any.
func (d *Draft) Pending() (Point, bool) {
	if d.pending == nil {
		return Point{}, false
	}
	return *d.pending, true
}

// Cancel discards the pending point.
func (d *Draft) Cancel() {
	d.pending = nil
}

// AddProduct tags a catalog product at the pending point.
func (d *Draft) AddProduct(p catalog.Product, link string) (models.ProductTag, error) {
	return d.add(p.Name, p.Price, link)
}

// AddCustom tags a free-form product at the pending point.
func (d *Draft) AddCustom(name, price, link string) (models.ProductTag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ProductTag{}, models.NewValidationError("product name is required")
	}
	return d.add(name, price, link)
}

func (d *Draft) add(name, price, link string) (models.ProductTag, error) {
	if d.pending == nil {
		return models.ProductTag{}, ErrNoPendingPoint
	}
	link = strings.TrimSpace(link)
	if link == "" {
		link = DefaultLink
	}
	tag := models.ProductTag{
		ID:          uuid.NewString(),
		ProductName: name,
		Price:       price,
		Link:        link,
		X:           d.pending.X,
		Y:           d.pending.Y,
	}
	if err := ValidateTag(tag); err != nil {
		return models.ProductTag{}, err
	}
	d.tags = append(d.tags, tag)
	d.pending = nil
	return tag, nil
}

// Remove drops the tag with id. It reports whether a tag was removed.
func (d *Draft) Remove(id string) bool {
	for i, t := range d.tags {
		if t.ID == id {
			d.tags = append(d.tags[:i:i], d.tags[i+1:]...)
			return true
		}
	}
	return false
}

// Tags returns a copy of the tags added so far.
func (d *Draft) Tags() []models.ProductTag {
	out := make([]models.ProductTag, len(d.tags))
	copy(out, d.tags)
	return out
}
