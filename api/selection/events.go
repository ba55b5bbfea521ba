package selection

import "fieldrisk/api/roi"

// Event is one selection input, already translated from the drawing
// toolkit's or the coordinate form's raw payload.
type Event interface {
	Name() string
}

// DrawCreated: the toolkit finished drawing a new layer.
type DrawCreated struct {
	Shape    roi.Shape
	Geometry roi.Geometry
}

// DrawEdited: the user moved vertices of the existing layer.
type DrawEdited struct {
	Shape    roi.Shape
	Geometry roi.Geometry
}

// DrawDeleted: the user removed the drawn layer.
type DrawDeleted struct{}

// MapClicked: a free click on the map, in toolkit (lat, lng) order.
type MapClicked struct {
	Lat, Lng float64
}

// GotoRequested: coordinates typed into the manual entry form.
type GotoRequested struct {
	Lat, Lng float64
}

func (DrawCreated) Name() string   { return "draw_created" }
func (DrawEdited) Name() string    { return "draw_edited" }
func (DrawDeleted) Name() string   { return "draw_deleted" }
func (MapClicked) Name() string    { return "map_clicked" }
func (GotoRequested) Name() string { return "goto_requested" }
