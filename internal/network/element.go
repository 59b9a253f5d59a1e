// Package network models the fiber distribution elements drawn in the editor:
// the kind variants, their core capacity rules and the per-kind dispatch table.
package network

import (
	"fibermap/editor-go/internal/geo"
)

// Element is one drawn network element. Coordinates are always {lat,lng};
// the backend's [lng,lat] order is converted before an Element is built.
type Element struct {
	ID              string           `json:"id"`
	Kind            Kind             `json:"kind"`
	Name            string           `json:"name,omitempty"`
	Coordinates     []geo.Coordinate `json:"coordinates"`
	TotalCore       int              `json:"total_core"`
	Length          float64          `json:"length"`
	Parent          string           `json:"parent,omitempty"`
	Children        []Child          `json:"children,omitempty"`
	PortNo          string           `json:"port_no,omitempty"`
	Color           string           `json:"color,omitempty"`
	OltSerialNumber string           `json:"olt_serial_number,omitempty"`
	OltType         string           `json:"olt_type,omitempty"`
	SplitterLimit   int              `json:"splitter_limit,omitempty"`
	// MainLocalFiber is set on local fiber branches and owns the core
	// assignments shared by the whole local fiber run.
	MainLocalFiber *Element `json:"main_local_fiber,omitempty"`
}

// Child is a consumer attached to one core of its parent element.
type Child struct {
	ID    string `json:"id,omitempty"`
	Kind  Kind   `json:"kind,omitempty"`
	Color string `json:"color"`
	Name  string `json:"name,omitempty"`
}

// Clone returns a deep copy.
func (e Element) Clone() Element {
	out := e
	out.Coordinates = geo.Clone(e.Coordinates)
	if e.Children != nil {
		out.Children = make([]Child, len(e.Children))
		copy(out.Children, e.Children)
	}
	if e.MainLocalFiber != nil {
		m := e.MainLocalFiber.Clone()
		out.MainLocalFiber = &m
	}
	return out
}

// LastPoint is the element's far end, where branches attach.
func (e Element) LastPoint() (geo.Coordinate, bool) {
	if len(e.Coordinates) == 0 {
		return geo.Coordinate{}, false
	}
	return e.Coordinates[len(e.Coordinates)-1], true
}
