package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
)

// wireCoord accepts the canonical [lng,lat] pair and, for records written by
// older clients, a {lat,lng} object.
type wireCoord geo.Coordinate

func (c *wireCoord) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj geo.Coordinate
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*c = wireCoord(obj)
		return nil
	}
	var pair geo.LngLat
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	*c = wireCoord(geo.FromLngLat(pair))
	return nil
}

func toCoordinates(in []wireCoord) []geo.Coordinate {
	if len(in) == 0 {
		return nil
	}
	out := make([]geo.Coordinate, 0, len(in))
	for _, c := range in {
		out = append(out, geo.Coordinate(c))
	}
	return out
}

// wireRef is an id that may arrive as a string or a populated {_id} document.
type wireRef string

func (r *wireRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = ""
	case len(b) > 0 && b[0] == '{':
		var doc struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return err
		}
		*r = wireRef(doc.ID)
	default:
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = wireRef(s)
	}
	return nil
}

// wireText is a form value the backend may echo as a string or a number.
type wireText string

func (t *wireText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = wireText(s)
		return nil
	}
	*t = wireText(b)
	return nil
}

func (t wireText) Int() int {
	n, err := strconv.Atoi(string(t))
	if err != nil {
		return 0
	}
	return n
}

type wireChild struct {
	ID    wireRef      `json:"_id"`
	Type  network.Kind `json:"type"`
	Color string       `json:"color"`
	Name  string       `json:"name"`
}

type wireElement struct {
	ID              wireRef      `json:"_id"`
	Type            network.Kind `json:"type"`
	Name            string       `json:"name"`
	Coordinates     []wireCoord  `json:"coordinates"`
	TotalCore       wireText     `json:"totalCore"`
	Length          float64      `json:"length"`
	Parent          wireRef      `json:"parent"`
	Childrens       []wireChild  `json:"childrens"`
	PortNo          wireText     `json:"portNo"`
	Color           string       `json:"color"`
	CoreColor       string       `json:"coreColor"`
	OltSerialNumber string       `json:"oltSerialNumber"`
	OltType         string       `json:"oltType"`
	SplitterLimit   wireText     `json:"splitterLimit"`
	MainLocalFiber  *wireElement `json:"mainLocalFiber"`
}

func (w wireElement) toElement() network.Element {
	e := network.Element{
		ID:              string(w.ID),
		Kind:            w.Type,
		Name:            w.Name,
		Coordinates:     toCoordinates(w.Coordinates),
		TotalCore:       w.TotalCore.Int(),
		Length:          w.Length,
		Parent:          string(w.Parent),
		PortNo:          string(w.PortNo),
		Color:           w.Color,
		OltSerialNumber: w.OltSerialNumber,
		OltType:         w.OltType,
		SplitterLimit:   w.SplitterLimit.Int(),
	}
	if e.Color == "" {
		e.Color = w.CoreColor
	}
	if len(w.Childrens) > 0 {
		e.Children = make([]network.Child, 0, len(w.Childrens))
		for _, c := range w.Childrens {
			e.Children = append(e.Children, network.Child{
				ID:    string(c.ID),
				Kind:  c.Type,
				Color: c.Color,
				Name:  c.Name,
			})
		}
	}
	if w.MainLocalFiber != nil {
		m := w.MainLocalFiber.toElement()
		e.MainLocalFiber = &m
	}
	return e
}

type ptpLookup struct {
	Data struct {
		Location *struct {
			ID          wireRef      `json:"_id"`
			Coordinates []geo.LngLat `json:"coordinates"`
		} `json:"location"`
	} `json:"data"`
}

type splitterLookup struct {
	Data struct {
		LastPoint *struct {
			ID          wireRef    `json:"_id"`
			Coordinates *wireCoord `json:"coordinates"`
		} `json:"lastPoint"`
	} `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

// payloadBody shapes a create request the way the backend route for the kind
// expects it.
func payloadBody(p network.Payload) (map[string]any, error) {
	spec, ok := network.SpecFor(p.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", p.Kind)
	}
	body := map[string]any{
		"type":        p.Kind,
		"coordinates": geo.ToLngLats(p.Coordinates),
		"totalCore":   p.TotalCore,
		"length":      p.Length,
	}
	setIf := func(key, value string) {
		if value != "" {
			body[key] = value
		}
	}
	setIf("parent", p.Parent)
	setIf("parentType", string(p.ParentType))
	setIf("name", p.Name)
	setIf("portNo", p.PortNo)
	setIf(spec.ColorField, p.Color)
	setIf("oltSerialNumber", p.OltSerialNumber)
	setIf("oltType", p.OltType)
	if p.SplitterLimit > 0 {
		body["splitterLimit"] = p.SplitterLimit
	}
	return body, nil
}
