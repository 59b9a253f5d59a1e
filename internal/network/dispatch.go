package network

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fibermap/editor-go/internal/geo"
)

// Form carries the metadata a user enters when submitting a draft.
type Form struct {
	Name            string `json:"name"`
	PortNo          string `json:"port_no"`
	CoreColor       string `json:"core_color"`
	CoreCount       int    `json:"core_count"`
	OltSerialNumber string `json:"olt_serial_number"`
	OltType         string `json:"olt_type"`
	SplitterLimit   int    `json:"splitter_limit"`
}

// Draft is the geometry being submitted and the element it branches from.
type Draft struct {
	Parent      *Element
	Coordinates []geo.Coordinate
	Length      float64
}

// Payload is the kind-specific create request handed to the backend client.
type Payload struct {
	Kind            Kind
	Parent          string
	ParentType      Kind
	Name            string
	Coordinates     []geo.Coordinate
	TotalCore       int
	Length          float64
	PortNo          string
	Color           string
	OltSerialNumber string
	OltType         string
	SplitterLimit   int
}

// KindSpec binds one element kind to its backend endpoint, the kinds that may
// branch from it and its form.
type KindSpec struct {
	Kind Kind
	// Endpoint is the backend route stem: POST /{Endpoint}-connection.
	Endpoint string
	// ColorField is the payload key the backend expects the core color under.
	ColorField string
	// Children are the kinds that may be attached to an element of this kind.
	Children []Kind
	build    func(Form, Draft) (Payload, error)
}

var ErrInvalidForm = errors.New("invalid form")

var specs = map[Kind]KindSpec{
	KindPointToPoint: {
		Kind:       KindPointToPoint,
		Endpoint:   "ptp",
		ColorField: "color",
		Children:   []Kind{KindReseller, KindCompany},
		build:      buildPointToPoint,
	},
	KindReseller: {
		Kind:       KindReseller,
		Endpoint:   "reseller",
		ColorField: "color",
		Children:   []Kind{KindSplitter, KindLocalFiber},
		build:      buildReseller,
	},
	KindSplitter: {
		Kind:       KindSplitter,
		Endpoint:   "splitter",
		ColorField: "color",
		Children:   []Kind{KindHome, KindSplitter},
		build:      buildSplitter,
	},
	KindLocalFiber: {
		Kind:       KindLocalFiber,
		Endpoint:   "local-fiber",
		ColorField: "color",
		Children:   []Kind{KindSplitter, KindLocalFiber},
		build:      buildLocalFiber,
	},
	KindCompany: {
		Kind:       KindCompany,
		Endpoint:   "corporate",
		ColorField: "coreColor",
		build:      buildCompany,
	},
	KindHome: {
		Kind:       KindHome,
		Endpoint:   "home",
		ColorField: "color",
		build:      buildHome,
	},
}

// SpecFor returns the dispatch entry for k.
func SpecFor(k Kind) (KindSpec, bool) {
	s, ok := specs[k]
	return s, ok
}

// ChildKinds lists what may branch from an element of kind k.
func ChildKinds(k Kind) []Kind {
	s, ok := specs[k]
	if !ok {
		return nil
	}
	return slices.Clone(s.Children)
}

// SubmittableKinds reports which kinds a draft may become. A parent-less
// draft with more than one vertex can only be a point-to-point link.
func SubmittableKinds(parent *Element, vertices int) []Kind {
	if parent != nil {
		return ChildKinds(parent.Kind)
	}
	if vertices > 1 {
		return []Kind{KindPointToPoint}
	}
	return nil
}

// BuildPayload validates the form for kind k against the draft and shapes the
// create request.
func BuildPayload(k Kind, f Form, d Draft) (Payload, error) {
	s, ok := specs[k]
	if !ok {
		return Payload{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidForm, k)
	}
	if !slices.Contains(SubmittableKinds(d.Parent, len(d.Coordinates)), k) {
		if d.Parent == nil {
			return Payload{}, fmt.Errorf("%w: %s needs a parent element", ErrInvalidForm, k)
		}
		return Payload{}, fmt.Errorf("%w: %s cannot be attached to %s", ErrInvalidForm, k, d.Parent.Kind)
	}
	if len(d.Coordinates) == 0 {
		return Payload{}, fmt.Errorf("%w: no points selected", ErrInvalidForm)
	}
	if d.Parent != nil {
		if err := d.Parent.CheckFreeCore(); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
	}
	f.Name = strings.TrimSpace(f.Name)
	f.PortNo = strings.TrimSpace(f.PortNo)
	f.CoreColor = strings.TrimSpace(f.CoreColor)
	f.OltType = strings.ToLower(strings.TrimSpace(f.OltType))
	return s.build(f, d)
}

func basePayload(k Kind, f Form, d Draft) Payload {
	p := Payload{
		Kind:        k,
		Name:        f.Name,
		Coordinates: geo.Clone(d.Coordinates),
		TotalCore:   f.CoreCount,
		Length:      d.Length,
	}
	if d.Parent != nil {
		p.Parent = d.Parent.ID
	}
	return p
}

func requireCoreCount(n int) error {
	if !slices.Contains(CoreCounts, n) {
		return fmt.Errorf("%w: core count %d is not one of %v", ErrInvalidForm, n, CoreCounts)
	}
	return nil
}

func optionalCoreCount(n int) error {
	if n == 0 {
		return nil
	}
	return requireCoreCount(n)
}

func checkColor(parent *Element, color string, required bool) error {
	if color == "" {
		if required {
			return fmt.Errorf("%w: a core color is required", ErrInvalidForm)
		}
		return nil
	}
	if err := parent.ValidateCoreColor(color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	return nil
}

func buildPointToPoint(f Form, d Draft) (Payload, error) {
	if err := requireCoreCount(f.CoreCount); err != nil {
		return Payload{}, err
	}
	return basePayload(KindPointToPoint, f, d), nil
}

func buildReseller(f Form, d Draft) (Payload, error) {
	if err := requireCoreCount(f.CoreCount); err != nil {
		return Payload{}, err
	}
	if err := checkColor(d.Parent, f.CoreColor, false); err != nil {
		return Payload{}, err
	}
	if f.OltType != "" && !slices.Contains(OltTypes, f.OltType) {
		return Payload{}, fmt.Errorf("%w: olt type %q is not one of %v", ErrInvalidForm, f.OltType, OltTypes)
	}
	p := basePayload(KindReseller, f, d)
	p.Color = f.CoreColor
	p.PortNo = f.PortNo
	p.OltSerialNumber = strings.TrimSpace(f.OltSerialNumber)
	p.OltType = f.OltType
	return p, nil
}

func buildCompany(f Form, d Draft) (Payload, error) {
	if f.Name == "" {
		return Payload{}, fmt.Errorf("%w: name is required", ErrInvalidForm)
	}
	if err := optionalCoreCount(f.CoreCount); err != nil {
		return Payload{}, err
	}
	if err := checkColor(d.Parent, f.CoreColor, false); err != nil {
		return Payload{}, err
	}
	p := basePayload(KindCompany, f, d)
	p.Color = f.CoreColor
	p.PortNo = f.PortNo
	return p, nil
}

func buildSplitter(f Form, d Draft) (Payload, error) {
	if !slices.Contains(SplitterRatios, f.SplitterLimit) {
		return Payload{}, fmt.Errorf("%w: splitter type 1/%d is not one of %v", ErrInvalidForm, f.SplitterLimit, SplitterRatios)
	}
	if err := optionalCoreCount(f.CoreCount); err != nil {
		return Payload{}, err
	}
	// Only local fiber and splitter parents hand out an individual core.
	coreFromParent := d.Parent.Kind == KindLocalFiber || d.Parent.Kind == KindSplitter
	if coreFromParent {
		if err := checkColor(d.Parent, f.CoreColor, false); err != nil {
			return Payload{}, err
		}
	}
	p := basePayload(KindSplitter, f, d)
	p.ParentType = d.Parent.Kind
	p.SplitterLimit = f.SplitterLimit
	if coreFromParent {
		p.Color = f.CoreColor
	}
	if d.Parent.Kind != KindSplitter {
		p.PortNo = f.PortNo
	}
	return p, nil
}

func buildLocalFiber(f Form, d Draft) (Payload, error) {
	if err := requireCoreCount(f.CoreCount); err != nil {
		return Payload{}, err
	}
	if err := checkColor(d.Parent, f.CoreColor, false); err != nil {
		return Payload{}, err
	}
	p := basePayload(KindLocalFiber, f, d)
	p.ParentType = d.Parent.Kind
	p.Color = f.CoreColor
	p.PortNo = f.PortNo
	return p, nil
}

func buildHome(f Form, d Draft) (Payload, error) {
	if err := optionalCoreCount(f.CoreCount); err != nil {
		return Payload{}, err
	}
	if err := checkColor(d.Parent, f.CoreColor, true); err != nil {
		return Payload{}, err
	}
	p := basePayload(KindHome, f, d)
	p.Color = f.CoreColor
	return p, nil
}
