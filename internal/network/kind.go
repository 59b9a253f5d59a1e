package network

import (
	"fmt"
	"strings"
)

// Kind tags a network element variant.
type Kind string

const (
	KindPointToPoint Kind = "pointToPoint"
	KindReseller     Kind = "reseller"
	KindSplitter     Kind = "splitter"
	KindLocalFiber   Kind = "localFiber"
	KindCompany      Kind = "company"
	KindHome         Kind = "home"
)

// Kinds lists every variant in display order.
var Kinds = []Kind{
	KindPointToPoint,
	KindReseller,
	KindSplitter,
	KindLocalFiber,
	KindCompany,
	KindHome,
}

// ParseKind accepts the canonical tags (case-insensitive) and the route aliases
// used by the backend endpoints.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pointtopoint", "ptp":
		return KindPointToPoint, nil
	case "reseller":
		return KindReseller, nil
	case "splitter":
		return KindSplitter, nil
	case "localfiber", "local-fiber":
		return KindLocalFiber, nil
	case "company", "corporate":
		return KindCompany, nil
	case "home":
		return KindHome, nil
	default:
		return "", fmt.Errorf("unknown element kind %q, want one of %v", s, Kinds)
	}
}

func (k Kind) Valid() bool {
	_, ok := specs[k]
	return ok
}
