package pano

// View is a camera orientation inside an equirectangular panorama.
type View struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	FOV   float64 `json:"fov"`
}

// DefaultView is the straight-ahead orientation every scene starts with.
func DefaultView() View { return View{Pitch: 0, Yaw: 0, FOV: 100} }

// Position is an angular anchor for a hotspot on the sphere.
type Position struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// HotspotKind is the closed set of hotspot variants. Navigation and Info
// carry disjoint payloads, so they are distinct types rather than one struct
// with nullable fields.
type HotspotKind interface{ hotspotKind() }

// Navigation switches the viewer to another scene when clicked.
type Navigation struct {
	TargetSceneID string
}

// Info shows a label with descriptive text when clicked.
type Info struct {
	Label       string
	Description string
}

func (Navigation) hotspotKind() {}
func (Info) hotspotKind()       {}

type Hotspot struct {
	ID       string
	Position Position
	Label    string
	Kind     HotspotKind
}

// Scene is one processed room's panorama plus its viewing parameters and
// hotspots. Scene identity equals the room identity it was derived from.
type Scene struct {
	ID          string
	Name        string
	Category    string
	ImageURL    string
	InitialView View
	Hotspots    []Hotspot
	Order       int
}
