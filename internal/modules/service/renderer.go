package service

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/bytedance/sonic"
	"github.com/hausview/panotour/internal/pkg/pano"
)

//go:embed viewer.html.tmpl
var viewerTemplate string

// sceneDoc and hotspotDoc mirror the pannellum config schema; field names
// follow the viewer's JSON keys, not ours.
type sceneDoc struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	ImageURL string       `json:"imageUrl"`
	Pitch    float64      `json:"pitch"`
	Yaw      float64      `json:"yaw"`
	FOV      float64      `json:"hfov"`
	Hotspots []hotspotDoc `json:"hotSpots"`
	AudioURL string       `json:"audioUrl,omitempty"`
}

type hotspotDoc struct {
	Pitch       float64 `json:"pitch"`
	Yaw         float64 `json:"yaw"`
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	SceneID     string  `json:"sceneId,omitempty"`
	Description string  `json:"description,omitempty"`
}

type viewerData struct {
	Title         string
	ScenesJSON    template.JS
	FirstSceneID  string
	Narrated      bool
	IntroAudioURL template.JS
	OutroAudioURL template.JS
}

// jsString renders s as a JSON string literal so the template emits it
// verbatim; the contextual JS escaper would mangle URL slashes.
func jsString(s string) template.JS {
	b, _ := sonic.Marshal(s)
	return template.JS(b)
}

// TourRenderer produces the self-contained tour page from a scene graph.
type TourRenderer struct {
	tmpl *template.Template
}

func NewTourRenderer() (*TourRenderer, error) {
	tmpl, err := template.New("viewer").Parse(viewerTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse viewer template: %w", err)
	}
	return &TourRenderer{tmpl: tmpl}, nil
}

// Render serializes the scenes into the viewer page. Audio maps scene IDs
// (plus intro/outro keys) to URLs relative to the page; nil means an
// unnarrated tour. Navigation hotspots pointing at scenes absent from the
// graph are an error: the builder and renderer disagreeing about the graph
// is a bug, not a renderable state.
func (r *TourRenderer) Render(title string, scenes []pano.Scene, audio map[string]string) ([]byte, error) {
	known := make(map[string]bool, len(scenes))
	for _, s := range scenes {
		known[s.ID] = true
	}

	docs := make([]sceneDoc, 0, len(scenes))
	for _, s := range scenes {
		doc := sceneDoc{
			ID:       s.ID,
			Name:     s.Name,
			ImageURL: s.ImageURL,
			Pitch:    s.InitialView.Pitch,
			Yaw:      s.InitialView.Yaw,
			FOV:      s.InitialView.FOV,
			Hotspots: make([]hotspotDoc, 0, len(s.Hotspots)),
			AudioURL: audio[s.Name],
		}
		for _, h := range s.Hotspots {
			hd := hotspotDoc{
				Pitch: h.Position.Pitch,
				Yaw:   h.Position.Yaw,
				Text:  h.Label,
			}
			switch kind := h.Kind.(type) {
			case pano.Navigation:
				if !known[kind.TargetSceneID] {
					return nil, fmt.Errorf("hotspot %s targets unknown scene %s", h.ID, kind.TargetSceneID)
				}
				hd.Type = "scene"
				hd.SceneID = kind.TargetSceneID
			case pano.Info:
				hd.Type = "info"
				hd.Description = kind.Description
			default:
				return nil, fmt.Errorf("hotspot %s has unsupported kind %T", h.ID, h.Kind)
			}
			doc.Hotspots = append(doc.Hotspots, hd)
		}
		docs = append(docs, doc)
	}

	scenesJSON, err := sonic.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("marshal scenes: %w", err)
	}

	data := viewerData{
		Title:         title,
		ScenesJSON:    template.JS(scenesJSON),
		Narrated:      len(audio) > 0,
		IntroAudioURL: jsString(audio[NarrationIntroKey]),
		OutroAudioURL: jsString(audio[NarrationOutroKey]),
	}
	if len(docs) > 0 {
		data.FirstSceneID = docs[0].ID
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render viewer: %w", err)
	}
	return buf.Bytes(), nil
}
