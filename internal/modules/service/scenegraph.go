package service

import (
	"fmt"

	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/pkg/pano"
)

// SceneGraphBuilder turns an ordered list of Completed rooms into scenes
// connected by navigation hotspots. Linking is purely positional: scene i
// points at i-1 and i+1 in sort order, not at physically adjacent rooms,
// which the system has no way to infer.
type SceneGraphBuilder struct{}

func NewSceneGraphBuilder() *SceneGraphBuilder {
	return &SceneGraphBuilder{}
}

// Build derives one scene per room, preserving input order. Rooms without a
// processed image URL are skipped; an empty input yields an empty graph,
// which callers treat as "nothing to render" rather than an error.
func (b *SceneGraphBuilder) Build(rooms []model.Room) []pano.Scene {
	scenes := make([]pano.Scene, 0, len(rooms))
	for _, room := range rooms {
		if room.ProcessedImageURL == nil {
			continue
		}
		scenes = append(scenes, pano.Scene{
			ID:          room.ID.String(),
			Name:        room.Name,
			Category:    room.Category,
			ImageURL:    *room.ProcessedImageURL,
			InitialView: pano.DefaultView(),
			Hotspots:    []pano.Hotspot{},
			Order:       len(scenes),
		})
	}

	for i := range scenes {
		if i+1 < len(scenes) {
			next := &scenes[i+1]
			scenes[i].Hotspots = append(scenes[i].Hotspots, pano.Hotspot{
				ID:       fmt.Sprintf("nav_next_%d", i),
				Position: pano.Position{Pitch: -10, Yaw: 90},
				Label:    fmt.Sprintf("→ %s", next.Name),
				Kind:     pano.Navigation{TargetSceneID: next.ID},
			})
		}
		if i > 0 {
			prev := &scenes[i-1]
			scenes[i].Hotspots = append(scenes[i].Hotspots, pano.Hotspot{
				ID:       fmt.Sprintf("nav_prev_%d", i),
				Position: pano.Position{Pitch: -10, Yaw: -90},
				Label:    fmt.Sprintf("← %s", prev.Name),
				Kind:     pano.Navigation{TargetSceneID: prev.ID},
			})
		}
	}

	return scenes
}
