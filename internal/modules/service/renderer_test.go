package service

import (
	"testing"

	"github.com/hausview/panotour/internal/pkg/pano"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScenes() []pano.Scene {
	a := pano.Scene{
		ID:          "scene-a",
		Name:        "Entry",
		ImageURL:    "https://cdn.test/entry_360.jpg",
		InitialView: pano.DefaultView(),
	}
	b := pano.Scene{
		ID:          "scene-b",
		Name:        "Kitchen",
		ImageURL:    "https://cdn.test/kitchen_360.jpg",
		InitialView: pano.DefaultView(),
	}
	a.Hotspots = []pano.Hotspot{{
		ID:       "nav_next_0",
		Position: pano.Position{Pitch: -10, Yaw: 90},
		Label:    "→ Kitchen",
		Kind:     pano.Navigation{TargetSceneID: "scene-b"},
	}}
	b.Hotspots = []pano.Hotspot{{
		ID:       "nav_prev_1",
		Position: pano.Position{Pitch: -10, Yaw: -90},
		Label:    "← Entry",
		Kind:     pano.Navigation{TargetSceneID: "scene-a"},
	}}
	return []pano.Scene{a, b}
}

func TestRenderEmbedsScenes(t *testing.T) {
	r, err := NewTourRenderer()
	require.NoError(t, err)

	page, err := r.Render("Maple Street Tour", testScenes(), nil)
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "Maple Street Tour")
	assert.Contains(t, html, "pannellum")
	assert.Contains(t, html, `"id":"scene-a"`)
	assert.Contains(t, html, `"sceneId":"scene-b"`)
	assert.Contains(t, html, "https://cdn.test/kitchen_360.jpg")
	assert.Contains(t, html, `firstScene: "scene-a"`)
	assert.NotContains(t, html, "no scenes")
}

func TestRenderWithNarration(t *testing.T) {
	r, err := NewTourRenderer()
	require.NoError(t, err)

	audio := map[string]string{
		NarrationIntroKey: "audio/intro.mp3",
		NarrationOutroKey: "audio/outro.mp3",
		"Kitchen":         "audio/kitchen.mp3",
	}
	page, err := r.Render("Tour", testScenes(), audio)
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, `"audioUrl":"audio/kitchen.mp3"`)
	assert.Contains(t, html, `var introAudio = "audio/intro.mp3";`)
	assert.Contains(t, html, `var outroAudio = "audio/outro.mp3";`)
	assert.NotContains(t, html, `audio\/`)
}

func TestRenderInfoHotspot(t *testing.T) {
	r, err := NewTourRenderer()
	require.NoError(t, err)

	scenes := testScenes()[:1]
	scenes[0].Hotspots = []pano.Hotspot{{
		ID:       "info_0",
		Position: pano.Position{Pitch: 5, Yaw: 40},
		Label:    "Fireplace",
		Kind:     pano.Info{Label: "Fireplace", Description: "Original 1920s hearth"},
	}}

	page, err := r.Render("Tour", scenes, nil)
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, `"type":"info"`)
	assert.Contains(t, html, "Original 1920s hearth")
}

func TestRenderRejectsDanglingNavigation(t *testing.T) {
	r, err := NewTourRenderer()
	require.NoError(t, err)

	scenes := testScenes()[:1] // scene-a still points at scene-b
	_, err = r.Render("Tour", scenes, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scene")
}

func TestRenderEmptyGraph(t *testing.T) {
	r, err := NewTourRenderer()
	require.NoError(t, err)

	page, err := r.Render("Tour", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, string(page), "no scenes yet")
}
