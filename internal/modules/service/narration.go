package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hausview/panotour/internal/clients/openai"
	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/modules/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Synthesizer renders a narration script to MP3 bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// ScriptGenerator drafts the tour script with an external model.
type ScriptGenerator interface {
	GenerateTourScript(ctx context.Context, prop openai.PropertyDigest, rooms []openai.RoomDigest) (*openai.TourScript, error)
}

// ScriptSource records where the script text came from, so "used the
// template fallback" is a visible fact rather than a swallowed error.
type ScriptSource string

const (
	ScriptFromModel    ScriptSource = "model"
	ScriptFromTemplate ScriptSource = "template"
)

// Narration keys for the non-room units.
const (
	NarrationIntroKey = "intro"
	NarrationOutroKey = "outro"
)

// NarrationResult maps scene names (plus intro/outro) to audio files written
// under destDir. A unit whose synthesis failed appears in Failures instead;
// partial results are valid.
type NarrationResult struct {
	Source   ScriptSource
	Audio    map[string]string
	Failures map[string]string
}

type scriptUnit struct {
	key  string
	text string
}

// roomInsights are canned qualitative lines keyed by room-name keywords.
// First match wins; no match means no insight line.
var roomInsights = []struct {
	keyword string
	insight string
}{
	{"kitchen", "The kitchen is the heart of the home, perfect for cooking and gathering."},
	{"master bedroom", "A private retreat designed for rest and relaxation."},
	{"living room", "An inviting space made for entertaining and everyday living."},
	{"bathroom", "Finished with comfort and functionality in mind."},
	{"dining room", "An elegant setting for memorable meals with family and friends."},
}

// NarrationOrchestrator generates per-scene narration scripts and
// synthesizes them to audio. Synthesis failures are per-unit: a failed unit
// is omitted from the result rather than aborting the run.
type NarrationOrchestrator struct {
	tts          Synthesizer
	scripts      ScriptGenerator
	voices       map[string]config.VoicePreset
	defaultVoice string
	unitTimeout  time.Duration
	concurrency  int
	log          *zap.Logger
}

func NewNarrationOrchestrator(cfg *config.Config, tts Synthesizer, scripts ScriptGenerator, log *zap.Logger) *NarrationOrchestrator {
	concurrency := cfg.Narration.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &NarrationOrchestrator{
		tts:          tts,
		scripts:      scripts,
		voices:       cfg.Narration.Voices,
		defaultVoice: cfg.Narration.DefaultVoice,
		unitTimeout:  cfg.Narration.Timeout(),
		concurrency:  concurrency,
		log:          log,
	}
}

// ResolveVoice maps a preset name to its provider voice. An empty name means
// the configured default; an unknown name is an error, never a silent
// fallback.
func (o *NarrationOrchestrator) ResolveVoice(name string) (config.VoicePreset, error) {
	if name == "" {
		name = o.defaultVoice
	}
	preset, ok := o.voices[name]
	if !ok {
		return config.VoicePreset{}, fmt.Errorf("%w: %q", ErrUnknownVoice, name)
	}
	return preset, nil
}

// Narrate builds the script for the property and synthesizes every unit
// concurrently, writing MP3 files under destDir/audio.
func (o *NarrationOrchestrator) Narrate(ctx context.Context, prop *model.Property, rooms []model.Room, voiceName, destDir string) (*NarrationResult, error) {
	preset, err := o.ResolveVoice(voiceName)
	if err != nil {
		return nil, err
	}

	units, source := o.buildScript(ctx, prop, rooms)

	audioDir := filepath.Join(destDir, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	result := &NarrationResult{
		Source:   source,
		Audio:    make(map[string]string, len(units)),
		Failures: make(map[string]string),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, unit := range units {
		g.Go(func() error {
			uctx, cancel := context.WithTimeout(gctx, o.unitTimeout)
			defer cancel()

			audio, err := o.tts.Synthesize(uctx, unit.text, preset.ID)
			if err != nil {
				o.log.Sugar().Warnw("narration synthesis failed",
					"unit", unit.key, "voice", preset.Name, "err", err)
				mu.Lock()
				result.Failures[unit.key] = err.Error()
				mu.Unlock()
				return nil
			}

			name := sanitizeAudioName(unit.key) + ".mp3"
			if err := os.WriteFile(filepath.Join(audioDir, name), audio, 0o644); err != nil {
				mu.Lock()
				result.Failures[unit.key] = err.Error()
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.Audio[unit.key] = "audio/" + name
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// buildScript prefers the model-backed generator and degrades to templates,
// reporting which source produced the text.
func (o *NarrationOrchestrator) buildScript(ctx context.Context, prop *model.Property, rooms []model.Room) ([]scriptUnit, ScriptSource) {
	if o.scripts != nil {
		if units, ok := o.modelScript(ctx, prop, rooms); ok {
			return units, ScriptFromModel
		}
	}
	return o.templateScript(prop, rooms), ScriptFromTemplate
}

func (o *NarrationOrchestrator) modelScript(ctx context.Context, prop *model.Property, rooms []model.Room) ([]scriptUnit, bool) {
	digest := openai.PropertyDigest{
		Title:      prop.Title,
		Address:    prop.Address,
		Price:      prop.Price,
		Type:       prop.PropertyType,
		Bedrooms:   prop.Bedrooms,
		Bathrooms:  prop.Bathrooms,
		SquareFeet: prop.SquareFeet,
	}
	roomDigests := make([]openai.RoomDigest, 0, len(rooms))
	for _, r := range rooms {
		roomDigests = append(roomDigests, openai.RoomDigest{
			Name:        r.Name,
			Category:    r.Category,
			Description: r.Description,
		})
	}

	script, err := o.scripts.GenerateTourScript(ctx, digest, roomDigests)
	if err != nil {
		o.log.Sugar().Warnw("model script generation failed, using templates", "err", err)
		return nil, false
	}

	byName := make(map[string]string, len(script.Rooms))
	for _, rs := range script.Rooms {
		byName[strings.ToLower(rs.RoomName)] = rs.Narration
	}

	units := []scriptUnit{{key: NarrationIntroKey, text: script.Intro}}
	for _, r := range rooms {
		text, ok := byName[strings.ToLower(r.Name)]
		if !ok || strings.TrimSpace(text) == "" {
			text = roomScript(r)
		}
		units = append(units, scriptUnit{key: r.Name, text: text})
	}
	units = append(units, scriptUnit{key: NarrationOutroKey, text: script.Outro})
	return units, true
}

func (o *NarrationOrchestrator) templateScript(prop *model.Property, rooms []model.Room) []scriptUnit {
	units := []scriptUnit{{key: NarrationIntroKey, text: introScript(prop)}}
	for _, r := range rooms {
		units = append(units, scriptUnit{key: r.Name, text: roomScript(r)})
	}
	units = append(units, scriptUnit{key: NarrationOutroKey, text: outroScript(prop)})
	return units
}

func introScript(prop *model.Property) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to %s.", prop.Title)
	if prop.Address != "" {
		fmt.Fprintf(&b, " Located at %s.", prop.Address)
	}
	if prop.Price > 0 {
		fmt.Fprintf(&b, " Offered at %d dollars.", prop.Price)
	}
	if prop.Bedrooms > 0 || prop.Bathrooms > 0 {
		fmt.Fprintf(&b, " This home features %d bedrooms and %s bathrooms.",
			prop.Bedrooms, trimFloat(prop.Bathrooms))
	}
	if prop.SquareFeet > 0 {
		fmt.Fprintf(&b, " With %d square feet of living space.", prop.SquareFeet)
	}
	b.WriteString(" Let's take a look inside.")
	return b.String()
}

func roomScript(room model.Room) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is the %s.", room.Name)
	if room.Description != "" {
		fmt.Fprintf(&b, " %s", strings.TrimSpace(room.Description))
		if !strings.HasSuffix(room.Description, ".") {
			b.WriteString(".")
		}
	}
	if room.FloorArea != nil && *room.FloorArea > 0 {
		fmt.Fprintf(&b, " Spanning %s square feet.", trimFloat(*room.FloorArea))
	}
	if insight := insightFor(room); insight != "" {
		fmt.Fprintf(&b, " %s", insight)
	}
	return b.String()
}

func outroScript(prop *model.Property) string {
	return fmt.Sprintf("Thank you for touring %s. Contact us today to schedule your private showing.", prop.Title)
}

func insightFor(room model.Room) string {
	haystack := strings.ToLower(room.Name + " " + room.Category)
	for _, ri := range roomInsights {
		if strings.Contains(haystack, ri.keyword) {
			return ri.insight
		}
	}
	return ""
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.1f", f)
	return strings.TrimSuffix(s, ".0")
}

func sanitizeAudioName(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "scene"
	}
	return b.String()
}
