package extract

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrGrammar is returned when a marker pattern is invalid.
var ErrGrammar = errors.New("invalid marker grammar")

// Default marker patterns. They accept plain and markdown-decorated forms:
//
//	SCENE 1 - SHOT 1A: KITCHEN - MORNING 1999
//	### **SCENE 2: CAR - MORNING 1999**
//	**Shot 2B: Close-up - Static**
//	Image Prompt: "..."
//	**Imagen Prompt:** "..."
const (
	DefaultSceneMarker = `(?i)^[\s#*_>-]*scene\s+(?P<scene>[0-9]+[a-z]?)\b(?:\s*[-\x{2013}\x{2014}:,]?\s*shot\s+(?P<shot>[0-9]*[a-z0-9]+))?`
	DefaultShotMarker  = `(?i)^[\s#*_>-]*shot\s+(?P<shot>[0-9]+[a-z]*)\b`
	DefaultPromptLabel = `(?i)^[\s#*_>-]*(?:imagen|image|midjourney|mj)\s+prompt\s*\**\s*:\s*\**`
)

// GrammarConfig holds the marker patterns as configured.
// Empty fields fall back to the defaults.
type GrammarConfig struct {
	SceneMarker string `mapstructure:"scene_marker" yaml:"scene_marker"`
	ShotMarker  string `mapstructure:"shot_marker" yaml:"shot_marker"`
	PromptLabel string `mapstructure:"prompt_label" yaml:"prompt_label"`
}

// DefaultGrammarConfig returns the built-in patterns.
func DefaultGrammarConfig() GrammarConfig {
	return GrammarConfig{
		SceneMarker: DefaultSceneMarker,
		ShotMarker:  DefaultShotMarker,
		PromptLabel: DefaultPromptLabel,
	}
}

// Grammar is a compiled set of marker patterns.
//
// The scene pattern must capture a "scene" group and may capture "shot".
// The shot pattern must capture "shot". The label pattern marks the start
// of a prompt; the quoted prompt follows the end of its match.
type Grammar struct {
	scene *regexp.Regexp
	shot  *regexp.Regexp
	label *regexp.Regexp

	sceneIdx     int
	sceneShotIdx int
	shotIdx      int
}

// DefaultGrammar returns the compiled built-in grammar.
func DefaultGrammar() *Grammar {
	g, err := CompileGrammar(DefaultGrammarConfig())
	if err != nil {
		panic(err)
	}
	return g
}

// CompileGrammar compiles and validates the configured patterns.
func CompileGrammar(cfg GrammarConfig) (*Grammar, error) {
	def := DefaultGrammarConfig()
	if cfg.SceneMarker == "" {
		cfg.SceneMarker = def.SceneMarker
	}
	if cfg.ShotMarker == "" {
		cfg.ShotMarker = def.ShotMarker
	}
	if cfg.PromptLabel == "" {
		cfg.PromptLabel = def.PromptLabel
	}

	scene, err := regexp.Compile(cfg.SceneMarker)
	if err != nil {
		return nil, fmt.Errorf("%w: scene_marker: %v", ErrGrammar, err)
	}
	shot, err := regexp.Compile(cfg.ShotMarker)
	if err != nil {
		return nil, fmt.Errorf("%w: shot_marker: %v", ErrGrammar, err)
	}
	label, err := regexp.Compile(cfg.PromptLabel)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt_label: %v", ErrGrammar, err)
	}

	g := &Grammar{
		scene:        scene,
		shot:         shot,
		label:        label,
		sceneIdx:     scene.SubexpIndex("scene"),
		sceneShotIdx: scene.SubexpIndex("shot"),
		shotIdx:      shot.SubexpIndex("shot"),
	}
	if g.sceneIdx < 0 {
		return nil, fmt.Errorf("%w: scene_marker needs a named group (?P<scene>...)", ErrGrammar)
	}
	if g.shotIdx < 0 {
		return nil, fmt.Errorf("%w: shot_marker needs a named group (?P<shot>...)", ErrGrammar)
	}
	return g, nil
}

// matchScene returns the scene and shot ids of a scene marker line.
func (g *Grammar) matchScene(line string) (scene, shot string, ok bool) {
	m := g.scene.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	scene = m[g.sceneIdx]
	if g.sceneShotIdx >= 0 {
		shot = m[g.sceneShotIdx]
	}
	return scene, shot, true
}

// matchShot returns the shot id of a standalone shot marker line.
func (g *Grammar) matchShot(line string) (string, bool) {
	m := g.shot.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[g.shotIdx], true
}

// matchLabel returns the text following a prompt label.
func (g *Grammar) matchLabel(line string) (string, bool) {
	loc := g.label.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	return line[loc[1]:], true
}
