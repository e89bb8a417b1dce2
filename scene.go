package scenecore

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// SceneDef defines the initial state of a scene. Definitions refer to each
// other by name.
type SceneDef struct {
	LightEnvironments []LightEnvironmentDef `toml:"light_environment"`
	Primitives        []PrimitiveDef        `toml:"primitive"`
	Lights            []LightDef            `toml:"light"`
}

type LightEnvironmentDef struct {
	Name     string     `toml:"name"`
	Location mgl32.Vec3 `toml:"location"`
	Level    string     `toml:"level"`
	Disabled bool       `toml:"disabled"`
}

// PrimitiveDef defines a box shaped primitive drawn with one static mesh per
// material.
type PrimitiveDef struct {
	Name        string     `toml:"name"`
	Center      mgl32.Vec3 `toml:"center"`
	HalfExtents mgl32.Vec3 `toml:"half_extents"`
	Materials   []uint32   `toml:"materials"`
	Level       string     `toml:"level"`

	// Replaces names the primitive this one is a LOD substitute for.
	Replaces         string `toml:"replaces"`
	LightEnvironment string `toml:"light_environment"`

	Static           bool `toml:"static"`
	CastStaticShadow bool `toml:"cast_static_shadow"`
	CastShadow       bool `toml:"cast_shadow"`
}

// LightDef defines a light instantiation.
type LightDef struct {
	Name      string     `toml:"name"`
	Type      string     `toml:"type"` // point, directional or sky
	Position  mgl32.Vec3 `toml:"position"`
	Direction mgl32.Vec3 `toml:"direction"`
	Color     [3]float32 `toml:"color"`
	Intensity float32    `toml:"intensity"`
	Range     float32    `toml:"range"`
	Level     string     `toml:"level"`

	Static      bool `toml:"static"`
	CastShadows bool `toml:"cast_shadows"`
	// SkipDefaultEnvironment keeps the light away from primitives without a
	// light environment and from light environment owners.
	SkipDefaultEnvironment bool `toml:"skip_default_environment"`
}

// LoadedScene holds the components spawned from a SceneDef by name.
type LoadedScene struct {
	LightEnvironments map[string]*LightEnvironmentComponent
	Primitives        map[string]*PrimitiveComponent
	Lights            map[string]*LightComponent
}

// LoadSceneDef reads a SceneDef from a TOML file.
func LoadSceneDef(path string) (SceneDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SceneDef{}, fmt.Errorf("read scene: %w", err)
	}
	var def SceneDef
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&def); err != nil {
		return SceneDef{}, fmt.Errorf("decode scene %s: %w", path, err)
	}
	return def, nil
}

func parseLightType(s string) (LightType, error) {
	switch s {
	case "", "point":
		return LightTypePoint, nil
	case "directional":
		return LightTypeDirectional, nil
	case "sky":
		return LightTypeSky, nil
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

// SpawnScene attaches everything def describes: light environments first,
// then primitives, then lights.
func SpawnScene(cmd *Commands, def SceneDef) (*LoadedScene, error) {
	loaded := &LoadedScene{
		LightEnvironments: make(map[string]*LightEnvironmentComponent),
		Primitives:        make(map[string]*PrimitiveComponent),
		Lights:            make(map[string]*LightComponent),
	}
	world := cmd.World()

	for _, d := range def.LightEnvironments {
		if _, ok := loaded.LightEnvironments[d.Name]; ok {
			return nil, fmt.Errorf("duplicate light environment %q", d.Name)
		}
		env := world.NewLightEnvironment(d.Location)
		env.Level = d.Level
		env.Settings.Enabled = !d.Disabled
		loaded.LightEnvironments[d.Name] = env
	}

	ids := make(map[string]uuid.UUID, len(def.Primitives))
	for _, d := range def.Primitives {
		if _, ok := ids[d.Name]; ok {
			return nil, fmt.Errorf("duplicate primitive %q", d.Name)
		}
		ids[d.Name] = uuid.New()
	}

	var primitives []*PrimitiveComponent
	for _, d := range def.Primitives {
		p, err := primitiveFromDef(d, ids, loaded.LightEnvironments)
		if err != nil {
			return nil, err
		}
		loaded.Primitives[d.Name] = p
		primitives = append(primitives, p)
	}

	var lights []*LightComponent
	for _, d := range def.Lights {
		typ, err := parseLightType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("light %q: %w", d.Name, err)
		}
		l := &LightComponent{
			Type:                      typ,
			Position:                  d.Position,
			Direction:                 d.Direction,
			Color:                     d.Color,
			Intensity:                 d.Intensity,
			Range:                     d.Range,
			LowerColor:                d.Color,
			Channels:                  core.ChannelStatic | core.ChannelDynamic | core.ChannelCompositeDynamic,
			Static:                    d.Static,
			CastShadows:               d.CastShadows,
			CastStaticShadows:         d.CastShadows,
			CastDynamicShadows:        d.CastShadows,
			CastCompositeShadow:       d.CastShadows,
			AffectsDefaultEnvironment: !d.SkipDefaultEnvironment,
			Level:                     d.Level,
		}
		if typ == LightTypeDirectional {
			l.Direction = l.Direction.Normalize()
		}
		if d.Name != "" {
			loaded.Lights[d.Name] = l
		}
		lights = append(lights, l)
	}

	for _, d := range def.LightEnvironments {
		cmd.AddLightEnvironment(loaded.LightEnvironments[d.Name])
	}
	cmd.AttachPrimitive(primitives...)
	cmd.AttachLight(lights...)
	return loaded, nil
}

func primitiveFromDef(d PrimitiveDef, ids map[string]uuid.UUID, envs map[string]*LightEnvironmentComponent) (*PrimitiveComponent, error) {
	bounds := geom.BoundsFromBox(geom.BoxFromCenterExtent(d.Center, d.HalfExtents))
	proxy := &StaticProxy{Dynamic: !d.Static, LightMapped: d.Static}
	for i, m := range d.Materials {
		proxy.Meshes = append(proxy.Meshes, core.StaticMesh{MaterialID: m, LODIndex: i, CastShadow: d.CastShadow})
	}

	p := NewPrimitiveComponent(proxy, bounds)
	p.ID = ids[d.Name]
	p.Level = d.Level
	p.Channels = core.ChannelDynamic
	if d.Static {
		p.Channels = core.ChannelStatic
	}
	p.StaticShadowing = d.Static
	p.CastStaticShadow = d.CastStaticShadow
	p.CastDynamicShadow = d.CastShadow

	if d.Replaces != "" {
		parent, ok := ids[d.Replaces]
		if !ok {
			return nil, fmt.Errorf("primitive %q replaces unknown primitive %q", d.Name, d.Replaces)
		}
		p.ReplacementPrimitive = parent
	}
	if d.LightEnvironment != "" {
		env, ok := envs[d.LightEnvironment]
		if !ok {
			return nil, fmt.Errorf("primitive %q uses unknown light environment %q", d.Name, d.LightEnvironment)
		}
		p.LightEnvironment = env
	}
	return p, nil
}
