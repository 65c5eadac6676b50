package store

import (
	"encoding/json"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/mapping"
	"github.com/teleskop/fieldbridge/transform"
)

// fileMapping is one mapping as authored in a TOML mapping file. Params is
// the kind's parameter table; its shape is validated against the kind when
// the file is loaded, with mismatches degrading to identity passthrough.
type fileMapping struct {
	Source string                 `toml:"source"`
	Target string                 `toml:"target"`
	Kind   string                 `toml:"kind,omitempty"`
	Params map[string]interface{} `toml:"params,omitempty"`
}

// mappingFile is the root of a TOML mapping file
type mappingFile struct {
	Mappings []fileMapping `toml:"mapping"`
}

// LoadMappingFile reads a mapping set from a TOML file. An omitted kind
// means NONE; an invalid kind or malformed params table follows the same
// degradation rules as any other serialized config.
func LoadMappingFile(path string) (mapping.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mapping file %s", path)
	}

	var file mappingFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parsing mapping file %s", path)
	}

	set := make(mapping.Set, 0, len(file.Mappings))
	for _, fm := range file.Mappings {
		if fm.Source == "" || fm.Target == "" {
			return nil, errors.Newf("mapping file %s: mapping must name both source and target", path)
		}
		set = append(set, mapping.FieldMapping{
			SourceFieldID:  fm.Source,
			TargetFieldID:  fm.Target,
			Transformation: fileConfig(fm.Kind, fm.Params),
		})
	}
	return set, nil
}

// SaveMappingFile writes a mapping set as a TOML file
func SaveMappingFile(path string, set mapping.Set) error {
	file := mappingFile{Mappings: make([]fileMapping, 0, len(set))}
	for _, m := range set {
		fm := fileMapping{
			Source: m.SourceFieldID,
			Target: m.TargetFieldID,
		}
		if m.Transformation.Kind != transform.KindNone {
			fm.Kind = string(m.Transformation.Kind)
			fm.Params = paramsTable(m.Transformation)
		}
		file.Mappings = append(file.Mappings, fm)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return errors.Wrap(err, "encoding mapping file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing mapping file %s", path)
	}
	return nil
}

// fileConfig converts an authored kind and params table into a
// transformation config by routing through the serialized wire shape, so
// the file loader shares the config format's degradation rules.
func fileConfig(kind string, params map[string]interface{}) transform.Config {
	if kind == "" {
		return transform.NoneConfig()
	}
	wire := map[string]interface{}{"kind": kind}
	if len(params) > 0 {
		wire["params"] = params
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return transform.NoneConfig()
	}
	return transform.ParseConfig(raw)
}

// paramsTable flattens a config's typed params into a generic table for
// TOML encoding.
func paramsTable(cfg transform.Config) map[string]interface{} {
	if cfg.Params == nil {
		return nil
	}
	raw, err := json.Marshal(cfg.Params)
	if err != nil {
		return nil
	}
	var table map[string]interface{}
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil
	}
	return table
}
