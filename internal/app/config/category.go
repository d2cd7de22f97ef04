package config

import (
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	// PluginName is the fixed identifier carried in the category document.
	PluginName = "luafilter"
	// ScriptsSubdir is the directory under the host data dir where script
	// modules are resolved from.
	ScriptsSubdir = "scripts"
)

// DefaultCategory is the default configuration document advertised by the
// plugin info call. The script module name carries no file extension.
const DefaultCategory = `{"plugin":"` + PluginName + `","enable":false,"config":{},"script":""}`

// Category is the parsed form of the JSON configuration document the host
// hands to init and reconfigure. Config stays an opaque JSON blob passed
// verbatim to the script's configuration entry point.
type Category struct {
	Name   string
	Plugin string
	Enable bool
	Script string
	Config string
}

// ParseCategory reads the fields the filter cares about out of the JSON
// category document. Unknown fields are ignored.
func ParseCategory(doc string) (Category, error) {
	if !gjson.Valid(doc) {
		return Category{}, fmt.Errorf("configuration document is not valid JSON")
	}
	g := gjson.Parse(doc)

	cat := Category{
		Name:   g.Get("name").String(),
		Plugin: g.Get("plugin").String(),
		Enable: g.Get("enable").Bool(),
		Script: g.Get("script").String(),
		Config: "{}",
	}
	if cat.Plugin == "" {
		cat.Plugin = PluginName
	}
	if cat.Name == "" {
		cat.Name = cat.Plugin
	}
	if cfg := g.Get("config"); cfg.Exists() {
		if cfg.Type == gjson.String {
			cat.Config = cfg.String()
		} else {
			cat.Config = cfg.Raw
		}
	}
	return cat, nil
}
