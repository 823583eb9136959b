package config

import "sort"

var Presets = map[string]*Config{
	"ordered": {
		Size: 64, Procs: 4, Temperature: 0.1, Sweeps: 500, MaxStep: 0.3, ReportEvery: 10,
	},
	"transition": {
		Size: 64, Procs: 4, Temperature: 0.6, Sweeps: 1000, MaxStep: 0.6, ReportEvery: 10,
	},
	"disordered": {
		Size: 64, Procs: 4, Temperature: 1.5, Sweeps: 300, MaxStep: 1.2, ReportEvery: 10,
	},
	"anneal": {
		Size: 100, Procs: 3, Temperature: 1.5, TemperatureEnd: 0.05, Sweeps: 2000, MaxStep: 0.6, ReportEvery: 20,
	},
	"small": {
		Size: 8, Procs: 2, Temperature: 0.5, Sweeps: 50, MaxStep: 0.6, ReportEvery: 1,
	},
}

// GetPreset returns a copy of the named preset with unset fields defaulted,
// or nil if there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	def := DefaultConfig()
	if cfg.Backend == "" {
		cfg.Backend = def.Backend
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
