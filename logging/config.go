package logging

import "time"

type Config struct {
	EnabledSinks     []string       `yaml:"sinks" json:"sinks"`
	BufferSize       int            `yaml:"buffer_size" json:"buffer_size"`
	MinimumSeverity  Severity       `yaml:"-" json:"-"`
	Severity         string         `yaml:"severity" json:"severity"`
	Fields           map[string]any `yaml:"fields" json:"fields"`
	JSON             JSONConfig     `yaml:"json" json:"json"`
	Console          ConsoleConfig  `yaml:"console" json:"console"`
	DropWarnInterval time.Duration  `yaml:"drop_warn_interval" json:"drop_warn_interval"`
}

type JSONConfig struct {
	FilePath      string        `yaml:"path" json:"path"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

type ConsoleConfig struct {
	Prefix string `yaml:"prefix" json:"prefix"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		Severity:         "info",
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// WithSink returns a copy of c with name enabled.
func (c Config) WithSink(name string) Config {
	if c.HasSink(name) {
		return c
	}
	c.EnabledSinks = append(append([]string(nil), c.EnabledSinks...), name)
	return c
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
