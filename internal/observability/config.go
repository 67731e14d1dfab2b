package observability

// Config captures opt-in observability toggles for the HTTP surface.
type Config struct {
	EnablePprofTrace bool `yaml:"pprof" json:"pprof"`
}
