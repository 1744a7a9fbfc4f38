package internal

import "github.com/starford/othala/internal/render"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	renderer render.Renderer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRenderer overrides the default goldmark renderer, for embedders that
// bring their own markdown pipeline.
func WithRenderer(r render.Renderer) Option {
	return func(a *application) {
		a.renderer = r
	}
}
