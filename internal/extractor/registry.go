package extractor

import (
	"meter_reading/internal/config"
	"meter_reading/internal/logger"
	"meter_reading/internal/vision"
)

// Registry holds the enabled extractors in priority order.
type Registry struct {
	locals  []Extractor
	remotes []Extractor
}

// NewRegistry assembles a registry from explicit extractors. Remotes beyond
// config.MaxRemoteBackends are dropped.
func NewRegistry(locals, remotes []Extractor) *Registry {
	if len(remotes) > config.MaxRemoteBackends {
		remotes = remotes[:config.MaxRemoteBackends]
	}
	return &Registry{locals: locals, remotes: remotes}
}

// FromConfig builds the configured extractor set: the two tesseract variants
// when local OCR is enabled and one remote per configured backend.
func FromConfig(cfg config.ExtractorsConfig, log *logger.Logger) *Registry {
	var locals, remotes []Extractor
	if cfg.Local.Enabled {
		cli := TesseractCLI{Binary: cfg.Local.Binary, Language: cfg.Local.Language}
		locals = append(locals, NewTesseract(cli), NewTesseractSegmented(cli))
	}
	for i, rb := range cfg.Remote {
		if i >= config.MaxRemoteBackends {
			if log != nil {
				log.Warnw("remote_backend_ignored", "name", rb.Name, "max", config.MaxRemoteBackends)
			}
			continue
		}
		client := vision.NewClient(vision.Config{
			Provider: rb.Provider,
			APIKey:   rb.ResolvedAPIKey(),
			BaseURL:  rb.BaseURL,
			Model:    rb.Model,
			Timeout:  rb.Timeout,
		})
		remotes = append(remotes, NewRemote(rb.Name, client, log.Named(rb.Name)))
	}
	if log != nil {
		log.Infow("extractors_registered", "local", len(locals), "remote", len(remotes))
	}
	return NewRegistry(locals, remotes)
}

// Locals returns local extractors in priority order.
func (r *Registry) Locals() []Extractor { return r.locals }

// Remotes returns remote extractors in declared order.
func (r *Registry) Remotes() []Extractor { return r.remotes }

// All returns remotes followed by locals.
func (r *Registry) All() []Extractor {
	out := make([]Extractor, 0, len(r.remotes)+len(r.locals))
	out = append(out, r.remotes...)
	return append(out, r.locals...)
}
