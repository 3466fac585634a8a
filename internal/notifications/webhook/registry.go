package webhook

import (
	"iapnotify/internal/config"
	"iapnotify/internal/types"
)

// Registry is the strategy table mapping each enabled destination to its
// formatter. Iteration order is always Telegram, Discord, Slack.
type Registry struct {
	formatters map[types.Destination]Formatter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[types.Destination]Formatter)}
}

// NewRegistryFromConfig registers a formatter for every enabled destination.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	r := NewRegistry()
	if cfg.Telegram.Enabled {
		r.Register(NewTelegramFormatter(cfg.Telegram))
	}
	if cfg.Discord.Enabled {
		r.Register(NewDiscordFormatter(cfg.Discord))
	}
	if cfg.Slack.Enabled {
		r.Register(NewSlackFormatter(cfg.Slack))
	}
	return r
}

// Register adds or replaces the formatter for its destination.
func (r *Registry) Register(f Formatter) {
	r.formatters[f.Destination()] = f
}

// Get returns the formatter for d.
func (r *Registry) Get(d types.Destination) (Formatter, bool) {
	f, ok := r.formatters[d]
	return f, ok
}

// Enabled returns the registered destinations in dispatch order.
func (r *Registry) Enabled() []types.Destination {
	out := make([]types.Destination, 0, len(r.formatters))
	for _, d := range types.Destinations {
		if _, ok := r.formatters[d]; ok {
			out = append(out, d)
		}
	}
	return out
}
