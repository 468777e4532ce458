package bus

import (
	"fmt"
	"os"

	"github.com/kairos-io/zfs-keyfile/types"
	"github.com/mudler/go-pluggable"
)

// Reply is one provider answer to a published event.
type Reply struct {
	Plugin   string
	State    string
	Error    string
	Response KeyfileResponse
}

func NewBus(withEvents ...pluggable.EventType) *Bus {
	if len(withEvents) == 0 {
		withEvents = AllEvents
	}
	return &Bus{
		Manager: pluggable.NewManager(withEvents),
	}
}

// Bus is the installer side: it finds provider executables and publishes events to them.
type Bus struct {
	*pluggable.Manager
	registered     bool
	logger         *types.Logger
	providerPrefix string   // Prefix for provider plugins, defaults to "installer-provider".
	providerPaths  []string // Paths to search for provider plugins, defaults to system paths and current working directory.
	replies        []Reply
}

func (b *Bus) LoadProviders() {
	b.Autoload(b.providerPrefix, b.providerPaths...).Register()
}

func (b *Bus) Initialize(o ...Options) {
	if b.registered {
		return
	}

	for _, opt := range o {
		opt(b)
	}

	if b.providerPrefix == "" {
		b.providerPrefix = "installer-provider"
	}

	if b.providerPaths == nil {
		wd, _ := os.Getwd()
		b.providerPaths = []string{"/system/providers", "/usr/local/system/providers", wd}
	}

	if b.logger == nil {
		l := types.NewLogger("bus", "info", false)
		if os.Getenv("BUS_DEBUG") == "true" {
			l.SetLevel("debug")
		}
		b.logger = &l
	}

	b.LoadProviders()
	for i := range b.Events {
		e := b.Events[i]
		b.Response(e, func(p *pluggable.Plugin, r *pluggable.EventResponse) {
			b.logger.Logger.Debug().Str("from", p.Name).Str("at", p.Executable).Str("type", string(e)).Msg("Received event from provider")
			reply := Reply{Plugin: p.Name, State: r.State, Error: r.Error}
			res, err := DecodeResponse(r)
			if err != nil {
				b.logger.Logger.Warn().Err(err).Str("from", p.Name).Msg("Could not decode provider response")
			}
			reply.Response = res
			if r.Errored() {
				b.logger.Logger.Error().Err(fmt.Errorf("%s", r.Error)).Str("from", p.Name).Str("at", p.Executable).Str("type", string(e)).Msg("Error in provider")
			}
			b.replies = append(b.replies, reply)
		})
	}
	b.registered = true
}

// Publish sends the event and returns the replies of every provider that answered.
func (b *Bus) Publish(event pluggable.EventType, payload interface{}) ([]Reply, error) {
	b.replies = nil
	if _, err := b.Manager.Publish(event, payload); err != nil {
		return b.replies, err
	}
	return b.replies, nil
}

// Providers returns the names of the loaded provider plugins.
func (b *Bus) Providers() []string {
	names := []string{}
	for _, p := range b.Plugins {
		names = append(names, p.Name)
	}
	return names
}

type Options func(d *Bus)

// WithLogger allows to set a custom logger for the bus.
func WithLogger(logger types.Logger) Options {
	return func(d *Bus) {
		d.logger = &logger
	}
}

// WithProviderPrefix allows to set the prefix for provider plugins.
func WithProviderPrefix(prefix string) Options {
	return func(d *Bus) {
		d.providerPrefix = prefix
	}
}

// WithProviderPaths allows to set the paths to search for provider plugins.
func WithProviderPaths(paths ...string) Options {
	return func(d *Bus) {
		d.providerPaths = paths
	}
}
