package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kairos-io/zfs-keyfile/config"
	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/keyfile"
	"github.com/kairos-io/zfs-keyfile/state"
	"github.com/mudler/go-pluggable"
)

// JobFactory builds the job for a received payload.
type JobFactory func(cfg config.ModuleConfig, st *state.Store) *keyfile.Job

// Provider answers installer events as a go-pluggable plugin.
type Provider struct {
	factory pluggable.PluginFactory
}

func NewProvider(ctx context.Context, newJob JobFactory) *Provider {
	return &Provider{
		factory: pluggable.NewPluginFactory(pluggable.FactoryPlugin{
			EventType:     EventKeyfilePassphrase,
			PluginHandler: KeyfileHandler(ctx, newJob),
		}),
	}
}

// Run reads the event from r and writes the response to w.
func (p *Provider) Run(event pluggable.EventType, r io.Reader, w io.Writer) error {
	if !IsEventDefined(event) {
		return fmt.Errorf("unknown event %q", event)
	}
	return p.factory.Run(event, r, w)
}

// KeyfileHandler runs the keyfile job for EventKeyfilePassphrase.
func KeyfileHandler(ctx context.Context, newJob JobFactory) pluggable.PluginHandler {
	return func(e *pluggable.Event) pluggable.EventResponse {
		payload, err := decodePayload(e)
		if err != nil {
			return EventError(fmt.Errorf("decoding payload: %w", err))
		}

		cfg, err := config.FromMap(payload.Config)
		if err != nil {
			return EventError(err)
		}
		st := state.FromMap(payload.State)

		if !keyfile.ShouldPrompt(cfg, st) {
			return respond(EventResponseNotApplicable, KeyfileResponse{State: st.Map()})
		}

		err = newJob(cfg, st).Run(ctx)
		var jobErr *keyfile.JobError
		if errors.As(err, &jobErr) {
			resp := respond(EventResponseError, KeyfileResponse{Title: jobErr.Title, Description: jobErr.Description, State: st.Map()})
			resp.Error = jobErr.Error()
			return resp
		}
		if err != nil {
			return EventError(err)
		}

		path, _ := st.Value(constants.StateKeyPassphraseFile).(string)
		return respond(EventResponseSuccess, KeyfileResponse{PassphraseFile: path, State: st.Map()})
	}
}

func decodePayload(e *pluggable.Event) (KeyfilePayload, error) {
	payload := KeyfilePayload{}
	data := []byte(e.Data)
	if len(data) == 0 && e.File != "" {
		var err error
		data, err = os.ReadFile(e.File)
		if err != nil {
			return payload, err
		}
	}
	if len(data) == 0 {
		return payload, nil
	}
	err := json.Unmarshal(data, &payload)
	return payload, err
}

func respond(st string, r KeyfileResponse) pluggable.EventResponse {
	r.Name = constants.PrettyName
	dat, err := json.Marshal(r)
	if err != nil {
		return EventError(err)
	}
	return pluggable.EventResponse{State: st, Data: string(dat)}
}
