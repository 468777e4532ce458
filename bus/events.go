package bus

import (
	"encoding/json"

	"github.com/mudler/go-pluggable"
)

const (
	// EventKeyfilePassphrase is issued by the installer after the ZFS pool is
	// created and before the keyfile is generated on the target.
	EventKeyfilePassphrase pluggable.EventType = "installer.zfs-keyfile"
)

// EventResponseSuccess, EventResponseError and EventResponseNotApplicable are the possible responses to an event.
const (
	EventResponseSuccess       = "success"
	EventResponseError         = "error"
	EventResponseNotApplicable = "non-applicable"
)

// KeyfilePayload is what the installer sends along with EventKeyfilePassphrase.
type KeyfilePayload struct {
	Config map[string]interface{} `json:"config"` // Job configuration, defaults if empty
	State  map[string]interface{} `json:"state"`  // Pipeline state at the time the job runs
}

// KeyfileResponse is carried in the Data field of the event response.
type KeyfileResponse struct {
	Name           string                 `json:"name,omitempty"` // Human readable job name
	PassphraseFile string                 `json:"passphrase_file,omitempty"`
	Title          string                 `json:"title,omitempty"`
	Description    string                 `json:"description,omitempty"`
	State          map[string]interface{} `json:"state,omitempty"` // Pipeline state after the job ran
}

// AllEvents is a convenience list of all the events streamed from the bus.
var AllEvents = []pluggable.EventType{
	EventKeyfilePassphrase,
}

// IsEventDefined checks wether an event is defined in the bus.
// It accepts strings or EventType.
func IsEventDefined(i interface{}, events ...pluggable.EventType) bool {
	checkEvent := func(e pluggable.EventType) bool {
		for _, ee := range append(AllEvents, events...) {
			if ee == e {
				return true
			}
		}

		return false
	}

	switch f := i.(type) {
	case string:
		return checkEvent(pluggable.EventType(f))
	case pluggable.EventType:
		return checkEvent(f)
	default:
		return false
	}
}

func EventError(err error) pluggable.EventResponse {
	return pluggable.EventResponse{State: EventResponseError, Error: err.Error()}
}

// DecodeResponse extracts the KeyfileResponse from an event response.
func DecodeResponse(r *pluggable.EventResponse) (KeyfileResponse, error) {
	res := KeyfileResponse{}
	if r.Data == "" {
		return res, nil
	}
	err := json.Unmarshal([]byte(r.Data), &res)
	return res, err
}
