package lsp

import (
	"encoding/json"

	"github.com/sfodje/perlcritic/src/critic"
)

// overlaySettings applies a raw JSON settings object on top of the given base
// settings. Fields absent from the JSON keep their base values.
func overlaySettings(base critic.Settings, raw json.RawMessage) critic.Settings {
	settings := base
	if err := json.Unmarshal(raw, &settings); err != nil {
		log.Error("Ignoring malformed settings: %s", err)
		return base
	}
	return settings
}

// didChangeConfiguration replaces the current settings with the editor's and
// re-validates all open documents against them.
func (h *Handler) didChangeConfiguration(params *didChangeConfigurationParams) error {
	h.mutex.Lock()
	settings := h.defaults
	if len(params.Settings.Perlcritic) > 0 {
		settings = overlaySettings(h.defaults, params.Settings.Perlcritic)
	}
	h.settings = settings
	docs := make([]*doc, 0, len(h.docs))
	for _, d := range h.docs {
		docs = append(docs, d)
	}
	h.mutex.Unlock()
	if err := settings.Validate(); err != nil {
		log.Warning("Invalid settings: %s", err)
		h.showError(err)
		return nil
	}
	for _, d := range docs {
		h.requestValidation(d, true)
	}
	return nil
}
