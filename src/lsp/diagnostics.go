package lsp

import (
	"context"
	"math"
	"strings"

	"github.com/sourcegraph/go-lsp"

	"github.com/sfodje/perlcritic/src/critic"
)

const diagSource = "perlcritic"

// perlcritic doesn't report an end column, so diagnostics underline from the
// critique's column to the end of the line.
const maxLineLength = math.MaxInt32

// requestValidation queues a validation cycle for the given document.
// If force is false the request is dropped when the onSave setting restricts
// validation to saves.
func (h *Handler) requestValidation(d *doc, force bool) {
	h.mutex.Lock()
	settings := h.settings
	h.mutex.Unlock()
	if settings.OnSave && !force {
		return
	}
	d.Mutex.Lock()
	d.seq++
	v := validation{seq: d.seq, text: strings.Join(d.Content, "\n"), settings: settings}
	d.Mutex.Unlock()
	d.Validations <- v
}

// diagnose runs validation cycles for one document until it is closed.
// Cycles run one at a time per document; a cycle that has been superseded by a
// newer request, either while queued or while perlcritic was running, never
// publishes, so the editor only ever sees diagnostics for the newest text.
func (h *Handler) diagnose(d *doc) {
	for v := range d.Validations {
		if d.superseded(v.seq) {
			continue
		}
		critiques, err := h.runner.Critique(v.settings, v.text)
		if err != nil {
			// Previously published diagnostics stay in place; stale results seem
			// more useful than none while the user fixes their configuration.
			log.Warning("Validation failed for %s: %s", d.URI, err)
			h.showError(err)
			continue
		}
		h.mutex.Lock()
		related := h.supportsRelatedInfo
		h.mutex.Unlock()
		d.Mutex.Lock()
		stale := v.seq < d.seq || v.seq <= d.published
		if !stale {
			d.published = v.seq
		}
		d.Mutex.Unlock()
		if stale {
			continue
		}
		if err := h.Conn.Notify(context.Background(), "textDocument/publishDiagnostics", &publishDiagnosticsParams{
			URI:         d.URI,
			Diagnostics: toDiagnostics(critiques, d.URI, related),
		}); err != nil {
			log.Error("Failed to publish diagnostics: %s", err)
		}
	}
}

// superseded returns true if a newer validation cycle has been requested since
// the given one.
func (d *doc) superseded(seq int) bool {
	d.Mutex.Lock()
	defer d.Mutex.Unlock()
	return seq < d.seq
}

// toDiagnostics converts critiques to LSP diagnostics; it is 1:1 and
// order-preserving. The critique's explanation is attached as related
// information when the client has declared support for that.
func toDiagnostics(critiques []critic.Critique, uri lsp.DocumentURI, relatedInformation bool) []diagnostic {
	diags := make([]diagnostic, len(critiques))
	for i, c := range critiques {
		r := lsp.Range{
			Start: lsp.Position{Line: c.Line, Character: c.Column},
			End:   lsp.Position{Line: c.Line, Character: maxLineLength},
		}
		diags[i] = diagnostic{Diagnostic: lsp.Diagnostic{
			Range:    r,
			Severity: lsp.Warning,
			Source:   diagSource,
			Message:  c.Summary,
		}}
		if relatedInformation && c.Explanation != "" {
			diags[i].RelatedInformation = []diagnosticRelatedInformation{{
				Location: lsp.Location{URI: uri, Range: r},
				Message:  c.Explanation,
			}}
		}
	}
	return diags
}

// showError surfaces a validation error to the user as an editor message.
func (h *Handler) showError(err error) {
	if err := h.Conn.Notify(context.Background(), "window/showMessage", &lsp.ShowMessageParams{
		Type:    lsp.MTError,
		Message: err.Error(),
	}); err != nil {
		log.Error("Failed to notify client: %s", err)
	}
}
