package lsp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sourcegraph/go-lsp"

	"github.com/sfodje/perlcritic/src/critic"
)

// A doc is a representation of a document that's opened by the editor.
type doc struct {
	// The URI the editor knows this document by.
	URI lsp.DocumentURI
	// The raw content of the document.
	Content []string
	Mutex   sync.Mutex
	// Channel of validation cycles to run, consumed by a diagnose goroutine.
	Validations chan validation
	// seq is the most recently requested validation cycle for this document;
	// published is the cycle whose diagnostics were last sent to the editor.
	// Results from cycles older than either are discarded as stale.
	seq       int
	published int
}

// A validation is one requested validation cycle: a snapshot of the document
// text and the settings in force when it was requested.
type validation struct {
	seq      int
	text     string
	settings critic.Settings
}

func (d *doc) SetText(text string) {
	d.Mutex.Lock()
	defer d.Mutex.Unlock()
	d.Content = strings.Split(text, "\n")
}

func (h *Handler) didOpen(params *lsp.DidOpenTextDocumentParams) error {
	d := &doc{
		URI:         params.TextDocument.URI,
		Validations: make(chan validation, 100),
	}
	d.SetText(params.TextDocument.Text)
	h.mutex.Lock()
	h.docs[string(params.TextDocument.URI)] = d
	h.mutex.Unlock()
	go h.diagnose(d)
	h.requestValidation(d, true)
	return nil
}

// doc returns a document of the given URI, or panics if one doesn't exist.
func (h *Handler) doc(uri lsp.DocumentURI) *doc {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if doc := h.docs[string(uri)]; doc != nil {
		return doc
	}
	// Theoretically at least this shouldn't happen - it indicates we are getting
	// requests for a document without a didOpen first.
	panic("Unknown document " + string(uri))
}

func (h *Handler) didChange(params *lsp.DidChangeTextDocumentParams) error {
	doc := h.doc(params.TextDocument.URI)
	// Synchronise changes into the doc's contents
	for _, change := range params.ContentChanges {
		if change.Range != nil {
			return fmt.Errorf("non-incremental change received")
		}
		doc.SetText(change.Text)
	}
	h.requestValidation(doc, false)
	return nil
}

func (h *Handler) didSave(params *didSaveParams) error {
	doc := h.doc(params.TextDocument.URI)
	if params.Text != nil {
		// The client includes the saved text since we declare includeText; sync
		// it in case we missed a change notification.
		doc.SetText(*params.Text)
	}
	h.requestValidation(doc, true)
	return nil
}

func (h *Handler) didClose(params *lsp.DidCloseTextDocumentParams) error {
	d := h.doc(params.TextDocument.URI)
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.docs, string(d.URI))
	close(d.Validations)
	return nil
}
