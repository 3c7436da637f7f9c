package lsp

import (
	"encoding/json"

	"github.com/sourcegraph/go-lsp"
)

// go-lsp predates a few parts of the protocol that we need; the types here fill
// in those gaps, mirroring the upstream protocol spec.

// A diagnostic extends go-lsp's Diagnostic with the relatedInformation field
// introduced in protocol 3.7.
type diagnostic struct {
	lsp.Diagnostic
	RelatedInformation []diagnosticRelatedInformation `json:"relatedInformation,omitempty"`
}

// diagnosticRelatedInformation represents a related message and source code
// location for a diagnostic.
type diagnosticRelatedInformation struct {
	Location lsp.Location `json:"location"`
	Message  string       `json:"message"`
}

type publishDiagnosticsParams struct {
	URI         lsp.DocumentURI `json:"uri"`
	Diagnostics []diagnostic    `json:"diagnostics"`
}

// didSaveParams adds the text field that go-lsp is missing on save notifications;
// it is populated when the server declares includeText in its save options.
type didSaveParams struct {
	TextDocument lsp.TextDocumentIdentifier `json:"textDocument"`
	Text         *string                    `json:"text,omitempty"`
}

// initializeParams redeclares the parts of the initialize request that go-lsp's
// version doesn't carry: typed initializationOptions and the publishDiagnostics
// client capability.
type initializeParams struct {
	lsp.InitializeParams
	InitializationOptions *initializationOptions `json:"initializationOptions,omitempty"`
	Capabilities          clientCapabilities     `json:"capabilities"`
}

type initializationOptions struct {
	Perlcritic json.RawMessage `json:"perlcritic,omitempty"`
}

type clientCapabilities struct {
	TextDocument struct {
		PublishDiagnostics struct {
			RelatedInformation bool `json:"relatedInformation"`
		} `json:"publishDiagnostics"`
	} `json:"textDocument"`
}

type didChangeConfigurationParams struct {
	Settings struct {
		Perlcritic json.RawMessage `json:"perlcritic,omitempty"`
	} `json:"settings"`
}
