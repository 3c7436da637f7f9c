// Package lsp implements the Language Server Protocol for perlcritic.
//
// The server's only analysis feature is diagnostics: every open Perl document is
// run through perlcritic and the resulting critiques are published back to the
// editor. Everything else here is the plumbing to keep documents in sync and
// settings up to date.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"gopkg.in/op/go-logging.v1"

	"github.com/sfodje/perlcritic/src/critic"
)

var log = logging.MustGetLogger("lsp")

// A Handler is a handler suitable for use with jsonrpc2.
type Handler struct {
	Conn     Conn
	docs     map[string]*doc
	mutex    sync.Mutex // guards docs and settings
	runner   *critic.Runner
	root     string
	defaults critic.Settings
	settings critic.Settings
	// True once the client has declared support for diagnostic relatedInformation.
	supportsRelatedInfo bool
}

// A Conn is a minimal set of the jsonrpc2.Conn that we need.
type Conn interface {
	io.Closer
	// Notify sends an asynchronous notification.
	Notify(ctx context.Context, method string, params interface{}, opts ...jsonrpc2.CallOption) error
}

// NewHandler returns a new Handler.
func NewHandler() *Handler {
	return &Handler{
		docs:     map[string]*doc{},
		runner:   critic.NewRunner(),
		defaults: critic.DefaultSettings(),
		settings: critic.DefaultSettings(),
	}
}

// Handle implements the jsonrpc2.Handler interface
func (h *Handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if resp, err := h.handle(req.Method, req.Params); err != nil {
		if err := conn.ReplyWithError(ctx, req.ID, err.(*jsonrpc2.Error)); err != nil {
			log.Error("Failed to send error response: %s", err)
		}
	} else if resp != nil {
		if err := conn.Reply(ctx, req.ID, resp); err != nil {
			log.Error("Failed to send response: %s", err)
		}
	}
}

// handle is the slightly higher-level handler that deals with individual methods.
func (h *Handler) handle(method string, params *json.RawMessage) (res interface{}, err error) {
	start := time.Now()
	log.Debug("Received %s message", method)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in handler for %s: %s", method, r)
			log.Debug("%s\n%v", r, string(debug.Stack()))
			err = &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInternalError,
				Message: fmt.Sprintf("%s", r),
			}
		} else {
			log.Debug("Handled %s message in %s", method, time.Since(start))
		}
	}()

	switch method {
	case "initialize":
		initParams := &initializeParams{}
		if err := json.Unmarshal(*params, initParams); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
		}
		return h.initialize(initParams)
	case "initialized":
		// Nothing to do; all our setup happens at initialize.
		return nil, nil
	case "shutdown":
		return nil, nil
	case "exit":
		// exit is a request to terminate the process. We do this preferably by shutting
		// down the RPC connection but if we can't we just die.
		if h.Conn != nil {
			if err := h.Conn.Close(); err != nil {
				log.Fatalf("Failed to close connection: %s", err)
			}
		} else {
			log.Fatalf("No active connection to shut down")
		}
		return nil, nil
	case "textDocument/didOpen":
		didOpenParams := &lsp.DidOpenTextDocumentParams{}
		if err := json.Unmarshal(*params, didOpenParams); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
		}
		return nil, h.didOpen(didOpenParams)
	case "textDocument/didChange":
		didChangeParams := &lsp.DidChangeTextDocumentParams{}
		if err := json.Unmarshal(*params, didChangeParams); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
		}
		return nil, h.didChange(didChangeParams)
	case "textDocument/didSave":
		saveParams := &didSaveParams{}
		if err := json.Unmarshal(*params, saveParams); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
		}
		return nil, h.didSave(saveParams)
	case "textDocument/didClose":
		didCloseParams := &lsp.DidCloseTextDocumentParams{}
		if err := json.Unmarshal(*params, didCloseParams); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
		}
		return nil, h.didClose(didCloseParams)
	case "workspace/didChangeConfiguration":
		configParams := &didChangeConfigurationParams{}
		if err := json.Unmarshal(*params, configParams); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
		}
		return nil, h.didChangeConfiguration(configParams)
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound}
	}
}

func (h *Handler) initialize(params *initializeParams) (*lsp.InitializeResult, error) {
	// An absent rootUri means a single-file session; there is no workspace to
	// read a settings file from.
	root := ""
	settings := critic.DefaultSettings()
	if params.RootURI != "" {
		root = fromURI(params.RootURI)
		if s, err := critic.ReadSettingsFile(root); err != nil {
			log.Error("Error reading settings file: %s", err)
		} else {
			settings = s
		}
	}
	h.mutex.Lock()
	h.root = root
	h.defaults = settings
	h.settings = settings
	if params.InitializationOptions != nil && len(params.InitializationOptions.Perlcritic) > 0 {
		h.settings = overlaySettings(settings, params.InitializationOptions.Perlcritic)
	}
	h.supportsRelatedInfo = params.Capabilities.TextDocument.PublishDiagnostics.RelatedInformation
	settings = h.settings
	h.mutex.Unlock()
	if err := settings.Validate(); err != nil {
		log.Warning("Invalid settings: %s", err)
	}
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
					Save:      &lsp.SaveOptions{IncludeText: true},
				},
			},
		},
	}, nil
}

// fromURI converts a DocumentURI to a path.
func fromURI(uri lsp.DocumentURI) string {
	if !strings.HasPrefix(string(uri), "file://") {
		panic("invalid uri: " + uri)
	}
	return string(uri[7:])
}

// A Logger provides an interface to our logger.
type Logger struct{}

// Printf implements the jsonrpc2.Logger interface.
func (l Logger) Printf(tmpl string, args ...interface{}) {
	log.Info(tmpl, args...)
}
