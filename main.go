package main

import (
	"context"
	"net"
	"os"

	"github.com/sourcegraph/jsonrpc2"
	"gopkg.in/op/go-logging.v1"

	"github.com/sfodje/perlcritic/src/cli"
	"github.com/sfodje/perlcritic/src/lsp"
)

var log = logging.MustGetLogger("perlcritic-langserver")

var opts = struct {
	Usage     string
	Verbosity cli.Verbosity `short:"v" long:"verbosity" default:"warning" description:"Verbosity of output (higher number = more output)"`

	Mode string `short:"m" long:"mode" default:"stdio" choice:"stdio" choice:"tcp" description:"Mode of the language server communication"`
	Host string `short:"h" long:"host" default:"127.0.0.1" description:"TCP host to listen on"`
	Port string `short:"p" long:"port" default:"4389" description:"TCP port to listen on"`
}{
	Usage: `
perlcritic-langserver is a language server that runs perlcritic against the Perl documents
open in your editor and republishes its criticisms as diagnostics.

It speaks the language server protocol over stdio or TCP; point your editor's LSP client
at this binary to enable it. perlcritic itself must be installed separately.
`,
}

func main() {
	cli.ParseFlagsOrDie("perlcritic-langserver", &opts)
	cli.InitLogging(opts.Verbosity)

	if opts.Mode == "tcp" {
		serveTCP(net.JoinHostPort(opts.Host, opts.Port))
	} else {
		log.Info("perlcritic-langserver: reading on stdin, writing on stdout")
		serve(jsonrpc2.NewBufferedStream(stdrwc{}, jsonrpc2.VSCodeObjectCodec{}))
		log.Info("connection closed")
	}
}

func serveTCP(addr string) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %s", addr, err)
	}
	log.Notice("perlcritic-langserver: listening on %s", addr)
	for {
		conn, err := lis.Accept()
		if err != nil {
			log.Fatalf("Failed to accept connection: %s", err)
		}
		log.Info("Accepted connection from %s", conn.RemoteAddr())
		go serve(jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{}))
	}
}

func serve(stream jsonrpc2.ObjectStream) {
	h := lsp.NewHandler()
	conn := jsonrpc2.NewConn(context.Background(), stream, h, jsonrpc2.LogMessages(lsp.Logger{}))
	h.Conn = conn
	<-conn.DisconnectNotify()
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
