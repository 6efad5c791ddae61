package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jdss/jdssctl/pkg/driver"
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/jdssconfig"
	"github.com/jdss/jdssctl/pkg/transport"
)

// newTestApp starts an httptest server running mux and returns an app
// wired to it, ready to be attached to a command's context, plus the
// server for shutdown. Mirrors pkg/driver's newTestDriver fixture one
// layer up.
func newTestApp(t *testing.T, mux *http.ServeMux, cfgValues map[string]string) (*app, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	tr := transport.New(transport.Config{Hosts: []string{u.Hostname()}, Port: port, Protocol: "http", Pool: "tank"})
	api := jdssapi.New(tr)

	if cfgValues == nil {
		cfgValues = map[string]string{}
	}
	if _, ok := cfgValues[jdssconfig.KeyPool]; !ok {
		cfgValues[jdssconfig.KeyPool] = "tank"
	}
	cfg := jdssconfig.New(cfgValues)

	a := &app{cfg: cfg, api: api, drv: driver.New(api, cfg), out: ""}
	return a, srv
}

// runCmd attaches a to cmd's context and executes it with args, returning
// whatever error the command produced.
func runCmd(t *testing.T, cmd *cobra.Command, a *app, args []string) error {
	t.Helper()
	cmd.SetArgs(args)
	ctx := context.WithValue(context.Background(), appContextKey{}, a)
	return cmd.ExecuteContext(ctx)
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything written to it. Subcommands print directly to os.Stdout via
// fmt.Println/plainTable rather than through cobra's output writer, so
// tests observe them this way instead of via cmd.SetOut.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	return string(out)
}

// decodeJSONBody decodes r's request body into out, for handlers that need
// to inspect what a command actually sent.
func decodeJSONBody(t *testing.T, r *http.Request, out any) {
	t.Helper()
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
}
