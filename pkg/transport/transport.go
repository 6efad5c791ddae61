// Package transport implements the REST client against the storage
// appliance: host-list failover with a sticky active host, TLS
// verification control, basic auth, and the {code,error,data} response
// envelope decoder.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/metrics"
)

// Config describes how to reach the appliance.
type Config struct {
	Hosts         []string
	Port          int
	Protocol      string // "http" or "https"
	Login         string
	Password      string
	Pool          string
	SkipTLSVerify bool
	Timeout       time.Duration
}

// Response is the decoded appliance envelope.
type Response struct {
	Code  int
	Error *ApplianceError
	Data  json.RawMessage
}

// ApplianceError is the appliance-specific error envelope nested inside a
// failing Response.
type ApplianceError struct {
	Class   string `json:"class"`
	Code    int    `json:"code"`
	Errno   int    `json:"errno"`
	Message string `json:"message"`
}

// Envelope adapts a Response into the tuple the error classifier consumes.
func (r *Response) Envelope() errs.Envelope {
	e := errs.Envelope{Status: r.Code}
	if r.Error != nil {
		e.Class = r.Error.Class
		e.Message = r.Error.Message
		e.Errno = r.Error.Errno
	}
	return e
}

// Ok reports whether the response carries a 2xx status.
func (r *Response) Ok() bool { return r.Code >= 200 && r.Code < 300 }

// Transport issues REST calls against the active host, rotating to the
// next configured host on connection-level failure and remembering the
// new active host for subsequent calls.
//
//nolint:govet // fieldalignment: struct field order optimized for readability
type Transport struct {
	mu        sync.Mutex
	client    *http.Client
	hosts     []string
	activeIdx int
	port      int
	protocol  string
	login     string
	password  string
	pool      string
}

// New builds a Transport from cfg.
func New(cfg Config) *Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{}
	if cfg.SkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in, self-signed appliance certs
	}
	return &Transport{
		client:   &http.Client{Timeout: timeout, Transport: transport},
		hosts:    cfg.Hosts,
		port:     cfg.Port,
		protocol: cfg.Protocol,
		login:    cfg.Login,
		password: cfg.Password,
		pool:     cfg.Pool,
	}
}

// Request issues method against path on the currently active host,
// failing over to subsequent hosts on connection-level errors.
func (t *Transport) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	return t.do(ctx, method, path, body)
}

// PoolRequest is Request prefixed with /pools/<pool>.
func (t *Transport) PoolRequest(ctx context.Context, method, path string, body any) (*Response, error) {
	return t.do(ctx, method, "/pools/"+t.pool+path, body)
}

func (t *Transport) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	t.mu.Lock()
	start := t.activeIdx
	hosts := t.hosts
	t.mu.Unlock()

	if len(hosts) == 0 {
		return nil, errs.New(errs.KindCommunicationFailure, path, "no appliance hosts configured")
	}

	var lastErr error
	for i := 0; i < len(hosts); i++ {
		idx := (start + i) % len(hosts)
		host := hosts[idx]

		reqStart := time.Now()
		resp, err := t.attempt(ctx, host, method, path, payload)
		if err == nil {
			metrics.RecordRESTRequest(method, "success", time.Since(reqStart))
			t.mu.Lock()
			t.activeIdx = idx
			t.mu.Unlock()
			metrics.SetActiveHostIndex(idx)
			return resp, nil
		}

		metrics.RecordRESTRequest(method, "error", time.Since(reqStart))
		if i < len(hosts)-1 {
			metrics.RecordHostFailover()
		}
		klog.V(4).Infof("appliance host %s failed for %s %s: %v", host, method, path, err)
		lastErr = err
	}

	return nil, errs.Wrap(errs.KindCommunicationFailure, strings.Join(hosts, ","), fmt.Errorf("%s %s: %w", method, path, lastErr))
}

func (t *Transport) attempt(ctx context.Context, host, method, path string, payload []byte) (*Response, error) {
	url := fmt.Sprintf("%s://%s:%d%s", t.protocol, host, t.port, path)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if t.login != "" {
		req.SetBasicAuth(t.login, t.password)
	}

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	resp := &Response{Code: httpResp.StatusCode}
	if len(raw) == 0 {
		return resp, nil
	}

	var envelope struct {
		Error *ApplianceError `json:"error"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Some endpoints return the resource body directly rather than
		// wrapped in {data:...}; treat the whole payload as data.
		resp.Data = raw
		return resp, nil
	}
	resp.Error = envelope.Error
	if envelope.Data != nil {
		resp.Data = envelope.Data
	} else {
		resp.Data = raw
	}
	return resp, nil
}
