// Package jdssapi is the typed REST facade over the storage appliance.
// Each method issues its REST call (paged listings issue one per page),
// classifies the response through pkg/errs, and returns a decoded
// record or a taxonomy error. Methods do not validate their inputs and
// never retry; idempotency is left to the caller.
package jdssapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/transport"
)

// API wraps a transport.Transport with resource-shaped methods.
type API struct {
	t *transport.Transport
}

// New builds an API over t.
func New(t *transport.Transport) *API {
	return &API{t: t}
}

// decode unmarshals resp.Data into out, treating a nil out as "discard".
func decode(resp *transport.Response, out any) error {
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return errs.Wrap(errs.KindRESTProtocol, "", err)
	}
	return nil
}

// classify turns a non-2xx response into a taxonomy error for resource.
func classify(resource string, resp *transport.Response) error {
	return errs.FromEnvelope(resource, resp.Envelope())
}

func (a *API) get(ctx context.Context, resource, path string, out any) error {
	resp, err := a.t.PoolRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if !resp.Ok() {
		return classify(resource, resp)
	}
	return decode(resp, out)
}

func (a *API) post(ctx context.Context, resource, path string, body, out any) error {
	resp, err := a.t.PoolRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if !resp.Ok() {
		return classify(resource, resp)
	}
	return decode(resp, out)
}

func (a *API) put(ctx context.Context, resource, path string, body, out any) error {
	resp, err := a.t.PoolRequest(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	if !resp.Ok() {
		return classify(resource, resp)
	}
	return decode(resp, out)
}

func (a *API) delete(ctx context.Context, resource, path string, body any) error {
	resp, err := a.t.PoolRequest(ctx, http.MethodDelete, path, body)
	if err != nil {
		return err
	}
	if !resp.Ok() {
		return classify(resource, resp)
	}
	return nil
}
