package jdssapi

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// prefetchWidth bounds how many pages are spooled ahead of the page the
// caller has consumed so far.
const prefetchWidth = 4

// listPaged fetches successive pages of a GET listing endpoint, decoding
// each page's "entries" array into T, until an empty page terminates the
// listing. Pages inside one prefetch window are requested concurrently;
// listing is read-only, so speculative reads never reorder writes.
func listPaged[T any](ctx context.Context, a *API, resource string, pathForPage func(pageIdx int) string) ([]T, error) {
	var all []T
	pageIdx := 0

	for {
		group, gctx := errgroup.WithContext(ctx)
		results := make([][]T, prefetchWidth)
		failures := make([]error, prefetchWidth)

		for i := 0; i < prefetchWidth; i++ {
			slot, p := i, pageIdx+i
			group.Go(func() error {
				entries, err := fetchPage[T](gctx, a, resource, pathForPage(p))
				results[slot] = entries
				failures[slot] = err
				return nil
			})
		}
		_ = group.Wait()

		exhausted := false
		for i := 0; i < prefetchWidth; i++ {
			if failures[i] != nil {
				return nil, failures[i]
			}
			if len(results[i]) == 0 {
				exhausted = true
				break
			}
			all = append(all, results[i]...)
		}
		if exhausted {
			break
		}
		pageIdx += prefetchWidth
	}

	return all, nil
}

func fetchPage[T any](ctx context.Context, a *API, resource, path string) ([]T, error) {
	resp, err := a.t.PoolRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !resp.Ok() {
		return nil, classify(resource, resp)
	}
	var decoded struct {
		Entries []T `json:"entries"`
	}
	if err := decode(resp, &decoded); err != nil {
		return nil, err
	}
	return decoded.Entries, nil
}

func pagePath(base string, pageIdx int) string {
	return fmt.Sprintf("%s?page=%d", base, pageIdx)
}
