package jdssapi

import "context"

// Share is an NFS or CIFS export record.
type Share struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	RealPath string `json:"real_path"`
	Active   bool   `json:"active"`
	NFS      bool   `json:"nfs"`
	CIFS     bool   `json:"cifs"`
	Insecure bool   `json:"insecure"`
	Sync     bool   `json:"sync"`
}

// CreateShareOpts configures CreateShare.
type CreateShareOpts struct {
	Active   bool
	NFS      bool
	CIFS     bool
	Insecure bool
	Sync     bool
}

// CreateShare issues POST /shares.
func (a *API) CreateShare(ctx context.Context, name, path string, opts CreateShareOpts) error {
	body := map[string]any{
		"name":     name,
		"path":     path,
		"active":   opts.Active,
		"nfs":      opts.NFS,
		"cifs":     opts.CIFS,
		"insecure": opts.Insecure,
		"sync":     opts.Sync,
	}
	return a.post(ctx, name, "/shares", body, nil)
}

// GetShare issues GET /shares/<name>.
func (a *API) GetShare(ctx context.Context, name string) (*Share, error) {
	var s Share
	if err := a.get(ctx, name, "/shares/"+name, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteShare issues DELETE /shares/<name>.
func (a *API) DeleteShare(ctx context.Context, name string) error {
	return a.delete(ctx, name, "/shares/"+name, nil)
}

// ListShares paginates GET /shares.
func (a *API) ListShares(ctx context.Context) ([]Share, error) {
	return listPaged[Share](ctx, a, "shares", func(p int) string { return pagePath("/shares", p) })
}

// ShareUser is a CIFS share user credential.
type ShareUser struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

// CreateShareUser issues POST /shares/<name>/users.
func (a *API) CreateShareUser(ctx context.Context, share string, user ShareUser) error {
	return a.post(ctx, share, "/shares/"+share+"/users", user, nil)
}

// SetShareUsers issues PUT /shares/<name>/users, replacing the share's
// user set wholesale.
func (a *API) SetShareUsers(ctx context.Context, share string, users []ShareUser) error {
	return a.put(ctx, share, "/shares/"+share+"/users", users, nil)
}
