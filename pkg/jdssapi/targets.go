package jdssapi

import "context"

// Target is an iSCSI target record.
type Target struct {
	Name                 string   `json:"name"`
	Active               bool     `json:"active"`
	IncomingUsersActive  bool     `json:"incoming_users_active"`
	AllowIP              []string `json:"allow_ip,omitempty"`
}

// Lun is an attached LUN record on a target.
type Lun struct {
	Name string `json:"name"`
	Lun  int    `json:"lun"`
	Mode string `json:"mode,omitempty"`
}

// TargetUser is a CHAP incoming-user record.
type TargetUser struct {
	Name string `json:"name"`
}

// CreateTargetOpts configures CreateTarget.
type CreateTargetOpts struct {
	UseCHAP bool
	AllowIP []string
}

// CreateTarget issues POST /san/iscsi/targets.
func (a *API) CreateTarget(ctx context.Context, name string, opts CreateTargetOpts) error {
	body := map[string]any{
		"name":                  name,
		"active":                true,
		"incoming_users_active": opts.UseCHAP,
	}
	if len(opts.AllowIP) > 0 {
		body["allow_ip"] = opts.AllowIP
	}
	return a.post(ctx, name, "/san/iscsi/targets", body, nil)
}

// GetTarget issues GET /san/iscsi/targets/<name>.
func (a *API) GetTarget(ctx context.Context, name string) (*Target, error) {
	var t Target
	if err := a.get(ctx, name, "/san/iscsi/targets/"+name, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTargets issues GET /san/iscsi/targets. The appliance returns the full
// set directly rather than as pages.
func (a *API) ListTargets(ctx context.Context) ([]Target, error) {
	var targets []Target
	if err := a.get(ctx, "targets", "/san/iscsi/targets", &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// DeleteTarget issues DELETE /san/iscsi/targets/<name>.
func (a *API) DeleteTarget(ctx context.Context, name string) error {
	return a.delete(ctx, name, "/san/iscsi/targets/"+name, nil)
}

// AttachLunOpts configures AttachLun.
type AttachLunOpts struct {
	Mode string // "wt", "wb", or "ro"
}

// AttachLun issues POST /san/iscsi/targets/<target>/luns.
func (a *API) AttachLun(ctx context.Context, target, volume string, lun int, opts AttachLunOpts) error {
	body := map[string]any{"name": volume, "lun": lun}
	if opts.Mode != "" {
		body["mode"] = opts.Mode
	}
	return a.post(ctx, volume, "/san/iscsi/targets/"+target+"/luns", body, nil)
}

// DetachLun issues DELETE /san/iscsi/targets/<target>/luns/<volume>.
func (a *API) DetachLun(ctx context.Context, target, volume string) error {
	return a.delete(ctx, volume, "/san/iscsi/targets/"+target+"/luns/"+volume, nil)
}

// GetLuns issues GET /san/iscsi/targets/<target>/luns.
func (a *API) GetLuns(ctx context.Context, target string) ([]Lun, error) {
	var luns []Lun
	if err := a.get(ctx, target, "/san/iscsi/targets/"+target+"/luns", &luns); err != nil {
		return nil, err
	}
	return luns, nil
}

// SetAssignedVIPs issues PUT /san/iscsi/targets/<target> with the VIP-name
// set the target should advertise.
func (a *API) SetAssignedVIPs(ctx context.Context, target string, vips []string) error {
	body := map[string]any{"allow_ip": vips}
	return a.put(ctx, target, "/san/iscsi/targets/"+target, body, nil)
}

// CHAPCredential is a target incoming-user credential pair.
type CHAPCredential struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateTargetUser issues POST /san/iscsi/targets/<target>/incoming-users.
func (a *API) CreateTargetUser(ctx context.Context, target string, cred CHAPCredential) error {
	return a.post(ctx, target, "/san/iscsi/targets/"+target+"/incoming-users", cred, nil)
}

// GetTargetUsers issues GET /san/iscsi/targets/<target>/incoming-users.
func (a *API) GetTargetUsers(ctx context.Context, target string) ([]TargetUser, error) {
	var users []TargetUser
	if err := a.get(ctx, target, "/san/iscsi/targets/"+target+"/incoming-users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteTargetUser issues DELETE .../incoming-users/<user>.
func (a *API) DeleteTargetUser(ctx context.Context, target, user string) error {
	return a.delete(ctx, target, "/san/iscsi/targets/"+target+"/incoming-users/"+user, nil)
}

// VIP is an appliance network virtual IP entry.
type VIP struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ListVIPs issues GET /network/vips, the appliance's VIP table used to
// resolve "conforming VIPs" during target creation.
func (a *API) ListVIPs(ctx context.Context) ([]VIP, error) {
	var vips []VIP
	if err := a.get(ctx, "vips", "/network/vips", &vips); err != nil {
		return nil, err
	}
	return vips, nil
}
