package driver

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/jdssutil"
	"github.com/jdss/jdssctl/pkg/nameid"
)

// TargetVolumeLun is the (target, lun, attached?, new-target?) tuple the
// allocator resolves a physical volume name to.
type TargetVolumeLun struct {
	Target   string
	Lun      int
	Attached bool
	New      bool
}

// acquireTargetVolumeLun packs vname into a target named
// "<prefix><group>-<N>" subject to lunsPerTarget, returning an existing
// assignment if one is found, an open slot in an existing target, or the
// next unused target index.
func (d *Driver) acquireTargetVolumeLun(ctx context.Context, prefix, group, vname string, lunsPerTarget int) (TargetVolumeLun, error) {
	tbase := prefix + group
	if !strings.HasSuffix(prefix, ":") {
		tbase = prefix + ":" + group
	}

	targets, err := d.api.ListTargets(ctx)
	if err != nil {
		return TargetVolumeLun{}, err
	}

	targetRe := regexp.MustCompile(`^` + regexp.QuoteMeta(tbase) + `-(\d+)$`)

	var relatedTargets []string
	usedIdx := map[int]bool{}
	for _, t := range targets {
		m := targetRe.FindStringSubmatch(t.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		relatedTargets = append(relatedTargets, t.Name)
		usedIdx[n] = true
	}
	sort.Strings(relatedTargets)

	var candidateTarget string
	candidateLun := -1

	for _, rt := range relatedTargets {
		luns, err := d.api.GetLuns(ctx, rt)
		if err != nil {
			return TargetVolumeLun{}, err
		}
		var taken []int
		for _, l := range luns {
			if l.Name == vname {
				return TargetVolumeLun{Target: rt, Lun: l.Lun, Attached: true}, nil
			}
			taken = append(taken, l.Lun)
		}
		if candidateTarget == "" {
			if len(taken) >= lunsPerTarget {
				continue
			}
			if free := jdssutil.LowestFreeIntBelow(taken, lunsPerTarget); free >= 0 {
				candidateTarget, candidateLun = rt, free
			}
		}
	}

	if candidateTarget != "" {
		return TargetVolumeLun{Target: candidateTarget, Lun: candidateLun}, nil
	}

	for i := 0; ; i++ {
		if usedIdx[i] {
			continue
		}
		candidate := fmt.Sprintf("%s-%d", tbase, i)
		if _, err := d.api.GetTarget(ctx, candidate); err != nil {
			if errs.Is(err, errs.KindTargetNotFound) {
				return TargetVolumeLun{Target: candidate, New: true}, nil
			}
			return TargetVolumeLun{}, err
		}
	}
}

// conformingVIPs resolves the VIP-name set to assign to a newly created
// or reconciled target: the configured iSCSI VIP whitelist, falling back
// to the plain host list when empty, intersected by address against the
// appliance's VIP table.
func (d *Driver) conformingVIPs(ctx context.Context) (map[string]string, error) {
	addresses := d.cfg.ISCSIVIPAddresses()
	if len(addresses) == 0 {
		addresses = d.cfg.SanHosts()
	}
	allowed := map[string]bool{}
	for _, a := range addresses {
		allowed[a] = true
	}

	vips, err := d.api.ListVIPs(ctx)
	if err != nil {
		return nil, err
	}

	conforming := map[string]string{}
	for _, v := range vips {
		if allowed[v.Address] {
			conforming[v.Name] = v.Address
		}
	}
	if len(conforming) == 0 {
		return nil, errs.New(errs.KindVIPNotFound, strings.Join(addresses, ","), "no configured VIP address matches the appliance VIP table")
	}
	return conforming, nil
}

func vipValues(vips map[string]string) []string {
	out := make([]string, 0, len(vips))
	for _, addr := range vips {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

func vipNames(vips map[string]string) []string {
	out := make([]string, 0, len(vips))
	for name := range vips {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CHAPAuth is the parsed form of the appliance's single
// "<method> <user> <password>" provider_auth string.
type CHAPAuth struct {
	Method   string
	User     string
	Password string
}

// ParseCHAPAuth splits the space-separated provider_auth triple.
func ParseCHAPAuth(providerAuth string) (*CHAPAuth, error) {
	if providerAuth == "" {
		return nil, nil
	}
	fields := strings.Fields(providerAuth)
	if len(fields) != 3 {
		return nil, errs.New(errs.KindOSInternal, providerAuth, "provider_auth must be '<method> <user> <password>'")
	}
	return &CHAPAuth{Method: fields[0], User: fields[1], Password: fields[2]}, nil
}

// Publication is the result of attaching a volume to a target: what a
// client needs to connect.
type Publication struct {
	Target   string
	Lun      int
	VIPs     []string
	Username string
	Password string
}

func (d *Driver) attachTargetVolumeLun(ctx context.Context, target, vname string, lun int) error {
	if err := d.api.AttachLun(ctx, target, vname, lun, jdssapi.AttachLunOpts{}); err != nil {
		return fmt.Errorf("attach volume %s to target %s lun %d: %w", vname, target, lun, err)
	}
	return nil
}

func (d *Driver) setTargetCredentials(ctx context.Context, target string, cred jdssapi.CHAPCredential) error {
	if err := d.api.CreateTargetUser(ctx, target, cred); err != nil {
		if derr := d.api.DeleteTarget(ctx, target); derr != nil {
			klog.V(4).Infof("cleanup of half-configured target %s failed: %v", target, derr)
		}
		return fmt.Errorf("create user %s for target %s: %w", cred.Name, target, err)
	}
	return nil
}

func (d *Driver) createTargetVolumeLun(ctx context.Context, target, vname string, lun int, auth *CHAPAuth) (*Publication, error) {
	klog.V(4).Infof("create target %s and assign volume %s to lun %d", target, vname, lun)

	conforming, err := d.conformingVIPs(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.api.CreateTarget(ctx, target, jdssapi.CreateTargetOpts{UseCHAP: auth != nil}); err != nil {
		return nil, err
	}

	pub := &Publication{Target: target, VIPs: vipValues(conforming), Lun: lun}

	if err := d.attachTargetVolumeLun(ctx, target, vname, lun); err != nil {
		if !errs.Is(err, errs.KindVolumeBusy) {
			return nil, err
		}
		klog.V(4).Infof("volume %s busy attaching to new target %s, detaching and retrying once", vname, target)
		if derr := d.detachVolume(ctx, vname); derr != nil {
			return nil, derr
		}
		if err := d.attachTargetVolumeLun(ctx, target, vname, lun); err != nil {
			return nil, err
		}
	}

	if auth != nil {
		pub.Username, pub.Password = auth.User, auth.Password
		if err := d.setTargetCredentials(ctx, target, jdssapi.CHAPCredential{Name: auth.User, Password: auth.Password}); err != nil {
			return nil, err
		}
	}
	return pub, nil
}

func (d *Driver) detachTargetVolume(ctx context.Context, target, vname string) error {
	klog.V(4).Infof("detach target %s volume %s", target, vname)

	if err := d.api.DetachLun(ctx, target, vname); err != nil && !errs.Is(err, errs.KindVolumeNotFound) {
		return err
	}

	luns, err := d.api.GetLuns(ctx, target)
	if err != nil {
		return err
	}
	if len(luns) == 0 {
		if err := d.api.DeleteTarget(ctx, target); err != nil && !errs.Is(err, errs.KindTargetNotFound) {
			return err
		}
	}
	return nil
}

// ensureTargetVolumeLun reconciles an existing target's VIP assignment,
// LUN attachment, and CHAP users against the desired state, creating the
// target from scratch if it does not yet exist.
func (d *Driver) ensureTargetVolumeLun(ctx context.Context, target, vname string, lun int, auth *CHAPAuth) (*Publication, error) {
	klog.V(4).Infof("ensure volume %s assigned to target %s lun %d", vname, target, lun)

	targetData, err := d.api.GetTarget(ctx, target)
	if err != nil {
		if !errs.Is(err, errs.KindTargetNotFound) {
			return nil, err
		}
		return d.createTargetVolumeLun(ctx, target, vname, lun, auth)
	}

	conforming, err := d.conformingVIPs(ctx)
	if err != nil {
		return nil, err
	}
	if !stringSetEqual(targetData.AllowIP, vipNames(conforming)) {
		if err := d.api.SetAssignedVIPs(ctx, target, vipNames(conforming)); err != nil {
			return nil, err
		}
	}

	pub := &Publication{Target: target, VIPs: vipValues(conforming), Lun: lun}

	attached, err := d.isVolumeOnLun(ctx, target, vname, lun)
	if err != nil {
		return nil, err
	}
	if !attached {
		if err := d.attachTargetVolumeLun(ctx, target, vname, lun); err != nil {
			return nil, err
		}
	}

	if auth == nil {
		return pub, nil
	}
	pub.Username, pub.Password = auth.User, auth.Password

	users, err := d.api.GetTargetUsers(ctx, target)
	if err != nil {
		if derr := d.api.DeleteTarget(ctx, target); derr != nil {
			klog.V(4).Infof("cleanup of target %s failed: %v", target, derr)
		}
		return nil, err
	}
	if len(users) == 1 && users[0].Name == auth.User {
		return pub, nil
	}
	for _, u := range users {
		if err := d.api.DeleteTargetUser(ctx, target, u.Name); err != nil {
			if derr := d.api.DeleteTarget(ctx, target); derr != nil {
				klog.V(4).Infof("cleanup of target %s failed: %v", target, derr)
			}
			return nil, err
		}
	}
	if err := d.setTargetCredentials(ctx, target, jdssapi.CHAPCredential{Name: auth.User, Password: auth.Password}); err != nil {
		return nil, err
	}
	return pub, nil
}

func (d *Driver) isVolumeOnLun(ctx context.Context, target, vname string, lun int) (bool, error) {
	luns, err := d.api.GetLuns(ctx, target)
	if err != nil {
		return false, err
	}
	for _, l := range luns {
		if l.Name == vname && l.Lun == lun {
			return true, nil
		}
	}
	return false, nil
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// EnsureTargetVolumeOpts configures EnsureTargetVolume.
type EnsureTargetVolumeOpts struct {
	ProviderAuth  string
	LunsPerTarget int
}

// EnsureTargetVolume attaches volumeID to a target under (prefix, group),
// creating the target if none has room, and reconciling VIPs/CHAP if it
// already exists.
func (d *Driver) EnsureTargetVolume(ctx context.Context, prefix, group, volumeID string, opts EnsureTargetVolumeOpts) (*Publication, error) {
	return d.attachVolumeToTarget(ctx, prefix, group, nameid.VName(volumeID), opts)
}

// attachVolumeToTarget is EnsureTargetVolume's physical-name-level core:
// it operates on vname directly instead of deriving it from a logical
// volume ID, so callers already holding a physical name (e.g. a
// snapshot mount clone) don't have to round-trip it through
// IDName/VName just to get back the name they started with.
func (d *Driver) attachVolumeToTarget(ctx context.Context, prefix, group, vname string, opts EnsureTargetVolumeOpts) (*Publication, error) {
	lunsPerTarget := opts.LunsPerTarget
	if lunsPerTarget <= 0 {
		lunsPerTarget = d.cfg.LunsPerTarget()
	}

	auth, err := ParseCHAPAuth(opts.ProviderAuth)
	if err != nil {
		return nil, err
	}

	if _, err := d.api.GetVolume(ctx, vname); err != nil {
		return nil, err
	}

	tvld, err := d.acquireTargetVolumeLun(ctx, prefix, group, vname, lunsPerTarget)
	if err != nil {
		return nil, err
	}

	if tvld.New {
		return d.createTargetVolumeLun(ctx, tvld.Target, vname, tvld.Lun, auth)
	}
	return d.ensureTargetVolumeLun(ctx, tvld.Target, vname, tvld.Lun, auth)
}

// detachVolume scans every target for vname and detaches it, deleting the
// target if it was the only LUN attached. A no-op if vname is attached
// nowhere.
func (d *Driver) detachVolume(ctx context.Context, vname string) error {
	targets, err := d.api.ListTargets(ctx)
	if err != nil {
		return err
	}
	for _, t := range targets {
		luns, err := d.api.GetLuns(ctx, t.Name)
		if err != nil {
			return err
		}
		for _, l := range luns {
			if l.Name != vname {
				continue
			}
			if len(luns) == 1 {
				return d.api.DeleteTarget(ctx, t.Name)
			}
			return d.api.DetachLun(ctx, t.Name, vname)
		}
	}
	return nil
}

// RemoveExport detaches volumeID from its (prefix, group) target, and
// deletes the target if that was its only LUN.
func (d *Driver) RemoveExport(ctx context.Context, prefix, group, volumeID string) error {
	return d.detachVolumeFromTarget(ctx, prefix, group, nameid.VName(volumeID))
}

// detachVolumeFromTarget is RemoveExport's physical-name-level core, see
// attachVolumeToTarget.
func (d *Driver) detachVolumeFromTarget(ctx context.Context, prefix, group, vname string) error {
	tvld, err := d.acquireTargetVolumeLun(ctx, prefix, group, vname, d.cfg.LunsPerTarget())
	if err != nil {
		return err
	}
	if tvld.New {
		return nil
	}
	return d.detachTargetVolume(ctx, tvld.Target, vname)
}
