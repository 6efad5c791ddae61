package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/jdss/jdssctl/pkg/jdssconfig"
)

// TestTargetsCreateAttachesToExistingTarget exercises the reconciliation
// path of EnsureTargetVolume against a target that already exists and
// already has the volume's LUN attached and VIPs set correctly, so no
// SetAssignedVIPs/AttachLun call should happen. See
// TestTargetsCreateNewTarget below for the create-from-scratch path.
func TestTargetsCreateAttachesToExistingTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/volumes/v_myvol", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"v_myvol","volsize":"1073741824"}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"iqn.2020-01:grp-0","active":true,"allow_ip":["vip1"]}]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0/luns", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"v_myvol","lun":0}]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"iqn.2020-01:grp-0","active":true,"allow_ip":["vip1"]}`))
	})
	mux.HandleFunc("/pools/tank/network/vips", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"vip1","address":"10.0.0.5"}]`))
	})

	a, srv := newTestApp(t, mux, map[string]string{jdssconfig.KeyISCSIVIPAddresses: "10.0.0.5"})
	defer srv.Close()

	out := captureStdout(t, func() {
		err := runCmd(t, newTargetsCreateCmd(), a, []string{
			"--volume", "myvol",
			"--target-prefix", "iqn.2020-01",
			"--target-group-name", "grp",
		})
		if err != nil {
			t.Fatalf("targets create error = %v", err)
		}
	})

	if !strings.HasPrefix(out, "iqn.2020-01:grp-0 0 10.0.0.5\n") {
		t.Fatalf("targets create output = %q, want target/lun/vip line", out)
	}
}

// TestTargetsCreateWithCHAPGeneratesCredential covers the same
// already-reconciled target, but with --chap-user set: the target has no
// incoming users yet, so a CreateTargetUser call should follow, and the
// generated username/password should be printed.
func TestTargetsCreateWithCHAPGeneratesCredential(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/volumes/v_myvol", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"v_myvol","volsize":"1073741824"}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"iqn.2020-01:grp-0","active":true,"allow_ip":["vip1"]}]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0/luns", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"v_myvol","lun":0}]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"iqn.2020-01:grp-0","active":true,"allow_ip":["vip1"]}`))
	})
	mux.HandleFunc("/pools/tank/network/vips", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"vip1","address":"10.0.0.5"}]`))
	})
	var gotUser, gotPassword string
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0/incoming-users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[]`))
			return
		}
		body := struct {
			Name     string `json:"name"`
			Password string `json:"password"`
		}{}
		decodeJSONBody(t, r, &body)
		gotUser, gotPassword = body.Name, body.Password
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	a, srv := newTestApp(t, mux, map[string]string{
		jdssconfig.KeyISCSIVIPAddresses: "10.0.0.5",
		jdssconfig.KeyCHAPPasswordLen:   "12",
	})
	defer srv.Close()

	out := captureStdout(t, func() {
		err := runCmd(t, newTargetsCreateCmd(), a, []string{
			"--volume", "myvol",
			"--target-prefix", "iqn.2020-01",
			"--target-group-name", "grp",
			"--chap-user", "chapuser",
		})
		if err != nil {
			t.Fatalf("targets create --chap-user error = %v", err)
		}
	})

	if gotUser != "chapuser" {
		t.Fatalf("CreateTargetUser name = %q, want %q", gotUser, "chapuser")
	}
	if len(gotPassword) != 12 {
		t.Fatalf("generated CHAP password length = %d, want 12", len(gotPassword))
	}
	if !strings.Contains(out, "chapuser "+gotPassword) {
		t.Fatalf("targets create output = %q, want it to include generated credential %q", out, gotPassword)
	}
}

// TestTargetsCreateNewTarget exercises the create-from-scratch path: no
// related target exists yet, so GetTarget's 404 must classify as
// KindTargetNotFound for acquireTargetVolumeLun to mint index 0 and
// createTargetVolumeLun to actually create it.
func TestTargetsCreateNewTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/volumes/v_myvol", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"v_myvol","volsize":"1073741824"}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"Target with name iqn.2020-01:grp-0 not found","class":"ItemNotFoundError"}}`))
	})
	mux.HandleFunc("/pools/tank/network/vips", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"vip1","address":"10.0.0.5"}]`))
	})
	var gotAttachBody struct {
		Name string `json:"name"`
		Lun  int    `json:"lun"`
	}
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0/luns", func(w http.ResponseWriter, r *http.Request) {
		decodeJSONBody(t, r, &gotAttachBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	a, srv := newTestApp(t, mux, map[string]string{jdssconfig.KeyISCSIVIPAddresses: "10.0.0.5"})
	defer srv.Close()

	out := captureStdout(t, func() {
		err := runCmd(t, newTargetsCreateCmd(), a, []string{
			"--volume", "myvol",
			"--target-prefix", "iqn.2020-01",
			"--target-group-name", "grp",
		})
		if err != nil {
			t.Fatalf("targets create error = %v", err)
		}
	})

	if gotAttachBody.Name != "v_myvol" || gotAttachBody.Lun != 0 {
		t.Fatalf("AttachLun body = %+v, want {v_myvol 0}", gotAttachBody)
	}
	if !strings.HasPrefix(out, "iqn.2020-01:grp-0 0 10.0.0.5\n") {
		t.Fatalf("targets create output = %q, want target/lun/vip line", out)
	}
}

func TestTargetsListPassesThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"name":"iqn.2020-01:grp-0","active":true,"allow_ip":["vip1","vip2"]}]`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	out := captureStdout(t, func() {
		if err := runCmd(t, newTargetsListCmd(), a, nil); err != nil {
			t.Fatalf("targets list error = %v", err)
		}
	})
	if !strings.HasPrefix(out, "iqn.2020-01:grp-0 true\n") {
		t.Fatalf("targets list output = %q, want plain name/active line", out)
	}
}

func TestTargetsGetPassesThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.2020-01:grp-0", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"iqn.2020-01:grp-0","active":true}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	out := captureStdout(t, func() {
		if err := runCmd(t, newTargetsGetCmd(), a, []string{"iqn.2020-01:grp-0"}); err != nil {
			t.Fatalf("targets get error = %v", err)
		}
	})
	if out != "iqn.2020-01:grp-0 true\n" {
		t.Fatalf("targets get output = %q, want %q", out, "iqn.2020-01:grp-0 true\n")
	}
}
