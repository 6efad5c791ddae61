package main

import (
	"net/http"
	"strings"
	"testing"
)

func TestNASVolumesCreateEncodesName(t *testing.T) {
	mux := http.NewServeMux()
	var gotName, gotQuota string
	mux.HandleFunc("/pools/tank/filesystems", func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Name  string `json:"name"`
			Quota string `json:"quota"`
		}{}
		decodeJSONBody(t, r, &body)
		gotName, gotQuota = body.Name, body.Quota
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	if err := runCmd(t, newNASVolumesCreateCmd(), a, []string{"-n", "myfs", "-q", "10G"}); err != nil {
		t.Fatalf("nas_volumes create error = %v", err)
	}
	if gotName != "v_myfs" {
		t.Fatalf("nas_volumes create sent name = %q, want %q", gotName, "v_myfs")
	}
	if gotQuota != "10G" {
		t.Fatalf("nas_volumes create sent quota = %q, want %q", gotQuota, "10G")
	}
}

func TestNASVolumeGetPrintsQuotaOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/filesystems/v_myfs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"v_myfs","quota":"10G","mountpoint":"/tank/v_myfs"}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	out := captureStdout(t, func() {
		if err := runCmd(t, newNASVolumeGetCmd(), a, []string{"myfs", "-s"}); err != nil {
			t.Fatalf("nas_volume get -s error = %v", err)
		}
	})
	if out != "10G\n" {
		t.Fatalf("nas_volume get -s output = %q, want %q", out, "10G\n")
	}
}

func TestNASVolumeSnapshotsCreateIgnoreExists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/filesystems/v_myfs/snapshots", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"message":"snapshot already exists","class":"DatasetSnapshotExistsError","errno":5}}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	if err := runCmd(t, newNASVolumeSnapshotsCreateCmd(), a, []string{"myfs", "snap1", "--ignoreexists"}); err != nil {
		t.Fatalf("nas_volume snapshots create --ignoreexists error = %v", err)
	}
}

func TestNASVolumeSnapshotsListWithClones(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/filesystems/v_myfs/snapshots", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		w.WriteHeader(http.StatusOK)
		if page == "0" {
			_, _ = w.Write([]byte(`{"entries":[{"name":"v_myfs@s_snap1","creation":"2026-01-01","clones":"v_clone1,v_clone2"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"entries":[]}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	out := captureStdout(t, func() {
		if err := runCmd(t, newNASVolumeSnapshotsListCmd(), a, []string{"myfs", "--with-clones"}); err != nil {
			t.Fatalf("nas_volume snapshots list --with-clones error = %v", err)
		}
	})
	if !strings.Contains(out, "snap1") || !strings.Contains(out, "clone1,clone2") {
		t.Fatalf("nas_volume snapshots list output = %q, want snapshot id and decoded clone ids", out)
	}
}

func TestNASVolumeSnapshotClonesCreateIgnoreExists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/filesystems/v_myfs/clone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"message":"cannot create 'tank/v_clone1': Filesystem already exists","class":"DatasetExistsError"}}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	err := runCmd(t, newNASVolumeSnapshotClonesCreateCmd(), a, []string{"myfs", "snap1", "-n", "clone1"})
	if err != nil {
		t.Fatalf("nas_volume snapshot clones create error = %v", err)
	}
}

func TestNASVolumeSnapshotClonesList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/filesystems/v_myfs@s_snap1/clones", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`["v_clone1","v_clone2"]`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	out := captureStdout(t, func() {
		if err := runCmd(t, newNASVolumeSnapshotClonesListCmd(), a, []string{"myfs", "snap1"}); err != nil {
			t.Fatalf("nas_volume snapshot clones list error = %v", err)
		}
	})
	if out != "clone1\nclone2\n" {
		t.Fatalf("nas_volume snapshot clones list output = %q, want %q", out, "clone1\nclone2\n")
	}
}
