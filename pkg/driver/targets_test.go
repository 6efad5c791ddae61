package driver

import (
	"context"
	"net/http"
	"testing"

	"github.com/jdss/jdssctl/pkg/jdssconfig"
)

func TestEnsureTargetVolumeCreatesNewTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/volumes/v_vol1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"v_vol1"}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/pools/tank/network/vips", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"vip0","address":"10.0.0.1"}]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.test:grp-0", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"Target with name iqn.test:grp-0 not found","class":"ItemNotFoundError"}}`))
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		}
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.test:grp-0/luns", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	d, srv := newTestDriver(t, mux, map[string]string{jdssconfig.KeyISCSIVIPAddresses: "10.0.0.1"})
	defer srv.Close()

	pub, err := d.EnsureTargetVolume(context.Background(), "iqn.test", "grp", "vol1", EnsureTargetVolumeOpts{LunsPerTarget: 4})
	if err != nil {
		t.Fatalf("EnsureTargetVolume() error = %v", err)
	}
	if pub.Target != "iqn.test:grp-0" {
		t.Fatalf("Target = %q, want iqn.test:grp-0", pub.Target)
	}
	if pub.Lun != 0 {
		t.Fatalf("Lun = %d, want 0", pub.Lun)
	}
}

func TestEnsureTargetVolumeReusesExistingSlot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/volumes/v_vol2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"v_vol2"}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"iqn.test:grp-0","allow_ip":["vip0"]}]`))
	})
	mux.HandleFunc("/pools/tank/network/vips", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"vip0","address":"10.0.0.1"}]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.test:grp-0", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"iqn.test:grp-0","allow_ip":["vip0"]}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.test:grp-0/luns", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"name":"v_vol1","lun":0}]`))
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		}
	})

	d, srv := newTestDriver(t, mux, map[string]string{jdssconfig.KeyISCSIVIPAddresses: "10.0.0.1"})
	defer srv.Close()

	pub, err := d.EnsureTargetVolume(context.Background(), "iqn.test", "grp", "vol2", EnsureTargetVolumeOpts{LunsPerTarget: 4})
	if err != nil {
		t.Fatalf("EnsureTargetVolume() error = %v", err)
	}
	if pub.Target != "iqn.test:grp-0" || pub.Lun != 1 {
		t.Fatalf("got target=%s lun=%d, want iqn.test:grp-0 lun=1", pub.Target, pub.Lun)
	}
}

func TestEnsureTargetVolumeAlreadyAttachedIsIdempotent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/volumes/v_vol1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"v_vol1"}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"iqn.test:grp-0","allow_ip":["vip0"]}]`))
	})
	mux.HandleFunc("/pools/tank/network/vips", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"vip0","address":"10.0.0.1"}]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.test:grp-0", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"iqn.test:grp-0","allow_ip":["vip0"]}`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.test:grp-0/luns", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"v_vol1","lun":0}]`))
	})

	d, srv := newTestDriver(t, mux, map[string]string{jdssconfig.KeyISCSIVIPAddresses: "10.0.0.1"})
	defer srv.Close()

	pub, err := d.EnsureTargetVolume(context.Background(), "iqn.test", "grp", "vol1", EnsureTargetVolumeOpts{LunsPerTarget: 4})
	if err != nil {
		t.Fatalf("EnsureTargetVolume() error = %v", err)
	}
	if pub.Target != "iqn.test:grp-0" || pub.Lun != 0 {
		t.Fatalf("got target=%s lun=%d, want iqn.test:grp-0 lun=0", pub.Target, pub.Lun)
	}
}

func TestParseCHAPAuth(t *testing.T) {
	auth, err := ParseCHAPAuth("CHAP myuser mypassword")
	if err != nil {
		t.Fatalf("ParseCHAPAuth() error = %v", err)
	}
	if auth.Method != "CHAP" || auth.User != "myuser" || auth.Password != "mypassword" {
		t.Fatalf("ParseCHAPAuth() = %+v, want CHAP/myuser/mypassword", auth)
	}

	if auth, err := ParseCHAPAuth(""); err != nil || auth != nil {
		t.Fatalf("ParseCHAPAuth(\"\") = %+v, %v, want nil, nil", auth, err)
	}

	if _, err := ParseCHAPAuth("not enough fields"); err == nil {
		t.Fatal("ParseCHAPAuth() with wrong field count: want error")
	}
}

func TestRemoveExportOnUnusedTargetIsNoop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/san/iscsi/targets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/pools/tank/san/iscsi/targets/iqn.test:grp-0", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"Target with name iqn.test:grp-0 not found","class":"ItemNotFoundError"}}`))
	})

	d, srv := newTestDriver(t, mux, nil)
	defer srv.Close()

	if err := d.RemoveExport(context.Background(), "iqn.test", "grp", "vol1"); err != nil {
		t.Fatalf("RemoveExport() error = %v", err)
	}
}
