package main

import (
	"net/http"
	"strings"
	"testing"
)

func TestSharesCreateCreatesDatasetThenShare(t *testing.T) {
	mux := http.NewServeMux()
	var sawFilesystemPost, sawSharePost bool
	mux.HandleFunc("/pools/tank/filesystems", func(w http.ResponseWriter, r *http.Request) {
		sawFilesystemPost = true
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/pools/tank/shares", func(w http.ResponseWriter, r *http.Request) {
		sawSharePost = true
		body := struct {
			Name string `json:"name"`
			Path string `json:"path"`
		}{}
		decodeJSONBody(t, r, &body)
		if body.Name != "v_myshare" || body.Path != "tank/v_myshare" {
			t.Fatalf("share create body = %+v, want name v_myshare path tank/v_myshare", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	if err := runCmd(t, newSharesCreateCmd(), a, []string{"-n", "myshare", "-q", "5G"}); err != nil {
		t.Fatalf("shares create error = %v", err)
	}
	if !sawFilesystemPost || !sawSharePost {
		t.Fatalf("shares create did not hit both endpoints: filesystem=%v share=%v", sawFilesystemPost, sawSharePost)
	}
}

func TestSharesListWithQuotaAndPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/shares", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		w.WriteHeader(http.StatusOK)
		if page == "0" {
			_, _ = w.Write([]byte(`{"entries":[{"name":"v_myshare","path":"/export/myshare"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"entries":[]}`))
	})
	mux.HandleFunc("/pools/tank/filesystems/v_myshare", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"v_myshare","quota":"5G"}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	out := captureStdout(t, func() {
		if err := runCmd(t, newSharesListCmd(), a, []string{"--with-quota", "--with-path"}); err != nil {
			t.Fatalf("shares list error = %v", err)
		}
	})
	if !strings.Contains(out, "myshare") || !strings.Contains(out, "/export/myshare") || !strings.Contains(out, "5G") {
		t.Fatalf("shares list output = %q, want name, path and quota", out)
	}
}

func TestShareGetSizeAndGuid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools/tank/shares/v_myshare", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"v_myshare","path":"/export/myshare","real_path":"/tank/v_myshare"}`))
	})
	mux.HandleFunc("/pools/tank/filesystems/v_myshare", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"v_myshare","quota":"5G"}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	sizeOut := captureStdout(t, func() {
		if err := runCmd(t, newShareGetCmd(), a, []string{"myshare", "-s"}); err != nil {
			t.Fatalf("share get -s error = %v", err)
		}
	})
	if sizeOut != "5G\n" {
		t.Fatalf("share get -s output = %q, want %q", sizeOut, "5G\n")
	}

	pathOut := captureStdout(t, func() {
		if err := runCmd(t, newShareGetCmd(), a, []string{"myshare", "-G"}); err != nil {
			t.Fatalf("share get -G error = %v", err)
		}
	})
	if pathOut != "/tank/v_myshare\n" {
		t.Fatalf("share get -G output = %q, want %q", pathOut, "/tank/v_myshare\n")
	}
}

func TestShareDeleteRemovesShareThenDataset(t *testing.T) {
	mux := http.NewServeMux()
	var sawShareDelete, sawFsDelete bool
	mux.HandleFunc("/pools/tank/shares/v_myshare", func(w http.ResponseWriter, r *http.Request) {
		sawShareDelete = true
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/pools/tank/filesystems/v_myshare", func(w http.ResponseWriter, r *http.Request) {
		sawFsDelete = true
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	if err := runCmd(t, newShareDeleteCmd(), a, []string{"myshare"}); err != nil {
		t.Fatalf("share delete error = %v", err)
	}
	if !sawShareDelete || !sawFsDelete {
		t.Fatalf("share delete did not hit both endpoints: share=%v filesystem=%v", sawShareDelete, sawFsDelete)
	}
}

func TestShareResizeAddComputesDelta(t *testing.T) {
	mux := http.NewServeMux()
	var gotQuota string
	mux.HandleFunc("/pools/tank/filesystems/v_myshare", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"name":"v_myshare","quota":"1073741824"}`))
			return
		}
		body := struct {
			Quota string `json:"quota"`
		}{}
		decodeJSONBody(t, r, &body)
		gotQuota = body.Quota
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	a, srv := newTestApp(t, mux, nil)
	defer srv.Close()

	if err := runCmd(t, newShareResizeCmd(), a, []string{"myshare", "1073741824", "--add"}); err != nil {
		t.Fatalf("share resize --add error = %v", err)
	}
	if gotQuota != "2147483648" {
		t.Fatalf("share resize --add sent quota = %q, want sum of current + delta", gotQuota)
	}
}
