package imgrec_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ribeiro-lab/photond/imgrec"
	"github.com/ribeiro-lab/photond/server"
)

func dateFolder() string {
	now := time.Now()
	return fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day())
}

func TestWriteCreatesDatedFile(t *testing.T) {
	root := t.TempDir()
	r := &imgrec.Recorder{Root: root, Prefix: "dark_"}
	_, err := r.Write([]byte("SIMPLE"))
	if err != nil {
		t.Fatal(err)
	}
	fn := filepath.Join(root, dateFolder(), "dark_000000.fits")
	if _, err := os.Stat(fn); err != nil {
		t.Errorf("expected %s to exist: %v", fn, err)
	}
}

func TestIncrAdvancesPastExisting(t *testing.T) {
	root := t.TempDir()
	r := &imgrec.Recorder{Root: root, Prefix: "img_"}
	if _, err := r.Write([]byte("a")); err != nil {
		t.Fatal(err)
	}
	r.Incr()
	if _, err := r.Write([]byte("b")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, dateFolder(), "img_000001.fits")); err != nil {
		t.Errorf("expected second file after Incr: %v", err)
	}
}

func TestWrapperServesStandalone(t *testing.T) {
	r := &imgrec.Recorder{Root: t.TempDir(), Prefix: "img_"}
	srv := httptest.NewServer(server.Mux(imgrec.NewHTTPWrapper(r)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/enabled")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /enabled returned %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/enabled", "application/json", strings.NewReader(`{"bool": true}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /enabled returned %d", resp.StatusCode)
	}
	if !r.Enabled {
		t.Error("expected POST /enabled to set the flag")
	}
}

func TestIncrIgnoresForeignFiles(t *testing.T) {
	root := t.TempDir()
	r := &imgrec.Recorder{Root: root, Prefix: "img_"}
	if _, err := r.Write([]byte("a")); err != nil {
		t.Fatal(err)
	}
	// drop unrelated files in the dated folder
	dn := filepath.Join(root, dateFolder())
	os.WriteFile(filepath.Join(dn, "notes.txt"), []byte("x"), 0666)
	os.WriteFile(filepath.Join(dn, "other_000009.fits"), []byte("x"), 0666)
	r.Incr()
	if _, err := r.Write([]byte("b")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dn, "img_000001.fits")); err != nil {
		t.Errorf("expected counter to only track matching prefix: %v", err)
	}
}
