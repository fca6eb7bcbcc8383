package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/rug-cit-hpc/slurm-jobinfo/auth"
	"github.com/rug-cit-hpc/slurm-jobinfo/hints"
	"github.com/rug-cit-hpc/slurm-jobinfo/record"
	"github.com/rug-cit-hpc/slurm-jobinfo/report"
)

// Job 55 is running and owned by alice, no other jobs exist.
type fakeSource struct {
	liveCalls int
}

func (fs *fakeSource) Accounting(_ context.Context, jobID string) ([]string, error) {
	if jobID != "55" {
		return nil, nil
	}
	raw := make([]string, record.NumFields)
	raw[record.JobID] = "55"
	raw[record.User] = "alice"
	raw[record.NCPUS] = "2"
	raw[record.State] = "RUNNING"
	return []string{strings.Join(raw, record.AccountingDelimiter)}, nil
}

func (fs *fakeSource) Live(_ context.Context, _ string) ([]string, error) {
	fs.liveCalls++
	return []string{"1|3G|c1|||||"}, nil
}

func (fs *fakeSource) Queue(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (fs *fakeSource) Node(_ context.Context, _ string) (string, error) {
	return "", nil
}

func get(t *testing.T, srv *httptest.Server, url, user, pass string) (int, *report.Document) {
	req, err := http.NewRequest(http.MethodGet, srv.URL+url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	var doc report.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, &doc
}

func TestGetJob(t *testing.T) {
	src := &fakeSource{}
	s := New(Config{
		Source:     src,
		Options:    report.Options{Hints: hints.DefaultConfig()},
		IsOperator: func(string) bool { return true },
		Version:    "test",
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// Anonymous, so no live data even though everyone is an operator
	code, doc := get(t, srv, "/job/55", "", "")
	if code != http.StatusOK {
		t.Fatalf("Status: %d", code)
	}
	if doc.JobID != "55" || doc.Phase != "RUNNING" || doc.Live || src.liveCalls != 0 {
		t.Fatalf("Document: %v", doc)
	}
	if len(doc.Lines) == 0 || doc.Lines[0].Label != "Job ID" || doc.Lines[0].Value != "55" {
		t.Fatalf("Lines: %v", doc.Lines)
	}

	if code, _ := get(t, srv, "/job/56", "", ""); code != http.StatusNotFound {
		t.Fatalf("Unknown job: %d", code)
	}
	if code, _ := get(t, srv, "/job/abc", "", ""); code != http.StatusUnprocessableEntity {
		t.Fatalf("Bad job ID: %d", code)
	}
}

func TestAuthenticated(t *testing.T) {
	fn := path.Join(t.TempDir(), "passwords")
	if err := os.WriteFile(fn, []byte("alice:secret\nbob:hidden\n"), 0600); err != nil {
		t.Fatal(err)
	}
	authenticator, err := auth.ReadPasswords(fn)
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{}
	s := New(Config{
		Source:        src,
		Options:       report.Options{Hints: hints.DefaultConfig()},
		Authenticator: authenticator,
		IsOperator:    func(user string) bool { return user == "root" },
		Version:       "test",
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	if code, _ := get(t, srv, "/job/55", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("No credentials: %d", code)
	}
	if code, _ := get(t, srv, "/job/55", "alice", "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("Bad credentials: %d", code)
	}

	// Not the owner
	code, doc := get(t, srv, "/job/55", "bob", "hidden")
	if code != http.StatusOK || doc.Live || src.liveCalls != 0 {
		t.Fatalf("Other user: %d %v", code, doc)
	}

	// The owner
	code, doc = get(t, srv, "/job/55", "alice", "secret")
	if code != http.StatusOK || !doc.Live || src.liveCalls != 1 {
		t.Fatalf("Owner: %d %v", code, doc)
	}
}
