package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParsePeriod(t *testing.T) {
	for _, p := range AllPeriods() {
		got, err := ParsePeriod(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePeriod(%q) = %q, %v", p, got, err)
		}
	}
	for _, bad := range []string{"", "Daily", "yearly", "../daily"} {
		if _, err := ParsePeriod(bad); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("ParsePeriod(%q): expected ErrInvalidPeriod, got %v", bad, err)
		}
	}
}

func TestOriginalDescriptionEncoding(t *testing.T) {
	rec := RepositoryRecord{Author: "a", RepoName: "b", RepoURL: "https://github.com/a/b", Description: "desc"}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "originalDescription") {
		t.Errorf("untranslated record must omit originalDescription: %s", data)
	}
	if !strings.Contains(string(data), `"repoUrl":"https://github.com/a/b"`) {
		t.Errorf("unexpected encoding: %s", data)
	}
	if rec.Original() != "desc" {
		t.Errorf("Original() = %q", rec.Original())
	}

	orig := "desc"
	rec.OriginalDescription = &orig
	rec.Description = "描述"
	data, _ = json.Marshal(rec)
	if !strings.Contains(string(data), `"originalDescription":"desc"`) {
		t.Errorf("translated record must carry originalDescription: %s", data)
	}
	if rec.Original() != "desc" {
		t.Errorf("Original() = %q", rec.Original())
	}
}

func TestCloneRecordsIsDeep(t *testing.T) {
	orig := "hello"
	in := []RepositoryRecord{{RepoURL: "u", OriginalDescription: &orig}}

	out := CloneRecords(in)
	*out[0].OriginalDescription = "changed"
	out[0].RepoURL = "v"

	if *in[0].OriginalDescription != "hello" || in[0].RepoURL != "u" {
		t.Error("clone shares state with the input")
	}
	if CloneRecords(nil) == nil {
		t.Error("clone of nil must be an empty slice")
	}
}

func TestEmptySnapshotEncoding(t *testing.T) {
	data, err := json.Marshal(EmptySnapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"repositories":[],"lastUpdated":null}` {
		t.Errorf("unexpected empty snapshot: %s", data)
	}
}
