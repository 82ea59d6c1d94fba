package git

import (
	"slices"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestRefLabels(t *testing.T) {
	r := newTestRepo(t, Options{})
	r.write("a.txt", "one\n")
	first := r.commit("first", "a.txt")
	r.write("a.txt", "two\n")
	second := r.commit("second", "a.txt")

	set := func(name, hash string) {
		t.Helper()
		ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(hash))
		if err := r.repo.Storer.SetReference(ref); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	set("refs/heads/feature", first)
	set("refs/remotes/origin/master", second)
	set("refs/remotes/origin/HEAD", second)
	if _, err := r.repo.CreateTag("v2", plumbing.NewHash(second), &gitlib.CreateTagOptions{
		Message: "release",
		Tagger:  &object.Signature{Name: "Alice", Email: "alice@example.com", When: time.Unix(0, 0)},
	}); err != nil {
		t.Fatalf("annotated tag: %v", err)
	}

	labels, err := r.svc.refLabels()
	if err != nil {
		t.Fatalf("refLabels: %v", err)
	}
	newest := labels[second]
	if len(newest) == 0 || newest[0] != "HEAD -> master" {
		t.Fatalf("expected HEAD label first, got %v", newest)
	}
	if slices.Contains(newest, "master") {
		t.Fatalf("HEAD branch should not be listed twice: %v", newest)
	}
	if !slices.Contains(newest, "origin/master") || !slices.Contains(newest, "tag: v2") {
		t.Fatalf("missing remote or annotated tag label: %v", newest)
	}
	if slices.Contains(newest, "origin/HEAD") {
		t.Fatalf("symbolic remote HEAD should be skipped: %v", newest)
	}
	if !slices.Equal(labels[first], []string{"feature"}) {
		t.Fatalf("unexpected labels for first commit: %v", labels[first])
	}
}

func TestRefLabelsEmptyRepository(t *testing.T) {
	r := newTestRepo(t, Options{})
	labels, err := r.svc.refLabels()
	if err != nil {
		t.Fatalf("refLabels: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected no labels, got %v", labels)
	}
}
