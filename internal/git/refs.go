package git

import (
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// refLabels returns the decorations of each commit, keyed by hash, in the
// form git log --decorate prints them. The branch HEAD points to is folded
// into the leading "HEAD -> branch" label.
func (s *Service) refLabels() (map[string][]string, error) {
	labels := map[string][]string{}
	head, err := s.repo.Head()
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, err
	}
	var headBranch plumbing.ReferenceName
	if head != nil {
		label := "HEAD"
		if head.Name().IsBranch() {
			headBranch = head.Name()
			label += " -> " + headBranch.Short()
		}
		labels[head.Hash().String()] = []string{label}
	}

	refs, err := s.repo.References()
	if err != nil {
		return nil, err
	}
	defer refs.Close()
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference || ref.Name() == headBranch {
			return nil
		}
		var label string
		target := ref.Hash()
		switch name := ref.Name(); {
		case name.IsBranch():
			label = name.Short()
		case name.IsRemote():
			if strings.HasSuffix(name.Short(), "/HEAD") {
				return nil
			}
			label = name.Short()
		case name.IsTag():
			label = "tag: " + name.Short()
			peeled, ok := s.tagTarget(target)
			if !ok {
				return nil
			}
			target = peeled
		default:
			return nil
		}
		labels[target.String()] = append(labels[target.String()], label)
		return nil
	})
	return labels, err
}

// tagTarget resolves a tag reference to the commit it ultimately names.
// Lightweight tags already point at a commit.
func (s *Service) tagTarget(hash plumbing.Hash) (plumbing.Hash, bool) {
	const maxDepth = 8
	for range maxDepth {
		if _, err := s.repo.CommitObject(hash); err == nil {
			return hash, true
		}
		tag, err := s.repo.TagObject(hash)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		if tag.TargetType != plumbing.CommitObject && tag.TargetType != plumbing.TagObject {
			return plumbing.ZeroHash, false
		}
		hash = tag.Target
	}
	return plumbing.ZeroHash, false
}
