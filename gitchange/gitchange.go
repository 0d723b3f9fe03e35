/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package gitchange

import (
	"fmt"

	"github.com/golang/glog"
	git2go "github.com/libgit2/git2go/v33"
	"naive.systems/covbot/diff"
)

func resolveTree(repo *git2go.Repository, rev string) (*git2go.Tree, error) {
	obj, err := repo.RevparseSingle(rev)
	if err != nil {
		return nil, fmt.Errorf("git2go.RevparseSingle(%s) failed: %v", rev, err)
	}
	defer obj.Free()
	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return nil, fmt.Errorf("%s is not a commit: %v", rev, err)
	}
	defer peeled.Free()
	commit, err := peeled.AsCommit()
	if err != nil {
		return nil, fmt.Errorf("AsCommit(%s) failed: %v", rev, err)
	}
	defer commit.Free()
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit.Tree() failed: %v", err)
	}
	return tree, nil
}

// Changes diffs the trees of base and head in repoDir. An empty base
// diffs head against the empty tree, which is what a root commit needs.
func Changes(repoDir, base, head string) (*diff.Patch, error) {
	repo, err := git2go.OpenRepository(repoDir)
	if err != nil {
		return nil, fmt.Errorf("git2go.OpenRepository failed: %v", err)
	}
	defer repo.Free()

	headTree, err := resolveTree(repo, head)
	if err != nil {
		return nil, err
	}
	defer headTree.Free()
	var baseTree *git2go.Tree
	if base != "" {
		baseTree, err = resolveTree(repo, base)
		if err != nil {
			return nil, err
		}
		defer baseTree.Free()
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("git2go.DefaultDiffOptions failed: %v", err)
	}
	d, err := repo.DiffTreeToTree(baseTree, headTree, &opts)
	if err != nil {
		return nil, fmt.Errorf("DiffTreeToTree failed: %v", err)
	}
	defer d.Free()
	findOpts, err := git2go.DefaultDiffFindOptions()
	if err != nil {
		return nil, fmt.Errorf("git2go.DefaultDiffFindOptions failed: %v", err)
	}
	findOpts.Flags |= git2go.DiffFindRenames
	if err := d.FindSimilar(&findOpts); err != nil {
		return nil, fmt.Errorf("FindSimilar failed: %v", err)
	}
	buf, err := d.ToBuf(git2go.DiffFormatPatch)
	if err != nil {
		return nil, fmt.Errorf("ToBuf failed: %v", err)
	}
	patch, err := diff.Parse(string(buf))
	if err != nil {
		return nil, fmt.Errorf("diff.Parse: %v", err)
	}
	for _, f := range patch.Files {
		if f.Deleted() {
			glog.Infof("%s was deleted in %s", f.OldName, head)
		}
	}
	return patch, nil
}

// ResolveCommit returns the full hash of the commit rev names. Tags are
// peeled to their commit.
func ResolveCommit(repoDir, rev string) (string, error) {
	repo, err := git2go.OpenRepository(repoDir)
	if err != nil {
		return "", fmt.Errorf("git2go.OpenRepository failed: %v", err)
	}
	defer repo.Free()
	obj, err := repo.RevparseSingle(rev)
	if err != nil {
		return "", fmt.Errorf("git2go.RevparseSingle(%s) failed: %v", rev, err)
	}
	defer obj.Free()
	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return "", fmt.Errorf("Peel(%s) failed: %v", rev, err)
	}
	defer peeled.Free()
	return peeled.Id().String(), nil
}

// HasParent reports whether rev has at least one parent, so callers can
// fall back to the empty tree for the first commit of a repository.
func HasParent(repoDir, rev string) (bool, error) {
	repo, err := git2go.OpenRepository(repoDir)
	if err != nil {
		return false, fmt.Errorf("git2go.OpenRepository failed: %v", err)
	}
	defer repo.Free()
	obj, err := repo.RevparseSingle(rev)
	if err != nil {
		return false, fmt.Errorf("git2go.RevparseSingle(%s) failed: %v", rev, err)
	}
	defer obj.Free()
	commit, err := obj.AsCommit()
	if err != nil {
		return false, fmt.Errorf("AsCommit(%s) failed: %v", rev, err)
	}
	defer commit.Free()
	return commit.ParentCount() > 0, nil
}
