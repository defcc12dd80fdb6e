package sourcetree

import (
	git "github.com/go-git/go-git/v5"
)

// headCommit returns the HEAD commit hash of the repository at root, or empty
// when root is not a git repository (a plain directory is a valid project).
func headCommit(root string) string {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return ""
	}
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}
