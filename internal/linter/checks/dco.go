package checks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/model"
)

// dcoMaxCommits bounds how far back the DCO check walks HEAD.
const dcoMaxCommits = 20

var (
	dcoSignedOffRe = regexp.MustCompile(`(?m)^Signed-off-by: `)
	mergeCommitRes = []*regexp.Regexp{
		regexp.MustCompile(`^Merge pull request `),
		regexp.MustCompile(`^Merge branch `),
	}
)

// isMergeCommit classifies by subject prefix only: a merge commit with a
// rewritten subject counts as normal and must still carry its sign-off.
func isMergeCommit(c *object.Commit) bool {
	for _, re := range mergeCommitRes {
		if re.MatchString(c.Message) {
			return true
		}
	}
	return false
}

// dco walks up to dcoMaxCommits most recent commits on HEAD; it passes
// iff every non-merge commit in the window carries a Signed-off-by
// trailer. A window made entirely of merge commits passes vacuously —
// preserved from the original behaviour without modification.
func dco() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		repo, err := git.PlainOpen(in.Root)
		if err != nil {
			return nil, fmt.Errorf("open repository: %w", err)
		}
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolve HEAD: %w", err)
		}
		iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
		if err != nil {
			return nil, fmt.Errorf("walk commit log: %w", err)
		}

		processed, merges, signedOff := 0, 0, 0
		for processed < dcoMaxCommits {
			c, err := iter.Next()
			if err != nil {
				break
			}
			processed++
			if isMergeCommit(c) {
				merges++
				continue
			}
			if dcoSignedOffRe.MatchString(c.Message) || strings.Contains(c.Message, "\nSigned-off-by: ") {
				signedOff++
			}
		}

		if signedOff == processed-merges {
			return &model.CheckOutput{Passed: true}, nil
		}
		return &model.CheckOutput{}, nil
	}
}
