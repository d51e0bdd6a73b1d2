// Package github wraps the GitHub REST and GraphQL clients behind the
// narrow calls the check engine needs: repository metadata (`gh_md`) and
// the rate-limit probe, following the
// oauth2-token-source wiring used throughout the example pack.
package github

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/v57/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/cncf/clomonitor-go/internal/linter/check"
)

// Client bundles the REST and GraphQL clients authenticated with a
// single credential.
type Client struct {
	rest    *gogithub.Client
	graphql *githubv4.Client
}

// New returns a Client authenticated with token.
func New(ctx context.Context, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &Client{
		rest:    gogithub.NewClient(tc),
		graphql: githubv4.NewClient(tc),
	}
}

// RateLimit reports the client's current core rate-limit status, used
// by the Tracker's post-run diagnostic log.
func (c *Client) RateLimit(ctx context.Context) (remaining, limit int, err error) {
	rl, _, err := c.rest.RateLimit.Get(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("get rate limit: %w", err)
	}
	return rl.Core.Remaining, rl.Core.Limit, nil
}

// FetchMetadata retrieves a repository's GraphQL-sourced metadata:
// owner, default branch, license SPDX id, homepage, security-policy
// URL, latest release, latest merged PR's status contexts, and latest
// discussion.
func (c *Client) FetchMetadata(ctx context.Context, owner, name string) (*check.GitHubMetadata, error) {
	var q struct {
		Repository struct {
			Owner struct {
				Login githubv4.String
			}
			DefaultBranchRef struct {
				Name githubv4.String
			}
			LicenseInfo struct {
				SpdxID githubv4.String
			}
			HomepageURL             githubv4.String
			HasDiscussionsEnabled   githubv4.Boolean
			IsSecurityPolicyEnabled githubv4.Boolean
			SecurityPolicyURL       githubv4.String `graphql:"securityPolicyUrl"`
			Releases struct {
				Nodes []struct {
					TagName     githubv4.String
					Description githubv4.String
					CreatedAt   githubv4.DateTime
					IsPrerelease githubv4.Boolean
					ReleaseAssets struct {
						Nodes []struct {
							Name githubv4.String
						}
					} `graphql:"releaseAssets(first: 20)"`
				}
			} `graphql:"releases(last: 10, orderBy: {field: CREATED_AT, direction: ASC})"`
			PullRequests struct {
				Nodes []struct {
					Commits struct {
						Nodes []struct {
							Commit struct {
								StatusCheckRollup struct {
									Contexts struct {
										Nodes []struct {
											Typename string `graphql:"__typename"`
											CheckRun struct {
												Name       githubv4.String
												CheckSuite struct {
													App struct {
														Name githubv4.String
													}
												}
											} `graphql:"... on CheckRun"`
											StatusContext struct {
												Context githubv4.String
											} `graphql:"... on StatusContext"`
										}
									} `graphql:"contexts(first: 50)"`
								}
							}
						}
					} `graphql:"commits(last: 1)"`
				}
			} `graphql:"pullRequests(states: MERGED, last: 1, orderBy: {field: UPDATED_AT, direction: ASC})"`
			Discussions struct {
				Nodes []struct {
					CreatedAt githubv4.DateTime
				}
			} `graphql:"discussions(last: 1)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}
	if err := c.graphql.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("github graphql metadata query: %w", err)
	}

	md := &check.GitHubMetadata{
		Owner:                 owner,
		DefaultBranch:         string(q.Repository.DefaultBranchRef.Name),
		LicenseSPDXID:         string(q.Repository.LicenseInfo.SpdxID),
		HomepageURL:           string(q.Repository.HomepageURL),
		HasDiscussionsEnabled: bool(q.Repository.HasDiscussionsEnabled),
	}
	if bool(q.Repository.IsSecurityPolicyEnabled) {
		md.SecurityPolicyURL = string(q.Repository.SecurityPolicyURL)
	}
	// Nodes are oldest first; LatestRelease is the newest non-pre-release.
	for i := len(q.Repository.Releases.Nodes) - 1; i >= 0; i-- {
		rel := q.Repository.Releases.Nodes[i]
		if bool(rel.IsPrerelease) {
			continue
		}
		assets := make([]string, len(rel.ReleaseAssets.Nodes))
		for i, a := range rel.ReleaseAssets.Nodes {
			assets[i] = string(a.Name)
		}
		md.LatestRelease = &check.Release{
			TagName:      string(rel.TagName),
			Description:  string(rel.Description),
			CreatedAt:    rel.CreatedAt.Time,
			IsPrerelease: bool(rel.IsPrerelease),
			Assets:       assets,
		}
		break
	}
	if len(q.Repository.PullRequests.Nodes) > 0 {
		pr := q.Repository.PullRequests.Nodes[0]
		if len(pr.Commits.Nodes) > 0 {
			for _, ctxNode := range pr.Commits.Nodes[0].Commit.StatusCheckRollup.Contexts.Nodes {
				// A rollup node is either a check run (carrying its own name
				// plus the owning check suite's app name) or a plain commit
				// status context; record every identifier so callers can
				// match any of them.
				switch ctxNode.Typename {
				case "CheckRun":
					if n := string(ctxNode.CheckRun.Name); n != "" {
						md.LatestPRStatusContexts = append(md.LatestPRStatusContexts, check.StatusContext{Name: n})
					}
					if n := string(ctxNode.CheckRun.CheckSuite.App.Name); n != "" {
						md.LatestPRStatusContexts = append(md.LatestPRStatusContexts, check.StatusContext{Name: n})
					}
				case "StatusContext":
					if n := string(ctxNode.StatusContext.Context); n != "" {
						md.LatestPRStatusContexts = append(md.LatestPRStatusContexts, check.StatusContext{Name: n})
					}
				}
			}
		}
	}
	if len(q.Repository.Discussions.Nodes) > 0 {
		md.LatestDiscussion = &check.Discussion{CreatedAt: q.Repository.Discussions.Nodes[0].CreatedAt.Time}
	}
	return md, nil
}
