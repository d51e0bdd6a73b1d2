package checks

import (
	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/model"
)

var (
	all      = []model.CheckSet{model.CheckSetCode, model.CheckSetCodeLite, model.CheckSetCommunity, model.CheckSetDocs}
	code     = []model.CheckSet{model.CheckSetCode}
	codeLite = []model.CheckSet{model.CheckSetCode, model.CheckSetCodeLite}
	docs     = []model.CheckSet{model.CheckSetCode, model.CheckSetCodeLite, model.CheckSetDocs}
	community = []model.CheckSet{model.CheckSetCode, model.CheckSetCodeLite, model.CheckSetCommunity}
)

// NewRegistry builds the full ~30-check catalogue, wired against lc for
// the two landscape-derived checks.
func NewRegistry(lc LandscapeLookup) check.Registry {
	reg := check.Registry{}

	add := func(id string, section model.Section, weight int, sets []model.CheckSet, fn check.Func) {
		reg[id] = check.Meta{ID: id, Section: section, Weight: weight, CheckSets: sets, Run: fn}
	}
	addScorecard := func(id string, section model.Section, weight int, sets []model.CheckSet, scorecardName string) {
		reg[id] = check.Meta{ID: id, Section: section, Weight: weight, CheckSets: sets, ScorecardName: scorecardName, Run: scorecardDelegate(scorecardName)}
	}

	// documentation
	add("adopters", model.SectionDocumentation, 5, docs, filePresence("ADOPTERS*", "docs/ADOPTERS*"))
	add("changelog", model.SectionDocumentation, 5, docs, firstOf(
		filePresence("CHANGELOG*", "docs/CHANGELOG*"),
		releaseDescriptionMatches(`(?i)\w{20,}`),
	))
	add("code_of_conduct", model.SectionDocumentation, 5, community, fileOrCommunityHealth(
		"CODE_OF_CONDUCT.md", "CODE_OF_CONDUCT*", ".github/CODE_OF_CONDUCT*", "docs/CODE_OF_CONDUCT*",
	))
	add("contributing", model.SectionDocumentation, 10, docs, filePresence("CONTRIBUTING*", ".github/CONTRIBUTING*", "docs/CONTRIBUTING*"))
	add("governance", model.SectionDocumentation, 10, community, filePresence("GOVERNANCE*", "docs/GOVERNANCE*"))
	add("maintainers", model.SectionDocumentation, 5, docs, filePresence("MAINTAINERS*", "OWNERS*", "docs/MAINTAINERS*"))
	add("readme", model.SectionDocumentation, 50, all, filePresence("README*"))
	add("roadmap", model.SectionDocumentation, 5, community, filePresence("ROADMAP*", "docs/ROADMAP*"))
	add("website", model.SectionDocumentation, 5, docs, websiteReachable())

	// license
	add("license_spdx_id", model.SectionLicense, 20, docs, licenseSPDXID())
	add("license_approved", model.SectionLicense, 60, docs, licenseApproved())
	add("license_scanning", model.SectionLicense, 20, code, licenseScanning())

	// best_practices
	add("analytics", model.SectionBestPractices, 5, community, filePresence(".github/analytics.yml"))
	add("annual_review", model.SectionBestPractices, 10, community, annualReview(lc))
	add("artifacthub_badge", model.SectionBestPractices, 5, docs, readmeMatches(false, `(?i)artifacthub\.io/badge`))
	add("cla", model.SectionBestPractices, 15, code, statusContextMatches(`(?i)cla[- ]?(assistant|bot|check)`))
	add("community_meeting", model.SectionBestPractices, 25, community, readmeMatches(false, `(?i)community meeting`, `(?i)public meeting`))
	add("dco", model.SectionBestPractices, 15, code, dco())
	add("github_discussions", model.SectionBestPractices, 10, community, githubDiscussionsEnabled())
	add("openssf_badge", model.SectionBestPractices, 60, docs, readmeMatches(false, `(?i)bestpractices\.(coreinfrastructure|dev)\.org/.*?badge`))
	add("recent_release", model.SectionBestPractices, 10, codeLite, recentRelease())
	add("slack_presence", model.SectionBestPractices, 10, community, readmeMatches(true, `(?i)slack\.com/.*?[\s"'\)\]](https://[^\s"'\)\]]+slack[^\s"'\)\]]*)`))
	add("summary_table", model.SectionBestPractices, 5, docs, summaryTable(lc))

	// security
	addScorecard("binary_artifacts", model.SectionSecurity, 10, code, "Binary-Artifacts")
	addScorecard("code_review", model.SectionSecurity, 10, code, "Code-Review")
	addScorecard("dangerous_workflow", model.SectionSecurity, 10, code, "Dangerous-Workflow")
	addScorecard("dependency_update_tool", model.SectionSecurity, 10, code, "Dependency-Update-Tool")
	addScorecard("maintained", model.SectionSecurity, 10, code, "Maintained")
	addScorecard("signed_releases", model.SectionSecurity, 10, code, "Signed-Releases")
	addScorecard("token_permissions", model.SectionSecurity, 10, code, "Token-Permissions")
	add("sbom", model.SectionSecurity, 10, code, releaseAssetMatches(`(?i)\.(spdx|cdx)\.json$`, `(?i)sbom`))
	add("security_policy", model.SectionSecurity, 20, community, firstOf(
		filePresence("SECURITY*", ".github/SECURITY*", "docs/SECURITY*"),
		securityPolicyFromMetadata(),
		communityHealthFile("SECURITY.md"),
	))
	add("openssf_scorecard_badge", model.SectionSecurity, 10, docs, readmeMatches(false, `(?i)api\.securityscorecards\.dev`))
	add("security_insights", model.SectionSecurity, 10, code, securityInsightsSelfAssessment())

	// legal
	add("trademark_disclaimer", model.SectionLegal, 100, docs, readmeMatches(false, `(?i)trademark`))

	return reg
}

// githubDiscussionsEnabled passes iff the repository has GitHub
// Discussions enabled and a recent discussion exists.
func githubDiscussionsEnabled() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil || !in.GitHubMetadata.HasDiscussionsEnabled {
			return &model.CheckOutput{}, nil
		}
		if in.GitHubMetadata.LatestDiscussion != nil && isRecent(in.GitHubMetadata.LatestDiscussion.CreatedAt) {
			return &model.CheckOutput{Passed: true}, nil
		}
		return &model.CheckOutput{}, nil
	}
}
