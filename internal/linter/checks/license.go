package checks

import (
	"os"
	"path/filepath"

	"github.com/google/licensecheck"

	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/model"
)

// licenseScoreCutoff is the match coverage (percent of the file covered
// by the matched license text) that a local license detection must
// exceed to be trusted.
const licenseScoreCutoff = 90.0

var licenseGlobs = []string{"LICENSE*", "COPYING*"}

// licenseSPDXID detects the repository's license: first by matching
// LICENSE*/COPYING* content with licensecheck at a > 0.9 score cutoff,
// falling back to the host-reported SPDX id unless it is NOASSERTION.
func licenseSPDXID() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if rel, ok := findFile(in.Root, licenseGlobs...); ok {
			data, err := os.ReadFile(filepath.Join(in.Root, rel))
			if err == nil {
				cov := licensecheck.Scan(data)
				if cov.Percent > licenseScoreCutoff && len(cov.Match) > 0 {
					return &model.CheckOutput{Passed: true, Value: cov.Match[0].ID}, nil
				}
			}
		}
		if in.GitHubMetadata != nil && in.GitHubMetadata.LicenseSPDXID != "" && in.GitHubMetadata.LicenseSPDXID != "NOASSERTION" {
			return &model.CheckOutput{Passed: true, Value: in.GitHubMetadata.LicenseSPDXID}, nil
		}
		return &model.CheckOutput{}, nil
	}
}

// approvedLicenses is the fixed allow-list used by the license_approved
// check.
var approvedLicenses = map[string]bool{
	"Apache-2.0":         true,
	"BSD-2-Clause":       true,
	"BSD-2-Clause-FreeBSD": true,
	"BSD-3-Clause":       true,
	"CC-BY-4.0":          true,
	"ISC":                true,
	"MIT":                true,
	"PostgreSQL":         true,
	"Python-2.0":         true,
	"X11":                true,
	"Zlib":               true,
}

// licenseApproved is a pure function of the license_spdx_id check's
// value against approvedLicenses; it runs against the same report it is
// evaluated alongside, so the engine wires it by re-running licenseSPDXID's
// detection rather than reading a sibling result (checks evaluate
// independently under the uniform contract).
func licenseApproved() check.Func {
	detect := licenseSPDXID()
	return func(in *check.Input) (*model.CheckOutput, error) {
		spdx, err := detect(in)
		if err != nil {
			return nil, err
		}
		if !spdx.Passed {
			return &model.CheckOutput{}, nil
		}
		id, _ := spdx.Value.(string)
		if approvedLicenses[id] {
			return &model.CheckOutput{Passed: true, Value: id}, nil
		}
		return &model.CheckOutput{}, nil
	}
}

// licenseScanning reports presence of a configured FOSSA-style scanning
// badge URL in .clomonitor.yml's licenseScanning.url.
func licenseScanning() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.ClomonitorYML == nil || in.ClomonitorYML.LicenseScanning == nil || in.ClomonitorYML.LicenseScanning.URL == "" {
			return &model.CheckOutput{}, nil
		}
		return &model.CheckOutput{Passed: true, URL: in.ClomonitorYML.LicenseScanning.URL}, nil
	}
}
