package checks

import (
	"testing"

	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/model"
)

func TestLicenseSPDXID_FallsBackToGitHubMetadata(t *testing.T) {
	root := t.TempDir()
	in := &check.Input{Root: root, GitHubMetadata: &check.GitHubMetadata{LicenseSPDXID: "Apache-2.0"}}

	out, err := licenseSPDXID()(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Passed || out.Value != "Apache-2.0" {
		t.Fatalf("expected github-reported spdx id, got %+v", out)
	}
}

func TestLicenseSPDXID_RejectsNoAssertion(t *testing.T) {
	root := t.TempDir()
	in := &check.Input{Root: root, GitHubMetadata: &check.GitHubMetadata{LicenseSPDXID: "NOASSERTION"}}

	out, err := licenseSPDXID()(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Passed {
		t.Fatal("expected NOASSERTION to not count as a detected license")
	}
}

func TestLicenseApproved_ApprovedID(t *testing.T) {
	in := &check.Input{Root: t.TempDir(), GitHubMetadata: &check.GitHubMetadata{LicenseSPDXID: "MIT"}}
	out, err := licenseApproved()(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Passed || out.Value != "MIT" {
		t.Fatalf("expected MIT to be approved, got %+v", out)
	}
}

func TestLicenseApproved_UnapprovedID(t *testing.T) {
	in := &check.Input{Root: t.TempDir(), GitHubMetadata: &check.GitHubMetadata{LicenseSPDXID: "WTFPL"}}
	out, err := licenseApproved()(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Passed {
		t.Fatal("expected WTFPL to not be in the approved allow-list")
	}
}

func TestLicenseScanning_PassesWhenConfigured(t *testing.T) {
	in := &check.Input{ClomonitorYML: &model.ClomonitorYML{
		LicenseScanning: &struct {
			URL string `yaml:"url"`
		}{URL: "https://app.fossa.com/x"},
	}}
	out, err := licenseScanning()(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Passed || out.URL != "https://app.fossa.com/x" {
		t.Fatalf("expected configured scanning url to pass, got %+v", out)
	}
}

func TestLicenseScanning_AbsentWithoutConfig(t *testing.T) {
	out, err := licenseScanning()(&check.Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Passed {
		t.Fatal("expected no pass without a configured scanning url")
	}
}
