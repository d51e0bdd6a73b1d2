package model

// CatalogueProject is one entry in a foundation's YAML project catalogue,
// as published at Foundation.DataURL.
type CatalogueProject struct {
	Name         string                `yaml:"name"`
	DisplayName  string                `yaml:"display_name,omitempty"`
	Description  string                `yaml:"description,omitempty"`
	Category     string                `yaml:"category,omitempty"`
	HomeURL      string                `yaml:"home_url,omitempty"`
	LogoURL      string                `yaml:"logo_url,omitempty"`
	LogoDarkURL  string                `yaml:"logo_dark_url,omitempty"`
	DevstatsURL  string                `yaml:"devstats_url,omitempty"`
	AcceptedAt   string                `yaml:"accepted_at,omitempty"`
	Maturity     string                `yaml:"maturity,omitempty"`
	Repositories []CatalogueRepository `yaml:"repositories"`
}

// CatalogueRepository is one repository entry within a CatalogueProject.
type CatalogueRepository struct {
	Name      string   `yaml:"name"`
	URL       string   `yaml:"url"`
	CheckSets []string `yaml:"check_sets,omitempty"`
	Exclude   []string `yaml:"exclude,omitempty"`
}
