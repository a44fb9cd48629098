package model

// EnrichmentOptions selects which enrichment tasks run over a page.
type EnrichmentOptions struct {
	Item     bool `json:"item" mapstructure:"item"`
	Location bool `json:"location" mapstructure:"location"`
	Request  bool `json:"request" mapstructure:"request"`
	User     bool `json:"user" mapstructure:"user"`
}

// Union returns the options enabled in either o or other.
func (o EnrichmentOptions) Union(other EnrichmentOptions) EnrichmentOptions {
	return EnrichmentOptions{
		Item:     o.Item || other.Item,
		Location: o.Location || other.Location,
		Request:  o.Request || other.Request,
		User:     o.User || other.User,
	}
}

// Any reports whether at least one enrichment is enabled.
func (o EnrichmentOptions) Any() bool {
	return o.Item || o.Location || o.Request || o.User
}
