// Package columns is the registry of report columns: what each column is
// called, which enrichment it needs, and how it is read from a request row.
package columns

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

// ErrUnknownColumn is returned for a column code not in the registry.
var ErrUnknownColumn = errors.New("unknown column")

// Row is one request of a requested resource. A resource with several
// requests yields several rows.
type Row struct {
	Metadata *model.ResourceMetadata
	Location *model.Location
	Request  *model.RequestDetail
}

// Rows expands resources into one row per request, preserving order.
func Rows(resources []*model.RequestedResource) []Row {
	var rows []Row
	for _, r := range resources {
		for _, req := range r.Request {
			rows = append(rows, Row{Metadata: &r.ResourceMetadata, Location: &r.Location, Request: req})
		}
	}
	return rows
}

// Definition describes one column.
type Definition struct {
	Code       string
	Name       string
	Enrichment model.EnrichmentOptions
	Extract    func(Row) string
}

// Option is a selected column with an optional display length limit.
type Option struct {
	Definition
	Limit int
}

// Value extracts the column value, truncated to Limit runes with a
// trailing ellipsis.
func (o Option) Value(row Row) string {
	v := o.Extract(row)
	if o.Limit > 0 && utf8.RuneCountInString(v) > o.Limit {
		return string([]rune(v)[:o.Limit]) + "…"
	}
	return v
}

var (
	plain          = model.EnrichmentOptions{}
	byItem         = model.EnrichmentOptions{Item: true}
	byRequest      = model.EnrichmentOptions{Request: true}
	byUser         = model.EnrichmentOptions{User: true}
	byItemLocation = model.EnrichmentOptions{Item: true, Location: true}
	byItemRequest  = model.EnrichmentOptions{Item: true, Request: true}
)

var definitions = []Definition{
	{"title", "Title", plain, func(r Row) string { return r.Metadata.Title }},
	{"location", "Location", byItemLocation, locationValue},
	{"call-number", "Call Number", plain, func(r Row) string { return r.Location.CallNumber }},
	{"accession-number", "Accession Number", byItemRequest, perCopy(func(c *model.Copy) string { return c.AccessionNumber })},
	{"author", "Author", plain, func(r Row) string { return r.Metadata.Author }},
	{"isbn", "ISBN", plain, func(r Row) string { return r.Metadata.ISBN }},
	{"issn", "ISSN", plain, func(r Row) string { return r.Metadata.ISSN }},
	{"edition", "Edition", byItem, func(r Row) string { return r.Metadata.CompleteEdition }},
	{"imprint", "Imprint", plain, imprintValue},
	{"publisher", "Publisher", plain, func(r Row) string { return r.Metadata.Publisher }},
	{"publication-date", "Publication Date", plain, func(r Row) string { return r.Metadata.PublicationYear }},
	{"request-type", "Request Type", plain, func(r Row) string { return desc(r.Request.RequestSubType) }},
	{"requested-for", "Requested For", plain, func(r Row) string { return r.Request.Requester.Desc }},
	{"request-id", "Request ID", plain, func(r Row) string { return r.Request.ID }},
	{"request-date", "Request Date", plain, func(r Row) string { return r.Request.RequestDate }},
	{"barcode", "Barcode", byRequest, perCopy(func(c *model.Copy) string { return c.Barcode })},
	{"description", "Description", byItemRequest, perCopy(func(c *model.Copy) string { return c.Description })},
	{"volume", "Volume", byItemRequest, volumeValue},
	{"issue", "Issue", byItemRequest, issueValue},
	{"chapter-or-article", "Chapter/Article", byRequest, chapterOrArticleValue},
	{"pages", "Pages", byRequest, pagesValue},
	{"pickup-location", "Pickup Location", byRequest, func(r Row) string { return r.Request.PickupLocation }},
	{"item-call-number", "Item Call Number", byRequest, perCopy(func(c *model.Copy) string { return c.AlternativeCallNumber })},
	{"material-type", "Material Type", byItemRequest, perCopy(func(c *model.Copy) string { return desc(c.PhysicalMaterialType) })},
	{"request-note", "Request Note", plain, func(r Row) string { return r.Request.Comment }},
	{"storage-location-id", "Storage Location ID", byRequest, perCopy(func(c *model.Copy) string { return c.StorageLocationID })},
	{"resource-sharing-request-id", "Resource Sharing Request ID", byRequest, func(r Row) string {
		if r.Request.ResourceSharing == nil {
			return ""
		}
		return r.Request.ResourceSharing.ID
	}},
	{"resource-sharing-volume", "Resource Sharing Volume", byRequest, func(r Row) string {
		if r.Request.ResourceSharing == nil {
			return ""
		}
		return r.Request.ResourceSharing.Volume
	}},
	{"requester-user-group", "Requester User Group", byUser, func(r Row) string { return desc(r.Request.Requester.UserGroup) }},
}

var byCode = func() map[string]Definition {
	m := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Code] = d
	}
	return m
}()

// DefaultCodes is the column selection used when none is configured.
var DefaultCodes = []string{
	"title", "location", "call-number", "author", "request-type", "requested-for", "barcode",
}

// All returns every column definition in registry order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definitions for codes in the given order.
func Lookup(codes []string) ([]Definition, error) {
	defs := make([]Definition, 0, len(codes))
	for _, code := range codes {
		d, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, code)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// ParseOptions parses column selections of the form "code" or
// "code:limit". A column may be selected once.
func ParseOptions(specs []string) ([]Option, error) {
	opts := make([]Option, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		code, limitStr, hasLimit := strings.Cut(strings.TrimSpace(s), ":")
		d, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, code)
		}
		if seen[code] {
			return nil, fmt.Errorf("column %q selected twice", code)
		}
		seen[code] = true
		opt := Option{Definition: d}
		if hasLimit {
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 0 {
				return nil, fmt.Errorf("column %q: invalid limit %q", code, limitStr)
			}
			opt.Limit = limit
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// CombinedEnrichment is the union of the enrichment needed by opts.
func CombinedEnrichment(opts []Option) model.EnrichmentOptions {
	var combined model.EnrichmentOptions
	for _, o := range opts {
		combined = combined.Union(o.Enrichment)
	}
	return combined
}
