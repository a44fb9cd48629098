// Package model defines the Alma requested-resource records and the
// upstream records used to enrich them.
//
// Enrichment fields are declared on the wire types from construction and
// stay empty until the matching enrichment task fills them in.
package model

// CodeDesc is Alma's {value, desc} pair used for coded fields.
type CodeDesc struct {
	Value string `json:"value"`
	Desc  string `json:"desc,omitempty"`
}

// Linked is Alma's {value, link} pair used for references to other records.
type Linked struct {
	Value string `json:"value"`
	Link  string `json:"link,omitempty"`
}

// RequestedResource is one element of the requested-resources task list.
type RequestedResource struct {
	ResourceMetadata ResourceMetadata `json:"resource_metadata"`
	Location         Location         `json:"location"`
	Request          []*RequestDetail `json:"request"`
}

// ResourceMetadata holds the bibliographic part of a requested resource.
type ResourceMetadata struct {
	MMSID            Linked `json:"mms_id"`
	Title            string `json:"title,omitempty"`
	Author           string `json:"author,omitempty"`
	ISSN             string `json:"issn,omitempty"`
	ISBN             string `json:"isbn,omitempty"`
	Publisher        string `json:"publisher,omitempty"`
	PublicationPlace string `json:"publication_place,omitempty"`
	PublicationYear  string `json:"publication_year,omitempty"`

	// Item enrichment (first copy only).
	CompleteEdition string `json:"complete_edition,omitempty"`
}

// Location holds the holding and copies backing a requested resource.
type Location struct {
	HoldingID        Linked   `json:"holding_id"`
	Library          CodeDesc `json:"library"`
	CallNumber       string   `json:"call_number,omitempty"`
	ShelvingLocation string   `json:"shelving_location,omitempty"`
	Copy             []*Copy  `json:"copy"`

	// Location enrichment.
	ShelvingLocationDetails *LocationDetails `json:"shelving_location_details,omitempty"`
}

// LocationDetails is a shelving location code resolved to its display name.
type LocationDetails struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Copy is one physical item backing a requested resource.
type Copy struct {
	Link                  string   `json:"link,omitempty"`
	PID                   string   `json:"pid,omitempty"`
	Barcode               string   `json:"barcode,omitempty"`
	BaseStatus            CodeDesc `json:"base_status"`
	AlternativeCallNumber string   `json:"alternative_call_number,omitempty"`
	StorageLocationID     string   `json:"storage_location_id,omitempty"`

	// Item enrichment.
	Description          string    `json:"description,omitempty"`
	PhysicalMaterialType *CodeDesc `json:"physical_material_type,omitempty"`
	EnumerationA         string    `json:"enumeration_a,omitempty"`
	EnumerationB         string    `json:"enumeration_b,omitempty"`
	ChronologyI          string    `json:"chronology_i,omitempty"`
	ChronologyJ          string    `json:"chronology_j,omitempty"`
	AccessionNumber      string    `json:"accession_number,omitempty"`
	InTempLocation       bool      `json:"in_temp_location,omitempty"`
	TempLocation         *CodeDesc `json:"temp_location,omitempty"`
}

// Requester references the patron who placed a request.
type Requester struct {
	Value string `json:"value"`
	Desc  string `json:"desc,omitempty"`
	Link  string `json:"link,omitempty"`

	// User enrichment.
	UserGroup *CodeDesc `json:"user_group,omitempty"`
}

// PageRange is one required page range of a digitization request.
type PageRange struct {
	FromPage string `json:"from_page,omitempty"`
	ToPage   string `json:"to_page,omitempty"`
}

// ResourceSharing is the resource sharing block of a request.
type ResourceSharing struct {
	ID     string    `json:"id,omitempty"`
	Status *CodeDesc `json:"status,omitempty"`
	Volume string    `json:"volume,omitempty"`
}

// RequestDetail is one patron's request against a requested resource.
type RequestDetail struct {
	Link           string    `json:"link,omitempty"`
	ID             string    `json:"id"`
	RequestType    string    `json:"request_type,omitempty"`
	RequestSubType *CodeDesc `json:"request_sub_type,omitempty"`
	Destination    CodeDesc  `json:"destination"`
	RequestDate    string    `json:"request_date,omitempty"`
	RequestTime    string    `json:"request_time,omitempty"`
	Requester      Requester `json:"requester"`
	Comment        string    `json:"comment,omitempty"`
	Printed        bool      `json:"printed"`
	Reported       bool      `json:"reported"`

	// Request enrichment.
	Volume                 string           `json:"volume,omitempty"`
	Issue                  string           `json:"issue,omitempty"`
	ChapterOrArticleTitle  string           `json:"chapter_or_article_title,omitempty"`
	ChapterOrArticleAuthor string           `json:"chapter_or_article_author,omitempty"`
	PickupLocation         string           `json:"pickup_location,omitempty"`
	PickupLocationLibrary  string           `json:"pickup_location_library,omitempty"`
	RequiredPagesRange     []PageRange      `json:"required_pages_range,omitempty"`
	ResourceSharing        *ResourceSharing `json:"resource_sharing,omitempty"`

	// Copies satisfying this request. Derived during request enrichment and
	// never part of the wire format.
	Copies []*Copy `json:"-"`
}

// AddCopy adds c to the request's copies unless it is already present.
func (r *RequestDetail) AddCopy(c *Copy) {
	for _, existing := range r.Copies {
		if existing == c {
			return
		}
	}
	r.Copies = append(r.Copies, c)
}
