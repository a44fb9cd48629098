package model

// RequestedResourcesPage is the response of the requested-resources task list.
type RequestedResourcesPage struct {
	RequestedResource []*RequestedResource `json:"requested_resource"`
	TotalRecordCount  int                  `json:"total_record_count"`
}

// Item is the subset of an Alma item record used by item enrichment.
type Item struct {
	BibData struct {
		CompleteEdition string `json:"complete_edition"`
	} `json:"bib_data"`
	HoldingData struct {
		InTempLocation bool      `json:"in_temp_location"`
		TempLocation   *CodeDesc `json:"temp_location"`
	} `json:"holding_data"`
	ItemData struct {
		Description          string    `json:"description"`
		PhysicalMaterialType *CodeDesc `json:"physical_material_type"`
		EnumerationA         string    `json:"enumeration_a"`
		EnumerationB         string    `json:"enumeration_b"`
		ChronologyI          string    `json:"chronology_i"`
		ChronologyJ          string    `json:"chronology_j"`
		AccessionNumber      string    `json:"accession_number"`
	} `json:"item_data"`
}

// UserRequest is an Alma user request as returned by the request link and
// the item requests endpoint.
type UserRequest struct {
	RequestID              string           `json:"request_id"`
	RequestSubType         *CodeDesc        `json:"request_sub_type"`
	Volume                 string           `json:"volume"`
	Issue                  string           `json:"issue"`
	ChapterOrArticleTitle  string           `json:"chapter_or_article_title"`
	ChapterOrArticleAuthor string           `json:"chapter_or_article_author"`
	PickupLocation         string           `json:"pickup_location"`
	PickupLocationLibrary  string           `json:"pickup_location_library"`
	RequiredPagesRange     []PageRange      `json:"required_pages_range"`
	ResourceSharing        *ResourceSharing `json:"resource_sharing"`
}

// UserRequests is the response of {item link}/requests.
type UserRequests struct {
	UserRequest      []UserRequest `json:"user_request"`
	TotalRecordCount int           `json:"total_record_count"`
}

// User is the subset of an Alma user record used by user enrichment.
type User struct {
	PrimaryID string    `json:"primary_id"`
	UserGroup *CodeDesc `json:"user_group"`
}

// LendingRequest is one resource sharing lending request.
type LendingRequest struct {
	RequestID string `json:"request_id"`
	Volume    string `json:"volume"`
}

// LendingRequests is the response of the lending-requests task list.
type LendingRequests struct {
	UserResourceSharingRequest []LendingRequest `json:"user_resource_sharing_request"`
	TotalRecordCount           int              `json:"total_record_count"`
}

// LibraryLocation is one location of a library.
type LibraryLocation struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LibraryLocations is the response of the library locations endpoint.
type LibraryLocations struct {
	Location         []LibraryLocation `json:"location"`
	TotalRecordCount int               `json:"total_record_count"`
}
