package domain

// Packageset is a named, owned grouping of source package names, used to
// scope copies and uploader permissions.
type Packageset struct {
	Id          int
	Name        string
	Description string
	Owner       string
	SeriesId    int

	// The packageset this one was cloned from during series
	// initialization, if any.
	RelatedSetId *int
}
