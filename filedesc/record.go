package filedesc

// Record is the wire shape for dataset-file registration calls. It never
// serializes ToReplace; FileToReplaceID is only
// populated when building a replacement record.
type Record struct {
	DirectoryLabel    string   `json:"directoryLabel,omitempty"`
	FileName          string   `json:"fileName"`
	MimeType          string   `json:"mimeType"`
	Categories        []string `json:"categories,omitempty"`
	Restrict          bool     `json:"restrict"`
	Description       string   `json:"description,omitempty"`
	TabIngest         bool     `json:"tabIngest"`
	StorageIdentifier string   `json:"storageIdentifier,omitempty"`
	FileToReplaceID   string   `json:"fileToReplaceId,omitempty"`
}

// RegistrationRecord builds the record used in /addFiles and /replaceFiles
// bulk registration calls. FileToReplaceID is included only when the
// descriptor is a replacement.
func (d *Descriptor) RegistrationRecord() Record {
	r := Record{
		DirectoryLabel:    d.DirectoryLabel,
		FileName:          d.DisplayName,
		MimeType:          d.MimeType,
		Categories:        d.Categories,
		Restrict:          d.Restrict,
		Description:       d.Description,
		TabIngest:         d.TabIngest,
		StorageIdentifier: d.StorageIdentifier,
	}
	if d.ToReplace {
		r.FileToReplaceID = d.FileID
	}
	return r
}

// NativeJSON is the jsonData shape for the native add/replace form POST:
// description, categories, restrict and directoryLabel, plus ForceReplace.
type NativeJSON struct {
	Description    string   `json:"description,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	Restrict       bool     `json:"restrict"`
	ForceReplace   bool     `json:"forceReplace"`
	DirectoryLabel string   `json:"directoryLabel,omitempty"`
}

// NativeForm builds the jsonData payload for a native add/replace POST.
func (d *Descriptor) NativeForm() NativeJSON {
	return NativeJSON{
		Description:    d.Description,
		Categories:     d.Categories,
		Restrict:       d.Restrict,
		ForceReplace:   true,
		DirectoryLabel: d.DirectoryLabel,
	}
}

// MetadataJSON is the jsonData shape for a metadata-only update: identical
// to NativeJSON minus ForceReplace.
type MetadataJSON struct {
	Description    string   `json:"description,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	Restrict       bool     `json:"restrict"`
	DirectoryLabel string   `json:"directoryLabel,omitempty"`
}

// MetadataForm builds the jsonData payload for a metadata update POST.
func (d *Descriptor) MetadataForm() MetadataJSON {
	return MetadataJSON{
		Description:    d.Description,
		Categories:     d.Categories,
		Restrict:       d.Restrict,
		DirectoryLabel: d.DirectoryLabel,
	}
}
