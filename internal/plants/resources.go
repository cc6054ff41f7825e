// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plants

import (
	"fmt"
	"strings"
)

const (
	AcceptJSON = "application/json"
	AcceptCSV  = "text/csv"
)

// ResourceSpec describes one retrievable sub-resource. Path and Body are
// format templates with a single %s placeholder for the parameter (the
// plant identifier for every table entry, the symbol for the profile).
type ResourceSpec struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Accept string `yaml:"accept"`
	Body   string `yaml:"body,omitempty"`
}

// URLPath returns the request path for param.
func (s ResourceSpec) URLPath(param string) string {
	if !strings.Contains(s.Path, "%s") {
		return s.Path
	}
	return fmt.Sprintf(s.Path, param)
}

// RequestBody returns the request body for param, or "" for read-style specs.
func (s ResourceSpec) RequestBody(param string) string {
	if s.Body == "" {
		return ""
	}
	return fmt.Sprintf(s.Body, param)
}

// IsJSON reports whether responses are decoded as JSON.
func (s ResourceSpec) IsJSON() bool { return s.Accept == AcceptJSON }

// FileName is the name the result is persisted under inside a symbol directory.
func (s ResourceSpec) FileName() string { return s.Name + ".json" }

// ProfileSpec fetches the plant profile. It is keyed by the symbol rather
// than the resolved identifier, matching how the service was first scraped;
// confirm against the live service before changing it.
var ProfileSpec = ResourceSpec{
	Name:   "profile",
	Path:   "PlantProfile?symbol=%s",
	Accept: AcceptJSON,
}

// ImagesResource names the table entry whose result is the media manifest.
const ImagesResource = "images"

var resources = []ResourceSpec{
	{
		Name:   "distribution",
		Path:   "getDownloadDistributionDocumentation",
		Accept: AcceptCSV,
		Body:   `{"Field":"Symbol","SortBy":"sortSciName","Offset":null,"MasterId":"%s"}`,
	},
	{
		Name:   ImagesResource,
		Path:   "PlantImages?plantId=%s",
		Accept: AcceptJSON,
	},
	{
		Name:   "wetland",
		Path:   "PlantWetland/%s",
		Accept: AcceptJSON,
	},
	{
		Name:   "related-links",
		Path:   "PlantRelatedLinks/%s",
		Accept: AcceptJSON,
	},
	{
		Name:   "documentation",
		Path:   "PlantDocumentation/%s?orderBy=DataSourceString&offset=-1",
		Accept: AcceptJSON,
	},
	{
		Name:   "characteristics",
		Path:   "PlantCharacteristics/%s",
		Accept: AcceptJSON,
	},
}

// Resources returns a copy of the identifier-keyed resource table in fetch order.
func Resources() []ResourceSpec {
	out := make([]ResourceSpec, len(resources))
	copy(out, resources)
	return out
}

// Lookup returns the table entry named name.
func Lookup(name string) (ResourceSpec, bool) {
	for _, s := range resources {
		if s.Name == name {
			return s, true
		}
	}
	return ResourceSpec{}, false
}
