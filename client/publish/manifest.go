// Package publish implements the encrypted publication pipeline: encrypt,
// gate the key, store the bundle and manifest, then submit the post.
package publish

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/therealharpaljadeja/lens-it/client/gating"
)

// ManifestVersion is the metadata standard version stamped on every
// manifest.
const ManifestVersion = "1.0.0"

// Attribute is one manifest trait. Attributes[0] always carries the
// content_location pointer to the encrypted bundle.
type Attribute struct {
	TraitType string `json:"traitType"`
	Value     string `json:"value"`
}

// Manifest is the public metadata object stored alongside a gated
// publication. The manifest itself is readable by anyone; the bundle it
// points to is not decryptable without the gating network.
type Manifest struct {
	Version     string      `json:"version"`
	MetadataID  string      `json:"metadata_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Content     string      `json:"content"`
	Attributes  []Attribute `json:"attributes"`
	AppID       string      `json:"appId"`
}

// Bundle is the stored ciphertext package. Conditions are embedded verbatim
// so a later decrypt reconstructs the identical key-release request.
type Bundle struct {
	EncryptedData         string       `json:"encryptedData"`
	EncryptedSymmetricKey string       `json:"encryptedSymmetricKey"`
	Conditions            *gating.Tree `json:"accessControlConditions"`
}

// ContentLocationTrait names the attribute pointing at the bundle.
const ContentLocationTrait = "content_location"

// buildManifest assembles the public manifest for a gated publication.
func buildManifest(appID, authorHandle, bundleRef string, allowedHandles []string) Manifest {
	return Manifest{
		Version:     ManifestVersion,
		MetadataID:  uuid.NewString(),
		Name:        fmt.Sprintf("Published by @%s", authorHandle),
		Description: "A gated publication. The content is encrypted and readable only by approved profiles.",
		Content:     gatedNotice(allowedHandles),
		Attributes: []Attribute{
			{TraitType: ContentLocationTrait, Value: bundleRef},
		},
		AppID: appID,
	}
}

// gatedNotice builds the human-readable placeholder shown to viewers who
// cannot decrypt.
func gatedNotice(handles []string) string {
	if len(handles) == 0 {
		return "This publication is gated."
	}

	tagged := make([]string, 0, len(handles))
	for _, h := range handles {
		tagged = append(tagged, "@"+h)
	}
	return fmt.Sprintf("This publication is gated. Only %s can read it.", strings.Join(tagged, ", "))
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// trimify collapses runs of blank lines and trims surrounding whitespace
// before the empty-content check.
func trimify(s string) string {
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

// BundleRef extracts the bundle pointer from a fetched manifest, or empty if
// the manifest carries none.
func (m Manifest) BundleRef() string {
	for _, attr := range m.Attributes {
		if attr.TraitType == ContentLocationTrait {
			return attr.Value
		}
	}
	return ""
}
