package fetch

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Object is one record in a collection metadata file (objects.json, Finnish
// National Gallery format). Only the fields the downloader needs are
// modeled; everything else passes through unseen.
type Object struct {
	ObjectID   json.Number  `json:"objectId"`
	People     []Person     `json:"people"`
	Multimedia []Multimedia `json:"multimedia"`
}

// Person is an artist entry attached to an object.
type Person struct {
	FirstName  string `json:"firstName"`
	FamilyName string `json:"familyName"`
}

// Multimedia holds the image URLs of an object keyed by resolution
// ("25", "250", "500", "1000", "2000", "4000").
type Multimedia struct {
	JPG map[string]string `json:"jpg"`
}

// Resolutions lists the resolution keys the dataset provides.
var Resolutions = []string{"25", "250", "500", "1000", "2000", "4000"}

// LoadMetadata reads an objects.json metadata file.
func LoadMetadata(path string) ([]Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var objects []Object
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return objects, nil
}

// ImageURL returns the URL of the object's first image at the given
// resolution, or "" when the object has no image at that resolution.
func (o *Object) ImageURL(resolution string) string {
	if len(o.Multimedia) == 0 {
		return ""
	}
	return o.Multimedia[0].JPG[resolution]
}

// Filename derives a stable output filename from the artist and object id,
// e.g. "Helene_Schjerfbeck_12345.jpg".
func (o *Object) Filename() string {
	artist := "Unknown"
	if len(o.People) > 0 {
		name := strings.Trim(o.People[0].FirstName+"_"+o.People[0].FamilyName, "_")
		if s := sanitizeFilename(name, 30); s != "" {
			artist = s
		}
	}

	id := o.ObjectID.String()
	if id == "" {
		id = "unknown"
	}
	return artist + "_" + id + ".jpg"
}

// sanitizeFilename keeps alphanumerics, spaces, dots, underscores and
// hyphens, and truncates to maxLength.
func sanitizeFilename(name string, maxLength int) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" ._-", r) {
			b.WriteRune(r)
		}
	}

	safe := strings.TrimSpace(b.String())
	if runes := []rune(safe); len(runes) > maxLength {
		safe = strings.TrimSpace(string(runes[:maxLength]))
	}
	return safe
}
