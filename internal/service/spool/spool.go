// Package spool discovers captured media fragments waiting for
// processing. A fragment is a media file plus a sidecar tags file
// ("<base>.tags.json") holding the capture metadata; files without
// their sidecar are left alone until the pair is complete.
package spool

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MediaExt is the container extension the capture side writes.
	MediaExt = ".mkv"
	// TagsSuffix is the sidecar suffix next to each media file.
	TagsSuffix = ".tags.json"
)

// Fragment is one media/tags pair found in the spool directory.
type Fragment struct {
	MediaPath string
	TagsPath  string
}

// Scan returns the complete fragment pairs in dir, ordered by file name.
func Scan(dir string) ([]Fragment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan spool dir: %w", err)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			present[e.Name()] = true
		}
	}

	var fragments []Fragment
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, MediaExt) {
			continue
		}
		base := strings.TrimSuffix(name, MediaExt)
		tagsName := base + TagsSuffix
		if !present[tagsName] {
			continue
		}
		fragments = append(fragments, Fragment{
			MediaPath: filepath.Join(dir, name),
			TagsPath:  filepath.Join(dir, tagsName),
		})
	}
	return fragments, nil
}

// TagsPathFor derives the sidecar path for a media file.
func TagsPathFor(mediaPath string) string {
	return strings.TrimSuffix(mediaPath, MediaExt) + TagsSuffix
}

// LoadTags reads and decodes a fragment's sidecar tag map.
func LoadTags(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	var tags map[string]string
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("decode tags %s: %w", path, err)
	}
	return tags, nil
}

// Remove deletes both files of a processed fragment.
func (f Fragment) Remove() error {
	return errors.Join(os.Remove(f.MediaPath), os.Remove(f.TagsPath))
}
