package extraction

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// unpackArchive extracts the result content from a zip archive. Entry
// preference: a markdown file if present, else a JSON file, else the first
// regular entry. A corrupt archive is fatal ("invalid archive"); an archive
// with no regular entries is fatal ("empty or unrecognized archive").
func unpackArchive(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.New("invalid archive")
	}

	entry := selectEntry(reader.File)
	if entry == nil {
		return "", errors.New("empty or unrecognized archive")
	}

	rc, err := entry.Open()
	if err != nil {
		return "", errors.New("invalid archive")
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", errors.New("invalid archive")
	}
	return string(content), nil
}

// selectEntry picks the preferred regular file from the archive listing.
func selectEntry(files []*zip.File) *zip.File {
	var first, firstJSON *zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".md":
			return f
		case ".json":
			if firstJSON == nil {
				firstJSON = f
			}
		}
		if first == nil {
			first = f
		}
	}
	if firstJSON != nil {
		return firstJSON
	}
	return first
}
