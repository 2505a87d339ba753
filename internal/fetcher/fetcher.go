// Package fetcher downloads spreadsheets published at http(s) URLs.
package fetcher

import (
	"bytes"
	"context"
	"mime"
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/venture-galaxy/matchmaker/internal/sheet"
)

// Fetcher downloads remote files.
type Fetcher interface {
	Download(ctx context.Context, url string) (*File, error)
}

// File is a downloaded body.
type File struct {
	// Name is the last segment of the URL path.
	Name        string
	ContentType string
	Data        []byte
}

const csvContentType = "text/csv"

// IsRemote reports whether source is an http or https URL.
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Table decodes the file as CSV when its name or content type says so, and
// as xlsx otherwise.
func (f *File) Table() (*sheet.Table, error) {
	if f.isCSV() {
		return sheet.DecodeCSV(bytes.NewReader(f.Data))
	}
	t, err := sheet.Decode(f.Data)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: decode %s", f.Name)
	}
	return t, nil
}

func (f *File) isCSV() bool {
	if strings.EqualFold(path.Ext(f.Name), ".csv") {
		return true
	}
	mt, _, err := mime.ParseMediaType(f.ContentType)
	return err == nil && mt == csvContentType
}
