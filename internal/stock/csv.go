package stock

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// layout describes one platform's CSV schema. Video files get their own row
// shape when videoRow is set; it may only drop trailing columns, since the
// header always describes the image row.
type layout struct {
	delimiter   string
	quoteHeader bool
	header      []string
	imageRow    func(img *Image) []string
	videoRow    func(img *Image) []string
}

var layouts = map[Platform]layout{
	PlatformGeneral: {
		delimiter:   ",",
		quoteHeader: true,
		header:      []string{"Filename", "Title", "Description", "Keywords"},
		imageRow: func(img *Image) []string {
			return []string{img.Name, img.Result.Title, img.Result.Description, joinKeywords(img.Result.Keywords)}
		},
	},
	PlatformFreepik: {
		delimiter:   ";",
		quoteHeader: true,
		header:      []string{"File name", "Title", "Keywords", "Prompt", "Base-Model"},
		imageRow: func(img *Image) []string {
			return []string{img.Name, img.Result.Title, joinKeywords(img.Result.Keywords), img.Result.Prompt, img.Result.BaseModel}
		},
		videoRow: func(img *Image) []string {
			return []string{img.Name, img.Result.Title, joinKeywords(img.Result.Keywords)}
		},
	},
	PlatformShutterstock: {
		delimiter: ",",
		header:    []string{"Filename", "Description", "Keywords", "Categories", "Editorial", "Mature content", "illustration"},
		imageRow: func(img *Image) []string {
			illustration := "no"
			if img.IsVector() {
				illustration = "yes"
			}
			return []string{vectorName(img), shutterstockDescription(img.Result), joinKeywords(img.Result.Keywords), shutterstockCategories(img.Result), "no", "no", illustration}
		},
		videoRow: func(img *Image) []string {
			return []string{img.Name, shutterstockDescription(img.Result), joinKeywords(img.Result.Keywords), shutterstockCategories(img.Result), "no"}
		},
	},
	PlatformAdobeStock: {
		delimiter: ",",
		header:    []string{"Filename", "Title", "Keywords", "Category", "Releases"},
		imageRow: func(img *Image) []string {
			return []string{vectorName(img), img.Result.Title, joinKeywords(img.Result.Keywords), adobeCategory(img.Result), ""}
		},
		videoRow: func(img *Image) []string {
			return []string{img.Name, img.Result.Title, joinKeywords(img.Result.Keywords), adobeCategory(img.Result)}
		},
	},
}

// FormatCSV renders the completed images in the CSV layout of the platform.
// Images that are not complete are skipped; with none left the output is
// the header line alone.
func FormatCSV(p Platform, images []*Image) string {
	l, ok := layouts[p]
	if !ok {
		l = layouts[PlatformGeneral]
	}

	header := l.header
	if l.quoteHeader {
		header = quoteAll(header)
	}
	lines := []string{strings.Join(header, l.delimiter)}

	for _, img := range images {
		if img.Status != StatusComplete || img.Result == nil {
			continue
		}
		row := l.imageRow(img)
		if img.IsVideo() && l.videoRow != nil {
			row = l.videoRow(img)
		}
		lines = append(lines, strings.Join(quoteAll(row), l.delimiter))
	}

	return strings.Join(lines, "\n")
}

// ExportDir is the folder a platform's CSV files are saved under.
func ExportDir(p Platform) string {
	return strings.ToLower(p.Label())
}

// ExportFilename is the CSV file name for an export created at t.
func ExportFilename(p Platform, t time.Time) string {
	date := t.Format("2006-01-02")
	switch p {
	case PlatformFreepik:
		return fmt.Sprintf("freepik-metadata-%s.csv", date)
	case PlatformShutterstock:
		return fmt.Sprintf("shutterstock-%s.csv", date)
	case PlatformAdobeStock:
		return fmt.Sprintf("adobestock-%s.csv", date)
	default:
		return fmt.Sprintf("metadata-%s.csv", date)
	}
}

// ExportPath joins ExportDir and ExportFilename with a forward slash, the
// form used for object keys and download names.
func ExportPath(p Platform, t time.Time) string {
	return path.Join(ExportDir(p), ExportFilename(p, t))
}

func joinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = quote(f)
	}
	return out
}

// vectorName maps an SVG file to the EPS name the marketplaces expect the
// vector upload to have.
func vectorName(img *Image) string {
	if !img.IsVector() {
		return img.Name
	}
	ext := path.Ext(img.Name)
	return strings.TrimSuffix(img.Name, ext) + ".eps"
}

func shutterstockDescription(r *Result) string {
	if r.Description != "" {
		return r.Description
	}
	return r.Title
}

func shutterstockCategories(r *Result) string {
	cats := r.Categories
	if !validFor(PlatformShutterstock, cats) {
		cats = SuggestCategories(PlatformShutterstock, r)
	}
	return strings.Join(cats, ",")
}

func adobeCategory(r *Result) string {
	if validFor(PlatformAdobeStock, r.Categories) {
		return strconv.Itoa(AdobeCategoryID(r.Categories[0]))
	}
	return strconv.Itoa(SuggestAdobeCategory(r.Title, r.Description).ID)
}
