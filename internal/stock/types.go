package stock

import "strings"

// Status is the processing state of an uploaded file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Result is the metadata produced for one file. It is not modified after
// the analyzer returns it.
type Result struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Prompt      string   `json:"prompt,omitempty"`
	BaseModel   string   `json:"baseModel,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Image is an uploaded file moving through the processing pipeline.
// Videos are represented by the same type.
type Image struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	MIMEType string  `json:"mimeType"`
	Size     int64   `json:"size"`
	Preview  string  `json:"preview,omitempty"`
	Status   Status  `json:"status"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`

	Data []byte `json:"-"`
}

// IsVideo reports whether the file is a video.
func (img *Image) IsVideo() bool {
	return strings.HasPrefix(img.MIMEType, "video/")
}

// IsVector reports whether the file is an SVG.
func (img *Image) IsVector() bool {
	return img.MIMEType == "image/svg+xml"
}
