// Package batch holds uploaded files and runs them through the analyzer one
// at a time.
package batch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/raine/stockmeta/internal/imaging"
	"github.com/raine/stockmeta/internal/stock"
)

const (
	// MaxImageSize is the largest accepted image or SVG.
	MaxImageSize = 10 << 20
	// MaxVideoSize is the largest accepted video.
	MaxVideoSize = 100 << 20
)

var (
	// ErrUnsupportedType is returned for files that are not an accepted
	// image or video type.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge is returned for files over the size limit of their kind.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = errors.New("empty file")
)

var acceptedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/svg+xml":   true,
	"video/mp4":       true,
	"video/quicktime": true,
}

// Validate checks a file's type and size before it enters a queue.
func Validate(mimeType string, size int64) error {
	if !acceptedTypes[mimeType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if size == 0 {
		return ErrEmptyFile
	}
	limit := int64(MaxImageSize)
	if imaging.IsVideo(mimeType) {
		limit = MaxVideoSize
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, size, limit)
	}
	return nil
}

// Queue is the ordered list of uploaded files of one session. It is safe
// for concurrent use; readers get copies.
type Queue struct {
	mu     sync.Mutex
	images []*stock.Image
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add validates a file and appends it as pending. An empty mimeType is
// detected from the name and content. Rejected files are not added.
func (q *Queue) Add(name string, data []byte, mimeType string) (stock.Image, error) {
	if mimeType == "" {
		mimeType = imaging.DetectMIME(name, data)
	}
	if err := Validate(mimeType, int64(len(data))); err != nil {
		return stock.Image{}, fmt.Errorf("%s: %w", name, err)
	}

	img := &stock.Image{
		ID:       uuid.New().String(),
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Preview:  name,
		Status:   stock.StatusPending,
		Data:     data,
	}

	q.mu.Lock()
	q.images = append(q.images, img)
	q.mu.Unlock()

	return *img, nil
}

// Remove drops an image. Returns false if no image has that id.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, img := range q.images {
		if img.ID == id {
			q.images = append(q.images[:i], q.images[i+1:]...)
			return true
		}
	}
	return false
}

// Retry puts a failed image back to pending. Returns false if the image
// does not exist or has not failed.
func (q *Queue) Retry(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	img := q.find(id)
	if img == nil || img.Status != stock.StatusError {
		return false
	}
	img.Status = stock.StatusPending
	img.Error = ""
	return true
}

// Get returns a copy of an image.
func (q *Queue) Get(id string) (stock.Image, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	img := q.find(id)
	if img == nil {
		return stock.Image{}, false
	}
	return *img, true
}

// Images returns copies of all images in upload order.
func (q *Queue) Images() []stock.Image {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]stock.Image, len(q.images))
	for i, img := range q.images {
		out[i] = *img
	}
	return out
}

// Completed returns copies of the images that have a result, ready for
// FormatCSV.
func (q *Queue) Completed() []*stock.Image {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*stock.Image
	for _, img := range q.images {
		if img.Status == stock.StatusComplete && img.Result != nil {
			c := *img
			out = append(out, &c)
		}
	}
	return out
}

// Counts returns the number of images per status.
func (q *Queue) Counts() map[stock.Status]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := make(map[stock.Status]int)
	for _, img := range q.images {
		counts[img.Status]++
	}
	return counts
}

// Len returns the number of images.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.images)
}

// Clear removes every image.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.images = nil
	q.mu.Unlock()
}

func (q *Queue) find(id string) *stock.Image {
	for _, img := range q.images {
		if img.ID == id {
			return img
		}
	}
	return nil
}

func (q *Queue) hasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, img := range q.images {
		if img.Status == stock.StatusPending {
			return true
		}
	}
	return false
}

// claimNext moves the first pending image to processing and returns a copy
// of it, including its data. The status change is what keeps two runners
// from analyzing the same image.
func (q *Queue) claimNext() (stock.Image, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, img := range q.images {
		if img.Status == stock.StatusPending {
			img.Status = stock.StatusProcessing
			img.Error = ""
			return *img, true
		}
	}
	return stock.Image{}, false
}

// release returns a claimed image to pending.
func (q *Queue) release(id string) (stock.Image, bool) {
	return q.update(id, func(img *stock.Image) {
		img.Status = stock.StatusPending
	})
}

// complete stores a result for a claimed image.
func (q *Queue) complete(id string, res *stock.Result) (stock.Image, bool) {
	return q.update(id, func(img *stock.Image) {
		img.Status = stock.StatusComplete
		img.Result = res
		img.Error = ""
	})
}

// fail marks a claimed image as failed.
func (q *Queue) fail(id string, err error) (stock.Image, bool) {
	return q.update(id, func(img *stock.Image) {
		img.Status = stock.StatusError
		img.Error = err.Error()
	})
}

// update applies fn to the image if it is still in the queue. Images
// removed while being processed are not resurrected.
func (q *Queue) update(id string, fn func(img *stock.Image)) (stock.Image, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	img := q.find(id)
	if img == nil {
		return stock.Image{}, false
	}
	fn(img)
	return *img, true
}
