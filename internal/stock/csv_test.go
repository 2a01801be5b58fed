package stock

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func completeImage(name, mime string, r *Result) *Image {
	return &Image{ID: name, Name: name, MIMEType: mime, Status: StatusComplete, Result: r}
}

func TestFormatCSV_GeneralSingleImageEmptyDescription(t *testing.T) {
	img := completeImage("photo.jpg", "image/jpeg", &Result{
		Title:    "Red apple",
		Keywords: []string{"apple", "fruit", "red"},
	})

	got := FormatCSV(PlatformGeneral, []*Image{img})

	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, `"Filename","Title","Description","Keywords"`, lines[0])
	assert.Equal(t, `"photo.jpg","Red apple","","apple, fruit, red"`, lines[1])
}

func TestFormatCSV_EmptyListIsHeaderOnly(t *testing.T) {
	want := map[Platform]string{
		PlatformGeneral:      `"Filename","Title","Description","Keywords"`,
		PlatformFreepik:      `"File name";"Title";"Keywords";"Prompt";"Base-Model"`,
		PlatformShutterstock: `Filename,Description,Keywords,Categories,Editorial,Mature content,illustration`,
		PlatformAdobeStock:   `Filename,Title,Keywords,Category,Releases`,
	}

	for _, p := range Platforms {
		t.Run(string(p), func(t *testing.T) {
			assert.Equal(t, want[p], FormatCSV(p, nil))
		})
	}
}

func TestFormatCSV_SkipsIncompleteImages(t *testing.T) {
	images := []*Image{
		{Name: "a.jpg", MIMEType: "image/jpeg", Status: StatusPending},
		{Name: "b.jpg", MIMEType: "image/jpeg", Status: StatusError, Error: "boom"},
		completeImage("c.jpg", "image/jpeg", &Result{Title: "C"}),
	}

	got := FormatCSV(PlatformGeneral, images)

	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `"c.jpg"`))
}

func TestFormatCSV_EscapesEmbeddedQuotes(t *testing.T) {
	img := completeImage("q.png", "image/png", &Result{Title: `The "best" view`})

	got := FormatCSV(PlatformGeneral, []*Image{img})

	assert.Contains(t, got, `"The ""best"" view"`)
}

func TestFormatCSV_Freepik(t *testing.T) {
	images := []*Image{
		completeImage("art.png", "image/png", &Result{
			Title:     "Neon city",
			Keywords:  []string{"neon", "city"},
			Prompt:    "a neon city at night",
			BaseModel: "Midjourney 6",
		}),
		completeImage("clip.mp4", "video/mp4", &Result{
			Title:    "Waves",
			Keywords: []string{"sea"},
		}),
	}

	got := FormatCSV(PlatformFreepik, images)

	assert.Equal(t, strings.Join([]string{
		`"File name";"Title";"Keywords";"Prompt";"Base-Model"`,
		`"art.png";"Neon city";"neon, city";"a neon city at night";"Midjourney 6"`,
		`"clip.mp4";"Waves";"sea"`,
	}, "\n"), got)
}

func TestFormatCSV_Shutterstock(t *testing.T) {
	images := []*Image{
		completeImage("pets.svg", "image/svg+xml", &Result{
			Title:    "A cat and a dog",
			Keywords: []string{"cat", "dog"},
		}),
		completeImage("run.mov", "video/quicktime", &Result{
			Title:       "Runner",
			Description: "Man running in park",
			Keywords:    []string{"running"},
			Categories:  []string{"Sports/Recreation"},
		}),
	}

	got := FormatCSV(PlatformShutterstock, images)

	assert.Equal(t, strings.Join([]string{
		`Filename,Description,Keywords,Categories,Editorial,Mature content,illustration`,
		`"pets.eps","A cat and a dog","cat, dog","Animals/Wildlife","no","no","yes"`,
		`"run.mov","Man running in park","running","Sports/Recreation","no"`,
	}, "\n"), got)
}

func TestFormatCSV_AdobeStock(t *testing.T) {
	images := []*Image{
		completeImage("lake.jpg", "image/jpeg", &Result{
			Title:    "Mountain lake",
			Keywords: []string{"lake"},
		}),
		completeImage("icons.svg", "image/svg+xml", &Result{
			Title:      "Icon set",
			Categories: []string{"Technology"},
		}),
	}

	got := FormatCSV(PlatformAdobeStock, images)

	assert.Equal(t, strings.Join([]string{
		`Filename,Title,Keywords,Category,Releases`,
		`"lake.jpg","Mountain lake","lake","11",""`,
		`"icons.eps","Icon set","","19",""`,
	}, "\n"), got)
}

func TestExportNaming(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "general/metadata-2026-03-14.csv", ExportPath(PlatformGeneral, ts))
	assert.Equal(t, "freepik/freepik-metadata-2026-03-14.csv", ExportPath(PlatformFreepik, ts))
	assert.Equal(t, "shutterstock/shutterstock-2026-03-14.csv", ExportPath(PlatformShutterstock, ts))
	assert.Equal(t, "adobestock/adobestock-2026-03-14.csv", ExportPath(PlatformAdobeStock, ts))
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("Adobe")
	assert.NoError(t, err)
	assert.Equal(t, PlatformAdobeStock, p)

	p, err = ParsePlatform("")
	assert.NoError(t, err)
	assert.Equal(t, PlatformGeneral, p)

	_, err = ParsePlatform("pinterest")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("image-to-prompt")
	assert.NoError(t, err)
	assert.Equal(t, ModePrompt, m)

	_, err = ParseMode("video")
	assert.Error(t, err)
}

func TestFormatCSV_GeneralVideoKeepsColumns(t *testing.T) {
	img := completeImage("clip.mp4", "video/mp4", &Result{
		Title:       "T",
		Description: "D",
		Keywords:    []string{"k1", "k2"},
	})

	got := FormatCSV(PlatformGeneral, []*Image{img})

	assert.Equal(t, strings.Join([]string{
		`"Filename","Title","Description","Keywords"`,
		`"clip.mp4","T","D","k1, k2"`,
	}, "\n"), got)
}

func TestFormatCSV_CategoriesFromOtherPlatformAreRematched(t *testing.T) {
	result := func(p Platform) *Result {
		r := &Result{Title: "A cat and a dog", Keywords: []string{"cat", "dog"}}
		r.Categories = SuggestCategories(p, r)
		return r
	}

	fromShutterstock := result(PlatformShutterstock)
	assert.Equal(t, []string{"Animals/Wildlife"}, fromShutterstock.Categories)
	got := FormatCSV(PlatformAdobeStock, []*Image{completeImage("pets.jpg", "image/jpeg", fromShutterstock)})
	assert.Equal(t, `"pets.jpg","A cat and a dog","cat, dog","1",""`, strings.Split(got, "\n")[1])

	fromAdobe := result(PlatformAdobeStock)
	assert.Equal(t, []string{"Animals"}, fromAdobe.Categories)
	got = FormatCSV(PlatformShutterstock, []*Image{completeImage("pets.jpg", "image/jpeg", fromAdobe)})
	assert.Equal(t, `"pets.jpg","A cat and a dog","cat, dog","Animals/Wildlife","no","no","no"`, strings.Split(got, "\n")[1])
}

func TestValidFor(t *testing.T) {
	tests := []struct {
		platform Platform
		names    []string
		want     bool
	}{
		{PlatformShutterstock, []string{"Nature", "Holidays"}, true},
		{PlatformShutterstock, []string{"Backgrounds/Textures"}, true},
		{PlatformShutterstock, []string{"Nature", "Animals"}, false},
		{PlatformShutterstock, nil, false},
		{PlatformAdobeStock, []string{"Graphic Resources"}, true},
		{PlatformAdobeStock, []string{"Animals/Wildlife"}, false},
		{PlatformGeneral, []string{"Nature"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validFor(tt.platform, tt.names), "%s %v", tt.platform, tt.names)
	}
}
