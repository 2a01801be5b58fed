package stock

import (
	"sort"
	"strings"
)

// Category heuristics
//
// Shutterstock accepts up to two categories per file and AdobeStock exactly
// one numeric category. Neither is asked from the model: the categories are
// derived from the generated text with static word tables. Each distinct
// token of the text is looked up once, every category it maps to gets one
// point, and the categories are ranked by points. Ties keep the order in
// which the categories were first hit.

const (
	shutterstockMaxCategories = 2
	adobeMaxCategories        = 1

	defaultShutterstockCategory = "Backgrounds/Textures"
	defaultAdobeCategoryID      = 8 // Graphic Resources
)

// tokenTrim is stripped from both ends of every token before lookup.
const tokenTrim = `.,;:!?"'()[]{}<>/\|*#`

// CategoryMatch is a category together with the number of tokens that hit it.
type CategoryMatch struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AdobeCategory is an AdobeStock category with its numeric CSV value.
type AdobeCategory struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MatchCategories ranks the categories of table hit by text. The result is
// sorted by descending count and is empty when nothing matched.
func MatchCategories(text string, table map[string][]string) []CategoryMatch {
	seen := make(map[string]bool)
	index := make(map[string]int)
	var matches []CategoryMatch

	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, tokenTrim)
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true

		for _, cat := range table[token] {
			if i, ok := index[cat]; ok {
				matches[i].Count++
				continue
			}
			index[cat] = len(matches)
			matches = append(matches, CategoryMatch{Name: cat, Count: 1})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Count > matches[j].Count
	})
	return matches
}

// SuggestShutterstockCategories returns at most two Shutterstock categories
// for a title and its keywords.
func SuggestShutterstockCategories(title string, keywords []string) []CategoryMatch {
	text := title + " " + strings.Join(keywords, " ")
	matches := MatchCategories(text, shutterstockWords)
	if len(matches) == 0 {
		return []CategoryMatch{{Name: defaultShutterstockCategory}}
	}
	if len(matches) > shutterstockMaxCategories {
		matches = matches[:shutterstockMaxCategories]
	}
	return matches
}

// SuggestAdobeCategory returns the AdobeStock category for a title and
// description.
func SuggestAdobeCategory(title, description string) AdobeCategory {
	matches := MatchCategories(title+" "+description, adobeWords)
	if len(matches) == 0 {
		return AdobeCategory{ID: defaultAdobeCategoryID, Name: adobeCategoryNames[defaultAdobeCategoryID]}
	}
	best := matches[:adobeMaxCategories][0]
	return AdobeCategory{ID: adobeCategoryIDs[best.Name], Name: best.Name, Count: best.Count}
}

// SuggestCategories returns the category names a platform needs for a
// result. Platforms without categories return nil.
func SuggestCategories(p Platform, r *Result) []string {
	if r == nil {
		return nil
	}
	switch p {
	case PlatformShutterstock:
		var names []string
		for _, m := range SuggestShutterstockCategories(r.Title, r.Keywords) {
			names = append(names, m.Name)
		}
		return names
	case PlatformAdobeStock:
		return []string{SuggestAdobeCategory(r.Title, r.Description).Name}
	default:
		return nil
	}
}

var adobeCategoryNames = map[int]string{
	1:  "Animals",
	2:  "Buildings and Architecture",
	3:  "Business",
	4:  "Drinks",
	5:  "The Environment",
	6:  "States of Mind",
	7:  "Food",
	8:  "Graphic Resources",
	9:  "Hobbies and Leisure",
	10: "Industry",
	11: "Landscapes",
	12: "Lifestyle",
	13: "People",
	14: "Plants and Flowers",
	15: "Culture and Religion",
	16: "Science",
	17: "Social Issues",
	18: "Sports",
	19: "Technology",
	20: "Transport",
	21: "Travel",
}

var adobeCategoryIDs = func() map[string]int {
	ids := make(map[string]int, len(adobeCategoryNames))
	for id, name := range adobeCategoryNames {
		ids[name] = id
	}
	return ids
}()

// AdobeCategoryID returns the numeric id of an AdobeStock category name,
// or the default category id when the name is unknown.
func AdobeCategoryID(name string) int {
	if id, ok := adobeCategoryIDs[name]; ok {
		return id
	}
	return defaultAdobeCategoryID
}

// shutterstockCategorySet holds every category name shutterstockWords can
// produce, plus the fallback.
var shutterstockCategorySet = func() map[string]bool {
	set := map[string]bool{defaultShutterstockCategory: true}
	for _, cats := range shutterstockWords {
		for _, c := range cats {
			set[c] = true
		}
	}
	return set
}()

// validFor reports whether names is a non-empty list of categories from p's
// taxonomy. Results analyzed for one platform carry that platform's names
// and must be matched again before export to another.
func validFor(p Platform, names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, name := range names {
		switch p {
		case PlatformShutterstock:
			if !shutterstockCategorySet[name] {
				return false
			}
		case PlatformAdobeStock:
			if _, ok := adobeCategoryIDs[name]; !ok {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// invert turns a category -> trigger words map into a word -> categories
// lookup table. A word may point at several categories; they are listed in
// category name order.
func invert(words map[string][]string) map[string][]string {
	table := make(map[string][]string)
	cats := make([]string, 0, len(words))
	for cat := range words {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		for _, w := range words[cat] {
			table[w] = append(table[w], cat)
		}
	}
	return table
}

var shutterstockWords = invert(map[string][]string{
	"Abstract":             {"abstract", "geometric", "shapes", "pattern", "fractal", "gradient", "minimal", "minimalist", "surreal"},
	"Animals/Wildlife":     {"animal", "animals", "cat", "cats", "dog", "dogs", "bird", "birds", "wildlife", "horse", "fish", "lion", "tiger", "puppy", "kitten", "pet", "pets", "elephant", "butterfly", "insect", "bear", "fox", "deer", "owl"},
	"Arts":                 {"art", "artistic", "painting", "watercolor", "drawing", "sketch", "illustration", "canvas", "brush", "doodle", "hand-drawn"},
	"Backgrounds/Textures": {"background", "backgrounds", "texture", "textures", "wallpaper", "backdrop", "bokeh", "grunge", "paper", "seamless"},
	"Beauty/Fashion":       {"beauty", "fashion", "makeup", "cosmetics", "style", "dress", "model", "hair", "jewelry", "elegant", "glamour"},
	"Buildings/Landmarks":  {"building", "buildings", "architecture", "landmark", "tower", "bridge", "city", "skyline", "house", "church", "castle", "skyscraper"},
	"Business/Finance":     {"business", "finance", "money", "office", "corporate", "marketing", "chart", "graph", "investment", "bank", "meeting", "startup"},
	"Education":            {"education", "school", "student", "learning", "book", "books", "study", "classroom", "teacher", "university", "library"},
	"Food and drink":       {"food", "drink", "coffee", "tea", "fruit", "vegetable", "vegetables", "meal", "breakfast", "dessert", "cake", "wine", "beer", "pizza", "cooking", "kitchen"},
	"Healthcare/Medical":   {"health", "healthcare", "medical", "medicine", "doctor", "hospital", "nurse", "pill", "virus", "fitness", "wellness"},
	"Holidays":             {"holiday", "holidays", "christmas", "halloween", "easter", "valentine", "birthday", "celebration", "party", "festive", "thanksgiving", "diwali", "eid", "ramadan"},
	"Industrial":           {"industrial", "industry", "factory", "machine", "machinery", "construction", "engineering", "metal", "warehouse", "manufacturing"},
	"Interiors":            {"interior", "interiors", "room", "furniture", "sofa", "living", "bedroom", "decor", "apartment"},
	"Nature":               {"nature", "landscape", "forest", "tree", "trees", "mountain", "mountains", "sea", "ocean", "beach", "sky", "sunset", "sunrise", "river", "lake", "flower", "flowers", "leaf", "leaves", "garden", "autumn", "winter", "spring", "summer"},
	"Objects":              {"object", "objects", "tool", "tools", "bottle", "cup", "box", "gift", "toy", "clock", "key", "bag"},
	"Parks/Outdoor":        {"park", "outdoor", "outdoors", "camping", "hiking", "picnic", "playground", "trail"},
	"People":               {"people", "person", "man", "woman", "men", "women", "child", "children", "kid", "kids", "family", "girl", "boy", "portrait", "couple", "friends"},
	"Religion":             {"religion", "religious", "god", "prayer", "faith", "mosque", "temple", "cross", "spiritual", "islamic", "christian"},
	"Science":              {"science", "scientific", "laboratory", "lab", "chemistry", "biology", "physics", "dna", "molecule", "space", "planet", "astronomy"},
	"Signs/Symbols":        {"icon", "icons", "sign", "signs", "symbol", "symbols", "logo", "emblem", "badge", "arrow", "set", "vector", "flat", "line"},
	"Sports/Recreation":    {"sport", "sports", "football", "soccer", "basketball", "tennis", "running", "yoga", "gym", "swimming", "cycling", "recreation"},
	"Technology":           {"technology", "tech", "computer", "laptop", "phone", "smartphone", "digital", "internet", "network", "ai", "robot", "data", "cyber", "software", "code"},
	"Transportation":       {"car", "cars", "transport", "transportation", "vehicle", "train", "airplane", "plane", "bus", "truck", "ship", "boat", "bicycle", "road", "traffic"},
	"Vintage":              {"vintage", "retro", "old", "antique", "classic", "nostalgic"},
})

var adobeWords = invert(map[string][]string{
	"Animals":                    {"animal", "animals", "cat", "cats", "dog", "dogs", "bird", "birds", "wildlife", "horse", "fish", "lion", "tiger", "puppy", "kitten", "pet", "pets", "elephant", "butterfly", "insect", "bear", "fox", "deer", "owl"},
	"Buildings and Architecture": {"building", "buildings", "architecture", "house", "tower", "bridge", "skyscraper", "church", "castle", "skyline", "interior", "room"},
	"Business":                   {"business", "office", "corporate", "finance", "money", "marketing", "meeting", "chart", "graph", "startup", "investment", "bank"},
	"Drinks":                     {"drink", "drinks", "coffee", "tea", "wine", "beer", "juice", "cocktail", "water", "beverage"},
	"The Environment":            {"environment", "ecology", "eco", "green", "recycling", "pollution", "climate", "sustainable", "renewable", "solar"},
	"States of Mind":             {"emotion", "emotions", "happy", "sad", "love", "stress", "calm", "relax", "feeling", "mood", "anxiety", "joy"},
	"Food":                       {"food", "fruit", "vegetable", "vegetables", "meal", "breakfast", "dessert", "cake", "pizza", "bread", "cooking", "kitchen", "restaurant"},
	"Graphic Resources":          {"background", "texture", "pattern", "icon", "icons", "vector", "abstract", "design", "template", "frame", "border", "logo", "symbol", "illustration", "seamless", "wallpaper"},
	"Hobbies and Leisure":        {"hobby", "leisure", "music", "guitar", "game", "games", "reading", "painting", "photography", "garden", "gardening", "craft", "travel"},
	"Industry":                   {"industry", "industrial", "factory", "machine", "machinery", "construction", "engineering", "warehouse", "manufacturing", "metal"},
	"Landscapes":                 {"landscape", "mountain", "mountains", "forest", "sea", "ocean", "beach", "sunset", "sunrise", "river", "lake", "sky", "nature", "valley", "desert"},
	"Lifestyle":                  {"lifestyle", "home", "fashion", "beauty", "shopping", "party", "holiday", "christmas", "celebration", "wedding", "birthday"},
	"People":                     {"people", "person", "man", "woman", "men", "women", "child", "children", "kid", "kids", "family", "girl", "boy", "portrait", "couple"},
	"Plants and Flowers":         {"plant", "plants", "flower", "flowers", "leaf", "leaves", "tree", "trees", "floral", "rose", "tulip", "botanical", "grass"},
	"Culture and Religion":       {"culture", "religion", "religious", "tradition", "traditional", "festival", "mosque", "temple", "church", "prayer", "ramadan", "eid", "diwali", "islamic"},
	"Science":                    {"science", "laboratory", "lab", "chemistry", "biology", "physics", "dna", "molecule", "space", "planet", "astronomy", "research"},
	"Social Issues":              {"social", "poverty", "equality", "diversity", "protest", "war", "refugee", "charity", "donation", "homeless"},
	"Sports":                     {"sport", "sports", "football", "soccer", "basketball", "tennis", "running", "yoga", "gym", "fitness", "swimming", "cycling"},
	"Technology":                 {"technology", "tech", "computer", "laptop", "phone", "smartphone", "digital", "internet", "network", "ai", "robot", "data", "cyber", "software"},
	"Transport":                  {"car", "cars", "transport", "vehicle", "train", "airplane", "plane", "bus", "truck", "ship", "boat", "bicycle", "road", "traffic"},
	"Travel":                     {"travel", "tourism", "vacation", "trip", "journey", "destination", "hotel", "luggage", "adventure", "landmark"},
})
