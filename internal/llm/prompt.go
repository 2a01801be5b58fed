package llm

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/stockmeta/internal/stock"
)

const metadataPrompt = `
	Analyze this %s and write metadata for selling it on the %s stock marketplace.

	Respond in JSON format with these fields:
	- title: %d to %d words describing the subject, setting and style. Plain words only: no brand names, no quotes, no special symbols.
	- description: %d to %d words, one or two sentences adding detail the title does not cover.
	- keywords: an array of %d to %d keywords, most important first, lowercase, one or two words each, no duplicates.
	%s
	Example response:
	{"title": "Golden retriever puppy sitting on green grass in sunny park", "description": "Cute young dog resting outdoors on a warm summer afternoon.", "keywords": ["dog", "puppy", "golden retriever", "pet", "grass"]}

	Respond ONLY with the JSON object, no markdown or other text.`

const imageToPromptPrompt = `
	Describe this %s as a single prompt that a text-to-image model could use to recreate it.
	Cover subject, composition, lighting, colors, medium and style in %d to %d words.
	%s
	Respond in JSON format:
	{"prompt": "..."}

	Respond ONLY with the JSON object, no markdown or other text.`

// platformHints are extra prompt lines for marketplaces with special rules.
var platformHints = map[stock.Platform]string{
	stock.PlatformFreepik: `- prompt: if the image looks AI generated, a prompt that would recreate it, otherwise an empty string.
	- baseModel: the AI model that most likely generated the image (for example "Midjourney 6" or "Stable Diffusion XL"), or an empty string.`,
	stock.PlatformShutterstock: `- The description is shown as the caption on Shutterstock: keep it under 200 characters.`,
	stock.PlatformAdobeStock:   `- AdobeStock shows only the title: keep it under 70 characters and put the most important words first.`,
}

// formatPrompt dedents a prompt template and fills in its arguments.
func formatPrompt(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func subjectNoun(mimeType string) string {
	if strings.HasPrefix(mimeType, "video/") {
		return "video"
	}
	return "image"
}

// BuildPrompt returns the instruction sent along with the file.
func BuildPrompt(req Request) string {
	t := req.Targets.WithDefaults()
	subject := subjectNoun(req.MIMEType)

	extra := ""
	if req.Instruction != "" {
		extra = fmt.Sprintf("\nAdditional instructions: %s\n", strings.TrimSpace(req.Instruction))
	}

	if req.Mode == stock.ModePrompt {
		return formatPrompt(imageToPromptPrompt, subject, t.DescriptionMinWords, t.DescriptionMaxWords, extra)
	}

	hints := platformHints[req.Platform]
	if hints != "" {
		hints = dedent.Dedent("\t" + hints)
	}
	return formatPrompt(metadataPrompt,
		subject, req.Platform.Label(),
		t.TitleMinWords, t.TitleMaxWords,
		t.DescriptionMinWords, t.DescriptionMaxWords,
		t.KeywordMin, t.KeywordMax,
		hints+extra,
	)
}
