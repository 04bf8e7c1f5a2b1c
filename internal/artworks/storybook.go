package artworks

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"visioncloud-backend/internal/shared/util"
	"visioncloud-backend/internal/vision"
)

var sectionTitles = map[string]string{
	vision.SectionIntroduction: "Introduction",
	vision.SectionRisingAction: "Rising Action",
	vision.SectionTwist:        "Twist",
	vision.SectionClimax:       "Climax",
	vision.SectionResolution:   "Resolution",
}

// Storybook is a rendered slideshow export.
type Storybook struct {
	FileName string
	HTML     []byte
}

// Storybook renders the owner's artwork as a single HTML page.
func (s *Service) Storybook(ctx context.Context, id, userID string) (Storybook, error) {
	a, err := s.Repo.GetByID(ctx, id, userID)
	if err != nil {
		return Storybook{}, err
	}
	page, err := RenderStorybook(a.Title, a.Analysis, s.Repo.URLs(a))
	if err != nil {
		return Storybook{}, err
	}
	name, err := util.SanitizeFileName(a.Title)
	if err != nil {
		name = "storybook"
	}
	return Storybook{FileName: name + ".html", HTML: page}, nil
}

// RenderStorybook builds the Markdown for each section and converts it to HTML. Raw HTML
// in generated text is dropped by the renderer.
func RenderStorybook(title string, analysis vision.Analysis, urls ImageURLs) ([]byte, error) {
	md := StorybookMarkdown(title, analysis, urls)
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("render storybook: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	page.WriteString(html.EscapeString(title))
	page.WriteString("</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// StorybookMarkdown lays out the story one section per slide.
func StorybookMarkdown(title string, analysis vision.Analysis, urls ImageURLs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", markdownText(title))

	var story vision.Story
	if analysis.Story != nil {
		story = *analysis.Story
	}
	for _, section := range vision.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sectionTitles[section])
		if u := urls[section]; u != nil && *u != "" {
			fmt.Fprintf(&b, "![%s](<%s>)\n\n", section, *u)
		}
		if text := strings.TrimSpace(story.Section(section)); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}

	if len(analysis.Faces) > 0 {
		b.WriteString("## Emotional Tones\n\n")
		for i, face := range analysis.Faces {
			fmt.Fprintf(&b, "- Face %d: joy %d%%, sorrow %d%%, anger %d%%, surprise %d%%\n",
				i+1,
				face.JoyLikelihood.Confidence(),
				face.SorrowLikelihood.Confidence(),
				face.AngerLikelihood.Confidence(),
				face.SurpriseLikelihood.Confidence(),
			)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func markdownText(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	r := strings.NewReplacer("\\", "\\\\", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]", "#", "\\#", "<", "&lt;")
	return r.Replace(s)
}
