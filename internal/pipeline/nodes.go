package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"content_gateway/internal/models"
)

const promptResearch = `You are a research assistant preparing notes for a blog article.
Return 5 to 8 short factual notes about the topic, one per line, each starting with "- ".
Use the provided sources when they are relevant. No introduction, no conclusion.`

const promptOutline = `You are an editor planning a blog article.
Return exactly %d section headings, one per line, without numbering or commentary.
The headings must follow a logical order and cover the topic end to end.`

const promptSection = `You are a writer drafting one section of a blog article.
Write 2 to 4 paragraphs of plain text in a %s tone. Do not repeat the heading.
Work the keywords in naturally when they fit: %s.`

const promptPolish = `You are a copy editor.
Combine the sections into one HTML article: an <h1> title, an introduction paragraph,
an <h2> per section, and a short conclusion. Keep the facts unchanged.
Return only the HTML fragment, without <html> or <body> tags and without code fences.`

func (p *Pipeline) research(ctx context.Context, st *State) error {
	if p.researcher != nil {
		sources, err := p.researcher.Research(ctx, st.Input.Topic, st.Input.Keywords)
		if err != nil {
			return fmt.Errorf("research lookup failed: %w", err)
		}
		st.Sources = sources
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Topic: %s\n", st.Input.Topic)
	if len(st.Input.Keywords) > 0 {
		fmt.Fprintf(&user, "Keywords: %s\n", strings.Join(st.Input.Keywords, ", "))
	}
	if len(st.Sources) > 0 {
		user.WriteString("\nSources:\n")
		for i, src := range st.Sources {
			fmt.Fprintf(&user, "[%d] %s\n", i+1, src)
		}
	}

	out, err := p.generate(ctx, st, promptResearch, user.String())
	if err != nil {
		return err
	}
	st.Research = parseLines(out)
	return nil
}

func (p *Pipeline) outline(ctx context.Context, st *State) error {
	var user strings.Builder
	fmt.Fprintf(&user, "Topic: %s\nTone: %s\n", st.Input.Topic, st.Input.Tone)
	if len(st.Research) > 0 {
		user.WriteString("\nResearch notes:\n")
		for _, note := range st.Research {
			fmt.Fprintf(&user, "- %s\n", note)
		}
	}

	out, err := p.generate(ctx, st, fmt.Sprintf(promptOutline, st.Input.Sections), user.String())
	if err != nil {
		return err
	}

	headings := parseLines(out)
	if len(headings) == 0 {
		return fmt.Errorf("%w: outline has no headings", models.ErrInvalidResponse)
	}
	if len(headings) > st.Input.Sections {
		headings = headings[:st.Input.Sections]
	}
	st.Outline = headings
	return nil
}

func (p *Pipeline) sections(ctx context.Context, st *State) error {
	keywords := "none"
	if len(st.Input.Keywords) > 0 {
		keywords = strings.Join(st.Input.Keywords, ", ")
	}
	system := fmt.Sprintf(promptSection, st.Input.Tone, keywords)

	st.Sections = make([]Section, 0, len(st.Outline))
	for i, heading := range st.Outline {
		user := fmt.Sprintf("Article topic: %s\nFull outline:\n%s\n\nWrite section %d: %s",
			st.Input.Topic, strings.Join(st.Outline, "\n"), i+1, heading)

		body, err := p.generate(ctx, st, system, user)
		if err != nil {
			return fmt.Errorf("section %q: %w", heading, err)
		}
		st.Sections = append(st.Sections, Section{Heading: heading, Body: body})
	}
	return nil
}

func (p *Pipeline) polish(ctx context.Context, st *State) error {
	var user strings.Builder
	fmt.Fprintf(&user, "Topic: %s\nTone: %s\n", st.Input.Topic, st.Input.Tone)
	for _, s := range st.Sections {
		fmt.Fprintf(&user, "\n## %s\n%s\n", s.Heading, s.Body)
	}

	out, err := p.generate(ctx, st, promptPolish, user.String())
	if err != nil {
		return err
	}
	st.HTML = stripCodeFence(out)
	if st.HTML == "" {
		return fmt.Errorf("%w: polished article is empty", models.ErrInvalidResponse)
	}
	return nil
}

var listMarker = regexp.MustCompile(`^(?:[-*•]+|#+|\d+[.)])\s*`)

// parseLines splits model output into items, dropping list markers,
// markdown emphasis and blank lines.
func parseLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(strings.TrimSpace(line), "**", "")
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// stripCodeFence removes a surrounding ``` fence some models add anyway.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = ""
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
