package templater

import (
	"html"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// cssPlaceholder marks where Render inlines the stylesheet
const cssPlaceholder = "        /* Generated CSS will be injected here */\n"

const styleOpen = "<style>\n"

// Input is everything the templater needs to build a page
type Input struct {
	Title       string
	Description string
	Prompt      string
	Style       string
}

// Output is a generated page. HTML references the stylesheet through an
// empty <style> block; use Render for a self-contained document.
type Output struct {
	HTML     string
	CSS      string
	Style    Style
	Sections []Section
}

// Keywords returns the distinct keywords of all sections in order
func (o Output) Keywords() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range o.Sections {
		for _, k := range s.Keywords {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	return out
}

// Generate builds the HTML and CSS for input. It has no side effects: the
// filler sentence choice comes from rng and the footer year from now, so a
// fixed seed and clock reproduce the same page. A nil rng is seeded from now.
func Generate(input Input, rng *rand.Rand, now time.Time) Output {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(now.UnixNano()), 0))
	}

	style := Style(input.Style).resolve()

	sections := splitSections(input.Prompt)
	for i := range sections {
		sections[i] = fillSection(sections[i], rng)
	}

	return Output{
		HTML:     renderHTML(input.Title, input.Description, style, sections, now.Year()),
		CSS:      CSS(style),
		Style:    style,
		Sections: sections,
	}
}

func renderHTML(title, description string, style Style, sections []Section, year int) string {
	title = html.EscapeString(title)
	description = html.EscapeString(description)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("    <meta charset=\"UTF-8\">\n")
	b.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("    <title>" + title + "</title>\n")
	if description != "" {
		b.WriteString("    <meta name=\"description\" content=\"" + description + "\">\n")
	}
	b.WriteString("    " + styleOpen + cssPlaceholder + "    </style>\n")
	b.WriteString("</head>\n<body class=\"" + string(style) + "-template\">\n")

	b.WriteString("    <header class=\"site-header\">\n")
	b.WriteString("        <div class=\"container\">\n")
	b.WriteString("            <h1 class=\"site-title\">" + title + "</h1>\n")
	if description != "" {
		b.WriteString("            <p class=\"site-description\">" + description + "</p>\n")
	}
	b.WriteString("        </div>\n")
	b.WriteString("    </header>\n\n")

	b.WriteString("    <main class=\"main-content\">\n")
	b.WriteString("        <div class=\"container\">\n")
	for _, s := range sections {
		b.WriteString("            <section class=\"content-section\">\n")
		b.WriteString("                <h2>" + html.EscapeString(s.Title) + "</h2>\n")
		b.WriteString("                <p>" + html.EscapeString(s.Content) + "</p>\n")
		b.WriteString("            </section>\n\n")
	}
	b.WriteString("        </div>\n")
	b.WriteString("    </main>\n\n")

	b.WriteString("    <footer class=\"site-footer\">\n")
	b.WriteString("        <div class=\"container\">\n")
	b.WriteString("            <p>&copy; " + strconv.Itoa(year) + " " + title + ". All rights reserved.</p>\n")
	b.WriteString("        </div>\n")
	b.WriteString("    </footer>\n")
	b.WriteString("</body>\n</html>")

	return b.String()
}

// Render returns a standalone document with the stylesheet inlined into the
// <style> block. Pages whose HTML lacks the placeholder are returned
// unchanged. Escaped user text can never contain the "<style>" anchor.
func Render(htmlDoc, css string) string {
	anchor := styleOpen + cssPlaceholder
	if !strings.Contains(htmlDoc, anchor) {
		return htmlDoc
	}
	return strings.Replace(htmlDoc, anchor, styleOpen+css+"\n", 1)
}
