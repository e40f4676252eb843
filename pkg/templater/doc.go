// Package templater turns a title, optional description and free-text
// prompt into a static HTML page and stylesheet.
//
// Generation is template substitution: the prompt is split into up to
// four sections, each section's keywords (stop words and short words
// removed) are dropped into one of a few filler sentences, and the result
// is wrapped in a fixed page skeleton styled by one of five stylesheets.
// All user text is HTML-escaped.
//
//	out := templater.Generate(templater.Input{
//		Title:  "Acme Bakery",
//		Prompt: "fresh sourdough bread and pastries baked daily",
//		Style:  "classic",
//	}, rand.New(rand.NewPCG(1, 2)), time.Now())
//
//	doc := templater.Render(out.HTML, out.CSS)
package templater
