package templater

import "strings"

// Style selects one of the fixed stylesheets
type Style string

const (
	StyleModern   Style = "modern"
	StyleClassic  Style = "classic"
	StyleMinimal  Style = "minimal"
	StyleCreative Style = "creative"
	StyleBusiness Style = "business"
)

// DefaultStyle is applied to requests that don't name a style
const DefaultStyle = StyleModern

// Styles returns every supported style in display order
func Styles() []Style {
	return []Style{StyleModern, StyleClassic, StyleMinimal, StyleCreative, StyleBusiness}
}

// Valid reports whether s is one of the supported styles
func (s Style) Valid() bool {
	_, ok := styleCSS[s]
	return ok
}

// NormalizeStyle trims and lower-cases a requested style, mapping the
// empty string to DefaultStyle. The result may still be invalid.
func NormalizeStyle(s string) Style {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultStyle
	}
	return Style(s)
}

// resolve maps unknown and empty styles to business, the stylesheet of last resort
func (s Style) resolve() Style {
	if s.Valid() {
		return s
	}
	return StyleBusiness
}

// CSS returns the full stylesheet (base rules plus the style block)
func CSS(s Style) string {
	return baseCSS + styleCSS[s.resolve()]
}

const baseCSS = `
* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    line-height: 1.6;
    color: #333;
}

.container {
    max-width: 1200px;
    margin: 0 auto;
    padding: 0 20px;
}

.site-header {
    padding: 4rem 0;
    text-align: center;
}

.site-title {
    font-size: 3rem;
    margin-bottom: 1rem;
}

.site-description {
    font-size: 1.2rem;
    opacity: 0.8;
}

.main-content {
    padding: 2rem 0;
}

.content-section {
    margin-bottom: 3rem;
}

.content-section h2 {
    font-size: 2rem;
    margin-bottom: 1rem;
}

.content-section p {
    font-size: 1.1rem;
    margin-bottom: 1rem;
}

.site-footer {
    padding: 2rem 0;
    text-align: center;
    opacity: 0.7;
}
`

var styleCSS = map[Style]string{
	StyleModern: `
.modern-template {
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    color: white;
}

.site-header {
    background: rgba(255, 255, 255, 0.1);
    backdrop-filter: blur(10px);
}

.content-section {
    background: rgba(255, 255, 255, 0.1);
    padding: 2rem;
    border-radius: 15px;
    backdrop-filter: blur(5px);
}
`,
	StyleClassic: `
.classic-template {
    background: #f8f9fa;
    color: #2c3e50;
}

.site-header {
    background: #34495e;
    color: white;
}

.content-section {
    background: white;
    padding: 2rem;
    border: 1px solid #dee2e6;
    border-radius: 5px;
    box-shadow: 0 2px 4px rgba(0,0,0,0.1);
}
`,
	StyleMinimal: `
.minimal-template {
    background: white;
    color: #333;
}

.site-title {
    font-weight: 300;
    border-bottom: 1px solid #eee;
    padding-bottom: 1rem;
}

.content-section {
    border-left: 3px solid #007bff;
    padding-left: 2rem;
}
`,
	StyleCreative: `
.creative-template {
    background: linear-gradient(45deg, #ff9a9e 0%, #fecfef 50%, #fecfef 100%);
    color: #444;
}

.site-title {
    font-family: 'Comic Sans MS', cursive;
    transform: rotate(-2deg);
}

.content-section {
    background: rgba(255, 255, 255, 0.9);
    padding: 2rem;
    border-radius: 20px;
    transform: rotate(1deg);
}

.content-section:nth-child(even) {
    transform: rotate(-1deg);
}
`,
	StyleBusiness: `
.business-template {
    background: #f4f4f4;
    color: #333;
}

.site-header {
    background: #2c3e50;
    color: white;
}

.content-section {
    background: white;
    padding: 2rem;
    border-left: 4px solid #3498db;
    margin-bottom: 2rem;
    box-shadow: 0 2px 10px rgba(0,0,0,0.1);
}
`,
}
