// Package pages stores generated pages and runs the generate, edit and
// export flows for their owners.
//
// Service.Generate validates the request, reserves one generation from the
// user's plan, renders the page with the templater and commits the page
// and the usage increment in one transaction. Reads can be served from a
// Redis cache, and completed pages can be exported to S3 as a standalone
// index.html with its style.css.
package pages
