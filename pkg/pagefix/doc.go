/*
Package pagefix applies the small page-load fixes every page on the site
relies on: the copyright year in the footer and the "active" flag on the
navigation link for the current page.

The fixes operate on a parsed *html.Node tree and take the current page path
and time as explicit inputs, so they run the same way during a static build,
inside the preview server, or against a tree constructed in a test.
*/
package pagefix
