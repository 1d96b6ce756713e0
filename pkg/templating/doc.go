/*
Package templating renders the site's generated pages (tasks, status and the
logs index) from html/template files.

A default set of templates is embedded in the binary. A template directory on
disk can override any of them by name and is hot-reloadable through Refresh.
Templates have access to a small function library for navigation links,
status colours and bilingual text backed by golang.org/x/text/message.
*/
package templating
