/*
Package publish generates the data-driven sections of the site from local
state files: the daily logs index, the bilingual tasks pages and the
bilingual status pages. Each job copies its raw data into the site tree next
to the rendered HTML so the pages can link to it.

All files are written atomically, so a concurrently running preview server
never serves a half-written page.
*/
package publish
