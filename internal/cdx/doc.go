// Package cdx implements a client for CDX-style web archive indexes.
//
// Two public index families are supported out of the box: the Common Crawl
// index cluster (one pywb endpoint per monthly crawl, discovered via
// collinfo.json) and the Internet Archive's Wayback CDX endpoint. Any other
// pywb-compatible endpoint can be queried by URL.
//
// Queries stream lazily: the Iterator walks endpoints oldest-to-newest (or
// mixed), requesting one page at a time, so a million-record query never
// holds more than a page of records in memory.
package cdx
