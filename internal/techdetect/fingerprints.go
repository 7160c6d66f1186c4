package techdetect

import "strings"

// fingerprint matches one technology signal in a fetched page. Only one of
// the match fields is set per entry.
type fingerprint struct {
	name     string
	category string

	headerKey    string // match when this response header...
	headerValue  string // ...contains this substring (empty: any value)
	generator    string // substring of <meta name="generator"> content
	scriptSubstr string // substring of a <script src>
	cookieName   string // name of a Set-Cookie cookie
}

// fingerprints is a deliberately small built-in pattern table used when no
// remote lookup endpoint is configured. It favors precision over coverage.
var fingerprints = []fingerprint{
	// Headers
	{name: "Nginx", category: "Web server", headerKey: "Server", headerValue: "nginx"},
	{name: "Apache", category: "Web server", headerKey: "Server", headerValue: "apache"},
	{name: "Microsoft IIS", category: "Web server", headerKey: "Server", headerValue: "microsoft-iis"},
	{name: "Cloudflare", category: "CDN", headerKey: "Server", headerValue: "cloudflare"},
	{name: "PHP", category: "Programming language", headerKey: "X-Powered-By", headerValue: "php"},
	{name: "Express", category: "Web framework", headerKey: "X-Powered-By", headerValue: "express"},
	{name: "ASP.NET", category: "Web framework", headerKey: "X-Powered-By", headerValue: "asp.net"},
	{name: "Next.js", category: "Web framework", headerKey: "X-Powered-By", headerValue: "next.js"},
	{name: "Varnish", category: "Caching", headerKey: "X-Varnish"},

	// Meta generator
	{name: "WordPress", category: "CMS", generator: "wordpress"},
	{name: "Drupal", category: "CMS", generator: "drupal"},
	{name: "Joomla", category: "CMS", generator: "joomla"},
	{name: "Hugo", category: "Static site generator", generator: "hugo"},
	{name: "Gatsby", category: "Static site generator", generator: "gatsby"},
	{name: "Wix", category: "Website builder", generator: "wix"},

	// Script sources
	{name: "jQuery", category: "JavaScript library", scriptSubstr: "jquery"},
	{name: "React", category: "JavaScript library", scriptSubstr: "react"},
	{name: "WordPress", category: "CMS", scriptSubstr: "/wp-content/"},
	{name: "Google Tag Manager", category: "Tag manager", scriptSubstr: "googletagmanager.com"},
	{name: "Google Analytics", category: "Analytics", scriptSubstr: "google-analytics.com"},
	{name: "Shopify", category: "E-commerce", scriptSubstr: "cdn.shopify.com"},

	// Cookies
	{name: "PHP", category: "Programming language", cookieName: "PHPSESSID"},
	{name: "Laravel", category: "Web framework", cookieName: "laravel_session"},
	{name: "Shopify", category: "E-commerce", cookieName: "_shopify_s"},
}

// versionFromGenerator extracts a trailing version from generator content
// like "WordPress 6.4.2". Returns "" when no version is present.
func versionFromGenerator(content string) string {
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return ""
	}
	last := fields[len(fields)-1]
	if last == "" || last[0] < '0' || last[0] > '9' {
		return ""
	}
	return last
}
