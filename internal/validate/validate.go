// Package validate holds the pure validation and sanitization rules applied
// to every bookmark, tag, directory and title before it is stored.
package validate

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const (
	MaxURLLength           = 2048
	MaxTagLength           = 50
	MaxTags                = 20
	MaxDirectoryNameLength = 100
	MaxTitleLength         = 500
)

const (
	msgInvalidURL      = "Invalid URL format. Please enter a valid http:// or https:// URL with a proper domain name."
	msgSingleLabelHost = "Invalid URL. Please enter a complete domain name (e.g., example.com, www.site.com)."
	msgEmptyDirectory  = "Directory name cannot be empty."
	msgLongDirectory   = "Directory name must be 100 characters or less."
	msgBadDirectory    = "Directory name contains invalid characters."
)

var (
	schemePattern   = regexp.MustCompile(`(?i)^https?://`)
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	ipv4Pattern     = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	badDirChars     = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// SanitizeHTML escapes the characters that are significant in HTML markup.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlEscaper.Replace(s)
}

// IsValidURL reports whether s is an absolute http(s) URL with a usable host.
func IsValidURL(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > MaxURLLength {
		return false
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}

	host := u.Hostname()
	if len(host) < 3 {
		return false
	}

	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return false
		}
	}

	switch {
	case strings.HasPrefix(u.Host, "["):
		ip := net.ParseIP(host)
		return ip != nil && strings.Contains(host, ":")
	case strings.EqualFold(host, "localhost"):
		return true
	case ipv4Pattern.MatchString(host):
		return net.ParseIP(host) != nil
	}

	return strings.Contains(host, ".") && hostnamePattern.MatchString(host)
}

// NormalizeURL trims s, defaults the scheme to https and canonicalizes the
// result. Unparseable input is returned trimmed so validation can reject it.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !schemePattern.MatchString(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u)
	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
	return u.String()
}

// canonicalHost lower-cases the host and converts IDN labels to punycode.
func canonicalHost(u *url.URL) string {
	if strings.HasPrefix(u.Host, "[") {
		return strings.ToLower(u.Host)
	}

	host := u.Hostname()
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		ascii = strings.ToLower(host)
	}
	if port := u.Port(); port != "" {
		return ascii + ":" + port
	}
	return ascii
}

// ValidateAndSanitizeURL normalizes s and returns it if it is a valid URL.
func ValidateAndSanitizeURL(s string) (string, error) {
	normalized := NormalizeURL(s)
	if IsValidURL(normalized) {
		return normalized, nil
	}
	if isSingleLabelHost(normalized) {
		return "", &Error{Kind: KindSingleLabelHost, Field: "url", Message: msgSingleLabelHost}
	}
	return "", &Error{Kind: KindInvalidURL, Field: "url", Message: msgInvalidURL}
}

func isSingleLabelHost(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" || strings.HasPrefix(u.Host, "[") || strings.EqualFold(host, "localhost") {
		return false
	}
	return !strings.Contains(host, ".")
}

// ParseAndValidateTags splits a comma-separated tag list.
func ParseAndValidateTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags trims, drops empty and over-long tags, escapes, caps the
// list at MaxTags and removes case-insensitive duplicates keeping the first
// spelling seen.
func NormalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || utf8.RuneCountInString(t) > MaxTagLength {
			continue
		}
		tags = append(tags, SanitizeHTML(t))
	}

	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}

	seen := make(map[string]bool, len(tags))
	unique := make([]string, 0, len(tags))
	for _, t := range tags {
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, t)
	}
	return unique
}

// ValidateDirectoryName returns the trimmed, escaped name.
func ValidateDirectoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", &Error{Kind: KindEmptyName, Field: "directory", Message: msgEmptyDirectory}
	case utf8.RuneCountInString(name) > MaxDirectoryNameLength:
		return "", &Error{Kind: KindTooLong, Field: "directory", Message: msgLongDirectory}
	case badDirChars.MatchString(name):
		return "", &Error{Kind: KindInvalidChars, Field: "directory", Message: msgBadDirectory}
	}
	return SanitizeHTML(name), nil
}

// SanitizeTitle escapes title and truncates it to MaxTitleLength runes,
// appending "..." when cut.
func SanitizeTitle(title string) string {
	escaped := SanitizeHTML(title)
	if utf8.RuneCountInString(escaped) <= MaxTitleLength {
		return escaped
	}
	r := []rune(escaped)
	return string(r[:MaxTitleLength]) + "..."
}
