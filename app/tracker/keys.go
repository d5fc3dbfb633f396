package tracker

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const ProfileBaseURL = "https://www.linkedin.com/in/"

var (
	profileMarkers = []string{"in"}
	companyMarkers = []string{"company", "school", "showcase"}
)

// FollowerKey normalizes a profile URL or bare handle to the profile handle.
// "https://www.linkedin.com/in/John-Doe/" and "john-doe" both yield "john-doe".
func FollowerKey(urlOrHandle string) string {
	return pathKey(urlOrHandle, profileMarkers)
}

// CompanyKey derives company identity from its URL, or from its name when
// there is no usable URL.
func CompanyKey(companyURL, name string) string {
	if key := pathKey(companyURL, companyMarkers); key != "" {
		return key
	}
	return NameKey(name)
}

// NameKey folds a display name for case-insensitive comparison.
func NameKey(name string) string {
	return strings.Join(strings.Fields(fold(name)), " ")
}

// ProfileURL builds the canonical profile URL for a handle.
func ProfileURL(handle string) string {
	if handle == "" {
		return ""
	}
	return ProfileBaseURL + handle
}

// CanonicalProfileURL keeps full URLs as entered and expands bare handles.
func CanonicalProfileURL(urlOrHandle string) string {
	s := strings.TrimSpace(urlOrHandle)
	if isHTTP(s) {
		return s
	}
	return ProfileURL(FollowerKey(s))
}

// ValidProfileIdentifier accepts LinkedIn profile URLs and plain handles.
func ValidProfileIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 500 {
		return false
	}
	if isHTTP(s) {
		lower := strings.ToLower(s)
		return strings.Contains(lower, "linkedin.com") && strings.Contains(lower, "/in/") && FollowerKey(s) != ""
	}
	for _, r := range s {
		switch {
		case r == '-', r == '_', r == '.':
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

func pathKey(raw string, markers []string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	var host, path string
	if isHTTP(s) {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		host, path = u.Hostname(), u.EscapedPath()
	} else {
		path, _, _ = strings.Cut(s, "?")
		path, _, _ = strings.Cut(path, "#")
	}

	segments := make([]string, 0, 4)
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	for i, seg := range segments {
		if slices.Contains(markers, strings.ToLower(seg)) && i+1 < len(segments) {
			return segmentKey(segments[i+1])
		}
	}

	if len(segments) == 0 {
		return fold(host)
	}
	return segmentKey(segments[len(segments)-1])
}

func segmentKey(seg string) string {
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	return fold(strings.TrimSpace(seg))
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func isHTTP(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
