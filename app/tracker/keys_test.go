package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFollowerKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://www.linkedin.com/in/John-Doe/", "john-doe"},
		{"john-doe", "john-doe"},
		{"  JOHN-DOE  ", "john-doe"},
		{"https://linkedin.com/in/jane?trk=public_profile", "jane"},
		{"http://www.linkedin.com/in/jane/details/interests/", "jane"},
		{"www.linkedin.com/in/jane/", "jane"},
		{"https://www.linkedin.com/in/j%C3%BCrgen-m/", "jürgen-m"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FollowerKey(tt.input))
		})
	}
}

func TestFollowerKeyEquivalence(t *testing.T) {
	assert.Equal(t, FollowerKey("https://www.linkedin.com/in/John-Doe/"), FollowerKey("john-doe"))
}

func TestCompanyKey(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		company  string
		expected string
	}{
		{"company url", "https://linkedin.com/company/Acme/", "Acme Inc", "acme"},
		{"bare slug", "acme", "", "acme"},
		{"school url", "https://www.linkedin.com/school/stanford-university/", "Stanford", "stanford-university"},
		{"url with subpage", "https://www.linkedin.com/company/acme/about/?x=1", "", "acme"},
		{"name fallback", "", "  Acme   Holdings ", "acme holdings"},
		{"host only url", "https://acme.com", "Acme", "acme.com"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompanyKey(tt.url, tt.company))
		})
	}
}

func TestCompanyKeyEquivalence(t *testing.T) {
	assert.Equal(t, CompanyKey("https://linkedin.com/company/Acme/", ""), CompanyKey("acme", ""))
}

func TestRecordKeyIgnoresDisplayText(t *testing.T) {
	a := OverallRecord{CompanyName: "Acme", CompanyURL: "https://www.linkedin.com/company/acme/", FollowerURL: "https://www.linkedin.com/in/john-doe/"}
	b := OverallRecord{CompanyName: "ACME Corp", CompanyURL: "https://linkedin.com/company/Acme", FollowerURL: "john-doe"}

	assert.Equal(t, a.Key(), b.Key())
}

func TestCanonicalProfileURL(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", CanonicalProfileURL("Jane-Doe"))
	assert.Equal(t, "https://www.linkedin.com/in/Jane-Doe/", CanonicalProfileURL(" https://www.linkedin.com/in/Jane-Doe/ "))
	assert.Equal(t, "", CanonicalProfileURL(""))
}

func TestValidProfileIdentifier(t *testing.T) {
	assert.True(t, ValidProfileIdentifier("https://www.linkedin.com/in/jane-doe/"))
	assert.True(t, ValidProfileIdentifier("jane_doe.42"))
	assert.False(t, ValidProfileIdentifier("https://example.com/in/jane"))
	assert.False(t, ValidProfileIdentifier("https://www.linkedin.com/company/acme"))
	assert.False(t, ValidProfileIdentifier("jane doe"))
	assert.False(t, ValidProfileIdentifier(""))
}

func TestSnapshotContains(t *testing.T) {
	snapshot := NewSnapshot([]OverallRecord{
		{CompanyName: "Acme", CompanyURL: "https://www.linkedin.com/company/acme", FollowerURL: "https://www.linkedin.com/in/p"},
	})

	assert.True(t, snapshot.Contains(Key{Company: "acme", Follower: "p"}))
	assert.False(t, snapshot.Contains(Key{Company: "acme", Follower: "q"}))
}
