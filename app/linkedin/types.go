package linkedin

import (
	"errors"
	"time"

	"github.com/lysyi3m/follow-comb/app/tracker"
)

const (
	DefaultBaseURL = "https://professional-network-data.p.rapidapi.com"
	DefaultHost    = "professional-network-data.p.rapidapi.com"

	interestsPath = "/profiles/interests/companies"
	profilePath   = "/get-profile-data-by-url"
)

// ErrUnavailable means the directory API could not serve a usable answer,
// usually because the key is invalid or the quota is exhausted. It needs a
// human to look at the RapidAPI account and must not be swallowed.
var ErrUnavailable = errors.New("directory API unavailable: check your RapidAPI key status, subscription and quota at https://rapidapi.com")

var errRateLimited = errors.New("rate limited (429)")

type Config struct {
	BaseURL     string
	APIKey      string
	APIHost     string
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Result holds the companies a profile follows. Partial is set when
// pagination stopped early, so the list may be missing real follows.
type Result struct {
	Companies []tracker.Company
	Partial   bool
}

type interestsRequest struct {
	Username string `json:"username"`
	Page     int    `json:"page"`
}

type interestsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Items      []interestItem `json:"items"`
		TotalPages int            `json:"totalPages"`
	} `json:"data"`
}

type interestItem struct {
	Name        string `json:"name"`
	LinkedinURL string `json:"linkedinURL"`
}

type personName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type profileResponse struct {
	personName
	Data    *personName `json:"data"`
	Profile *personName `json:"profile"`
	Result  *personName `json:"result"`
}

type statusError struct {
	StatusCode int
	Status     string
}

func (e *statusError) Error() string {
	return "HTTP error: " + e.Status
}
