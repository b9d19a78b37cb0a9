package services

import "net/url"

// RedirectOutcome is the result of an OAuth connection attempt carried in the
// query string of the post-callback redirect.
type RedirectOutcome struct {
	Connection string
	Message    string
	Source     string
}

// Present reports whether the query carried an outcome at all.
func (o RedirectOutcome) Present() bool {
	return o.Connection != ""
}

// Succeeded reports whether the connection attempt succeeded.
func (o RedirectOutcome) Succeeded() bool {
	return o.Connection == "success"
}

// ConsumeRedirectOutcome extracts the connection outcome from redirect query
// parameters and returns the remaining query with the outcome stripped.
// Feeding the stripped query back in yields an empty outcome, so each redirect
// is reported exactly once.
func ConsumeRedirectOutcome(query url.Values) (RedirectOutcome, url.Values) {
	outcome := RedirectOutcome{
		Connection: query.Get("connection"),
		Message:    query.Get("message"),
		Source:     query.Get("source"),
	}

	remaining := url.Values{}
	for key, values := range query {
		if key == "connection" || key == "message" {
			continue
		}
		remaining[key] = append([]string(nil), values...)
	}

	return outcome, remaining
}
