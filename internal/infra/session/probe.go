package session

import "strings"

// MarkerProbe recognises the identity provider login page by its title or
// by a login form that carries a SAML marker.
type MarkerProbe struct {
	Title      string
	FormMarker string
	SAMLMarker string
}

// DefaultProbe matches the Shibboleth login page of the university IdP.
func DefaultProbe() MarkerProbe {
	return MarkerProbe{
		Title:      "Single Sign-On",
		FormMarker: "<form",
		SAMLMarker: "SAML",
	}
}

func (p MarkerProbe) Expired(body string) bool {
	if p.Title != "" && strings.Contains(body, p.Title) {
		return true
	}
	return p.FormMarker != "" && p.SAMLMarker != "" &&
		strings.Contains(body, p.FormMarker) && strings.Contains(body, p.SAMLMarker)
}
