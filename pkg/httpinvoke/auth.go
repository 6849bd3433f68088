package httpinvoke

import (
	"encoding/base64"
	"net/http"
)

const (
	// HeaderAuthorization the header used to authenticate requests
	HeaderAuthorization = "Authorization"

	// MediaTypeJSON the JSON content type
	MediaTypeJSON = "application/json"

	// MediaTypeXML the XML content type used by the Jenkins config API
	MediaTypeXML = "application/xml"

	// MediaTypeForm the form content type
	MediaTypeForm = "application/x-www-form-urlencoded"
)

// BasicAuthHeader returns the value of a basic Authorization header
func BasicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// BearerAuthHeader returns the value of a bearer token Authorization header
func BearerAuthHeader(token string) string {
	return "Bearer " + token
}

// Headers creates the request headers for the given auth header and content type. Empty values are omitted
func Headers(authHeader, contentType string) http.Header {
	h := http.Header{}
	if authHeader != "" {
		h.Set(HeaderAuthorization, authHeader)
	}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return h
}
