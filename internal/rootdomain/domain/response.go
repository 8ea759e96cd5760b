package domain

// ParseResponse is the record returned to callers of the parse endpoint.
// Exactly one of RootDomain and Error is set.
type ParseResponse struct {
	OriginalURL string  `json:"original_url"`
	RootDomain  *string `json:"root_domain"`
	Error       *string `json:"error"`
}

// NewParseResponse builds the response for raw from a lookup outcome.
// A non-nil err wins over root.
func NewParseResponse(raw, root string, err error) ParseResponse {
	resp := ParseResponse{OriginalURL: raw}
	if err != nil {
		msg := err.Error()
		resp.Error = &msg
		return resp
	}
	resp.RootDomain = &root
	return resp
}

// Succeeded reports whether the response carries a root domain.
func (r ParseResponse) Succeeded() bool { return r.RootDomain != nil }
