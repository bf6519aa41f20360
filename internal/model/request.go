package model

// Request is a transport-neutral outbound request
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is the upstream reply as seen by the call path
type Response struct {
	StatusCode int
	Header     map[string]string
	Body       []byte
}
