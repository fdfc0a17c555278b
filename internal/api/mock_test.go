package api

import (
	"bytes"
	"io"

	fhttp "github.com/bogdanfinn/fhttp"
)

// mockDoer is a stand-in for tls_client.HttpClient
type mockDoer struct {
	Response *fhttp.Response
	Err      error

	Requests []*fhttp.Request
	Bodies   [][]byte
}

func (m *mockDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.Requests = append(m.Requests, req)
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		m.Bodies = append(m.Bodies, body)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func newResponse(status int, contentType string, body []byte) *fhttp.Response {
	header := fhttp.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &fhttp.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}
