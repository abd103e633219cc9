package eventchannel

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHttpSender(t *testing.T) {
	var requestBody []byte
	var encoding string
	server := httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		requestBody, _ = io.ReadAll(req.Body)
		encoding = req.Header.Get("Content-Encoding")
		res.WriteHeader(http.StatusNoContent)
	}))

	defer server.Close()

	sender := NewHttpSender(server.Client(), server.URL)
	err := sender([]byte("message"))

	assert.Equal(t, []byte("message"), requestBody)
	assert.Equal(t, "gzip", encoding)
	assert.Nil(t, err)
}

func TestNewHttpSender_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		res.WriteHeader(400)
	}))

	defer server.Close()

	sender := NewHttpSender(server.Client(), server.URL)
	err := sender([]byte("message"))

	assert.NotNil(t, err)
}

func TestNewHttpSender_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewHttpSender(http.DefaultClient, url)([]byte("message"))
	assert.Error(t, err)
}
