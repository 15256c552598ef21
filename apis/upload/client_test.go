package upload

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/fieldticket/sec"
)

var secret = []byte("upload-secret")

func newConf(url string) *Conf {
	return &Conf{URL: url, ClientID: "fieldticket", Audience: "storage", Secret: secret, TimeoutSec: 2}
}

func TestUpload(t *testing.T) {
	var (
		gotBody     []byte
		gotFilename string
		gotType     string
		gotClaims   *sec.ServiceClaims
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotBody, _ = io.ReadAll(r.Body)
		gotFilename = r.Header.Get("X-Filename")
		gotType = r.Header.Get("Content-Type")
		var err error
		gotClaims, err = sec.ParseServiceToken(sec.ExtractBearerToken(r.Header.Get("Authorization")), secret, "storage")
		assert.NoError(t, err)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(newConf(srv.URL))
	require.NoError(t, c.Upload(t.Context(), "ticket-T-1.pdf", []byte("%PDF-1.4")))
	assert.Equal(t, []byte("%PDF-1.4"), gotBody)
	assert.Equal(t, "ticket-T-1.pdf", gotFilename)
	assert.Equal(t, "application/pdf", gotType)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "fieldticket", gotClaims.Issuer)
	assert.Equal(t, "ticket-T-1.pdf", gotClaims.Filename)
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	err := NewClient(newConf(srv.URL)).Upload(t.Context(), "a.pdf", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "507")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestUploadWithoutSecret(t *testing.T) {
	conf := newConf("http://127.0.0.1:0")
	conf.Secret = nil
	assert.Error(t, NewClient(conf).Upload(t.Context(), "a.pdf", []byte("x")))
}

func TestDeliverNeverSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	done := make(chan error, 1)
	NewClient(newConf(srv.URL)).Deliver("a.pdf", []byte("x"), done)
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("delivery did not finish")
	}
}

func TestDeliverSuccess(t *testing.T) {
	hits := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.Header.Get("X-Filename")
	}))
	defer srv.Close()

	done := make(chan error, 1)
	NewClient(newConf(srv.URL)).Deliver("b.pdf", []byte("x"), done)
	require.NoError(t, <-done)
	assert.Equal(t, "b.pdf", <-hits)
}
