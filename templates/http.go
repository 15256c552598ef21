package templates

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// MaxTemplateBytes caps a fetched template
const MaxTemplateBytes = 20 << 20

type HTTPConf struct {
	BaseURL  string `json:"base_url"`  // static storage root the template names are relative to
	ClientID string `json:"client_id"` // sent as Client-Id. optional
}

// HTTPSource fetches templates by relative URL from static storage
type HTTPSource struct {
	*http.Client // [Embedded]
	Conf         *HTTPConf
}

var _ Source = (*HTTPSource)(nil)

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	upstrURL := strings.TrimRight(s.Conf.BaseURL, "/") + "/" + escapePath(name)
	upstrReq, err := http.NewRequestWithContext(ctx, http.MethodGet, upstrURL, nil)
	if err != nil {
		return nil, err
	}
	if s.Conf.ClientID != "" {
		upstrReq.Header.Set("Client-Id", s.Conf.ClientID)
	}
	upstrReq.Header.Set("Accept", "application/pdf")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	upstrRes, err := client.Do(upstrReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = upstrRes.Body.Close(); err != nil {
			log.Printf("[WARN][TEMPLATE] %v", err)
		}
	}()
	switch {
	case upstrRes.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, upstrURL)
	case upstrRes.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP Status Code: %d", ErrUpstream, upstrRes.StatusCode)
	case upstrRes.StatusCode < 200 || upstrRes.StatusCode > 299:
		return nil, fmt.Errorf("HTTP Status Code: %d", upstrRes.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(upstrRes.Body, MaxTemplateBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxTemplateBytes {
		return nil, fmt.Errorf("template %s exceeds %d bytes", name, MaxTemplateBytes)
	}
	return data, nil
}

func escapePath(name string) string {
	segs := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
