// Package upload delivers finished documents to the remote storage endpoint
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/zeptools/fieldticket/sec"
)

const (
	DefaultTimeout  = 30 * time.Second
	TokenExpiration = 5 * time.Minute
	// maximum bytes of an error response body kept for the log
	maxErrBody = 512
)

type Client struct {
	*http.Client // [Embedded]
	Conf         *Conf
}

func NewClient(conf *Conf) *Client {
	return &Client{Client: &http.Client{}, Conf: conf}
}

// Upload POSTs the document and fails on any non-2xx status
func (c *Client) Upload(ctx context.Context, filename string, pdf []byte) error {
	token, err := sec.NewServiceToken(c.Conf.Secret, c.Conf.ClientID, c.Conf.Audience, filename, TokenExpiration)
	if err != nil {
		return fmt.Errorf("upload token: %w", err)
	}
	upstrReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Conf.URL, bytes.NewReader(pdf))
	if err != nil {
		return err
	}
	upstrReq.Header.Set("Client-Id", c.Conf.ClientID)
	upstrReq.Header.Set("Authorization", "Bearer "+token)
	upstrReq.Header.Set("Content-Type", "application/pdf")
	upstrReq.Header.Set("X-Filename", filename)

	upstrRes, err := c.Do(upstrReq)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := upstrRes.Body.Close(); closeErr != nil {
			log.Printf("[WARN] %v", closeErr)
		}
	}()
	if upstrRes.StatusCode < 200 || upstrRes.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(upstrRes.Body, maxErrBody))
		return fmt.Errorf("upload %s: HTTP Status Code: %d %s", filename, upstrRes.StatusCode, bytes.TrimSpace(body))
	}
	_, _ = io.Copy(io.Discard, upstrRes.Body)
	return nil
}

// Deliver uploads in the background. The outcome is only logged; done,
// when not nil, receives it for callers that want to wait (tests, CLI)
func (c *Client) Deliver(filename string, pdf []byte, done chan<- error) {
	timeout := c.Conf.Timeout()
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] upload %s: %v", filename, r)
				err = fmt.Errorf("upload panic: %v", r)
			}
			if done != nil {
				done <- err
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err = c.Upload(ctx, filename, pdf); err != nil {
			log.Printf("[WARN][UPLOAD] %s: %v", filename, err)
			return
		}
		log.Printf("[INFO][UPLOAD] %s: %d bytes delivered", filename, len(pdf))
	}()
}
