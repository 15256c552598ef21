package upload

import "time"

type Conf struct {
	URL        string `json:"url"`         // endpoint accepting the binary POST
	ClientID   string `json:"client_id"`   // ID of this App as a client of the upload endpoint. token issuer
	Audience   string `json:"audience"`    // token audience
	TimeoutSec int    `json:"timeout_sec"` // bounds one fire-and-forget delivery. 0 = DefaultTimeout
	// Secret signs the bearer tokens. read from the environment, never from JSON
	Secret []byte `json:"-"`
}

func (c *Conf) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSec) * time.Second
}
