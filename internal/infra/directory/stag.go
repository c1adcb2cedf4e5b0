package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultTimeout = 5 * time.Second

var ErrLoginNotFound = errors.New("no login found for student")

// StagDirectory looks up the Orion login of a student by personal number
// through the public STAG web service.
type StagDirectory struct {
	http *resty.Client
	url  string
}

func NewStagDirectory(lookupURL string, timeout time.Duration) *StagDirectory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &StagDirectory{http: client, url: lookupURL}
}

func (d *StagDirectory) LookupLogin(ctx context.Context, studentID string) (string, error) {
	res, err := d.http.R().
		SetContext(ctx).
		SetQueryParam("osCislo", studentID).
		Get(d.url)
	if err != nil {
		return "", fmt.Errorf("STAG lookup failed: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("STAG lookup returned status %d", res.StatusCode())
	}
	login := strings.TrimSpace(res.String())
	if login == "" {
		return "", ErrLoginNotFound
	}
	return login, nil
}
