package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dlgate/download-gate/errortypes"
	"golang.org/x/net/context/ctxhttp"
)

// HTTPProber checks that a creative is being served before it is placed on a surface.
type HTTPProber struct {
	Client *http.Client
}

func NewHTTPProber(client *http.Client) *HTTPProber {
	return &HTTPProber{Client: client}
}

// Probe fetches src and fails unless the ad server answers with a 2xx.
func (p *HTTPProber) Probe(ctx context.Context, src string) error {
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	req, err := http.NewRequest(http.MethodGet, src, nil)
	if err != nil {
		return &errortypes.LoadFailure{Message: fmt.Sprintf("bad creative url %q: %v", src, err)}
	}

	resp, err := ctxhttp.Do(ctx, p.Client, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &errortypes.LoadFailure{Message: fmt.Sprintf("failed to fetch creative %s: %v", src, err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &errortypes.BadServerResponse{Message: fmt.Sprintf("creative %s answered with status %d", src, resp.StatusCode)}
	}
	return nil
}
