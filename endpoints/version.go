package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
)

const versionEndpointValueNotSet = "not-set"

// buildInfo is what /version reports about the running binary and the providers it will try.
type buildInfo struct {
	Revision string `json:"revision"`
	Version  string `json:"version"`
	// Providers are the enabled provider ids in registry order.
	Providers []string `json:"providers"`
}

// NewVersionEndpoint serves the build revision and version of the binary along with the providers
// its waterfall was configured with. The body is computed once.
func NewVersionEndpoint(version, revision string, providers []string) http.HandlerFunc {
	info := buildInfo{
		Revision:  orNotSet(revision),
		Version:   orNotSet(version),
		Providers: append(make([]string, 0, len(providers)), providers...),
	}
	body, err := json.Marshal(info)
	if err != nil {
		glog.Fatalf("error creating /version endpoint response: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func orNotSet(s string) string {
	if s == "" {
		return versionEndpointValueNotSet
	}
	return s
}
