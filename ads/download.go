package ads

import (
	"errors"
	"strconv"
	"strings"
	"time"

	validator "github.com/asaskevich/govalidator"
	"github.com/buger/jsonparser"
	"github.com/dlgate/download-gate/errortypes"
)

// PendingDownload is the download target handed off by the referring catalog page.
// It is immutable for the lifetime of a gate.
type PendingDownload struct {
	AppName     string     `json:"app_name"`
	AppSlug     string     `json:"app_slug"`
	DeviceType  DeviceType `json:"device_type"`
	ResolvedURL string     `json:"resolved_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks the fields the gate depends on. The returned error is always *errortypes.InvalidDownloadData.
func (d *PendingDownload) Validate() error {
	if d == nil {
		return &errortypes.InvalidDownloadData{Message: "pending download is missing"}
	}
	if strings.TrimSpace(d.AppSlug) == "" {
		return &errortypes.InvalidDownloadData{Message: "pending download has no app slug"}
	}
	if strings.TrimSpace(d.ResolvedURL) == "" {
		return &errortypes.InvalidDownloadData{Message: "pending download has no resolved url"}
	}
	if !validator.IsURL(d.ResolvedURL) {
		return &errortypes.InvalidDownloadData{Message: "pending download resolved url is malformed: " + d.ResolvedURL}
	}
	return nil
}

// HasResolvedURL is true when a raw download url is available, regardless of its validity.
func (d *PendingDownload) HasResolvedURL() bool {
	return d != nil && strings.TrimSpace(d.ResolvedURL) != ""
}

var errEmptyHandoff = errors.New("empty pending download payload")

// ParsePendingDownload reads the referrer's hand-off payload. Keys are accepted in
// snake_case or camelCase, and created_at may be RFC 3339 or unix seconds. A zero
// CreatedAt is replaced with now.
func ParsePendingDownload(data []byte, now time.Time) (*PendingDownload, error) {
	if len(data) == 0 {
		return nil, errEmptyHandoff
	}
	if _, dataType, _, err := jsonparser.Get(data); err != nil || dataType != jsonparser.Object {
		return nil, &errortypes.InvalidDownloadData{Message: "pending download payload is not a JSON object"}
	}

	d := &PendingDownload{
		AppName:     getString(data, "app_name", "appName"),
		AppSlug:     getString(data, "app_slug", "appSlug"),
		DeviceType:  ParseDeviceType(getString(data, "device_type", "deviceType")),
		ResolvedURL: getString(data, "resolved_url", "resolvedUrl"),
	}

	createdAt, err := getTime(data, "created_at", "createdAt")
	if err != nil {
		return nil, &errortypes.InvalidDownloadData{Message: err.Error()}
	}
	if createdAt.IsZero() {
		createdAt = now
	}
	d.CreatedAt = createdAt.UTC()
	return d, nil
}

func getString(data []byte, keys ...string) string {
	for _, key := range keys {
		if v, err := jsonparser.GetString(data, key); err == nil {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func getTime(data []byte, keys ...string) (time.Time, error) {
	for _, key := range keys {
		value, dataType, _, err := jsonparser.Get(data, key)
		if err != nil {
			continue
		}
		switch dataType {
		case jsonparser.Number:
			secs, err := strconv.ParseInt(string(value), 10, 64)
			if err != nil {
				return time.Time{}, errors.New(key + " is not a unix timestamp")
			}
			return time.Unix(secs, 0), nil
		case jsonparser.String:
			t, err := time.Parse(time.RFC3339, string(value))
			if err != nil {
				return time.Time{}, errors.New(key + " is not an RFC 3339 timestamp")
			}
			return t, nil
		case jsonparser.Null:
			return time.Time{}, nil
		}
		return time.Time{}, errors.New(key + " has an unsupported type")
	}
	return time.Time{}, nil
}
