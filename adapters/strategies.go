package adapters

import (
	"context"
	"fmt"
	"strings"

	validator "github.com/asaskevich/govalidator"
	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/errortypes"
	"github.com/dlgate/download-gate/render"
)

// ScriptInjectStrategy places the provider's global tag on the surface. When a Prober is set the
// script must be reachable before it is injected.
type ScriptInjectStrategy struct {
	Prober *HTTPProber
}

func (s *ScriptInjectStrategy) Load(ctx context.Context, provider config.Provider, surface RenderTarget) error {
	src := provider.Credential(config.CredentialScriptURL)
	if src == "" {
		return &errortypes.LoadFailure{Message: fmt.Sprintf("provider %s has no %s", provider.ID, config.CredentialScriptURL)}
	}
	if surface.HasScript(src) {
		return nil
	}
	if s.Prober != nil {
		if err := s.Prober.Probe(ctx, src); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	surface.InjectScript(src, scriptAttrs(provider))
	return nil
}

func scriptAttrs(provider config.Provider) map[string]string {
	attrs := map[string]string{
		"async":         "true",
		"data-cfasync":  "false",
		"data-provider": provider.ID,
	}
	if zone := provider.Credential(config.CredentialZoneID); zone != "" {
		attrs["data-zone"] = zone
	}
	return attrs
}

func loadInlineTag(ctx context.Context, provider config.Provider, surface RenderTarget) error {
	container := provider.Credential(config.CredentialContainerID)
	if container == "" {
		return &errortypes.LoadFailure{Message: fmt.Sprintf("provider %s has no %s", provider.ID, config.CredentialContainerID)}
	}
	el := render.Inline{
		ContainerID: container,
		HTML:        provider.Credential(config.CredentialTagHTML),
		ScriptSrc:   provider.Credential(config.CredentialScriptURL),
	}
	if el.HTML == "" && el.ScriptSrc == "" {
		return &errortypes.LoadFailure{Message: fmt.Sprintf("provider %s has neither %s nor %s", provider.ID, config.CredentialTagHTML, config.CredentialScriptURL)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	surface.MountInline(el)
	return nil
}

func bindRedirect(ctx context.Context, provider config.Provider, surface RenderTarget) error {
	target := provider.Credential(config.CredentialRedirectURL)
	if !isRedirectURL(target) {
		return &errortypes.LoadFailure{Message: fmt.Sprintf("provider %s has an invalid %s %q", provider.ID, config.CredentialRedirectURL, target)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	surface.BindClickRedirect(target)
	return nil
}

func isRedirectURL(u string) bool {
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return u != "" && validator.IsRequestURL(u)
}
