package ads

import "fmt"

// Format describes how a provider's creative is presented to the visitor.
type Format string

const (
	FormatDirectLink   Format = "DIRECT_LINK"
	FormatMultitag     Format = "MULTITAG"
	FormatPopunder     Format = "POPUNDER"
	FormatPush         Format = "PUSH"
	FormatInPagePush   Format = "IN_PAGE_PUSH"
	FormatVignette     Format = "VIGNETTE"
	FormatInterstitial Format = "INTERSTITIAL"
)

func Formats() []Format {
	return []Format{
		FormatDirectLink,
		FormatMultitag,
		FormatPopunder,
		FormatPush,
		FormatInPagePush,
		FormatVignette,
		FormatInterstitial,
	}
}

// ParseFormat returns the Format matching s, or an error if s names no known format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown ad format %q", s)
	}
	return f, nil
}

func (f Format) Valid() bool {
	switch f {
	case FormatDirectLink, FormatMultitag, FormatPopunder, FormatPush,
		FormatInPagePush, FormatVignette, FormatInterstitial:
		return true
	}
	return false
}

// HasCreative is false for formats with nothing to render. Those ads are their own redirect target.
func (f Format) HasCreative() bool {
	return f != FormatDirectLink
}

// DefaultStrategy is the load strategy used for a provider which doesn't configure one.
func (f Format) DefaultStrategy() LoadStrategy {
	switch f {
	case FormatDirectLink:
		return StrategyRedirectOnClick
	case FormatMultitag, FormatPopunder, FormatPush, FormatVignette, FormatInterstitial:
		return StrategyScriptInject
	case FormatInPagePush:
		return StrategyInlineTag
	}
	return ""
}

// LoadStrategy describes how a provider's creative reaches the render surface.
type LoadStrategy string

const (
	StrategyScriptInject    LoadStrategy = "SCRIPT_INJECT"
	StrategyInlineTag       LoadStrategy = "INLINE_TAG"
	StrategyRedirectOnClick LoadStrategy = "REDIRECT_ON_CLICK"
)

func LoadStrategies() []LoadStrategy {
	return []LoadStrategy{
		StrategyScriptInject,
		StrategyInlineTag,
		StrategyRedirectOnClick,
	}
}

func (s LoadStrategy) Valid() bool {
	switch s {
	case StrategyScriptInject, StrategyInlineTag, StrategyRedirectOnClick:
		return true
	}
	return false
}
