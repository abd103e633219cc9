package ads

// Settings controls how the gate treats an active advertisement.
type Settings struct {
	CountdownSeconds int  `json:"countdown_seconds"`
	Closable         bool `json:"closable"`
	AutoCloseOnReady bool `json:"auto_close_on_ready"`
}

// Advertisement is produced by a provider's successful load. Only one is active in a gate at a time.
type Advertisement struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ProviderID string   `json:"provider_id"`
	Format     Format   `json:"format"`
	Settings   Settings `json:"settings"`
	Priority   int      `json:"priority"`
	// ClickURL is set for creatives which redirect on interaction (direct links, click redirects).
	ClickURL string `json:"click_url,omitempty"`
}

// Skippable reports whether the visitor may skip this ad while its countdown runs.
func (a *Advertisement) Skippable() bool {
	return a != nil && a.Settings.Closable && a.Format.HasCreative()
}

func (a *Advertisement) Clone() *Advertisement {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
