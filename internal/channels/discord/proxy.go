package discord

import "github.com/halcyonlabs/personagate/internal/bus"

// ProxyWebhookPredicate returns the heuristic that separates identity-proxy
// webhook posts from ordinary application webhooks. Proxy systems re-post
// user text through plain webhooks, which carry no application id; regular
// bot integrations always carry one. extraApps lists application ids that
// should be treated as proxies anyway.
func ProxyWebhookPredicate(extraApps []string) func(*bus.Message) bool {
	apps := make(map[string]struct{}, len(extraApps))
	for _, id := range extraApps {
		if id != "" {
			apps[id] = struct{}{}
		}
	}
	return func(m *bus.Message) bool {
		if m.WebhookID == "" {
			return false
		}
		if m.ApplicationID == "" {
			return true
		}
		_, ok := apps[m.ApplicationID]
		return ok
	}
}
