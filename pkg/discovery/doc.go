// Package discovery advertises and finds a development subscription API on
// the local network over mDNS (DNS-SD).
//
// The dev server registers a "_hermes-api._tcp" service whose TXT records
// carry the API version and path prefix. Clients started with discovery
// enabled browse for that service and build their base URL from the first
// result.
//
//	adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
//	err := adv.Advertise(ctx, &discovery.APIInfo{Instance: "dev", Port: 8080, Version: v})
//	defer adv.Stop()
//
//	b := discovery.NewBrowser(discovery.BrowserConfig{})
//	svc, err := b.Find(ctx)
//	base := svc.BaseURL()
package discovery
