package scraper

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Verdict is the policy decision for one intercepted request.
type Verdict int

const (
	// VerdictAllow lets the request proceed to the network.
	VerdictAllow Verdict = iota
	// VerdictAbort fails the request before it leaves the browser.
	VerdictAbort
)

// heavyResourceTypes are the render-only resource classes the engine never
// needs: extraction reads the DOM, not the pixels. Scripts and XHR stay
// allowed because pages routinely render their content through them.
var heavyResourceTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeImage:      {},
	proto.NetworkResourceTypeStylesheet: {},
	proto.NetworkResourceTypeFont:       {},
	proto.NetworkResourceTypeMedia:      {},
}

// Classify decides whether a resource class is fetched or aborted.
// Unknown or future resource types are allowed.
func Classify(rt proto.NetworkResourceType) Verdict {
	if _, heavy := heavyResourceTypes[rt]; heavy {
		return VerdictAbort
	}
	return VerdictAllow
}

// mountPolicy installs the resource-class policy on the page before any
// navigation, so even the very first request is classified.
//
// Returns the running HijackRouter so the caller can Stop() it on release.
func mountPolicy(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to abort or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if Classify(ctx.Request.Type()) == VerdictAbort {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}
