package classify

import "strings"

// Keyword tables driving the decision chain. Each table backs exactly one
// rule so the chain can be exercised rule by rule with synthetic pages.

// rateLimitKeywords mark bot-detection and verification interstitials.
var rateLimitKeywords = []string{
	"security verification",
	"are you a human",
	"too many requests",
	"temporarily restricted",
	"checkpoint",
	"verify your identity",
	"unusual activity",
}

// authWallMarkers in the final URL mean the session was bounced to login.
var authWallMarkers = []string{
	"authwall",
	"login.",
	"/login",
}

// offerUnavailableKeywords mean the offer is expired, redeemed, or invalid.
var offerUnavailableKeywords = []string{
	"offer is no longer available",
	"this offer has expired",
	"sorry, this offer isn't available",
	"unable to claim this offer",
	"this link is no longer active",
	"link has expired",
	"this gift is no longer available",
	"this trial is no longer available",
	"you may have already redeemed this gift",
	"offer already redeemed",
	"no longer valid",
	"not available at this time",
	"cannot be claimed",
	"already been redeemed",
}

// redeemURLPatterns are known redemption path fragments.
var redeemURLPatterns = []string{
	"/redeem",
	"/gifts/claim",
	"/sales/gift/claim",
	"/premium/redeem",
	"linkedin.com/checkout/redeem",
	"linkedin.com/checkout/gift",
}

// redeemQueryParams are matched case-sensitively against the raw final URL.
var redeemQueryParams = []string{
	"redeemToken",
	"claimToken",
	"midToken",
	"msgPayload",
	"giftId",
	"trk=li_gift",
}

// trialPageKeywords are trial/gift phrases in page text.
var trialPageKeywords = []string{
	"try premium for free",
	"start your free month",
	"1-month free trial",
	"get premium free",
	"free trial",
	"claim your free month",
	"unlock premium free",
	"try for free",
	"activate your gift",
	"you've received a gift",
	"claim your gift",
	"redeem your gift",
	"accept your gift",
	"start free trial",
	"confirm your free trial",
	"free premium",
}

// offerQualifierURLTerms gate the positive rule: at least one must appear in
// the final URL before a page is accepted as an offer page.
var offerQualifierURLTerms = []string{
	"premium",
	"gift",
	"redeem",
	"checkout",
}

// premiumTitleTerms in the page title upgrade a text-only match.
var premiumTitleTerms = []string{
	"premium",
	"gift",
	"trial",
}

// actionElementKeywords identify redemption-capable controls.
var actionElementKeywords = []string{
	"activate",
	"claim",
	"start free trial",
	"redeem now",
	"accept gift",
	"try now",
	"get started",
}

// regularPagePatterns are ordinary navigation destinations, not offers.
var regularPagePatterns = []string{
	"/feed/",
	"/my-items/",
	"/jobs/",
	"/company/",
	"/in/",
	"/notifications/",
	"/messaging/",
}

// pageIssueKeywords are generic not-found and processing-error phrases.
var pageIssueKeywords = []string{
	"page not found",
	"content unavailable",
	"oops, something went wrong",
	"this page isn't available",
	"error processing your request",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// normalizeQuotes folds curly apostrophes so phrases like "isn't available"
// match regardless of how the page encodes them.
func normalizeQuotes(s string) string {
	s = strings.ReplaceAll(s, "’", "'")
	return strings.ReplaceAll(s, "‘", "'")
}
