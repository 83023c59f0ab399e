// Package classify maps one fetched page onto the link-status taxonomy.
//
// Classification is an ordered decision chain over keyword tables; the first
// matching rule wins. Given identical navigation results and element texts
// the outcome is always identical: no I/O, no clock, no randomness.
package classify

import (
	"fmt"
	"strings"

	"linkcheck/internal/domain"
)

// ElementFetcher lazily loads interactive-element texts. It is only invoked
// once positive offer signals warrant a button scan, because fetching
// elements costs a round trip to the live page.
type ElementFetcher func() []domain.InteractiveElement

// Classify evaluates the decision chain for one navigation result.
func Classify(nav domain.NavigationResult, fetchElements ElementFetcher) domain.Outcome {
	urlLower := strings.ToLower(nav.FinalURL)
	title := strings.ToLower(nav.Title)
	source := strings.ToLower(nav.HTMLSource)

	if containsAny(title, rateLimitKeywords) || containsAny(source, rateLimitKeywords) {
		return domain.Outcome{
			Status: domain.StatusRateLimitSuspected,
			Detail: fmt.Sprintf("Security/Rate limit page (Title: %s)", truncate(nav.Title, 60)),
		}
	}

	if containsAny(urlLower, authWallMarkers) {
		return domain.Outcome{
			Status: domain.StatusFailed,
			Detail: "Authwall/Login required or session issue.",
		}
	}

	isRedeemURL := containsAny(urlLower, redeemURLPatterns)
	hasRedeemParam := containsAny(nav.FinalURL, redeemQueryParams)
	hasTrialKeyword := containsAny(source, trialPageKeywords)
	positive := isRedeemURL || hasRedeemParam || hasTrialKeyword

	if containsAny(normalizeQuotes(source), offerUnavailableKeywords) {
		if positive {
			// Ambiguity must never be reported as WORKING.
			return domain.Outcome{
				Status: domain.StatusFailed,
				Detail: "Mixed signals: offer indicators alongside unavailable/redeemed text.",
			}
		}
		return domain.Outcome{
			Status: domain.StatusFailed,
			Detail: "Offer unavailable, expired, or already redeemed.",
		}
	}

	if positive && containsAny(urlLower, offerQualifierURLTerms) {
		confidence := domain.ConfidenceLow
		detail := "Potential trial/gift indicators found."
		switch {
		case isRedeemURL && hasRedeemParam:
			confidence = domain.ConfidenceHigh
		case isRedeemURL || hasRedeemParam:
			confidence = domain.ConfidenceMedium
		case hasTrialKeyword && (strings.Contains(urlLower, "premium") || strings.Contains(urlLower, "checkout")):
			confidence = domain.ConfidenceMedium
			if containsAny(title, premiumTitleTerms) {
				confidence = domain.ConfidenceHigh
			}
		}
		if fetchElements != nil {
			for _, el := range fetchElements() {
				text := strings.ToLower(el.Text)
				if containsAny(text, actionElementKeywords) {
					detail += fmt.Sprintf(" Action button: %q.", truncate(el.Text, 30))
					if confidence == domain.ConfidenceLow {
						confidence = domain.ConfidenceMedium
					}
					break
				}
			}
		}
		return domain.Outcome{Status: domain.StatusWorking, Confidence: confidence, Detail: detail}
	}

	if containsAny(urlLower, regularPagePatterns) &&
		!isRedeemURL && !hasRedeemParam &&
		!strings.Contains(urlLower, "premium") && !strings.Contains(urlLower, "gift") {
		return domain.Outcome{
			Status: domain.StatusFailed,
			Detail: "Regular member page, not a trial/gift offer.",
		}
	}

	if containsAny(source, pageIssueKeywords) {
		return domain.Outcome{
			Status: domain.StatusFailed,
			Detail: "Page not found, content unavailable, or processing error.",
		}
	}

	return domain.Outcome{
		Status: domain.StatusFailed,
		Detail: "Inconclusive: no trial/gift offer or unavailable message detected.",
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
