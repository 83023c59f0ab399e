package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkcheck/internal/classify"
	"linkcheck/internal/domain"
)

func TestClassifyDecisionChain(t *testing.T) {
	tests := []struct {
		name           string
		nav            domain.NavigationResult
		wantStatus     domain.Status
		wantConfidence domain.Confidence
		wantDetail     string
	}{
		{
			name: "rate limit keyword in title wins over everything",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/redeem?redeemToken=abc",
				Title:      "Security Verification",
				HTMLSource: "<html>claim your gift</html>",
			},
			wantStatus: domain.StatusRateLimitSuspected,
			wantDetail: "Security/Rate limit page (Title: Security Verification)",
		},
		{
			name: "rate limit keyword in body",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/gift",
				Title:      "LinkedIn",
				HTMLSource: "<html>too many requests, slow down</html>",
			},
			wantStatus: domain.StatusRateLimitSuspected,
		},
		{
			name: "authwall redirect",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/authwall?trk=x",
				Title:      "Sign In",
				HTMLSource: "<html>join now</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Authwall/Login required or session issue.",
		},
		{
			name: "login path redirect",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/login?session_redirect=x",
				Title:      "Sign In",
				HTMLSource: "<html></html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Authwall/Login required or session issue.",
		},
		{
			name: "expired offer",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/gifts/some-offer",
				Title:      "LinkedIn",
				HTMLSource: "<html>this offer has expired</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Offer unavailable, expired, or already redeemed.",
		},
		{
			name: "curly apostrophe in unavailable phrase still matches",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/gifts/some-offer",
				Title:      "LinkedIn",
				HTMLSource: "<html>sorry, this offer isn’t available</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Offer unavailable, expired, or already redeemed.",
		},
		{
			name: "mixed signals never report working",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/redeem?redeemToken=abc",
				Title:      "Redeem",
				HTMLSource: "<html>claim your gift ... offer already redeemed</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Mixed signals: offer indicators alongside unavailable/redeemed text.",
		},
		{
			name: "redeem path and token give high confidence",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/redeem?redeemToken=abc123",
				Title:      "Redeem your gift",
				HTMLSource: "<html>welcome</html>",
			},
			wantStatus:     domain.StatusWorking,
			wantConfidence: domain.ConfidenceHigh,
		},
		{
			name: "redeem token alone gives medium confidence",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/products?redeemToken=abc",
				Title:      "LinkedIn",
				HTMLSource: "<html>welcome</html>",
			},
			wantStatus:     domain.StatusWorking,
			wantConfidence: domain.ConfidenceMedium,
		},
		{
			name: "redeem token is case sensitive",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/products?redeemtoken=abc",
				Title:      "LinkedIn",
				HTMLSource: "<html>welcome</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Inconclusive: no trial/gift offer or unavailable message detected.",
		},
		{
			name: "trial keywords on premium url give medium confidence",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/products",
				Title:      "LinkedIn",
				HTMLSource: "<html>start your free month today</html>",
			},
			wantStatus:     domain.StatusWorking,
			wantConfidence: domain.ConfidenceMedium,
		},
		{
			name: "trial keywords plus premium title give high confidence",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/premium/products",
				Title:      "LinkedIn Premium",
				HTMLSource: "<html>start your free month today</html>",
			},
			wantStatus:     domain.StatusWorking,
			wantConfidence: domain.ConfidenceHigh,
		},
		{
			name: "trial keywords without qualifying url are inconclusive",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/pulse/some-article",
				Title:      "Article",
				HTMLSource: "<html>free trial mentioned in passing</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Inconclusive: no trial/gift offer or unavailable message detected.",
		},
		{
			name: "feed redirect is a regular page",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/feed/",
				Title:      "Feed",
				HTMLSource: "<html>posts</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Regular member page, not a trial/gift offer.",
		},
		{
			name: "page issue keywords",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/something",
				Title:      "LinkedIn",
				HTMLSource: "<html>page not found</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Page not found, content unavailable, or processing error.",
		},
		{
			name: "default is inconclusive failed",
			nav: domain.NavigationResult{
				FinalURL:   "https://www.linkedin.com/something",
				Title:      "LinkedIn",
				HTMLSource: "<html>nothing interesting</html>",
			},
			wantStatus: domain.StatusFailed,
			wantDetail: "Inconclusive: no trial/gift offer or unavailable message detected.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.Classify(tt.nav, nil)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantConfidence != "" {
				assert.Equal(t, tt.wantConfidence, got.Confidence)
			}
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, got.Detail)
			}
		})
	}
}

func TestClassifyActionElementRaisesConfidence(t *testing.T) {
	nav := domain.NavigationResult{
		FinalURL:   "https://www.linkedin.com/gifts/view",
		Title:      "LinkedIn",
		HTMLSource: "<html>claim your gift</html>",
	}

	fetched := 0
	fetch := func() []domain.InteractiveElement {
		fetched++
		return []domain.InteractiveElement{
			{Text: "Learn more", Role: "button"},
			{Text: "Claim Gift", Role: "button"},
		}
	}

	got := classify.Classify(nav, fetch)
	require.Equal(t, domain.StatusWorking, got.Status)
	assert.Equal(t, domain.ConfidenceMedium, got.Confidence)
	assert.Contains(t, got.Detail, `Action button: "Claim Gift".`)
	assert.Equal(t, 1, fetched)
}

func TestClassifyElementsNotFetchedOnNegativePath(t *testing.T) {
	nav := domain.NavigationResult{
		FinalURL:   "https://www.linkedin.com/feed/",
		Title:      "Feed",
		HTMLSource: "<html>posts</html>",
	}

	fetched := false
	classify.Classify(nav, func() []domain.InteractiveElement {
		fetched = true
		return nil
	})
	assert.False(t, fetched, "element scan must be lazy")
}

func TestClassifyDeterministic(t *testing.T) {
	nav := domain.NavigationResult{
		FinalURL:   "https://www.linkedin.com/premium/redeem?redeemToken=abc",
		Title:      "Redeem your gift",
		HTMLSource: "<html>claim your free month</html>",
	}

	first := classify.Classify(nav, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, classify.Classify(nav, nil))
	}
}
