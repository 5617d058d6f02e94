// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package website

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/security"
)

const landingHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Notely - Smart Notes</title>
  <meta name="description" content="Capture ideas instantly with Notely.">
  <link rel="stylesheet" href="/assets/tailwindcss/app.css">
  <script src="https://js.stripe.com/v3/"></script>
  <script id="__NEXT_DATA__" type="application/json">{}</script>
</head>
<body>
  <div class="hero-section">
    <h1>Your second brain, everywhere</h1>
    <p>Notely syncs notes across every device you own.</p>
  </div>
  <main>
    <section class="features-grid">
      <h3>Offline first</h3>
      <h3>End-to-end encryption</h3>
      <ul>
        <li>Sync across unlimited devices</li>
        <li>ok</li>
      </ul>
    </section>
    <img class="product-shot" alt="App screenshot" src="/img/shot1.png">
    <img class="screenshot" src="/img/logo-dark.png">
    <div class="testimonial">
      <p>Notely completely replaced three other apps for me. Could not work without it.</p>
    </div>
    <blockquote>Too short</blockquote>
  </main>
  <footer>
    <a href="https://twitter.com/notelyapp">Twitter</a>
    <a href="https://x.com/notelyapp_alt">X</a>
    <a href="https://github.com/notely">GitHub</a>
    <a href="/pricing">Pricing</a>
    <a href="/blog">Blog</a>
    <a href="/about-us">About</a>
    <a href="https://elsewhere.example.com/partner">Partner</a>
  </footer>
</body>
</html>`

const pricingHTML = `<!DOCTYPE html>
<html>
<head><title>Notely Pricing</title></head>
<body>
  <main>
    <div class="pricing-card">
      <h3>Starter</h3>
      <p>Free forever</p>
      <ul><li>100 notes</li><li>1 device</li></ul>
    </div>
    <div class="pricing-card">
      <h3>Pro</h3>
      <p>€9.99 per month</p>
      <ul><li>Unlimited notes</li></ul>
    </div>
    <div class="plan-enterprise">
      <h3>Enterprise</h3>
      <p>Contact sales</p>
    </div>
  </main>
</body>
</html>`

// newTestExtractor wires an extractor to a test server with the SSRF
// guard swapped out; httptest binds loopback, which the real guard
// rejects.
func newTestExtractor(opts Options) *Extractor {
	client := fetch.NewClient(fetch.Config{
		Limiter: fetch.NewLimiter(100000, 100000, 16),
		Sleep:   func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		Jitter:  func() time.Duration { return time.Millisecond },
	})
	e := NewExtractor(client, opts)
	e.guard = func(string) error { return nil }
	e.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return e
}

func TestExtractLandingPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(landingHTML))
	}))
	defer srv.Close()

	e := newTestExtractor(Options{})
	result, err := e.Extract(context.Background(), Params{
		URL:             srv.URL,
		ExtractFeatures: true,
		ExtractPricing:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.CrawledPages)
	assert.Equal(t, "Notely - Smart Notes", result.Title)
	assert.Equal(t, "Capture ideas instantly with Notely.", result.Description)
	assert.Contains(t, result.HeroText, "Your second brain, everywhere")
	assert.NotEmpty(t, result.MainContent)

	// "ok" falls below the minimum feature length.
	assert.Equal(t, []string{
		"Offline first",
		"End-to-end encryption",
		"Sync across unlimited devices",
	}, result.Features)

	// The logo is excluded by filename even under a screenshot class.
	assert.Equal(t, []string{"/img/shot1.png"}, result.Screenshots)

	require.Len(t, result.Testimonials, 1)
	assert.Contains(t, result.Testimonials[0], "replaced three other apps")

	assert.ElementsMatch(t, []string{"Next.js", "Tailwind CSS", "Stripe"}, result.Technologies)

	// First hit per platform wins.
	assert.Equal(t, "https://twitter.com/notelyapp", result.SocialLinks["twitter"])
	assert.Equal(t, "https://github.com/notely", result.SocialLinks["github"])

	// No pricing plans on the landing page.
	assert.Nil(t, result.PricingInfo)
}

func TestExtractFollowsSubpagesPricingFirst(t *testing.T) {
	t.Parallel()

	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Path)
		switch r.URL.Path {
		case "/pricing":
			w.Write([]byte(pricingHTML))
		case "/":
			w.Write([]byte(landingHTML))
		default:
			w.Write([]byte("<html><head><title>x</title></head><body></body></html>"))
		}
	}))
	defer srv.Close()

	e := newTestExtractor(Options{})
	result, err := e.Extract(context.Background(), Params{
		URL:             srv.URL + "/",
		MaxPages:        3,
		IncludeSubpages: true,
		ExtractPricing:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.CrawledPages)
	require.GreaterOrEqual(t, len(order), 3)
	assert.Equal(t, "/", order[0])
	// High-value paths jump the queue ahead of /blog.
	assert.Equal(t, "/pricing", order[1])
	assert.Equal(t, "/about-us", order[2])

	require.NotNil(t, result.PricingInfo)
	require.Len(t, result.PricingInfo.Plans, 2)
	assert.Equal(t, "Starter", result.PricingInfo.Plans[0].Name)
	assert.Equal(t, []string{"100 notes", "1 device"}, result.PricingInfo.Plans[0].Features)
	assert.Equal(t, "Pro", result.PricingInfo.Plans[1].Name)
	assert.True(t, result.PricingInfo.HasFreeTier)
	assert.Equal(t, "EUR", result.PricingInfo.Currency)
}

func TestExtractRespectsMaxPages(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(landingHTML))
	}))
	defer srv.Close()

	e := newTestExtractor(Options{MaxPages: 2})
	result, err := e.Extract(context.Background(), Params{
		URL:             srv.URL,
		MaxPages:        50, // clamped to the extractor ceiling
		IncludeSubpages: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.CrawledPages)
	assert.Equal(t, 2, hits)
}

func TestExtractRejectsPrivateRoot(t *testing.T) {
	t.Parallel()

	client := fetch.NewClient(fetch.Config{
		Limiter: fetch.NewLimiter(100000, 100000, 16),
	})
	e := NewExtractor(client, Options{})

	_, err := e.Extract(context.Background(), Params{URL: "http://192.168.1.10/admin"})
	require.Error(t, err)
	assert.EqualError(t, err, "URLs pointing to internal/private IP addresses are not allowed")

	_, err = e.Extract(context.Background(), Params{URL: "file:///etc/passwd"})
	require.ErrorIs(t, err, security.ErrUnsupportedScheme)
}

func TestExtractSkipsGuardedSubpages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(landingHTML))
	}))
	defer srv.Close()

	e := newTestExtractor(Options{MaxPages: 5})
	// Re-arm the real guard for everything except the entry URL.
	e.guard = func(rawurl string) error {
		if rawurl == srv.URL {
			return nil
		}
		return security.ValidateOutboundURL(rawurl)
	}

	result, err := e.Extract(context.Background(), Params{
		URL:             srv.URL,
		IncludeSubpages: true,
	})
	require.NoError(t, err)
	// Loopback subpages are refused by the guard, so only the root is
	// counted.
	assert.Equal(t, 1, result.CrawledPages)
}

func TestExtractToleratesFetchFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pricing" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write([]byte(landingHTML))
	}))
	defer srv.Close()

	e := newTestExtractor(Options{MaxPages: 4})
	result, err := e.Extract(context.Background(), Params{
		URL:             srv.URL + "/",
		IncludeSubpages: true,
	})
	require.NoError(t, err)
	// The 404 page is skipped, not fatal, and does not count.
	assert.Equal(t, 3, result.CrawledPages)
}

func TestCleanTextStripsMarkup(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello world", cleanText("  hello\n\t world  "))
	assert.Equal(t, "bold move", cleanText("<b>bold</b> move"))
	assert.Equal(t, "", cleanText("<script>alert(1)</script>"))
}

func TestDetectTechnologies(t *testing.T) {
	t.Parallel()

	html := `<link href="/wp-content/themes/x.css"><script src="jquery.min.js"></script>`
	assert.ElementsMatch(t, []string{"jQuery", "WordPress"}, detectTechnologies(html))
	assert.Empty(t, detectTechnologies("<html><body>plain</body></html>"))
}

func TestAppendUniqueCapsAndDedupes(t *testing.T) {
	t.Parallel()

	got := appendUnique([]string{"a"}, []string{"a", "b", "", "c", "d"}, 3)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
