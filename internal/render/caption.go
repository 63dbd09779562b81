package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/dealwire/social-engine/internal/models"
)

// BrandHashtag is always present in every hashtag set.
const BrandHashtag = "#dealwire"

// TwitterMaxChars is the short-form caption budget.
const TwitterMaxChars = 280

const twitterHashtagLimit = 2

// Caption is one platform-ready text artifact. FirstComment is only set for
// platforms whose policy forbids links in the main body (instagram): the
// link and hashtags move to a separate first-comment payload.
type Caption struct {
	Platform     string
	Body         string
	FirstComment string
}

// Captioner composes per-platform captions for a deal.
type Captioner struct {
	siteBaseURL string
	cache       VariantCache
}

// NewCaptioner creates a captioner. cache may be nil; phrase picks then
// recompute deterministically on every call.
func NewCaptioner(siteBaseURL string, cache VariantCache) *Captioner {
	return &Captioner{
		siteBaseURL: strings.TrimRight(siteBaseURL, "/"),
		cache:       cache,
	}
}

// Build renders captions for every supported platform in the chosen
// language.
func (c *Captioner) Build(ctx context.Context, deal *models.Deal, lang models.Language) map[string]Caption {
	alert := pickVariant(ctx, c.cache, alertPhrases[lang], slotAlert, lang, deal.ID.String())
	cta := pickVariant(ctx, c.cache, ctaPhrases[lang], slotCTA, lang, deal.ID.String())

	title := deal.Title(lang)
	priceLine := formatPriceLine(deal, lang)
	link := c.DealLink(deal, lang)
	tags := NormalizeHashtags(deal.Hashtags)

	head := fmt.Sprintf("%s %s\n%s\n%s", alert, title, priceLine, storeLine(deal, lang))

	full := head + "\n\n" + cta + "\n" + link + "\n\n" + strings.Join(tags, " ")

	return map[string]Caption{
		models.PlatformTelegram: {
			Platform: models.PlatformTelegram,
			Body:     full,
		},
		models.PlatformFacebook: {
			Platform: models.PlatformFacebook,
			Body:     full,
		},
		models.PlatformTwitter: {
			Platform: models.PlatformTwitter,
			Body:     buildTwitterBody(head, cta, link, tags),
		},
		models.PlatformInstagram: {
			Platform:     models.PlatformInstagram,
			Body:         head + "\n\n" + cta,
			FirstComment: link + "\n\n" + strings.Join(tags, " "),
		},
	}
}

// DealLink returns the canonical deep link back to the deal page.
func (c *Captioner) DealLink(deal *models.Deal, lang models.Language) string {
	if lang == models.LanguageES {
		return fmt.Sprintf("%s/es/deals/%s", c.siteBaseURL, deal.ID)
	}
	return fmt.Sprintf("%s/deals/%s", c.siteBaseURL, deal.ID)
}

// buildTwitterBody fits the caption into the short-form budget, shedding
// hashtags first and then truncating the head with an ellipsis. The CTA and
// link survive whenever the budget allows.
func buildTwitterBody(head, cta, link string, tags []string) string {
	if len(tags) > twitterHashtagLimit {
		tags = tags[:twitterHashtagLimit]
	}

	tail := "\n\n" + cta + "\n" + link
	body := head + tail + "\n" + strings.Join(tags, " ")
	if runeLen(body) <= TwitterMaxChars {
		return body
	}

	// Drop hashtags entirely.
	body = head + tail
	if runeLen(body) <= TwitterMaxChars {
		return body
	}

	// Truncate the head, keeping CTA and link intact.
	budget := TwitterMaxChars - runeLen(tail) - 1
	if budget > 0 {
		return truncateRunes(head, budget) + "…" + tail
	}

	// Pathological: even the tail alone overflows. Hard-truncate.
	return truncateRunes(head+tail, TwitterMaxChars-1) + "…"
}

// NormalizeHashtags lower-cases, strips embedded whitespace, ensures a
// leading '#', removes duplicates, and guarantees the brand hashtag is
// present (first).
func NormalizeHashtags(raw []string) []string {
	out := []string{BrandHashtag}
	seen := map[string]struct{}{BrandHashtag: {}}

	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.TrimLeft(t, "#")
		t = strings.ReplaceAll(t, " ", "")
		if t == "" {
			continue
		}
		t = "#" + t
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

func formatPriceLine(deal *models.Deal, lang models.Language) string {
	price := formatPrice(deal.Price)

	line := price
	if deal.OldPrice != nil && *deal.OldPrice > deal.Price {
		was := "was"
		if lang == models.LanguageES {
			was = "antes"
		}
		line = fmt.Sprintf("%s (%s %s)", price, was, formatPrice(*deal.OldPrice))
	}

	if pct := deal.Discount(); pct >= 1 {
		line += fmt.Sprintf(" · -%d%%", int(pct))
	}

	return line
}

func storeLine(deal *models.Deal, lang models.Language) string {
	if lang == models.LanguageES {
		return "En " + deal.StoreName
	}
	return "At " + deal.StoreName
}

func formatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " \n")
}
