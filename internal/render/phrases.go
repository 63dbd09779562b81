package render

import (
	"context"
	"hash/fnv"

	"github.com/dealwire/social-engine/internal/models"
)

// Phrase slots. Each slot has its own salt so the same deal does not land on
// the same index in every list.
const (
	slotAlert = "alert"
	slotCTA   = "cta"
)

var slotSalts = map[string]string{
	slotAlert: "a7",
	slotCTA:   "c3",
}

var alertPhrases = map[models.Language][]string{
	models.LanguageEN: {
		"🔥 Deal alert!",
		"💰 Price drop!",
		"⚡ Hot deal spotted:",
		"🛎️ Fresh deal just in:",
	},
	models.LanguageES: {
		"🔥 ¡Oferta imperdible!",
		"💰 ¡Bajó de precio!",
		"⚡ Chollo detectado:",
		"🛎️ Oferta recién llegada:",
	},
}

var ctaPhrases = map[models.Language][]string{
	models.LanguageEN: {
		"Grab it before it's gone 👇",
		"Don't sleep on this one 👇",
		"Tap the link to snag it 👇",
		"Get yours here 👇",
	},
	models.LanguageES: {
		"Aprovecha antes de que vuele 👇",
		"No te lo pierdas 👇",
		"Toca el enlace y llévatelo 👇",
		"Consíguelo aquí 👇",
	},
}

// VariantCache remembers phrase picks for a stability window. Implemented by
// the Redis varcache; a nil cache is valid and just recomputes every time.
type VariantCache interface {
	Get(ctx context.Context, slot, lang, dealID string) (int, bool)
	Set(ctx context.Context, slot, lang, dealID string, idx int)
}

// pickVariant resolves a phrase slot to one variant, pseudo-randomly but
// stably per deal: hashing the deal ID with a per-slot salt means different
// deals rotate through the list while the same deal always resolves the
// same way. The cache pins the pick across variant-list deploys inside the
// TTL window.
func pickVariant(ctx context.Context, cache VariantCache, variants []string, slot string, lang models.Language, dealID string) string {
	if len(variants) == 0 {
		return ""
	}

	if cache != nil {
		if idx, ok := cache.Get(ctx, slot, string(lang), dealID); ok && idx >= 0 && idx < len(variants) {
			return variants[idx]
		}
	}

	h := fnv.New32a()
	h.Write([]byte(dealID + slotSalts[slot]))
	idx := int(h.Sum32() % uint32(len(variants)))

	if cache != nil {
		cache.Set(ctx, slot, string(lang), dealID, idx)
	}

	return variants[idx]
}
