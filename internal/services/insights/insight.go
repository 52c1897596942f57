package insights

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fininsight/internal/models"
)

// money rounds an amount to cents
func money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// scale multiplies an amount by a factor and rounds to cents, so that
// 250*1.1 yields 275 rather than 275.00000000000006
func scale(amount, factor float64) float64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(factor)).Round(2).InexactFloat64()
}

func percent(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

func value(v float64) *float64 {
	return &v
}

func expiresIn(now time.Time, days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func daysSince(now, then time.Time) float64 {
	return now.Sub(then).Hours() / 24
}

// slug turns a free-form name into an id fragment
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// insightID joins a type prefix and key parts into a deterministic id
func insightID(t models.InsightType, parts ...string) string {
	id := strings.ReplaceAll(string(t), "_", "-")
	for _, p := range parts {
		id += "-" + p
	}
	return id
}
