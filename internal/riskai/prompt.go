package riskai

import (
	"fmt"
	"strings"
	"time"
)

const (
	PatternBurst        = "Multiple orders in short timeframe"
	PatternPriceSpike   = "Order value significantly higher than average"
	PatternCancellation = "High cancellation rate"
)

// DetectPatterns looks for burst ordering, price spikes and frequent
// cancellations in a buyer's orders, oldest first.
func DetectPatterns(orders []PastOrder, now time.Time) []string {
	patterns := []string{}
	if len(orders) == 0 {
		return patterns
	}

	hourAgo := now.Add(-time.Hour)
	recent := 0
	cancelled := 0
	total := 0.0
	for _, o := range orders {
		if o.CreatedAt.After(hourAgo) {
			recent++
		}
		if o.Status == "cancelled" {
			cancelled++
		}
		total += o.Price
	}

	if recent >= 3 {
		patterns = append(patterns, PatternBurst)
	}
	avg := total / float64(len(orders))
	if orders[len(orders)-1].Price > avg*5 {
		patterns = append(patterns, PatternPriceSpike)
	}
	if len(orders) >= 3 && float64(cancelled)/float64(len(orders)) > 0.5 {
		patterns = append(patterns, PatternCancellation)
	}
	return patterns
}

// BuildPrompt renders the order analysis prompt
func BuildPrompt(oc OrderContext, patterns []string) string {
	var b strings.Builder
	b.WriteString("You are a fraud detection AI analyzing a freelance marketplace order. ")
	b.WriteString("Analyze the following order data and determine if it's potentially fraudulent:\n\n")

	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "- Price: $%.2f\n", oc.Price)
	fmt.Fprintf(&b, "- Delivery Time: %d days\n", oc.DeliveryTime)
	if oc.History.AccountAgeDays > 0 {
		fmt.Fprintf(&b, "- Buyer Account Age: %d days\n", oc.History.AccountAgeDays)
	} else {
		b.WriteString("- Buyer Account Age: New\n")
	}
	fmt.Fprintf(&b, "- Buyer Total Orders: %d\n", oc.History.TotalOrders)
	fmt.Fprintf(&b, "- Buyer Cancelled Orders: %d\n", oc.History.CancelledOrders)
	fmt.Fprintf(&b, "- Buyer Average Order Value: $%.2f\n", oc.History.AverageOrderValue)
	fmt.Fprintf(&b, "- Requirements Provided: %d\n", oc.Requirements)
	if len(patterns) > 0 {
		fmt.Fprintf(&b, "- Unusual Patterns: %s\n", strings.Join(patterns, ", "))
	}

	b.WriteString(`
Analyze for:
1. Unusual price patterns (too high/low compared to history)
2. New account with large order
3. High cancellation rate
4. Suspicious behavior patterns
5. Delivery time mismatches
6. Missing requirements for high-value orders

Return ONLY a JSON response in this exact format (no markdown, no extra text):
{
  "riskScore": <number 0-100>,
  "isFraudulent": <boolean>,
  "reasons": ["reason1", "reason2"],
  "recommendation": "approve|review|reject",
  "flags": [
    {
      "category": "transactional|behavioral|account|pattern|payment",
      "severity": "low|medium|high|critical",
      "description": "specific issue description",
      "evidence": {"key": "value"}
    }
  ],
  "suspiciousPatterns": [
    {
      "pattern": "pattern name",
      "occurrences": 1,
      "severity": "low|medium|high",
      "examples": []
    }
  ]
}`)
	return b.String()
}
