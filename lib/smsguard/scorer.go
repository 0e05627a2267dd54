package smsguard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/phishti/smsguard/lib/lexicon"
)

// PhishingThreshold is the score above which a message is phishing, the threshold itself is legitimate
const PhishingThreshold = 0.6

// score is summed in hundredths, all weights and the jitter are whole hundredths
const (
	thresholdPoints = 60
	maxPoints       = 100
)

// confidence tiers, checked from highest to lowest, first match wins
var tiers = []struct {
	above int // points
	text  string
}{
	{90, "Very high ML confidence"},
	{80, "High ML confidence"},
	{70, "Moderate ML confidence"},
}

// score is a pure function of the message. Indicators are built while the score accumulates,
// the tier indicator is added only after the verdict is fixed.
func score(msg string) (isPhishing bool, confidence float64, indicators []string) {
	lowerMsg := strings.ToLower(msg)
	indicators = []string{}
	points := 0

	for _, e := range lexicon.ByCategory(lexicon.Urgency) {
		if strings.Contains(lowerMsg, e.Phrase) {
			points += e.Points
			indicators = append(indicators, fmt.Sprintf("Urgent language: '%s'", e.Phrase))
		}
	}

	for _, e := range lexicon.ByCategory(lexicon.Financial) {
		if strings.Contains(lowerMsg, e.Phrase) {
			points += e.Points
			indicators = append(indicators, fmt.Sprintf("Financial request: '%s'", e.Phrase))
		}
	}

	if containsAny(lowerMsg, lexicon.ByCategory(lexicon.URLHeuristic)) {
		points += lexicon.URLPoints
		indicators = append(indicators, "Contains URL")
	}

	if containsAny(lowerMsg, lexicon.ByCategory(lexicon.SenderHeuristic)) {
		points += lexicon.SenderPoints
		indicators = append(indicators, "Suspicious sender pattern")
	}

	points = min(points+lengthJitter(msg), maxPoints)
	isPhishing = points > thresholdPoints

	for _, tier := range tiers {
		if points > tier.above {
			indicators = append(indicators, tier.text)
			break
		}
	}
	return isPhishing, float64(points) / 100, indicators
}

// lengthJitter is a deterministic noise term in points, depends on message length in runes only
func lengthJitter(msg string) int {
	return utf8.RuneCountInString(msg) % 10
}

func containsAny(lowerMsg string, entries []lexicon.Entry) bool {
	for _, e := range entries {
		if strings.Contains(lowerMsg, e.Phrase) {
			return true
		}
	}
	return false
}
