// Package language implements the lightweight script-based language heuristic
// used when constructing new content records.
package language

import "content_harvester/internal/domain"

// dominanceThreshold is the minimum absolute rune count a script needs before
// it can claim the text. Short mixed snippets classify as "other".
const dominanceThreshold = 10

// Detect classifies text by counting runes in the Hangul and basic Latin
// ranges. Whichever range exceeds the threshold and the other range wins;
// anything else is LanguageOther.
func Detect(text string) domain.Language {
	var hangul, latin int
	for _, r := range text {
		switch {
		case r >= 0xAC00 && r <= 0xD7A3, // Hangul syllables
			r >= 0x1100 && r <= 0x11FF, // Hangul jamo
			r >= 0x3130 && r <= 0x318F: // Hangul compatibility jamo
			hangul++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		}
	}

	switch {
	case hangul >= dominanceThreshold && hangul > latin:
		return domain.LanguageKorean
	case latin >= dominanceThreshold && latin > hangul:
		return domain.LanguageEnglish
	default:
		return domain.LanguageOther
	}
}
