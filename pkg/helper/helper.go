package helper

import (
	"fmt"
	"math"
	"strings"
)

func wholeSeconds(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int(seconds)
}

// SecondsToLapTime formats a lap as m:ss.mmm, or "-" when there is none.
func SecondsToLapTime(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return "-"
	}
	ms := int(math.Round(seconds * 1000))
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

func SecondsToDuration(seconds float64) string {
	total := wholeSeconds(seconds)
	return fmt.Sprintf("%dh%02dm", total/3600, total%3600/60)
}

func SecondsToClock(seconds float64) string {
	total := wholeSeconds(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

func GetDriverCodeName(name string) string {
	// first letter of the name and the first 2 letters of the surname, or the
	// first 3 letters when there is a single word
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	words := strings.Fields(name)
	code := string([]rune(words[0])[:1])
	if len(words) > 1 {
		surname := []rune(words[1])
		if len(surname) > 2 {
			code += string(surname[:2])
		} else {
			code += string(surname)
		}
	} else {
		first := []rune(words[0])
		if len(first) > 2 {
			code += string(first[1:3])
		} else {
			code = string(first)
		}
	}
	return strings.ToUpper(code)
}
