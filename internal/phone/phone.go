package phone

import (
    "fmt"
    "strings"
)

// Normalize canonicalizes a phone number to "+<digits>". Spaces, dashes,
// dots and parentheses are dropped; anything else non-numeric is an error.
// The directory and the telephony provider disagree on the leading "+",
// so every number crossing a boundary goes through here first.
func Normalize(raw string) (string, error) {
    cleaned := strings.Map(func(r rune) rune {
        switch r {
        case ' ', '-', '.', '(', ')':
            return -1
        }
        return r
    }, strings.TrimSpace(raw))

    cleaned = strings.TrimPrefix(cleaned, "+")
    if cleaned == "" {
        return "", fmt.Errorf("empty phone number")
    }
    for _, r := range cleaned {
        if r < '0' || r > '9' {
            return "", fmt.Errorf("invalid phone number %q", raw)
        }
    }
    return "+" + cleaned, nil
}

// Digits returns the number without the leading "+", for comparison against
// columns that store bare digits.
func Digits(p string) string {
    return strings.TrimPrefix(p, "+")
}
