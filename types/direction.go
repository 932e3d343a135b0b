// Package types defines the core domain types shared by the commtrans client.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"strings"
)

// Direction is a translation direction understood by the translation service.
type Direction string

// Direction constants. Values match the service's wire format.
const (
	// DirectionProductToDev translates product requirements into technical language.
	DirectionProductToDev Direction = "product_to_dev"
	// DirectionDevToProduct translates technical plans into business language.
	DirectionDevToProduct Direction = "dev_to_product"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionProductToDev || d == DirectionDevToProduct
}

// Label returns a human-readable label for the direction.
func (d Direction) Label() string {
	switch d {
	case DirectionProductToDev:
		return "Product requirement → Technical language"
	case DirectionDevToProduct:
		return "Technical plan → Business language"
	default:
		return string(d)
	}
}

// Mode is the direction selection made by the user.
// Exactly one of an explicit direction or auto-detection is in effect.
type Mode string

// Mode constants.
const (
	ModeAuto         Mode = "auto"
	ModeProductToDev Mode = Mode(DirectionProductToDev)
	ModeDevToProduct Mode = Mode(DirectionDevToProduct)
)

// modeCycle is the order ChangeDirection steps through.
var modeCycle = []Mode{ModeAuto, ModeProductToDev, ModeDevToProduct}

// ParseMode parses a direction selection. Empty input selects auto-detection.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeProductToDev:
		return ModeProductToDev, nil
	case ModeDevToProduct:
		return ModeDevToProduct, nil
	default:
		return "", fmt.Errorf("invalid direction: %q (must be auto, product_to_dev, or dev_to_product)", s)
	}
}

// IsAuto reports whether the server should detect the direction.
func (m Mode) IsAuto() bool {
	return m == ModeAuto
}

// Direction returns the explicit direction, or nil in auto mode.
func (m Mode) Direction() *Direction {
	if m.IsAuto() {
		return nil
	}
	d := Direction(m)
	return &d
}

// Next returns the mode that follows m in the selection cycle.
func (m Mode) Next() Mode {
	for i, candidate := range modeCycle {
		if candidate == m {
			return modeCycle[(i+1)%len(modeCycle)]
		}
	}
	return ModeAuto
}

// Label returns a short label for selectors.
func (m Mode) Label() string {
	if m.IsAuto() {
		return "Auto-detect"
	}
	return Direction(m).Label()
}

// Placeholder returns the input hint shown for the mode.
func (m Mode) Placeholder() string {
	switch m {
	case ModeProductToDev:
		return fmt.Sprintf("Describe the product requirement (%d-%d characters)...", ContentMinLength, ContentMaxLength)
	case ModeDevToProduct:
		return fmt.Sprintf("Describe the technical plan (%d-%d characters)...", ContentMinLength, ContentMaxLength)
	default:
		return fmt.Sprintf("Enter any content, the type is detected automatically (%d-%d characters)...", ContentMinLength, ContentMaxLength)
	}
}
