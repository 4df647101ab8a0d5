// Package product defines the product-side data model consumed by the
// elimination engine.  A ProductInfo is built once per run and never mutated.
package product

import (
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
	"github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// RawItem is the upstream product record as received from correspondence
// extraction.  Fields may be empty; only a description in at least one
// language is required.
type RawItem struct {
	Description      string `json:"description"`
	DescriptionLocal string `json:"description_local"`
	Material         string `json:"material"`
	Form             string `json:"form"`
	IntendedUse      string `json:"intended_use"`
	OriginCountry    string `json:"origin_country"`
	SellerName       string `json:"seller_name"`
}

// Info is the immutable per-run view of a product.  The derived Keywords set
// feeds every scoring stage of the pipeline.
type Info struct {
	Description      string
	DescriptionLocal string
	Material         string
	Form             string
	IntendedUse      string
	OriginCountry    string
	SellerName       string

	// Keywords is the deduplicated bilingual keyword set extracted from the
	// descriptions, material, form and intended-use fields, in first-seen
	// order.
	Keywords []string
}

// NewInfo builds an Info from a raw product record, deriving the keyword set
// with the given tokenizer.  It fails only when both description fields are
// empty, because a product with no describable text cannot be scored.
func NewInfo(raw RawItem, tok *nlp.Tokenizer) (*Info, error) {
	if strings.TrimSpace(raw.Description) == "" && strings.TrimSpace(raw.DescriptionLocal) == "" {
		return nil, errors.New(errors.ErrCodeProductIncomplete, "product description is empty in both languages")
	}

	info := &Info{
		Description:      strings.TrimSpace(raw.Description),
		DescriptionLocal: strings.TrimSpace(raw.DescriptionLocal),
		Material:         strings.TrimSpace(raw.Material),
		Form:             strings.TrimSpace(raw.Form),
		IntendedUse:      strings.TrimSpace(raw.IntendedUse),
		OriginCountry:    strings.TrimSpace(raw.OriginCountry),
		SellerName:       strings.TrimSpace(raw.SellerName),
	}
	info.Keywords = tok.Keywords(
		info.Description,
		info.DescriptionLocal,
		info.Material,
		info.Form,
		info.IntendedUse,
	)
	return info, nil
}

// CompositionText returns the text inspected for percentage figures by the
// "principally" composition test: the material field plus both descriptions.
func (i *Info) CompositionText() string {
	return i.Material + " " + i.Description + " " + i.DescriptionLocal
}
