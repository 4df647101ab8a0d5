// Package kafka carries classification work between the API surface and the
// background workers.
package kafka

import (
	"github.com/turtacn/HSCode-Intelligence/internal/domain/product"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
)

// ClassifyMessage is one queued classification request: the declared product
// plus the pre-classification shortlist to run elimination over.
type ClassifyMessage struct {
	RequestID  string                        `json:"request_id"`
	Product    product.RawItem               `json:"product"`
	Candidates []tariff.PreClassifyCandidate `json:"candidates"`
}
