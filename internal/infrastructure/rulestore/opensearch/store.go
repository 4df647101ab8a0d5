// Package opensearch serves tariff heading documents from the OpenSearch
// heading index.  The index carries the full-text side of the nomenclature:
// heading descriptions in both languages plus duty rates.
package opensearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// headingDoc is the index document shape.
type headingDoc struct {
	Code          string `json:"code"`
	Heading       string `json:"heading"`
	Description   string `json:"description"`
	DescriptionKo string `json:"description_ko"`
	DutyRate      string `json:"duty_rate"`
}

// Store queries the heading index.  It intentionally implements only the
// heading part of the rule store surface; chapter notes and sections stay
// relational.
type Store struct {
	client *opensearchapi.Client
	index  string
	logger logging.Logger
}

// NewStore connects to the configured OpenSearch cluster.
func NewStore(cfg config.OpenSearchConfig, log logging.Logger) (*Store, error) {
	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.User,
			Password:  cfg.Password,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeRuleStoreUnavailable, "failed to create opensearch client")
	}
	return &Store{client: client, index: cfg.HeadingIndex, logger: log}, nil
}

// GetHeadingDocs returns up to tariff.MaxHeadingDocs entries whose code
// starts with the four-digit heading, best text match first.
func (s *Store) GetHeadingDocs(ctx context.Context, heading string) ([]tariff.HeadingDoc, error) {
	query := fmt.Sprintf(`{
		"size": %d,
		"query": {"term": {"heading": %q}},
		"sort": [{"code": "asc"}]
	}`, tariff.MaxHeadingDocs, heading)

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.index},
		Body:    strings.NewReader(query),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeRuleStoreQuery, "heading search failed")
	}

	var docs []tariff.HeadingDoc
	for _, hit := range resp.Hits.Hits {
		var src headingDoc
		if err := json.Unmarshal(hit.Source, &src); err != nil {
			s.logger.Warn("skipping malformed heading document",
				logging.String("heading", heading), logging.Err(err))
			continue
		}
		description := src.Description
		if description == "" {
			description = src.DescriptionKo
		}
		docs = append(docs, tariff.HeadingDoc{
			Code:        src.Code,
			Description: description,
			DutyRate:    src.DutyRate,
		})
	}
	return docs, nil
}

// Ping verifies the cluster is reachable, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.Ping(ctx, nil); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeRuleStoreUnavailable, "opensearch ping failed")
	}
	return nil
}
