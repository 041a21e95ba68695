package model

import "encoding/json"

const SummaryTypeTLDR = "TLDR"

// Transaction records one summarization attempt against a document, so
// retries stay distinguishable.
type Transaction struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Ctime      int64  `json:"ctime"`
}

type Summary struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Content       json.RawMessage `json:"content"`
	ArtifactURL   string          `json:"artifact_url"`
	TransactionID string          `json:"transaction_id"`
	Ctime         int64           `json:"ctime"`
}

// SummaryContent is the structured JSON produced by the summarizer. Extra
// holds the content-type-specific fields the model emits (topic,
// key_timestamps, product_name, ...).
type SummaryContent struct {
	ContentType string            `json:"content_type"`
	TLDR        string            `json:"tldr"`
	Bullets     []string          `json:"bullets"`
	KeySections []KeySection      `json:"key_sections"`
	Extra       map[string]string `json:"-"`
}

type KeySection struct {
	Heading string `json:"heading"`
	Summary string `json:"summary"`
}
