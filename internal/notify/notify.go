package notify

import "context"

// Channel names shared by the API process and the workers.
const (
	ChannelNewDocument    = "new_document"
	ChannelIngestedDoc    = "ingested_doc"
	ChannelProgressUpdate = "progress_update"
)

// Bus carries small wake-up and progress payloads between processes.
// Subscribers that fall behind lose messages rather than block publishers;
// consumers that need completeness must poll the database as well.
type Bus interface {
	Publish(ctx context.Context, channel string, payload string) error
	// Subscribe returns a channel of payloads and a cancel func. The
	// returned channel is closed after cancel is called or the bus shuts
	// down.
	Subscribe(channel string) (<-chan string, func())
	Close() error
}
