package corpus

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/cfirst/finbot/engine/domain"
	"github.com/cfirst/finbot/pkg/natsutil"
)

// EntriesSubject is the NATS subject for live corpus additions.
const EntriesSubject = "finbot.corpus.entries"

// StartConsumer subscribes to live corpus entries and indexes each one as
// it arrives. Indexing failures are logged, not retried; the publisher can
// resend since point ids are deterministic.
func StartConsumer(nc *nats.Conn, loader *Loader, logger *slog.Logger) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return natsutil.Subscribe(nc, EntriesSubject, func(ctx context.Context, e domain.CorpusEntry) {
		n, err := loader.IndexEntry(ctx, e)
		if err != nil {
			logger.Error("corpus: live entry failed", "entry_id", e.ID, "error", err)
			return
		}
		logger.Info("corpus: live entry indexed", "entry_id", e.ID, "vectors", n)
	})
}
