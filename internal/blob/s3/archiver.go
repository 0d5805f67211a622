package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver.
//
// These follow the Interface Segregation Principle: the archiver only
// requires the query methods it actually calls, not the full domain store
// interfaces.
// ---------------------------------------------------------------------------

// MarketArchiveStore provides read access to resolved markets for archival.
type MarketArchiveStore interface {
	// ListAll returns markets, most recent first, for the archiver to filter
	// by resolution time.
	ListAll(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
}

// WagerArchiveStore provides read access to claimed wagers for archival.
type WagerArchiveStore interface {
	ListByMarket(ctx context.Context, marketKey domain.MarketKey) ([]domain.Wager, error)
}

// ---------------------------------------------------------------------------
// ArchiveImpl
// ---------------------------------------------------------------------------

// ArchiveImpl implements the compliance archiver by querying the durable
// Postgres mirror for terminal markets and their claimed wagers, serializing
// them to JSONL, and uploading the result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer  domain.BlobWriter
	markets MarketArchiveStore
	wagers  WagerArchiveStore
	audit   domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	markets MarketArchiveStore,
	wagers WagerArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:  writer,
		markets: markets,
		wagers:  wagers,
		audit:   audit,
	}
}

// ArchiveMarkets queries all resolved markets with ResolvedAt strictly
// before the cutoff, serializes them to JSONL, and uploads the file to S3
// at archive/markets/YYYY-MM.jsonl. The archival event is recorded in the
// audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveMarkets(ctx context.Context, before time.Time) (int64, error) {
	all, err := a.markets.ListAll(ctx, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive markets query: %w", err)
	}

	cutoff := before.Unix()
	var resolved []domain.Market
	for _, m := range all {
		if m.Status.Terminal() && m.ResolvedAt > 0 && m.ResolvedAt < cutoff {
			resolved = append(resolved, m)
		}
	}
	if len(resolved) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(resolved)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive markets marshal: %w", err)
	}

	path := archivePath("markets", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive markets upload: %w", err)
	}

	count := int64(len(resolved))

	if err := a.audit.Log(ctx, "archive.markets", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive markets audit log: %w", err)
	}

	return count, nil
}

// ArchiveClaims queries every claimed wager belonging to a resolved market
// strictly before the cutoff, serializes them to JSONL, and uploads the file
// to S3 at archive/claims/YYYY-MM.jsonl. The archival event is recorded in
// the audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveClaims(ctx context.Context, before time.Time) (int64, error) {
	all, err := a.markets.ListAll(ctx, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive claims query markets: %w", err)
	}

	cutoff := before.Unix()
	var claimed []domain.Wager
	for _, m := range all {
		if !m.Status.Terminal() || m.ResolvedAt == 0 || m.ResolvedAt >= cutoff {
			continue
		}
		ws, err := a.wagers.ListByMarket(ctx, m.Key)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive claims query wagers for market %s: %w", m.Key, err)
		}
		for _, w := range ws {
			if w.Claimed {
				claimed = append(claimed, w)
			}
		}
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(claimed)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive claims marshal: %w", err)
	}

	path := archivePath("claims", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive claims upload: %w", err)
	}

	count := int64(len(claimed))

	if err := a.audit.Log(ctx, "archive.claims", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive claims audit log: %w", err)
	}

	return count, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/markets/2025-01.jsonl
//	archive/claims/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
