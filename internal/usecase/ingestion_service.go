package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/statfuse/statfuse/internal/domain/provenance"
	"github.com/statfuse/statfuse/internal/domain/rawrecord"
	"github.com/statfuse/statfuse/internal/domain/sport"
	"github.com/statfuse/statfuse/internal/merger"
	"github.com/statfuse/statfuse/internal/platform/logging"
	"github.com/statfuse/statfuse/internal/resolver"
	"github.com/statfuse/statfuse/internal/transform"
)

// RunSummary tallies what one ingestion run did. Each record lands in
// exactly one of the outcome buckets; Ambiguous counts resolutions on
// top of that, since an ambiguous record still produces an outcome.
type RunSummary struct {
	Provider   string
	Sport      sport.Sport
	Inserted   int
	Updated    int
	Skipped    int
	Ambiguous  int
	Conflicts  int
	Errors     int
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s RunSummary) Total() int {
	return s.Inserted + s.Updated + s.Skipped + s.Conflicts + s.Errors
}

// IngestionService drives one provider batch through transform,
// resolution and merge. Records are processed sequentially and
// independently: a malformed record is counted and skipped, a storage
// failure aborts the run.
type IngestionService struct {
	registry *transform.Registry
	resolver *resolver.Resolver
	merger   *merger.Merger
	provRepo provenance.Repository
	archive  rawrecord.ArchiveRepository
	logger   *logging.Logger
}

func NewIngestionService(
	registry *transform.Registry,
	res *resolver.Resolver,
	merge *merger.Merger,
	provRepo provenance.Repository,
	archive rawrecord.ArchiveRepository,
	logger *logging.Logger,
) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		registry: registry,
		resolver: res,
		merger:   merge,
		provRepo: provRepo,
		archive:  archive,
		logger:   logger,
	}
}

// Run ingests one batch from one provider for one sport. The returned
// summary is valid even when the error is non-nil; it covers the
// records processed before the failure.
func (s *IngestionService) Run(ctx context.Context, provider string, sp sport.Sport, batch []rawrecord.Record) (RunSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Run")
	defer span.End()

	summary := RunSummary{Provider: provider, Sport: sp, StartedAt: time.Now().UTC()}

	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return summary, fmt.Errorf("%w: provider is required", ErrInvalidInput)
	}
	summary.Provider = provider
	if err := sp.Validate(); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	tr, ok := s.registry.Get(provider)
	if !ok {
		return summary, fmt.Errorf("%w: no transformer registered for provider %q", ErrInvalidInput, provider)
	}

	for idx, raw := range batch {
		if err := ctx.Err(); err != nil {
			s.finishRun(ctx, &summary)
			return summary, fmt.Errorf("ingestion run interrupted at record %d: %w", idx, err)
		}

		raw.Provider = provider
		if raw.Sport == "" {
			raw.Sport = sp
		}

		canonical, err := tr.Transform(raw)
		if err != nil {
			if transform.IsTransformError(err) {
				summary.Errors++
				s.logger.WarnContext(ctx, "skipping malformed record",
					"provider", provider, "kind", raw.Kind, "record", idx, "error", err)
				continue
			}
			s.finishRun(ctx, &summary)
			return summary, fmt.Errorf("transform record %d: %w", idx, err)
		}

		s.archivePayload(ctx, raw, canonical)

		outcome, ambiguous, err := s.ingestRecord(ctx, sp, canonical)
		if err != nil {
			s.finishRun(ctx, &summary)
			return summary, fmt.Errorf("ingest record %d: %w", idx, err)
		}
		summary.Ambiguous += ambiguous
		s.tally(&summary, outcome)
	}

	s.finishRun(ctx, &summary)
	s.logger.InfoContext(ctx, "ingestion run finished",
		"provider", provider,
		"sport", sp.String(),
		"records", len(batch),
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"ambiguous", summary.Ambiguous,
		"conflicts", summary.Conflicts,
		"errors", summary.Errors,
	)
	return summary, nil
}

// ingestRecord resolves every identity the record mentions, then hands
// the payload to the merger. It returns the record's single outcome and
// how many resolutions were ambiguous along the way.
func (s *IngestionService) ingestRecord(ctx context.Context, sp sport.Sport, rec transform.CanonicalRecord) (merger.Outcome, int, error) {
	ambiguous := 0

	home, homeRes, err := s.resolver.ResolveTeam(ctx, rec.HomeTeamName, sp)
	if err != nil {
		return merger.OutcomeSkipped, ambiguous, err
	}
	if homeRes.Ambiguous {
		ambiguous++
	}
	away, awayRes, err := s.resolver.ResolveTeam(ctx, rec.AwayTeamName, sp)
	if err != nil {
		return merger.OutcomeSkipped, ambiguous, err
	}
	if awayRes.Ambiguous {
		ambiguous++
	}

	ev, eventRes, err := s.resolver.ResolveEvent(ctx, resolver.EventSighting{
		Provider:    rec.Provider,
		ExternalID:  rec.ExternalEventID,
		HomeTeamID:  home.ID,
		AwayTeamID:  away.ID,
		ScheduledAt: rec.ScheduledAt,
	}, sp)
	if err != nil {
		return merger.OutcomeSkipped, ambiguous, err
	}
	if eventRes.Ambiguous {
		ambiguous++
	}

	switch rec.Kind {
	case rawrecord.KindSchedule:
		if eventRes.Created {
			return merger.OutcomeInserted, ambiguous, nil
		}
		if eventRes.Fused {
			return merger.OutcomeUpdated, ambiguous, nil
		}
		return merger.OutcomeSkipped, ambiguous, nil

	case rawrecord.KindResult:
		outcome, err := s.merger.MergeEvent(ctx, sp, ev.ID, *rec.HomeScore, *rec.AwayScore, rec.Provider)
		return outcome, ambiguous, err

	case rawrecord.KindBoxScore:
		teamID := ""
		if rec.PlayerTeamName != "" {
			playerTeam, teamRes, err := s.resolver.ResolveTeam(ctx, rec.PlayerTeamName, sp)
			if err != nil {
				return merger.OutcomeSkipped, ambiguous, err
			}
			if teamRes.Ambiguous {
				ambiguous++
			}
			teamID = playerTeam.ID
		}

		p, playerRes, err := s.resolver.ResolvePlayer(ctx, resolver.PlayerSighting{
			Provider: rec.Provider,
			Name:     rec.PlayerName,
			NativeID: rec.PlayerNativeID,
			TeamID:   teamID,
			Position: rec.PlayerPosition,
		}, sp)
		if err != nil {
			return merger.OutcomeSkipped, ambiguous, err
		}
		if playerRes.Ambiguous {
			ambiguous++
		}

		outcome, err := s.merger.MergeGameStat(ctx, sp, ev.ID, p.ID, rec.Stats, rec.Provider)
		return outcome, ambiguous, err

	default:
		return merger.OutcomeSkipped, ambiguous, fmt.Errorf("%w: unknown record kind %q", ErrInvalidInput, rec.Kind)
	}
}

// archivePayload keeps the provider's record as it arrived, for audit
// and replay. Best effort: an archive failure never fails the record.
func (s *IngestionService) archivePayload(ctx context.Context, raw rawrecord.Record, canonical transform.CanonicalRecord) {
	if s.archive == nil {
		return
	}

	payload, err := sonic.MarshalString(raw.Fields)
	if err != nil {
		s.logger.WarnContext(ctx, "encode raw payload", "provider", raw.Provider, "error", err)
		return
	}
	hash := sha256.Sum256([]byte(payload))

	entityKey := canonical.ExternalEventID
	if canonical.Kind == rawrecord.KindBoxScore && canonical.PlayerNativeID != "" {
		entityKey += "/" + canonical.PlayerNativeID
	}

	item := rawrecord.ArchivedPayload{
		Provider:    raw.Provider,
		Sport:       canonical.Sport,
		Kind:        canonical.Kind,
		EntityKey:   entityKey,
		PayloadJSON: payload,
		PayloadHash: hex.EncodeToString(hash[:]),
		ReceivedAt:  time.Now().UTC(),
	}
	if err := s.archive.UpsertMany(ctx, []rawrecord.ArchivedPayload{item}); err != nil {
		s.logger.WarnContext(ctx, "archive raw payload", "provider", raw.Provider, "entity_key", entityKey, "error", err)
	}
}

func (s *IngestionService) tally(summary *RunSummary, outcome merger.Outcome) {
	switch outcome {
	case merger.OutcomeInserted:
		summary.Inserted++
	case merger.OutcomeUpdated:
		summary.Updated++
	case merger.OutcomeConflict:
		summary.Conflicts++
	default:
		summary.Skipped++
	}
}

func (s *IngestionService) finishRun(ctx context.Context, summary *RunSummary) {
	summary.FinishedAt = time.Now().UTC()
	if s.provRepo == nil {
		return
	}
	run := provenance.RunRecord{
		Provider:   summary.Provider,
		Sport:      summary.Sport,
		Inserted:   summary.Inserted,
		Updated:    summary.Updated,
		Skipped:    summary.Skipped,
		Ambiguous:  summary.Ambiguous,
		Conflicts:  summary.Conflicts,
		Errors:     summary.Errors,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}
	if err := s.provRepo.RecordRun(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "record ingestion run", "error", err)
	}
}
