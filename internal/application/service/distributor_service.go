package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

// DistributorService implements the Distributor (C7): shuffles a campaign's
// placeholder assignments and packs them deterministically into N queues of
// M slots. Grounded on spec.md §4.7; the Fisher-Yates shuffle uses
// crypto/rand rather than math/rand since the teacher's stack has no
// existing math/rand usage to imitate and a cryptographically sound shuffle
// is the safer default for a distribution an operator's workload depends on.
type DistributorService struct {
	campaigns   repository.CampaignRepository
	assignments repository.AssignmentRepository
	resolver    *QueueCountResolver
	logger      domainservice.Logger
}

func NewDistributorService(
	campaigns repository.CampaignRepository,
	assignments repository.AssignmentRepository,
	resolver *QueueCountResolver,
	logger domainservice.Logger,
) *DistributorService {
	return &DistributorService{campaigns: campaigns, assignments: assignments, resolver: resolver, logger: logger}
}

// DistributeResult is the Distribute output shape. TablesUsed resolves
// spec.md §9's open question as tables_used = q_last, the largest queue
// index at which any slot was filled.
type DistributeResult struct {
	TablesUsed       int
	TotalDistributed int
}

// Distribute runs the shuffle-then-pack algorithm from spec.md §4.7.
func (s *DistributorService) Distribute(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID, profilesPerQueue int) (*DistributeResult, error) {
	campaign, err := s.campaigns.GetByID(ctx, tenantID, campaignID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "CampaignLookupFailed", "failed to load campaign", err)
	}
	if campaign == nil {
		return nil, domainerrors.ErrCampaignNotFound
	}
	if campaign.DistributedAt != nil {
		return nil, domainerrors.ErrAlreadyDistributed
	}
	if profilesPerQueue <= 0 {
		profilesPerQueue = DefaultProfilesPerQueue
	}

	n, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "QueueCountResolveFailed", "failed to resolve queue count", err)
	}

	placeholders, err := s.assignments.PlaceholdersForCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "PlaceholderFetchFailed", "failed to fetch placeholder assignments", err)
	}

	shuffled, err := fisherYatesShuffle(placeholders)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindFatal, "ShuffleFailed", "failed to generate shuffle entropy", err)
	}

	queueIndex, position := 1, 1
	packed := 0
	now := time.Now().UTC()
	for _, a := range shuffled {
		if queueIndex > n {
			break // overflow remains at queue_index=0, per spec.md §4.7 post-condition
		}
		a.QueueIndex = queueIndex
		a.Position = position
		a.UpdatedAt = now
		if err := s.assignments.UpdateSlot(ctx, a); err != nil {
			s.logger.Error("failed to persist packed assignment slot", "tenant_id", tenantID, "assignment_id", a.AssignmentID, "error", err)
			continue
		}
		packed++

		position++
		if position > profilesPerQueue {
			position = 1
			queueIndex++
		}
	}

	tablesUsed := 0
	if packed > 0 {
		tablesUsed = queueIndex
		if position == 1 {
			// The last row filled landed exactly on a queue boundary; the
			// roll-over already advanced queueIndex past q_last.
			tablesUsed--
		}
	}

	if err := s.campaigns.SetDistributed(ctx, tenantID, campaignID, now); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "CampaignUpdateFailed", "failed to mark campaign distributed", err)
	}

	return &DistributeResult{TablesUsed: tablesUsed, TotalDistributed: packed}, nil
}

// fisherYatesShuffle returns a new slice containing a uniformly random
// permutation of items, using crypto/rand for the random index draws.
func fisherYatesShuffle(items []*entity.Assignment) ([]*entity.Assignment, error) {
	out := make([]*entity.Assignment, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j, err := cryptoRandIntn(i + 1)
		if err != nil {
			return nil, err
		}
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func cryptoRandIntn(n int) (int, error) {
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
