package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"offerdesk/internal/model"
	"offerdesk/internal/pkg/filename"
	"offerdesk/internal/platform/logger"
	"offerdesk/internal/repository"
)

type ShareService struct {
	shares      *repository.ShareReferenceRepository
	collections *repository.CollectionRepository
	documents   *repository.DocumentRepository
	log         *logger.Logger
}

func NewShareService(
	shares *repository.ShareReferenceRepository,
	collections *repository.CollectionRepository,
	documents *repository.DocumentRepository,
	log *logger.Logger,
) *ShareService {
	if log == nil {
		log = logger.Nop()
	}
	return &ShareService{
		shares:      shares,
		collections: collections,
		documents:   documents,
		log:         log.With("service", "ShareService"),
	}
}

// CreateShareInput needs a collection token, document references, or both.
type CreateShareInput struct {
	OrgID           uint
	UserID          uint
	CollectionToken string
	Documents       []model.DocumentRef
}

func (s *ShareService) Create(ctx context.Context, input CreateShareInput) (*model.ShareReference, error) {
	if input.OrgID == 0 {
		return nil, ErrInvalidInput
	}
	token := strings.TrimSpace(input.CollectionToken)
	refs := cleanRefs(input.Documents)
	if token == "" && len(refs) == 0 {
		return nil, fmt.Errorf("%w: a collection token or document references are required", ErrInvalidInput)
	}
	if token != "" {
		if _, err := findCollection(ctx, s.collections, token, input.OrgID); err != nil {
			return nil, err
		}
	}

	share := &model.ShareReference{
		Token:           uuid.NewString(),
		OrgID:           input.OrgID,
		CollectionToken: token,
		CreatedBy:       input.UserID,
	}
	share.SetRefs(refs)
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

func cleanRefs(refs []model.DocumentRef) []model.DocumentRef {
	out := make([]model.DocumentRef, 0, len(refs))
	for _, r := range refs {
		r.Filename = strings.TrimSpace(r.Filename)
		if r.ID == 0 && r.Filename == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// InferCollection finds the organization's collection holding the most of the
// referenced documents. Filenames are compared after filename.Normalize, the
// same transform applied on upload. A tie for the maximum is an
// *AmbiguousError; no match at all is ErrNotFound.
func (s *ShareService) InferCollection(ctx context.Context, refs []model.DocumentRef, orgID uint) (string, error) {
	if orgID == 0 {
		return "", ErrInvalidInput
	}

	nameSet := make(map[string]bool)
	idSet := make(map[uint]bool)
	for _, r := range cleanRefs(refs) {
		if r.Filename != "" {
			nameSet[filename.Normalize(r.Filename)] = true
		}
		if r.ID != 0 {
			idSet[r.ID] = true
		}
	}
	if len(nameSet) == 0 && len(idSet) == 0 {
		return "", fmt.Errorf("%w: no document references", ErrInvalidInput)
	}

	names := make([]string, 0, len(nameSet))
	for n := range nameSet {
		names = append(names, n)
	}
	sort.Strings(names)
	ids := make([]uint, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	matches, err := s.documents.CountMatchesByCollection(ctx, orgID, names, ids)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no collection contains the referenced documents", ErrNotFound)
	}

	best := matches[0].Matches
	tied := []string{matches[0].Token}
	for _, m := range matches[1:] {
		if m.Matches != best {
			break
		}
		tied = append(tied, m.Token)
	}
	if len(tied) > 1 {
		return "", &AmbiguousError{Tokens: tied, Matches: best}
	}
	return tied[0], nil
}

type ResolvedShare struct {
	Share      *model.ShareReference
	Collection *model.Collection
}

// Resolve maps a public share token to its collection. A share created from
// document references is resolved by inference once; the token found is
// stored on the share so later calls take the direct path.
func (s *ShareService) Resolve(ctx context.Context, shareToken string) (*ResolvedShare, error) {
	shareToken = strings.TrimSpace(shareToken)
	if shareToken == "" {
		return nil, ErrInvalidInput
	}
	share, err := s.shares.GetByToken(ctx, shareToken)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, fmt.Errorf("%w: share", ErrNotFound)
	}

	if share.CollectionToken == "" {
		inferred, err := s.InferCollection(ctx, share.Refs(), share.OrgID)
		if err != nil {
			return nil, err
		}
		written, err := s.shares.CacheCollectionToken(ctx, share.ID, inferred)
		if err != nil {
			return nil, err
		}
		if written {
			share.CollectionToken = inferred
			s.log.Info("share collection inferred", "share_id", share.ID, "collection_token", inferred)
		} else {
			// another request resolved it first
			share, err = s.shares.GetByToken(ctx, shareToken)
			if err != nil {
				return nil, err
			}
			if share == nil {
				return nil, fmt.Errorf("%w: share", ErrNotFound)
			}
		}
	}

	collection, err := findCollection(ctx, s.collections, share.CollectionToken, share.OrgID)
	if err != nil {
		return nil, err
	}
	return &ResolvedShare{Share: share, Collection: collection}, nil
}
