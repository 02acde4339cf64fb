// Package services – SelectorService
//
// This file implements the due-item selector that decides which passage a
// learner sees next. In spaced mode, due reviews strictly dominate new
// material; in linear mode only never-attempted passages are offered.
package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Mts-Potter/literary-forge/internal/domain"
	"github.com/Mts-Potter/literary-forge/internal/repo"
	"github.com/Mts-Potter/literary-forge/internal/srs"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SelectionKind classifies a selector result.
type SelectionKind string

const (
	SelectionDue          SelectionKind = "due"
	SelectionNew          SelectionKind = "new"
	SelectionCaughtUp     SelectionKind = "caught_up"
	SelectionAllAttempted SelectionKind = "all_attempted"
	SelectionExhausted    SelectionKind = "exhausted"
)

// Terminal reports whether no item accompanies the selection.
func (k SelectionKind) Terminal() bool {
	return k != SelectionDue && k != SelectionNew
}

// NextQuery narrows a selection.
type NextQuery struct {
	ExcludeIDs []string // items already shown in this session
	Collection string   // restrict to one source work; empty means all
}

// Selection is the selector's answer. Item and Card are nil for terminal
// kinds. For new items Card is srs.NewCard() with a nil due date.
type Selection struct {
	Kind SelectionKind `json:"status"`
	Mode string        `json:"mode"`
	Item *domain.Item  `json:"item,omitempty"`
	Card *srs.Card     `json:"card,omitempty"`
}

// SelectorService picks the next item for a learner.
type SelectorService struct {
	DB *gorm.DB

	// DueBatch bounds the due-card query; NewWindow bounds the pool of
	// never-attempted items a new item is drawn from.
	DueBatch  int
	NewWindow int

	Now  func() time.Time
	Pick func(n int) int // uniform in [0,n)
}

// NewSelectorService constructs a SelectorService with default batch sizes.
func NewSelectorService(db *gorm.DB) *SelectorService {
	return &SelectorService{
		DB:        db,
		DueBatch:  10,
		NewWindow: 20,
		Now:       time.Now,
		Pick:      rand.Intn,
	}
}

// Next returns the item the user should study now.
func (s *SelectorService) Next(ctx context.Context, userID string, q NextQuery) (*Selection, error) {
	tr := otel.Tracer("services/SelectorService")
	ctx, span := tr.Start(ctx, "Next",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("collection", q.Collection),
			attribute.Int("exclude.count", len(q.ExcludeIDs)),
		),
	)
	defer span.End()

	q.ExcludeIDs = cleanIDs(q.ExcludeIDs)

	settings, err := repo.GetSettings(ctx, s.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load settings: %v", ErrPersistence, err)
	}

	var sel *Selection
	if settings.Mode == domain.ModeLinear {
		sel, err = s.nextLinear(ctx, userID, q)
	} else {
		sel, err = s.nextSpaced(ctx, userID, q)
	}
	if err != nil {
		return nil, err
	}
	sel.Mode = settings.Mode

	span.SetAttributes(attribute.String("selection.kind", string(sel.Kind)))
	selectionsTotal.WithLabelValues(string(sel.Kind)).Inc()
	return sel, nil
}

func (s *SelectorService) nextSpaced(ctx context.Context, userID string, q NextQuery) (*Selection, error) {
	cards, err := repo.GetDueCards(ctx, s.DB, repo.DueQuery{
		UserID:     userID,
		Now:        s.now(),
		Limit:      s.dueBatch(),
		ExcludeIDs: q.ExcludeIDs,
		Collection: q.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: due cards: %v", ErrPersistence, err)
	}

	if len(cards) > 0 {
		ids := make([]string, 0, len(cards))
		for _, c := range cards {
			ids = append(ids, c.ItemID)
		}
		items, err := repo.GetItemsByIDs(ctx, s.DB, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: due items: %v", ErrPersistence, err)
		}
		// Cards are ordered by due date; the first with a live item wins.
		for _, c := range cards {
			it, ok := items[c.ItemID]
			if !ok {
				continue
			}
			sc := c.SRS()
			return &Selection{Kind: SelectionDue, Item: &it, Card: &sc}, nil
		}
	}

	sel, err := s.pickNew(ctx, userID, q)
	if err != nil || sel != nil {
		return sel, err
	}
	return s.terminal(ctx, q, SelectionCaughtUp)
}

func (s *SelectorService) nextLinear(ctx context.Context, userID string, q NextQuery) (*Selection, error) {
	sel, err := s.pickNew(ctx, userID, q)
	if err != nil || sel != nil {
		return sel, err
	}
	return s.terminal(ctx, q, SelectionAllAttempted)
}

// pickNew draws uniformly from a window of never-attempted items. It returns
// (nil, nil) when there are none.
func (s *SelectorService) pickNew(ctx context.Context, userID string, q NextQuery) (*Selection, error) {
	items, err := repo.ListUnattemptedItems(ctx, s.DB, repo.ItemQuery{
		UserID:     userID,
		Collection: q.Collection,
		ExcludeIDs: q.ExcludeIDs,
		Limit:      s.newWindow(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: new items: %v", ErrPersistence, err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	it := items[s.pick(len(items))]
	card := srs.NewCard()
	return &Selection{Kind: SelectionNew, Item: &it, Card: &card}, nil
}

// terminal distinguishes an empty library (for the filter) from one the
// user has worked through.
func (s *SelectorService) terminal(ctx context.Context, q NextQuery, nonEmpty SelectionKind) (*Selection, error) {
	n, err := repo.CountItems(ctx, s.DB, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("%w: count items: %v", ErrPersistence, err)
	}
	if n == 0 {
		return &Selection{Kind: SelectionExhausted}, nil
	}
	return &Selection{Kind: nonEmpty}, nil
}

func (s *SelectorService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SelectorService) pick(n int) int {
	if s.Pick == nil || n <= 1 {
		return 0
	}
	i := s.Pick(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

func (s *SelectorService) dueBatch() int {
	if s.DueBatch > 0 {
		return s.DueBatch
	}
	return 10
}

func (s *SelectorService) newWindow() int {
	if s.NewWindow > 0 {
		return s.NewWindow
	}
	return 20
}

// cleanIDs trims and drops empty ids.
func cleanIDs(ids []string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
