package main

import (
	"context"
	"strings"

	"github.com/extmarket/modgate/moderation"
	"github.com/extmarket/modgate/moderation/schema"
	"github.com/extmarket/modgate/moderation/store"
)

// Listing is the built-in demo subject: a marketplace extension listing
// whose edits go through review before publication.
type Listing struct {
	ID          string         `gorm:"primarykey" moderate:"identity" json:"id"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	HomepageURL string         `moderate:"label=homepage" json:"homepage_url"`
	Category    int            `json:"category"`
	Icon        schema.FileRef `gorm:"serializer:json" moderate:"kind=image" json:"icon"`
	Archive     schema.FileRef `gorm:"serializer:json" json:"archive"`
	Author      schema.Ref     `gorm:"serializer:json" json:"author"`
	Published   bool           `json:"published"`
}

func (l *Listing) SubjectType() string { return "listing" }
func (l *Listing) SubjectID() string   { return l.ID }

var categoryNames = map[int]string{
	0: "uncategorized",
	1: "productivity",
	2: "themes",
	3: "developer tools",
}

func (l *Listing) DisplayValue(field string) (string, bool) {
	if field == "Category" {
		if name, ok := categoryNames[l.Category]; ok {
			return name, true
		}
	}
	return "", false
}

var bannedWords = []string{"spam", "crypto-giveaway", "free money"}

func rejectBannedWords(s schema.Subject, user string) string {
	l, ok := s.(*Listing)
	if !ok {
		return ""
	}
	text := strings.ToLower(l.Title + " " + l.Summary)
	for _, w := range bannedWords {
		if strings.Contains(text, w) {
			return "contains banned word: " + w
		}
	}
	return ""
}

// detectHomepageConflict refuses approval when another listing already
// claims the same homepage URL.
func detectHomepageConflict(stores store.Stores) moderation.ConflictFunc {
	return func(ctx context.Context, s schema.Subject) (string, error) {
		l, ok := s.(*Listing)
		if !ok || l.HomepageURL == "" {
			return "", nil
		}
		recs, err := stores.Records().Queue(ctx, store.QueueQuery{SubjectType: "listing"})
		if err != nil {
			return "", err
		}
		for _, rec := range recs {
			if rec.SubjectID == l.ID {
				continue
			}
			other, err := stores.Subjects().GetByTypeAndID(ctx, "listing", rec.SubjectID)
			if err != nil {
				continue
			}
			if ol, ok := other.(*Listing); ok && ol.HomepageURL == l.HomepageURL {
				return "duplicate homepage URL, already claimed by listing " + ol.ID, nil
			}
		}
		return "", nil
	}
}

func registerListing(types *schema.Types, policies *moderation.Registry, stores store.Stores) {
	types.Register("listing", func() schema.Subject { return &Listing{} })
	policies.Register("listing", &moderation.Moderator{
		// Published is managed by the engine, not reviewed
		FieldsExcluded:   []string{"Published"},
		VisibilityColumn: "Published",
		AutoReject:       rejectBannedWords,
		DetectConflict:   detectHomepageConflict(stores),
	})
}
