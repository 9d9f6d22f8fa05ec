// Package diff computes field-by-field structured comparisons between two
// versions of a subject, producing typed change descriptors for review
// rendering. Descriptors are ephemeral: computed on demand, never persisted.
package diff

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/extmarket/modgate/moderation/labelcache"
	"github.com/extmarket/modgate/moderation/schema"
)

// Link is a resolved rendering target: display text plus an optional URL.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// RefResolverFunc resolves a reference to a display link for the referenced
// record. Registered per subject type on the Differ.
type RefResolverFunc func(ctx context.Context, ref schema.Ref) (Link, error)

// Change describes how one field differs between two versions of a subject.
type Change struct {
	FieldName  string           `json:"field_name"`
	FieldLabel string           `json:"field_label"`
	Kind       schema.FieldKind `json:"kind"`

	Old any `json:"old"`
	New any `json:"new"`

	// TextOps is set for text fields whose values differ.
	TextOps []TextOp `json:"text_ops,omitempty"`
	// OldLink and NewLink are set for reference, file and image fields.
	OldLink *Link `json:"old_link,omitempty"`
	NewLink *Link `json:"new_link,omitempty"`
}

// Changed reports whether the two sides of the descriptor differ.
func (c *Change) Changed() bool {
	return compareKey(c.Kind, c.Old) != compareKey(c.Kind, c.New)
}

func compareKey(kind schema.FieldKind, v any) string {
	switch kind {
	case schema.KindReference:
		if r, ok := v.(schema.Ref); ok {
			return r.String()
		}
	case schema.KindFile, schema.KindImage:
		if f, ok := v.(schema.FileRef); ok {
			return f.URL
		}
	}
	return fmt.Sprint(v)
}

// Differ computes change sets. Safe for concurrent use once resolvers are
// registered.
type Differ struct {
	Logger    *slog.Logger
	Labels    labelcache.Store
	resolvers *xsync.MapOf[string, RefResolverFunc]
}

func NewDiffer(logger *slog.Logger) *Differ {
	if logger == nil {
		logger = slog.Default()
	}
	return &Differ{
		Logger:    logger,
		resolvers: xsync.NewMapOf[string, RefResolverFunc](),
	}
}

// RegisterResolver installs the display-link resolver for references to the
// named subject type.
func (d *Differ) RegisterResolver(subjectType string, fn RefResolverFunc) {
	d.resolvers.Store(subjectType, fn)
}

// Changes compares two versions of a subject field by field, skipping
// identity fields and any name in excluded. Both versions must share a type.
func (d *Differ) Changes(ctx context.Context, old, new schema.Subject, excluded []string) (map[string]*Change, error) {
	if old.SubjectType() != new.SubjectType() {
		return nil, fmt.Errorf("cannot diff %s against %s", old.SubjectType(), new.SubjectType())
	}
	fields, err := schema.Introspect(old)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	changes := make(map[string]*Change)
	for _, fd := range fields {
		if fd.Identity || skip[fd.Name] {
			continue
		}
		changes[fd.Name] = d.fieldChange(ctx, old, new, fd)
	}
	return changes, nil
}

// Changed reports whether at least one non-excluded field differs between
// the two versions.
func (d *Differ) Changed(ctx context.Context, old, new schema.Subject, excluded []string) (bool, error) {
	changes, err := d.Changes(ctx, old, new, excluded)
	if err != nil {
		return false, err
	}
	for _, c := range changes {
		if c.Changed() {
			return true, nil
		}
	}
	return false, nil
}

func (d *Differ) fieldChange(ctx context.Context, old, new schema.Subject, fd schema.FieldDescriptor) *Change {
	oldVal := schema.Value(old, fd)
	newVal := schema.Value(new, fd)
	ch := &Change{
		FieldName:  fd.Name,
		FieldLabel: fd.Label,
		Kind:       fd.Kind,
		Old:        oldVal,
		New:        newVal,
	}

	switch fd.Kind {
	case schema.KindReference:
		oldRef, _ := oldVal.(schema.Ref)
		newRef, _ := newVal.(schema.Ref)
		ch.OldLink = d.resolveRef(ctx, oldRef)
		if newRef == oldRef {
			ch.NewLink = ch.OldLink
		} else {
			ch.NewLink = d.resolveRef(ctx, newRef)
		}
	case schema.KindFile, schema.KindImage:
		oldFile, _ := oldVal.(schema.FileRef)
		newFile, _ := newVal.(schema.FileRef)
		ch.OldLink = &Link{Text: oldFile.Name, URL: oldFile.URL}
		ch.NewLink = &Link{Text: newFile.Name, URL: newFile.URL}
	default:
		oldText := displayString(old, fd, oldVal)
		newText := displayString(new, fd, newVal)
		ch.Old = oldText
		ch.New = newText
		if oldText != newText {
			ch.TextOps = WordDiff(oldText, newText)
		}
	}
	return ch
}

// displayString prefers a subject-supplied display value (choice labels and
// the like) over the raw field value.
func displayString(s schema.Subject, fd schema.FieldDescriptor, raw any) string {
	if disp, ok := s.(schema.Displayer); ok {
		if v, ok := disp.DisplayValue(fd.Name); ok {
			return v
		}
	}
	return fmt.Sprint(raw)
}

// resolveRef turns a reference into a display link, consulting the label
// cache first. A dangling or unresolvable reference degrades to the bare
// "type/id" text with no URL; it never fails the diff.
func (d *Differ) resolveRef(ctx context.Context, ref schema.Ref) *Link {
	if ref.IsZero() {
		return &Link{}
	}
	if d.Labels != nil {
		if cached, err := d.Labels.Get(ctx, ref.Type, ref.ID); err != nil {
			d.Logger.Warn("label cache read failed", "ref", ref, "err", err)
		} else if cached != "" {
			var link Link
			if err := json.Unmarshal([]byte(cached), &link); err == nil {
				return &link
			}
		}
	}
	fn, ok := d.resolvers.Load(ref.Type)
	if !ok {
		refResolutionWarnings.WithLabelValues(ref.Type).Inc()
		return &Link{Text: ref.String()}
	}
	link, err := fn(ctx, ref)
	if err != nil {
		refResolutionWarnings.WithLabelValues(ref.Type).Inc()
		d.Logger.Warn("reference resolution failed", "ref", ref, "err", err)
		return &Link{Text: ref.String()}
	}
	if d.Labels != nil {
		enc, err := json.Marshal(link)
		if err == nil {
			err = d.Labels.Set(ctx, ref.Type, ref.ID, string(enc))
		}
		if err != nil {
			d.Logger.Warn("label cache write failed", "ref", ref, "err", err)
		}
	}
	return &link
}
