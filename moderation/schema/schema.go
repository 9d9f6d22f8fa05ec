// Package schema describes the moderated shape of application records:
// which fields a subject exposes for diffing, how each one is labeled, and
// how its value should be compared (plain text, reference, file, image).
//
// Subjects are ordinary structs. Fields are discovered by reflection, guided
// by the `moderate` struct tag:
//
//	type Listing struct {
//		ID      string         `moderate:"identity"`
//		Title   string         `moderate:"label=title"`
//		Summary string         // text field, label derived from name
//		Icon    schema.FileRef `moderate:"kind=image,label=icon"`
//		Author  schema.Ref     `moderate:"label=author"`
//		Hidden  string         `moderate:"-"`
//	}
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/puzpuzpuz/xsync/v3"
)

// Subject is a live application record that can be moderated.
type Subject interface {
	SubjectType() string
	SubjectID() string
}

// Displayer lets a subject supply a human-readable value for a field in
// place of the raw stored value (the equivalent of a choice-field display
// label). Returning false falls back to the raw value.
type Displayer interface {
	DisplayValue(field string) (string, bool)
}

// Ref is a weak reference to another record: a type tag plus primary key.
// The referenced record's lifecycle is not owned by the holder.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

func (r Ref) String() string {
	return r.Type + "/" + r.ID
}

// FileRef identifies an uploaded file or image by name and derived URL.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (f FileRef) String() string {
	return f.Name
}

type FieldKind int

const (
	KindText FieldKind = iota
	KindReference
	KindFile
	KindImage
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindReference:
		return "reference"
	case KindFile:
		return "file"
	case KindImage:
		return "image"
	default:
		return "<unknown>"
	}
}

// FieldDescriptor is one moderatable field of a subject type, resolved once
// at introspection time.
type FieldDescriptor struct {
	Name     string
	Label    string
	Kind     FieldKind
	Identity bool

	index []int
}

var (
	refType     = reflect.TypeOf(Ref{})
	fileRefType = reflect.TypeOf(FileRef{})
	fieldCache  = xsync.NewMapOf[reflect.Type, []FieldDescriptor]()
)

// Introspect returns the ordered moderatable fields of a subject's type.
// Results are cached per type.
func Introspect(s Subject) ([]FieldDescriptor, error) {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("subject %s is not a struct", t)
	}
	if fields, ok := fieldCache.Load(t); ok {
		return fields, nil
	}
	fields, err := introspectType(t)
	if err != nil {
		return nil, err
	}
	fieldCache.Store(t, fields)
	return fields, nil
}

func introspectType(t reflect.Type) ([]FieldDescriptor, error) {
	var fields []FieldDescriptor
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("moderate")
		if tag == "-" {
			continue
		}
		fd := FieldDescriptor{
			Name:  sf.Name,
			Label: labelFromName(sf.Name),
			Kind:  kindForType(sf.Type),
			index: sf.Index,
		}
		for _, opt := range strings.Split(tag, ",") {
			opt = strings.TrimSpace(opt)
			switch {
			case opt == "":
			case opt == "identity":
				fd.Identity = true
			case strings.HasPrefix(opt, "label="):
				fd.Label = strings.TrimPrefix(opt, "label=")
			case strings.HasPrefix(opt, "kind="):
				k, err := parseKind(strings.TrimPrefix(opt, "kind="))
				if err != nil {
					return nil, fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
				}
				fd.Kind = k
			default:
				return nil, fmt.Errorf("field %s.%s: unknown moderate tag option %q", t.Name(), sf.Name, opt)
			}
		}
		if (fd.Kind == KindFile || fd.Kind == KindImage) && sf.Type != fileRefType {
			return nil, fmt.Errorf("field %s.%s: kind %s requires schema.FileRef", t.Name(), sf.Name, fd.Kind)
		}
		if fd.Kind == KindReference && sf.Type != refType {
			return nil, fmt.Errorf("field %s.%s: kind reference requires schema.Ref", t.Name(), sf.Name)
		}
		fields = append(fields, fd)
	}
	return fields, nil
}

func parseKind(s string) (FieldKind, error) {
	switch s {
	case "text":
		return KindText, nil
	case "reference":
		return KindReference, nil
	case "file":
		return KindFile, nil
	case "image":
		return KindImage, nil
	default:
		return KindText, fmt.Errorf("unknown field kind %q", s)
	}
}

func kindForType(t reflect.Type) FieldKind {
	switch t {
	case refType:
		return KindReference
	case fileRefType:
		return KindFile
	default:
		return KindText
	}
}

// Value extracts a field's raw value from a subject instance.
func Value(s Subject, fd FieldDescriptor) any {
	v := reflect.ValueOf(s)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v.FieldByIndex(fd.index).Interface()
}

// SetBool flips a named boolean field on a subject, used for policies whose
// subjects carry their own publish flag.
func SetBool(s Subject, field string, val bool) error {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Pointer {
		return fmt.Errorf("subject %T must be a pointer to set fields", s)
	}
	fv := v.Elem().FieldByName(field)
	if !fv.IsValid() {
		return fmt.Errorf("subject %T has no field %q", s, field)
	}
	if fv.Kind() != reflect.Bool {
		return fmt.Errorf("field %s.%s is not a bool", v.Elem().Type().Name(), field)
	}
	fv.SetBool(val)
	return nil
}

func labelFromName(name string) string {
	var b strings.Builder
	var prev rune
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(prev) {
			b.WriteByte(' ')
		}
		prev = r
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
