package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	ID          string  `moderate:"identity"`
	Title       string  `moderate:"label=listing title"`
	HomepageURL string  `json:"homepage_url"`
	Icon        FileRef `moderate:"kind=image"`
	Archive     FileRef
	Author      Ref
	Category    string
	Published   bool
	internal    string `moderate:"label=nope"`
}

func (l *listing) SubjectType() string { return "listing" }
func (l *listing) SubjectID() string   { return l.ID }

func (l *listing) DisplayValue(field string) (string, bool) {
	if field == "Category" {
		return "Productivity", true
	}
	return "", false
}

func TestIntrospect(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fields, err := Introspect(&listing{})
	require.NoError(err)

	byName := map[string]FieldDescriptor{}
	for _, fd := range fields {
		byName[fd.Name] = fd
	}

	assert.Len(fields, 8) // unexported field skipped
	assert.True(byName["ID"].Identity)
	assert.Equal("listing title", byName["Title"].Label)
	assert.Equal("homepage url", byName["HomepageURL"].Label)
	assert.Equal(KindImage, byName["Icon"].Kind)
	assert.Equal(KindFile, byName["Archive"].Kind)
	assert.Equal(KindReference, byName["Author"].Kind)
	assert.Equal(KindText, byName["Category"].Kind)
	assert.Equal(KindText, byName["Published"].Kind)

	// field order follows declaration order
	assert.Equal("ID", fields[0].Name)
	assert.Equal("Title", fields[1].Name)
}

func TestIntrospectRejectsBadKinds(t *testing.T) {
	type bad struct {
		ID   string
		Name string `moderate:"kind=image"`
	}
	_, err := introspectType(reflect.TypeOf(bad{}))
	assert.Error(t, err)
}

func TestValueAndDisplay(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	l := &listing{
		ID:     "42",
		Title:  "My Extension",
		Author: Ref{Type: "user", ID: "7"},
		Icon:   FileRef{Name: "icon.png", URL: "/media/icon.png"},
	}
	fields, err := Introspect(l)
	require.NoError(err)

	for _, fd := range fields {
		switch fd.Name {
		case "Title":
			assert.Equal("My Extension", Value(l, fd))
		case "Author":
			assert.Equal(Ref{Type: "user", ID: "7"}, Value(l, fd))
		case "Icon":
			assert.Equal(FileRef{Name: "icon.png", URL: "/media/icon.png"}, Value(l, fd))
		}
	}

	v, ok := l.DisplayValue("Category")
	assert.True(ok)
	assert.Equal("Productivity", v)
}

func TestSetBool(t *testing.T) {
	assert := assert.New(t)

	l := &listing{}
	assert.NoError(SetBool(l, "Published", true))
	assert.True(l.Published)

	assert.Error(SetBool(l, "Missing", true))
	assert.Error(SetBool(l, "Title", true))
}

func TestTypesRegistry(t *testing.T) {
	assert := assert.New(t)

	types := NewTypes()
	types.Register("listing", func() Subject { return &listing{} })

	s, ok := types.New("listing")
	assert.True(ok)
	assert.IsType(&listing{}, s)

	_, ok = types.New("unknown")
	assert.False(ok)
}

func TestLabelFromName(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("homepage url", labelFromName("HomepageURL"))
	assert.Equal("changed by", labelFromName("ChangedBy"))
	assert.Equal("id", labelFromName("ID"))
	// case boundaries after multi-byte runes
	assert.Equal("café bar", labelFromName("CaféBar"))
	assert.Equal("état final", labelFromName("ÉtatFinal"))
	assert.Equal("àb", labelFromName("ÀB"))
}
