package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extmarket/modgate/moderation/schema"
)

type article struct {
	ID         string         `json:"id" moderate:"identity"`
	Title      string         `json:"title"`
	Author     schema.Ref     `json:"author"`
	Attachment schema.FileRef `json:"attachment"`
	Published  bool           `json:"published"`
}

func (a *article) SubjectType() string { return "article" }
func (a *article) SubjectID() string   { return a.ID }

func TestRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	orig := &article{
		ID:         "9",
		Title:      "Hello, world",
		Author:     schema.Ref{Type: "user", ID: "3"},
		Attachment: schema.FileRef{Name: "notes.pdf", URL: "/media/notes.pdf"},
		Published:  true,
	}

	data, err := Marshal(orig)
	require.NoError(err)

	var back article
	require.NoError(Unmarshal(data, &back))
	assert.Equal(*orig, back)
}

func TestUnmarshalMalformed(t *testing.T) {
	var back article
	assert.Error(t, Unmarshal([]byte("{nope"), &back))
}

func TestCloneIsIndependent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	orig := &article{ID: "1", Title: "before"}
	var cp article
	require.NoError(Clone(orig, &cp))

	orig.Title = "after"
	assert.Equal("before", cp.Title)
}
