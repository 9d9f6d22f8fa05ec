package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extmarket/modgate/models"
)

func TestSubscriptionOrder(t *testing.T) {
	assert := assert.New(t)

	bus := New()
	var got []string
	bus.SubscribePre(func(d Decision) { got = append(got, "pre-1:"+string(d.Status)) })
	bus.SubscribePre(func(d Decision) { got = append(got, "pre-2:"+string(d.Status)) })
	bus.SubscribePost(func(d Decision) { got = append(got, "post-1:"+string(d.Status)) })

	bus.EmitPre(Decision{SubjectType: "page", Status: models.DecisionApproved})
	bus.EmitPost(Decision{SubjectType: "page", Status: models.DecisionApproved})

	assert.Equal([]string{"pre-1:approved", "pre-2:approved", "post-1:approved"}, got)
}

func TestEmitWithoutSubscribers(t *testing.T) {
	bus := New()
	bus.EmitPre(Decision{SubjectType: "page", Status: models.DecisionRejected})
	bus.EmitPost(Decision{SubjectType: "page", Status: models.DecisionRejected})
}

func TestPostOnlySeesPost(t *testing.T) {
	assert := assert.New(t)

	bus := New()
	var pre, post int
	bus.SubscribePre(func(Decision) { pre++ })
	bus.SubscribePost(func(Decision) { post++ })

	bus.EmitPost(Decision{Status: models.DecisionApproved})
	assert.Equal(0, pre)
	assert.Equal(1, post)
}
