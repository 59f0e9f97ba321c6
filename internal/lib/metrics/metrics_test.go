package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordWebhookEvent(t *testing.T) {
	before := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("checkout.session.completed", ResultOK))
	RecordWebhookEvent("checkout.session.completed", ResultOK)
	after := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("checkout.session.completed", ResultOK))
	assert.Equal(t, before+1, after)
}

func TestRecordPushDelivery(t *testing.T) {
	before := testutil.ToFloat64(PushDeliveriesTotal.WithLabelValues("affirmation", ResultInvalid))
	RecordPushDelivery("affirmation", ResultInvalid)
	assert.Equal(t, before+1, testutil.ToFloat64(PushDeliveriesTotal.WithLabelValues("affirmation", ResultInvalid)))
}

func TestRecordBroadcastTick(t *testing.T) {
	before := testutil.ToFloat64(BroadcastTicksTotal.WithLabelValues("skipped"))
	RecordBroadcastTick("skipped", time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(BroadcastTicksTotal.WithLabelValues("skipped")))
}
