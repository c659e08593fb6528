package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/queue"
)

func TestResend_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"mail_1"}`))
	}))
	defer srv.Close()

	m := NewResend(srv.URL, "re_123", "Mess <noreply@mess.test>", srv.Client())
	require.NoError(t, m.Send(context.Background(), Mail{To: []string{"a@x.io"}, Subject: "Hi", HTML: "<p>hi</p>"}))
	assert.Equal(t, "Mess <noreply@mess.test>", got["from"])
	assert.Equal(t, []any{"a@x.io"}, got["to"])
	assert.Equal(t, "Hi", got["subject"])
	assert.Equal(t, "<p>hi</p>", got["html"])
}

func TestResend_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid from", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := NewResend(srv.URL, "k", "f", nil).Send(context.Background(), Mail{To: []string{"a@x.io"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

type fakePublisher struct{ events []queue.MailEvent }

func (f *fakePublisher) PublishMail(_ context.Context, ev queue.MailEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func TestQueueMailer_RoundTripsThroughConsumer(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewQueueMailer(pub).Send(context.Background(), Mail{To: []string{"a@x.io"}, Subject: "S", HTML: "<b>h</b>"}))
	require.Len(t, pub.events, 1)

	body, err := json.Marshal(pub.events[0])
	require.NoError(t, err)
	rec := &recordingMailer{}
	require.NoError(t, queue.HandleDelivery(context.Background(), body, DeliverEvent(rec)))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, Mail{To: []string{"a@x.io"}, Subject: "S", HTML: "<b>h</b>"}, rec.sent[0])
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Holiday\n\nMess closed on **Sunday**.\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Holiday</h1>")
	assert.Contains(t, out, "<strong>Sunday</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestNotifier_Mails(t *testing.T) {
	rec := &recordingMailer{}
	n := NewNotifier(rec, "https://mess.test/", discardLogger())
	u := &model.User{ID: "a@x.io", Name: "<Ravi>", Status: model.StatusRejected}
	ctx := context.Background()

	require.NoError(t, n.Verification(ctx, u, "tok 1"))
	require.NoError(t, n.PasswordReset(ctx, u, "tok2"))
	require.NoError(t, n.StatusChanged(ctx, u))
	require.NoError(t, n.Direct(ctx, u, "Dues", "line1\nline2"))
	require.Len(t, rec.sent, 4)

	assert.Contains(t, rec.sent[0].HTML, "https://mess.test/verify-email?token=tok+1")
	assert.Contains(t, rec.sent[0].HTML, "&lt;Ravi&gt;")
	assert.Contains(t, rec.sent[1].HTML, "https://mess.test/reset-password?token=tok2")
	assert.Contains(t, rec.sent[2].HTML, "rejected")
	assert.Contains(t, rec.sent[3].HTML, "line1<br>line2")
	for _, m := range rec.sent {
		assert.Equal(t, []string{"a@x.io"}, m.To)
	}
}

type flakyMailer struct {
	recordingMailer
	failFor string
}

func (f *flakyMailer) Send(ctx context.Context, m Mail) error {
	if m.To[0] == f.failFor {
		return errors.New("bounce")
	}
	return f.recordingMailer.Send(ctx, m)
}

func TestNotifier_BroadcastSendsIndividually(t *testing.T) {
	fm := &flakyMailer{failFor: "b@x.io"}
	n := NewNotifier(fm, "https://mess.test", discardLogger())
	to := []*model.User{{ID: "a@x.io"}, {ID: "b@x.io"}, {ID: "c@x.io"}}

	sent, err := n.Broadcast(context.Background(), to, "Menu change", "Paneer on *Friday*")
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, fm.sent, 2)
	for _, m := range fm.sent {
		assert.Len(t, m.To, 1)
		assert.True(t, strings.Contains(m.HTML, "<em>Friday</em>"))
	}
}
