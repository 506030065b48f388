package lark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

type sentMessage struct {
	ReceiveIDType string
	ReceiveID     string `json:"receive_id"`
	MsgType       string `json:"msg_type"`
	Content       string `json:"content"`
}

// fakeLark answers the token and message endpoints of the open platform
func fakeLark(t *testing.T, code int) (*httptest.Server, func() []sentMessage) {
	t.Helper()
	var mu sync.Mutex
	var sent []sentMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "tenant_access_token"):
			_, _ = w.Write([]byte(`{"code":0,"msg":"ok","tenant_access_token":"t-test","expire":7200}`))
		case strings.HasSuffix(r.URL.Path, "/im/v1/messages"):
			var msg sentMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
			msg.ReceiveIDType = r.URL.Query().Get("receive_id_type")
			mu.Lock()
			sent = append(sent, msg)
			mu.Unlock()
			if code != 0 {
				_, _ = w.Write([]byte(`{"code":230001,"msg":"bot is not in the chat"}`))
				return
			}
			_, _ = w.Write([]byte(`{"code":0,"msg":"success","data":{"message_id":"om_1"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, func() []sentMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]sentMessage(nil), sent...)
	}
}

func newTestMessenger(baseURL string) *Messenger {
	client := NewSDKClient(Config{AppID: "cli_test", AppSecret: "secret", BaseURL: baseURL}, zap.NewNop())
	return NewMessenger(client, Recipients{
		Parties: map[entity.Party]string{entity.PartyOwner: "ou_owner"},
		Users:   map[string]string{"tenant-1": "ou_tenant"},
	}, zap.NewNop())
}

func TestMessenger_Notify(t *testing.T) {
	srv, sent := fakeLark(t, 0)
	m := newTestMessenger(srv.URL)
	ctx := context.Background()

	require.NoError(t, m.Notify(ctx, port.Notification{Party: entity.PartyOwner, BillID: "b1", Text: `Asha paid "1000"`}))
	require.NoError(t, m.Notify(ctx, port.Notification{Party: entity.PartyTenant, UserID: "tenant-1", BillID: "b1", Text: "verified"}))
	// nobody to send to
	require.NoError(t, m.Notify(ctx, port.Notification{Party: entity.PartyTenant, UserID: "tenant-9", BillID: "b1", Text: "verified"}))

	msgs := sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, "open_id", msgs[0].ReceiveIDType)
	assert.Equal(t, "ou_owner", msgs[0].ReceiveID)
	assert.Equal(t, "text", msgs[0].MsgType)
	assert.JSONEq(t, `{"text":"Asha paid \"1000\""}`, msgs[0].Content)
	assert.Equal(t, "ou_tenant", msgs[1].ReceiveID)
}

func TestMessenger_APIFailure(t *testing.T) {
	srv, _ := fakeLark(t, 230001)
	m := newTestMessenger(srv.URL)

	err := m.Notify(context.Background(), port.Notification{Party: entity.PartyOwner, Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "230001")

	assert.Error(t, m.Notify(context.Background(), port.Notification{Party: entity.PartyOwner}))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zap.NewNop()).Notify(context.Background(), port.Notification{Text: "hi"}))
}
