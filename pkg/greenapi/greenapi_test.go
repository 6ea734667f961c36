package greenapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "1101000001", "token-abc", nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("https://api.green-api.com", "", "token", nil); err == nil {
		t.Fatal("expected error for missing instance id")
	}
	if _, err := NewClient("https://api.green-api.com", "1101", "", nil); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestReceiveNotificationEmptyQueue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/waInstance1101000001/receiveNotification/token-abc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte("null"))
	})

	notification, err := client.ReceiveNotification(context.Background())
	if err != nil {
		t.Fatalf("ReceiveNotification error: %v", err)
	}
	if notification != nil {
		t.Fatalf("notification = %+v, want nil", notification)
	}
}

func TestReceiveNotificationDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"receiptId": 7,
			"body": {
				"typeWebhook": "incomingMessageReceived",
				"senderData": {"sender": "549112233@c.us", "chatId": "549112233@c.us", "senderName": "Ana"},
				"messageData": {"typeMessage": "textMessage", "textMessageData": {"textMessage": "Madrid"}}
			}
		}`))
	})

	notification, err := client.ReceiveNotification(context.Background())
	if err != nil {
		t.Fatalf("ReceiveNotification error: %v", err)
	}
	if notification.ReceiptID != 7 {
		t.Fatalf("receipt id = %d, want 7", notification.ReceiptID)
	}
	if notification.Body.TypeWebhook != "incomingMessageReceived" {
		t.Fatalf("type webhook = %q", notification.Body.TypeWebhook)
	}
	if notification.Body.MessageData.TextMessageData.TextMessage != "Madrid" {
		t.Fatalf("text = %q, want Madrid", notification.Body.MessageData.TextMessageData.TextMessage)
	}
}

func TestDeleteNotificationUsesReceiptPath(t *testing.T) {
	var gotPath, gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{"result":true}`))
	})

	if err := client.DeleteNotification(context.Background(), 7); err != nil {
		t.Fatalf("DeleteNotification error: %v", err)
	}
	if gotPath != "/waInstance1101000001/deleteNotification/token-abc/7" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("method = %q, want DELETE", gotMethod)
	}
}

func TestSendMessagePostsChatAndText(t *testing.T) {
	var got sendMessageRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode send body: %v", err)
		}
		_, _ = w.Write([]byte(`{"idMessage":"x"}`))
	})

	if err := client.SendMessage(context.Background(), "549112233@c.us", "hola"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if got.ChatID != "549112233@c.us" || got.Message != "hola" {
		t.Fatalf("send request = %+v", got)
	}
}

func TestStateReadsInstanceState(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"stateInstance":"authorized"}`))
	})

	state, err := client.State(context.Background())
	if err != nil {
		t.Fatalf("State error: %v", err)
	}
	if state != StateAuthorized {
		t.Fatalf("state = %q, want %q", state, StateAuthorized)
	}
}

func TestErrorStatusSurfacesAsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad token"}`))
	})

	if _, err := client.ReceiveNotification(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
